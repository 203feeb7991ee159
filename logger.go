package stageflow

import (
	"context"
	"io"
	"os"

	internal_logger "github.com/luno/stageflow/internal/logger"
)

type Logger interface {
	// Debug will be used by the engine for debug logs when in debug mode.
	Debug(ctx context.Context, msg string, meta MKV)
	// Error is used when writing errors to the logs.
	Error(ctx context.Context, err error)
}

// MKV is a multiple key value store for the logger to format into its output.
type MKV map[string]string

// logger gates debug output behind debug mode so that Logger implementations don't need to.
type logger struct {
	debugMode bool
	inner     Logger
}

func (l *logger) Debug(ctx context.Context, msg string, meta MKV) {
	if !l.debugMode {
		return
	}

	l.inner.Debug(ctx, msg, meta)
}

func (l *logger) Error(ctx context.Context, err error) {
	l.inner.Error(ctx, err)
}

type defaultLogger struct {
	log *internal_logger.Logger
}

func (d defaultLogger) Debug(ctx context.Context, msg string, meta MKV) {
	d.log.Debug(ctx, msg, meta)
}

func (d defaultLogger) Error(ctx context.Context, err error) {
	d.log.Error(ctx, err, nil)
}

// NewLogger returns the JSON Logger the engine uses by default, writing to w.
func NewLogger(w io.Writer) Logger {
	return defaultLogger{log: internal_logger.New(w)}
}

func newDefaultLogger() Logger {
	return NewLogger(os.Stdout)
}
