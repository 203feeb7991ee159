package logger

import (
	"context"
	"io"
	"log/slog"
)

type Logger struct {
	log *slog.Logger
}

func (l *Logger) Debug(ctx context.Context, msg string, meta map[string]string) {
	l.log.DebugContext(ctx, msg, "meta", meta)
}

func (l *Logger) Error(ctx context.Context, err error, meta map[string]string) {
	if len(meta) == 0 {
		l.log.ErrorContext(ctx, err.Error())
		return
	}

	l.log.ErrorContext(ctx, err.Error(), "meta", meta)
}

func New(w io.Writer) *Logger {
	// LevelDebug is set as the engine decides whether debug logs are emitted.
	opts := slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	sl := slog.New(slog.NewJSONHandler(w, &opts))
	return &Logger{
		log: sl,
	}
}
