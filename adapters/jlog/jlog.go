package jlog

import (
	"context"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/luno/stageflow"
)

// New returns a stageflow.Logger that writes through the global jettison logger.
func New() *logger {
	return &logger{}
}

type logger struct{}

func (l logger) Debug(ctx context.Context, msg string, meta stageflow.MKV) {
	log.Debug(ctx, msg, j.MKS(meta))
}

func (l logger) Error(ctx context.Context, err error) {
	log.Error(ctx, errors.Wrap(err, ""))
}

var _ stageflow.Logger = (*logger)(nil)
