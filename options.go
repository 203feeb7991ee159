package stageflow

import "k8s.io/utils/clock"

type options struct {
	clock     clock.Clock
	logger    Logger
	debugMode bool

	// maxCASAttempts bounds the number of times ExecuteStep re-evaluates a step after losing a compare-and-swap.
	maxCASAttempts int
}

type Option func(o *options)

// WithClock overrides the real clock used to timestamp step logs.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger replaces the default JSON logger that writes to stdout.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDebugMode enables debug logs for registrations, run starts and step executions.
func WithDebugMode() Option {
	return func(o *options) {
		o.debugMode = true
	}
}

// WithMaxCASAttempts sets how many times a step is evaluated against a run that keeps changing underneath it before
// ExecuteStep gives up with ErrConcurrentUpdate. Values below 1 are treated as 1.
func WithMaxCASAttempts(n int) Option {
	return func(o *options) {
		o.maxCASAttempts = n
	}
}
