package interpreter

import (
	"context"
	"io"
	"time"
)

// Option customises the interpreter.
type Option func(*Service)

// WithReporter redirects progress output, e.g. to a buffer in tests.
func WithReporter(w io.Writer) Option {
	return func(s *Service) {
		s.reporter = NewReporter(w)
	}
}

// WithRetryDelay overrides the fixed delay between action retry attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		s.retryDelay = d
	}
}

// WithMaxLoopIterations bounds every event loop to n full passes. The
// production default of 0 keeps loops unbounded, terminating only on
// cancellation.
func WithMaxLoopIterations(n int) Option {
	return func(s *Service) {
		s.maxLoopIterations = n
	}
}

// WithLoopInterval overrides the interval declared by event-loop steps.
func WithLoopInterval(d time.Duration) Option {
	return func(s *Service) {
		s.loopInterval = d
	}
}

// WithSleep overrides the suspension primitive so tests can observe delays
// without waiting for them.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) {
		s.sleep = fn
	}
}
