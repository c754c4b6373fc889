package autogarden

import (
	"io"
	"time"

	"github.com/milthm/autogarden/model/types"
	"github.com/milthm/autogarden/runtime/interpreter"
	"github.com/milthm/autogarden/service/vision"
)

// Option customises the automation service.
type Option func(*Service)

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithDevice supplies a pre-built capture and input device, bypassing the
// shell-command device the configuration would otherwise create.
func WithDevice(device vision.Device) Option {
	return func(s *Service) {
		s.device = device
	}
}

// WithCapability registers an extra capability on top of the built-in
// catalog, or overrides a catalog entry of the same name.
func WithCapability(name string, capability types.Capability) Option {
	return func(s *Service) {
		if s.extraCapabilities == nil {
			s.extraCapabilities = map[string]types.Capability{}
		}
		s.extraCapabilities[name] = capability
	}
}

// WithCapabilities registers extra capabilities in bulk.
func WithCapabilities(entries map[string]types.Capability) Option {
	return func(s *Service) {
		if s.extraCapabilities == nil {
			s.extraCapabilities = map[string]types.Capability{}
		}
		for name, capability := range entries {
			s.extraCapabilities[name] = capability
		}
	}
}

// WithReporter redirects progress output.
func WithReporter(w io.Writer) Option {
	return func(s *Service) {
		s.interpreterOptions = append(s.interpreterOptions, interpreter.WithReporter(w))
	}
}

// WithMaxLoopIterations bounds event loops to n full passes.
func WithMaxLoopIterations(n int) Option {
	return func(s *Service) {
		s.interpreterOptions = append(s.interpreterOptions, interpreter.WithMaxLoopIterations(n))
	}
}

// WithLoopInterval overrides the interval of every event loop.
func WithLoopInterval(d time.Duration) Option {
	return func(s *Service) {
		s.interpreterOptions = append(s.interpreterOptions, interpreter.WithLoopInterval(d))
	}
}

// WithRetryDelay overrides the delay between action retry attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		s.interpreterOptions = append(s.interpreterOptions, interpreter.WithRetryDelay(d))
	}
}

// WithTracing enables OpenTelemetry tracing of workflow executions,
// writing spans to the given file, or standard output when empty.
func WithTracing(outputFile string) Option {
	return func(s *Service) {
		s.tracingOutput = &outputFile
	}
}
