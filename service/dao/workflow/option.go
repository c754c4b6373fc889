package workflow

import "github.com/viant/afs"

// Option customises the document service.
type Option func(*Service)

// WithRootURL sets the workflow root directory against which non-relative
// references are resolved.
func WithRootURL(rootURL string) Option {
	return func(s *Service) {
		s.rootURL = rootURL
	}
}

// WithStepsNodeName overrides the document key holding the step sequence.
func WithStepsNodeName(name string) Option {
	return func(s *Service) {
		s.stepsNodeName = name
	}
}

// WithFS overrides the storage service used to read documents.
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}
