package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/milthm/autogarden/model"
	"github.com/viant/afs"
)

// Service loads workflow documents from storage and caches the parsed
// result keyed by canonical path, so two relative spellings of the same
// physical document share one cache entry and one read. The cache has no
// invalidation: documents are static configuration, immutable for the
// process lifetime.
type Service struct {
	fs            afs.Service
	rootURL       string
	stepsNodeName string
	cache         map[string]*model.Workflow
	mux           sync.Mutex
}

// RootURL returns the workflow root directory.
func (s *Service) RootURL() string {
	return s.rootURL
}

// Resolve maps a workflow reference to the location it denotes. References
// prefixed with ./ or ../ resolve against baseURL (the directory of the
// document currently executing), or the root when baseURL is empty; any
// other reference resolves against the root. The returned path is
// canonical: absolute, cleaned, with symlinks resolved when possible.
func (s *Service) Resolve(name, baseURL string) string {
	var location string
	if strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") {
		base := baseURL
		if base == "" {
			base = s.rootURL
		}
		location = filepath.Join(base, name)
	} else {
		location = filepath.Join(s.rootURL, name)
	}
	if filepath.Ext(location) == "" {
		location += ".yml"
	}
	if abs, err := filepath.Abs(location); err == nil {
		location = abs
	}
	if resolved, err := filepath.EvalSymlinks(location); err == nil {
		location = resolved
	}
	return location
}

// Load resolves a workflow reference and returns the parsed document along
// with its canonical location. On cache hit the cached instance is
// returned and storage is not touched.
func (s *Service) Load(ctx context.Context, name, baseURL string) (*model.Workflow, string, error) {
	location := s.Resolve(name, baseURL)

	s.mux.Lock()
	defer s.mux.Unlock()
	if cached, ok := s.cache[location]; ok {
		return cached, location, nil
	}

	exists, err := s.fs.Exists(ctx, location)
	if err != nil || !exists {
		return nil, "", fmt.Errorf("%w: %v", ErrNotFound, location)
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotFound, location)
	}
	workflow, err := s.DecodeYAML(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrMalformed, location, err)
	}
	workflow.Source = &model.Source{URL: location}
	if workflow.Name == "" {
		base := filepath.Base(location)
		workflow.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	s.cache[location] = workflow
	return workflow, location, nil
}

// New creates a workflow document service.
func New(opts ...Option) *Service {
	ret := &Service{
		fs:            afs.New(),
		rootURL:       "workflows",
		stepsNodeName: "steps",
		cache:         make(map[string]*model.Workflow),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
