// Package vision implements the perception layer: multi-scale template
// matching over captures of the target window plus click simulation. The
// engine consumes it only through named capability functions built on
// Service.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"time"

	"github.com/milthm/autogarden/internal/clock"
	"github.com/viant/afs"
)

// focusSettle allows window focus to settle before a capture.
const focusSettle = 200 * time.Millisecond

// Service locates template images on the target window and acts on them.
type Service struct {
	device    Device
	fs        afs.Service
	threshold float64
	scales    []float64

	templates map[string]image.Image
	mux       sync.Mutex
}

// Option customises the vision service.
type Option func(*Service)

// WithThreshold overrides the match acceptance threshold.
func WithThreshold(threshold float64) Option {
	return func(s *Service) {
		s.threshold = threshold
	}
}

// WithScales overrides the template scales tried during matching.
func WithScales(scales []float64) Option {
	return func(s *Service) {
		s.scales = scales
	}
}

// WithFS overrides the storage service used to read template assets.
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// New creates a vision service over the supplied device.
func New(device Device, opts ...Option) *Service {
	ret := &Service{
		device:    device,
		fs:        afs.New(),
		threshold: DefaultThreshold,
		scales:    DefaultScales,
		templates: make(map[string]image.Image),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Exists reports whether the template is visible without clicking it.
func (s *Service) Exists(ctx context.Context, templateURL string) (bool, error) {
	return s.ExistsAny(ctx, templateURL)
}

// ExistsAny reports whether any of the template variants is visible.
func (s *Service) ExistsAny(ctx context.Context, templateURLs ...string) (bool, error) {
	_, match, err := s.findAny(ctx, templateURLs)
	if err != nil {
		return false, err
	}
	return match != nil, nil
}

// LocateAndClick locates the template on the window and clicks its centre.
func (s *Service) LocateAndClick(ctx context.Context, templateURL string) (bool, error) {
	return s.LocateAndClickAny(ctx, templateURL)
}

// LocateAndClickAny locates the best-scoring variant among the supplied
// templates and clicks it; trying variants lets one capability cover
// alternate visual states of the same control.
func (s *Service) LocateAndClickAny(ctx context.Context, templateURLs ...string) (bool, error) {
	_, match, err := s.findAny(ctx, templateURLs)
	if err != nil {
		return false, err
	}
	if match == nil {
		return false, nil
	}
	x, y := match.Center()
	if err := s.device.Click(ctx, x, y); err != nil {
		return false, fmt.Errorf("click failed: %w", err)
	}
	return true, nil
}

// findAny captures the window once and matches every variant against it.
func (s *Service) findAny(ctx context.Context, templateURLs []string) (image.Image, *Match, error) {
	if len(templateURLs) == 0 {
		return nil, nil, fmt.Errorf("no template specified")
	}
	// Focus is best-effort; matching still works on an unfocused window.
	if err := s.device.Focus(ctx); err == nil {
		if err := clock.Sleep(ctx, focusSettle); err != nil {
			return nil, nil, err
		}
	}
	screen, err := s.device.Capture(ctx)
	if err != nil {
		return nil, nil, err
	}
	var best *Match
	for _, templateURL := range templateURLs {
		template, err := s.template(ctx, templateURL)
		if err != nil {
			return nil, nil, err
		}
		match := FindTemplate(screen, template, s.threshold, s.scales)
		if match != nil && (best == nil || match.Score > best.Score) {
			best = match
		}
	}
	return screen, best, nil
}

// template loads a template asset, caching the decoded image for the
// process lifetime.
func (s *Service) template(ctx context.Context, templateURL string) (image.Image, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if cached, ok := s.templates[templateURL]; ok {
		return cached, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, templateURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %v: %w", templateURL, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode template %v: %w", templateURL, err)
	}
	s.templates[templateURL] = img
	return img, nil
}
