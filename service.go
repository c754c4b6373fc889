// Package autogarden assembles the workflow engine, the perception layer
// and the capability catalog into a single automation service for the
// in-game gardening loop.
package autogarden

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/milthm/autogarden/extension"
	"github.com/milthm/autogarden/internal/idgen"
	"github.com/milthm/autogarden/model/types"
	"github.com/milthm/autogarden/runtime/interpreter"
	"github.com/milthm/autogarden/service/catalog"
	"github.com/milthm/autogarden/service/dao/runlog"
	dao "github.com/milthm/autogarden/service/dao/workflow"
	"github.com/milthm/autogarden/service/vision"
	"github.com/milthm/autogarden/tracing"
)

// version identifies the service in emitted traces.
const version = "0.1.0"

// Service is the top-level automation facade. Workflow executions share
// the document cache and the capability registry; runs themselves are
// sequential, one logical flow at a time.
type Service struct {
	config       *Config
	device       vision.Device
	screen       *vision.Service
	capabilities *extension.Capabilities
	docs         *dao.Service
	runLog       *runlog.Service

	extraCapabilities  map[string]types.Capability
	interpreterOptions []interpreter.Option
	tracingOutput      *string
	ownsDevice         bool
}

// New assembles the service. When no device is supplied the configured
// shell commands back one; the capability catalog is registered before
// any caller-supplied extras so extras may override it.
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig()}
	for _, option := range options {
		option(ret)
	}
	if err := ret.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if ret.tracingOutput != nil {
		if err := tracing.Init("autogarden", version, *ret.tracingOutput); err != nil {
			return nil, fmt.Errorf("failed to initialise tracing: %w", err)
		}
	}

	if ret.device == nil {
		device, err := vision.NewShellDevice(ctx, ret.config.Shell)
		if err != nil {
			return nil, err
		}
		ret.device = device
		ret.ownsDevice = true
	}

	var visionOptions []vision.Option
	if ret.config.Threshold > 0 {
		visionOptions = append(visionOptions, vision.WithThreshold(ret.config.Threshold))
	}
	if len(ret.config.Scales) > 0 {
		visionOptions = append(visionOptions, vision.WithScales(ret.config.Scales))
	}
	ret.screen = vision.New(ret.device, visionOptions...)

	ret.capabilities = extension.NewCapabilities()
	catalog.New(ret.screen, ret.config.AssetsURL).Register(ret.capabilities)
	ret.capabilities.RegisterAll(ret.extraCapabilities)

	ret.docs = dao.New(dao.WithRootURL(ret.config.WorkflowsURL))

	if ret.config.RunLogDSN != "" {
		runLog, err := runlog.New(ret.config.RunLogDSN)
		if err != nil {
			return nil, err
		}
		ret.runLog = runLog
	}
	return ret, nil
}

// Execute runs the named workflow with the given parameter scope and
// records it in the run log.
func (s *Service) Execute(ctx context.Context, name string, params map[string]interface{}) (bool, error) {
	return s.execute(ctx, name, params)
}

func (s *Service) execute(ctx context.Context, name string, params map[string]interface{}, extra ...interpreter.Option) (bool, error) {
	runID := idgen.New()
	if err := s.runLog.Begin(ctx, runID, name, params); err != nil {
		return false, fmt.Errorf("failed to record run start: %w", err)
	}
	// A fresh interpreter per run keeps the execution stack private to
	// the run while sharing the document cache.
	engine := interpreter.New(s.capabilities, s.docs, append(s.interpreterOptions, extra...)...)
	ok, err := engine.Execute(ctx, name, params)
	if logErr := s.runLog.Finish(context.WithoutCancel(ctx), runID, ok && err == nil); logErr != nil && err == nil {
		err = fmt.Errorf("failed to record run outcome: %w", logErr)
	}
	return ok, err
}

// Plant runs the planting workflow for the named crop.
func (s *Service) Plant(ctx context.Context, crop string) (bool, error) {
	return s.Execute(ctx, "plant_crop", map[string]interface{}{"crop_name": crop})
}

// Harvest runs the one-off harvesting workflow.
func (s *Service) Harvest(ctx context.Context) (bool, error) {
	return s.Execute(ctx, "harvest", nil)
}

// Monitor runs the continuous harvest monitor until cancelled. A positive
// interval overrides the poll interval declared by the document.
func (s *Service) Monitor(ctx context.Context, interval time.Duration) (bool, error) {
	var extra []interpreter.Option
	if interval > 0 {
		extra = append(extra, interpreter.WithLoopInterval(interval))
	}
	return s.execute(ctx, "monitor_harvest", nil, extra...)
}

// TestCapability invokes a single registered capability outside of any
// workflow, reporting its boolean outcome.
func (s *Service) TestCapability(ctx context.Context, name string, args ...string) (bool, error) {
	capability := s.capabilities.Lookup(name)
	if capability == nil {
		return false, types.NewCapabilityNotFoundError(name)
	}
	return capability.Exec(ctx, args...)
}

// TestTemplate performs a one-off locate and click of an arbitrary
// template image, bypassing the capability catalog.
func (s *Service) TestTemplate(ctx context.Context, templateURL string) (bool, error) {
	return s.screen.LocateAndClick(ctx, templateURL)
}

// Capabilities returns the sorted names of all registered capabilities.
func (s *Service) Capabilities() []string {
	return s.capabilities.Names()
}

// Runs returns the most recent run log entries, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]*runlog.Run, error) {
	return s.runLog.List(ctx, limit)
}

// Close releases the run log and any device the service created itself.
func (s *Service) Close() error {
	err := s.runLog.Close()
	if s.ownsDevice {
		if closer, ok := s.device.(io.Closer); ok {
			if closeErr := closer.Close(); err == nil {
				err = closeErr
			}
		}
	}
	return err
}
