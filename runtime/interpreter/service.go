// Package interpreter executes parsed workflow documents against the
// capability registry: an ordered step walk with action retry semantics,
// sub-workflow composition over a shallow-merged parameter scope,
// predicate branching and a cancellable polling event loop. Execution is
// a single logical flow; every delay is a blocking suspension of it.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/milthm/autogarden/extension"
	"github.com/milthm/autogarden/internal/clock"
	"github.com/milthm/autogarden/model"
	"github.com/milthm/autogarden/model/types"
	dao "github.com/milthm/autogarden/service/dao/workflow"
	"github.com/milthm/autogarden/service/dao/workflow/params"
	"github.com/milthm/autogarden/tracing"
)

// Service interprets workflow documents. The execution stack and the
// document cache it relies on are engine-owned state with process-long
// lifecycle; independent Service instances never interfere.
type Service struct {
	capabilities *extension.Capabilities
	docs         *dao.Service
	reporter     *Reporter

	sleep             func(ctx context.Context, d time.Duration) error
	retryDelay        time.Duration
	maxLoopIterations int
	loopInterval      time.Duration

	// stack tracks canonical locations of in-progress documents; it only
	// exists to resolve relative workflow references.
	stack []string
}

// New creates an interpreter over the supplied registry and document
// service.
func New(capabilities *extension.Capabilities, docs *dao.Service, opts ...Option) *Service {
	ret := &Service{
		capabilities: capabilities,
		docs:         docs,
		reporter:     NewReporter(nil),
		sleep:        clock.Sleep,
		retryDelay:   time.Second,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// StackDepth returns the number of currently open documents.
func (s *Service) StackDepth() int {
	return len(s.stack)
}

// Execute runs the named workflow with the given parameter scope. Only
// document load failures surface as errors; every step-level failure is
// resolved to the boolean result. External cancellation unwinds cleanly
// and reports success, matching an operator interrupt.
func (s *Service) Execute(ctx context.Context, name string, scope map[string]interface{}) (bool, error) {
	ok, err := s.execute(ctx, name, scope)
	if err != nil && isCancellation(err) {
		return true, nil
	}
	return ok, err
}

func (s *Service) execute(ctx context.Context, name string, scope map[string]interface{}) (result bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.execute")
	defer func() { tracing.EndSpan(span, err) }()

	baseURL := ""
	if n := len(s.stack); n > 0 {
		baseURL = filepath.Dir(s.stack[n-1])
	}
	doc, location, err := s.docs.Load(ctx, name, baseURL)
	if err != nil {
		return false, err
	}
	span.WithAttributes(map[string]string{"workflow": doc.Name})
	s.reporter.Printf("[workflow] executing %v", doc.Name)

	// A document without a steps node is a content error, not a transport
	// error: fail locally rather than raising.
	if doc.Steps == nil {
		s.reporter.Printf("[workflow] no steps found in %v", doc.Name)
		return false, nil
	}
	if scope == nil {
		scope = map[string]interface{}{}
	}

	s.stack = append(s.stack, location)
	defer func() {
		s.stack = s.stack[:len(s.stack)-1]
	}()
	return s.runSteps(ctx, doc.Steps, scope)
}

// runSteps interprets an ordered step sequence; the first failing step
// short-circuits the remainder.
func (s *Service) runSteps(ctx context.Context, steps []*model.Step, scope map[string]interface{}) (bool, error) {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ok, err := s.runStep(ctx, step, scope)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) runStep(ctx context.Context, step *model.Step, scope map[string]interface{}) (bool, error) {
	switch step.Kind {
	case model.KindAction:
		return s.runAction(ctx, step, scope)
	case model.KindSubWorkflow:
		return s.runSubWorkflow(ctx, step, scope)
	case model.KindCondition:
		return s.runCondition(ctx, step, scope)
	case model.KindEventLoop:
		return s.runEventLoop(ctx, step, scope)
	default:
		s.reporter.Printf("[workflow] unknown step type: %v", step.Kind)
		return false, nil
	}
}

// runAction attempts a capability call up to step.Retry times, with the
// fixed retry delay between attempts. Capability errors are converted to
// failed attempts at this boundary; an optional step absorbs both a
// missing registry binding and exhausted retries.
func (s *Service) runAction(ctx context.Context, step *model.Step, scope map[string]interface{}) (bool, error) {
	description := step.Description
	if description == "" {
		description = step.Capability
	}
	capability := s.capabilities.Lookup(step.Capability)
	if capability == nil {
		s.reporter.Printf("[action] %v", description)
		s.reporter.Printf("[action] capability %v not registered", step.Capability)
		return step.Optional, nil
	}

	var args []string
	if step.ParamKey != "" {
		if value, ok := scope[step.ParamKey]; ok {
			args = append(args, formatValue(value))
		}
	}

	s.reporter.Printf("[action] %v", description)
	for attempt := 0; attempt < step.Retry; attempt++ {
		ok, err := s.invoke(ctx, capability, args...)
		if err != nil {
			if isCancellation(err) {
				return false, err
			}
			s.reporter.Printf("[action] %v: %v", description, err)
		} else if ok {
			s.reporter.Printf("[action] %v succeeded", description)
			if step.WaitAfter > 0 {
				if err := s.sleep(ctx, step.WaitAfter); err != nil {
					return false, err
				}
			}
			return true, nil
		}
		if attempt < step.Retry-1 {
			s.reporter.Printf("[action] retrying %v (%d/%d)", description, attempt+1, step.Retry)
			if err := s.sleep(ctx, s.retryDelay); err != nil {
				return false, err
			}
		}
	}
	if step.Optional {
		s.reporter.Printf("[action] %v failed but optional, continuing", description)
		return true, nil
	}
	s.reporter.Printf("[action] %v failed", description)
	return false, nil
}

// runSubWorkflow recurses into the referenced document with the callee
// scope built as a shallow merge: parent entries overlaid with the step's
// own params, step-local keys winning. String param values may carry
// ${name} placeholders resolved against the parent scope.
func (s *Service) runSubWorkflow(ctx context.Context, step *model.Step, scope map[string]interface{}) (bool, error) {
	description := step.Description
	if description == "" {
		description = fmt.Sprintf("sub-workflow: %v", step.WorkflowRef)
	}
	s.reporter.Printf("[workflow] %v", description)

	merged := make(map[string]interface{}, len(scope)+len(step.Params))
	for k, v := range scope {
		merged[k] = v
	}
	for k, v := range step.Params {
		merged[k] = params.ExpandValue(v, scope)
	}
	return s.execute(ctx, step.WorkflowRef, merged)
}

// runCondition evaluates the predicate and interprets exactly one branch.
// A missing predicate binding or a predicate error fails the whole step
// without running either branch; there is no optional escape here.
func (s *Service) runCondition(ctx context.Context, step *model.Step, scope map[string]interface{}) (bool, error) {
	description := step.Description
	if description == "" {
		description = step.Predicate
	}
	predicate := s.capabilities.Lookup(step.Predicate)
	if predicate == nil {
		s.reporter.Printf("[condition] predicate %v not registered", step.Predicate)
		return false, nil
	}
	s.reporter.Printf("[condition] checking %v", description)
	ok, err := s.invoke(ctx, predicate)
	if err != nil {
		if isCancellation(err) {
			return false, err
		}
		s.reporter.Printf("[condition] %v: %v", description, err)
		return false, nil
	}
	if ok {
		s.reporter.Printf("[condition] %v is true", description)
		return s.runSteps(ctx, step.OnTrue, scope)
	}
	s.reporter.Printf("[condition] %v is false", description)
	return s.runSteps(ctx, step.OnFalse, scope)
}

// runEventLoop polls the handlers at a fixed interval: every pass
// evaluates each handler in document order, the interval is a delay after
// the full pass rather than a fixed-rate schedule, and handlers are
// independent of each other's failures. Cancellation is the loop's single
// production exit and counts as success; a positive maxLoopIterations
// bounds the loop for testing.
func (s *Service) runEventLoop(ctx context.Context, step *model.Step, scope map[string]interface{}) (bool, error) {
	name := step.Name
	if name == "" {
		name = "event loop"
	}
	interval := step.Interval
	if s.loopInterval > 0 {
		interval = s.loopInterval
	}
	s.reporter.Printf("[event-loop] starting %v (interval %v)", name, interval)

	iteration := 0
	for {
		if s.maxLoopIterations > 0 && iteration >= s.maxLoopIterations {
			s.reporter.Printf("[event-loop] %v reached %v iterations", name, iteration)
			return true, nil
		}
		iteration++
		for _, handler := range step.Handlers {
			if ctx.Err() != nil {
				s.reporter.Printf("[event-loop] %v stopped", name)
				return true, nil
			}
			if !s.handlerTriggers(ctx, handler) {
				continue
			}
			s.reporter.Printf("[event-loop] triggered %v", handler.Name)
			if _, err := s.runSteps(ctx, handler.Actions, scope); err != nil {
				if isCancellation(err) {
					s.reporter.Printf("[event-loop] %v stopped", name)
					return true, nil
				}
				return false, err
			}
		}
		if err := s.sleep(ctx, interval); err != nil {
			s.reporter.Printf("[event-loop] %v stopped", name)
			return true, nil
		}
	}
}

// handlerTriggers reports whether a handler fires this pass. A handler
// without a predicate always fires; a predicate missing from the registry
// or failing simply does not trigger, it is not an error.
func (s *Service) handlerTriggers(ctx context.Context, handler *model.Handler) bool {
	if handler.Predicate == "" {
		return true
	}
	predicate := s.capabilities.Lookup(handler.Predicate)
	if predicate == nil {
		return false
	}
	ok, err := s.invoke(ctx, predicate)
	if err != nil {
		s.reporter.Printf("[event-loop] handler %v: %v", handler.Name, err)
		return false
	}
	return ok
}

// invoke calls a capability, converting panics into errors so a misbehaved
// capability never unwinds the engine.
func (s *Service) invoke(ctx context.Context, capability types.Capability, args ...string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("capability panic: %v", r)
		}
	}()
	return capability.Exec(ctx, args...)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func formatValue(value interface{}) string {
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprintf("%v", value)
}
