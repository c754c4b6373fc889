package model

import "time"

// Step kind discriminators, matching the "type" field of step mappings.
// A step mapping without an explicit type is an action.
const (
	KindAction      = "action"
	KindSubWorkflow = "workflow"
	KindCondition   = "condition"
	KindEventLoop   = "event_loop"
)

// Default timings applied when a document omits them.
const (
	DefaultWaitAfter    = 500 * time.Millisecond
	DefaultLoopInterval = 10 * time.Second
)

// Workflow represents a parsed workflow document. Instances are immutable
// once loaded and shared through the document cache for the process
// lifetime.
type Workflow struct {
	// Source provides information about the origin of the workflow
	Source *Source

	// Name is derived from the document location
	Name string

	// Description provides a human-readable description of the workflow
	Description string

	// Steps is the ordered step sequence. It is nil when the document
	// carries no steps node at all, as opposed to an empty sequence.
	Steps []*Step
}

// Source describes where a workflow document was loaded from.
type Source struct {
	URL string
}

// Step is a tagged variant over the four step kinds; Kind selects which
// field group is meaningful.
type Step struct {
	Kind        string
	Description string

	// Action fields
	Capability string
	WaitAfter  time.Duration
	Retry      int
	Optional   bool
	ParamKey   string

	// Sub-workflow fields
	WorkflowRef string
	Params      map[string]interface{}

	// Condition fields
	Predicate string
	OnTrue    []*Step
	OnFalse   []*Step

	// Event-loop fields
	Name     string
	Interval time.Duration
	Handlers []*Handler
}

// Handler is a guarded action group evaluated on every event-loop pass.
// An empty Predicate means the handler always triggers; a predicate
// missing from the registry means it never does.
type Handler struct {
	Name      string
	Predicate string
	Actions   []*Step
}

// NewActionStep creates an action step with the documented defaults.
func NewActionStep(capability string) *Step {
	return &Step{
		Kind:       KindAction,
		Capability: capability,
		WaitAfter:  DefaultWaitAfter,
		Retry:      1,
	}
}
