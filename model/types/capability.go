package types

import "context"

// Capability is a named callable the engine dispatches to by string
// identity. Implementations fall into a closed set of variants: a
// side-effect-free detector, a zero-argument actor, and an actor taking a
// single runtime value. The engine has no knowledge of what a capability
// does beyond its boolean outcome.
type Capability interface {
	// Exec invokes the capability. Zero-argument variants ignore args;
	// the parameterized variant consumes args[0] when present.
	Exec(ctx context.Context, args ...string) (bool, error)

	// TakesValue reports whether the capability consumes a runtime value.
	TakesValue() bool
}

type zeroArg func(ctx context.Context) (bool, error)

func (f zeroArg) Exec(ctx context.Context, _ ...string) (bool, error) { return f(ctx) }
func (f zeroArg) TakesValue() bool                                    { return false }

type oneArg func(ctx context.Context, value string) (bool, error)

func (f oneArg) Exec(ctx context.Context, args ...string) (bool, error) {
	var value string
	if len(args) > 0 {
		value = args[0]
	}
	return f(ctx, value)
}

func (f oneArg) TakesValue() bool { return true }

// NewDetector wraps a side-effect-free existence check.
func NewDetector(fn func(ctx context.Context) (bool, error)) Capability { return zeroArg(fn) }

// NewActor wraps an action returning whether its target was found and
// acted upon.
func NewActor(fn func(ctx context.Context) (bool, error)) Capability { return zeroArg(fn) }

// NewParamActor wraps an action taking one runtime value that selects
// which target to act on.
func NewParamActor(fn func(ctx context.Context, value string) (bool, error)) Capability {
	return oneArg(fn)
}
