package types

import "fmt"

// NewCapabilityNotFoundError reports a capability name with no registry
// binding at call time.
func NewCapabilityNotFoundError(name string) error {
	return fmt.Errorf("capability %v not registered", name)
}
