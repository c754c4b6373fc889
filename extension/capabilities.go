package extension

import (
	"sort"
	"sync"

	"github.com/milthm/autogarden/model/types"
)

// Capabilities maps capability names to callables. It is populated once at
// startup from the capability catalog and read-only during workflow
// execution; names are resolved at call time, never at load time.
type Capabilities struct {
	entries map[string]types.Capability
	mux     sync.RWMutex
}

// Lookup returns the capability registered under name, or nil.
func (c *Capabilities) Lookup(name string) types.Capability {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.entries[name]
}

// Register inserts or overwrites the entry for name.
func (c *Capabilities) Register(name string, capability types.Capability) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.entries[name] = capability
}

// RegisterAll registers every entry of the supplied mapping, last write
// wins on duplicate names.
func (c *Capabilities) RegisterAll(entries map[string]types.Capability) {
	c.mux.Lock()
	defer c.mux.Unlock()
	for name, capability := range entries {
		c.entries[name] = capability
	}
}

// Names returns all registered capability names, sorted.
func (c *Capabilities) Names() []string {
	c.mux.RLock()
	defer c.mux.RUnlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewCapabilities creates an empty capability registry.
func NewCapabilities() *Capabilities {
	return &Capabilities{entries: make(map[string]types.Capability)}
}
