package autogarden

import (
	"fmt"

	"github.com/milthm/autogarden/service/vision"
)

// Config is a serialisable representation of the automation setup. The
// zero value is not runnable; DefaultConfig fills in everything except the
// platform shell commands.
type Config struct {
	// WorkflowsURL is the root location of workflow documents.
	WorkflowsURL string `json:"workflowsURL" yaml:"workflowsURL"`

	// AssetsURL is the root location of template images.
	AssetsURL string `json:"assetsURL" yaml:"assetsURL"`

	// RunLogDSN locates the SQLite run log; empty disables run logging.
	RunLogDSN string `json:"runLogDSN,omitempty" yaml:"runLogDSN,omitempty"`

	// Shell configures the capture and input helper commands.
	Shell vision.ShellConfig `json:"shell" yaml:"shell"`

	// Threshold overrides the template match threshold when positive.
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`

	// Scales overrides the template scales tried during matching.
	Scales []float64 `json:"scales,omitempty" yaml:"scales,omitempty"`
}

// DefaultConfig returns a Config with the conventional local layout.
func DefaultConfig() *Config {
	return &Config{
		WorkflowsURL: "workflows",
		AssetsURL:    "assets",
		RunLogDSN:    "autogarden.db",
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.WorkflowsURL == "" {
		return fmt.Errorf("workflowsURL is required")
	}
	if c.AssetsURL == "" {
		return fmt.Errorf("assetsURL is required")
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0, 1]")
	}
	return nil
}
