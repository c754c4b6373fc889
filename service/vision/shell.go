package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/milthm/autogarden/internal/idgen"
	"github.com/viant/afs"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner/local"
)

// ShellConfig configures the platform helper commands driving capture and
// input injection, e.g. screencapture/cliclick on macOS or maim/xdotool
// on X11. CaptureCmd takes the output PNG path, ClickCmd the x and y
// coordinates; FocusCmd is optional.
type ShellConfig struct {
	CaptureCmd string `json:"captureCmd" yaml:"captureCmd"`
	ClickCmd   string `json:"clickCmd" yaml:"clickCmd"`
	FocusCmd   string `json:"focusCmd,omitempty" yaml:"focusCmd,omitempty"`
}

// Validate reports missing mandatory commands.
func (c *ShellConfig) Validate() error {
	if c.CaptureCmd == "" {
		return fmt.Errorf("captureCmd is required")
	}
	if c.ClickCmd == "" {
		return fmt.Errorf("clickCmd is required")
	}
	return nil
}

// ShellDevice drives the target window through external helper commands
// executed in a local shell session.
type ShellDevice struct {
	shell  *gosh.Service
	fs     afs.Service
	config ShellConfig
}

// NewShellDevice opens a local shell session for the configured commands.
func NewShellDevice(ctx context.Context, config ShellConfig) (*ShellDevice, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	shell, err := gosh.New(ctx, local.New())
	if err != nil {
		return nil, fmt.Errorf("failed to open shell session: %w", err)
	}
	return &ShellDevice{shell: shell, fs: afs.New(), config: config}, nil
}

// Capture runs the capture command into a temporary PNG and decodes it.
func (d *ShellDevice) Capture(ctx context.Context) (image.Image, error) {
	location := filepath.Join(os.TempDir(), fmt.Sprintf("autogarden-%v.png", idgen.New()))
	defer func() { _ = os.Remove(location) }()

	if err := d.run(ctx, fmt.Sprintf(d.config.CaptureCmd, location)); err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}
	data, err := d.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture %v: %w", location, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode capture: %w", err)
	}
	return img, nil
}

// Click runs the click command for the given window coordinates.
func (d *ShellDevice) Click(ctx context.Context, x, y int) error {
	return d.run(ctx, fmt.Sprintf(d.config.ClickCmd, x, y))
}

// Focus runs the focus command when configured.
func (d *ShellDevice) Focus(ctx context.Context) error {
	if d.config.FocusCmd == "" {
		return nil
	}
	return d.run(ctx, d.config.FocusCmd)
}

// Close releases the shell session.
func (d *ShellDevice) Close() error {
	return d.shell.Close()
}

func (d *ShellDevice) run(ctx context.Context, command string) error {
	output, status, err := d.shell.Run(ctx, command)
	if err != nil {
		return err
	}
	if status != 0 {
		return fmt.Errorf("command %q exited with %v: %v", command, status, output)
	}
	return nil
}
