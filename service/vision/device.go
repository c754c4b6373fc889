package vision

import (
	"context"
	"image"
)

// Device abstracts the windowing side of perception: capturing the target
// window image and injecting pointer input. Implementations are narrow
// external collaborators; the engine never depends on them directly.
type Device interface {
	// Capture grabs the current client area of the target window.
	Capture(ctx context.Context) (image.Image, error)

	// Click simulates a left click at window coordinates.
	Click(ctx context.Context, x, y int) error

	// Focus brings the target window to the foreground. Best-effort;
	// detection still works when it fails.
	Focus(ctx context.Context) error
}
