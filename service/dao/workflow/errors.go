package workflow

import "errors"

var (
	// ErrNotFound indicates the referenced document does not exist at the
	// resolved location. It propagates out of the engine unchanged.
	ErrNotFound = errors.New("workflow document not found")

	// ErrMalformed indicates the document exists but does not parse into
	// the expected step-tree shape.
	ErrMalformed = errors.New("malformed workflow document")
)
