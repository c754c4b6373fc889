package interpreter

import (
	"fmt"
	"io"
	"os"
)

// Reporter emits operator-facing progress lines for workflow execution.
type Reporter struct {
	w io.Writer
}

// NewReporter creates a reporter writing to w; a nil writer falls back to
// standard output.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	return &Reporter{w: w}
}

// Printf writes a single progress line.
func (r *Reporter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(r.w, format+"\n", args...)
}
