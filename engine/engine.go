// Package engine executes pipeline descriptions.
//
// The point processing itself happens in PDAL. An Engine runs one pipeline
// and returns the number of points written by its writer stages.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/forestlidar/lazprep/pipeline"
)

type Engine interface {
	Execute(ctx context.Context, p pipeline.Pipeline) (int64, error)
}

// ExecutionError is returned when the engine fails to run a pipeline.
type ExecutionError struct {
	Output     string
	Diagnostic string
}

func (e *ExecutionError) Error() string {
	if e.Output == "" {
		return "pipeline failed: " + e.Diagnostic
	}
	return fmt.Sprintf("pipeline for %s failed: %s", e.Output, e.Diagnostic)
}

// DryRun prints each pipeline as indented JSON instead of executing it.
type DryRun struct {
	mu sync.Mutex
	w  io.Writer
}

func NewDryRun(w io.Writer) *DryRun {
	return &DryRun{w: w}
}

func (d *DryRun) Execute(ctx context.Context, p pipeline.Pipeline) (int64, error) {
	b, err := p.Indent()
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := fmt.Fprintf(d.w, "%s\n", b); err != nil {
		return 0, err
	}
	return 0, nil
}
