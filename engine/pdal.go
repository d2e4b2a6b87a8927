package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/forestlidar/lazprep/pipeline"
)

const DefaultPDAL = "pdal"

// PDAL runs pipelines with the pdal command line application.
type PDAL struct {
	Binary string
}

func NewPDAL(binary string) *PDAL {
	if binary == "" {
		binary = DefaultPDAL
	}
	return &PDAL{Binary: binary}
}

// Execute runs `pdal pipeline --stdin` and returns the number of points in
// the files written by the pipeline. Existing writer outputs are removed
// first. There are no retries.
func (e *PDAL) Execute(ctx context.Context, p pipeline.Pipeline) (int64, error) {
	b, err := p.MarshalJSON()
	if err != nil {
		return 0, errors.Wrap(err, "encoding pipeline")
	}

	// a stale output would be counted as the result of this run
	for _, fname := range p.Writers() {
		if err := os.Remove(fname); err != nil && !os.IsNotExist(err) {
			return 0, errors.Wrapf(err, "removing previous output %q", fname)
		}
	}

	stderr := &bytes.Buffer{}
	cmd := exec.CommandContext(ctx, e.Binary, "pipeline", "--stdin")
	cmd.Stdin = bytes.NewReader(b)
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return 0, &ExecutionError{Output: p.Output(), Diagnostic: diagnostic(stderr.String(), err)}
	}

	var total int64
	for _, fname := range p.Writers() {
		n, err := e.count(ctx, fname)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// diagnostic returns the last non-empty line PDAL wrote to stderr, which
// carries the actual error message.
func diagnostic(stderr string, err error) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return err.Error()
}

type infoSummary struct {
	Summary struct {
		NumPoints int64 `json:"num_points"`
	} `json:"summary"`
}

// count returns the number of points in fname. Writers do not create a
// file for an empty point view, so a missing file counts as zero points.
func (e *PDAL) count(ctx context.Context, fname string) (int64, error) {
	if _, err := os.Stat(fname); os.IsNotExist(err) {
		return 0, nil
	}

	stderr := &bytes.Buffer{}
	cmd := exec.CommandContext(ctx, e.Binary, "info", "--summary", fname)
	cmd.Stderr = stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, &ExecutionError{Output: fname, Diagnostic: diagnostic(stderr.String(), err)}
	}

	info := infoSummary{}
	if err := json.Unmarshal(out, &info); err != nil {
		return 0, errors.Wrapf(err, "parsing pdal info for %q", fname)
	}
	return info.Summary.NumPoints, nil
}
