// Package pipeline builds PDAL pipeline descriptions.
//
// A pipeline is an ordered list: source filenames first, then stages, the
// last of which is a writer. PDAL executes the stages strictly in sequence.
package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	TypeRange        = "filters.range"
	TypeReprojection = "filters.reprojection"
	TypeFerry        = "filters.ferry"
	TypeHAGNN        = "filters.hag_nn"
	TypeMerge        = "filters.merge"
	TypeCrop         = "filters.crop"
	TypeWriterCOPC   = "writers.copc"
)

const (
	LAZSuffix  = ".laz"
	COPCSuffix = ".copc.laz"
)

// Stage is a single PDAL stage. Params never contain the "type" key.
type Stage struct {
	Type   string
	Params map[string]interface{}
}

func NewStage(typ string, kv ...interface{}) Stage {
	if len(kv)%2 != 0 {
		panic("pipeline: odd number of stage parameters")
	}
	s := Stage{Type: typ}
	for i := 0; i < len(kv); i += 2 {
		if s.Params == nil {
			s.Params = make(map[string]interface{}, len(kv)/2)
		}
		s.Params[kv[i].(string)] = kv[i+1]
	}
	return s
}

// IsWriter reports whether the stage writes an output file.
func (s Stage) IsWriter() bool {
	return strings.HasPrefix(s.Type, "writers.")
}

// MarshalJSON encodes the stage as a flat JSON object. encoding/json sorts
// map keys, so the output is deterministic.
func (s Stage) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(s.Params)+1)
	for k, v := range s.Params {
		m[k] = v
	}
	m["type"] = s.Type
	return marshal(m)
}

// marshal is json.Marshal without HTML escaping; ferry dimensions contain
// "=>" and should stay readable.
func marshal(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type Pipeline struct {
	Sources []string
	Stages  []Stage
}

func (p Pipeline) MarshalJSON() ([]byte, error) {
	elems := make([]interface{}, 0, len(p.Sources)+len(p.Stages))
	for _, src := range p.Sources {
		elems = append(elems, src)
	}
	for _, s := range p.Stages {
		elems = append(elems, s)
	}
	return marshal(elems)
}

// Indent returns the pipeline as indented JSON, as written by --dry-run.
func (p Pipeline) Indent() ([]byte, error) {
	b, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if err := json.Indent(buf, b, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Writers returns the filenames of all writer stages in order.
func (p Pipeline) Writers() []string {
	var files []string
	for _, s := range p.Stages {
		if !s.IsWriter() {
			continue
		}
		if fname, ok := s.Params["filename"].(string); ok {
			files = append(files, fname)
		}
	}
	return files
}

// Output returns the first writer filename, or "" if there is none.
func (p Pipeline) Output() string {
	if w := p.Writers(); len(w) > 0 {
		return w[0]
	}
	return ""
}

// ClassRange is an inclusive range of LAS classification codes.
type ClassRange struct {
	Min int
	Max int
}

func (r ClassRange) limits() string {
	return fmt.Sprintf("Classification[%d:%d]", r.Min, r.Max)
}

type NormalizeOptions struct {
	Classes   ClassRange
	TargetSRS string
}

var DefaultNormalizeOptions = NormalizeOptions{
	Classes:   ClassRange{Min: 0, Max: 5},
	TargetSRS: "EPSG:7855",
}

func writer(dst string) Stage {
	return NewStage(TypeWriterCOPC, "filename", dst)
}

// Normalize reprojects src and replaces Z with the height above ground.
// Raw elevation is kept in the originalZ dimension.
func Normalize(src, dst string, opts NormalizeOptions) Pipeline {
	return Pipeline{
		Sources: []string{src},
		Stages: []Stage{
			NewStage(TypeRange, "limits", opts.Classes.limits()),
			NewStage(TypeReprojection, "out_srs", opts.TargetSRS),
			NewStage(TypeFerry, "dimensions", "Z => originalZ"),
			NewStage(TypeHAGNN),
			NewStage(TypeFerry, "dimensions", "HeightAboveGround=>Z"),
			writer(dst),
		},
	}
}

// Merge combines all srcs into a single COPC file.
func Merge(srcs []string, dst string) Pipeline {
	sources := make([]string, len(srcs))
	copy(sources, srcs)
	return Pipeline{
		Sources: sources,
		Stages: []Stage{
			NewStage(TypeMerge),
			writer(dst),
		},
	}
}

// Clip keeps only points whose XY position falls inside polygonWKT.
func Clip(src, polygonWKT, dst string) Pipeline {
	return Pipeline{
		Sources: []string{src},
		Stages: []Stage{
			NewStage(TypeCrop, "polygon", polygonWKT),
			writer(dst),
		},
	}
}

// NormalizedName returns the output name for a normalized tile:
// "tile.laz" becomes "tile.copc.laz".
func NormalizedName(name string) string {
	return strings.TrimSuffix(name, LAZSuffix) + COPCSuffix
}
