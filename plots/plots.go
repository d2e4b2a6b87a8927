// Package plots reads plot boundaries from GeoJSON and converts them to the
// WKT polygons used by the crop filter.
package plots

import (
	"fmt"
	"io/ioutil"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/forestlidar/lazprep/pipeline"
)

const (
	defaultSite = "unknown"
	separator   = "__"
)

type Kind int

const (
	KindOther Kind = iota
	KindPolygon
	KindMultiPolygon
)

func KindOf(g orb.Geometry) Kind {
	switch g.(type) {
	case orb.Polygon:
		return KindPolygon
	case orb.MultiPolygon:
		return KindMultiPolygon
	default:
		return KindOther
	}
}

// UnsupportedGeometryKindError is returned for geometries that are neither
// Polygon nor MultiPolygon.
type UnsupportedGeometryKindError struct {
	GeoJSONType string
}

func (e *UnsupportedGeometryKindError) Error() string {
	return fmt.Sprintf("geometry is not a Polygon or MultiPolygon: %s", e.GeoJSONType)
}

func geoJSONType(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}

// WKT returns the polygon of g as WKT. For a MultiPolygon only the first
// polygon is used; discarded is the number of polygons that were dropped.
func WKT(g orb.Geometry) (s string, discarded int, err error) {
	switch KindOf(g) {
	case KindPolygon:
		return wkt.MarshalString(g.(orb.Polygon)), 0, nil
	case KindMultiPolygon:
		mp := g.(orb.MultiPolygon)
		if len(mp) == 0 {
			return "", 0, &UnsupportedGeometryKindError{GeoJSONType: "empty MultiPolygon"}
		}
		return wkt.MarshalString(mp[0]), len(mp) - 1, nil
	case KindOther:
		return "", 0, &UnsupportedGeometryKindError{GeoJSONType: geoJSONType(g)}
	}
	panic("unreachable")
}

type Plot struct {
	Index    int
	Site     string
	PlotID   string
	Geometry orb.Geometry
}

// Name returns the plot identifier used in filenames and log output.
func (p Plot) Name() string {
	return p.Site + separator + p.PlotID
}

func (p Plot) Filename() string {
	return p.Name() + pipeline.COPCSuffix
}

// property returns the property as text, or def if it is missing or null.
func property(props geojson.Properties, key, def string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func FromFeatureCollection(fc *geojson.FeatureCollection) []Plot {
	plots := make([]Plot, 0, len(fc.Features))
	for idx, f := range fc.Features {
		plots = append(plots, Plot{
			Index:    idx,
			Site:     property(f.Properties, "site", defaultSite),
			PlotID:   property(f.Properties, "plot_id", fmt.Sprintf("plot_%d", idx)),
			Geometry: f.Geometry,
		})
	}
	return plots
}

func Parse(b []byte) ([]Plot, error) {
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, errors.Wrap(err, "parsing GeoJSON feature collection")
	}
	return FromFeatureCollection(fc), nil
}

// Load reads all plots from a GeoJSON FeatureCollection file.
func Load(filename string) ([]Plot, error) {
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading plots from %q", filename)
	}
	plots, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "reading plots from %q", filename)
	}
	return plots, nil
}
