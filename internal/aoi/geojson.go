package aoi

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Precision is the number of decimal places kept in GeoJSON coordinates.
const Precision = 5

var roundFactor = int(math.Pow10(Precision))

// ParseFeatureCollection decodes a FeatureCollection, a single Feature or a
// bare Geometry, always returning a FeatureCollection. Parse errors are
// returned as-is.
func ParseFeatureCollection(data []byte) (*geojson.FeatureCollection, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case "FeatureCollection":
		return geojson.UnmarshalFeatureCollection(data)
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		return geojson.NewFeatureCollection().Append(f), nil
	case "":
		return nil, fmt.Errorf("geojson: missing type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		return geojson.NewFeatureCollection().Append(geojson.NewFeature(g.Geometry())), nil
	}
}

// Truncate returns a copy of g with coordinates rounded to Precision places.
func Truncate(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return orb.Round(orb.Clone(g), roundFactor)
}

func roundBound(b orb.Bound) orb.Bound {
	r := func(v float64) float64 {
		return math.Round(v*float64(roundFactor)) / float64(roundFactor)
	}
	return orb.Bound{
		Min: orb.Point{r(b.Min[0]), r(b.Min[1])},
		Max: orb.Point{r(b.Max[0]), r(b.Max[1])},
	}
}

// CreateGeoJSONGeometry converts a map geometry into a truncated EPSG:4326
// geometry lying in the canonical longitude range.
func CreateGeoJSONGeometry(g orb.Geometry, proj Projection) orb.Geometry {
	if g == nil {
		return nil
	}
	if b, ok := g.(orb.Bound); ok {
		g = b.ToPolygon()
	}
	if r, ok := g.(orb.Ring); ok {
		g = orb.Polygon{r}
	}
	lonlat := UnwrapGeometry(toWGS84(g, proj), EPSG4326)
	return Truncate(lonlat)
}

// CreateGeoJSON wraps a map geometry into a one-feature FeatureCollection
// with a rounded, antimeridian-corrected bbox.
func CreateGeoJSON(g orb.Geometry, proj Projection) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if g == nil {
		return fc
	}

	extent := UnwrapExtent(toWGS84(g.Bound(), proj).Bound(), EPSG4326)

	f := geojson.NewFeature(CreateGeoJSONGeometry(g, proj))
	f.BBox = geojson.NewBBox(roundBound(extent))
	return fc.Append(f)
}

// FeatureCollectionBound is the union of all feature bounds. The zero bound
// is returned for an empty collection.
func FeatureCollectionBound(fc *geojson.FeatureCollection) orb.Bound {
	var (
		b     orb.Bound
		found bool
	)
	if fc == nil {
		return b
	}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if !found {
			b = f.Geometry.Bound()
			found = true
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b
}

// FeatureToBBox returns the extent of a map feature as a
// [minX, minY, maxX, maxY] slice in EPSG:4326, unwrapped and rounded.
func FeatureToBBox(f *geojson.Feature, proj Projection) []float64 {
	if f == nil || f.Geometry == nil {
		return nil
	}
	b := UnwrapExtent(toWGS84(f.Geometry.Bound(), proj).Bound(), EPSG4326)
	return geojson.NewBBox(roundBound(b))
}

// Clone deep-copies a FeatureCollection, geometries and top-level properties.
func Clone(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	if fc == nil {
		return nil
	}
	out := geojson.NewFeatureCollection()
	out.BBox = append(geojson.BBox(nil), fc.BBox...)
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		c := geojson.NewFeature(orb.Clone(f.Geometry))
		c.ID = f.ID
		c.BBox = append(geojson.BBox(nil), f.BBox...)
		for k, v := range f.Properties {
			c.Properties[k] = v
		}
		out.Append(c)
	}
	return out
}
