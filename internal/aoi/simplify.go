package aoi

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

// SimplifyGeoJSON runs Douglas-Peucker over every feature with the given
// tolerance in degrees. Features that degenerate are kept unsimplified so a
// drawn AOI never disappears.
func SimplifyGeoJSON(fc *geojson.FeatureCollection, tolerance float64) *geojson.FeatureCollection {
	if fc == nil {
		return nil
	}
	out := Clone(fc)
	if tolerance <= 0 {
		return out
	}

	s := simplify.DouglasPeucker(tolerance)
	for _, f := range out.Features {
		if f.Geometry == nil {
			continue
		}
		original := f.Geometry
		simplified := s.Simplify(orb.Clone(original))
		if degenerate(simplified) {
			continue
		}
		f.Geometry = Truncate(simplified)
	}
	return out
}

func degenerate(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return true
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) < 4
	case orb.MultiPolygon:
		return len(g) == 0
	case orb.LineString:
		return len(g) < 2
	case orb.MultiLineString:
		return len(g) == 0
	}
	return false
}
