package aoi

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// PixelMapper converts map coordinates to screen pixels. Viewport is one.
type PixelMapper interface {
	PixelFromCoordinate(orb.Point) orb.Point
}

// IsVertex hit-tests pixel against every vertex of the feature. The first
// vertex whose pixel position is within tolerance on both axes is returned.
// Feature coordinates are in the mapper's projection.
func IsVertex(pixel orb.Point, f *geojson.Feature, tolerance float64, m PixelMapper) (orb.Point, bool) {
	if f == nil || f.Geometry == nil || m == nil {
		return orb.Point{}, false
	}

	var (
		hit   orb.Point
		found bool
	)
	eachVertex(f.Geometry, func(c orb.Point) bool {
		p := m.PixelFromCoordinate(c)
		if math.Abs(p[0]-pixel[0]) <= tolerance && math.Abs(p[1]-pixel[1]) <= tolerance {
			hit, found = c, true
			return false
		}
		return true
	})
	return hit, found
}

// eachVertex calls fn for every vertex of g until fn returns false.
func eachVertex(g orb.Geometry, fn func(orb.Point) bool) bool {
	walk := func(pts []orb.Point) bool {
		for _, p := range pts {
			if !fn(p) {
				return false
			}
		}
		return true
	}

	switch g := g.(type) {
	case orb.Point:
		return fn(g)
	case orb.MultiPoint:
		return walk(g)
	case orb.LineString:
		return walk(g)
	case orb.Ring:
		return walk(g)
	case orb.MultiLineString:
		for _, ls := range g {
			if !walk(ls) {
				return false
			}
		}
	case orb.Polygon:
		for _, r := range g {
			if !walk(r) {
				return false
			}
		}
	case orb.MultiPolygon:
		for _, p := range g {
			for _, r := range p {
				if !walk(r) {
					return false
				}
			}
		}
	case orb.Collection:
		for _, c := range g {
			if !eachVertex(c, fn) {
				return false
			}
		}
	case orb.Bound:
		return walk(g.ToRing())
	}
	return true
}
