package aoi

import (
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// GeometryClass is the coarse classification of a FeatureCollection.
type GeometryClass string

const (
	ClassNone       GeometryClass = ""
	ClassPolygon    GeometryClass = "Polygon"
	ClassLine       GeometryClass = "Line"
	ClassPoint      GeometryClass = "Point"
	ClassCollection GeometryClass = "Collection"
)

// IsBox reports whether a feature is a drawn rectangle: a single ring of
// exactly five points whose coordinate set matches that of its own
// bounding box.
//
// The comparison is on sorted "x,y" strings, closing point included, so a
// rectangle whose ring does not start at its south-west corner is not a box.
func IsBox(f *geojson.Feature) bool {
	if f == nil {
		return false
	}
	poly, ok := f.Geometry.(orb.Polygon)
	if !ok || len(poly) == 0 {
		return false
	}
	ring := poly[0]
	if len(ring) != 5 {
		return false
	}
	bbox := ring.Bound().ToRing()
	return coordinateKey(ring) == coordinateKey(bbox)
}

func coordinateKey(pts []orb.Point) string {
	keys := make([]string, len(pts))
	for i, p := range pts {
		keys[i] = strconv.FormatFloat(p[0], 'g', -1, 64) + "," + strconv.FormatFloat(p[1], 'g', -1, 64)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// GetDominantGeometry classifies a collection by the geometry types of its
// features. Mixed classes, or any GeometryCollection, give ClassCollection.
func GetDominantGeometry(fc *geojson.FeatureCollection) GeometryClass {
	if fc == nil || len(fc.Features) == 0 {
		return ClassNone
	}

	seen := make(map[GeometryClass]bool)
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		seen[classify(f.Geometry)] = true
	}

	switch len(seen) {
	case 0:
		return ClassNone
	case 1:
		for c := range seen {
			return c
		}
	}
	return ClassCollection
}

func classify(g orb.Geometry) GeometryClass {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon, orb.Ring, orb.Bound:
		return ClassPolygon
	case orb.LineString, orb.MultiLineString:
		return ClassLine
	case orb.Point, orb.MultiPoint:
		return ClassPoint
	}
	return ClassCollection
}

// AllHaveArea is false for a missing or empty collection, or when any
// feature has zero geodesic area.
func AllHaveArea(fc *geojson.FeatureCollection) bool {
	if fc == nil || len(fc.Features) == 0 {
		return false
	}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			return false
		}
		if geo.Area(f.Geometry) == 0 {
			return false
		}
	}
	return true
}

// Area sums the geodesic area of all features in square meters.
func Area(fc *geojson.FeatureCollection) float64 {
	if fc == nil {
		return 0
	}
	var total float64
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		total += geo.Area(f.Geometry)
	}
	return total
}

// FeatureToPoint returns the point used to label or mark a feature: the
// planar centroid of its geometry.
func FeatureToPoint(f *geojson.Feature) (orb.Point, bool) {
	if f == nil || f.Geometry == nil {
		return orb.Point{}, false
	}
	if p, ok := f.Geometry.(orb.Point); ok {
		return p, true
	}
	c, _ := planar.CentroidArea(f.Geometry)
	return c, true
}
