package aoi

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestIsBox(t *testing.T) {
	tests := []struct {
		name string
		geom orb.Geometry
		want bool
	}{
		{"square", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}, true},
		{"six points", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0.5, 1.5}, {0, 1}, {0, 0}}}, false},
		{"rectangle", orb.Polygon{{{-10, 5}, {20, 5}, {20, 8}, {-10, 8}, {-10, 5}}}, true},
		{"quadrilateral", orb.Polygon{{{0, 0}, {2, 0}, {1, 1}, {0, 1}, {0, 0}}}, false},
		{"point", orb.Point{0, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBox(geojson.NewFeature(tt.geom)); got != tt.want {
				t.Errorf("IsBox = %v, want %v", got, tt.want)
			}
		})
	}

	if IsBox(nil) {
		t.Error("IsBox(nil) = true")
	}
}

func TestGetDominantGeometry(t *testing.T) {
	collection := func(gs ...orb.Geometry) *geojson.FeatureCollection {
		fc := geojson.NewFeatureCollection()
		for _, g := range gs {
			fc.Append(geojson.NewFeature(g))
		}
		return fc
	}

	tests := []struct {
		name string
		fc   *geojson.FeatureCollection
		want GeometryClass
	}{
		{"nil", nil, ClassNone},
		{"empty", collection(), ClassNone},
		{"polygons", collection(unitSquare(), orb.MultiPolygon{unitSquare()}), ClassPolygon},
		{"lines", collection(orb.LineString{{0, 0}, {1, 1}}, orb.MultiLineString{{{0, 0}, {1, 1}}}), ClassLine},
		{"points", collection(orb.Point{0, 0}, orb.MultiPoint{{1, 1}}), ClassPoint},
		{"mixed", collection(orb.Point{0, 0}, unitSquare()), ClassCollection},
		{"geometry collection", collection(orb.Collection{orb.Point{0, 0}}), ClassCollection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetDominantGeometry(tt.fc); got != tt.want {
				t.Errorf("GetDominantGeometry = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllHaveArea(t *testing.T) {
	withArea := geojson.NewFeatureCollection()
	withArea.Append(geojson.NewFeature(unitSquare()))

	mixed := geojson.NewFeatureCollection()
	mixed.Append(geojson.NewFeature(unitSquare()))
	mixed.Append(geojson.NewFeature(orb.Point{0, 0}))

	tests := []struct {
		name string
		fc   *geojson.FeatureCollection
		want bool
	}{
		{"nil", nil, false},
		{"empty", geojson.NewFeatureCollection(), false},
		{"polygon", withArea, true},
		{"polygon and point", mixed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllHaveArea(tt.fc); got != tt.want {
				t.Errorf("AllHaveArea = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFeatureToPoint(t *testing.T) {
	p, ok := FeatureToPoint(geojson.NewFeature(unitSquare()))
	if !ok {
		t.Fatal("expected a point")
	}
	if math.Abs(p[0]-0.5) > 1e-9 || math.Abs(p[1]-0.5) > 1e-9 {
		t.Errorf("centroid = %v, want [0.5 0.5]", p)
	}

	if _, ok := FeatureToPoint(nil); ok {
		t.Error("nil feature returned a point")
	}
}

func TestSimplifyGeoJSON(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{0, 0}, {1, 0.00001}, {2, 0}}))

	out := SimplifyGeoJSON(fc, 0.001)
	ls := out.Features[0].Geometry.(orb.LineString)
	if len(ls) != 2 {
		t.Errorf("points = %d, want 2", len(ls))
	}
	if len(fc.Features[0].Geometry.(orb.LineString)) != 3 {
		t.Error("input was modified")
	}
}
