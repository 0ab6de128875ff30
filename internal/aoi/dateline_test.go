package aoi

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestUnwrapCoordinates(t *testing.T) {
	in := []orb.Point{{-380, 20}, {-160, 20}, {-160, -20}, {-380, -20}}
	want := []orb.Point{{-20, 20}, {-160, 20}, {-160, -20}, {-20, -20}}

	got := UnwrapCoordinates(in, EPSG4326)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("coordinate %d = %v, want %v", i, got[i], want[i])
		}
	}
	if in[0][0] != -380 {
		t.Error("input was modified")
	}
}

func TestUnwrapCoordinatesManyWorlds(t *testing.T) {
	tests := []struct {
		x, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, -180},
		{190, -170},
		{900, 180},
		{-1090, -10},
	}
	for _, tt := range tests {
		got := UnwrapCoordinates([]orb.Point{{tt.x, 0}}, EPSG4326)[0][0]
		if got != tt.want {
			t.Errorf("unwrap(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestUnwrapCoordinatesMercator(t *testing.T) {
	width := EPSG3857.WorldWidth()
	got := UnwrapCoordinates([]orb.Point{{1000 + 2*width, 5}}, EPSG3857)[0]
	if got[0] < 999 || got[0] > 1001 || got[1] != 5 {
		t.Errorf("got %v, want about [1000 5]", got)
	}
}

func TestUnwrapExtent(t *testing.T) {
	got := UnwrapExtent(orb.Bound{Min: orb.Point{350, 0}, Max: orb.Point{370, 10}}, EPSG4326)
	want := orb.Bound{Min: orb.Point{-10, 0}, Max: orb.Point{10, 10}}
	if !got.Equal(want) {
		t.Errorf("UnwrapExtent = %v, want %v", got, want)
	}

	inside := orb.Bound{Min: orb.Point{170, 0}, Max: orb.Point{190, 10}}
	if got := UnwrapExtent(inside, EPSG4326); !got.Equal(inside) {
		t.Errorf("extent centered in range moved to %v", got)
	}
}

func TestUnwrapGeometryKeepsRingsTogether(t *testing.T) {
	// Straddles 540: per-vertex unwrapping would tear it apart.
	poly := orb.Polygon{{{530, 0}, {550, 0}, {550, 10}, {530, 10}, {530, 0}}}
	got := UnwrapGeometry(poly, EPSG4326).(orb.Polygon)

	want := orb.Polygon{{{170, 0}, {190, 0}, {190, 10}, {170, 10}, {170, 0}}}
	if !orb.Equal(got, want) {
		t.Errorf("UnwrapGeometry = %v, want %v", got, want)
	}
	if poly[0][0][0] != 530 {
		t.Error("input was modified")
	}
}

func TestViewExtent(t *testing.T) {
	v := View{Center: orb.Point{-400, 10}, Resolution: 1, Projection: EPSG4326}
	if !IsViewOutsideValidExtent(v) {
		t.Fatal("expected view outside valid extent")
	}

	center := GoToValidExtent(&v)
	if center != (orb.Point{-40, 10}) || v.Center != center {
		t.Errorf("center = %v, view = %v, want [-40 10]", center, v.Center)
	}
	if IsViewOutsideValidExtent(v) {
		t.Error("view still outside after GoToValidExtent")
	}
}

func TestProjectionByCode(t *testing.T) {
	for _, code := range []string{"EPSG:3857", "3857", "EPSG:900913"} {
		p, err := ProjectionByCode(code)
		if err != nil || p.Code != EPSG3857.Code {
			t.Errorf("ProjectionByCode(%q) = %v, %v", code, p.Code, err)
		}
	}
	if _, err := ProjectionByCode("EPSG:27700"); err == nil {
		t.Error("expected ErrUnknownProjection")
	}
}
