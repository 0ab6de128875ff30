package aoi

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestCreateGeoJSONRoundTrip(t *testing.T) {
	lonlat := orb.Polygon{{
		{-77.03653, 38.89768},
		{-77.00906, 38.89768},
		{-77.00906, 38.88962},
		{-77.03653, 38.88962},
		{-77.03653, 38.89768},
	}}

	mercator := fromWGS84(lonlat, EPSG3857)
	fc := CreateGeoJSON(mercator, EPSG3857)
	if len(fc.Features) != 1 {
		t.Fatalf("features = %d, want 1", len(fc.Features))
	}

	got, ok := fc.Features[0].Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("geometry is %T, want orb.Polygon", fc.Features[0].Geometry)
	}
	for i, p := range got[0] {
		want := lonlat[0][i]
		if math.Abs(p[0]-want[0]) > 1e-5 || math.Abs(p[1]-want[1]) > 1e-5 {
			t.Errorf("vertex %d = %v, want %v", i, p, want)
		}
	}

	bbox := fc.Features[0].BBox
	if len(bbox) != 4 {
		t.Fatalf("bbox = %v, want 4 values", bbox)
	}
	if math.Abs(bbox[0]-(-77.03653)) > 1e-5 || math.Abs(bbox[3]-38.89768) > 1e-5 {
		t.Errorf("bbox = %v", bbox)
	}
}

func TestCreateGeoJSONUnwrapsWrappedGeometry(t *testing.T) {
	// A box drawn one world to the east.
	b := orb.Bound{Min: orb.Point{370, 10}, Max: orb.Point{380, 20}}
	fc := CreateGeoJSON(b, EPSG4326)

	got := fc.Features[0].Geometry.Bound()
	if got.Min[0] != 10 || got.Max[0] != 20 {
		t.Errorf("bound = %v, want x in [10, 20]", got)
	}
	if fc.Features[0].BBox[0] != 10 || fc.Features[0].BBox[2] != 20 {
		t.Errorf("bbox = %v", fc.Features[0].BBox)
	}
}

func TestCreateGeoJSONNil(t *testing.T) {
	fc := CreateGeoJSON(nil, EPSG3857)
	if fc == nil || len(fc.Features) != 0 {
		t.Errorf("got %v, want empty collection", fc)
	}
}

func TestTruncate(t *testing.T) {
	got := Truncate(orb.Point{1.123456789, -2.987654321}).(orb.Point)
	want := orb.Point{1.12346, -2.98765}
	if math.Abs(got[0]-want[0]) > 1e-9 || math.Abs(got[1]-want[1]) > 1e-9 {
		t.Errorf("Truncate = %v, want %v", got, want)
	}
}

func TestParseFeatureCollection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{
			name:  "collection",
			input: `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}]}`,
			want:  1,
		},
		{
			name:  "feature",
			input: `{"type":"Feature","geometry":{"type":"LineString","coordinates":[[1,2],[3,4]]},"properties":{}}`,
			want:  1,
		},
		{
			name:  "bare geometry",
			input: `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`,
			want:  1,
		},
		{name: "missing type", input: `{"coordinates":[1,2]}`, wantErr: true},
		{name: "not json", input: `{"type":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := ParseFeatureCollection([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(fc.Features) != tt.want {
				t.Errorf("features = %d, want %d", len(fc.Features), tt.want)
			}
		})
	}
}

func TestFeatureCollectionBound(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 1}))
	fc.Append(geojson.NewFeature(orb.LineString{{-2, 0}, {3, 5}}))

	got := FeatureCollectionBound(fc)
	want := orb.Bound{Min: orb.Point{-2, 0}, Max: orb.Point{3, 5}}
	if !got.Equal(want) {
		t.Errorf("bound = %v, want %v", got, want)
	}

	if b := FeatureCollectionBound(geojson.NewFeatureCollection()); !b.IsZero() {
		t.Errorf("empty bound = %v, want zero", b)
	}
}

func TestCloneIsDeep(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}})
	f.Properties["name"] = "a"
	fc.Append(f)

	c := Clone(fc)
	c.Features[0].Geometry.(orb.LineString)[0][0] = 9
	c.Features[0].Properties["name"] = "b"

	if fc.Features[0].Geometry.(orb.LineString)[0][0] != 0 {
		t.Error("clone shares geometry with original")
	}
	if fc.Features[0].Properties["name"] != "a" {
		t.Error("clone shares properties with original")
	}
}

func TestFeatureToBBox(t *testing.T) {
	tests := []struct {
		name    string
		feature *geojson.Feature
		proj    Projection
		want    []float64
	}{
		{"nil", nil, EPSG4326, nil},
		{
			"lon/lat",
			geojson.NewFeature(orb.Bound{Min: orb.Point{85.300001, 27.7}, Max: orb.Point{85.32, 27.72}}),
			EPSG4326,
			[]float64{85.3, 27.7, 85.32, 27.72},
		},
		{
			"wrapped one world east",
			geojson.NewFeature(orb.Bound{Min: orb.Point{370, 10}, Max: orb.Point{380, 20}}),
			EPSG4326,
			[]float64{10, 10, 20, 20},
		},
		{
			"mercator",
			geojson.NewFeature(fromWGS84(orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}}.ToPolygon(), EPSG3857)),
			EPSG3857,
			[]float64{-10, -10, 10, 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FeatureToBBox(tt.feature, tt.proj)
			if len(got) != len(tt.want) {
				t.Fatalf("bbox = %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-5 {
					t.Errorf("bbox = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}
