package aoi

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/peterstace/simplefeatures/geom"
	"github.com/peterstace/simplefeatures/geos"
)

// MaxBuffer is the largest buffer distance, in meters, an AOI may carry.
const MaxBuffer = 10000

// minFeatureBuffer is the smallest distance used when buffering points and
// lines, so they always come out with an area.
const minFeatureBuffer = 1

// BufferGeoJSON buffers each feature by distance meters. Polygonal features
// are only buffered when bufferPolygons is set. Features whose buffered area
// collapses to zero are dropped; if none survive, fc is returned unchanged.
func BufferGeoJSON(fc *geojson.FeatureCollection, distance float64, bufferPolygons bool) (*geojson.FeatureCollection, error) {
	if fc == nil {
		return nil, nil
	}

	out := geojson.NewFeatureCollection()
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}

		polygonal := isPolygonal(f.Geometry)
		if polygonal && !bufferPolygons {
			if geo.Area(f.Geometry) > 0 {
				out.Append(f)
			}
			continue
		}

		d := distance
		if !polygonal && d >= 0 && d < minFeatureBuffer {
			d = minFeatureBuffer
		}

		buffered, err := bufferGeometry(f.Geometry, d)
		if err != nil {
			return nil, fmt.Errorf("buffering feature %d: %w", i, err)
		}
		if buffered == nil || geo.Area(buffered) == 0 {
			continue
		}

		nf := geojson.NewFeature(buffered)
		nf.ID = f.ID
		for k, v := range f.Properties {
			nf.Properties[k] = v
		}
		out.Append(nf)
	}

	if len(out.Features) == 0 {
		return fc, nil
	}
	return out, nil
}

// bufferGeometry buffers a lon/lat geometry by meters in web mercator and
// returns the result in lon/lat. A nil geometry means the buffer was empty.
func bufferGeometry(g orb.Geometry, meters float64) (orb.Geometry, error) {
	projected, err := toSimpleFeatures(fromWGS84(g, EPSG3857))
	if err != nil {
		return nil, err
	}

	buffered, err := geos.Buffer(projected, meters)
	if err != nil {
		return nil, err
	}
	if buffered.IsEmpty() {
		return nil, nil
	}

	result, err := fromSimpleFeatures(buffered)
	if err != nil {
		return nil, err
	}
	return Truncate(toWGS84(result, EPSG3857)), nil
}

func isPolygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon, orb.Ring, orb.Bound:
		return true
	}
	return false
}

// toSimpleFeatures converts through WKB. Validation is skipped so that
// invalid input can still be buffered, which is how GEOS repairs bowties.
func toSimpleFeatures(g orb.Geometry) (geom.Geometry, error) {
	switch v := g.(type) {
	case orb.Bound:
		g = v.ToPolygon()
	case orb.Ring:
		g = orb.Polygon{v}
	}
	data, err := wkb.Marshal(g)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("encoding wkb: %w", err)
	}
	return geom.UnmarshalWKB(data, geom.NoValidate{})
}

func fromSimpleFeatures(g geom.Geometry) (orb.Geometry, error) {
	out, err := wkb.Unmarshal(g.AsBinary())
	if err != nil {
		return nil, fmt.Errorf("decoding wkb: %w", err)
	}
	return out, nil
}
