package aoi

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/peterstace/simplefeatures/geom"
)

// ErrMissingGeometry marks a feature without a geometry.
var ErrMissingGeometry = errors.New("feature has no geometry")

// InvalidFeatureError reports which feature failed validation and why.
type InvalidFeatureError struct {
	Index int
	Err   error
}

func (e *InvalidFeatureError) Error() string {
	return fmt.Sprintf("feature %d is not valid: %v", e.Index, e.Err)
}

func (e *InvalidFeatureError) Unwrap() error { return e.Err }

// IsGeoJSONValid reports whether every feature geometry is OGC-valid. It
// stops at the first invalid feature.
func IsGeoJSONValid(fc *geojson.FeatureCollection) bool {
	return ValidateGeoJSON(fc) == nil
}

// ValidateGeoJSON returns an *InvalidFeatureError for the first feature whose
// geometry is not valid (unclosed ring, self-intersection, ...).
func ValidateGeoJSON(fc *geojson.FeatureCollection) error {
	if fc == nil {
		return nil
	}
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			return &InvalidFeatureError{Index: i, Err: ErrMissingGeometry}
		}
		if err := validateGeometry(f.Geometry); err != nil {
			return &InvalidFeatureError{Index: i, Err: err}
		}
	}
	return nil
}

func validateGeometry(g orb.Geometry) error {
	switch v := g.(type) {
	case orb.Bound:
		g = v.ToPolygon()
	case orb.Ring:
		g = orb.Polygon{v}
	}
	data, err := wkb.Marshal(g)
	if err != nil {
		return err
	}
	// Without NoValidate the constructor runs the OGC checks.
	_, err = geom.UnmarshalWKB(data)
	return err
}
