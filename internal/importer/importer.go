// Package importer turns uploaded AOI files into GeoJSON feature collections.
package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/eventkit-aoi/internal/aoi"
)

var (
	// ErrUnsupportedFormat is returned for file extensions with no parser.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoFeatures is returned when a file parses but holds no geometry.
	ErrNoFeatures = errors.New("file contains no features")
	// ErrTooLarge is returned when an archive entry inflates past MaxKMLSize.
	ErrTooLarge = errors.New("file too large")
)

// MaxKMLSize bounds the inflated size of the KML document in a KMZ.
const MaxKMLSize = 32 << 20

// Format names an import file format.
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatWKT     Format = "wkt"
	FormatKML     Format = "kml"
	FormatKMZ     Format = "kmz"
)

// Extensions maps lower-case file extensions to formats.
var Extensions = map[string]Format{
	".geojson": FormatGeoJSON,
	".json":    FormatGeoJSON,
	".wkt":     FormatWKT,
	".txt":     FormatWKT,
	".kml":     FormatKML,
	".kmz":     FormatKMZ,
}

// FormatOf returns the format for a filename.
func FormatOf(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := Extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// Parse reads data according to the filename extension.
func Parse(filename string, data []byte) (*geojson.FeatureCollection, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}

	var fc *geojson.FeatureCollection
	switch format {
	case FormatGeoJSON:
		fc, err = aoi.ParseFeatureCollection(data)
	case FormatWKT:
		fc, err = parseWKT(data)
	case FormatKML:
		fc, err = parseKML(data)
	case FormatKMZ:
		fc, err = parseKMZ(data, MaxKMLSize)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(filename), err)
	}

	fc = dropEmpty(fc)
	if len(fc.Features) == 0 {
		return nil, ErrNoFeatures
	}
	return fc, nil
}

func parseWKT(data []byte) (*geojson.FeatureCollection, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return geojson.NewFeatureCollection(), nil
	}
	g, err := wkt.Unmarshal(text)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	if c, ok := g.(orb.Collection); ok {
		for _, part := range c {
			fc.Append(geojson.NewFeature(part))
		}
		return fc, nil
	}
	return fc.Append(geojson.NewFeature(g)), nil
}

func dropEmpty(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if fc == nil {
		return out
	}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		out.Append(f)
	}
	return out
}
