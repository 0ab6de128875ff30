package importer

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/paulmach/orb"
)

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <name>Survey</name>
    <Placemark>
      <name>Site A</name>
      <description>north field</description>
      <Polygon>
        <outerBoundaryIs><LinearRing><coordinates>
          0,0,0 1,0,0 1,1,0 0,1,0 0,0,0
        </coordinates></LinearRing></outerBoundaryIs>
      </Polygon>
    </Placemark>
    <Folder>
      <Placemark>
        <name>Well</name>
        <Point><coordinates>2.5,3.5</coordinates></Point>
      </Placemark>
      <Placemark>
        <MultiGeometry>
          <LineString><coordinates>0,0 1,1</coordinates></LineString>
          <Point><coordinates>4,4</coordinates></Point>
        </MultiGeometry>
      </Placemark>
    </Folder>
  </Document>
</kml>`

func TestParseKML(t *testing.T) {
	fc, err := Parse("survey.kml", []byte(sampleKML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(fc.Features) != 4 {
		t.Fatalf("features = %d, want 4", len(fc.Features))
	}

	site := fc.Features[0]
	if _, ok := site.Geometry.(orb.Polygon); !ok {
		t.Errorf("site geometry = %T, want orb.Polygon", site.Geometry)
	}
	if site.Properties["name"] != "Site A" || site.Properties["description"] != "north field" {
		t.Errorf("site properties = %v", site.Properties)
	}

	well := fc.Features[1]
	if well.Geometry != (orb.Point{2.5, 3.5}) {
		t.Errorf("well = %v", well.Geometry)
	}
}

func TestParseKMZ(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("doc.kml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(sampleKML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	fc, err := Parse("survey.KMZ", buf.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(fc.Features) != 4 {
		t.Errorf("features = %d, want 4", len(fc.Features))
	}
}

func kmz(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseKMZSizeLimit(t *testing.T) {
	// Padding compresses to almost nothing but inflates past the limit.
	padded := append([]byte(sampleKML), bytes.Repeat([]byte(" "), 4096)...)
	data := kmz(t, "doc.kml", padded)
	if len(data) >= 1024 {
		t.Fatalf("archive is %d bytes, want a small one", len(data))
	}

	if _, err := parseKMZ(data, 1024); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
	if _, err := parseKMZ(data, int64(len(padded))); err != nil {
		t.Errorf("within limit: %v", err)
	}

	// An entry whose header understates its size fails while reading.
	var deflated bytes.Buffer
	fw, err := flate.NewWriter(&deflated, flate.BestCompression)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(padded)
	fw.Close()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "doc.kml",
		Method:             zip.Deflate,
		CRC32:              crc32.ChecksumIEEE(padded),
		CompressedSize64:   uint64(deflated.Len()),
		UncompressedSize64: 100,
	})
	if err != nil {
		t.Fatal(err)
	}
	w.Write(deflated.Bytes())
	zw.Close()
	if _, err := parseKMZ(buf.Bytes(), 1024); err == nil {
		t.Error("understated entry was read")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		want     int
		wantErr  error
	}{
		{
			name:     "geojson",
			filename: "aoi.geojson",
			data:     `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}]}`,
			want:     1,
		},
		{
			name:     "json geometry",
			filename: "aoi.json",
			data:     `{"type":"Point","coordinates":[1,2]}`,
			want:     1,
		},
		{
			name:     "wkt polygon",
			filename: "aoi.wkt",
			data:     "POLYGON((0 0,1 0,1 1,0 1,0 0))",
			want:     1,
		},
		{
			name:     "wkt collection",
			filename: "aoi.txt",
			data:     "GEOMETRYCOLLECTION(POINT(1 2),LINESTRING(0 0,1 1))",
			want:     2,
		},
		{
			name:     "empty collection",
			filename: "aoi.geojson",
			data:     `{"type":"FeatureCollection","features":[]}`,
			wantErr:  ErrNoFeatures,
		},
		{
			name:     "empty wkt",
			filename: "aoi.wkt",
			data:     "   ",
			wantErr:  ErrNoFeatures,
		},
		{
			name:     "shapefile",
			filename: "aoi.shp",
			data:     "",
			wantErr:  ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := Parse(tt.filename, []byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(fc.Features) != tt.want {
				t.Errorf("features = %d, want %d", len(fc.Features), tt.want)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, tt := range []struct{ filename, data string }{
		{"a.geojson", `{"type":`},
		{"a.wkt", "POLYGON((0 0,1"},
		{"a.kml", "<kml><Placemark><Point><coordinates>x,y</coordinates></Point></Placemark></kml>"},
		{"a.kmz", "not a zip"},
	} {
		if _, err := Parse(tt.filename, []byte(tt.data)); err == nil {
			t.Errorf("%s: expected error", tt.filename)
		}
	}
}
