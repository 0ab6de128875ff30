package importer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type kmlRoot struct {
	XMLName    xml.Name       `xml:"kml"`
	Document   kmlFolder      `xml:"Document"`
	Folder     *kmlFolder     `xml:"Folder"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

// kmlFolder covers both Document and Folder, which nest the same way.
type kmlFolder struct {
	Name       string         `xml:"name"`
	Folders    []kmlFolder    `xml:"Folder"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name        string        `xml:"name"`
	Description string        `xml:"description"`
	Point       *kmlCoords    `xml:"Point"`
	LineString  *kmlCoords    `xml:"LineString"`
	Polygon     *kmlPolygon   `xml:"Polygon"`
	MultiGeom   *kmlMultiGeom `xml:"MultiGeometry"`
}

type kmlCoords struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer kmlBoundary   `xml:"outerBoundaryIs"`
	Inner []kmlBoundary `xml:"innerBoundaryIs"`
}

type kmlBoundary struct {
	LinearRing kmlCoords `xml:"LinearRing"`
}

type kmlMultiGeom struct {
	Points      []kmlCoords    `xml:"Point"`
	LineStrings []kmlCoords    `xml:"LineString"`
	Polygons    []kmlPolygon   `xml:"Polygon"`
	Multi       []kmlMultiGeom `xml:"MultiGeometry"`
}

func parseKML(data []byte) (*geojson.FeatureCollection, error) {
	var root kmlRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid kml: %w", err)
	}

	placemarks := append([]kmlPlacemark(nil), root.Placemarks...)
	placemarks = append(placemarks, collectPlacemarks(root.Document)...)
	if root.Folder != nil {
		placemarks = append(placemarks, collectPlacemarks(*root.Folder)...)
	}

	fc := geojson.NewFeatureCollection()
	for _, pm := range placemarks {
		geoms, err := placemarkGeometries(pm)
		if err != nil {
			return nil, fmt.Errorf("placemark %q: %w", pm.Name, err)
		}
		for _, g := range geoms {
			f := geojson.NewFeature(g)
			if pm.Name != "" {
				f.Properties["name"] = strings.TrimSpace(pm.Name)
			}
			if pm.Description != "" {
				f.Properties["description"] = strings.TrimSpace(pm.Description)
			}
			fc.Append(f)
		}
	}
	return fc, nil
}

// parseKMZ reads doc.kml, or the first .kml entry, from a zipped archive.
// Entries inflating past limit bytes are rejected.
func parseKMZ(data []byte, limit int64) (*geojson.FeatureCollection, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid kmz: %w", err)
	}

	var doc *zip.File
	for _, f := range r.File {
		name := strings.ToLower(f.Name)
		if name == "doc.kml" {
			doc = f
			break
		}
		if strings.HasSuffix(name, ".kml") && doc == nil {
			doc = f
		}
	}
	if doc == nil {
		return nil, errors.New("no kml file in kmz archive")
	}

	if doc.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%s inflates to %d bytes: %w", doc.Name, doc.UncompressedSize64, ErrTooLarge)
	}
	rc, err := doc.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// The header size can lie, so the read is bounded too.
	kml, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(kml)) > limit {
		return nil, fmt.Errorf("%s inflates past %d bytes: %w", doc.Name, limit, ErrTooLarge)
	}
	return parseKML(kml)
}

func collectPlacemarks(folder kmlFolder) []kmlPlacemark {
	out := append([]kmlPlacemark(nil), folder.Placemarks...)
	for _, sub := range folder.Folders {
		out = append(out, collectPlacemarks(sub)...)
	}
	return out
}

func placemarkGeometries(pm kmlPlacemark) ([]orb.Geometry, error) {
	var out []orb.Geometry

	if pm.Point != nil {
		pts, err := parseCoordinates(pm.Point.Coordinates)
		if err != nil {
			return nil, err
		}
		if len(pts) > 0 {
			out = append(out, pts[0])
		}
	}
	if pm.LineString != nil {
		pts, err := parseCoordinates(pm.LineString.Coordinates)
		if err != nil {
			return nil, err
		}
		if len(pts) > 1 {
			out = append(out, orb.LineString(pts))
		}
	}
	if pm.Polygon != nil {
		p, err := pm.Polygon.geometry()
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, p)
		}
	}
	if pm.MultiGeom != nil {
		geoms, err := pm.MultiGeom.geometries()
		if err != nil {
			return nil, err
		}
		out = append(out, geoms...)
	}
	return out, nil
}

func (m kmlMultiGeom) geometries() ([]orb.Geometry, error) {
	var out []orb.Geometry
	for _, c := range m.Points {
		pts, err := parseCoordinates(c.Coordinates)
		if err != nil {
			return nil, err
		}
		if len(pts) > 0 {
			out = append(out, pts[0])
		}
	}
	for _, c := range m.LineStrings {
		pts, err := parseCoordinates(c.Coordinates)
		if err != nil {
			return nil, err
		}
		if len(pts) > 1 {
			out = append(out, orb.LineString(pts))
		}
	}
	for _, poly := range m.Polygons {
		p, err := poly.geometry()
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, p)
		}
	}
	for _, nested := range m.Multi {
		geoms, err := nested.geometries()
		if err != nil {
			return nil, err
		}
		out = append(out, geoms...)
	}
	return out, nil
}

func (p kmlPolygon) geometry() (orb.Geometry, error) {
	outer, err := parseCoordinates(p.Outer.LinearRing.Coordinates)
	if err != nil {
		return nil, err
	}
	if len(outer) < 3 {
		return nil, nil
	}

	poly := orb.Polygon{closeRing(outer)}
	for _, b := range p.Inner {
		inner, err := parseCoordinates(b.LinearRing.Coordinates)
		if err != nil {
			return nil, err
		}
		if len(inner) >= 3 {
			poly = append(poly, closeRing(inner))
		}
	}
	return poly, nil
}

func closeRing(pts []orb.Point) orb.Ring {
	r := orb.Ring(pts)
	if !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

// parseCoordinates reads whitespace separated "lon,lat[,alt]" tuples.
func parseCoordinates(s string) ([]orb.Point, error) {
	fields := strings.Fields(s)
	out := make([]orb.Point, 0, len(fields))
	for _, tuple := range fields {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid coordinate %q", tuple)
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q: %w", parts[0], err)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q: %w", parts[1], err)
		}
		out = append(out, orb.Point{lon, lat})
	}
	return out, nil
}
