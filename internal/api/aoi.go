package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/eventkit-aoi/internal/aoi"
	"github.com/joeblew999/eventkit-aoi/internal/store"
)

// RegisterAOI registers the stateless geometry routes.
func (h *APIHandler) RegisterAOI(api huma.API) {
	tags := huma.OperationTags("aoi")
	huma.Post(api, "/api/v1/aoi/geojson", h.ToGeoJSON, tags)
	huma.Post(api, "/api/v1/aoi/buffer", h.Buffer, tags)
	huma.Post(api, "/api/v1/aoi/validate", h.Validate, tags)
	huma.Post(api, "/api/v1/aoi/box", h.IsBox, tags)
	huma.Post(api, "/api/v1/aoi/dominant", h.Dominant, tags)
	huma.Post(api, "/api/v1/aoi/area", h.Area, tags)
	huma.Post(api, "/api/v1/aoi/unwrap", h.Unwrap, tags)
	huma.Post(api, "/api/v1/aoi/unwrap-extent", h.UnwrapExtent, tags)
	huma.Post(api, "/api/v1/aoi/tile-coordinate", h.TileCoordinate, tags)
	huma.Post(api, "/api/v1/aoi/simplify", h.Simplify, tags)
}

// GeoJSONBody carries an AOI as a FeatureCollection, Feature or Geometry.
type GeoJSONBody struct {
	GeoJSON json.RawMessage `json:"geojson" required:"true" doc:"FeatureCollection, Feature or bare Geometry in EPSG:4326"`
}

type FeatureCollectionOutput struct {
	Body *geojson.FeatureCollection
}

func parseGeoJSON(raw json.RawMessage) (*geojson.FeatureCollection, error) {
	fc, err := aoi.ParseFeatureCollection(raw)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid geojson", err)
	}
	return fc, nil
}

func projection(code string) (aoi.Projection, error) {
	p, err := aoi.ProjectionByCode(code)
	if err != nil {
		return aoi.Projection{}, huma.Error400BadRequest(err.Error())
	}
	return p, nil
}

type ToGeoJSONInput struct {
	Body struct {
		Geometry   json.RawMessage `json:"geometry,omitempty" doc:"GeoJSON geometry in the map projection"`
		Extent     []float64       `json:"extent,omitempty" minItems:"4" maxItems:"4" doc:"Box [minX, minY, maxX, maxY] in the map projection"`
		Projection string          `json:"projection,omitempty" default:"EPSG:3857" doc:"Map projection" example:"EPSG:3857"`
	}
}

func (h *APIHandler) ToGeoJSON(ctx context.Context, input *ToGeoJSONInput) (*FeatureCollectionOutput, error) {
	proj, err := projection(input.Body.Projection)
	if err != nil {
		return nil, err
	}

	var g orb.Geometry
	switch {
	case len(input.Body.Extent) == 4:
		e := input.Body.Extent
		g = orb.Bound{Min: orb.Point{e[0], e[1]}, Max: orb.Point{e[2], e[3]}}
	case len(input.Body.Geometry) > 0:
		geom, err := geojson.UnmarshalGeometry(input.Body.Geometry)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid geometry", err)
		}
		g = geom.Geometry()
	default:
		return nil, huma.Error400BadRequest("geometry or extent is required")
	}
	return &FeatureCollectionOutput{Body: aoi.CreateGeoJSON(g, proj)}, nil
}

type BufferInput struct {
	Body struct {
		GeoJSONBody
		Distance       float64 `json:"distance" minimum:"-10000" maximum:"10000" doc:"Buffer distance in meters"`
		BufferPolygons bool    `json:"bufferPolygons,omitempty" doc:"Buffer polygonal features too"`
	}
}

func (h *APIHandler) Buffer(ctx context.Context, input *BufferInput) (*FeatureCollectionOutput, error) {
	fc, err := parseGeoJSON(input.Body.GeoJSON)
	if err != nil {
		return nil, err
	}
	out, err := aoi.BufferGeoJSON(fc, input.Body.Distance, input.Body.BufferPolygons)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("buffer failed", err)
	}
	return &FeatureCollectionOutput{Body: out}, nil
}

type ValidateBody struct {
	Valid  bool                `json:"valid" doc:"Whether every feature is OGC valid"`
	Errors []store.ErrorDetail `json:"errors" doc:"Why the AOI is invalid"`
}

func (h *APIHandler) Validate(ctx context.Context, input *struct{ Body GeoJSONBody }) (*struct{ Body ValidateBody }, error) {
	fc, err := parseGeoJSON(input.Body.GeoJSON)
	if err != nil {
		return nil, err
	}
	out := &struct{ Body ValidateBody }{Body: ValidateBody{Valid: true, Errors: []store.ErrorDetail{}}}
	if err := aoi.ValidateGeoJSON(fc); err != nil {
		out.Body.Valid = false
		out.Body.Errors = append(out.Body.Errors, invalidAoiDetail(err))
	}
	return out, nil
}

// invalidAoiDetail describes a validation failure for the user.
func invalidAoiDetail(err error) store.ErrorDetail {
	var fe *aoi.InvalidFeatureError
	if errors.As(err, &fe) {
		return store.ErrorDetail{Title: "Invalid AOI", Detail: fe.Error()}
	}
	return store.ErrorDetail{Title: "Invalid AOI", Detail: err.Error()}
}

type BoxBody struct {
	Box bool `json:"box" doc:"Whether the first feature is an axis-aligned rectangle"`
}

func (h *APIHandler) IsBox(ctx context.Context, input *struct{ Body GeoJSONBody }) (*struct{ Body BoxBody }, error) {
	fc, err := parseGeoJSON(input.Body.GeoJSON)
	if err != nil {
		return nil, err
	}
	box := len(fc.Features) > 0 && aoi.IsBox(fc.Features[0])
	return &struct{ Body BoxBody }{Body: BoxBody{Box: box}}, nil
}

type DominantBody struct {
	GeomType aoi.GeometryClass `json:"geomType" doc:"Polygon, Line, Point, Collection or empty"`
}

func (h *APIHandler) Dominant(ctx context.Context, input *struct{ Body GeoJSONBody }) (*struct{ Body DominantBody }, error) {
	fc, err := parseGeoJSON(input.Body.GeoJSON)
	if err != nil {
		return nil, err
	}
	return &struct{ Body DominantBody }{Body: DominantBody{GeomType: aoi.GetDominantGeometry(fc)}}, nil
}

type AreaBody struct {
	AreaSqM     float64 `json:"areaSqM" doc:"Geodesic area in square meters"`
	AreaSqKm    float64 `json:"areaSqKm" doc:"Geodesic area in square kilometers"`
	AllHaveArea bool    `json:"allHaveArea" doc:"Whether every feature has a non-zero area"`
}

func (h *APIHandler) Area(ctx context.Context, input *struct{ Body GeoJSONBody }) (*struct{ Body AreaBody }, error) {
	fc, err := parseGeoJSON(input.Body.GeoJSON)
	if err != nil {
		return nil, err
	}
	a := aoi.Area(fc)
	return &struct{ Body AreaBody }{Body: AreaBody{AreaSqM: a, AreaSqKm: a / 1e6, AllHaveArea: aoi.AllHaveArea(fc)}}, nil
}

type UnwrapInput struct {
	Body struct {
		Coordinates [][2]float64 `json:"coordinates" required:"true" doc:"Coordinates in the map projection"`
		Projection  string       `json:"projection,omitempty" default:"EPSG:3857" doc:"Map projection"`
	}
}

type UnwrapBody struct {
	Coordinates [][2]float64 `json:"coordinates" doc:"Coordinates moved into the projection extent"`
}

func (h *APIHandler) Unwrap(ctx context.Context, input *UnwrapInput) (*struct{ Body UnwrapBody }, error) {
	proj, err := projection(input.Body.Projection)
	if err != nil {
		return nil, err
	}
	pts := make([]orb.Point, len(input.Body.Coordinates))
	for i, c := range input.Body.Coordinates {
		pts[i] = orb.Point(c)
	}
	pts = aoi.UnwrapCoordinates(pts, proj)

	out := make([][2]float64, len(pts))
	for i, p := range pts {
		out[i] = [2]float64(p)
	}
	return &struct{ Body UnwrapBody }{Body: UnwrapBody{Coordinates: out}}, nil
}

type ExtentInput struct {
	Body struct {
		Extent     []float64 `json:"extent" required:"true" minItems:"4" maxItems:"4" doc:"[minX, minY, maxX, maxY]"`
		Projection string    `json:"projection,omitempty" default:"EPSG:3857" doc:"Map projection"`
	}
}

type ExtentBody struct {
	Extent []float64 `json:"extent" doc:"[minX, minY, maxX, maxY] inside the projection extent"`
}

func (h *APIHandler) UnwrapExtent(ctx context.Context, input *ExtentInput) (*struct{ Body ExtentBody }, error) {
	proj, err := projection(input.Body.Projection)
	if err != nil {
		return nil, err
	}
	e := input.Body.Extent
	b := aoi.UnwrapExtent(orb.Bound{Min: orb.Point{e[0], e[1]}, Max: orb.Point{e[2], e[3]}}, proj)
	return &struct{ Body ExtentBody }{Body: ExtentBody{Extent: []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}}}, nil
}

type TileCoordinateInput struct {
	Body struct {
		Coordinate [2]float64 `json:"coordinate" required:"true" doc:"Clicked map coordinate"`
		Pixel      [2]float64 `json:"pixel" required:"true" doc:"Clicked pixel, top-left origin"`
		Center     [2]float64 `json:"center" required:"true" doc:"View center"`
		Resolution float64    `json:"resolution" required:"true" exclusiveMinimum:"0" doc:"Map units per pixel"`
		Size       [2]float64 `json:"size" required:"true" doc:"Viewport width and height in pixels"`
		Projection string     `json:"projection,omitempty" default:"EPSG:3857" doc:"Map projection"`
		TileSize   int        `json:"tileSize,omitempty" default:"256" minimum:"1" doc:"Tile size in pixels"`
		MaxZoom    int        `json:"maxZoom,omitempty" default:"22" minimum:"0" maximum:"30" doc:"Deepest zoom level"`
	}
}

func (h *APIHandler) TileCoordinate(ctx context.Context, input *TileCoordinateInput) (*struct{ Body aoi.TileCoordinate }, error) {
	b := input.Body
	proj, err := projection(b.Projection)
	if err != nil {
		return nil, err
	}
	vp := aoi.Viewport{
		View: aoi.View{Center: orb.Point(b.Center), Resolution: b.Resolution, Projection: proj},
		Size: b.Size,
	}
	grid := aoi.NewTileGrid(proj, b.TileSize, b.MaxZoom)
	tc := aoi.GetTileCoordinateFromClick(aoi.ClickEvent{Coordinate: orb.Point(b.Coordinate), Pixel: orb.Point(b.Pixel)}, grid, vp)
	return &struct{ Body aoi.TileCoordinate }{Body: tc}, nil
}

type SimplifyInput struct {
	Body struct {
		GeoJSONBody
		Tolerance float64 `json:"tolerance" minimum:"0" doc:"Douglas-Peucker tolerance in degrees" example:"0.001"`
	}
}

func (h *APIHandler) Simplify(ctx context.Context, input *SimplifyInput) (*FeatureCollectionOutput, error) {
	fc, err := parseGeoJSON(input.Body.GeoJSON)
	if err != nil {
		return nil, err
	}
	return &FeatureCollectionOutput{Body: aoi.SimplifyGeoJSON(fc, input.Body.Tolerance)}, nil
}
