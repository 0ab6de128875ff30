// Package store keeps the per-session draft of an export: the selected AOI,
// the export configuration, the job submission status and the catalog lists
// fetched for the session. State only changes through Reduce.
package store

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/eventkit-aoi/internal/aoi"
	"github.com/joeblew999/eventkit-aoi/internal/service"
)

// SelectionType records how the AOI was chosen.
type SelectionType string

const (
	SelectionNone    SelectionType = ""
	SelectionBox     SelectionType = "box"
	SelectionFree    SelectionType = "free"
	SelectionMapView SelectionType = "mapView"
	SelectionSearch  SelectionType = "search"
	SelectionImport  SelectionType = "import"
)

// Valid reports whether s is one of the known selection types.
func (s SelectionType) Valid() bool {
	switch s {
	case SelectionNone, SelectionBox, SelectionFree, SelectionMapView, SelectionSearch, SelectionImport:
		return true
	}
	return false
}

// AoiInfo is the selected area, its unbuffered original and the buffer
// applied to it. A nil GeoJSON marshals as an empty object.
type AoiInfo struct {
	GeoJSON         *geojson.FeatureCollection `json:"geojson" doc:"Buffered AOI, or an empty object"`
	OriginalGeoJSON *geojson.FeatureCollection `json:"originalGeojson" doc:"AOI before buffering, or an empty object"`
	GeomType        aoi.GeometryClass          `json:"geomType" doc:"Dominant geometry"`
	Title           string                     `json:"title" doc:"Human label" example:"Kathmandu"`
	Description     string                     `json:"description" doc:"Where the label came from" example:"Box"`
	SelectionType   SelectionType              `json:"selectionType" doc:"How the AOI was chosen"`
	Buffer          float64                    `json:"buffer" minimum:"0" maximum:"10000" doc:"Buffer distance in meters"`
}

func (a AoiInfo) MarshalJSON() ([]byte, error) {
	type plain AoiInfo
	out := struct {
		plain
		GeoJSON         any `json:"geojson"`
		OriginalGeoJSON any `json:"originalGeojson"`
	}{plain: plain(a), GeoJSON: emptyObject(a.GeoJSON), OriginalGeoJSON: emptyObject(a.OriginalGeoJSON)}
	return json.Marshal(out)
}

func emptyObject(fc *geojson.FeatureCollection) any {
	if fc == nil {
		return struct{}{}
	}
	return fc
}

// HasAoi reports whether an area has been selected.
func (a AoiInfo) HasAoi() bool {
	return a.GeoJSON != nil && len(a.GeoJSON.Features) > 0
}

// ExportInfo is the job being configured.
type ExportInfo struct {
	ExportName          string                      `json:"exportName" doc:"Export name"`
	DatapackDescription string                      `json:"datapackDescription" doc:"Datapack description"`
	ProjectName         string                      `json:"projectName" doc:"Project name"`
	Providers           []string                    `json:"providers" doc:"Selected provider slugs"`
	Formats             []string                    `json:"formats" doc:"Selected format slugs"`
	ExportOptions       map[string]map[string]any   `json:"exportOptions" doc:"Per-provider options"`
	Projections         []int                       `json:"projections" doc:"Selected EPSG codes"`
	ProviderEstimates   map[string]service.Estimate `json:"providerEstimates" doc:"Size and time estimates per provider"`
}

// SubmitJob tracks the job submission request.
type SubmitJob struct {
	Fetching bool          `json:"fetching"`
	Fetched  bool          `json:"fetched"`
	Error    []ErrorDetail `json:"error" nullable:"true"`
	JobUID   string        `json:"jobuid"`
}

// Fetch tracks one catalog list request and its result.
type Fetch[T any] struct {
	Fetching bool          `json:"fetching"`
	Fetched  bool          `json:"fetched"`
	Error    []ErrorDetail `json:"error" nullable:"true"`
	Items    []T           `json:"items"`
}

// Session carries the login redirect after an unauthorized response.
type Session struct {
	Redirect string `json:"redirect,omitempty" doc:"Where the client should go to log in"`
}

// State is everything the store holds for one session.
type State struct {
	AoiInfo     AoiInfo                   `json:"aoiInfo"`
	ExportInfo  ExportInfo                `json:"exportInfo"`
	SubmitJob   SubmitJob                 `json:"submitJob"`
	Providers   Fetch[service.Provider]   `json:"providers"`
	Formats     Fetch[service.Format]     `json:"formats"`
	Projections Fetch[service.Projection] `json:"projections"`
	Topics      Fetch[service.Topic]      `json:"topics"`
	Session     Session                   `json:"session"`
}

// Initial returns the state of a new or reset session.
func Initial() State {
	return State{
		AoiInfo:    AoiInfo{},
		ExportInfo: emptyExportInfo(),
	}
}

func emptyExportInfo() ExportInfo {
	return ExportInfo{
		Providers:         []string{},
		Formats:           []string{},
		ExportOptions:     map[string]map[string]any{},
		Projections:       []int{},
		ProviderEstimates: map[string]service.Estimate{},
	}
}

// NewAoiInfo builds the AoiInfo for a freshly selected area: unbuffered,
// with the original kept for later buffer changes.
func NewAoiInfo(fc *geojson.FeatureCollection, selection SelectionType, title, description string) AoiInfo {
	return AoiInfo{
		GeoJSON:         fc,
		OriginalGeoJSON: aoi.Clone(fc),
		GeomType:        aoi.GetDominantGeometry(fc),
		Title:           title,
		Description:     description,
		SelectionType:   selection,
	}
}
