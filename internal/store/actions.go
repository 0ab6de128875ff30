package store

import (
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/eventkit-aoi/internal/service"
)

// CatalogKind names one of the catalog lists a session can fetch.
type CatalogKind string

const (
	KindProviders   CatalogKind = "providers"
	KindFormats     CatalogKind = "formats"
	KindProjections CatalogKind = "projections"
	KindTopics      CatalogKind = "topics"
)

// CatalogKinds lists every catalog kind.
var CatalogKinds = []CatalogKind{KindProviders, KindFormats, KindProjections, KindTopics}

// Action is a state transition. The set of actions is closed.
type Action interface {
	Type() string
	action()
}

// UpdateAoiInfo replaces the selected area.
type UpdateAoiInfo struct{ Info AoiInfo }

// ClearAoiInfo drops the selected area.
type ClearAoiInfo struct{}

// SetBuffer records a new buffer distance and the AOI buffered by it.
// Original is the OriginalGeoJSON the buffer was computed from.
type SetBuffer struct {
	Buffer   float64
	Original *geojson.FeatureCollection
	GeoJSON  *geojson.FeatureCollection
}

// ExportInfoPatch updates the fields of ExportInfo that are set. Nil slices
// and maps leave the current value alone.
type ExportInfoPatch struct {
	ExportName          *string                     `json:"exportName,omitempty" doc:"Export name"`
	DatapackDescription *string                     `json:"datapackDescription,omitempty" doc:"Datapack description"`
	ProjectName         *string                     `json:"projectName,omitempty" doc:"Project name"`
	Providers           []string                    `json:"providers,omitempty" doc:"Selected provider slugs"`
	Formats             []string                    `json:"formats,omitempty" doc:"Selected format slugs"`
	ExportOptions       map[string]map[string]any   `json:"exportOptions,omitempty" doc:"Per-provider options"`
	Projections         []int                       `json:"projections,omitempty" doc:"Selected EPSG codes"`
	ProviderEstimates   map[string]service.Estimate `json:"providerEstimates,omitempty" doc:"Size and time estimates per provider"`
}

// UpdateExportInfo merges a patch into the export configuration.
type UpdateExportInfo struct{ Patch ExportInfoPatch }

// ClearExportInfo resets the export configuration.
type ClearExportInfo struct{}

type SubmitJobStarted struct{}

type SubmitJobSucceeded struct{ JobUID string }

type SubmitJobFailed struct{ Errors []ErrorDetail }

// ClearJobInfo forgets the last submission.
type ClearJobInfo struct{}

// FetchStarted marks a catalog list as loading.
type FetchStarted struct{ Kind CatalogKind }

// FetchSucceeded stores a catalog list. Items must be the slice type of
// the kind, e.g. []service.Provider for KindProviders.
type FetchSucceeded struct {
	Kind  CatalogKind
	Items any
}

// FetchFailed records why a catalog list could not be loaded.
type FetchFailed struct {
	Kind   CatalogKind
	Errors []ErrorDetail
}

// Unauthorized sends the client to the login page.
type Unauthorized struct{ Redirect string }

// Reset returns the session to its initial state.
type Reset struct{}

func (UpdateAoiInfo) Type() string      { return "UPDATE_AOI_INFO" }
func (ClearAoiInfo) Type() string       { return "CLEAR_AOI_INFO" }
func (SetBuffer) Type() string          { return "SET_BUFFER" }
func (UpdateExportInfo) Type() string   { return "UPDATE_EXPORT_INFO" }
func (ClearExportInfo) Type() string    { return "CLEAR_EXPORT_INFO" }
func (SubmitJobStarted) Type() string   { return "SUBMITTING_JOB" }
func (SubmitJobSucceeded) Type() string { return "JOB_SUBMITTED_SUCCESS" }
func (SubmitJobFailed) Type() string    { return "JOB_SUBMITTED_ERROR" }
func (ClearJobInfo) Type() string       { return "CLEAR_JOB_INFO" }
func (a FetchStarted) Type() string     { return "FETCHING_" + upper(a.Kind) }
func (a FetchSucceeded) Type() string   { return "RECEIVED_" + upper(a.Kind) }
func (a FetchFailed) Type() string      { return "FETCH_" + upper(a.Kind) + "_ERROR" }
func (Unauthorized) Type() string       { return "USER_UNAUTHORIZED" }
func (Reset) Type() string              { return "RESET" }

func (UpdateAoiInfo) action()      {}
func (ClearAoiInfo) action()       {}
func (SetBuffer) action()          {}
func (UpdateExportInfo) action()   {}
func (ClearExportInfo) action()    {}
func (SubmitJobStarted) action()   {}
func (SubmitJobSucceeded) action() {}
func (SubmitJobFailed) action()    {}
func (ClearJobInfo) action()       {}
func (FetchStarted) action()       {}
func (FetchSucceeded) action()     {}
func (FetchFailed) action()        {}
func (Unauthorized) action()       {}
func (Reset) action()              {}

func upper(k CatalogKind) string { return strings.ToUpper(string(k)) }
