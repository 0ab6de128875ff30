// Package service contains the business logic behind the AOI API: the
// provider catalog, job submission and AOI file imports.
package service

import (
	"time"

	"github.com/paulmach/orb/geojson"
)

// Provider is a data source a job can export from.
// Huma reads the tags for OpenAPI and validation, yaml for catalog.yaml.
type Provider struct {
	Slug        string  `json:"slug" yaml:"slug" required:"true" doc:"Provider identifier" example:"osm"`
	Name        string  `json:"name" yaml:"name" doc:"Display name" example:"OpenStreetMap Data (Themes)"`
	ServiceType string  `json:"serviceType" yaml:"service_type" enum:"osm,wms,wmts,wfs,arcgis-feature,arcgis-raster,vector-file,raster-file" doc:"Kind of upstream service" example:"osm"`
	Level0      int     `json:"level0" yaml:"level_from" minimum:"0" maximum:"22" doc:"Minimum zoom exported"`
	Level1      int     `json:"level1" yaml:"level_to" minimum:"0" maximum:"22" doc:"Maximum zoom exported" example:"10"`
	MaxArea     float64 `json:"maxSelectionArea" yaml:"max_selection" doc:"Largest AOI in square kilometers, 0 for no limit" example:"10000"`
	License     string  `json:"license,omitempty" yaml:"license" doc:"License text shown before export"`

	// BytesPerSqKm drives size estimates; it is not exposed.
	BytesPerSqKm float64 `json:"-" yaml:"bytes_per_sq_km"`
}

// Format is an output format a provider can be exported to.
type Format struct {
	Slug        string `json:"slug" yaml:"slug" required:"true" doc:"Format identifier" example:"gpkg"`
	Name        string `json:"name" yaml:"name" doc:"Display name" example:"GeoPackage"`
	Description string `json:"description,omitempty" yaml:"description" doc:"Format description"`
}

// Projection is an output spatial reference.
type Projection struct {
	SRID        int    `json:"srid" yaml:"srid" required:"true" doc:"EPSG code" example:"4326"`
	Name        string `json:"name" yaml:"name" doc:"Display name" example:"EPSG:4326"`
	Description string `json:"description,omitempty" yaml:"description" doc:"Projection description"`
}

// Topic groups providers under a theme.
type Topic struct {
	Slug      string   `json:"slug" yaml:"slug" required:"true" doc:"Topic identifier" example:"transportation"`
	Name      string   `json:"name" yaml:"name" doc:"Display name" example:"Transportation"`
	Providers []string `json:"providers" yaml:"providers" doc:"Provider slugs in this topic"`
}

// Catalog is the document stored in catalog.yaml.
type Catalog struct {
	Providers   []Provider   `json:"providers" yaml:"providers"`
	Formats     []Format     `json:"formats" yaml:"formats"`
	Projections []Projection `json:"projections" yaml:"projections"`
	Topics      []Topic      `json:"topics" yaml:"topics"`
}

// Estimate is the projected output of one provider for an AOI.
type Estimate struct {
	Slug     string  `json:"slug" doc:"Provider identifier" example:"osm"`
	Size     float64 `json:"size" doc:"Estimated size in megabytes" example:"12.5"`
	Time     float64 `json:"time" doc:"Estimated duration in seconds" example:"90"`
	TooBig   bool    `json:"tooBig" doc:"AOI exceeds the provider's maximum selection area"`
	AreaSqKm float64 `json:"areaSqKm" doc:"AOI area in square kilometers"`
}

// JobStatus is the lifecycle of a submitted job.
type JobStatus string

const (
	JobSubmitted JobStatus = "SUBMITTED"
	JobPreparing JobStatus = "PREPARING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// JobRequest is what the draft becomes on submission.
type JobRequest struct {
	Name          string                     `json:"name" required:"true" minLength:"1" maxLength:"100" doc:"Export name" example:"Flood response"`
	Description   string                     `json:"description" required:"true" minLength:"1" doc:"Datapack description"`
	Project       string                     `json:"project" required:"true" minLength:"1" doc:"Project name"`
	Providers     []string                   `json:"providers" minItems:"1" doc:"Provider slugs"`
	Formats       []string                   `json:"formats" doc:"Format slugs"`
	Projections   []int                      `json:"projections" doc:"Output EPSG codes"`
	SelectionType string                     `json:"selectionType,omitempty" doc:"How the AOI was chosen"`
	Buffer        float64                    `json:"buffer" doc:"Buffer applied to the AOI in meters"`
	Area          *geojson.FeatureCollection `json:"-"`
}

// Job is a persisted export job.
type Job struct {
	UID           string    `json:"uid" doc:"Job identifier" example:"6870234f-d876-467c-a332-65fdf0399a0d"`
	Name          string    `json:"name" doc:"Export name"`
	Description   string    `json:"description" doc:"Datapack description"`
	Project       string    `json:"project" doc:"Project name"`
	Providers     []string  `json:"providers" doc:"Provider slugs"`
	Formats       []string  `json:"formats" doc:"Format slugs"`
	Projections   []int     `json:"projections" doc:"Output EPSG codes"`
	SelectionType string    `json:"selectionType,omitempty" doc:"How the AOI was chosen"`
	Buffer        float64   `json:"buffer" doc:"Buffer in meters"`
	AreaSqKm      float64   `json:"areaSqKm" doc:"AOI area in square kilometers"`
	BBox          []float64 `json:"bbox" doc:"AOI bounding box [west, south, east, north]"`
	Status        JobStatus `json:"status" doc:"Job status" enum:"SUBMITTED,PREPARING,COMPLETED,FAILED"`
	Preview       string    `json:"preview,omitempty" doc:"Relative path of the AOI preview archive"`
	CreatedAt     time.Time `json:"createdAt" doc:"Submission time"`
}

// ImportFile is an uploaded AOI file.
type ImportFile struct {
	Name     string `json:"name" doc:"File name" example:"site.kml"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 KB"`
	FileType string `json:"fileType" doc:"File type" example:"KML"`
}
