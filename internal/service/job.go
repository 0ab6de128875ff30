package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/eventkit-aoi/internal/aoi"
	"github.com/joeblew999/eventkit-aoi/internal/tiler"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrEmptyArea   = errors.New("job has no area of interest")
)

// Preview tiles stop at previewMaxZoom, or shallower when the AOI would
// cover more than previewMaxTiles tiles at the deepest zoom.
const (
	previewMaxZoom  = 12
	previewMaxTiles = 1024
)

// JobService persists submitted jobs in DuckDB and keeps each job's AOI
// under <dataDir>/jobs/<uid>.
type JobService struct {
	db      *sql.DB
	jobsDir string
	catalog *CatalogService
	bus     *EventBus
}

// NewJobService creates a job service. catalog and bus may be nil.
func NewJobService(db *sql.DB, dataDir string, catalog *CatalogService, bus *EventBus) *JobService {
	return &JobService{
		db:      db,
		jobsDir: filepath.Join(dataDir, "jobs"),
		catalog: catalog,
		bus:     bus,
	}
}

// JobsDir returns the directory holding job artifacts.
func (s *JobService) JobsDir() string {
	return s.jobsDir
}

// Submit validates and stores a job and returns it with its new uid.
func (s *JobService) Submit(ctx context.Context, req JobRequest) (Job, error) {
	if req.Area == nil || len(req.Area.Features) == 0 {
		return Job{}, ErrEmptyArea
	}
	if err := aoi.ValidateGeoJSON(req.Area); err != nil {
		return Job{}, fmt.Errorf("invalid area: %w", err)
	}
	if s.catalog != nil {
		for _, slug := range req.Providers {
			if _, err := s.catalog.Provider(slug); err != nil {
				return Job{}, err
			}
		}
	}

	b := aoi.FeatureCollectionBound(req.Area)
	job := Job{
		UID:           uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		Project:       req.Project,
		Providers:     nonNil(req.Providers),
		Formats:       nonNil(req.Formats),
		Projections:   nonNil(req.Projections),
		SelectionType: req.SelectionType,
		Buffer:        req.Buffer,
		AreaSqKm:      aoi.Area(req.Area) / 1e6,
		BBox:          aoi.FeatureToBBox(geojson.NewFeature(b), aoi.EPSG4326),
		Status:        JobSubmitted,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}

	geom, err := wkb.Marshal(collectGeometry(req.Area))
	if err != nil {
		return Job{}, fmt.Errorf("encoding area: %w", err)
	}

	if err := s.writeArtifacts(&job, req.Area); err != nil {
		return Job{}, err
	}

	if err := s.insert(ctx, job, geom); err != nil {
		os.RemoveAll(filepath.Join(s.jobsDir, job.UID))
		return Job{}, err
	}

	log.Info().Str("uid", job.UID).Str("name", job.Name).Float64("area_sq_km", job.AreaSqKm).Msg("job submitted")
	s.publish("created", job.UID)
	return job, nil
}

func (s *JobService) writeArtifacts(job *Job, area *geojson.FeatureCollection) error {
	dir := filepath.Join(s.jobsDir, job.UID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	data, err := area.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding area: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "aoi.geojson"), data, 0644); err != nil {
		return err
	}

	// A missing preview does not fail the job.
	f, err := os.Create(filepath.Join(dir, "aoi.pmtiles"))
	if err != nil {
		log.Warn().Err(err).Str("uid", job.UID).Msg("creating preview")
		return nil
	}
	defer f.Close()

	// A zero MaxZoom would select the tiler default.
	maxZoom := max(tiler.FitZoom(aoi.FeatureCollectionBound(area), previewMaxZoom, previewMaxTiles), 1)
	log.Debug().Str("uid", job.UID).Int("max_zoom", maxZoom).Msg("building preview")
	err = tiler.WriteArchive(f, area, tiler.Config{Layer: "aoi", MaxZoom: maxZoom}, func(progress int, status string) {
		log.Debug().Str("uid", job.UID).Int("progress", progress).Msg(status)
	})
	if err != nil {
		log.Warn().Err(err).Str("uid", job.UID).Msg("building preview")
		f.Close()
		os.Remove(f.Name())
		return nil
	}
	job.Preview = filepath.ToSlash(filepath.Join("jobs", job.UID, "aoi.pmtiles"))
	return nil
}

func (s *JobService) insert(ctx context.Context, job Job, geom []byte) error {
	providers, _ := json.Marshal(job.Providers)
	formats, _ := json.Marshal(job.Formats)
	projections, _ := json.Marshal(job.Projections)
	bbox, _ := json.Marshal(job.BBox)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (uid, name, description, project, providers, formats, projections,
			selection_type, buffer, area_sq_km, bbox, geom, status, preview, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.UID, job.Name, job.Description, job.Project,
		string(providers), string(formats), string(projections),
		job.SelectionType, job.Buffer, job.AreaSqKm, string(bbox), geom,
		string(job.Status), job.Preview, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

const jobColumns = `uid, name, description, project, providers, formats, projections,
	selection_type, buffer, area_sq_km, bbox, status, preview, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var (
		job                                   Job
		providers, formats, projections, bbox string
		status                                string
		selection, preview                    sql.NullString
	)
	err := row.Scan(&job.UID, &job.Name, &job.Description, &job.Project,
		&providers, &formats, &projections, &selection, &job.Buffer, &job.AreaSqKm,
		&bbox, &status, &preview, &job.CreatedAt)
	if err != nil {
		return Job{}, err
	}
	for _, f := range []struct {
		raw string
		dst any
	}{
		{providers, &job.Providers},
		{formats, &job.Formats},
		{projections, &job.Projections},
		{bbox, &job.BBox},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return Job{}, fmt.Errorf("decoding job %s: %w", job.UID, err)
		}
	}
	job.SelectionType = selection.String
	job.Preview = preview.String
	job.Status = JobStatus(status)
	return job, nil
}

// Get returns a job by uid.
func (s *JobService) Get(ctx context.Context, uid string) (Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE uid = ?", uid)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%s: %w", uid, ErrJobNotFound)
	}
	return job, err
}

// List returns all jobs, newest first.
func (s *JobService) List(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+jobColumns+" FROM jobs ORDER BY created_at DESC, uid")
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Geometry returns the stored AOI geometry of a job.
func (s *JobService) Geometry(ctx context.Context, uid string) (orb.Geometry, error) {
	var geom []byte
	err := s.db.QueryRowContext(ctx, "SELECT geom FROM jobs WHERE uid = ?", uid).Scan(&geom)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", uid, ErrJobNotFound)
	}
	if err != nil {
		return nil, err
	}
	return wkb.Unmarshal(geom)
}

// SetStatus updates the status of a job.
func (s *JobService) SetStatus(ctx context.Context, uid string, status JobStatus) error {
	res, err := s.db.ExecContext(ctx, "UPDATE jobs SET status = ? WHERE uid = ?", string(status), uid)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", uid, ErrJobNotFound)
	}
	s.publish("updated", uid)
	return nil
}

// Delete removes a job and its artifacts.
func (s *JobService) Delete(ctx context.Context, uid string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE uid = ?", uid)
	if err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", uid, ErrJobNotFound)
	}
	if err := os.RemoveAll(filepath.Join(s.jobsDir, uid)); err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("removing job directory")
	}
	s.publish("deleted", uid)
	return nil
}

// PreviewPath returns the preview archive of a job.
func (s *JobService) PreviewPath(uid string) string {
	return filepath.Join(s.jobsDir, uid, "aoi.pmtiles")
}

func (s *JobService) publish(action, uid string) {
	if s.bus != nil {
		s.bus.Publish(Event{Resource: ResourceJobs, Action: action, ID: uid})
	}
}

// collectGeometry returns the single geometry of a one-feature collection,
// or a GeometryCollection of all of them.
func collectGeometry(fc *geojson.FeatureCollection) orb.Geometry {
	if len(fc.Features) == 1 {
		return fc.Features[0].Geometry
	}
	c := make(orb.Collection, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry != nil {
			c = append(c, f.Geometry)
		}
	}
	return c
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
