package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/eventkit-aoi/internal/pmtiles"
	"github.com/joeblew999/eventkit-aoi/internal/service"
	"github.com/joeblew999/eventkit-aoi/internal/store"
	"github.com/joeblew999/eventkit-aoi/internal/tiler"
)

// RegisterJobs registers job submission and lookup routes.
func (h *APIHandler) RegisterJobs(api huma.API) {
	tags := huma.OperationTags("jobs")
	huma.Post(api, "/api/jobs", h.SubmitJob, tags, func(op *huma.Operation) {
		op.DefaultStatus = http.StatusCreated
	})
	huma.Get(api, "/api/jobs", h.ListJobs, tags)
	huma.Get(api, "/api/jobs/{uid}", h.GetJob, tags)
	huma.Delete(api, "/api/jobs/{uid}", h.DeleteJob, tags)
	huma.Get(api, "/api/jobs/{uid}/geometry", h.GetJobGeometry, tags)
	huma.Put(api, "/api/jobs/{uid}/status", h.PutJobStatus, tags)
	huma.Get(api, "/api/jobs/{uid}/preview/{z}/{x}/{y}", h.GetJobPreviewTile, tags)
}

// RegisterTiles registers the draft vector tile route.
func (h *APIHandler) RegisterTiles(api huma.API) {
	huma.Get(api, "/api/v1/draft/tiles/{z}/{x}/{y}", h.GetDraftTile, huma.OperationTags("draft"))
}

type UIDInput struct {
	UID string `path:"uid" doc:"Job uid" example:"6870234f-d876-467c-a332-65fdf0399a0d"`
}

type JobOutput struct {
	Body service.Job
}

func (h *APIHandler) jobs() (*service.JobService, error) {
	if h.svc == nil || h.svc.Jobs == nil {
		return nil, huma.Error503ServiceUnavailable("job storage not available")
	}
	return h.svc.Jobs, nil
}

// SubmitJob submits the session's draft. Incomplete drafts are rejected
// with 422 and the reasons are recorded in the draft's submit status.
func (h *APIHandler) SubmitJob(ctx context.Context, input *SessionInput) (*JobOutput, error) {
	st, err := h.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	jobs, err := h.jobs()
	if err != nil {
		return nil, err
	}

	draft := st.State()
	result, err := st.Run(ctx, store.Request{
		Kind: "submit",
		Do: func(ctx context.Context) (any, error) {
			if errs := draftErrors(draft); len(errs) > 0 {
				return nil, &store.APIError{Status: http.StatusUnprocessableEntity, Errors: errs}
			}
			job, err := jobs.Submit(ctx, jobRequest(draft))
			if err != nil {
				return nil, submitError(err)
			}
			return job, nil
		},
		Started:   store.SubmitJobStarted{},
		Succeeded: func(r any) store.Action { return store.SubmitJobSucceeded{JobUID: r.(service.Job).UID} },
		Failed:    func(errs []store.ErrorDetail) store.Action { return store.SubmitJobFailed{Errors: errs} },
	})
	if errors.Is(err, store.ErrCancelled) {
		return nil, huma.Error409Conflict("submission superseded by a newer one")
	}
	if err != nil {
		return nil, err
	}
	return &JobOutput{Body: result.(service.Job)}, nil
}

func submitError(err error) error {
	detail := store.ErrorDetail{Title: "Submission failed", Detail: err.Error()}
	switch {
	case errors.Is(err, service.ErrProviderNotFound):
		detail.Title = "Unknown provider"
	case errors.Is(err, service.ErrEmptyArea):
		detail.Title = "Missing AOI"
	case strings.HasPrefix(err.Error(), "invalid area"):
		detail.Title = "Invalid AOI"
	default:
		return err
	}
	return &store.APIError{Status: http.StatusUnprocessableEntity, Errors: []store.ErrorDetail{detail}}
}

func (h *APIHandler) ListJobs(ctx context.Context, input *struct{}) (*struct{ Body []service.Job }, error) {
	jobs, err := h.jobs()
	if err != nil {
		return nil, err
	}
	list, err := jobs.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list jobs", err)
	}
	return &struct{ Body []service.Job }{Body: list}, nil
}

func (h *APIHandler) GetJob(ctx context.Context, input *UIDInput) (*JobOutput, error) {
	jobs, err := h.jobs()
	if err != nil {
		return nil, err
	}
	job, err := jobs.Get(ctx, input.UID)
	if errors.Is(err, service.ErrJobNotFound) {
		return nil, huma.Error404NotFound("job not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load job", err)
	}
	return &JobOutput{Body: job}, nil
}

func (h *APIHandler) DeleteJob(ctx context.Context, input *UIDInput) (*struct{ Body MessageBody }, error) {
	jobs, err := h.jobs()
	if err != nil {
		return nil, err
	}
	if err := jobs.Delete(ctx, input.UID); err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		return nil, huma.Error500InternalServerError("failed to delete job", err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Job deleted"}}, nil
}

// GetJobGeometry returns the AOI stored with a job.
func (h *APIHandler) GetJobGeometry(ctx context.Context, input *UIDInput) (*FeatureCollectionOutput, error) {
	jobs, err := h.jobs()
	if err != nil {
		return nil, err
	}
	g, err := jobs.Geometry(ctx, input.UID)
	if errors.Is(err, service.ErrJobNotFound) {
		return nil, huma.Error404NotFound("job not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load job geometry", err)
	}
	fc := geojson.NewFeatureCollection()
	if c, ok := g.(orb.Collection); ok {
		for _, part := range c {
			fc.Append(geojson.NewFeature(part))
		}
	} else {
		fc.Append(geojson.NewFeature(g))
	}
	return &FeatureCollectionOutput{Body: fc}, nil
}

type JobStatusInput struct {
	UIDInput
	Body struct {
		Status service.JobStatus `json:"status" required:"true" enum:"SUBMITTED,PREPARING,COMPLETED,FAILED" doc:"New job status"`
	}
}

// PutJobStatus records progress reported by the export runner.
func (h *APIHandler) PutJobStatus(ctx context.Context, input *JobStatusInput) (*JobOutput, error) {
	jobs, err := h.jobs()
	if err != nil {
		return nil, err
	}
	if err := jobs.SetStatus(ctx, input.UID, input.Body.Status); err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		return nil, huma.Error500InternalServerError("failed to update job", err)
	}
	job, err := jobs.Get(ctx, input.UID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load job", err)
	}
	return &JobOutput{Body: job}, nil
}

// TileInput addresses an XYZ tile. Y may carry a ".mvt" suffix.
type TileInput struct {
	Z int    `path:"z" minimum:"0" maximum:"22" doc:"Zoom"`
	X int    `path:"x" minimum:"0" doc:"Column"`
	Y string `path:"y" doc:"Row, optionally with .mvt" example:"3.mvt"`
}

func (t TileInput) tile() (maptile.Tile, error) {
	y, err := strconv.Atoi(strings.TrimSuffix(t.Y, ".mvt"))
	n := 1 << t.Z
	if err != nil || y < 0 || y >= n || t.X >= n {
		return maptile.Tile{}, huma.Error400BadRequest("tile out of range")
	}
	return maptile.New(uint32(t.X), uint32(y), maptile.Zoom(t.Z)), nil
}

// TileOutput is a gzipped Mapbox Vector Tile, or 204 when the tile is empty.
type TileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	Body            []byte
}

func mvtOutput(data []byte) *TileOutput {
	if data == nil {
		return &TileOutput{Status: http.StatusNoContent}
	}
	return &TileOutput{
		Status:          http.StatusOK,
		ContentType:     "application/vnd.mapbox-vector-tile",
		ContentEncoding: "gzip",
		Body:            data,
	}
}

type DraftTileInput struct {
	SessionInput
	TileInput
}

// GetDraftTile renders the session's AOI into one vector tile. Tiles the
// AOI does not reach, and drafts without an AOI, are 204.
func (h *APIHandler) GetDraftTile(ctx context.Context, input *DraftTileInput) (*TileOutput, error) {
	draft, err := h.peek(input.SessionID)
	if err != nil {
		return nil, err
	}
	t, err := input.tile()
	if err != nil {
		return nil, err
	}
	info := draft.AoiInfo
	if !info.HasAoi() {
		return mvtOutput(nil), nil
	}
	return mvtOutput(tiler.EncodeTile(info.GeoJSON, t, tiler.DefaultLayer)), nil
}

type JobTileInput struct {
	UIDInput
	TileInput
}

// GetJobPreviewTile serves one tile from a job's preview archive.
func (h *APIHandler) GetJobPreviewTile(ctx context.Context, input *JobTileInput) (*TileOutput, error) {
	jobs, err := h.jobs()
	if err != nil {
		return nil, err
	}
	t, err := input.tile()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(jobs.PreviewPath(input.UID))
	if err != nil {
		return nil, huma.Error404NotFound("preview not found")
	}
	archive, err := pmtiles.Read(data)
	if err != nil {
		return nil, huma.Error500InternalServerError("reading preview", err)
	}
	tile, err := archive.Tile(uint8(t.Z), t.X, t.Y)
	if errors.Is(err, pmtiles.ErrTileMissing) {
		return mvtOutput(nil), nil
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("reading preview tile", err)
	}
	return mvtOutput(tile), nil
}
