package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/eventkit-aoi/internal/aoi"
	"github.com/joeblew999/eventkit-aoi/internal/service"
	"github.com/joeblew999/eventkit-aoi/internal/store"
)

// DefaultSession is used when a request carries no X-Session-ID header.
const DefaultSession = "default"

// SessionInput selects the draft a request works on.
type SessionInput struct {
	SessionID string `header:"X-Session-ID" default:"default" doc:"Draft session" example:"default"`
}

// RegisterDraft registers the draft state routes.
func (h *APIHandler) RegisterDraft(api huma.API) {
	tags := huma.OperationTags("draft")
	huma.Get(api, "/api/v1/draft", h.GetDraft, tags)
	huma.Put(api, "/api/v1/draft/aoi", h.PutDraftAoi, tags)
	huma.Delete(api, "/api/v1/draft/aoi", h.DeleteDraftAoi, tags)
	huma.Put(api, "/api/v1/draft/buffer", h.PutDraftBuffer, tags)
	huma.Put(api, "/api/v1/draft/export", h.PutDraftExport, tags)
	huma.Delete(api, "/api/v1/draft/export", h.DeleteDraftExport, tags)
	huma.Post(api, "/api/v1/draft/reset", h.ResetDraft, tags)
	huma.Post(api, "/api/v1/draft/catalog/{kind}", h.FetchCatalog, tags)
}

type DraftOutput struct {
	Body store.State
}

func (h *APIHandler) session(id string) (*store.Store, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error503ServiceUnavailable("sessions not available")
	}
	if id == "" {
		id = DefaultSession
	}
	return h.svc.Sessions.Get(id), nil
}

// peek returns a session's draft without creating the session. Unknown
// sessions read as a fresh draft.
func (h *APIHandler) peek(id string) (store.State, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return store.State{}, huma.Error503ServiceUnavailable("sessions not available")
	}
	if id == "" {
		id = DefaultSession
	}
	if st, ok := h.svc.Sessions.Lookup(id); ok {
		return st.State(), nil
	}
	return store.Initial(), nil
}

// rejectAoi is the 422 written for an AOI that cannot be used.
func rejectAoi(err error) error {
	return &store.APIError{
		Status: http.StatusUnprocessableEntity,
		Errors: []store.ErrorDetail{invalidAoiDetail(err)},
	}
}

func (h *APIHandler) GetDraft(ctx context.Context, input *SessionInput) (*DraftOutput, error) {
	draft, err := h.peek(input.SessionID)
	if err != nil {
		return nil, err
	}
	return &DraftOutput{Body: draft}, nil
}

type PutAoiInput struct {
	SessionInput
	Body struct {
		GeoJSONBody
		SelectionType store.SelectionType `json:"selectionType" required:"true" enum:"box,free,mapView,search,import" doc:"How the AOI was chosen"`
		Title         string              `json:"title,omitempty" doc:"Human label" example:"Kathmandu"`
		Description   string              `json:"description,omitempty" doc:"Where the label came from" example:"Box"`
		Buffer        float64             `json:"buffer,omitempty" minimum:"0" maximum:"10000" doc:"Initial buffer in meters"`
	}
}

// PutDraftAoi replaces the selected area. Invalid areas are rejected with
// 422 and leave the draft untouched.
func (h *APIHandler) PutDraftAoi(ctx context.Context, input *PutAoiInput) (*DraftOutput, error) {
	st, err := h.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	fc, err := aoi.ParseFeatureCollection(input.Body.GeoJSON)
	if err != nil {
		return nil, rejectAoi(err)
	}
	if len(fc.Features) == 0 {
		return nil, rejectAoi(errors.New("the AOI has no features"))
	}
	if err := aoi.ValidateGeoJSON(fc); err != nil {
		return nil, rejectAoi(err)
	}

	b := input.Body
	info := store.NewAoiInfo(fc, b.SelectionType, b.Title, b.Description)
	info.Buffer = b.Buffer
	state, err := st.SelectAoi(info)
	if err != nil {
		return nil, rejectAoi(err)
	}
	return &DraftOutput{Body: state}, nil
}

func (h *APIHandler) DeleteDraftAoi(ctx context.Context, input *SessionInput) (*DraftOutput, error) {
	st, err := h.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	return &DraftOutput{Body: st.Dispatch(store.ClearAoiInfo{})}, nil
}

type PutBufferInput struct {
	SessionInput
	Body struct {
		Buffer float64 `json:"buffer" doc:"Buffer in meters, clamped to [0, 10000]" example:"500"`
	}
}

func (h *APIHandler) PutDraftBuffer(ctx context.Context, input *PutBufferInput) (*DraftOutput, error) {
	st, err := h.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	state, err := st.SetBuffer(input.Body.Buffer)
	if err != nil {
		return nil, rejectAoi(err)
	}
	return &DraftOutput{Body: state}, nil
}

type PutExportInput struct {
	SessionInput
	Body store.ExportInfoPatch
}

// PutDraftExport merges the given fields into the export configuration and
// refreshes the estimates of the selected providers.
func (h *APIHandler) PutDraftExport(ctx context.Context, input *PutExportInput) (*DraftOutput, error) {
	st, err := h.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	patch := input.Body
	if patch.Providers != nil && patch.ProviderEstimates == nil && h.svc.Catalog != nil {
		patch.ProviderEstimates = h.estimates(patch.Providers, st.State().AoiInfo)
	}
	return &DraftOutput{Body: st.Dispatch(store.UpdateExportInfo{Patch: patch})}, nil
}

func (h *APIHandler) estimates(providers []string, info store.AoiInfo) map[string]service.Estimate {
	area := 0.0
	if info.HasAoi() {
		area = aoi.Area(info.GeoJSON)
	}
	out := make(map[string]service.Estimate, len(providers))
	for _, slug := range providers {
		est, err := h.svc.Catalog.Estimate(slug, area)
		if err != nil {
			continue
		}
		out[slug] = est
	}
	return out
}

func (h *APIHandler) DeleteDraftExport(ctx context.Context, input *SessionInput) (*DraftOutput, error) {
	st, err := h.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	return &DraftOutput{Body: st.Dispatch(store.ClearExportInfo{})}, nil
}

func (h *APIHandler) ResetDraft(ctx context.Context, input *SessionInput) (*DraftOutput, error) {
	st, err := h.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	return &DraftOutput{Body: st.Dispatch(store.Reset{})}, nil
}

type FetchCatalogInput struct {
	SessionInput
	Kind store.CatalogKind `path:"kind" enum:"providers,formats,projections,topics" doc:"Catalog list to load"`
}

// FetchCatalog loads a catalog list into the draft through the store's
// request middleware, so a newer fetch of the same kind replaces an older one.
func (h *APIHandler) FetchCatalog(ctx context.Context, input *FetchCatalogInput) (*DraftOutput, error) {
	st, err := h.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	c, err := h.catalog()
	if err != nil {
		return nil, err
	}

	kind := input.Kind
	_, err = st.Run(ctx, store.Request{
		Kind: "catalog:" + string(kind),
		Do: func(ctx context.Context) (any, error) {
			switch kind {
			case store.KindProviders:
				return c.Providers(), nil
			case store.KindFormats:
				return c.Formats(), nil
			case store.KindProjections:
				return c.Projections(), nil
			case store.KindTopics:
				return c.Topics(), nil
			}
			return nil, fmt.Errorf("unknown catalog %q", kind)
		},
		Started:   store.FetchStarted{Kind: kind},
		Succeeded: func(items any) store.Action { return store.FetchSucceeded{Kind: kind, Items: items} },
		Failed:    func(errs []store.ErrorDetail) store.Action { return store.FetchFailed{Kind: kind, Errors: errs} },
	})
	if errors.Is(err, store.ErrCancelled) {
		log.Debug().Str("session", st.ID()).Str("kind", string(kind)).Msg("catalog fetch superseded")
	}
	return &DraftOutput{Body: st.State()}, nil
}

// jobRequest turns a draft into a submission.
func jobRequest(s store.State) service.JobRequest {
	e := s.ExportInfo
	return service.JobRequest{
		Name:          e.ExportName,
		Description:   e.DatapackDescription,
		Project:       e.ProjectName,
		Providers:     e.Providers,
		Formats:       e.Formats,
		Projections:   e.Projections,
		SelectionType: string(s.AoiInfo.SelectionType),
		Buffer:        s.AoiInfo.Buffer,
		Area:          s.AoiInfo.GeoJSON,
	}
}

// draftErrors lists what keeps a draft from being submitted.
func draftErrors(s store.State) []store.ErrorDetail {
	var errs []store.ErrorDetail
	if !s.AoiInfo.HasAoi() {
		errs = append(errs, store.ErrorDetail{Title: "Missing AOI", Detail: "Select an area of interest."})
	} else if !aoi.AllHaveArea(s.AoiInfo.GeoJSON) {
		errs = append(errs, store.ErrorDetail{Title: "Invalid AOI", Detail: "Every feature of the area of interest must have an area."})
	}
	e := s.ExportInfo
	if e.ExportName == "" {
		errs = append(errs, store.ErrorDetail{Title: "Missing name", Detail: "Enter an export name."})
	}
	if e.DatapackDescription == "" {
		errs = append(errs, store.ErrorDetail{Title: "Missing description", Detail: "Enter a datapack description."})
	}
	if e.ProjectName == "" {
		errs = append(errs, store.ErrorDetail{Title: "Missing project", Detail: "Enter a project name."})
	}
	if len(e.Providers) == 0 {
		errs = append(errs, store.ErrorDetail{Title: "No providers", Detail: "Select at least one data provider."})
	}
	return errs
}
