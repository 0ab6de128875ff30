package editor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/eventkit-aoi/internal/service"
	"github.com/joeblew999/eventkit-aoi/internal/store"
	"github.com/joeblew999/eventkit-aoi/internal/templates"
)

// EditorHandler streams draft and job changes to the Datastar UI via SSE.
type EditorHandler struct {
	sessions *store.Registry
	jobs     *service.JobService
	bus      *service.EventBus
	renderer *templates.Renderer
}

// NewEditorHandler creates a new editor handler. Job and import events come
// from the bus the sessions publish on. jobs may be nil.
func NewEditorHandler(sessions *store.Registry, jobs *service.JobService, renderer *templates.Renderer) *EditorHandler {
	return &EditorHandler{sessions: sessions, jobs: jobs, bus: sessions.Bus(), renderer: renderer}
}

func (h *EditorHandler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("editor")
	huma.Get(api, "/api/v1/editor/events", h.Events, tags)
	huma.Get(api, "/api/v1/editor/jobs", h.Jobs, tags)
	huma.Post(api, "/api/v1/editor/buffer", h.Buffer, tags)
	huma.Post(api, "/api/v1/editor/reset", h.Reset, tags)
}

type SessionQuery struct {
	Session string `query:"session" default:"default" doc:"Draft session"`
}

// Events sends the current draft and then every change to it. Job and
// import changes are forwarded as resource-changed DOM events.
func (h *EditorHandler) Events(ctx context.Context, input *SessionQuery) (*huma.StreamResponse, error) {
	st := h.sessions.Get(input.Session)
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)
			states := st.Subscribe()
			defer st.Unsubscribe(states)

			var events <-chan service.Event
			if h.bus != nil {
				sub := h.bus.Subscribe(service.ResourceJobs, service.ResourceImports)
				defer h.bus.Unsubscribe(sub)
				events = sub.C
			}

			h.patchDraft(sse, st.State())
			for {
				select {
				case <-ctx.Done():
					return
				case <-sse.SSE.Context().Done():
					return
				case s, ok := <-states:
					if !ok {
						return
					}
					h.patchDraft(sse, s)
				case ev, ok := <-events:
					if !ok {
						return
					}
					if ev.Resource == service.ResourceJobs {
						h.patchJobs(ctx, sse)
					}
					sse.Dispatch("resource-changed", map[string]any{
						"resource": ev.Resource,
						"action":   ev.Action,
						"id":       ev.ID,
					})
				}
			}
		},
	}, nil
}

func (h *EditorHandler) patchDraft(sse *SSEContext, s store.State) {
	sse.SendSignals(draftSignals(s))
	html, err := h.renderer.Render("aoi-summary", summary(s.AoiInfo))
	if err != nil {
		log.Error().Err(err).Msg("rendering aoi summary")
		return
	}
	sse.PatchElements(html, "#aoi-summary")
}

func (h *EditorHandler) patchJobs(ctx context.Context, sse *SSEContext) {
	if h.jobs == nil {
		return
	}
	jobs, err := h.jobs.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing jobs")
		return
	}
	html, err := h.renderer.Render("job-list", jobs)
	if err != nil {
		log.Error().Err(err).Msg("rendering job list")
		return
	}
	sse.PatchElements(html, "#job-list")
}

// Jobs renders the job list once.
func (h *EditorHandler) Jobs(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	if h.jobs == nil {
		return nil, huma.Error503ServiceUnavailable("job storage not available")
	}
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			h.patchJobs(ctx, NewSSEContext(humaCtx))
		},
	}, nil
}

// Buffer applies the buffer signal to the session's AOI.
func (h *EditorHandler) Buffer(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.Parse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("buffer") {
		return nil, huma.Error400BadRequest("buffer signal is required")
	}
	st := h.sessions.Get(input.Session)
	s, err := st.SetBuffer(signals.Float("buffer"))
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)
			if err != nil {
				sse.SendErrors([]store.ErrorDetail{{Title: "Invalid AOI", Detail: err.Error()}})
				return
			}
			h.patchDraft(sse, s)
		},
	}, nil
}

// Reset clears the session's draft.
func (h *EditorHandler) Reset(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	s := h.sessions.Get(input.Session).Dispatch(store.Reset{})
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			h.patchDraft(NewSSEContext(humaCtx), s)
		},
	}, nil
}
