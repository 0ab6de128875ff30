// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/eventkit-aoi/internal/service"
	"github.com/joeblew999/eventkit-aoi/internal/store"
)

// Version is reported by the health and info endpoints.
const Version = "1.0.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Catalog  *service.CatalogService
	Jobs     *service.JobService
	Imports  *service.ImportService
	Sessions *store.Registry
}

// Types

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type SlugInput struct {
	Slug string `path:"slug" doc:"Provider slug" example:"osm"`
}

type EstimateInput struct {
	SlugInput
	Area float64 `query:"area" minimum:"0" doc:"AOI area in square meters" example:"25000000"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterCatalog registers the catalog list routes.
func (h *APIHandler) RegisterCatalog(api huma.API) {
	huma.Get(api, "/api/providers", h.GetProviders, huma.OperationTags("catalog"))
	huma.Get(api, "/api/providers/{slug}/estimate", h.GetEstimate, huma.OperationTags("catalog"))
	huma.Get(api, "/api/formats", h.GetFormats, huma.OperationTags("catalog"))
	huma.Get(api, "/api/projections", h.GetProjections, huma.OperationTags("catalog"))
	huma.Get(api, "/api/topics", h.GetTopics, huma.OperationTags("catalog"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) catalog() (*service.CatalogService, error) {
	if h.svc == nil || h.svc.Catalog == nil {
		return nil, huma.Error503ServiceUnavailable("catalog not available")
	}
	return h.svc.Catalog, nil
}

func (h *APIHandler) GetProviders(ctx context.Context, input *struct{}) (*struct{ Body []service.Provider }, error) {
	c, err := h.catalog()
	if err != nil {
		return nil, err
	}
	return &struct{ Body []service.Provider }{Body: c.Providers()}, nil
}

func (h *APIHandler) GetEstimate(ctx context.Context, input *EstimateInput) (*struct{ Body service.Estimate }, error) {
	c, err := h.catalog()
	if err != nil {
		return nil, err
	}
	est, err := c.Estimate(input.Slug, input.Area)
	if errors.Is(err, service.ErrProviderNotFound) {
		return nil, huma.Error404NotFound(err.Error())
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("estimate failed", err)
	}
	return &struct{ Body service.Estimate }{Body: est}, nil
}

func (h *APIHandler) GetFormats(ctx context.Context, input *struct{}) (*struct{ Body []service.Format }, error) {
	c, err := h.catalog()
	if err != nil {
		return nil, err
	}
	return &struct{ Body []service.Format }{Body: c.Formats()}, nil
}

func (h *APIHandler) GetProjections(ctx context.Context, input *struct{}) (*struct{ Body []service.Projection }, error) {
	c, err := h.catalog()
	if err != nil {
		return nil, err
	}
	return &struct{ Body []service.Projection }{Body: c.Projections()}, nil
}

func (h *APIHandler) GetTopics(ctx context.Context, input *struct{}) (*struct{ Body []service.Topic }, error) {
	c, err := h.catalog()
	if err != nil {
		return nil, err
	}
	return &struct{ Body []service.Topic }{Body: c.Topics()}, nil
}
