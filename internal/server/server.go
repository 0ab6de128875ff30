// Package server wires the services, the REST API and the editor SSE
// routes into one http.Handler.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/eventkit-aoi/internal/api"
	"github.com/joeblew999/eventkit-aoi/internal/api/editor"
	"github.com/joeblew999/eventkit-aoi/internal/db"
	"github.com/joeblew999/eventkit-aoi/internal/service"
	"github.com/joeblew999/eventkit-aoi/internal/store"
	"github.com/joeblew999/eventkit-aoi/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string // empty keeps jobs in memory
	// Extensions overrides the DuckDB extensions loaded at startup.
	Extensions []string
	// TemplatesDir replaces the embedded editor fragments, for editing
	// them without a rebuild.
	TemplatesDir string
}

// Server is the AOI HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	services *api.Services
	renderer *templates.Renderer
}

// New creates a new AOI server. A database that cannot be opened disables
// job submission but not the rest of the API.
func New(ctx context.Context, cfg Config) (*Server, error) {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("EventKit AOI API", api.Version)
	humaConfig.Info.Description = "Area of interest selection, buffering, validation and export job submission."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	if cfg.TemplatesDir != "" {
		if err := renderer.Reload(cfg.TemplatesDir); err != nil {
			return nil, fmt.Errorf("loading templates from %s: %w", cfg.TemplatesDir, err)
		}
		log.Info().Str("dir", cfg.TemplatesDir).Msg("editor templates loaded from disk")
	}

	bus := service.NewEventBus()
	catalog := service.NewCatalogService(cfg.DataDir)
	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		renderer: renderer,
		services: &api.Services{
			Catalog:  catalog,
			Imports:  service.NewImportService(cfg.DataDir, bus),
			Sessions: store.NewRegistry(bus),
		},
	}

	conn, err := db.Open(ctx, db.Config{DataDir: cfg.DataDir, Extensions: cfg.Extensions})
	if err != nil {
		log.Error().Err(err).Msg("job database unavailable, submission disabled")
	} else {
		s.db = conn
		s.services.Jobs = service.NewJobService(conn, cfg.DataDir, catalog, bus)
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Server) routes() {
	// REST API (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.config.DataDir, s.db, s.services.Sessions).RegisterRoutes(s.humaAPI)

	// Editor SSE routes (Huma + Datastar)
	editor.NewEditorHandler(s.services.Sessions, s.services.Jobs, s.renderer).RegisterRoutes(s.humaAPI)

	if s.services.Jobs != nil {
		s.mux.Handle("/jobs/", http.StripPrefix("/jobs/", s.handlePreviews(s.services.Jobs.JobsDir())))
	}
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "eventkit-aoi",
		"status":  "running",
	})
}

// handlePreviews serves job preview archives for range-reading map clients.
func (s *Server) handlePreviews(jobsDir string) http.Handler {
	files := http.FileServer(http.Dir(jobsDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		files.ServeHTTP(w, r)
	})
}
