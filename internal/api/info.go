package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/eventkit-aoi/internal/db"
	"github.com/joeblew999/eventkit-aoi/internal/store"
)

type InfoHandler struct {
	dataDir  string
	conn     *sql.DB
	sessions *store.Registry
}

// NewInfoHandler creates the service info handler. conn and sessions may be nil.
func NewInfoHandler(dataDir string, conn *sql.DB, sessions *store.Registry) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, conn: conn, sessions: sessions}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether the job database is available"`
	Tables   []string `json:"tables" doc:"Job database tables"`
	Sessions []string `json:"sessions" doc:"Draft sessions held in memory"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "eventkit-aoi",
		Version:  Version,
		DataDir:  h.dataDir,
		Tables:   []string{},
		Sessions: []string{},
		Features: []string{"geojson", "kml", "wkt", "mvt", "pmtiles", "duckdb", "datastar"},
	}
	if h.conn != nil {
		tables, err := db.Tables(ctx, h.conn)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tables", err)
		}
		body.DB = true
		body.Tables = tables
	}
	if h.sessions != nil {
		body.Sessions = h.sessions.Sessions()
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
