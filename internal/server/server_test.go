package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(context.Background(), Config{Host: "localhost", Port: "0", DataDir: t.TempDir(), Extensions: []string{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/api/v1/info", http.StatusOK},
		{"/api/providers", http.StatusOK},
		{"/api/jobs", http.StatusOK},
		{"/openapi.json", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestInfoListsJobTable(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/info", nil))

	var body struct {
		DB     bool     `json:"db"`
		Tables []string `json:"tables"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.DB || len(body.Tables) == 0 || body.Tables[0] != "jobs" {
		t.Errorf("info = %+v", body)
	}
	if !strings.Contains(rec.Header().Get("Link"), `rel="health"`) {
		t.Errorf("Link header = %q", rec.Header().Get("Link"))
	}
}

func TestInfoListsSessions(t *testing.T) {
	srv := newTestServer(t)
	srv.services.Sessions.Get("b")
	srv.services.Sessions.Get("a")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/info", nil))
	var body struct {
		Sessions []string `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Sessions) != 2 || body.Sessions[0] != "a" || body.Sessions[1] != "b" {
		t.Errorf("sessions = %v", body.Sessions)
	}
}

func TestTemplatesDir(t *testing.T) {
	dir := t.TempDir()
	jobs, err := os.ReadFile("../templates/fragments/jobs.html")
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "jobs.html"), jobs, 0644)
	os.WriteFile(filepath.Join(dir, "aoi.html"), []byte(`{{define "aoi-summary"}}<div id="aoi-summary">edited</div>{{end}}`), 0644)

	srv, err := New(context.Background(), Config{DataDir: t.TempDir(), Extensions: []string{}, TemplatesDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()
	if got, err := srv.renderer.Render("aoi-summary", nil); err != nil || !strings.Contains(got, "edited") {
		t.Errorf("Render = %q, %v", got, err)
	}

	if _, err := New(context.Background(), Config{DataDir: t.TempDir(), Extensions: []string{}, TemplatesDir: t.TempDir()}); err == nil {
		t.Error("empty templates dir accepted")
	}
}

func TestPreviewCORS(t *testing.T) {
	srv := newTestServer(t)
	dir := filepath.Join(srv.services.Jobs.JobsDir(), "abc")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "aoi.pmtiles"), []byte("PMTiles"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/abc/aoi.pmtiles", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("status = %d, headers = %v", rec.Code, rec.Header())
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/jobs/abc/aoi.pmtiles", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d", rec.Code)
	}
}

func TestConfigureLogging(t *testing.T) {
	defer func(l zerolog.Logger, lvl zerolog.Level) {
		log.Logger = l
		zerolog.SetGlobalLevel(lvl)
	}(log.Logger, zerolog.GlobalLevel())

	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "json", false},
		{"debug", "console", false},
		{"loud", "json", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		err := ConfigureLogging(tt.level, tt.format, &buf)
		if (err != nil) != tt.wantErr {
			t.Errorf("ConfigureLogging(%q, %q) err = %v", tt.level, tt.format, err)
		}
	}

	var buf bytes.Buffer
	if err := ConfigureLogging("warn", "json", &buf); err != nil {
		t.Fatal(err)
	}
	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("log output = %s", buf.String())
	}
}
