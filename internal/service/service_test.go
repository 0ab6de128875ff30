package service

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/eventkit-aoi/internal/db"
	"github.com/joeblew999/eventkit-aoi/internal/importer"
)

func square() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Polygon{{{9.9, 9.9}, {10.1, 9.9}, {10.1, 10.1}, {9.9, 10.1}, {9.9, 9.9}}}))
	return fc
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	all := bus.Subscribe()
	jobs := bus.Subscribe(ResourceJobs)

	bus.Publish(Event{Resource: ResourceDraft, Action: "RESET", ID: "s1"})
	bus.Publish(Event{Resource: ResourceJobs, Action: "created", ID: "j1"})

	if got := len(all.C); got != 2 {
		t.Errorf("unfiltered subscriber got %d events, want 2", got)
	}
	if e := <-jobs.C; e.ID != "j1" {
		t.Errorf("filtered subscriber got %+v", e)
	}
	if len(jobs.C) != 0 {
		t.Error("filtered subscriber received a draft event")
	}

	bus.Unsubscribe(jobs)
	bus.Unsubscribe(jobs)
	if _, ok := <-jobs.C; ok {
		t.Error("channel not closed after unsubscribe")
	}
}

func TestCatalogDefaults(t *testing.T) {
	dir := t.TempDir()
	s := NewCatalogService(dir)
	if _, err := os.Stat(filepath.Join(dir, "catalog.yaml")); err != nil {
		t.Errorf("default catalog not written: %v", err)
	}
	if got := NewCatalogService(dir).Providers(); len(got) != len(DefaultCatalog().Providers) {
		t.Errorf("reloaded providers = %d", len(got))
	}
	if len(s.Providers()) == 0 || len(s.Formats()) == 0 || len(s.Projections()) == 0 || len(s.Topics()) == 0 {
		t.Fatal("default catalog has an empty section")
	}
	if _, err := s.Provider("osm"); err != nil {
		t.Error(err)
	}
	if _, err := s.Provider("nope"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("err = %v, want ErrProviderNotFound", err)
	}

	// Callers get copies.
	p := s.Providers()
	p[0].Name = "changed"
	if s.Providers()[0].Name == "changed" {
		t.Error("Providers returned the internal slice")
	}
}

func TestCatalogYAML(t *testing.T) {
	dir := t.TempDir()
	yml := `providers:
  - slug: custom
    name: Custom WMS
    service_type: wms
    level_to: 8
    max_selection: 50
    bytes_per_sq_km: 1000000
formats:
  - slug: gpkg
    name: GeoPackage
`
	if err := os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewCatalogService(dir)
	providers := s.Providers()
	if len(providers) != 1 || providers[0].Slug != "custom" || providers[0].MaxArea != 50 {
		t.Fatalf("providers = %+v", providers)
	}
	if len(s.Formats()) != 1 {
		t.Errorf("formats = %+v", s.Formats())
	}
	if len(s.Projections()) != len(DefaultCatalog().Projections) {
		t.Error("missing section did not fall back to defaults")
	}

	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	if got := NewCatalogService(dir).Providers(); len(got) != 1 || got[0].BytesPerSqKm != 1e6 {
		t.Errorf("reloaded providers = %+v", got)
	}
}

func TestCatalogBadYAMLUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte("providers: [unclosed"), 0644)
	if got := len(NewCatalogService(dir).Providers()); got != len(DefaultCatalog().Providers) {
		t.Errorf("providers = %d, want defaults", got)
	}
}

func TestEstimate(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(`providers:
  - slug: p
    max_selection: 100
    bytes_per_sq_km: 2000000
`), 0644)
	s := NewCatalogService(dir)

	tests := []struct {
		areaSqM  float64
		wantMB   float64
		wantBig  bool
		wantSqKm float64
	}{
		{0, 0, false, 0},
		{10e6, 20, false, 10},
		{200e6, 400, true, 200},
		{-5, 0, false, 0},
	}
	for _, tt := range tests {
		e, err := s.Estimate("p", tt.areaSqM)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(e.Size-tt.wantMB) > 1e-9 || e.TooBig != tt.wantBig || math.Abs(e.AreaSqKm-tt.wantSqKm) > 1e-9 {
			t.Errorf("Estimate(%v) = %+v", tt.areaSqM, e)
		}
		if e.Time != estimateBaseSeconds+tt.wantMB*estimateSecondsPerMB {
			t.Errorf("Estimate(%v).Time = %v", tt.areaSqM, e.Time)
		}
	}

	if _, err := s.Estimate("missing", 1); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("err = %v", err)
	}
}

func newJobService(t *testing.T, bus *EventBus) *JobService {
	t.Helper()
	conn, err := db.Open(context.Background(), db.Config{Extensions: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	dir := t.TempDir()
	return NewJobService(conn, dir, NewCatalogService(dir), bus)
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	bus := NewEventBus()
	sub := bus.Subscribe(ResourceJobs)
	s := newJobService(t, bus)

	job, err := s.Submit(ctx, JobRequest{
		Name:          "Flood response",
		Description:   "Roads and buildings",
		Project:       "Relief",
		Providers:     []string{"osm"},
		Formats:       []string{"gpkg"},
		Projections:   []int{4326},
		SelectionType: "box",
		Area:          square(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if job.UID == "" || job.Status != JobSubmitted || job.AreaSqKm <= 0 {
		t.Errorf("job = %+v", job)
	}
	if want := []float64{9.9, 9.9, 10.1, 10.1}; len(job.BBox) != 4 || job.BBox[0] != want[0] || job.BBox[3] != want[3] {
		t.Errorf("bbox = %v", job.BBox)
	}
	if job.Preview == "" {
		t.Error("no preview written")
	}
	if _, err := os.Stat(s.PreviewPath(job.UID)); err != nil {
		t.Error(err)
	}
	if _, err := os.Stat(filepath.Join(s.JobsDir(), job.UID, "aoi.geojson")); err != nil {
		t.Error(err)
	}
	if e := <-sub.C; e.Action != "created" || e.ID != job.UID {
		t.Errorf("event = %+v", e)
	}

	got, err := s.Get(ctx, job.UID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != job.Name || got.SelectionType != "box" || len(got.Providers) != 1 || got.Projections[0] != 4326 || !got.CreatedAt.Equal(job.CreatedAt) {
		t.Errorf("Get = %+v, want %+v", got, job)
	}

	g, err := s.Geometry(ctx, job.UID)
	if err != nil {
		t.Fatal(err)
	}
	if !orb.Equal(g, square().Features[0].Geometry) {
		t.Errorf("geometry = %v", g)
	}

	if err := s.SetStatus(ctx, job.UID, JobCompleted); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(ctx, job.UID); got.Status != JobCompleted {
		t.Errorf("status = %s", got.Status)
	}

	jobs, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Errorf("List = %d jobs", len(jobs))
	}

	if err := s.Delete(ctx, job.UID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, job.UID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
	if err := s.Delete(ctx, job.UID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestJobSubmitRejects(t *testing.T) {
	ctx := context.Background()
	s := newJobService(t, nil)

	bowtie := geojson.NewFeatureCollection()
	bowtie.Append(geojson.NewFeature(orb.Polygon{{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}}))

	tests := []struct {
		name string
		req  JobRequest
		want error
	}{
		{"no area", JobRequest{Name: "x", Providers: []string{"osm"}}, ErrEmptyArea},
		{"unknown provider", JobRequest{Name: "x", Providers: []string{"nope"}, Area: square()}, ErrProviderNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Submit(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := s.Submit(ctx, JobRequest{Name: "x", Area: bowtie}); err == nil || !strings.Contains(err.Error(), "invalid area") {
		t.Errorf("bowtie err = %v", err)
	}
	if jobs, _ := s.List(ctx); len(jobs) != 0 {
		t.Errorf("rejected jobs were stored: %d", len(jobs))
	}
}

func TestImports(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(ResourceImports)
	s := NewImportService(t.TempDir(), bus)

	files, err := s.List()
	if err != nil || len(files) != 0 {
		t.Fatalf("List on missing dir = %v, %v", files, err)
	}

	fc, err := s.Save("site.wkt", []byte("POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"))
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 1 {
		t.Errorf("features = %d", len(fc.Features))
	}
	if e := <-sub.C; e.Action != "created" || e.ID != "site.wkt" {
		t.Errorf("event = %+v", e)
	}

	files, _ = s.List()
	if len(files) != 1 || files[0].FileType != "WKT" || !strings.HasSuffix(files[0].Size, "B") {
		t.Errorf("List = %+v", files)
	}

	loaded, err := s.Load("site.wkt")
	if err != nil || len(loaded.Features) != 1 {
		t.Errorf("Load = %v, %v", loaded, err)
	}

	if err := s.Delete("site.wkt"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load("site.wkt"); !errors.Is(err, ErrImportNotFound) {
		t.Errorf("Load after delete err = %v", err)
	}
}

func TestImportsReject(t *testing.T) {
	s := NewImportService(t.TempDir(), nil)
	tests := []struct {
		name string
		data string
		want error
	}{
		{"../escape.wkt", "POINT(0 0)", ErrInvalidFilename},
		{"dir/file.wkt", "POINT(0 0)", ErrInvalidFilename},
		{"", "POINT(0 0)", ErrInvalidFilename},
		{"area.shp", "x", importer.ErrUnsupportedFormat},
		{"empty.geojson", `{"type":"FeatureCollection","features":[]}`, importer.ErrNoFeatures},
	}
	for _, tt := range tests {
		if _, err := s.Save(tt.name, []byte(tt.data)); !errors.Is(err, tt.want) {
			t.Errorf("Save(%q) err = %v, want %v", tt.name, err, tt.want)
		}
	}
	if files, _ := s.List(); len(files) != 0 {
		t.Errorf("rejected files were stored: %+v", files)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{10 << 20, "10.0 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.in); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
