package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderAoiSummary(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name string
		data map[string]any
		want []string
	}{
		{
			name: "selected",
			data: map[string]any{
				"HasAoi": true, "Title": "Kathmandu", "Description": "Box",
				"SelectionType": "box", "GeomType": "Polygon", "AreaSqKm": 25.04, "Buffer": 500.0,
			},
			want: []string{"Kathmandu", "Box", "Polygon", "25.0 km²", "500 m"},
		},
		{
			name: "empty",
			data: map[string]any{"HasAoi": false},
			want: []string{"No area selected"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := r.Render("aoi-summary", tt.data)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(html, w) {
					t.Errorf("missing %q in %s", w, html)
				}
			}
		})
	}
}

func TestRenderEscapes(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	html := r.MustRender("errors", []map[string]string{{"Title": "Invalid AOI", "Detail": "<script>"}})
	if strings.Contains(html, "<script>") {
		t.Errorf("detail not escaped: %s", html)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render("nope", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.html"), []byte(`{{define "x"}}{{km2 .}}{{end}}`), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(dir); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := r.MustRender("x", 0.5); got != "0.500 km²" {
		t.Errorf("got %q", got)
	}
}
