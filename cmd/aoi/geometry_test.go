package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

const square = `{"type":"Polygon","coordinates":[[[10,10],[11,10],[11,11],[10,11],[10,10]]]}`

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	out, err := execute(t, inspectCmd(), square)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"features: 1", "geomType: Polygon", "box: true", "valid: true", "bbox: [10, 10, 11, 11]"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestValidate(t *testing.T) {
	if out, err := execute(t, validateCmd(), square); err != nil || strings.TrimSpace(out) != "valid" {
		t.Errorf("square: out = %q, err = %v", out, err)
	}
	bowtie := `{"type":"Polygon","coordinates":[[[0,0],[1,1],[1,0],[0,1],[0,0]]]}`
	if _, err := execute(t, validateCmd(), bowtie); err == nil {
		t.Error("bowtie: expected error")
	}
}

func TestBufferFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pin.wkt")
	if err := os.WriteFile(path, []byte("POINT (85.3 27.7)"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, bufferCmd(), "", path, "--distance", "100")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"Polygon"`) {
		t.Errorf("buffered point is not a polygon:\n%s", out)
	}
}

func TestUnwrap(t *testing.T) {
	out, err := execute(t, unwrapCmd(), "", "--projection", "EPSG:4326", "190,5", "10,5")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Fields(out); len(got) != 2 || got[0] != "-170,5" || got[1] != "10,5" {
		t.Errorf("unwrap = %q", out)
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"1,2", false},
		{" 1.5 , -2 ", false},
		{"1", true},
		{"a,2", true},
		{"1,b", true},
	}
	for _, tt := range tests {
		if _, err := parsePoint(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("parsePoint(%q) err = %v", tt.in, err)
		}
	}
}
