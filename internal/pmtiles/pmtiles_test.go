package pmtiles

import (
	"bytes"
	"errors"
	"testing"
)

func TestZxyToID(t *testing.T) {
	tests := []struct {
		z    uint8
		x, y uint32
		want uint64
	}{
		{0, 0, 0, 0},
		{1, 0, 0, 1},
		{1, 0, 1, 2},
		{1, 1, 1, 3},
		{1, 1, 0, 4},
		{2, 0, 0, 5},
	}
	for _, tt := range tests {
		if got := ZxyToID(tt.z, tt.x, tt.y); got != tt.want {
			t.Errorf("ZxyToID(%d, %d, %d) = %d, want %d", tt.z, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := HeaderV3{
		SpecVersion:         3,
		RootOffset:          127,
		RootLength:          20,
		MetadataOffset:      147,
		MetadataLength:      30,
		TileDataOffset:      177,
		TileDataLength:      1000,
		AddressedTilesCount: 7,
		TileEntriesCount:    7,
		TileContentsCount:   7,
		Clustered:           true,
		InternalCompression: Gzip,
		TileCompression:     Gzip,
		TileType:            Mvt,
		MinZoom:             2,
		MaxZoom:             12,
		MinLonE7:            -1800000000,
		MinLatE7:            -850000000,
		MaxLonE7:            1800000000,
		MaxLatE7:            850000000,
		CenterZoom:          4,
		CenterLonE7:         -1234567,
		CenterLatE7:         7654321,
	}

	b := SerializeHeader(h)
	if len(b) != HeaderV3LenBytes {
		t.Fatalf("header length = %d, want %d", len(b), HeaderV3LenBytes)
	}
	got, err := DeserializeHeader(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("round trip = %+v, want %+v", got, h)
	}

	if _, err := DeserializeHeader(bytes.Repeat([]byte{0}, HeaderV3LenBytes)); err == nil {
		t.Error("expected magic number error")
	}
}

func TestEntriesRoundTrip(t *testing.T) {
	entries := []EntryV3{
		{TileID: 0, Offset: 0, Length: 10, RunLength: 1},
		{TileID: 1, Offset: 10, Length: 5, RunLength: 1},
		{TileID: 5, Offset: 100, Length: 7, RunLength: 3},
	}
	for _, c := range []Compression{NoCompression, Gzip} {
		b, err := SerializeEntries(entries, c)
		if err != nil {
			t.Fatal(err)
		}
		got, err := DeserializeEntries(b, c)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(entries) {
			t.Fatalf("entries = %d, want %d", len(got), len(entries))
		}
		for i := range entries {
			if got[i] != entries[i] {
				t.Errorf("compression %d entry %d = %+v, want %+v", c, i, got[i], entries[i])
			}
		}
	}

	if _, err := SerializeEntries(entries, Brotli); !errors.Is(err, ErrCompression) {
		t.Errorf("brotli err = %v, want ErrCompression", err)
	}
}

func TestFindTileRunLength(t *testing.T) {
	entries := []EntryV3{
		{TileID: 1, Length: 1, RunLength: 1},
		{TileID: 5, Length: 1, RunLength: 3},
	}
	for id, want := range map[uint64]bool{0: false, 1: true, 2: false, 5: true, 7: true, 8: false} {
		if _, ok := FindTile(entries, id); ok != want {
			t.Errorf("FindTile(%d) = %v, want %v", id, ok, want)
		}
	}
}

func TestWriteRead(t *testing.T) {
	tiles := []Tile{
		{Z: 1, X: 1, Y: 0, Data: []byte("ne")},
		{Z: 0, X: 0, Y: 0, Data: []byte("world")},
		{Z: 1, X: 0, Y: 1, Data: []byte("sw")},
	}
	var buf bytes.Buffer
	err := Write(&buf, tiles, Options{
		TileType:        Mvt,
		TileCompression: Gzip,
		MaxZoom:         1,
		Bounds:          [4]float64{-10, -5, 10, 5},
		Metadata:        map[string]any{"name": "aoi"},
	})
	if err != nil {
		t.Fatal(err)
	}

	a, err := Read(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != 3 || a.Header.MaxZoom != 1 || a.Header.MinLonE7 != -100000000 {
		t.Errorf("header = %+v", a.Header)
	}
	if a.Metadata["name"] != "aoi" {
		t.Errorf("metadata = %v", a.Metadata)
	}

	for _, want := range tiles {
		got, err := a.Tile(want.Z, want.X, want.Y)
		if err != nil {
			t.Fatalf("tile %d/%d/%d: %v", want.Z, want.X, want.Y, err)
		}
		if string(got) != string(want.Data) {
			t.Errorf("tile %d/%d/%d = %q, want %q", want.Z, want.X, want.Y, got, want.Data)
		}
	}
	if _, err := a.Tile(1, 1, 1); !errors.Is(err, ErrTileMissing) {
		t.Errorf("missing tile err = %v", err)
	}
}
