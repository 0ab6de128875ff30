package pmtiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

// Tile is one tile to be written.
type Tile struct {
	Z    uint8
	X, Y uint32
	Data []byte
}

// Options describe the archive being written.
type Options struct {
	TileType        TileType
	TileCompression Compression
	MinZoom         uint8
	MaxZoom         uint8
	// Bounds is [west, south, east, north] in degrees.
	Bounds   [4]float64
	Metadata map[string]any
}

// Write writes a clustered archive with a gzip root directory and metadata.
func Write(w io.Writer, tiles []Tile, opts Options) error {
	if len(tiles) == 0 {
		return errors.New("pmtiles: no tiles to write")
	}

	type idTile struct {
		id   uint64
		data []byte
	}
	sorted := make([]idTile, 0, len(tiles))
	for _, t := range tiles {
		sorted = append(sorted, idTile{id: ZxyToID(t.Z, t.X, t.Y), data: t.Data})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })

	entries := make([]EntryV3, 0, len(sorted))
	var offset uint64
	for _, t := range sorted {
		entries = append(entries, EntryV3{TileID: t.id, Offset: offset, Length: uint32(len(t.data)), RunLength: 1})
		offset += uint64(len(t.data))
	}

	root, err := SerializeEntries(entries, Gzip)
	if err != nil {
		return fmt.Errorf("serializing directory: %w", err)
	}
	meta, err := SerializeMetadata(opts.Metadata, Gzip)
	if err != nil {
		return fmt.Errorf("serializing metadata: %w", err)
	}

	e7 := func(v float64) int32 { return int32(math.Round(v * 1e7)) }
	h := HeaderV3{
		SpecVersion:         3,
		RootOffset:          HeaderV3LenBytes,
		RootLength:          uint64(len(root)),
		MetadataOffset:      HeaderV3LenBytes + uint64(len(root)),
		MetadataLength:      uint64(len(meta)),
		TileDataOffset:      HeaderV3LenBytes + uint64(len(root)) + uint64(len(meta)),
		TileDataLength:      offset,
		AddressedTilesCount: uint64(len(entries)),
		TileEntriesCount:    uint64(len(entries)),
		TileContentsCount:   uint64(len(entries)),
		Clustered:           true,
		InternalCompression: Gzip,
		TileCompression:     opts.TileCompression,
		TileType:            opts.TileType,
		MinZoom:             opts.MinZoom,
		MaxZoom:             opts.MaxZoom,
		MinLonE7:            e7(opts.Bounds[0]),
		MinLatE7:            e7(opts.Bounds[1]),
		MaxLonE7:            e7(opts.Bounds[2]),
		MaxLatE7:            e7(opts.Bounds[3]),
		CenterZoom:          opts.MinZoom,
		CenterLonE7:         e7((opts.Bounds[0] + opts.Bounds[2]) / 2),
		CenterLatE7:         e7((opts.Bounds[1] + opts.Bounds[3]) / 2),
	}

	for _, part := range [][]byte{SerializeHeader(h), root, meta} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	for _, t := range sorted {
		if _, err := w.Write(t.data); err != nil {
			return err
		}
	}
	return nil
}

// SerializeMetadata encodes metadata as compressed JSON.
func SerializeMetadata(metadata map[string]any, c Compression) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return compress(raw, c)
}

// Archive is an archive held in memory.
type Archive struct {
	Header   HeaderV3
	Metadata map[string]any
	entries  []EntryV3
	data     []byte
}

// Read parses an archive. Only archives without leaf directories are
// supported.
func Read(data []byte) (*Archive, error) {
	h, err := DeserializeHeader(data)
	if err != nil {
		return nil, err
	}
	if h.LeafDirectoryLength > 0 {
		return nil, ErrLeafDirs
	}
	if h.RootOffset+h.RootLength > uint64(len(data)) ||
		h.MetadataOffset+h.MetadataLength > uint64(len(data)) ||
		h.TileDataOffset+h.TileDataLength > uint64(len(data)) {
		return nil, errors.New("pmtiles: archive truncated")
	}

	entries, err := DeserializeEntries(data[h.RootOffset:h.RootOffset+h.RootLength], h.InternalCompression)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	meta := map[string]any{}
	if h.MetadataLength > 0 {
		raw, err := decompress(data[h.MetadataOffset:h.MetadataOffset+h.MetadataLength], h.InternalCompression)
		if err != nil {
			return nil, fmt.Errorf("reading metadata: %w", err)
		}
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("parsing metadata: %w", err)
		}
	}

	return &Archive{
		Header:   h,
		Metadata: meta,
		entries:  entries,
		data:     data[h.TileDataOffset : h.TileDataOffset+h.TileDataLength],
	}, nil
}

// Len is the number of directory entries.
func (a *Archive) Len() int { return len(a.entries) }

// Tile returns the stored bytes of a tile, still compressed with
// Header.TileCompression.
func (a *Archive) Tile(z uint8, x, y uint32) ([]byte, error) {
	e, ok := FindTile(a.entries, ZxyToID(z, x, y))
	if !ok {
		return nil, ErrTileMissing
	}
	end := e.Offset + uint64(e.Length)
	if end > uint64(len(a.data)) {
		return nil, errors.New("pmtiles: tile outside data section")
	}
	return a.data[e.Offset:end], nil
}
