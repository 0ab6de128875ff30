// Package tiler renders AOI feature collections into Mapbox Vector Tiles
// and packs them into PMTiles archives for job previews.
//
// Everything here is pure Go: orb does the clipping, simplification and
// MVT encoding, internal/pmtiles does the archive layout.
package tiler

import (
	"fmt"
	"io"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/eventkit-aoi/internal/aoi"
	"github.com/joeblew999/eventkit-aoi/internal/pmtiles"
)

// DefaultLayer is the MVT layer name used when none is given.
const DefaultLayer = "aoi"

// MaxZoom caps generation. AOIs are drawn by hand so deeper tiles add
// nothing but bytes.
const MaxZoom = 14

// Config controls tile generation.
type Config struct {
	Layer   string
	MinZoom int
	MaxZoom int
}

func (c Config) normalize() Config {
	if c.Layer == "" {
		c.Layer = DefaultLayer
	}
	if c.MinZoom < 0 {
		c.MinZoom = 0
	}
	if c.MaxZoom <= 0 || c.MaxZoom > MaxZoom {
		c.MaxZoom = MaxZoom
	}
	if c.MinZoom > c.MaxZoom {
		c.MinZoom = c.MaxZoom
	}
	return c
}

// ProgressFunc is called with progress updates during generation.
type ProgressFunc func(progress int, status string)

// Build renders every non-empty tile between the configured zooms.
func Build(fc *geojson.FeatureCollection, cfg Config, onProgress ProgressFunc) map[maptile.Tile][]byte {
	cfg = cfg.normalize()
	tiles := make(map[maptile.Tile][]byte)
	levels := cfg.MaxZoom - cfg.MinZoom + 1

	for z := cfg.MinZoom; z <= cfg.MaxZoom; z++ {
		for t, data := range buildZoom(fc, maptile.Zoom(z), cfg.Layer) {
			tiles[t] = data
		}
		if onProgress != nil {
			done := z - cfg.MinZoom + 1
			onProgress(done*90/levels, fmt.Sprintf("zoom %d: %d tiles", z, len(tiles)))
		}
	}
	return tiles
}

func buildZoom(fc *geojson.FeatureCollection, z maptile.Zoom, layer string) map[maptile.Tile][]byte {
	byTile := make(map[maptile.Tile][]*geojson.Feature)
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		for _, t := range tilesInBounds(f.Geometry.Bound(), z) {
			byTile[t] = append(byTile[t], f)
		}
	}

	out := make(map[maptile.Tile][]byte, len(byTile))
	for t, features := range byTile {
		if data := encode(t, features, layer); len(data) > 0 {
			out[t] = data
		}
	}
	return out
}

// EncodeTile renders a single gzipped MVT tile. It returns nil when no
// feature reaches the tile.
func EncodeTile(fc *geojson.FeatureCollection, t maptile.Tile, layer string) []byte {
	if layer == "" {
		layer = DefaultLayer
	}
	return encode(t, fc.Features, layer)
}

func encode(t maptile.Tile, features []*geojson.Feature, layerName string) []byte {
	bound := t.Bound()
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		if f.Geometry == nil || !geometryIntersectsTile(f.Geometry, bound) {
			continue
		}
		// Clip and ProjectToTile work in place.
		clone := geojson.NewFeature(orb.Clone(f.Geometry))
		for k, v := range f.Properties {
			clone.Properties[k] = v
		}
		fc.Append(clone)
	}
	if len(fc.Features) == 0 {
		return nil
	}

	layer := mvt.NewLayer(layerName, fc)
	if eps := simplifyEpsilon(t.Z); eps > 0 {
		layer.Simplify(simplify.DouglasPeucker(eps))
	}
	layer.Clip(bound)
	layer.ProjectToTile(t)
	layer.RemoveEmpty(0.5, 0.5)
	if len(layer.Features) == 0 {
		return nil
	}

	data, err := mvt.MarshalGzipped(mvt.Layers{layer})
	if err != nil {
		return nil
	}
	return data
}

// WriteArchive renders fc and writes it to w as a PMTiles archive.
func WriteArchive(w io.Writer, fc *geojson.FeatureCollection, cfg Config, onProgress ProgressFunc) error {
	cfg = cfg.normalize()
	if onProgress != nil {
		onProgress(0, "starting tile generation")
	}

	built := Build(fc, cfg, onProgress)
	if len(built) == 0 {
		return fmt.Errorf("no tiles generated for layer %q", cfg.Layer)
	}

	tiles := make([]pmtiles.Tile, 0, len(built))
	for t, data := range built {
		tiles = append(tiles, pmtiles.Tile{Z: uint8(t.Z), X: t.X, Y: t.Y, Data: data})
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Z < tiles[j].Z })

	b := fc.BBox
	bound := aoi.FeatureCollectionBound(fc)
	if len(b) == 4 {
		bound = orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}}
	}

	err := pmtiles.Write(w, tiles, pmtiles.Options{
		TileType:        pmtiles.Mvt,
		TileCompression: pmtiles.Gzip,
		MinZoom:         uint8(cfg.MinZoom),
		MaxZoom:         uint8(cfg.MaxZoom),
		Bounds:          [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
		Metadata: map[string]any{
			"name":        cfg.Layer,
			"format":      "pbf",
			"compression": "gzip",
			"minzoom":     cfg.MinZoom,
			"maxzoom":     cfg.MaxZoom,
			"vector_layers": []map[string]any{
				{"id": cfg.Layer, "minzoom": cfg.MinZoom, "maxzoom": cfg.MaxZoom, "fields": map[string]any{}},
			},
		},
	})
	if err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(100, fmt.Sprintf("wrote %d tiles", len(tiles)))
	}
	return nil
}

// geometryIntersectsTile refines the bounding box test for points and
// polygons. Lines are accepted on bounding box overlap.
func geometryIntersectsTile(g orb.Geometry, tile orb.Bound) bool {
	if !g.Bound().Intersects(tile) {
		return false
	}

	switch g := g.(type) {
	case orb.Point:
		return tile.Contains(g)
	case orb.MultiPoint:
		for _, p := range g {
			if tile.Contains(p) {
				return true
			}
		}
		return false
	case orb.Polygon:
		for _, ring := range g {
			for _, p := range ring {
				if tile.Contains(p) {
					return true
				}
			}
		}
		for _, p := range tile.ToRing()[:4] {
			if planar.PolygonContains(g, p) {
				return true
			}
		}
		return planar.PolygonContains(g, tile.Center())
	case orb.MultiPolygon:
		for _, poly := range g {
			if geometryIntersectsTile(poly, tile) {
				return true
			}
		}
		return false
	case orb.MultiLineString:
		for _, ls := range g {
			if geometryIntersectsTile(ls, tile) {
				return true
			}
		}
		return false
	case orb.Collection:
		for _, c := range g {
			if geometryIntersectsTile(c, tile) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// FitZoom returns the deepest zoom up to maxZoom at which bounds covers no
// more than maxTiles tiles. It never goes below 0.
func FitZoom(bounds orb.Bound, maxZoom, maxTiles int) int {
	for z := maxZoom; z > 0; z-- {
		if tileCount(bounds, maptile.Zoom(z)) <= uint64(maxTiles) {
			return z
		}
	}
	return 0
}

func tileCount(bounds orb.Bound, z maptile.Zoom) uint64 {
	last := int64(1)<<z - 1
	index := func(v uint32) int64 { return min(int64(v), last) }

	lo := maptile.At(bounds.Min, z)
	hi := maptile.At(bounds.Max, z)
	dx := index(hi.X) - index(lo.X)
	dy := index(hi.Y) - index(lo.Y)
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return uint64(dx+1) * uint64(dy+1)
}

// tilesInBounds returns all tiles at zoom z that intersect bounds.
func tilesInBounds(bounds orb.Bound, z maptile.Zoom) []maptile.Tile {
	lo := maptile.At(bounds.Min, z)
	hi := maptile.At(bounds.Max, z)

	minX, maxX := lo.X, hi.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := lo.Y, hi.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	tiles := make([]maptile.Tile, 0, (maxX-minX+1)*(maxY-minY+1))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			tiles = append(tiles, maptile.New(x, y, z))
		}
	}
	return tiles
}

// simplifyEpsilon is the Douglas-Peucker tolerance in degrees for zoom z,
// roughly a quarter pixel at that zoom.
func simplifyEpsilon(z maptile.Zoom) float64 {
	switch {
	case z >= 12:
		return 0
	case z >= 8:
		return 0.00005
	case z >= 4:
		return 0.0005
	default:
		return 0.005
	}
}
