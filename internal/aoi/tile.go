package aoi

import (
	"math"

	"github.com/paulmach/orb"
)

// DefaultTileSize is the native pixel size of a tile.
const DefaultTileSize = 256

// TileGrid is a top-left origin tile pyramid. Resolutions are in map units
// per pixel, one per zoom level, descending.
type TileGrid struct {
	Projection  Projection
	Origin      orb.Point
	Resolutions []float64
	TileSize    int
}

// NewTileGrid builds the standard grid for a projection: one tile at zoom 0
// for EPSG:3857 and two side by side for EPSG:4326.
func NewTileGrid(proj Projection, tileSize, maxZoom int) TileGrid {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}

	width := proj.Extent.Max[0] - proj.Extent.Min[0]
	height := proj.Extent.Max[1] - proj.Extent.Min[1]
	z0 := math.Max(width, height) / float64(tileSize)
	if proj.IsGeographic() {
		z0 = height / float64(tileSize)
	}

	res := make([]float64, maxZoom+1)
	for z := range res {
		res[z] = z0 / math.Exp2(float64(z))
	}

	return TileGrid{
		Projection:  proj,
		Origin:      orb.Point{proj.Extent.Min[0], proj.Extent.Max[1]},
		Resolutions: res,
		TileSize:    tileSize,
	}
}

// ZForResolution returns the zoom level whose resolution is nearest.
func (g TileGrid) ZForResolution(res float64) int {
	z := 0
	best := math.Inf(1)
	for i, r := range g.Resolutions {
		if d := math.Abs(r - res); d < best {
			best, z = d, i
		}
	}
	return z
}

// ClickEvent is a map click: where it landed on the map and on screen.
type ClickEvent struct {
	Coordinate orb.Point
	Pixel      orb.Point
}

// TileCoordinate addresses a tile in XYZ order (row 0 at the top) plus a
// pixel inside the tile at its native size.
type TileCoordinate struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
	I int `json:"i"`
	J int `json:"j"`
}

// GetTileCoordinateFromClick finds the tile under a click at the viewport's
// resolution and the click position inside it, for feature-info requests.
func GetTileCoordinateFromClick(ev ClickEvent, grid TileGrid, vp Viewport) TileCoordinate {
	z := grid.ZForResolution(vp.Resolution)
	tileRes := grid.Resolutions[z]
	span := tileRes * float64(grid.TileSize)

	c := ev.Coordinate
	c[0] += grid.Projection.worldShift(c[0])

	col := int(math.Floor((c[0] - grid.Origin[0]) / span))
	// Rows counted up from the origin are negative below it.
	row := int(math.Floor((c[1] - grid.Origin[1]) / span))
	y := -row - 1

	// The click pixel and the tile corner must be in the same world copy.
	corner := orb.Point{
		grid.Origin[0] + float64(col)*span - (c[0] - ev.Coordinate[0]),
		grid.Origin[1] - float64(y)*span,
	}
	topLeft := vp.PixelFromCoordinate(corner)
	rendered := span / vp.Resolution
	scale := float64(grid.TileSize) / rendered

	return TileCoordinate{
		Z: z,
		X: col,
		Y: y,
		I: clamp(int(math.Floor((ev.Pixel[0]-topLeft[0])*scale)), 0, grid.TileSize-1),
		J: clamp(int(math.Floor((ev.Pixel[1]-topLeft[1])*scale)), 0, grid.TileSize-1),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
