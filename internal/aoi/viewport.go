package aoi

import (
	"math"

	"github.com/paulmach/orb"
)

// Viewport is a View rendered into a pixel area of Size[0] x Size[1].
// Pixel (0,0) is the top-left corner. Rotation is not supported.
type Viewport struct {
	View
	Size [2]float64
}

// PixelFromCoordinate maps a coordinate in the view projection to a pixel.
func (v Viewport) PixelFromCoordinate(c orb.Point) orb.Point {
	return orb.Point{
		(c[0]-v.Center[0])/v.Resolution + v.Size[0]/2,
		(v.Center[1]-c[1])/v.Resolution + v.Size[1]/2,
	}
}

// CoordinateFromPixel is the inverse of PixelFromCoordinate.
func (v Viewport) CoordinateFromPixel(p orb.Point) orb.Point {
	return orb.Point{
		v.Center[0] + (p[0]-v.Size[0]/2)*v.Resolution,
		v.Center[1] - (p[1]-v.Size[1]/2)*v.Resolution,
	}
}

// Extent is the visible bound.
func (v Viewport) Extent() orb.Bound {
	hw := v.Size[0] / 2 * v.Resolution
	hh := v.Size[1] / 2 * v.Resolution
	return orb.Bound{
		Min: orb.Point{v.Center[0] - hw, v.Center[1] - hh},
		Max: orb.Point{v.Center[0] + hw, v.Center[1] + hh},
	}
}

// Fit returns a copy of the viewport centered on b at the resolution that
// shows all of it, leaving padding pixels on every side.
func (v Viewport) Fit(b orb.Bound, padding float64) Viewport {
	out := v
	out.Center = b.Center()

	w := v.Size[0] - 2*padding
	h := v.Size[1] - 2*padding
	if w <= 0 || h <= 0 {
		w, h = v.Size[0], v.Size[1]
	}
	if w <= 0 || h <= 0 {
		return out
	}

	if res := math.Max((b.Right()-b.Left())/w, (b.Top()-b.Bottom())/h); res > 0 {
		out.Resolution = res
	}
	return out
}
