package aoi

import (
	"github.com/paulmach/orb"
)

// View is the part of a map view the dateline functions care about.
type View struct {
	Center     orb.Point
	Resolution float64 // map units per pixel
	Projection Projection
}

// UnwrapCoordinates moves every coordinate whose x lies outside the
// projection extent back by whole world widths. A map panned several times
// around the globe produces such coordinates.
func UnwrapCoordinates(coords []orb.Point, proj Projection) []orb.Point {
	out := make([]orb.Point, len(coords))
	for i, c := range coords {
		out[i] = orb.Point{c[0] + proj.worldShift(c[0]), c[1]}
	}
	return out
}

// UnwrapExtent shifts an extent by whole world widths so that its center is
// inside the projection extent. The width is kept, so an extent straddling
// the antimeridian may still reach past it on one side.
func UnwrapExtent(extent orb.Bound, proj Projection) orb.Bound {
	shift := proj.worldShift(extent.Center()[0])
	if shift == 0 {
		return extent
	}
	return orb.Bound{
		Min: orb.Point{extent.Min[0] + shift, extent.Min[1]},
		Max: orb.Point{extent.Max[0] + shift, extent.Max[1]},
	}
}

// UnwrapGeometry moves a whole geometry by whole world widths so its bound
// center lies inside the projection extent. All vertices move together,
// which keeps rings closed and shapes from tearing at the seam.
func UnwrapGeometry(g orb.Geometry, proj Projection) orb.Geometry {
	if g == nil {
		return nil
	}
	shift := proj.worldShift(g.Bound().Center()[0])
	if shift == 0 {
		return orb.Clone(g)
	}
	return translateX(orb.Clone(g), shift)
}

// IsViewOutsideValidExtent reports whether the view center has drifted out
// of the canonical world.
func IsViewOutsideValidExtent(v View) bool {
	x := v.Center[0]
	return x < v.Projection.Extent.Min[0] || x > v.Projection.Extent.Max[0]
}

// GoToValidExtent recenters the view inside the canonical world, keeping the
// same visual position, and returns the new center.
func GoToValidExtent(v *View) orb.Point {
	unwrapped := UnwrapCoordinates([]orb.Point{v.Center}, v.Projection)
	v.Center = unwrapped[0]
	return v.Center
}

// translateX shifts every vertex of g by dx in place and returns g.
func translateX(g orb.Geometry, dx float64) orb.Geometry {
	shift := func(pts []orb.Point) {
		for i := range pts {
			pts[i][0] += dx
		}
	}
	switch g := g.(type) {
	case orb.Point:
		return orb.Point{g[0] + dx, g[1]}
	case orb.MultiPoint:
		shift(g)
	case orb.LineString:
		shift(g)
	case orb.Ring:
		shift(g)
	case orb.MultiLineString:
		for _, ls := range g {
			shift(ls)
		}
	case orb.Polygon:
		for _, r := range g {
			shift(r)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			for _, r := range p {
				shift(r)
			}
		}
	case orb.Collection:
		for i := range g {
			g[i] = translateX(g[i], dx)
		}
	case orb.Bound:
		g.Min[0] += dx
		g.Max[0] += dx
		return g
	}
	return g
}
