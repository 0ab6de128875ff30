// Package aoi holds the Area of Interest geometry functions: conversion
// between map geometries and GeoJSON, buffering, validity and shape checks,
// dateline unwrapping, and pixel/tile hit-testing.
//
// GeoJSON at the package boundary is always EPSG:4326. Map-native geometries
// are in the coordinates of a [Projection], EPSG:3857 for the default web map.
package aoi

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// ErrUnknownProjection is returned for projection codes this package does not know.
var ErrUnknownProjection = errors.New("unknown projection")

// Projection describes a map projection with a finite, repeating world extent.
type Projection struct {
	Code      string
	Extent    orb.Bound
	ToWGS84   orb.Projection
	FromWGS84 orb.Projection
}

// mercatorHalfWidth is half the EPSG:3857 world width in meters.
const mercatorHalfWidth = 20037508.342789244

var identity orb.Projection = func(p orb.Point) orb.Point { return p }

// EPSG4326 is geographic longitude/latitude in degrees.
var EPSG4326 = Projection{
	Code:      "EPSG:4326",
	Extent:    orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}},
	ToWGS84:   identity,
	FromWGS84: identity,
}

// EPSG3857 is spherical web mercator in meters.
var EPSG3857 = Projection{
	Code: "EPSG:3857",
	Extent: orb.Bound{
		Min: orb.Point{-mercatorHalfWidth, -mercatorHalfWidth},
		Max: orb.Point{mercatorHalfWidth, mercatorHalfWidth},
	},
	ToWGS84:   project.Mercator.ToWGS84,
	FromWGS84: project.WGS84.ToMercator,
}

// ProjectionByCode looks up one of the supported projections.
func ProjectionByCode(code string) (Projection, error) {
	switch code {
	case "EPSG:4326", "4326", "":
		return EPSG4326, nil
	case "EPSG:3857", "3857", "EPSG:900913":
		return EPSG3857, nil
	}
	return Projection{}, fmt.Errorf("%w: %q", ErrUnknownProjection, code)
}

// WorldWidth is the x span of one copy of the world.
func (p Projection) WorldWidth() float64 {
	return p.Extent.Max[0] - p.Extent.Min[0]
}

// IsGeographic reports whether coordinates are already longitude/latitude.
func (p Projection) IsGeographic() bool {
	return p.Code == EPSG4326.Code
}

// worldShift returns the x offset, a whole number of world widths, that
// moves x back into the projection extent. Zero when x is inside.
func (p Projection) worldShift(x float64) float64 {
	width := p.WorldWidth()
	if width <= 0 {
		return 0
	}
	switch {
	case x < p.Extent.Min[0]:
		worldsAway := math.Ceil((p.Extent.Min[0] - x) / width)
		return worldsAway * width
	case x > p.Extent.Max[0]:
		worldsAway := math.Ceil((x - p.Extent.Max[0]) / width)
		return -worldsAway * width
	}
	return 0
}

// toWGS84 transforms a map geometry into longitude/latitude.
func toWGS84(g orb.Geometry, proj Projection) orb.Geometry {
	if proj.IsGeographic() {
		return orb.Clone(g)
	}
	return project.Geometry(orb.Clone(g), proj.ToWGS84)
}

// fromWGS84 transforms a longitude/latitude geometry into map coordinates.
func fromWGS84(g orb.Geometry, proj Projection) orb.Geometry {
	if proj.IsGeographic() {
		return orb.Clone(g)
	}
	return project.Geometry(orb.Clone(g), proj.FromWGS84)
}
