// Package tiles maps XYZ web map tiles onto render viewports and packs a
// rendered tile pyramid into a single PMTiles archive.
package tiles

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-pestmap/internal/geo"
)

// Size is the edge length of a tile in CSS pixels.
const Size = 256

// MaxZoom is the deepest zoom level served.
const MaxZoom = 18

// Parse validates z/x/y and returns the tile.
func Parse(z, x, y int) (maptile.Tile, error) {
	if z < 0 || z > MaxZoom {
		return maptile.Tile{}, fmt.Errorf("zoom %d out of range [0, %d]", z, MaxZoom)
	}
	n := 1 << uint(z)
	if x < 0 || x >= n || y < 0 || y >= n {
		return maptile.Tile{}, fmt.Errorf("tile %d/%d/%d out of range", z, x, y)
	}
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), nil
}

// Viewport returns the Web Mercator viewport covering t at Size*pixelRatio
// device pixels.
func Viewport(t maptile.Tile, pixelRatio float64) geo.Viewport {
	px := int(float64(Size) * pixelRatio)
	return geo.ViewportFor(t.Bound(), geo.WebMercator, px, px, pixelRatio)
}

// Cover lists the tiles at zoom z intersecting a lon/lat bound, row-major.
func Cover(b orb.Bound, z maptile.Zoom) []maptile.Tile {
	a := maptile.At(b.Min, z)
	c := maptile.At(b.Max, z)
	minX, maxX := min(a.X, c.X), max(a.X, c.X)
	minY, maxY := min(a.Y, c.Y), max(a.Y, c.Y)

	out := make([]maptile.Tile, 0, int(maxX-minX+1)*int(maxY-minY+1))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			out = append(out, maptile.New(x, y, z))
		}
	}
	return out
}
