// Package geo holds the geographic primitives shared by the renderer and the
// point inspector: the national boundary, the map projection and the viewport.
package geo

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

//go:embed data/korea.geojson
var defaultBoundaryGeoJSON []byte

// Boundary is a set of closed rings. A point is inside the boundary when it is
// inside any one ring, so disjoint landmasses are separate rings.
//
// Points exactly on a ring edge may resolve either way.
type Boundary struct {
	rings  []orb.Ring
	bounds []orb.Bound
}

// NewBoundary builds a boundary from rings. Open rings are closed and rings
// with fewer than three distinct vertices are ignored.
func NewBoundary(rings ...orb.Ring) *Boundary {
	b := &Boundary{}
	for _, r := range rings {
		if len(r) < 3 {
			continue
		}
		if !r.Closed() {
			closed := make(orb.Ring, len(r), len(r)+1)
			copy(closed, r)
			r = append(closed, r[0])
		}
		b.rings = append(b.rings, r)
		b.bounds = append(b.bounds, r.Bound())
	}
	return b
}

// Contains reports whether (lon, lat) lies inside any ring.
func (b *Boundary) Contains(lon, lat float64) bool {
	p := orb.Point{lon, lat}
	for i, r := range b.rings {
		// cheap bbox rejection before the O(vertices) crossing test
		if !b.bounds[i].Contains(p) {
			continue
		}
		if planar.RingContains(r, p) {
			return true
		}
	}
	return false
}

// Rings returns the boundary rings.
func (b *Boundary) Rings() []orb.Ring {
	return b.rings
}

// Bound returns the bounding box of all rings.
func (b *Boundary) Bound() orb.Bound {
	if len(b.bounds) == 0 {
		return orb.Bound{}
	}
	bound := b.bounds[0]
	for _, other := range b.bounds[1:] {
		bound = bound.Union(other)
	}
	return bound
}

// ParseBoundary reads the outer ring of every Polygon and MultiPolygon member
// of a GeoJSON FeatureCollection. Holes are not used.
func ParseBoundary(data []byte) (*Boundary, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing boundary geojson: %w", err)
	}

	var rings []orb.Ring
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if len(g) > 0 {
				rings = append(rings, g[0])
			}
		case orb.MultiPolygon:
			for _, poly := range g {
				if len(poly) > 0 {
					rings = append(rings, poly[0])
				}
			}
		case orb.Ring:
			rings = append(rings, g)
		}
	}

	b := NewBoundary(rings...)
	if len(b.rings) == 0 {
		return nil, fmt.Errorf("boundary geojson has no polygon rings")
	}
	return b, nil
}

// LoadBoundary reads a boundary GeoJSON file from disk.
func LoadBoundary(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading boundary: %w", err)
	}
	return ParseBoundary(data)
}

// DefaultBoundary returns the bundled South Korea outline (mainland + Jeju).
func DefaultBoundary() *Boundary {
	b, err := ParseBoundary(defaultBoundaryGeoJSON)
	if err != nil {
		panic(err)
	}
	return b
}
