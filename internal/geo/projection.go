package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Projection converts between geographic coordinates and the projected plane
// the map widget renders in.
type Projection interface {
	Project(lon, lat float64) (x, y float64)
	Unproject(x, y float64) (lon, lat float64)
}

type webMercator struct{}

// WebMercator is the EPSG:3857 <-> EPSG:4326 pair used by tiled web maps.
var WebMercator Projection = webMercator{}

func (webMercator) Project(lon, lat float64) (float64, float64) {
	p := project.WGS84.ToMercator(orb.Point{lon, lat})
	return p[0], p[1]
}

func (webMercator) Unproject(x, y float64) (float64, float64) {
	p := project.Mercator.ToWGS84(orb.Point{x, y})
	return p[0], p[1]
}

type identity struct{}

// Identity treats projected coordinates as lon/lat. Useful when the viewport
// extent is already expressed in degrees.
var Identity Projection = identity{}

func (identity) Project(lon, lat float64) (float64, float64) { return lon, lat }
func (identity) Unproject(x, y float64) (float64, float64) { return x, y }
