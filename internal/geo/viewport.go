package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"go.uber.org/multierr"
)

// ErrInvalidViewport marks a malformed render request.
var ErrInvalidViewport = errors.New("invalid viewport")

// MaxSide is the largest accepted image width or height in pixels.
const MaxSide = 16384

// Viewport is the render request supplied by the map widget on every redraw.
// Extent is in projected units (meters for Web Mercator).
type Viewport struct {
	Extent     orb.Bound
	Resolution float64
	PixelRatio float64
	Width      int
	Height     int
}

// NewViewport builds a viewport from extent corners and pixel size.
func NewViewport(minX, minY, maxX, maxY float64, width, height int, pixelRatio float64) Viewport {
	v := Viewport{
		Extent:     orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}},
		PixelRatio: pixelRatio,
		Width:      width,
		Height:     height,
	}
	if width > 0 {
		v.Resolution = (maxX - minX) / float64(width)
	}
	return v
}

// Validate returns every problem with the viewport wrapped in ErrInvalidViewport.
func (v Viewport) Validate() error {
	var err error
	if v.Width <= 0 || v.Height <= 0 {
		err = multierr.Append(err, fmt.Errorf("pixel size %dx%d must be positive", v.Width, v.Height))
	} else if v.Width > MaxSide || v.Height > MaxSide {
		err = multierr.Append(err, fmt.Errorf("pixel size %dx%d exceeds %d", v.Width, v.Height, MaxSide))
	}
	if !finite(v.Extent.Min[0], v.Extent.Min[1], v.Extent.Max[0], v.Extent.Max[1]) {
		err = multierr.Append(err, errors.New("extent has non-finite coordinates"))
	} else if v.Extent.Max[0] <= v.Extent.Min[0] || v.Extent.Max[1] <= v.Extent.Min[1] {
		err = multierr.Append(err, fmt.Errorf("extent %v is empty or inverted", v.Extent))
	}
	if !finite(v.PixelRatio) || v.PixelRatio <= 0 {
		err = multierr.Append(err, fmt.Errorf("pixel ratio %v must be positive", v.PixelRatio))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidViewport, err)
	}
	return nil
}

// PixelToMap maps an image pixel to projected coordinates. Row 0 is the
// maximum Y of the extent.
func (v Viewport) PixelToMap(px, py int) (x, y float64) {
	minX, minY := v.Extent.Min[0], v.Extent.Min[1]
	maxX, maxY := v.Extent.Max[0], v.Extent.Max[1]
	x = minX + (float64(px)/float64(v.Width))*(maxX-minX)
	y = maxY - (float64(py)/float64(v.Height))*(maxY-minY)
	return x, y
}

// PixelToGeo maps an image pixel to lon/lat through proj.
func (v Viewport) PixelToGeo(px, py int, proj Projection) (lon, lat float64) {
	x, y := v.PixelToMap(px, py)
	return proj.Unproject(x, y)
}

// ViewportFor returns a viewport covering the lon/lat bound in proj space.
func ViewportFor(b orb.Bound, proj Projection, width, height int, pixelRatio float64) Viewport {
	minX, minY := proj.Project(b.Min[0], b.Min[1])
	maxX, maxY := proj.Project(b.Max[0], b.Max[1])
	return NewViewport(minX, minY, maxX, maxY, width, height, pixelRatio)
}

func finite(vals ...float64) bool {
	for _, f := range vals {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
