// Package raster paints the interpolated risk surface onto a pixel grid
// clipped to the national boundary.
package raster

import (
	"image/color"
	"math"

	"github.com/joeblew999/plat-pestmap/internal/colorramp"
	"github.com/joeblew999/plat-pestmap/internal/geo"
	"github.com/joeblew999/plat-pestmap/internal/idw"
)

// DefaultAlpha softens the blockiness of step > 1 renders.
const DefaultAlpha = 200

// DefaultStepBase is the numerator of the default step policy.
const DefaultStepBase = 2.0

// StepFunc chooses the pixel step for a device pixel ratio.
type StepFunc func(pixelRatio float64) int

// StepFor returns max(1, round(base/pixelRatio)): coarser sampling at high
// pixel density.
func StepFor(base float64) StepFunc {
	return func(pixelRatio float64) int {
		if pixelRatio <= 0 {
			return 1
		}
		return max(1, int(math.Round(base/pixelRatio)))
	}
}

// FixedStep ignores the pixel ratio.
func FixedStep(n int) StepFunc {
	return func(float64) int { return max(1, n) }
}

// Rasterizer renders an interpolator over a viewport. It keeps no state
// between calls.
type Rasterizer struct {
	boundary *geo.Boundary
	proj     geo.Projection
	ramp     colorramp.Ramp
	step     StepFunc
	alpha    uint8
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithProjection sets the viewport projection (default Web Mercator).
func WithProjection(p geo.Projection) Option {
	return func(r *Rasterizer) { r.proj = p }
}

// WithRamp sets the colour ramp (default discrete).
func WithRamp(ramp colorramp.Ramp) Option {
	return func(r *Rasterizer) { r.ramp = ramp }
}

// WithStep sets the step policy.
func WithStep(f StepFunc) Option {
	return func(r *Rasterizer) { r.step = f }
}

// WithAlpha sets the block alpha.
func WithAlpha(a uint8) Option {
	return func(r *Rasterizer) { r.alpha = a }
}

// New creates a rasterizer clipped to boundary.
func New(boundary *geo.Boundary, opts ...Option) *Rasterizer {
	r := &Rasterizer{
		boundary: boundary,
		proj:     geo.WebMercator,
		ramp:     colorramp.NewDiscrete(),
		step:     StepFor(DefaultStepBase),
		alpha:    DefaultAlpha,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Boundary returns the clip boundary.
func (r *Rasterizer) Boundary() *geo.Boundary { return r.boundary }

// Projection returns the projection used to map pixels to lon/lat.
func (r *Rasterizer) Projection() geo.Projection { return r.proj }

// Ramp returns the colour ramp.
func (r *Rasterizer) Ramp() colorramp.Ramp { return r.ramp }

// Step returns the pixel step for vp.
func (r *Rasterizer) Step(vp geo.Viewport) int { return r.step(vp.PixelRatio) }

// Render paints in over vp. A nil interpolator yields a transparent canvas.
// The only error is geo.ErrInvalidViewport.
func (r *Rasterizer) Render(in *idw.Interpolator, vp geo.Viewport) (*Canvas, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	c := NewCanvas(vp.Width, vp.Height)
	if in == nil || in.Len() == 0 {
		return c, nil
	}

	step := r.Step(vp)
	c.step = step
	for py := 0; py < vp.Height; py += step {
		for px := 0; px < vp.Width; px += step {
			lon, lat := vp.PixelToGeo(px, py, r.proj)
			if !r.boundary.Contains(lon, lat) {
				continue
			}
			rgb := r.ramp.Color(in.Interpolate(lon, lat))
			c.fill(px, py, step, color.NRGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: r.alpha})
			c.painted++
		}
	}
	return c, nil
}

// CellOrigin returns the top-left pixel of the step block containing (px, py).
func CellOrigin(px, py, step int) (int, int) {
	step = max(1, step)
	return px - px%step, py - py%step
}
