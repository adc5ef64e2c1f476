package raster

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-pestmap/internal/colorramp"
	"github.com/joeblew999/plat-pestmap/internal/geo"
	"github.com/joeblew999/plat-pestmap/internal/idw"
)

// square boundary 0..10 in both axes, viewed as one degree per pixel.
func squareFixture(t *testing.T, opts ...Option) (*Rasterizer, geo.Viewport, *idw.Interpolator) {
	t.Helper()
	b := geo.NewBoundary(orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}})
	r := New(b, append([]Option{WithProjection(geo.Identity)}, opts...)...)
	vp := geo.NewViewport(-5, -5, 15, 15, 20, 20, 1)
	in, err := idw.New([]idw.Sample{{Lon: 5, Lat: 5, Value: 2}})
	require.NoError(t, err)
	return r, vp, in
}

func TestRenderNoSamplesIsTransparent(t *testing.T) {
	r, vp, _ := squareFixture(t)
	c, err := r.Render(nil, vp)
	require.NoError(t, err)
	assert.Equal(t, 20, c.Width())
	assert.Equal(t, 20, c.Height())
	assert.True(t, c.Transparent())
	assert.Zero(t, c.Painted())
	assert.Len(t, c.Pix(), 20*20*4)
}

func TestRenderInvalidViewport(t *testing.T) {
	r, _, in := squareFixture(t)
	for name, vp := range map[string]geo.Viewport{
		"zero width":  geo.NewViewport(0, 0, 10, 10, 0, 10, 1),
		"flat extent": geo.NewViewport(0, 0, 0, 10, 10, 10, 1),
		"bad ratio":   geo.NewViewport(0, 0, 10, 10, 10, 10, 0),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Render(in, vp)
			assert.ErrorIs(t, err, geo.ErrInvalidViewport)
		})
	}
}

func TestRenderClipsToBoundary(t *testing.T) {
	r, vp, in := squareFixture(t, WithStep(FixedStep(1)))
	c, err := r.Render(in, vp)
	require.NoError(t, err)

	// pixel (10,10) is (5,5), inside
	want := colorramp.NewDiscrete().Color(2)
	got := c.At(10, 10)
	assert.Equal(t, want.R, got.R)
	assert.Equal(t, want.G, got.G)
	assert.Equal(t, want.B, got.B)
	assert.Equal(t, uint8(DefaultAlpha), got.A)

	// pixel (0,0) is (-5,15), outside
	assert.Zero(t, c.At(0, 0).A)
	assert.Zero(t, c.At(19, 19).A)
	assert.Positive(t, c.Painted())
	assert.Equal(t, 1, c.Step())
}

func TestRenderStepFillsBlocks(t *testing.T) {
	r, vp, in := squareFixture(t, WithStep(FixedStep(2)))
	c, err := r.Render(in, vp)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Step())

	x0, y0 := CellOrigin(11, 11, 2)
	assert.Equal(t, 10, x0)
	assert.Equal(t, 10, y0)
	assert.Equal(t, c.At(10, 10), c.At(11, 10))
	assert.Equal(t, c.At(10, 10), c.At(10, 11))
	assert.Equal(t, c.At(10, 10), c.At(11, 11))
}

func TestRenderIsDeterministic(t *testing.T) {
	r, vp, in := squareFixture(t)
	a, err := r.Render(in, vp)
	require.NoError(t, err)
	b, err := r.Render(in, vp)
	require.NoError(t, err)
	assert.Equal(t, a.Pix(), b.Pix())
	assert.Equal(t, a.Painted(), b.Painted())
}

func TestRenderAlpha(t *testing.T) {
	r, vp, in := squareFixture(t, WithAlpha(255))
	c, err := r.Render(in, vp)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), c.At(10, 10).A)
}

func TestStepFor(t *testing.T) {
	step := StepFor(DefaultStepBase)
	assert.Equal(t, 2, step(1))
	assert.Equal(t, 1, step(2))
	assert.Equal(t, 1, step(3))
	assert.Equal(t, 4, step(0.5))
	assert.Equal(t, 1, step(0))
	assert.Equal(t, 3, FixedStep(3)(2))
	assert.Equal(t, 1, FixedStep(0)(1))
}

func TestCanvasPNG(t *testing.T) {
	r, vp, in := squareFixture(t)
	c, err := r.Render(in, vp)
	require.NoError(t, err)

	data, err := c.PNG()
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
}

func TestCanvasANSI(t *testing.T) {
	r, vp, in := squareFixture(t)
	c, err := r.Render(in, vp)
	require.NoError(t, err)

	out := c.ANSI(10)
	assert.Len(t, strings.Split(out, "\n"), 5)
	assert.Contains(t, out, "█")
	assert.Empty(t, c.ANSI(0))
	assert.Empty(t, NewCanvas(0, 0).ANSI(10))
}
