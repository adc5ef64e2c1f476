// Package colorramp maps interpolated risk values onto colours.
package colorramp

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Band is one step of the five-level risk taxonomy.
type Band struct {
	Level int    `json:"level" doc:"Risk level 0-4"`
	Label string `json:"label" doc:"Short label"`
	Hex   string `json:"color" doc:"Band colour (CSS hex)" example:"#f44336"`
}

// Bands is the reference palette, coolest first.
var Bands = []Band{
	{0, "safe", "#4caf50"},
	{1, "attention", "#cddc39"},
	{2, "caution", "#ffeb3b"},
	{3, "warning", "#ff9800"},
	{4, "danger", "#f44336"},
}

// Ramp maps a value on the 0-4 risk scale to an opaque colour.
type Ramp interface {
	Color(v float64) color.RGBA
	// Position places v along the palette in [0,1]. A higher position is
	// never a cooler colour.
	Position(v float64) float64
}

// Kind names a ramp implementation.
type Kind string

const (
	KindDiscrete Kind = "discrete"
	KindGradient Kind = "gradient"
)

// New returns the ramp for kind; empty means discrete.
func New(kind Kind) (Ramp, error) {
	switch kind {
	case "", KindDiscrete:
		return NewDiscrete(), nil
	case KindGradient:
		return NewGradient(), nil
	}
	return nil, fmt.Errorf("unknown color ramp %q", kind)
}

// Level rounds v to the nearest risk level and clamps it to [0,4].
func Level(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	l := math.Round(v)
	switch {
	case l < 0:
		return 0
	case l > float64(len(Bands)-1):
		return len(Bands) - 1
	}
	return int(l)
}

func palette() []colorful.Color {
	out := make([]colorful.Color, len(Bands))
	for i, b := range Bands {
		c, err := colorful.Hex(b.Hex)
		if err != nil {
			panic(err)
		}
		out[i] = c
	}
	return out
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Discrete paints the band of Level(v), so a pixel's colour always agrees with
// the risk level reported for the same value.
type Discrete struct {
	colors []color.RGBA
}

// NewDiscrete returns the five-band ramp.
func NewDiscrete() *Discrete {
	d := &Discrete{}
	for _, c := range palette() {
		d.colors = append(d.colors, toRGBA(c))
	}
	return d
}

func (d *Discrete) Color(v float64) color.RGBA {
	return d.colors[Level(v)]
}

func (d *Discrete) Position(v float64) float64 {
	return float64(Level(v)) / float64(len(d.colors)-1)
}

// Gradient blends linearly in RGB between the band colours placed at 0..4.
type Gradient struct {
	stops []colorful.Color
}

// NewGradient returns the continuous ramp.
func NewGradient() *Gradient {
	return &Gradient{stops: palette()}
}

func (g *Gradient) Color(v float64) color.RGBA {
	t := g.Position(v) * float64(len(g.stops)-1)
	lo := int(math.Floor(t))
	if lo >= len(g.stops)-1 {
		return toRGBA(g.stops[len(g.stops)-1])
	}
	return toRGBA(g.stops[lo].BlendRgb(g.stops[lo+1], t-float64(lo)))
}

func (g *Gradient) Position(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	top := float64(len(g.stops) - 1)
	return math.Min(math.Max(v, 0), top) / top
}
