package colorramp

import (
	"image/color"
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{-3, 0},
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{2.5, 3},
		{3.49, 3},
		{4, 4},
		{12, 4},
		{math.NaN(), 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Level(tc.v), "Level(%v)", tc.v)
	}
}

func TestDiscreteBands(t *testing.T) {
	d := NewDiscrete()
	assert.Equal(t, color.RGBA{0x4c, 0xaf, 0x50, 255}, d.Color(0))
	assert.Equal(t, color.RGBA{0xf4, 0x43, 0x36, 255}, d.Color(4))
	assert.Equal(t, d.Color(3), d.Color(2.7))
}

func TestRampsAreMonotonic(t *testing.T) {
	for _, kind := range []Kind{KindDiscrete, KindGradient} {
		t.Run(string(kind), func(t *testing.T) {
			r, err := New(kind)
			require.NoError(t, err)

			prev := r.Position(-1)
			for v := -1.0; v <= 5; v += 0.01 {
				p := r.Position(v)
				assert.GreaterOrEqual(t, p, prev, "Position(%v)", v)
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
				prev = p
			}
		})
	}
}

func TestPaletteCoolToWarm(t *testing.T) {
	// hue falls from green towards red as risk rises
	prevHue := 360.0
	for _, b := range Bands {
		c, err := colorful.Hex(b.Hex)
		require.NoError(t, err)
		h, _, _ := c.Hsv()
		assert.Less(t, h, prevHue, "band %d", b.Level)
		prevHue = h
	}
}

func TestGradientHitsStops(t *testing.T) {
	g := NewGradient()
	d := NewDiscrete()
	for level := 0; level <= 4; level++ {
		assert.Equal(t, d.Color(float64(level)), g.Color(float64(level)))
	}
	mid := g.Color(0.5)
	assert.NotEqual(t, d.Color(0), mid)
	assert.NotEqual(t, d.Color(1), mid)
	assert.Equal(t, g.Color(4), g.Color(9))
}

func TestDeterministic(t *testing.T) {
	g := NewGradient()
	assert.Equal(t, g.Color(1.2345), NewGradient().Color(1.2345))
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New("rainbow")
	assert.Error(t, err)
	r, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &Discrete{}, r)
}
