package idw

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmpty(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestExactAtSamples(t *testing.T) {
	samples := []Sample{
		{127.0, 37.5, 3},
		{129.0, 35.2, 0},
		{126.9, 35.1, 2},
		{128.6, 35.9, 4},
	}
	in, err := New(samples)
	require.NoError(t, err)

	for _, s := range samples {
		assert.Equal(t, s.Value, in.Interpolate(s.Lon, s.Lat))
		// inside the snap radius as well
		assert.Equal(t, s.Value, in.Interpolate(s.Lon+0.0005, s.Lat))
	}
}

func TestMidpointMatchesFormula(t *testing.T) {
	a := Sample{127.0, 37.5, 3}
	b := Sample{129.0, 35.2, 0}
	in, err := New([]Sample{a, b})
	require.NoError(t, err)

	lon, lat := (a.Lon+b.Lon)/2, (a.Lat+b.Lat)/2
	got := in.Interpolate(lon, lat)

	wa := 1 / math.Pow(math.Hypot(lon-a.Lon, lat-a.Lat), 2.5)
	wb := 1 / math.Pow(math.Hypot(lon-b.Lon, lat-b.Lat), 2.5)
	want := (wa*a.Value + wb*b.Value) / (wa + wb)

	assert.InDelta(t, want, got, 1e-12)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 3.0)
	// equidistant: both weights equal
	assert.InDelta(t, 1.5, got, 1e-9)

	// nearer the first sample pulls towards its value
	near := in.Interpolate(127.5, 36.9)
	assert.Greater(t, near, 1.5)
}

func TestDeterministic(t *testing.T) {
	samples := []Sample{{127.0, 37.5, 3}, {129.0, 35.2, 0}, {126.5, 34.8, 1}}
	a, _ := New(samples)
	b, _ := New(samples)

	for _, q := range [][2]float64{{127.3, 36.1}, {128.1, 35.5}, {126.7, 35.0}} {
		v1 := a.Interpolate(q[0], q[1])
		v2 := a.Interpolate(q[0], q[1])
		v3 := b.Interpolate(q[0], q[1])
		assert.Equal(t, math.Float64bits(v1), math.Float64bits(v2))
		assert.Equal(t, math.Float64bits(v1), math.Float64bits(v3))
	}
}

func TestOptions(t *testing.T) {
	samples := []Sample{{0, 0, 0}, {1, 0, 1}}
	in, err := New(samples, WithPower(1), WithSnap(0.5))
	require.NoError(t, err)
	assert.Equal(t, 1.0, in.Power())
	assert.Equal(t, 0.5, in.Snap())

	// within 0.5 of the second sample
	assert.Equal(t, 1.0, in.Interpolate(0.7, 0))

	// invalid values keep defaults
	in, _ = New(samples, WithPower(-1), WithSnap(-1))
	assert.Equal(t, DefaultPower, in.Power())
	assert.Equal(t, DefaultSnap, in.Snap())
}

func TestSamplesAreCopied(t *testing.T) {
	samples := []Sample{{0, 0, 1}}
	in, _ := New(samples)
	samples[0].Value = 9

	assert.Equal(t, 1.0, in.Interpolate(0, 0))
	out := in.Samples()
	out[0].Value = 7
	assert.Equal(t, 1.0, in.Interpolate(0, 0))
	assert.Equal(t, 1, in.Len())
}
