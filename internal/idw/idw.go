// Package idw implements inverse-distance-weighted interpolation over a
// sparse, immutable set of samples.
package idw

import (
	"errors"
	"math"
)

const (
	// DefaultPower controls the falloff; higher values favour the nearest samples.
	DefaultPower = 2.5
	// DefaultSnap is the distance in degrees (~100m) under which a query
	// returns the sample value unchanged.
	DefaultSnap = 0.001
)

// ErrNoSamples is returned by New for an empty sample set.
var ErrNoSamples = errors.New("idw: no samples")

// Sample is a located scalar value.
type Sample struct {
	Lon   float64 `json:"lon" yaml:"lon"`
	Lat   float64 `json:"lat" yaml:"lat"`
	Value float64 `json:"value" yaml:"value"`
}

// Option configures an Interpolator.
type Option func(*Interpolator)

// WithPower sets the distance exponent.
func WithPower(p float64) Option {
	return func(i *Interpolator) {
		if p > 0 {
			i.power = p
		}
	}
}

// WithSnap sets the snap distance in degrees.
func WithSnap(d float64) Option {
	return func(i *Interpolator) {
		if d >= 0 {
			i.snap = d
		}
	}
}

// Interpolator is safe for concurrent use; it never changes after New.
type Interpolator struct {
	samples []Sample
	power   float64
	snap    float64
}

// New copies samples into a fresh Interpolator.
func New(samples []Sample, opts ...Option) (*Interpolator, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	i := &Interpolator{
		samples: append([]Sample(nil), samples...),
		power:   DefaultPower,
		snap:    DefaultSnap,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Interpolate returns the weighted value at (lon, lat). Distances are planar
// Euclidean in degrees. The first sample within the snap distance wins.
func (i *Interpolator) Interpolate(lon, lat float64) float64 {
	var num, den float64
	for _, s := range i.samples {
		dx := lon - s.Lon
		dy := lat - s.Lat
		d := math.Sqrt(dx*dx + dy*dy)
		if d < i.snap || d == 0 {
			return s.Value
		}
		w := 1 / math.Pow(d, i.power)
		num += w * s.Value
		den += w
	}
	return num / den
}

// Samples returns a copy of the samples.
func (i *Interpolator) Samples() []Sample {
	return append([]Sample(nil), i.samples...)
}

// Len returns the number of samples.
func (i *Interpolator) Len() int { return len(i.samples) }

// Power returns the distance exponent.
func (i *Interpolator) Power() float64 { return i.power }

// Snap returns the snap distance.
func (i *Interpolator) Snap() float64 { return i.snap }
