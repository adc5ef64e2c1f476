// Package query answers click-to-inspect requests against the same
// interpolator the rasterizer paints from.
package query

import (
	"math"

	"github.com/joeblew999/plat-pestmap/internal/colorramp"
	"github.com/joeblew999/plat-pestmap/internal/geo"
	"github.com/joeblew999/plat-pestmap/internal/idw"
	"github.com/joeblew999/plat-pestmap/internal/region"
	"github.com/joeblew999/plat-pestmap/internal/surface"
)

// PointResult describes the interpolated risk at a point.
type PointResult struct {
	Lon         float64 `json:"lon" doc:"Query longitude"`
	Lat         float64 `json:"lat" doc:"Query latitude"`
	RiskLevel   int     `json:"riskLevel" doc:"Risk level 0-4"`
	RawValue    float64 `json:"rawValue" doc:"Interpolated value before rounding"`
	Probability int     `json:"probability" doc:"Probability (%) derived from the raw value"`
	Label       string  `json:"label" doc:"Risk band label"`
	Color       string  `json:"color" doc:"Risk band colour"`

	// Nearest region by center distance, with its weather if it has a prediction.
	Region      *region.Region `json:"region,omitempty" doc:"Nearest region"`
	Temperature *float64       `json:"temperature,omitempty" doc:"Nearest region temperature (°C)"`
	Humidity    *float64       `json:"humidity,omitempty" doc:"Nearest region humidity (%)"`
	Source      surface.Source `json:"source,omitempty" doc:"Nearest region data source"`
}

// Engine is stateless apart from its static reference data.
type Engine struct {
	boundary *geo.Boundary
	regions  *region.Table
}

// New creates a query engine.
func New(boundary *geo.Boundary, regions *region.Table) *Engine {
	return &Engine{boundary: boundary, regions: regions}
}

// Query returns nil when there is no interpolator or the point is outside
// the boundary.
func (e *Engine) Query(in *idw.Interpolator, preds surface.Predictions, lon, lat float64) *PointResult {
	if in == nil || in.Len() == 0 {
		return nil
	}
	if !e.boundary.Contains(lon, lat) {
		return nil
	}

	raw := in.Interpolate(lon, lat)
	level := colorramp.Level(raw)
	band := colorramp.Bands[level]
	res := &PointResult{
		Lon:         lon,
		Lat:         lat,
		RiskLevel:   level,
		RawValue:    raw,
		Probability: Probability(raw),
		Label:       band.Label,
		Color:       band.Hex,
	}

	if e.regions != nil {
		if r, ok := e.regions.Nearest(lon, lat); ok {
			res.Region = &r
			if p, ok := preds[r.Code]; ok {
				t, h := p.Temperature, p.Humidity
				res.Temperature = &t
				res.Humidity = &h
				res.Source = p.Source
			}
		}
	}
	return res
}

// Probability maps a risk-scale value to a percentage in [0,100].
func Probability(raw float64) int {
	p := math.Round(raw / surface.MaxRiskLevel * 100)
	return int(math.Min(100, math.Max(0, p)))
}
