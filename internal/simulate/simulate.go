// Package simulate produces deterministic stand-in predictions when no live
// forecast is available. The same crop, pest and date always yield the same
// prediction map.
package simulate

import (
	"math"
	"time"

	"github.com/joeblew999/plat-pestmap/internal/region"
	"github.com/joeblew999/plat-pestmap/internal/surface"
)

// DateLayout is the date format used for seeding.
const DateLayout = "2006-01-02"

// monthWeight is the seasonal risk curve, peaking in July.
var monthWeight = [12]float64{0.1, 0.15, 0.3, 0.5, 0.7, 0.85, 0.95, 0.9, 0.7, 0.4, 0.2, 0.1}

// climateAvg holds national monthly means: temperature (°C) and relative humidity (%).
var climateAvg = [12][2]float64{
	{-1.0, 62}, {1.2, 60}, {6.3, 60}, {12.5, 60},
	{17.8, 65}, {22.0, 72}, {25.3, 81}, {25.8, 78},
	{21.2, 74}, {14.8, 69}, {7.7, 66}, {1.2, 64},
}

// cropFactors scales risk per crop code. Unlisted crops use 1.0.
var cropFactors = map[string]float64{
	"FC010101": 1.0,  // rice
	"FC050501": 0.8,  // potato
	"FT010601": 0.9,  // apple
	"FT010602": 0.85, // pear
	"FT040603": 0.95, // grape
	"FT060614": 0.7,  // citrus
	"VC011205": 1.1,  // pepper
	"VC041202": 0.75, // green onion
	"VC041209": 0.8,  // garlic
}

// CropFactor returns the risk multiplier for crop.
func CropFactor(crop string) float64 {
	if f, ok := cropFactors[crop]; ok {
		return f
	}
	return 1.0
}

// Params selects a simulation.
type Params struct {
	Crop string
	Pest string
	Date time.Time
}

// Generate returns one prediction per region in regions.
func Generate(regions *region.Table, p Params) surface.Predictions {
	month := int(p.Date.Month())
	dayFrac := float64(p.Date.Day()-1) / 30
	lo, hi := month-1, month%12

	weight := lerp(monthWeight[lo], monthWeight[hi], dayFrac)
	crop := CropFactor(p.Crop)
	baseTemp := lerp(climateAvg[lo][0], climateAvg[hi][0], dayFrac)
	baseHumid := lerp(climateAvg[lo][1], climateAvg[hi][1], dayFrac)

	baseSeed := float64(hashString(p.Date.Format(DateLayout) + "_" + p.Crop + "_" + p.Pest))

	out := make(surface.Predictions, regions.Len())
	for idx, r := range regions.All() {
		seed := baseSeed + float64(idx*137)

		latOffset := -(r.Lat() - 36) * 1.5
		coast := 0.0
		if r.Lon() < 127 || r.Lon() > 129 {
			coast = 3
		}
		temp := round1(baseTemp + latOffset + (noise(seed)-0.5)*2.5)
		humid := clamp(math.Round(baseHumid+coast+(noise(seed+1)-0.5)*6), 30, 95)

		tempOptimal := math.Max(0, 1-math.Abs(temp-25)/20)
		humidFactor := math.Max(0, (humid-50)/40)
		raw := weight * crop * (tempOptimal*0.35 + humidFactor*0.35 + noise(seed+2)*0.3)

		out[r.Code] = surface.PredictionPoint{
			RegionCode:  r.Code,
			RiskLevel:   min(surface.MaxRiskLevel, int(math.Floor(raw*5))),
			Probability: math.Min(100, math.Round(raw*100)),
			Temperature: temp,
			Humidity:    humid,
			Source:      surface.SourceSimulation,
		}
	}
	return out
}

// hashString is the 31-multiplier string hash with 32-bit wraparound.
func hashString(s string) int32 {
	var h int32
	for _, c := range s {
		h = h*31 + int32(c)
	}
	return h
}

// noise maps a seed to [0,1) through the fractional part of a scaled sine.
func noise(seed float64) float64 {
	x := math.Sin(seed) * 10000
	return x - math.Floor(x)
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
