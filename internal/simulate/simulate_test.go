package simulate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-pestmap/internal/region"
	"github.com/joeblew999/plat-pestmap/internal/surface"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestGenerateCoversEveryRegion(t *testing.T) {
	regions := region.Default()
	preds := Generate(regions, Params{Crop: "FC010101", Pest: "D00001", Date: date(t, "2025-07-15")})

	require.Len(t, preds, regions.Len())
	require.NoError(t, preds.Validate())
	for _, code := range regions.Codes() {
		p, ok := preds[code]
		require.True(t, ok, code)
		assert.Equal(t, code, p.RegionCode)
		assert.Equal(t, surface.SourceSimulation, p.Source)
		assert.GreaterOrEqual(t, p.Humidity, 30.0)
		assert.LessOrEqual(t, p.Humidity, 95.0)
		assert.InDelta(t, p.Probability/100*5, float64(p.RiskLevel)+0.5, 0.55, "level and probability disagree for %s", code)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	p := Params{Crop: "VC011205", Pest: "P1", Date: date(t, "2025-06-03")}
	a := Generate(region.Default(), p)
	b := Generate(region.Default(), p)
	assert.Equal(t, a, b)

	p.Pest = "P2"
	assert.NotEqual(t, a, Generate(region.Default(), p))
}

func TestWinterIsLowRisk(t *testing.T) {
	preds := Generate(region.Default(), Params{Crop: "FC010101", Pest: "D1", Date: date(t, "2025-01-01")})
	for code, p := range preds {
		assert.Zero(t, p.RiskLevel, code)
		assert.LessOrEqual(t, p.Probability, 10.0, code)
	}
}

func TestSummerOutranksWinter(t *testing.T) {
	sum := func(d string) float64 {
		total := 0.0
		for _, p := range Generate(region.Default(), Params{Crop: "FC010101", Pest: "D1", Date: date(t, d)}) {
			total += p.Probability
		}
		return total
	}
	assert.Greater(t, sum("2025-07-20"), sum("2025-12-20"))
}

func TestSouthIsWarmer(t *testing.T) {
	preds := Generate(region.Default(), Params{Crop: "FC010101", Pest: "D1", Date: date(t, "2025-04-10")})
	// Jeju sits 4° south of Gangwon; the latitude offset outweighs the noise.
	assert.Greater(t, preds["50"].Temperature, preds["42"].Temperature)
}

func TestCropFactor(t *testing.T) {
	assert.Equal(t, 1.1, CropFactor("VC011205"))
	assert.Equal(t, 1.0, CropFactor("unknown"))
}

func TestHashString(t *testing.T) {
	assert.Equal(t, int32(0), hashString(""))
	assert.Equal(t, int32(97), hashString("a"))
	assert.Equal(t, int32(96354), hashString("abc"))
	n := noise(42)
	assert.GreaterOrEqual(t, n, 0.0)
	assert.Less(t, n, 1.0)
}
