package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBoundaryContains(t *testing.T) {
	b := DefaultBoundary()
	require.Len(t, b.Rings(), 2)

	tests := []struct {
		name     string
		lon, lat float64
		want     bool
	}{
		{"seoul", 126.978, 37.5665, true},
		{"busan", 129.0756, 35.1796, true},
		{"daejeon", 127.3845, 36.3504, true},
		{"jeju island", 126.55, 33.38, true},
		{"yellow sea", 125.5, 36.0, false},
		{"east sea", 130.5, 37.0, false},
		{"korea strait", 128.0, 33.9, false},
		{"north of dmz", 127.0, 39.0, false},
		{"far away", 200, 200, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, b.Contains(tc.lon, tc.lat))
		})
	}
}

func TestBoundaryAnyRing(t *testing.T) {
	square := func(x, y float64) orb.Ring {
		return orb.Ring{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}}
	}
	b := NewBoundary(square(0, 0), square(10, 10))

	assert.True(t, b.Contains(0.5, 0.5))
	assert.True(t, b.Contains(10.5, 10.5))
	assert.False(t, b.Contains(5, 5))

	// open rings are closed on construction
	for _, r := range b.Rings() {
		assert.True(t, r.Closed())
	}
}

func TestBoundaryIgnoresDegenerateRings(t *testing.T) {
	b := NewBoundary(orb.Ring{{0, 0}, {1, 1}})
	assert.Empty(t, b.Rings())
	assert.False(t, b.Contains(0.5, 0.5))
	assert.Equal(t, orb.Bound{}, b.Bound())
}

func TestParseBoundary(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"MultiPolygon","coordinates":[
			[[[0,0],[2,0],[2,2],[0,2],[0,0]],[[0.5,0.5],[1,0.5],[1,1],[0.5,0.5]]],
			[[[5,5],[6,5],[6,6],[5,6],[5,5]]]
		]}}]}`)

	b, err := ParseBoundary(data)
	require.NoError(t, err)
	assert.Len(t, b.Rings(), 2)
	assert.True(t, b.Contains(1, 1))
	assert.True(t, b.Contains(5.5, 5.5))
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{6, 6}}, b.Bound())
}

func TestParseBoundaryErrors(t *testing.T) {
	_, err := ParseBoundary([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseBoundary([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}]}`))
	assert.Error(t, err)
}
