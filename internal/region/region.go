// Package region holds the static province reference table.
package region

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/provinces.yaml
var defaultTable []byte

// Region is immutable reference data.
type Region struct {
	Code   string     `json:"code" yaml:"code" doc:"Region code" example:"11"`
	Name   string     `json:"name" yaml:"name" doc:"Display name"`
	Center [2]float64 `json:"center" yaml:"center" doc:"Center as [lon, lat]"`
}

// Lon returns the center longitude.
func (r Region) Lon() float64 { return r.Center[0] }

// Lat returns the center latitude.
func (r Region) Lat() float64 { return r.Center[1] }

// Table is an ordered, read-only set of regions keyed by code.
type Table struct {
	regions []Region
	byCode  map[string]int
}

// NewTable builds a table. Duplicate codes are rejected.
func NewTable(regions []Region) (*Table, error) {
	t := &Table{
		regions: make([]Region, 0, len(regions)),
		byCode:  make(map[string]int, len(regions)),
	}
	for _, r := range regions {
		if r.Code == "" {
			return nil, fmt.Errorf("region %q has no code", r.Name)
		}
		if _, exists := t.byCode[r.Code]; exists {
			return nil, fmt.Errorf("duplicate region code %q", r.Code)
		}
		t.byCode[r.Code] = len(t.regions)
		t.regions = append(t.regions, r)
	}
	return t, nil
}

// ParseTable reads a YAML list of regions.
func ParseTable(data []byte) (*Table, error) {
	var regions []Region
	if err := yaml.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("parsing region table: %w", err)
	}
	return NewTable(regions)
}

// LoadTable reads a YAML region table from disk.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading region table: %w", err)
	}
	return ParseTable(data)
}

// Default returns the bundled 17-province table.
func Default() *Table {
	t, err := ParseTable(defaultTable)
	if err != nil {
		panic(err)
	}
	return t
}

// Get returns the region with code.
func (t *Table) Get(code string) (Region, bool) {
	i, ok := t.byCode[code]
	if !ok {
		return Region{}, false
	}
	return t.regions[i], true
}

// All returns the regions in table order.
func (t *Table) All() []Region {
	return append([]Region(nil), t.regions...)
}

// Codes returns the region codes sorted ascending.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.regions))
	for _, r := range t.regions {
		codes = append(codes, r.Code)
	}
	sort.Strings(codes)
	return codes
}

// Len returns the number of regions.
func (t *Table) Len() int { return len(t.regions) }

// Nearest returns the region whose center is closest to (lon, lat) by planar
// distance in degrees. Ties go to the earlier table entry.
func (t *Table) Nearest(lon, lat float64) (Region, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, r := range t.regions {
		dx := r.Center[0] - lon
		dy := r.Center[1] - lat
		if d := dx*dx + dy*dy; d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return Region{}, false
	}
	return t.regions[best], true
}
