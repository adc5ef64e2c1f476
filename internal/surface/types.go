// Package surface turns per-region predictions into the point cloud the
// interpolator consumes.
package surface

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
)

// Source records where a prediction came from.
type Source string

const (
	SourceLive       Source = "live"
	SourceHistory    Source = "history"
	SourceSimulation Source = "simulation"
)

// MaxRiskLevel is the highest risk ordinal.
const MaxRiskLevel = 4

// PredictionPoint is one region's prediction for the current selection.
type PredictionPoint struct {
	RegionCode  string  `json:"regionCode" yaml:"regionCode" required:"false" doc:"Region code" example:"11"`
	RiskLevel   int     `json:"riskLevel" yaml:"riskLevel" minimum:"0" maximum:"4" doc:"Risk ordinal 0-4"`
	Probability float64 `json:"probability" yaml:"probability" required:"false" minimum:"0" maximum:"100" doc:"Outbreak probability (%)"`
	Temperature float64 `json:"temperature" yaml:"temperature" required:"false" doc:"Temperature (°C)"`
	Humidity    float64 `json:"humidity" yaml:"humidity" required:"false" minimum:"0" maximum:"100" doc:"Relative humidity (%)"`
	Source      Source  `json:"source" yaml:"source" required:"false" enum:"live,history,simulation" doc:"Data source"`
}

// Validate checks the ranges the renderer relies on.
func (p PredictionPoint) Validate() error {
	var err error
	if p.RiskLevel < 0 || p.RiskLevel > MaxRiskLevel {
		err = multierr.Append(err, fmt.Errorf("riskLevel %d outside [0,%d]", p.RiskLevel, MaxRiskLevel))
	}
	if p.Probability < 0 || p.Probability > 100 {
		err = multierr.Append(err, fmt.Errorf("probability %v outside [0,100]", p.Probability))
	}
	if p.Humidity < 0 || p.Humidity > 100 {
		err = multierr.Append(err, fmt.Errorf("humidity %v outside [0,100]", p.Humidity))
	}
	switch p.Source {
	case "", SourceLive, SourceHistory, SourceSimulation:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown source %q", p.Source))
	}
	return err
}

// Predictions maps region code to prediction. A refresh replaces the whole map.
type Predictions map[string]PredictionPoint

// Validate checks every entry and reports each bad region.
func (ps Predictions) Validate() error {
	var err error
	for _, code := range ps.Codes() {
		if e := ps[code].Validate(); e != nil {
			err = multierr.Append(err, fmt.Errorf("region %s: %w", code, e))
		}
	}
	return err
}

// Codes returns the region codes sorted ascending.
func (ps Predictions) Codes() []string {
	codes := make([]string, 0, len(ps))
	for code := range ps {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Clone returns a shallow copy; PredictionPoint is a value type.
func (ps Predictions) Clone() Predictions {
	out := make(Predictions, len(ps))
	for k, v := range ps {
		out[k] = v
	}
	return out
}

// Field selects which numeric prediction field feeds the interpolator.
// Values are expressed on the 0-4 risk scale.
type Field string

const (
	FieldRiskLevel   Field = "riskLevel"
	FieldProbability Field = "probability"
)

// ParseField validates a field name. Empty means riskLevel.
func ParseField(s string) (Field, error) {
	switch Field(s) {
	case "", FieldRiskLevel:
		return FieldRiskLevel, nil
	case FieldProbability:
		return FieldProbability, nil
	}
	return "", fmt.Errorf("unknown value field %q", s)
}

// Value extracts the field from p on the risk scale.
func (f Field) Value(p PredictionPoint) float64 {
	switch f {
	case FieldProbability:
		return p.Probability / 100 * MaxRiskLevel
	default:
		return float64(p.RiskLevel)
	}
}
