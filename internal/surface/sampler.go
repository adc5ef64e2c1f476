package surface

import (
	"go.uber.org/zap"

	"github.com/joeblew999/plat-pestmap/internal/idw"
	"github.com/joeblew999/plat-pestmap/internal/region"
)

// Sampler places one sample at the center of every region that has a prediction.
type Sampler struct {
	regions *region.Table
	field   Field
	log     *zap.Logger
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithField selects the value field.
func WithField(f Field) SamplerOption {
	return func(s *Sampler) { s.field = f }
}

// WithLogger sets the logger used for dropped region codes.
func WithLogger(l *zap.Logger) SamplerOption {
	return func(s *Sampler) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSampler creates a sampler over the static region table.
func NewSampler(regions *region.Table, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		regions: regions,
		field:   FieldRiskLevel,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Field returns the value field in use.
func (s *Sampler) Field() Field { return s.field }

// Build emits samples in region-table order. Regions without a prediction are
// omitted rather than defaulted. Unknown codes are dropped.
func (s *Sampler) Build(preds Predictions) []idw.Sample {
	samples := make([]idw.Sample, 0, len(preds))
	for _, r := range s.regions.All() {
		p, ok := preds[r.Code]
		if !ok {
			continue
		}
		samples = append(samples, idw.Sample{
			Lon:   r.Lon(),
			Lat:   r.Lat(),
			Value: s.field.Value(p),
		})
	}
	if dropped := s.Unknown(preds); len(dropped) > 0 {
		s.log.Debug("dropped predictions for unknown regions", zap.Strings("codes", dropped))
	}
	return samples
}

// Unknown returns the prediction codes missing from the region table.
func (s *Sampler) Unknown(preds Predictions) []string {
	var unknown []string
	for _, code := range preds.Codes() {
		if _, ok := s.regions.Get(code); !ok {
			unknown = append(unknown, code)
		}
	}
	return unknown
}
