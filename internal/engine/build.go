package engine

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-pestmap/internal/colorramp"
	"github.com/joeblew999/plat-pestmap/internal/config"
	"github.com/joeblew999/plat-pestmap/internal/geo"
	"github.com/joeblew999/plat-pestmap/internal/idw"
	"github.com/joeblew999/plat-pestmap/internal/query"
	"github.com/joeblew999/plat-pestmap/internal/raster"
	"github.com/joeblew999/plat-pestmap/internal/region"
	"github.com/joeblew999/plat-pestmap/internal/service"
	"github.com/joeblew999/plat-pestmap/internal/surface"
)

// FromConfig assembles an engine from cfg, loading the boundary and region
// table from disk when paths are set and falling back to the embedded data.
func FromConfig(cfg config.Config, bus *service.EventBus, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	boundary := geo.DefaultBoundary()
	if cfg.BoundaryPath != "" {
		b, err := geo.LoadBoundary(cfg.BoundaryPath)
		if err != nil {
			return nil, err
		}
		boundary = b
	}
	regions := region.Default()
	if cfg.RegionsPath != "" {
		t, err := region.LoadTable(cfg.RegionsPath)
		if err != nil {
			return nil, err
		}
		regions = t
	}

	ramp, err := colorramp.New(cfg.Render.Ramp)
	if err != nil {
		return nil, err
	}
	field, err := surface.ParseField(string(cfg.ValueField))
	if err != nil {
		return nil, err
	}

	log.Info("engine configured",
		zap.Int("regions", regions.Len()),
		zap.Int("boundary_rings", len(boundary.Rings())),
		zap.Float64("power", cfg.Interpolation.Power),
		zap.String("ramp", string(cfg.Render.Ramp)),
		zap.String("field", string(field)),
	)

	return New(Options{
		Regions: regions,
		Sampler: surface.NewSampler(regions, surface.WithField(field), surface.WithLogger(log)),
		Rasterizer: raster.New(boundary,
			raster.WithRamp(ramp),
			raster.WithStep(raster.StepFor(cfg.Render.StepBase)),
			raster.WithAlpha(uint8(cfg.Render.Alpha)),
		),
		Query: query.New(boundary, regions),
		Interpolation: []idw.Option{
			idw.WithPower(cfg.Interpolation.Power),
			idw.WithSnap(cfg.Interpolation.Snap),
		},
		RenderTimeout: cfg.Render.Timeout,
		Bus:           bus,
		Logger:        log,
		Settings:      settingsDigest(cfg, boundary),
	}), nil
}

// settingsDigest hashes the render settings and boundary vertices so that
// processes configured alike produce the same model digests.
func settingsDigest(cfg config.Config, boundary *geo.Boundary) uint64 {
	h := xxhash.New()
	var buf [8]byte
	put := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	h.WriteString(string(cfg.Render.Ramp))
	put(cfg.Render.StepBase)
	put(float64(cfg.Render.Alpha))
	for _, r := range boundary.Rings() {
		put(float64(len(r)))
		for _, p := range r {
			put(p[0])
			put(p[1])
		}
	}
	return h.Sum64()
}
