// Package engine owns the active risk surface. A prediction refresh builds a
// new immutable Model and swaps it in with one atomic store, so a render or
// query in flight sees either the old model or the new one, never a mix.
package engine

import (
	"encoding/binary"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-pestmap/internal/geo"
	"github.com/joeblew999/plat-pestmap/internal/idw"
	"github.com/joeblew999/plat-pestmap/internal/metrics"
	"github.com/joeblew999/plat-pestmap/internal/query"
	"github.com/joeblew999/plat-pestmap/internal/raster"
	"github.com/joeblew999/plat-pestmap/internal/region"
	"github.com/joeblew999/plat-pestmap/internal/service"
	"github.com/joeblew999/plat-pestmap/internal/surface"
)

// Model is one installed prediction set and its interpolator. Generation
// counts installs in this process; Digest identifies what the model renders
// and is stable across processes with the same settings.
type Model struct {
	Generation  uint64
	Digest      uint64
	Predictions surface.Predictions
	Samples     []idw.Sample
	Interp      *idw.Interpolator // nil when there are no samples
	InstalledAt time.Time
}

// Empty reports whether the model has no samples.
func (m *Model) Empty() bool { return m == nil || m.Interp == nil }

// Frame is a finished render and the model it was painted from.
type Frame struct {
	Canvas     *raster.Canvas
	Generation uint64
	Digest     uint64
}

// Options wires the engine's collaborators.
type Options struct {
	Regions       *region.Table
	Sampler       *surface.Sampler
	Rasterizer    *raster.Rasterizer
	Query         *query.Engine
	Interpolation []idw.Option
	RenderTimeout time.Duration
	Bus           *service.EventBus
	Logger        *zap.Logger

	// Settings digests everything besides the samples that changes a render:
	// boundary, ramp, step and alpha.
	Settings uint64
}

// Engine is the single shared handle used by the rasterizer and the query path.
type Engine struct {
	regions  *region.Table
	sampler  *surface.Sampler
	raster   *raster.Rasterizer
	query    *query.Engine
	idwOpts  []idw.Option
	timeout  time.Duration
	bus      *service.EventBus
	log      *zap.Logger
	settings uint64

	model atomic.Pointer[Model]

	mu      sync.Mutex // serializes installs and guards waiters
	gen     uint64
	waiters []*RenderSignal
}

// New creates an engine with an empty model installed.
func New(opts Options) *Engine {
	e := &Engine{
		regions:  opts.Regions,
		sampler:  opts.Sampler,
		raster:   opts.Rasterizer,
		query:    opts.Query,
		idwOpts:  opts.Interpolation,
		timeout:  opts.RenderTimeout,
		bus:      opts.Bus,
		log:      opts.Logger,
		settings: opts.Settings,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultRenderTimeout
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	e.model.Store(&Model{Predictions: surface.Predictions{}, Digest: digest(e.settings, nil, nil)})
	return e
}

// Model returns the installed model.
func (e *Engine) Model() *Model { return e.model.Load() }

// Regions returns the region table predictions are keyed by.
func (e *Engine) Regions() *region.Table { return e.regions }

// Rasterizer returns the rasterizer used by Render.
func (e *Engine) Rasterizer() *raster.Rasterizer { return e.raster }

// Update replaces the installed predictions wholesale. It returns the new
// model and a signal that resolves once a render of it completes (or times out).
func (e *Engine) Update(preds surface.Predictions) (*Model, *RenderSignal, error) {
	preds = preds.Clone()
	if dropped := e.sampler.Unknown(preds); len(dropped) > 0 {
		metrics.DroppedRegionsTotal.Add(float64(len(dropped)))
	}
	samples := e.sampler.Build(preds)

	var in *idw.Interpolator
	if len(samples) > 0 {
		var err error
		in, err = idw.New(samples, e.idwOpts...)
		if err != nil {
			return nil, nil, err
		}
	}

	e.mu.Lock()
	e.gen++
	m := &Model{
		Generation:  e.gen,
		Digest:      digest(e.settings, samples, in),
		Predictions: preds,
		Samples:     samples,
		Interp:      in,
		InstalledAt: time.Now(),
	}
	// register before the swap so a render that sees m always finds the waiter
	sig := newRenderSignal(m.Generation, e.timeout, e.forget)
	e.waiters = append(e.waiters, sig)
	e.model.Store(m)
	e.mu.Unlock()

	metrics.ModelGeneration.Set(float64(m.Generation))
	metrics.ModelSamples.Set(float64(len(samples)))
	e.log.Info("installed prediction model",
		zap.Uint64("generation", m.Generation),
		zap.Int("predictions", len(preds)),
		zap.Int("samples", len(samples)),
	)
	e.bus.Publish(service.Event{Kind: service.ModelInstalled, Generation: m.Generation, Samples: len(samples)})
	return m, sig, nil
}

// Render paints the installed model over vp. Completion is signalled on a
// separate goroutine after Render returns, exactly once per call.
func (e *Engine) Render(vp geo.Viewport) (*Frame, error) {
	m := e.model.Load()
	start := time.Now()
	c, err := e.raster.Render(m.Interp, vp)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.RendersTotal.Inc()
	metrics.RenderDurationMs.Observe(float64(elapsed.Milliseconds()))
	e.log.Debug("rendered surface",
		zap.Uint64("generation", m.Generation),
		zap.Int("width", vp.Width),
		zap.Int("height", vp.Height),
		zap.Int("step", c.Step()),
		zap.Int("painted", c.Painted()),
		zap.Duration("elapsed", elapsed),
	)

	go e.complete(m.Generation)
	return &Frame{Canvas: c, Generation: m.Generation, Digest: m.Digest}, nil
}

// Served records that a cached frame of generation gen was delivered in place
// of a render. Waiters resolve exactly as they would for Render.
func (e *Engine) Served(gen uint64) {
	go e.complete(gen)
}

// complete resolves every waiter at or below gen. Renders of a superseded
// model leave newer waiters pending.
func (e *Engine) complete(gen uint64) {
	e.mu.Lock()
	pending := e.waiters[:0]
	var ready []*RenderSignal
	for _, w := range e.waiters {
		select {
		case <-w.Done():
			// timed out already
			continue
		default:
		}
		if w.generation <= gen {
			ready = append(ready, w)
		} else {
			pending = append(pending, w)
		}
	}
	e.waiters = pending
	e.mu.Unlock()

	for _, w := range ready {
		w.resolve(Completed)
	}
	e.bus.Publish(service.Event{Kind: service.RenderCompleted, Generation: gen})
}

// forget drops a timed-out signal so installs that are never rendered do not
// accumulate.
func (e *Engine) forget(sig *RenderSignal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := slices.Index(e.waiters, sig); i >= 0 {
		e.waiters = slices.Delete(e.waiters, i, i+1)
	}
}

// pending returns the number of unresolved render signals.
func (e *Engine) pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.waiters)
}

// digest hashes the settings, the interpolation parameters and the samples in
// a canonical order. Two models with the same digest render identically.
func digest(settings uint64, samples []idw.Sample, in *idw.Interpolator) uint64 {
	sorted := slices.Clone(samples)
	slices.SortFunc(sorted, func(a, b idw.Sample) int {
		if c := cmpFloat(a.Lon, b.Lon); c != 0 {
			return c
		}
		if c := cmpFloat(a.Lat, b.Lat); c != 0 {
			return c
		}
		return cmpFloat(a.Value, b.Value)
	})

	h := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	put(settings)
	if in != nil {
		put(math.Float64bits(in.Power()))
		put(math.Float64bits(in.Snap()))
	}
	put(uint64(len(sorted)))
	for _, s := range sorted {
		put(math.Float64bits(s.Lon))
		put(math.Float64bits(s.Lat))
		put(math.Float64bits(s.Value))
	}
	return h.Sum64()
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Query inspects the installed model at (lon, lat). It returns nil when the
// model is empty or the point is outside the boundary.
func (e *Engine) Query(lon, lat float64) *query.PointResult {
	m := e.model.Load()
	res := e.query.Query(m.Interp, m.Predictions, lon, lat)
	if res == nil {
		metrics.QueriesTotal.WithLabelValues("nodata").Inc()
	} else {
		metrics.QueriesTotal.WithLabelValues("hit").Inc()
	}
	return res
}
