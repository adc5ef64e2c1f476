package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-pestmap/internal/colorramp"
	"github.com/joeblew999/plat-pestmap/internal/config"
	"github.com/joeblew999/plat-pestmap/internal/geo"
	"github.com/joeblew999/plat-pestmap/internal/query"
	"github.com/joeblew999/plat-pestmap/internal/raster"
	"github.com/joeblew999/plat-pestmap/internal/region"
	"github.com/joeblew999/plat-pestmap/internal/service"
	"github.com/joeblew999/plat-pestmap/internal/surface"
)

func newTestEngine(timeout time.Duration, bus *service.EventBus) *Engine {
	boundary := geo.DefaultBoundary()
	regions := region.Default()
	return New(Options{
		Regions:       regions,
		Sampler:       surface.NewSampler(regions),
		Rasterizer:    raster.New(boundary, raster.WithStep(raster.FixedStep(1))),
		Query:         query.New(boundary, regions),
		RenderTimeout: timeout,
		Bus:           bus,
	})
}

func testPredictions() surface.Predictions {
	return surface.Predictions{
		"11": {RegionCode: "11", RiskLevel: 3, Temperature: 22.5, Humidity: 70, Source: surface.SourceLive},
		"26": {RegionCode: "26", RiskLevel: 0, Temperature: 24, Humidity: 65, Source: surface.SourceLive},
		"46": {RegionCode: "46", RiskLevel: 4, Temperature: 25, Humidity: 80, Source: surface.SourceLive},
		"42": {RegionCode: "42", RiskLevel: 1, Temperature: 19, Humidity: 60, Source: surface.SourceLive},
	}
}

func testViewport(e *Engine) geo.Viewport {
	return geo.ViewportFor(geo.DefaultBoundary().Bound(), e.Rasterizer().Projection(), 96, 128, 1)
}

func TestEmptyModel(t *testing.T) {
	e := newTestEngine(0, nil)
	assert.True(t, e.Model().Empty())
	assert.Equal(t, uint64(0), e.Model().Generation)

	f, err := e.Render(testViewport(e))
	require.NoError(t, err)
	assert.True(t, f.Canvas.Transparent())
	assert.Nil(t, e.Query(127.0, 37.5))
}

func TestUpdateWithOnlyUnknownCodesIsEmpty(t *testing.T) {
	e := newTestEngine(0, nil)
	_, _, err := e.Update(surface.Predictions{"99": {RegionCode: "99", RiskLevel: 4}})
	require.NoError(t, err)

	assert.True(t, e.Model().Empty())
	assert.Equal(t, uint64(1), e.Model().Generation)
	assert.Nil(t, e.Query(127.0, 37.5))
}

func TestRasterAndQueryAgree(t *testing.T) {
	e := newTestEngine(0, nil)
	_, _, err := e.Update(testPredictions())
	require.NoError(t, err)

	vp := testViewport(e)
	f, err := e.Render(vp)
	require.NoError(t, err)
	require.Positive(t, f.Canvas.Painted())

	ramp := e.Rasterizer().Ramp()
	proj := e.Rasterizer().Projection()
	checked := 0
	for py := 0; py < vp.Height; py += 7 {
		for px := 0; px < vp.Width; px += 5 {
			lon, lat := vp.PixelToGeo(px, py, proj)
			res := e.Query(lon, lat)
			got := f.Canvas.At(px, py)
			if res == nil {
				assert.Zero(t, got.A, "pixel %d,%d outside boundary should be transparent", px, py)
				continue
			}
			want := ramp.Color(res.RawValue)
			assert.Equal(t, [3]uint8{want.R, want.G, want.B}, [3]uint8{got.R, got.G, got.B}, "pixel %d,%d", px, py)
			checked++
		}
	}
	assert.Positive(t, checked)
}

func TestQueryAtRegionCenter(t *testing.T) {
	e := newTestEngine(0, nil)
	_, _, err := e.Update(testPredictions())
	require.NoError(t, err)

	res := e.Query(126.978, 37.5665)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.RiskLevel)
	assert.Equal(t, 75, res.Probability)
	require.NotNil(t, res.Region)
	assert.Equal(t, "11", res.Region.Code)
	require.NotNil(t, res.Temperature)
	assert.Equal(t, 22.5, *res.Temperature)
}

func TestRepeatRendersAreIdentical(t *testing.T) {
	e := newTestEngine(0, nil)
	_, _, err := e.Update(testPredictions())
	require.NoError(t, err)

	vp := testViewport(e)
	a, err := e.Render(vp)
	require.NoError(t, err)
	b, err := e.Render(vp)
	require.NoError(t, err)
	assert.Equal(t, a.Canvas.Pix(), b.Canvas.Pix())
	assert.Equal(t, a.Generation, b.Generation)
}

func TestRenderInvalidViewport(t *testing.T) {
	e := newTestEngine(0, nil)
	_, err := e.Render(geo.NewViewport(0, 0, 1, 1, 0, 10, 1))
	assert.ErrorIs(t, err, geo.ErrInvalidViewport)
}

func TestSignalCompletesAfterRender(t *testing.T) {
	bus := service.NewEventBus()
	events := bus.Subscribe()
	defer bus.Unsubscribe(events)

	e := newTestEngine(time.Minute, bus)
	_, sig, err := e.Update(testPredictions())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sig.Generation())

	_, err = e.Render(testViewport(e))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := sig.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, Completed, out)

	kinds := []string{}
	for len(kinds) < 2 {
		select {
		case ev := <-events:
			kinds = append(kinds, ev.Kind)
		case <-ctx.Done():
			t.Fatal("missing events")
		}
	}
	assert.Equal(t, []string{service.ModelInstalled, service.RenderCompleted}, kinds)
}

func TestSignalTimesOutWithoutRender(t *testing.T) {
	e := newTestEngine(20*time.Millisecond, nil)
	_, sig, err := e.Update(testPredictions())
	require.NoError(t, err)

	out, err := sig.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TimedOut, out)

	// a late render must not flip the outcome
	_, err = e.Render(testViewport(e))
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, TimedOut, sig.Outcome())
}

func TestSignalWaitHonoursContext(t *testing.T) {
	e := newTestEngine(time.Minute, nil)
	_, sig, err := e.Update(testPredictions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sig.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOlderRenderLeavesNewerSignalPending(t *testing.T) {
	e := newTestEngine(time.Minute, nil)
	_, first, err := e.Update(testPredictions())
	require.NoError(t, err)
	_, second, err := e.Update(surface.Predictions{"11": {RegionCode: "11", RiskLevel: 1}})
	require.NoError(t, err)

	// a render that started on generation 1
	e.complete(first.Generation())

	<-first.Done()
	assert.Equal(t, Completed, first.Outcome())
	select {
	case <-second.Done():
		t.Fatal("newer signal resolved by an older render")
	default:
	}

	_, err = e.Render(testViewport(e))
	require.NoError(t, err)
	<-second.Done()
	assert.Equal(t, Completed, second.Outcome())
}

func TestNewerRenderResolvesSupersededSignals(t *testing.T) {
	e := newTestEngine(time.Minute, nil)
	_, first, err := e.Update(testPredictions())
	require.NoError(t, err)
	_, second, err := e.Update(testPredictions())
	require.NoError(t, err)

	f, err := e.Render(testViewport(e))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f.Generation)

	<-first.Done()
	<-second.Done()
	assert.Equal(t, Completed, first.Outcome())
	assert.Equal(t, Completed, second.Outcome())
}

func TestConcurrentUpdatesAndReads(t *testing.T) {
	e := newTestEngine(time.Minute, nil)
	vp := geo.ViewportFor(geo.DefaultBoundary().Bound(), geo.WebMercator, 24, 32, 1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(level int) {
			defer wg.Done()
			_, _, err := e.Update(surface.Predictions{"11": {RegionCode: "11", RiskLevel: level}})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := e.Render(vp)
			assert.NoError(t, err)
			e.Query(126.978, 37.5665)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(4), e.Model().Generation)

	// every point query now sees a single-sample model
	res := e.Query(126.978, 37.5665)
	require.NotNil(t, res)
	assert.Equal(t, float64(e.Model().Predictions["11"].RiskLevel), res.RawValue)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Ramp = colorramp.KindGradient
	e, err := FromConfig(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 17, e.Regions().Len())
	assert.IsType(t, &colorramp.Gradient{}, e.Rasterizer().Ramp())

	cfg.Interpolation.Power = 0
	_, err = FromConfig(cfg, nil, nil)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.BoundaryPath = "does-not-exist.geojson"
	_, err = FromConfig(cfg, nil, nil)
	assert.Error(t, err)
}

func TestTimedOutSignalsAreForgotten(t *testing.T) {
	e := newTestEngine(time.Millisecond, nil)
	sigs := make([]*RenderSignal, 0, 200)
	for range 200 {
		_, sig, err := e.Update(testPredictions())
		require.NoError(t, err)
		sigs = append(sigs, sig)
	}
	for _, sig := range sigs {
		out, err := sig.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, TimedOut, out)
	}
	require.Eventually(t, func() bool { return e.pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestServedResolvesSignal(t *testing.T) {
	e := newTestEngine(time.Minute, nil)
	m, sig, err := e.Update(testPredictions())
	require.NoError(t, err)

	e.Served(m.Generation)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := sig.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, Completed, out)
	assert.Equal(t, 0, e.pending())
}

func TestDigestFollowsContentNotGeneration(t *testing.T) {
	a, err := FromConfig(config.Default(), nil, nil)
	require.NoError(t, err)
	b, err := FromConfig(config.Default(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Model().Digest, b.Model().Digest, "empty models")

	other := surface.Predictions{"11": {RegionCode: "11", RiskLevel: 0, Source: surface.SourceLive}}
	ma, _, err := a.Update(testPredictions())
	require.NoError(t, err)
	mb, _, err := b.Update(other)
	require.NoError(t, err)
	assert.Equal(t, ma.Generation, mb.Generation)
	assert.NotEqual(t, ma.Digest, mb.Digest)

	mb, _, err = b.Update(testPredictions())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), mb.Generation)
	assert.Equal(t, ma.Digest, mb.Digest)

	cfg := config.Default()
	cfg.Render.Alpha = 255
	c, err := FromConfig(cfg, nil, nil)
	require.NoError(t, err)
	mc, _, err := c.Update(testPredictions())
	require.NoError(t, err)
	assert.NotEqual(t, ma.Digest, mc.Digest)
}
