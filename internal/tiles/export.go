package tiles

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/maptile"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-pestmap/internal/engine"
)

// Render renders one tile from the engine's current model as PNG.
func Render(eng *engine.Engine, t maptile.Tile, pixelRatio float64) ([]byte, uint64, error) {
	frame, err := eng.Render(Viewport(t, pixelRatio))
	if err != nil {
		return nil, 0, err
	}
	data, err := frame.Canvas.PNG()
	if err != nil {
		return nil, 0, fmt.Errorf("encoding tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return data, frame.Generation, nil
}

// Export renders every tile covering the national boundary for zooms
// minZoom..maxZoom into an archive.
func Export(ctx context.Context, eng *engine.Engine, minZoom, maxZoom int, log *zap.Logger) (*Archive, error) {
	if minZoom < 0 || maxZoom > MaxZoom || minZoom > maxZoom {
		return nil, fmt.Errorf("zoom range %d..%d invalid", minZoom, maxZoom)
	}
	if log == nil {
		log = zap.NewNop()
	}

	bound := eng.Rasterizer().Boundary().Bound()
	model := eng.Model()
	arc := NewArchive(bound, map[string]any{
		"name":       "pestmap",
		"format":     "png",
		"type":       "overlay",
		"generation": model.Generation,
		"minzoom":    minZoom,
		"maxzoom":    maxZoom,
		"bounds":     []float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
	})

	for z := minZoom; z <= maxZoom; z++ {
		cover := Cover(bound, maptile.Zoom(z))
		for _, t := range cover {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, _, err := Render(eng, t, 1)
			if err != nil {
				return nil, err
			}
			arc.Add(t, data)
		}
		log.Debug("zoom rendered", zap.Int("zoom", z), zap.Int("tiles", len(cover)))
	}
	log.Info("tile pyramid rendered",
		zap.Uint64("generation", model.Generation),
		zap.Int("tiles", arc.Len()),
	)
	return arc, nil
}
