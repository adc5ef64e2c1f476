package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-pestmap/internal/humastar"
)

// RegisterEvents registers the surface event stream.
func (h *APIHandler) RegisterEvents(api huma.API) {
	huma.Get(api, "/api/v1/events", h.Events,
		huma.OperationTags("events"),
	)
}

// Events streams bus events as Datastar signal patches plus a custom
// "surface-changed" DOM event, so a map page can re-request tiles.
func (h *APIHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return humastar.Stream(func(sse humastar.SSE) {
		ch := h.svc.Bus.Subscribe()
		defer h.svc.Bus.Unsubscribe(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				err := sse.Signals(map[string]any{
					"generation": ev.Generation,
					"lastEvent":  ev.Kind,
				})
				if err == nil {
					err = sse.Event("surface-changed", ev)
				}
				if err != nil {
					h.log.Debug("event stream closed", zap.Error(err))
					return
				}
			}
		}
	}), nil
}
