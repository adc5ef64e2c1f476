package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-pestmap/internal/cache"
	"github.com/joeblew999/plat-pestmap/internal/geo"
	"github.com/joeblew999/plat-pestmap/internal/query"
	"github.com/joeblew999/plat-pestmap/internal/tiles"
)

// maxPixels bounds a single render request.
const maxPixels = 4096 * 4096

type RenderInput struct {
	MinX       float64 `query:"minX" required:"true" doc:"Extent minimum X (projected)"`
	MinY       float64 `query:"minY" required:"true" doc:"Extent minimum Y (projected)"`
	MaxX       float64 `query:"maxX" required:"true" doc:"Extent maximum X (projected)"`
	MaxY       float64 `query:"maxY" required:"true" doc:"Extent maximum Y (projected)"`
	Width      int     `query:"width" required:"true" doc:"Image width in pixels"`
	Height     int     `query:"height" required:"true" doc:"Image height in pixels"`
	PixelRatio float64 `query:"pixelRatio" default:"1" doc:"Device pixel ratio"`
	Resolution float64 `query:"resolution" doc:"Map units per pixel; derived from the extent when omitted"`
}

type RenderOutput struct {
	ContentType string `header:"Content-Type"`
	Generation  string `header:"X-Model-Generation"`
	Digest      string `header:"X-Model-Digest"`
	Cache       string `header:"X-Cache"`
	Body        []byte
}

type TileInput struct {
	Z          int     `path:"z" doc:"Zoom level" minimum:"0" maximum:"18"`
	X          int     `path:"x" doc:"Tile column"`
	Y          int     `path:"y" doc:"Tile row"`
	PixelRatio float64 `query:"pixelRatio" default:"1" minimum:"1" maximum:"4" doc:"Device pixel ratio"`
}

type QueryInput struct {
	Lon float64 `query:"lon" required:"true" doc:"Longitude (WGS84)" example:"127.0"`
	Lat float64 `query:"lat" required:"true" doc:"Latitude (WGS84)" example:"37.5"`
}

type QueryBody struct {
	Found  bool               `json:"found" doc:"False when there is no data at the point"`
	Result *query.PointResult `json:"result,omitempty" doc:"Interpolated risk at the point"`
}

// RegisterSurface registers the raster and point query routes.
func (h *APIHandler) RegisterSurface(api huma.API) {
	huma.Get(api, "/api/v1/render", h.Render, huma.OperationTags("surface"))
	huma.Get(api, "/api/v1/tiles/{z}/{x}/{y}", h.Tile, huma.OperationTags("surface"))
	huma.Get(api, "/api/v1/query", h.Query, huma.OperationTags("surface"))
}

func (h *APIHandler) Render(ctx context.Context, input *RenderInput) (*RenderOutput, error) {
	vp := geo.NewViewport(input.MinX, input.MinY, input.MaxX, input.MaxY, input.Width, input.Height, input.PixelRatio)
	if input.Resolution > 0 {
		vp.Resolution = input.Resolution
	}
	if err := vp.Validate(); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if vp.Width > maxPixels/vp.Height {
		return nil, huma.Error400BadRequest("image too large")
	}

	return h.renderPNG(ctx, vp)
}

// Tile renders one XYZ web map tile.
func (h *APIHandler) Tile(ctx context.Context, input *TileInput) (*RenderOutput, error) {
	t, err := tiles.Parse(input.Z, input.X, input.Y)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return h.renderPNG(ctx, tiles.Viewport(t, input.PixelRatio))
}

// renderPNG serves vp from the cache or renders it against the current model.
// Cache keys carry the model digest, so replicas sharing a cache tier only
// exchange renders of identical surfaces.
func (h *APIHandler) renderPNG(ctx context.Context, vp geo.Viewport) (*RenderOutput, error) {
	m := h.svc.Engine.Model()
	if data, ok := h.svc.Cache.Get(ctx, cache.Key(m.Digest, vp)); ok {
		h.svc.Engine.Served(m.Generation)
		return pngOutput(m.Generation, m.Digest, "hit", data), nil
	}

	frame, err := h.svc.Engine.Render(vp)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidViewport) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return nil, huma.Error500InternalServerError("rendering", err)
	}
	data, err := frame.Canvas.PNG()
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding", err)
	}
	h.svc.Cache.Set(ctx, cache.Key(frame.Digest, vp), data)
	return pngOutput(frame.Generation, frame.Digest, "miss", data), nil
}

func pngOutput(gen, digest uint64, cacheState string, data []byte) *RenderOutput {
	return &RenderOutput{
		ContentType: "image/png",
		Generation:  strconv.FormatUint(gen, 10),
		Digest:      strconv.FormatUint(digest, 16),
		Cache:       cacheState,
		Body:        data,
	}
}

func (h *APIHandler) Query(ctx context.Context, input *QueryInput) (*struct{ Body QueryBody }, error) {
	res := h.svc.Engine.Query(input.Lon, input.Lat)
	return &struct{ Body QueryBody }{Body: QueryBody{Found: res != nil, Result: res}}, nil
}
