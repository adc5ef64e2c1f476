// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-pestmap/internal/cache"
	"github.com/joeblew999/plat-pestmap/internal/colorramp"
	"github.com/joeblew999/plat-pestmap/internal/engine"
	"github.com/joeblew999/plat-pestmap/internal/region"
	"github.com/joeblew999/plat-pestmap/internal/service"
	"github.com/joeblew999/plat-pestmap/internal/store"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the dependencies for API handlers. Store and Cache are optional.
type Services struct {
	Engine  *engine.Engine
	Store   *store.Store
	Cache   cache.Cache
	Bus     *service.EventBus
	Log     *zap.Logger
	DataDir string
	Ramp    colorramp.Kind
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Snapshot ID" example:"3f2b8c1e-6a0d-4f8e-9c57-1f0b7f0e2a11"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status     string `json:"status" doc:"Health status" example:"ok"`
	Version    string `json:"version" doc:"API version" example:"0.1.0"`
	Generation uint64 `json:"generation" doc:"Installed model generation"`
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether snapshot history is available"`
	Regions  int      `json:"regions" doc:"Number of known regions"`
	Features []string `json:"features" doc:"Available features"`
}

type LegendBody struct {
	Ramp  colorramp.Kind   `json:"ramp" doc:"Colour ramp in use"`
	Bands []colorramp.Band `json:"bands" doc:"Risk bands, lowest first"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
	log *zap.Logger
}

func NewAPIHandler(svc *Services) *APIHandler {
	log := svc.Log
	if log == nil {
		log = zap.NewNop()
	}
	if svc.Cache == nil {
		svc.Cache = cache.Nop{}
	}
	return &APIHandler{svc: svc, log: log}
}

// RegisterRoutes registers every handler and the link transformer.
func RegisterRoutes(api huma.API, svc *Services) *APIHandler {
	h := NewAPIHandler(svc)
	huma.AutoRegister(api, h)
	return h
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

// RegisterReference registers the static reference data routes.
func (h *APIHandler) RegisterReference(api huma.API) {
	huma.Get(api, "/api/v1/regions", h.GetRegions, huma.OperationTags("reference"))
	huma.Get(api, "/api/v1/legend", h.GetLegend, huma.OperationTags("reference"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{
		Status:     "ok",
		Version:    Version,
		Generation: h.svc.Engine.Model().Generation,
	}}, nil
}

func (h *APIHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"idw", "raster", "query", "simulation", "events"}
	if h.svc.Store != nil {
		features = append(features, "snapshots")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-pestmap",
		Version:  Version,
		DataDir:  h.svc.DataDir,
		DB:       h.svc.Store != nil,
		Regions:  h.svc.Engine.Regions().Len(),
		Features: features,
	}}, nil
}

func (h *APIHandler) GetRegions(ctx context.Context, input *struct{}) (*struct{ Body []region.Region }, error) {
	return &struct{ Body []region.Region }{Body: h.svc.Engine.Regions().All()}, nil
}

func (h *APIHandler) GetLegend(ctx context.Context, input *struct{}) (*struct{ Body LegendBody }, error) {
	kind := h.svc.Ramp
	if kind == "" {
		kind = colorramp.KindDiscrete
	}
	return &struct{ Body LegendBody }{Body: LegendBody{Ramp: kind, Bands: colorramp.Bands}}, nil
}

// waitTimeout caps how long a request may block on a render signal. The signal
// itself resolves within the engine's render timeout.
const waitTimeout = 10 * time.Second
