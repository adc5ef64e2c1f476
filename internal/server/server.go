package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-pestmap/internal/api"
	"github.com/joeblew999/plat-pestmap/internal/cache"
	"github.com/joeblew999/plat-pestmap/internal/config"
	"github.com/joeblew999/plat-pestmap/internal/db"
	"github.com/joeblew999/plat-pestmap/internal/engine"
	"github.com/joeblew999/plat-pestmap/internal/humastar"
	"github.com/joeblew999/plat-pestmap/internal/logger"
	"github.com/joeblew999/plat-pestmap/internal/metrics"
	"github.com/joeblew999/plat-pestmap/internal/service"
	"github.com/joeblew999/plat-pestmap/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Host     string
	Port     string
	DataDir  string // empty disables snapshot history
	RedisURL string // empty keeps the render cache in-process
	Engine   config.Config
	Logger   *zap.Logger
}

// Server is the pest map HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	humaAPI huma.API
	engine  *engine.Engine
	db      *sql.DB
	redis   *redis.Client
	log     *zap.Logger
}

// New creates a new pest map server. Snapshot history and the shared Redis
// cache are optional: failures there are logged and the server runs without them.
func New(cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()

	links := api.Links()
	humaConfig := huma.DefaultConfig("plat-pestmap API", api.Version)
	humaConfig.Info.Description = "Crop pest risk surface: IDW interpolation of regional predictions, clipped raster tiles and point queries."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, humastar.LinkTransformer(links))

	humaAPI := humago.New(mux, humaConfig)

	bus := service.NewEventBus()
	eng, err := engine.FromConfig(cfg.Engine, bus, log)
	if err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
		engine:  eng,
		log:     log,
	}

	svc := &api.Services{
		Engine:  eng,
		Bus:     bus,
		Log:     log,
		DataDir: cfg.DataDir,
		Ramp:    cfg.Engine.Render.Ramp,
	}
	svc.Store = s.openStore()
	svc.Cache = s.openCache()

	api.RegisterRoutes(humaAPI, svc)
	mux.Handle("/metrics", metrics.Handler())
	s.handler = logger.AccessMiddleware(log)(mux)
	return s, nil
}

func (s *Server) openStore() *store.Store {
	if s.config.DataDir == "" {
		return nil
	}
	conn, err := db.Open(db.Config{DataDir: s.config.DataDir, DBName: "pestmap"})
	if err != nil {
		s.log.Warn("snapshot history disabled", zap.Error(err))
		return nil
	}
	st, err := store.New(context.Background(), conn, s.log)
	if err != nil {
		conn.Close()
		s.log.Warn("snapshot history disabled", zap.Error(err))
		return nil
	}
	s.db = conn
	return st
}

func (s *Server) openCache() cache.Cache {
	var front cache.Cache = cache.Nop{}
	if n := s.config.Engine.Render.CacheSize; n > 0 {
		m, err := cache.NewMemory(n)
		if err != nil {
			s.log.Warn("render cache disabled", zap.Error(err))
		} else {
			front = m
		}
	}

	rc, err := cache.OpenRedis(s.config.RedisURL)
	if err != nil {
		s.log.Warn("redis render cache disabled", zap.Error(err))
		return front
	}
	if rc == nil {
		return front
	}
	s.redis = rc
	s.log.Info("redis render cache enabled", zap.String("addr", rc.Options().Addr))
	return cache.Tiered{Front: front, Back: cache.NewRedis(rc, 0, s.log)}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Engine returns the shared surface engine.
func (s *Server) Engine() *engine.Engine { return s.engine }

// Close closes server resources.
func (s *Server) Close() error {
	var err error
	if s.db != nil {
		err = multierr.Append(err, s.db.Close())
	}
	if s.redis != nil {
		err = multierr.Append(err, s.redis.Close())
	}
	return err
}
