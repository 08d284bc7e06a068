package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/orbitkit/missionctl/internal/agent"
	v1 "github.com/orbitkit/missionctl/internal/api/v1"
	"github.com/orbitkit/missionctl/internal/api/ws"
	"github.com/orbitkit/missionctl/internal/config"
	"github.com/orbitkit/missionctl/internal/server/middleware"
	"github.com/orbitkit/missionctl/internal/store/postgres"
	"github.com/orbitkit/missionctl/internal/workflow"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	hub        *ws.Hub
	cfg        *config.Config
}

// New creates a Server with all routes wired.
// webAssets may be nil; when provided, the dashboard SPA is served on all
// unmatched routes (embedded via go:embed for single-binary distribution).
func New(cfg *config.Config, store *postgres.Store, hub *ws.Hub, runner *workflow.Runner, pool *agent.Pool, webAssets fs.FS) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		hub:    hub,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	info := &v1.SystemInfo{
		Version:   Version,
		StartedAt: time.Now(),
		Runner:    runner,
		Pool:      pool,
		Conns:     hub.Registry(),
	}

	// Authenticated JSON API on /api/v1. The limiter goroutine lives as
	// long as the process; it is bounded by server lifetime, not request
	// lifetime, hence context.Background.
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT.Secret))
		r.Use(middleware.RateLimitByIP(context.Background(), 100, 200))

		apiConfig := huma.DefaultConfig("Mission Control API", Version)
		apiConfig.Servers = []*huma.Server{
			{URL: "/api/v1"},
		}
		api := humachi.New(r, apiConfig)
		registerAPIRoutes(api, store, hub.Registry(), runner, pool, info)
	})

	// WebSocket routes. The dashboard connects before any login exchange,
	// so the realtime endpoint stays unauthenticated like the SPA itself.
	router.Route("/ws", func(r chi.Router) {
		registerWSRoutes(r, hub)
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Serve the embedded dashboard on all unmatched routes.
	// This must be the last route registered so API/WS routes take priority.
	if webAssets != nil {
		router.NotFound(spaFileServer(webAssets).ServeHTTP)
		log.Info().Msg("embedded dashboard enabled")
	}

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
