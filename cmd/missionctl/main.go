package main

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/orbitkit/missionctl/internal/agent"
	"github.com/orbitkit/missionctl/internal/api/ws"
	"github.com/orbitkit/missionctl/internal/config"
	"github.com/orbitkit/missionctl/internal/domain"
	"github.com/orbitkit/missionctl/internal/server"
	"github.com/orbitkit/missionctl/internal/store/postgres"
	redisstore "github.com/orbitkit/missionctl/internal/store/redis"
	"github.com/orbitkit/missionctl/internal/workflow"
	"github.com/orbitkit/missionctl/web"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("MISSIONCTL_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("MISSIONCTL_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	// Connect to Redis.
	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	// Connection registry plus its websocket front door.
	registry := ws.NewRegistry()
	hub := ws.NewHub(registry)

	pool := agent.NewPool()
	catalog := workflow.DefaultCatalog()

	// Pick the progress source: a local simulator for demos and development,
	// or live agent events relayed through Redis.
	var source workflow.Source
	if cfg.Workflow.Simulate {
		// Echo simulated events onto the project channel so external
		// tooling sees the same stream a live run would publish.
		simulated := workflow.NewSimulatedSource(catalog, cfg.Workflow.Tick, cfg.Workflow.MaxIncrement)
		source = workflow.NewEchoSource(simulated, pubsub, redisstore.WorkflowChannel)
		log.Info().Dur("tick", cfg.Workflow.Tick).Msg("using simulated workflow source")
	} else {
		source = workflow.NewLiveSource(pubsub, redisstore.WorkflowChannel)
		log.Info().Msg("using live workflow source via redis")
	}

	runner := workflow.NewRunner(source, registry, pool, catalog, store.Projects())

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Relay process-wide status envelopes (published by external tooling on
	// the system channel) to every dashboard connection.
	go relaySystemStatus(ctx, pubsub, registry)

	// Prepare embedded dashboard assets (strip "static/" prefix from fs paths).
	webAssets, err := fs.Sub(web.Assets, "static")
	if err != nil {
		return fmt.Errorf("web assets: %w", err)
	}

	// Create HTTP server with all routes wired.
	srv := server.New(cfg, store, hub, runner, pool, webAssets)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	// Stop in-flight workflow relays, then drop the remaining sockets.
	runner.Shutdown()
	registry.CloseAll("server shutting down")

	log.Info().Msg("stopped")
	return nil
}

// relaySystemStatus forwards system_status_update envelopes from the shared
// system channel to all connected dashboards. Exits when ctx is cancelled.
func relaySystemStatus(ctx context.Context, pubsub *redisstore.PubSub, registry *ws.Registry) {
	raw, cleanup, err := pubsub.Subscribe(ctx, redisstore.SystemChannel())
	if err != nil {
		log.Warn().Err(err).Msg("system status relay unavailable")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-raw:
			if !ok {
				return
			}
			ev, decodeErr := domain.DecodeEvent(data)
			if decodeErr != nil {
				log.Warn().Err(decodeErr).Msg("dropping undecodable system status envelope")
				continue
			}
			registry.BroadcastAll(ctx, ev)
		}
	}
}
