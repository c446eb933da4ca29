// Package app provides the main application setup and dependency injection.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"media-fetch-go/pkg/appctx"
	"media-fetch-go/pkg/config"
	"media-fetch-go/pkg/fetcher"
	"media-fetch-go/pkg/handlers/api"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/metrics"
	"media-fetch-go/pkg/pool"
	"media-fetch-go/pkg/server"
)

// App is the main application container.
type App struct {
	Ctx    *appctx.Context
	Server *server.Server
}

// New creates and initializes the application.
func New() (*App, error) {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logging.New(cfg.LogLevel, cfg.LogJSON, nil)
	log.Info("initializing media-fetch", "port", cfg.Port, "log_level", cfg.LogLevel)

	// The downloads directory doubles as the credential staging location,
	// so it must exist before the first request.
	if err := os.MkdirAll(cfg.DownloadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating downloads directory: %w", err)
	}

	// Resolve the yt-dlp binary, downloading it if allowed and absent.
	if cfg.YtdlpAutoInstall {
		installCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := ytdlp.Install(installCtx, nil); err != nil {
			log.Warn("yt-dlp install check failed, relying on PATH", "error", err)
		}
	}

	// Create application context
	ctx := appctx.New(cfg, log)

	// Metrics collectors
	m := metrics.New()
	ctx.WithMetrics(m)

	// Bounded pool for the blocking extractor calls
	workers := pool.New(cfg.WorkerPoolSize)
	log.Info("worker pool ready", "size", workers.Size())

	// Extraction gateway
	ctx.WithFetcher(fetcher.New(cfg, log, workers, m))

	// Create HTTP server and register routes
	srv := server.New(cfg, log)
	handlers := api.NewHandlers(ctx)
	handlers.RegisterRoutes(srv.Router())

	return &App{
		Ctx:    ctx,
		Server: srv,
	}, nil
}

// Run starts the application.
func (a *App) Run() error {
	a.Ctx.Log.Info("starting media-fetch server", "port", a.Ctx.Config.Port)
	return a.Server.Start()
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() {
	a.Ctx.Log.Info("shutting down application")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.Server.Shutdown(ctx); err != nil {
		a.Ctx.Log.Error("server shutdown error", "error", err)
	}
}
