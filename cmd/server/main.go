package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zwickfi/zwickfi/internal/api/handlers"
	"github.com/zwickfi/zwickfi/internal/app"
	"github.com/zwickfi/zwickfi/internal/config"
	"github.com/zwickfi/zwickfi/internal/jobs/inmemory"
	"github.com/zwickfi/zwickfi/internal/logger"
)

func main() {
	var (
		dotenv  = flag.String("dotenv", ".env", "Env file to load before reading the environment (missing file is ignored)")
		port    = flag.String("port", "", "HTTP server port (default: $PORT or 8080)")
		workers = flag.Int("workers", 1, "Background sync workers for POST /api/runs")
	)
	flag.Parse()

	log := logger.New()

	if err := config.LoadDotEnv(*dotenv); err != nil {
		log.Fatal().Err(err).Msg("Failed to load env file")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if *port != "" {
		cfg.Server.Port = *port
	}

	ctx := logger.WithContext(context.Background(), log)

	// The server never prompts; every credential must come from the
	// environment or Secret Manager.
	creds, err := app.ResolveCredentials(ctx, cfg, false)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve credentials")
	}

	a, err := app.New(ctx, cfg, creds, app.Overrides{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	queue := inmemory.NewQueue(16, a.Store, inmemory.WithWorkers(*workers))

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := queue.Start(workerCtx, a.Service.Execute); err != nil {
		log.Fatal().Err(err).Msg("Failed to start sync worker")
	}

	router := handlers.NewRouter(handlers.Routes{
		Sync:    handlers.NewSyncHandler(a.Service, queue, log),
		Runs:    handlers.NewRunsHandler(a.Store, log),
		Metrics: a.Metrics.Handler(),
		Running: a.Service.Running,
	}, log)

	// GET / blocks for the whole pipeline run, so there is no write timeout.
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping sync queue")
	}

	log.Info().Msg("Server exited")
}
