/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the time-entry engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load TE_* environment config, then apply command-line flags
  2. Initialize the zerolog root logger
  3. Initialize SQLite store
  4. Create API handler and router
  5. Start the retry scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port        HTTP server port (TE_PORT, default: 8080)
  -db          SQLite database path (TE_DB, default: timeentry.db)
               Use ":memory:" for in-memory database
  -tz          Payroll time zone (TE_TIMEZONE, default: Europe/Berlin)
  -bundesland  Default region for holidays (TE_BUNDESLAND)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the retry scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/timeentry.db"

  # Bavarian holidays, JSON logs
  LOG_FORMAT=json ./server -bundesland=BY

ENVIRONMENT:
  See config/config.go for TE_* and logger/logger.go for LOG_*.

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Retry scheduler
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/timeentry-engine/api"
	"github.com/warp/timeentry-engine/config"
	"github.com/warp/timeentry-engine/logger"
	"github.com/warp/timeentry-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags override the environment
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "payroll time zone")
	flag.StringVar(&cfg.DefaultBundesland, "bundesland", cfg.DefaultBundesland, "default Bundesland for holidays")
	flag.Parse()

	logger.Init(logger.FromEnv())
	log := logger.Named("server")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.DBPath).Msg("failed to initialize database")
	}
	defer store.Close()

	// Initialize handler
	apiLog := logger.Named("api")
	handler := api.NewHandler(store, api.Options{
		Location:         cfg.Location(),
		Region:           cfg.DefaultBundesland,
		Retry:            cfg.Retry,
		Concurrency:      cfg.Concurrency,
		RetryMaxAttempts: cfg.RetryMaxAttempts,
		Logger:           &apiLog,
	})

	scheduler := api.NewRetryScheduler(handler, cfg.RetryInterval)
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Int("port", cfg.Port).
			Str("db", cfg.DBPath).
			Str("tz", cfg.Timezone).
			Str("bundesland", cfg.DefaultBundesland).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
