/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Configure logging
  3. Initialize SQLite store
  4. Build the report controller and mail dispatcher
  5. Configure HTTP router and start the monthly scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  See config/config.go. The main ones:
  PORT, DB_PATH, LOG_LEVEL, LOG_FORMAT, BATCH_CONCURRENCY,
  SCHEDULER_ENABLED, SCHEDULER_INTERVAL, EMAIL_ENABLED, SMTP_*

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (cancels an in-flight batch)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/payroll.db"

  # Run with in-memory database and JSON logs
  LOG_FORMAT=json ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Monthly scheduler
  - config/config.go: Configuration
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/mailer"
	"github.com/warp/payroll-engine/reports"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags override the environment
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	cfg.ConfigureLogging()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	// Initialize store
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			log.WithError(err).Fatal("Failed to create database directory")
		}
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// Initialize controller and handler
	controller := reports.NewController(store, mailer.New(cfg.Mailer()))
	controller.Concurrency = cfg.BatchConcurrency
	handler := api.NewHandler(store, controller)

	// Start scheduler
	scheduler := api.NewMonthlyScheduler(handler.Runner, store)
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.CheckInterval = cfg.SchedulerInterval
	handler.Scheduler = scheduler
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(log.Fields{"port": cfg.Port, "db": cfg.DBPath}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
}
