// Package main provides the entrypoint for the BugSpotter retention worker.
// The worker runs scheduled retention runs and exposes a health endpoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/archive"
	"github.com/apexbridge-tech/bugspotter/internal/database"
	"github.com/apexbridge-tech/bugspotter/internal/notify"
	"github.com/apexbridge-tech/bugspotter/internal/project"
	"github.com/apexbridge-tech/bugspotter/internal/report"
	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "bugspotter-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting BugSpotter retention worker")

	// Worker also exposes a health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	// Initialize archiver
	archiveURL := os.Getenv("ARCHIVE_SERVICE_URL")
	var archiver archive.Archiver
	if archiveURL != "" {
		archiver = archive.NewResilientArchiver(
			archive.NewHTTPArchiver(archive.HTTPConfig{BaseURL: archiveURL, Logger: log}),
			archive.ResilientConfig{Name: "storage-archiver", Logger: log},
		)
	} else {
		archiver = archive.NewInMemoryArchiver()
		log.Warn().Msg("ARCHIVE_SERVICE_URL not set - archiving to memory only")
	}

	// Initialize services
	projectService := project.NewService(project.NewPostgresRepository(pool, log), log)
	retentionService := retention.NewService(retention.ServiceConfig{
		Reports:  report.NewPostgresRepository(pool),
		Projects: projectService,
		Archiver: archiver,
		Logger:   log,
	})

	// Notifier: Pub/Sub if configured, otherwise log only
	var notifier retention.Notifier
	pubsubProject := os.Getenv("PUBSUB_PROJECT_ID")
	topic := os.Getenv("RETENTION_TOPIC")
	if pubsubProject != "" && topic != "" {
		psNotifier, err := notify.NewPubSubNotifier(ctx, notify.PubSubConfig{
			ProjectID: pubsubProject,
			Topic:     topic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub notifier")
		}
		defer func() { _ = psNotifier.Close() }()
		notifier = psNotifier
		log.Info().Str("topic", topic).Msg("pubsub notifier configured")
	} else {
		notifier = notify.NewLogNotifier(log)
		log.Info().Msg("pubsub not configured - run notifications go to the log")
	}

	// Scheduler configuration
	schedule := os.Getenv("RETENTION_CRON")
	if schedule == "" {
		schedule = "0 3 * * *" // daily at 3 AM
	}
	enabled := os.Getenv("RETENTION_SCHEDULER_ENABLED") != "false"

	scheduler, err := retention.NewScheduler(retention.SchedulerConfig{
		Service:  retentionService,
		Notifier: notifier,
		Logger:   log,
		Schedule: schedule,
		Timezone: os.Getenv("RETENTION_CRON_TZ"),
		Enabled:  enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create retention scheduler")
	}

	if err := scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start retention scheduler")
	}
	if enabled {
		event := log.Info().Str("schedule", schedule)
		if next := scheduler.NextRun(); next != nil {
			event = event.Time("next_run", *next)
		}
		event.Msg("retention scheduler started")
	} else {
		log.Info().Msg("retention scheduler disabled - manual triggers only")
	}

	// Health check server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s","runInProgress":%t}`, Version, scheduler.IsRunning())
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	// Let an in-flight retention run finish before exiting
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
