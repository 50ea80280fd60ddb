// Package main provides the entrypoint for the BugSpotter retention API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/api"
	"github.com/apexbridge-tech/bugspotter/internal/api/middleware"
	"github.com/apexbridge-tech/bugspotter/internal/archive"
	"github.com/apexbridge-tech/bugspotter/internal/auth"
	"github.com/apexbridge-tech/bugspotter/internal/database"
	"github.com/apexbridge-tech/bugspotter/internal/project"
	"github.com/apexbridge-tech/bugspotter/internal/report"
	"github.com/apexbridge-tech/bugspotter/internal/retention"
	"github.com/apexbridge-tech/bugspotter/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "bugspotter-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting BugSpotter retention API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     "bugspotter",
		Audience:   "bugspotter-admin",
	})

	// Initialize repositories
	reportRepo := report.NewPostgresRepository(pool)
	projectRepo := project.NewPostgresRepository(pool, log)

	// Initialize archiver: HTTP client to the archive service, wrapped with
	// circuit breaker and retries
	archiveURL := os.Getenv("ARCHIVE_SERVICE_URL")
	var archiver archive.Archiver
	if archiveURL != "" {
		archiver = archive.NewResilientArchiver(
			archive.NewHTTPArchiver(archive.HTTPConfig{BaseURL: archiveURL, Logger: log}),
			archive.ResilientConfig{Name: "storage-archiver", Logger: log},
		)
		log.Info().Str("url", archiveURL).Msg("archive service configured")
	} else {
		archiver = archive.NewInMemoryArchiver()
		log.Warn().Msg("ARCHIVE_SERVICE_URL not set - archiving to memory only")
	}

	// Initialize services
	projectService := project.NewService(projectRepo, log)
	retentionService := retention.NewService(retention.ServiceConfig{
		Reports:  reportRepo,
		Projects: projectService,
		Archiver: archiver,
		Logger:   log,
	})
	log.Info().Msg("retention service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		BuildTime:        BuildTime,
		Logger:           log,
		ServiceName:      serviceName,
		Metrics:          metrics,
		JWTService:       jwtService,
		RetentionService: retentionService,
		ProjectService:   projectService,
		DB:               pool,
		Pinger:           pool,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
