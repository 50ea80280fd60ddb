// Package api provides the HTTP API for the BugSpotter retention engine.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/api/handler"
	"github.com/apexbridge-tech/bugspotter/internal/api/middleware"
	"github.com/apexbridge-tech/bugspotter/internal/auth"
	"github.com/apexbridge-tech/bugspotter/internal/project"
	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version          string
	BuildTime        string
	Logger           zerolog.Logger
	ServiceName      string
	Metrics          *middleware.Metrics
	JWTService       *auth.JWTService
	RetentionService *retention.Service
	ProjectService   *project.Service

	// DB backs transactional hard deletes and readiness checks. May be nil
	// in memory-backed deployments.
	DB handler.TxBeginner
	// Pinger is the readiness probe target, usually the same pool as DB.
	Pinger handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "bugspotter-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Pinger)
	retentionHandler := handler.NewRetentionHandler(cfg.RetentionService, cfg.DB, cfg.Logger)
	projectHandler := handler.NewProjectHandler(cfg.ProjectService, cfg.Logger)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.JWTService)

	// Create rate limit middleware for different endpoint categories
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Admin endpoints (authenticated, admin role only)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireAdmin)
			r.Use(standardRateLimit)

			// Retention engine operations
			r.Route("/retention", func(r chi.Router) {
				r.Get("/preview", retentionHandler.Preview)
				// Mutating runs are expensive; rate limit them harder.
				r.With(expensiveRateLimit).Post("/apply", retentionHandler.Apply)
				r.Post("/legal-hold", retentionHandler.LegalHold)
				r.Post("/restore", retentionHandler.Restore)
				r.With(expensiveRateLimit).Post("/hard-delete", retentionHandler.HardDelete)
			})

			// Project retention settings
			r.Put("/projects/{projectId}/retention", projectHandler.UpdateRetentionPolicy)
		})
	})

	return r
}
