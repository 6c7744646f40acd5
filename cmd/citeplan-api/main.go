// Package main is the entry point for the citeplan-api server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/citeplan/citeplan-api/internal/config"
	"github.com/citeplan/citeplan-api/internal/database"
	"github.com/citeplan/citeplan-api/internal/http/handlers"
	"github.com/citeplan/citeplan-api/internal/http/mw"
	"github.com/citeplan/citeplan-api/internal/logging"
	"github.com/citeplan/citeplan-api/internal/repository"
	"github.com/citeplan/citeplan-api/internal/service"
	"github.com/citeplan/citeplan-api/internal/sitedomains"
	"github.com/citeplan/citeplan-api/internal/version"
)

func main() {
	// Initialize logger with TTY detection, source paths, and format control
	logger := logging.SetDefault()

	// Log version info first thing
	v := version.Get()
	logger.Info("starting citeplan-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Run migrations (with logging for each migration applied)
	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Build the site domain table: built-in defaults, optionally replaced
	// by an S3-hosted override, with the inline env override winning.
	sites := loadSiteDomains(cfg, logger)

	// Initialize services
	services := service.NewServices(cfg, repos, sites, logger)
	if !cfg.SearchEnabled() {
		logger.Warn("GOOGLE_CSE_KEY/GOOGLE_CSE_CX not set - listing URL resolution disabled")
	}

	// Create router
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Request timeout middleware with different timeouts per endpoint type
	router.Use(mw.Timeout(mw.TimeoutConfig{
		Default:  30 * time.Second,
		Extended: cfg.CompletionTimeout,
		// Plan generation and listing resolution call external APIs
		ExtendedPatterns: []string{"/citations/plan", "/resolve"},
	}))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB) - prevent large payload attacks
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	// Global rate limit by IP
	router.Use(httprate.LimitByIP(100, time.Minute))

	// Global concurrency throttle - prevent system overload
	router.Use(middleware.Throttle(100))

	// Create Huma API config with OpenAPI docs
	humaConfig := huma.DefaultConfig("CitePlan API", "1.0.0")
	humaConfig.Info.Description = "Local SEO citation planning API that generates and resolves business listing plans across directory sites."
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.BaseURL, Description: "API Server"},
	}
	api := humachi.New(router, humaConfig)

	// Config for hidden routes (K8s probes - no docs needed)
	hiddenConfig := huma.DefaultConfig("CitePlan API", "1.0.0")
	hiddenConfig.DocsPath = ""
	hiddenConfig.OpenAPIPath = ""
	hiddenConfig.SchemasPath = ""
	hiddenAPI := humachi.New(router, hiddenConfig)

	// Health check (public, shown in docs)
	huma.Get(api, "/api/v1/health", handlers.HealthCheck)

	// Kubernetes probes (hidden from docs - internal use only)
	huma.Get(hiddenAPI, "/healthz", handlers.Livez)
	readyzHandler := handlers.NewReadyzHandler(db)
	huma.Get(hiddenAPI, "/readyz", readyzHandler.Readyz)

	// Citation plan routes
	citationHandler := handlers.NewCitationHandler(services.Citation, cfg.BaseURL)
	huma.Post(api, "/api/v1/citations/plan", citationHandler.CreatePlan)
	huma.Get(api, "/api/v1/citations/jobs", citationHandler.ListJobs)
	huma.Get(api, "/api/v1/citations/jobs/{id}", citationHandler.GetJob)
	huma.Post(api, "/api/v1/citations/{id}/resolve", citationHandler.ResolveCitation)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	// Start server
	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// loadSiteDomains resolves the site domain table used for listing search
// scoping. Precedence: CSE_SITE_DOMAINS env JSON, then the S3 override
// object, then the built-in defaults. Load failures fall back rather
// than aborting startup.
func loadSiteDomains(cfg *config.Config, logger *slog.Logger) *sitedomains.Table {
	if cfg.SiteDomainsJSON != "" {
		sites, err := sitedomains.Load(cfg.SiteDomainsJSON)
		if err != nil {
			logger.Warn("invalid CSE_SITE_DOMAINS override, using defaults", "error", err)
			return sitedomains.Default()
		}
		logger.Info("site domain table loaded from environment")
		return sites
	}

	if cfg.StorageEnabled {
		s3Client := config.NewS3Client(cfg)
		loader := config.NewSiteDomainsLoader(config.SiteDomainsLoaderConfig{
			S3Client: s3Client,
			Bucket:   cfg.StorageBucket,
			Key:      cfg.SiteDomainsKey,
		})
		if loader.IsEnabled() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			data, err := loader.Fetch(ctx)
			switch {
			case err != nil:
				logger.Warn("failed to fetch site domain override, using defaults", "error", err)
			case data == nil:
				logger.Info("no site domain override in storage, using defaults")
			default:
				sites, err := sitedomains.Load(string(data))
				if err != nil {
					logger.Warn("invalid site domain override, using defaults", "error", err)
					return sitedomains.Default()
				}
				logger.Info("site domain table loaded from storage",
					"bucket", cfg.StorageBucket,
					"key", cfg.SiteDomainsKey,
				)
				return sites
			}
		}
	}

	return sitedomains.Default()
}
