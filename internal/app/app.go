package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"brfsspulse/internal/config"
	apierrors "brfsspulse/internal/errors"
	"brfsspulse/internal/infrastructure"
	customMiddleware "brfsspulse/internal/middleware"
	"brfsspulse/internal/pipeline"
	"brfsspulse/internal/services"
	handlers "brfsspulse/internal/transport/http"
	"brfsspulse/internal/validation"
	ws "brfsspulse/internal/websocket"
	"brfsspulse/pkg/contracts"
)

const (
	// AppName identifies the service in startup logs
	AppName = "BRFSS Pulse - Chronic Disease Surveillance"
)

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Router           *chi.Mux
	Server           *http.Server
	WebSocketHub     *ws.Hub
	AnalyticsService *services.AnalyticsService
	HealthService    *services.HealthService
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.FullVersion()))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution()

	if !config.FileExists(cfg.Ingest.Source) {
		logger.Warn("Survey source file not found",
			slog.String("path", cfg.Ingest.Source),
			slog.String("action", "runs will fail until a source is provided"))
	}

	return newApplication(cfg, paths, logger, infrastructure.DefaultOTelConfig())
}

// newApplication wires the application from resolved dependencies
func newApplication(cfg *config.Config, paths *config.Paths, logger *slog.Logger, otelCfg *infrastructure.OTelConfig) (*Application, error) {
	otelProviders, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	if err := ws.InitOTelMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize WebSocket OpenTelemetry metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	// WebSocket hub carries run lifecycle frames to dashboard clients
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	analytics := services.NewAnalyticsServiceWithPaths(a.Config, a.Paths, a.Logger)
	analytics.SetEventBroadcaster(hub)

	runner := analytics.Runner()
	runner.SetEventHub(hub)

	tracer, err := pipeline.NewRunTracer(a.OTelProviders)
	if err != nil {
		a.Logger.Warn("Pipeline tracing disabled",
			slog.String("error", err.Error()))
	} else {
		runner.SetTracer(tracer)
	}

	a.AnalyticsService = analytics
	a.HealthService = services.NewHealthService(
		contracts.Version,
		a.Paths,
		analytics,
		hub,
		a.Logger,
	)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that never wraps the ResponseWriter, so the
	// WebSocket upgrade still reaches the raw connection
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	corsConfig := a.getCORSConfig()

	// WebSocket route stays outside the full middleware group
	wsOrigins := corsConfig.AllowedOrigins
	if a.isDevelopmentMode() {
		wsOrigins = nil
	}
	wsHandler := handlers.NewWebSocketHandler(a.WebSocketHub, wsOrigins, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", wsHandler.HandleWebSocket)

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware",
				slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		businessMetrics, _ := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
		r.Use(customMiddleware.BusinessMetricsMiddleware(businessMetrics))

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(corsConfig))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r, errorHandler)
		a.setupWebRoutes(r)
	})

	// Prometheus endpoint outside the middleware group for performance
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// Health and version endpoints under the standard request timeout
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Get("/health", healthHandler.Summary)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/health/detailed", healthHandler.DetailedHealth)
			r.Get("/health/stats", healthHandler.SystemStats)
			r.Get("/version", healthHandler.Version)

			filesHandler := handlers.NewFilesHandler(a.Paths, a.Logger, errorHandler)
			r.Mount("/artifacts", filesHandler.ArtifactRoutes())
			r.Get("/sources", filesHandler.ListSources)
		})

		// The run endpoint is synchronous, so the analytics subtree gets
		// the pipeline budget plus grace instead of the request timeout
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.runBudget(), a.Logger))

			analyticsHandler := handlers.NewAnalyticsHandler(a.AnalyticsService, a.Logger, errorHandler)
			r.Mount("/analytics", analyticsHandler.Routes())
		})
	})
}

// setupWebRoutes serves the dashboard bundle and its static assets
func (a *Application) setupWebRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Compress(5))
		r.Get("/", handlers.ServeDashboard(a.Paths.WebDir))
		r.Handle("/static/*", handlers.ServeStatic(a.Paths.StaticDir))
	})
}

// runBudget returns the timeout for the analytics subtree
func (a *Application) runBudget() time.Duration {
	budget := a.Config.Pipeline.Timeout
	if budget <= 0 {
		return a.Config.Server.ReadTimeout
	}
	return budget + 30*time.Second
}

// getCORSConfig builds the CORS policy for the current environment
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	isDevelopment := a.isDevelopmentMode()

	corsConfig := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	self := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	selfLoopback := fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port)

	if isDevelopment {
		// Development mode: allow the frontend dev server
		corsConfig.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			self,
			selfLoopback,
		}
		a.Logger.Info("CORS configured for development mode",
			slog.Any("allowed_origins", corsConfig.AllowedOrigins))
	} else {
		corsConfig.AllowedOrigins = []string{self, selfLoopback}
		if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
			corsConfig.AllowedOrigins = append(corsConfig.AllowedOrigins, a.Config.Security.AllowedOrigins...)
		}
		a.Logger.Info("CORS configured for production mode",
			slog.Any("allowed_origins", corsConfig.AllowedOrigins))
	}

	return corsConfig
}

// isDevelopmentMode detects if we're running in development mode
func (a *Application) isDevelopmentMode() bool {
	if env := os.Getenv("BRFSS_ENV"); env == "development" {
		return true
	}
	if env := os.Getenv("GO_ENV"); env == "development" {
		return true
	}
	return false
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	// The run endpoint responds only after the pipeline finishes, so
	// the write timeout must outlive the run budget
	writeTimeout := a.Config.Server.WriteTimeout
	if minimum := a.runBudget() + 30*time.Second; writeTimeout < minimum {
		writeTimeout = minimum
	}

	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("executable_dir", a.Paths.ExecutableDir),
		slog.String("data_dir", a.Paths.DataDir),
		slog.String("raw_dir", a.Paths.RawDir),
		slog.String("output_dir", a.Paths.OutputDir),
		slog.String("web_dir", a.Paths.WebDir),
		slog.String("logs_dir", a.Paths.LogsDir))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings",
			slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck verifies the critical paths are usable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	validator := validation.NewFileValidator(a.Logger)
	for _, dir := range []string{
		a.Paths.DataDir,
		a.Paths.RawDir,
		a.Paths.OutputDir,
		a.Paths.LogsDir,
	} {
		if err := validator.ValidateOutputDirectory(dir); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	// A missing dashboard bundle is fine; the built-in status page serves
	if !config.FileExists(a.Paths.WebDir) {
		a.Logger.InfoContext(ctx, "Web directory not found, serving built-in status page",
			slog.String("path", a.Paths.WebDir))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
