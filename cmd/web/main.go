package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"ecommerce-dashboard/internal/cache"
	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/dashboard"
	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/middleware"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/server"
	"ecommerce-dashboard/internal/services"
	"ecommerce-dashboard/internal/ui/templates"
)

const (
	pageTitle     = "Amazon India Sales Dashboard"
	renderTimeout = 10 * time.Second
)

// dashboardPage renders the page with a fresh session id and the default
// controls already computed, so the first paint needs no round trip.
func dashboardPage(analytics *services.Analytics, controller *dashboard.Controller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		ds := analytics.Current()
		sessionID := uuid.NewString()
		controls := dashboard.DefaultControls(ds.Index)

		view, err := controller.Render(ctx, sessionID, filter.Compile(controls, ds.Index), nil)
		if err != nil {
			observability.Logger(ctx, logger).Error("initial render", "error", err)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		page := templates.Dashboard(templates.PageData{
			Title:    pageTitle,
			Signals:  dashboard.NewPageSignals(sessionID, controls),
			View:     view,
			Headline: ds.Headline(),
			Months:   ds.Index.Labels(models.Monthly),
			Weeks:    ds.Index.Labels(models.Weekly),
		})
		if err := page.Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// newSummaryCache builds the configured cache backend. The returned close
// func is registered as a shutdown hook.
func newSummaryCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (cache.SummaryCache, func(context.Context) error, error) {
	local, err := cache.NewMemory(cfg.Size)
	if err != nil {
		return nil, nil, err
	}
	noop := func(context.Context) error { return nil }

	if cfg.Backend != config.CacheRedis {
		return local, noop, nil
	}

	shared, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.TTL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect summary cache: %w", err)
	}
	return cache.NewTiered(local, shared), func(context.Context) error { return shared.Close() }, nil
}

// buildHandler wires the router, the controller and the middleware chain.
func buildHandler(cfg *config.Config, analytics *services.Analytics, summaries cache.SummaryCache, metrics *observability.Metrics, logger *slog.Logger) (http.Handler, error) {
	controller, err := dashboard.New(analytics, dashboard.Options{
		Cache:        summaries,
		Metrics:      metrics,
		Logger:       logger,
		SessionLimit: cfg.Cache.SessionLimit,
		Timeout:      cfg.Server.RecomputeTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create controller: %w", err)
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardPage(analytics, controller, logger),
	}
	srv := server.NewServer(analytics, controller, metrics, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"fact_source", cfg.Data.FactSource,
		"boundary_source", cfg.Data.BoundarySource,
		"cache_backend", cfg.Cache.Backend,
	)

	loader := dataset.NewLoader(dataset.Options{
		SnapshotDir:     cfg.Data.SnapshotDir,
		SQLTable:        cfg.Data.SQLTable,
		Country:         cfg.Data.Country,
		NameProperty:    cfg.Data.NameProperty,
		FetchAttempts:   cfg.Data.FetchAttempts,
		FetchBackoff:    cfg.Data.FetchBackoff,
		DisableSnapshot: cfg.Data.DisableSnapshot,
	}, logger)

	analytics := services.NewAnalytics()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.Load(ctx, loader, cfg.Data.FactSource, cfg.Data.BoundarySource); err != nil {
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}
	logger.Info("dataset loaded", "duration", time.Since(start))

	metrics := observability.NewMetrics()
	metrics.LoadedRows.Set(float64(len(analytics.Current().Facts)))

	summaries, closeCache, err := newSummaryCache(ctx, cfg.Cache, logger)
	if err != nil {
		logger.Error("failed to create summary cache", "error", err)
		os.Exit(1)
	}

	handler, err := buildHandler(cfg, analytics, summaries, metrics, logger)
	if err != nil {
		logger.Error("failed to build handler", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)
	gracefulServer.RegisterShutdownHook("summary-cache", closeCache)

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
