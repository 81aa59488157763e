package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecommerce-dashboard/internal/dashboard"
	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/handlers"
	"ecommerce-dashboard/internal/middleware"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
	"ecommerce-dashboard/internal/ui/static"
)

type Server struct {
	router      chi.Router
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(
	analytics *services.Analytics,
	controller *dashboard.Controller,
	metrics *observability.Metrics,
	logger *slog.Logger,
	templateHandlers *TemplateHandlers,
) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, controller, logger),
		sseHandlers: handlers.NewSSEHandlers(controller, logger),
	}
	s.setupRoutes(templateHandlers, metrics)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers, metrics *observability.Metrics) {
	r := s.router
	r.Use(middleware.Metrics(metrics))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		errors.WriteError(w, s.logger, errors.NotFound("No route for "+req.URL.Path),
			observability.GetRequestID(req.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"METHOD_NOT_ALLOWED","message":"Method not allowed"}}`))
	})

	// Dashboard page and operational endpoints
	r.Get("/", templateHandlers.Dashboard)
	r.Get("/health", s.apiHandlers.HandleHealth)
	r.Get("/admin/stats", s.apiHandlers.HandleStats)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static.FS)))

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Get("/periods", s.apiHandlers.HandlePeriods)
		r.Get("/states", s.apiHandlers.HandleStates)
		r.Get("/boundaries", s.apiHandlers.HandleBoundaries)
		r.Post("/dashboard", s.apiHandlers.HandleDashboard)
		r.Post("/predicate", s.apiHandlers.HandlePredicate)
	})

	// Datastar SSE endpoints
	r.Route("/sse", func(r chi.Router) {
		r.Get("/refresh", s.sseHandlers.HandleRefresh)
		r.Get("/granularity", s.sseHandlers.HandleGranularity)
		r.Get("/map-click", s.sseHandlers.HandleMapClick)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
