package handlers

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"ecommerce-dashboard/internal/dashboard"
	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

const (
	maxBodyBytes = 64 << 10
	cacheMaxAge  = "public, max-age=300"
)

type APIHandlers struct {
	analytics  *services.Analytics
	controller *dashboard.Controller
	logger     *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, controller *dashboard.Controller, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics:  analytics,
		controller: controller,
		logger:     logger,
	}
}

// HandleHealth reports unhealthy until a dataset with at least one fact row
// is loaded.
func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ds := h.analytics.Current()
	if len(ds.Facts) == 0 {
		errors.WriteError(w, h.logger, errors.ServiceUnavailable("Dataset not loaded"),
			observability.GetRequestID(r.Context()))
		return
	}

	healthData := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"records":   len(ds.Facts),
		"version":   ds.Version,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()
	stats["sessions"] = h.controller.Sessions()

	errors.WriteSuccess(w, stats)
}

type periodsResponse struct {
	Months   []string        `json:"months"`
	Weeks    []string        `json:"weeks"`
	Defaults filter.Controls `json:"defaults"`
}

// HandlePeriods returns the ordered month and week labels the range
// controls index into.
func (h *APIHandlers) HandlePeriods(w http.ResponseWriter, r *http.Request) {
	ix := h.analytics.Current().Index

	errors.WriteSuccessWithHeaders(w, periodsResponse{
		Months:   ix.Labels(models.Monthly),
		Weeks:    ix.Labels(models.Weekly),
		Defaults: dashboard.DefaultControls(ix),
	}, map[string]string{"Cache-Control": cacheMaxAge})
}

func (h *APIHandlers) HandleStates(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Current().KnownStates,
		map[string]string{"Cache-Control": cacheMaxAge})
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
	Geometry   json.RawMessage   `json:"geometry"`
}

// HandleBoundaries serves the loaded boundary set as GeoJSON, keyed by the
// normalized state name. It is written without the success envelope so map
// libraries can consume it directly.
func (h *APIHandlers) HandleBoundaries(w http.ResponseWriter, r *http.Request) {
	boundaries := h.analytics.Current().Boundaries

	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(boundaries))}
	for _, b := range boundaries {
		geometry := b.Geometry
		if len(geometry) == 0 {
			geometry = json.RawMessage("null")
		}
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			Properties: map[string]string{"name": b.State},
			Geometry:   geometry,
		})
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		h.logger.Error("encode boundaries", "error", err)
	}
}

// HandleDashboard computes the full view for the posted controls.
func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	signals, err := h.decodeSignals(w, r)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	view, err := h.controller.Refresh(r.Context(), signals)
	if err != nil {
		errors.WriteError(w, h.logger, h.classify(err), requestID)
		return
	}

	errors.WriteSuccess(w, view)
}

type predicateResponse struct {
	Predicate   filter.Predicate `json:"predicate"`
	Key         string           `json:"key"`
	Description string           `json:"description"`
}

// HandlePredicate compiles the posted controls without computing any
// chart, which is useful for checking what a control state selects.
func (h *APIHandlers) HandlePredicate(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	signals, err := h.decodeSignals(w, r)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	pred, err := h.controller.Compile(signals)
	if err != nil {
		errors.WriteError(w, h.logger, h.classify(err), requestID)
		return
	}

	errors.WriteSuccess(w, predicateResponse{
		Predicate:   pred,
		Key:         pred.Key(),
		Description: filter.Describe(pred, h.analytics.Current().Facts),
	})
}

func (h *APIHandlers) decodeSignals(w http.ResponseWriter, r *http.Request) (dashboard.Signals, error) {
	var s dashboard.Signals

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return s, errors.BadRequestWrap(err, "Request body must be a JSON control object")
	}
	return s, nil
}

func (h *APIHandlers) classify(err error) error {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, dashboard.ErrSuperseded):
		return errors.Superseded("A newer request for this session replaced this one")
	default:
		if isValidation(err) {
			return errors.ValidationWrap(err, "Invalid dashboard controls")
		}
		return errors.InternalWrap(err, "Failed to compute dashboard")
	}
}

func isValidation(err error) bool {
	var verrs validator.ValidationErrors
	var invalid *validator.InvalidValidationError
	return stderrors.As(err, &verrs) || stderrors.As(err, &invalid)
}
