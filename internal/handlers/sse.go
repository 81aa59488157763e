package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"ecommerce-dashboard/internal/dashboard"
	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	controller *dashboard.Controller
	logger     *slog.Logger
}

func NewSSEHandlers(controller *dashboard.Controller, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		controller: controller,
		logger:     logger,
	}
}

// HandleRefresh recomputes every output from the page signals and patches
// the fragments and chart data back.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	page, ok := h.readSignals(w, r)
	if !ok {
		return
	}
	ctx := observability.WithSessionID(r.Context(), page.SessionID)

	sse := datastar.NewSSE(w, r)
	h.refresh(ctx, sse, page)
}

// HandleGranularity switches which period control is shown, then refreshes
// against the newly active range.
func (h *SSEHandlers) HandleGranularity(w http.ResponseWriter, r *http.Request) {
	page, ok := h.readSignals(w, r)
	if !ok {
		return
	}
	ctx := observability.WithSessionID(r.Context(), page.SessionID)

	sse := datastar.NewSSE(w, r)
	v := dashboard.VisibilityFor(page.Granularity)
	if !h.patchSignals(ctx, sse, map[string]any{
		"showMonth":  v.ShowMonth,
		"showWeek":   v.ShowWeek,
		"rangeLabel": v.RangeLabel,
	}) {
		return
	}
	h.refresh(ctx, sse, page)
}

// HandleMapClick toggles the clicked state in the selection and refreshes.
func (h *SSEHandlers) HandleMapClick(w http.ResponseWriter, r *http.Request) {
	page, ok := h.readSignals(w, r)
	if !ok {
		return
	}
	ctx := observability.WithSessionID(r.Context(), page.SessionID)

	requestID := observability.GetRequestID(r.Context())
	state := strings.TrimSpace(r.URL.Query().Get("state"))
	if state == "" {
		errors.WriteError(w, h.logger, errors.BadRequest("Missing state parameter"), requestID)
		return
	}
	if !slices.Contains(page.SelectedStates, state) && !h.controller.KnownState(state) {
		errors.WriteError(w, h.logger, errors.Validation("Unknown state "+strconv.Quote(state)), requestID)
		return
	}
	controls := dashboard.ToggleState(page.Signals().Controls, state)
	page.SelectedStates = controls.SelectedStates
	if page.SelectedStates == nil {
		page.SelectedStates = []string{}
	}

	sse := datastar.NewSSE(w, r)
	if !h.patchSignals(ctx, sse, map[string]any{"selectedStates": page.SelectedStates}) {
		return
	}
	h.refresh(ctx, sse, page)
}

func (h *SSEHandlers) readSignals(w http.ResponseWriter, r *http.Request) (dashboard.PageSignals, bool) {
	var page dashboard.PageSignals
	if err := datastar.ReadSignals(r, &page); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Invalid signals"),
			observability.GetRequestID(r.Context()))
		return page, false
	}
	return page, true
}

func (h *SSEHandlers) refresh(ctx context.Context, sse *datastar.ServerSentEventGenerator, page dashboard.PageSignals) {
	log := observability.Logger(ctx, h.logger)
	signals := page.Signals()

	view, err := h.controller.Refresh(ctx, signals)
	if err != nil && isValidation(err) {
		log.Warn("invalid controls, rendering empty selection", "error", err)
		view, err = h.controller.Render(ctx, signals.SessionID, filter.NoSelection(granularityOf(page)), nil)
	}
	switch {
	case stderrors.Is(err, dashboard.ErrSuperseded):
		return
	case err != nil:
		log.Error("refresh dashboard", "error", err)
		return
	}

	for _, c := range []templ.Component{
		templates.StatusLine(view.Description),
		templates.MetricCards(view.Metrics),
		templates.StateTable(view.States),
		templates.ChartNotices(templates.NoticesFor(view)),
	} {
		html, err := renderFragment(ctx, c)
		if err != nil {
			log.Error("render fragment", "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			log.Debug("patch elements", "error", err)
			return
		}
	}

	h.patchSignals(ctx, sse, map[string]any{"_view": view})
}

func (h *SSEHandlers) patchSignals(ctx context.Context, sse *datastar.ServerSentEventGenerator, signals map[string]any) bool {
	data, err := json.Marshal(signals)
	if err != nil {
		observability.Logger(ctx, h.logger).Error("marshal signals", "error", err)
		return false
	}
	if err := sse.PatchSignals(data); err != nil {
		observability.Logger(ctx, h.logger).Debug("patch signals", "error", err)
		return false
	}
	return true
}

func renderFragment(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func granularityOf(page dashboard.PageSignals) models.Granularity {
	if page.Granularity.Valid() {
		return page.Granularity
	}
	return models.Monthly
}
