package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/cache"
	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RecomputeTimeout: 5 * time.Second},
		Cache:  config.CacheConfig{Backend: config.CacheMemory, Size: 16, SessionLimit: 16},
		Security: config.SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  100,
			AllowedOrigins:  []string{"http://localhost:8084"},
		},
	}
}

// Test helper to create analytics with test data
func newTestAnalytics() *services.Analytics {
	row := func(ym, wk, status, state, category string, amount float64) models.FactRow {
		return models.FactRow{
			YearMonth:   ym,
			YearWeek:    wk,
			Status:      status,
			Fulfillment: models.FulfillmentMerchant,
			Category:    category,
			State:       state,
			OrderCount:  2,
			Qty:         3,
			Amount:      amount,
		}
	}
	a := services.NewAnalytics()
	a.SetData([]models.FactRow{
		row("2022-04", "2022-04-04/2022-04-10", "Shipped", "Maharashtra", "Set", 1200),
		row("2022-05", "2022-05-02/2022-05-08", "Shipped - Delivered to Buyer", "Karnataka", "Kurta", 800),
		row("2022-06", "2022-06-06/2022-06-12", "Pending", "Kerala", "Saree", 300),
	}, nil)
	return a
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	summaries, err := cache.NewMemory(16)
	require.NoError(t, err)

	h, err := buildHandler(testConfig(), newTestAnalytics(), summaries, observability.NewMetrics(), logger)
	require.NoError(t, err)
	return h
}

func TestDashboardPage(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	body := w.Body.String()
	assert.Contains(t, body, pageTitle)
	assert.Contains(t, body, `id="metric-cards"`)
	assert.Contains(t, body, "Select Month Range:")
	// The latest month has only pending orders, which the default status
	// filter excludes.
	assert.Contains(t, body, "Showing 0 records for 2022-06.")

	// The headline ignores the status filter, so June's pending order shows.
	headline := body[strings.Index(body, `id="headline-cards"`):strings.Index(body, `class="controls"`)]
	assert.Contains(t, headline, `title="₹300.00"`)
	assert.Contains(t, headline, "2022-06")
}

func TestStaticAssets(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/dashboard.js", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "window.renderDashboard")
}

func TestMiddlewareChainApplied(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "https://cdn.plot.ly")
}

func TestDashboardAPIThroughChain(t *testing.T) {
	h := newTestHandler(t)
	body := `{"granularity":"Monthly","monthRange":[0,2],"statusGroups":["Shipped","Pending"]}`

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/dashboard", strings.NewReader(body))
	r.Header.Set("X-Request-ID", "req-42")
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Metrics models.Metrics `json:"metrics"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.True(t, response.Success)
	assert.Equal(t, 300.0, response.Data.Metrics.Revenue.Value)
	assert.Equal(t, 3.0, response.Data.Metrics.Quantity.Value)
}

func TestNewSummaryCacheMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, closeFn, err := newSummaryCache(context.Background(), config.CacheConfig{Backend: config.CacheMemory, Size: 8}, logger)
	require.NoError(t, err)

	_, ok := c.(*cache.Memory)
	assert.True(t, ok)
	assert.NoError(t, closeFn(context.Background()))
}
