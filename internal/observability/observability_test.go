package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerCarriesContextIDs(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"})

	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-9")
	Logger(ctx, base).Info("refresh")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "sess-9", entry["session_id"])
	assert.Equal(t, "refresh", entry["msg"])
}

func TestSpanNesting(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "http.request")
	_, child := StartSpan(ctx, "recompute")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.Len(t, parent.SpanID, 16)
	assert.Same(t, parent, GetSpan(ctx))

	child.SetError(errors.New("boom"))
	child.Finish()
	assert.Equal(t, SpanStatusError, child.Status)

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("done", "span", child)
	assert.Contains(t, buf.String(), "span.operation=recompute")
	assert.Contains(t, buf.String(), "span.error=boom")
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.Superseded.Inc()
	m.CacheHits.Add(2)
	m.RecomputeDuration.WithLabelValues("metrics").Observe(0.01)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "dashboard_superseded_results_total 1"))
	assert.Contains(t, body, "dashboard_summary_cache_hits_total 2")
	assert.Contains(t, body, `dashboard_recompute_duration_seconds_count{consumer="metrics"} 1`)
}
