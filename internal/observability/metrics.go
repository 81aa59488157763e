package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dashboard"

// Metrics groups the collectors recorded by the dashboard. Each instance
// owns its registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	RecomputeDuration *prometheus.HistogramVec
	ConsumerFailures  *prometheus.CounterVec
	Superseded        prometheus.Counter
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	LoadedRows        prometheus.Gauge
	HTTPRequests      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecomputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Time spent recomputing one dashboard output.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"consumer"}),
		ConsumerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consumer_failures_total",
			Help:      "Recomputations that ended in an error placeholder.",
		}, []string{"consumer"}),
		Superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "superseded_results_total",
			Help:      "Results dropped because a newer control change arrived.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_cache_hits_total",
			Help:      "State summary cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_cache_misses_total",
			Help:      "State summary cache misses.",
		}),
		LoadedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fact_rows_loaded",
			Help:      "Rows in the active fact table.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status class.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.RecomputeDuration,
		m.ConsumerFailures,
		m.Superseded,
		m.CacheHits,
		m.CacheMisses,
		m.LoadedRows,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
