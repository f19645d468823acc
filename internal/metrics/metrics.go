// Package metrics defines the Prometheus collectors of the web app and the
// sync worker.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	chartRenders    *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
	eventsProcessed *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

// New registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kakeibo_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kakeibo_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		chartRenders: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kakeibo_chart_renders_total",
				Help: "Chart render attempts by surface kind and result",
			},
			[]string{"surface", "result"},
		),
		eventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kakeibo_events_published_total",
				Help: "Expense events published to the broker",
			},
			[]string{"action", "result"},
		),
		eventsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kakeibo_events_processed_total",
				Help: "Expense events handled by the sync worker",
			},
			[]string{"action", "result"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kakeibo_analytics_cache_lookups_total",
				Help: "Analytics cache lookups by outcome (hit or miss)",
			},
			[]string{"outcome"},
		),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ChartRendered(surface string, err error) {
	if m == nil {
		return
	}
	m.chartRenders.WithLabelValues(surface, result(err)).Inc()
}

func (m *Metrics) EventPublished(action string, err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(action, result(err)).Inc()
}

func (m *Metrics) EventProcessed(action string, err error) {
	if m == nil {
		return
	}
	m.eventsProcessed.WithLabelValues(action, result(err)).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}
