package metrics

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest(http.MethodGet, "/analytics", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/analytics", http.StatusOK, 10*time.Millisecond)
	m.ChartRendered("canvas", nil)
	m.ChartRendered("image", errors.New("boom"))
	m.EventPublished("created", nil)
	m.EventProcessed("deleted", errors.New("boom"))
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/analytics", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chartRenders.WithLabelValues("image", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("created", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsProcessed.WithLabelValues("deleted", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/", 200, time.Second)
		m.ChartRendered("canvas", nil)
		m.EventPublished("created", nil)
		m.EventProcessed("created", nil)
		m.CacheLookup(true)
	})
}
