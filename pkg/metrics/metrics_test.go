package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value reads a collector's current value without going through a registry.
func value(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)

	var out dto.Metric
	require.NoError(t, (<-ch).Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	return 0
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond, 10)
		m.RecordUpload(10)
		m.RecordTranscription("local", true, time.Second)
		m.RecordSummary("structured", false, time.Second)
		m.RecordDeleted("sweep", 3)
		m.RecordRateLimited("/x")
		m.ObserveSystem(&SystemStats{})
	})
}

func TestRecordDeleted(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordDeleted("sweep", 2)
	m.RecordDeleted("sweep", 0)
	m.RecordDeleted("request", 1)

	assert.Equal(t, 2.0, value(t, m.artifactsDeleted.WithLabelValues("sweep")))
	assert.Equal(t, 1.0, value(t, m.artifactsDeleted.WithLabelValues("request")))
}

func TestMonitorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	r := gin.New()
	r.Use(MonitorMiddleware(m))
	r.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, value(t, m.httpRequestsTotal.WithLabelValues("GET", "/items/:id", "200")))
	assert.Equal(t, 1.0, value(t, m.httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestSystemMonitorCollect(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	sm := NewSystemMonitor(t.TempDir(), time.Hour, m)

	assert.Nil(t, sm.GetLatestStats())

	stats := sm.Collect()
	require.NotNil(t, stats)
	assert.Same(t, stats, sm.GetLatestStats())
	assert.Greater(t, stats.Disk.Total, uint64(0))
	assert.Greater(t, stats.Runtime.Goroutines, 0)
	assert.Equal(t, float64(stats.Disk.Free), value(t, m.tempDiskFree))
}

func TestSystemMonitorStartStop(t *testing.T) {
	sm := NewSystemMonitor(t.TempDir(), time.Hour, nil)

	sm.Start()
	assert.True(t, sm.IsRunning())
	assert.NotNil(t, sm.GetLatestStats())

	sm.Stop()
	assert.False(t, sm.IsRunning())
	sm.Stop()
}

func TestSystemMonitorSamplesOnInterval(t *testing.T) {
	sm := NewSystemMonitor(t.TempDir(), 10*time.Millisecond, nil)

	sm.Start()
	defer sm.Stop()
	first := sm.GetLatestStats()
	require.NotNil(t, first)

	assert.Eventually(t, func() bool { return sm.GetLatestStats() != first }, time.Second, 5*time.Millisecond)

	sm.Stop()
	sm.Start()
	assert.True(t, sm.IsRunning())
}
