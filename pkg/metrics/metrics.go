package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "whispen"

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	// http
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// domain
	uploadSize            prometheus.Histogram
	transcriptionDuration *prometheus.HistogramVec
	summaryDuration       *prometheus.HistogramVec
	artifactsDeleted      *prometheus.CounterVec
	rateLimited           *prometheus.CounterVec

	// system
	tempDiskUsed     prometheus.Gauge
	tempDiskFree     prometheus.Gauge
	systemMemoryUsed prometheus.Gauge
	systemGoroutines prometheus.Gauge
}

// NewMetrics registers every collector on reg. Use prometheus.NewRegistry in
// tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path", "status"},
		),

		uploadSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_size_bytes",
				Help:      "Size of stored audio uploads",
				Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 8),
			},
		),

		transcriptionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transcription_duration_seconds",
				Help:      "Wall clock time spent in the transcription engine",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"backend", "status"},
		),

		summaryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "summary_duration_seconds",
				Help:      "Wall clock time spent generating a summary",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"style", "status"},
		),

		artifactsDeleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifacts_deleted_total",
				Help:      "Audio files removed from the temp folder",
			},
			[]string{"reason"},
		),

		rateLimited: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"path"},
		),

		tempDiskUsed: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "temp_disk_used_bytes",
				Help:      "Used bytes on the filesystem holding the temp folder",
			},
		),

		tempDiskFree: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "temp_disk_free_bytes",
				Help:      "Free bytes on the filesystem holding the temp folder",
			},
		),

		systemMemoryUsed: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_memory_used_bytes",
				Help:      "System memory in use",
			},
		),

		systemGoroutines: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_goroutines",
				Help:      "Number of goroutines",
			},
		),
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, responseSize int64) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.httpResponseSize.WithLabelValues(method, path, status).Observe(float64(responseSize))
}

// RecordUpload records the size of a stored upload.
func (m *Metrics) RecordUpload(size int64) {
	if m == nil {
		return
	}
	m.uploadSize.Observe(float64(size))
}

// RecordTranscription records one engine run.
func (m *Metrics) RecordTranscription(backend string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.transcriptionDuration.WithLabelValues(backend, status(ok)).Observe(duration.Seconds())
}

// RecordSummary records one summary generation.
func (m *Metrics) RecordSummary(style string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.summaryDuration.WithLabelValues(style, status(ok)).Observe(duration.Seconds())
}

// RecordDeleted counts removed artifacts, reason is "request" or "sweep".
func (m *Metrics) RecordDeleted(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.artifactsDeleted.WithLabelValues(reason).Add(float64(n))
}

// RecordRateLimited counts a rejected request.
func (m *Metrics) RecordRateLimited(path string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(path).Inc()
}

// ObserveSystem publishes a system snapshot.
func (m *Metrics) ObserveSystem(stats *SystemStats) {
	if m == nil || stats == nil {
		return
	}
	m.tempDiskUsed.Set(float64(stats.Disk.Used))
	m.tempDiskFree.Set(float64(stats.Disk.Free))
	m.systemMemoryUsed.Set(float64(stats.Memory.Used))
	m.systemGoroutines.Set(float64(stats.Runtime.Goroutines))
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
