package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Tree metrics
	CrawlDuration prometheus.Histogram
	CrawlFailures prometheus.Counter
	TreeNodes     *prometheus.GaugeVec

	// Inspector metrics
	Inspections     *prometheus.CounterVec
	ArchiveBytes    prometheus.Histogram
	StaleSelections prometheus.Counter

	// Sandbox metrics
	BundlesActive  prometheus.Gauge
	BundlesBuilt   *prometheus.CounterVec
	BundlesEvicted *prometheus.CounterVec

	// Gate metrics
	UnlockAttempts *prometheus.CounterVec

	// Upstream metrics
	UpstreamRequests *prometheus.CounterVec
	BreakerState     prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	latency  *Window
	crawls   *Window
	archives *Window
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint
type Snapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	Inspections   int64   `json:"inspections"`
	BundlesActive int64   `json:"bundles_active"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	LatencyMS     Summary `json:"latency_ms"`
	CrawlMS       Summary `json:"crawl_ms"`
	ArchiveBytes  Summary `json:"archive_bytes"`
	totalDuration float64
}

// NewMetrics creates a metrics collector on its own registry, so several
// servers (tests) can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		startTime: time.Now(),
		latency:   NewWindow(defaultWindow),
		crawls:    NewWindow(64),
		archives:  NewWindow(defaultWindow),

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pike_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pike_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		ResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pike_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000, 100000000},
			},
			[]string{"method", "path"},
		),

		CrawlDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pike_tree_crawl_duration_seconds",
				Help:    "Duration of full directory listing crawls",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		CrawlFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "pike_tree_crawl_failures_total",
				Help: "Crawls that returned a listing error",
			},
		),
		TreeNodes: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pike_tree_nodes",
				Help: "Nodes in the current tree by type",
			},
			[]string{"type"},
		),

		Inspections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pike_inspections_total",
				Help: "Archive inspections by outcome",
			},
			[]string{"outcome"},
		),
		ArchiveBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pike_archive_size_bytes",
				Help:    "Size of inspected archives",
				Buckets: prometheus.ExponentialBuckets(64*1024, 4, 9),
			},
		),
		StaleSelections: f.NewCounter(
			prometheus.CounterOpts{
				Name: "pike_stale_selections_total",
				Help: "Inspection results discarded because a newer selection started",
			},
		),

		BundlesActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "pike_sandbox_bundles_active",
				Help: "Sandbox bundles currently held in memory",
			},
		),
		BundlesBuilt: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pike_sandbox_bundles_built_total",
				Help: "Sandbox bundles built by presentation mode",
			},
			[]string{"mode"},
		),
		BundlesEvicted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pike_sandbox_bundles_released_total",
				Help: "Sandbox bundles released by reason",
			},
			[]string{"reason"},
		),

		UnlockAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pike_unlock_attempts_total",
				Help: "Folder unlock attempts by outcome",
			},
			[]string{"outcome"},
		),

		UpstreamRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pike_upstream_requests_total",
				Help: "Requests to the content repository by kind and status class",
			},
			[]string{"kind", "status"},
		),
		BreakerState: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "pike_upstream_breaker_state",
				Help: "Upstream circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
		),

		Uptime: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "pike_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// Handler exposes the registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	m.updateUptime()
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) updateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
	m.latency.Add(float64(duration) / float64(time.Millisecond))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if len(status) > 0 && status[0] >= '5' {
		m.snapshot.TotalErrors++
	}
}

// RecordCrawl records one tree build
func (m *Metrics) RecordCrawl(duration time.Duration, files, dirs int, failed bool) {
	m.CrawlDuration.Observe(duration.Seconds())
	m.crawls.Add(float64(duration) / float64(time.Millisecond))
	m.TreeNodes.WithLabelValues("file").Set(float64(files))
	m.TreeNodes.WithLabelValues("dir").Set(float64(dirs))
	if failed {
		m.CrawlFailures.Inc()
	}
}

// RecordInspection records one archive inspection
func (m *Metrics) RecordInspection(outcome string, size int64) {
	m.Inspections.WithLabelValues(outcome).Inc()
	if size > 0 {
		m.ArchiveBytes.Observe(float64(size))
		m.archives.Add(float64(size))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.Inspections++
}

// RecordUnlock records a folder unlock attempt
func (m *Metrics) RecordUnlock(outcome string) {
	m.UnlockAttempts.WithLabelValues(outcome).Inc()
}

// RecordUpstream records a request to the content repository
func (m *Metrics) RecordUpstream(kind string, status int) {
	m.UpstreamRequests.WithLabelValues(kind, statusClass(status)).Inc()
}

// BundleBuilt records a new sandbox bundle
func (m *Metrics) BundleBuilt(mode string) {
	m.BundlesBuilt.WithLabelValues(mode).Inc()
	m.BundlesActive.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.BundlesActive++
}

// BundleReleased records a sandbox bundle leaving memory
func (m *Metrics) BundleReleased(reason string) {
	m.BundlesEvicted.WithLabelValues(reason).Inc()
	m.BundlesActive.Dec()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.BundlesActive--
}

// SetBreakerState records the upstream breaker state
func (m *Metrics) SetBreakerState(state int) {
	m.BreakerState.Set(float64(state))
}

// Snapshot returns current values for the JSON health endpoint
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgLatencyMS = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	s.LatencyMS = m.latency.Summary()
	s.CrawlMS = m.crawls.Summary()
	s.ArchiveBytes = m.archives.Summary()
	return s
}

func statusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
