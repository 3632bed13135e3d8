// Package monitoring exposes Prometheus metrics for the resolution cycle
// plus a JSON snapshot for the status API.
package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	Overrides          prometheus.Counter

	// Remote endpoint metrics
	RemoteCalls *prometheus.CounterVec

	// Error reporting
	NonFatalErrors prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry

	mu       sync.RWMutex
	snapshot Snapshot
}

// Snapshot holds current values for the JSON status API.
type Snapshot struct {
	Resolutions    int64   `json:"resolutions"`
	Overrides      int64   `json:"overrides"`
	NonFatalErrors int64   `json:"non_fatal_errors"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector registered on a private registry
// so repeated construction in tests never collides.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

// NewMetricsOn creates a metrics collector on the given registry.
func NewMetricsOn(reg *prometheus.Registry) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),
		registry:  reg,

		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appshell_resolutions_total",
				Help: "Committed resolutions by source",
			},
			[]string{"source"},
		),
		ResolutionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "appshell_resolution_duration_seconds",
				Help:    "Time from cycle start to commit",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
		),
		Overrides: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "appshell_deeplink_overrides_total",
				Help: "Server commits discarded by a later deep link",
			},
		),
		RemoteCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appshell_remote_calls_total",
				Help: "Remote resolution endpoint calls by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		NonFatalErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "appshell_non_fatal_errors_total",
				Help: "Errors reported to the crash sink as non-fatal",
			},
		),
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "appshell_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}
}

// Registry returns the registry backing this collector, for the /metrics
// handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordResolution records a committed resolution.
func (m *Metrics) RecordResolution(source string, elapsed time.Duration) {
	m.ResolutionsTotal.WithLabelValues(source).Inc()
	m.ResolutionDuration.Observe(elapsed.Seconds())

	m.mu.Lock()
	m.snapshot.Resolutions++
	m.mu.Unlock()
}

// RecordOverride records a deep-link override of a server commit.
func (m *Metrics) RecordOverride() {
	m.Overrides.Inc()

	m.mu.Lock()
	m.snapshot.Overrides++
	m.mu.Unlock()
}

// RecordRemoteCall records an endpoint call outcome ("hit", "miss", "error", "ok").
func (m *Metrics) RecordRemoteCall(endpoint, result string) {
	m.RemoteCalls.WithLabelValues(endpoint, result).Inc()
}

// RecordNonFatal records a crash-sink non-fatal report.
func (m *Metrics) RecordNonFatal() {
	m.NonFatalErrors.Inc()

	m.mu.Lock()
	m.snapshot.NonFatalErrors++
	m.mu.Unlock()
}

// CurrentSnapshot returns current metric values for the JSON status API.
func (m *Metrics) CurrentSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
