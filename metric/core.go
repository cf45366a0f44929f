package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all configuration-lifecycle metrics
type Metrics struct {
	// Load and reload metrics
	ReloadsTotal     *prometheus.CounterVec
	ReloadFailures   prometheus.Counter
	LoadDuration     prometheus.Histogram
	WatchEventsTotal prometheus.Counter

	// Runtime mutation metrics
	UpdatesTotal     prometheus.Counter
	UpdateRejections prometheus.Counter
	RollbacksTotal   prometheus.Counter

	// Validation metrics
	ValidationErrors   prometheus.Gauge
	ValidationWarnings prometheus.Gauge
	HealthScore        prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all lifecycle metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "confkit",
				Subsystem: "config",
				Name:      "reloads_total",
				Help:      "Total number of configuration reloads by origin",
			},
			[]string{"origin"},
		),

		ReloadFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "confkit",
				Subsystem: "config",
				Name:      "reload_failures_total",
				Help:      "Total number of reloads rejected by validation",
			},
		),

		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "confkit",
				Subsystem: "config",
				Name:      "load_duration_seconds",
				Help:      "Time spent assembling and validating the merged tree",
				Buckets:   prometheus.DefBuckets,
			},
		),

		WatchEventsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "confkit",
				Subsystem: "config",
				Name:      "watch_events_total",
				Help:      "Total number of file change notifications observed",
			},
		),

		UpdatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "confkit",
				Subsystem: "config",
				Name:      "updates_total",
				Help:      "Total number of accepted runtime updates",
			},
		),

		UpdateRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "confkit",
				Subsystem: "config",
				Name:      "update_rejections_total",
				Help:      "Total number of runtime updates rejected by validation",
			},
		),

		RollbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "confkit",
				Subsystem: "config",
				Name:      "rollbacks_total",
				Help:      "Total number of successful history rollbacks",
			},
		),

		ValidationErrors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "confkit",
				Subsystem: "validation",
				Name:      "errors",
				Help:      "Validation error count of the active configuration",
			},
		),

		ValidationWarnings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "confkit",
				Subsystem: "validation",
				Name:      "warnings",
				Help:      "Validation warning count of the active configuration",
			},
		),

		HealthScore: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "confkit",
				Subsystem: "health",
				Name:      "score",
				Help:      "Overall configuration health score (0-100)",
			},
		),
	}
}

// RecordReload increments the reload counter for an origin
func (c *Metrics) RecordReload(origin string) {
	c.ReloadsTotal.WithLabelValues(origin).Inc()
}

// RecordReloadFailure increments the rejected-reload counter
func (c *Metrics) RecordReloadFailure() {
	c.ReloadFailures.Inc()
}

// RecordLoadDuration records one load cycle's wall time
func (c *Metrics) RecordLoadDuration(seconds float64) {
	c.LoadDuration.Observe(seconds)
}

// RecordWatchEvent increments the file notification counter
func (c *Metrics) RecordWatchEvent() {
	c.WatchEventsTotal.Inc()
}

// RecordUpdate increments the accepted-update counter
func (c *Metrics) RecordUpdate() {
	c.UpdatesTotal.Inc()
}

// RecordUpdateRejection increments the rejected-update counter
func (c *Metrics) RecordUpdateRejection() {
	c.UpdateRejections.Inc()
}

// RecordRollback increments the rollback counter
func (c *Metrics) RecordRollback() {
	c.RollbacksTotal.Inc()
}

// RecordValidation updates the error and warning gauges
func (c *Metrics) RecordValidation(errorCount, warningCount int) {
	c.ValidationErrors.Set(float64(errorCount))
	c.ValidationWarnings.Set(float64(warningCount))
}

// RecordHealthScore updates the health score gauge
func (c *Metrics) RecordHealthScore(score float64) {
	c.HealthScore.Set(score)
}
