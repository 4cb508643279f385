// Package observe provides metrics collection for the anonymization
// pipeline.
package observe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/electaudit/cvranon/internal/ports"
)

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of pipeline throughput,
// stage latency, and advisory warning rates.
type PrometheusMetrics struct {
	stageLatency     *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// all metrics in the given registry; a nil registry uses the global
// Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		stageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cvranon_stage_duration_seconds",
				Help:    "Execution time of anonymization pipeline stages.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cvranon_operations_total",
				Help: "Pipeline operations by name and status.",
			},
			[]string{"operation", "status"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cvranon_run_state",
				Help: "Current run state values for the anonymization pipeline.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// stage execution time in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(stage string, d time.Duration) {
	pm.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	status, ok := labels["status"]
	if !ok {
		status = "unknown"
	}
	pm.operationCounter.WithLabelValues(metric, status).Add(value)
}

// SetGauge implements the MetricsCollector interface.
func (pm *PrometheusMetrics) SetGauge(metric string, value float64, labels map[string]string) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}
