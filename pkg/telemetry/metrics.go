package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for ceres invocations.
type Metrics struct {
	config MetricsConfig

	moduleCalls    *prometheus.CounterVec
	moduleDuration *prometheus.HistogramVec

	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	providerErrors   *prometheus.CounterVec

	errorsByKind *prometheus.CounterVec

	aspsDiscovered prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		moduleCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_calls_total",
				Help:      "Total number of module invocations",
			},
			[]string{"module", "status"},
		),
		moduleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "module_duration_seconds",
				Help:      "Duration of module invocations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"module"},
		),
		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Total number of provider calls",
			},
			[]string{"provider", "operation"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_call_duration_seconds",
				Help:      "Duration of provider calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Total number of failed provider calls",
			},
			[]string{"provider", "operation"},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of failed invocations by error kind",
			},
			[]string{"kind"},
		),
		aspsDiscovered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "asps_discovered",
				Help:      "Number of ASPs found by the last discovery",
			},
		),
	}

	registry.MustRegister(
		m.moduleCalls,
		m.moduleDuration,
		m.providerCalls,
		m.providerDuration,
		m.providerErrors,
		m.errorsByKind,
		m.aspsDiscovered,
	)

	return m, nil
}

// RecordModuleCall records a finished module invocation.
func (m *Metrics) RecordModuleCall(module, status string, duration time.Duration) {
	if m == nil || m.moduleCalls == nil {
		return
	}
	m.moduleCalls.WithLabelValues(module, status).Inc()
	m.moduleDuration.WithLabelValues(module).Observe(duration.Seconds())
}

// RecordProviderCall records a provider call.
func (m *Metrics) RecordProviderCall(provider, operation string, duration time.Duration) {
	if m == nil || m.providerCalls == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, operation).Inc()
	m.providerDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordProviderError records a failed provider call.
func (m *Metrics) RecordProviderError(provider, operation string) {
	if m == nil || m.providerErrors == nil {
		return
	}
	m.providerErrors.WithLabelValues(provider, operation).Inc()
}

// RecordError records a failed invocation by its error kind.
func (m *Metrics) RecordError(kind string) {
	if m == nil || m.errorsByKind == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}

// SetAspsDiscovered sets the number of ASPs found by discovery.
func (m *Metrics) SetAspsDiscovered(n int) {
	if m == nil || m.aspsDiscovered == nil {
		return
	}
	m.aspsDiscovered.Set(float64(n))
}

// WriteTextfile writes all metrics to the configured textfile.
func (m *Metrics) WriteTextfile() error {
	if m == nil || m.registry == nil || m.config.Textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(m.config.Textfile, m.registry)
}

// MetricsFromContext returns the metrics of the telemetry in ctx. The result may
// be nil; all recording methods accept a nil receiver.
func MetricsFromContext(ctx context.Context) *Metrics {
	if tel := FromTelemetryContext(ctx); tel != nil {
		return tel.Metrics
	}
	return nil
}
