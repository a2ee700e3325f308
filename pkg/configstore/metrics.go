package configstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks Prometheus metrics for the configuration store. A nil
// *Metrics records nothing, so embedding applications can opt out.
//
// Metrics:
//   - ganymede_configstore_key_registrations_total: keys upserted by RegisterKeys
//   - ganymede_configstore_publishes_total: value publications by project and env
//   - ganymede_configstore_override_writes_total: override pointer writes
//   - ganymede_configstore_resolutions_total: resolutions by outcome
//   - ganymede_configstore_missing_keys_total: keys reported missing during resolution
//   - ganymede_configstore_variant_assignments_total: variant assignments by experiment type
//   - ganymede_configstore_operation_duration_seconds: mutation/resolve latency
type Metrics struct {
	keyRegistrationsTotal *prometheus.CounterVec
	publishesTotal        *prometheus.CounterVec
	overrideWritesTotal   *prometheus.CounterVec
	resolutionsTotal      *prometheus.CounterVec
	missingKeysTotal      *prometheus.CounterVec
	variantAssignments    *prometheus.CounterVec
	operationDuration     *prometheus.HistogramVec
}

// NewMetrics creates and registers store metrics with the provided registry.
// If registry is nil, a private registry is created; pass
// prometheus.DefaultRegisterer's registry explicitly to expose the metrics
// from an application-wide endpoint.
func NewMetrics(namespace, subsystem string, registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "ganymede"
	}
	if subsystem == "" {
		subsystem = "configstore"
	}

	m := &Metrics{
		keyRegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "key_registrations_total",
				Help:      "Total number of configuration keys upserted via registration",
			},
			[]string{"project"},
		),

		publishesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "publishes_total",
				Help:      "Total number of value publications",
			},
			[]string{"project", "env"},
		),

		overrideWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "override_writes_total",
				Help:      "Total number of experiment override writes",
			},
			[]string{"project", "env"},
		),

		resolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "resolutions_total",
				Help:      "Total number of resolutions by outcome (full, partial, empty)",
			},
			[]string{"project", "env", "outcome"},
		),

		missingKeysTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "missing_keys_total",
				Help:      "Total number of keys reported missing during resolution",
			},
			[]string{"project", "env"},
		),

		variantAssignments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "variant_assignments_total",
				Help:      "Total number of experiment variant assignments by experiment type",
			},
			[]string{"experiment_type"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Duration of store operations in seconds",
				// Store operations are local SQLite statements (< 10ms typical)
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to 80ms
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		m.keyRegistrationsTotal,
		m.publishesTotal,
		m.overrideWritesTotal,
		m.resolutionsTotal,
		m.missingKeysTotal,
		m.variantAssignments,
		m.operationDuration,
	)

	return m
}

// RecordKeyRegistrations records registered keys for one batch.
func (m *Metrics) RecordKeyRegistrations(project string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.keyRegistrationsTotal.WithLabelValues(project).Add(float64(count))
}

// RecordPublish records a value publication.
func (m *Metrics) RecordPublish(project, env string) {
	if m == nil {
		return
	}
	m.publishesTotal.WithLabelValues(project, env).Inc()
}

// RecordOverrideWrite records an experiment override write.
func (m *Metrics) RecordOverrideWrite(project, env string) {
	if m == nil {
		return
	}
	m.overrideWritesTotal.WithLabelValues(project, env).Inc()
}

// RecordResolution records a completed resolution and its missing-key count.
func (m *Metrics) RecordResolution(project, env string, resolved, missing int) {
	if m == nil {
		return
	}
	outcome := "full"
	switch {
	case resolved == 0 && missing > 0:
		outcome = "empty"
	case missing > 0:
		outcome = "partial"
	}
	m.resolutionsTotal.WithLabelValues(project, env, outcome).Inc()
	if missing > 0 {
		m.missingKeysTotal.WithLabelValues(project, env).Add(float64(missing))
	}
}

// RecordVariantAssignment records one experiment variant assignment.
func (m *Metrics) RecordVariantAssignment(experimentType ExperimentType) {
	if m == nil {
		return
	}
	m.variantAssignments.WithLabelValues(string(experimentType)).Inc()
}

// ObserveOperation records the duration of a store operation.
func (m *Metrics) ObserveOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
