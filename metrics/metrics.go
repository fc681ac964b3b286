// Package metrics exposes Prometheus counters for record writes, validation
// failures, sessions and schema reloads.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so tests can create as many as they like.
type Recorder struct {
	registry *prometheus.Registry

	recordsSaved       *prometheus.CounterVec
	recordsDeleted     *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	qualityFailures    prometheus.Counter
	batchEvents        *prometheus.CounterVec
	sessionsCreated    prometheus.Counter
	sessionsEvicted    prometheus.Counter
	schemaReloads      *prometheus.CounterVec
}

// New creates a Recorder with Go and process collectors registered.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		recordsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchtrack_records_saved_total",
			Help: "Records created or updated, by family and operation.",
		}, []string{"family", "op"}),
		recordsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchtrack_records_deleted_total",
			Help: "Records deleted, by family.",
		}, []string{"family"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchtrack_validation_failures_total",
			Help: "Record payloads rejected by validation, by family.",
		}, []string{"family"}),
		qualityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchtrack_quality_failed_total",
			Help: "Quality records classified as failing.",
		}),
		batchEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchtrack_batch_events_total",
			Help: "Batch lifecycle operations, by kind.",
		}, []string{"kind"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchtrack_sessions_created_total",
			Help: "Login sessions issued.",
		}),
		sessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchtrack_sessions_evicted_total",
			Help: "Sessions evicted by the per-user cap.",
		}),
		schemaReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchtrack_schema_reloads_total",
			Help: "Field schema reloads, by result (ok or degraded).",
		}, []string{"result"}),
	}

	registry.MustRegister(r.recordsSaved)
	registry.MustRegister(r.recordsDeleted)
	registry.MustRegister(r.validationFailures)
	registry.MustRegister(r.qualityFailures)
	registry.MustRegister(r.batchEvents)
	registry.MustRegister(r.sessionsCreated)
	registry.MustRegister(r.sessionsEvicted)
	registry.MustRegister(r.schemaReloads)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) RecordSaved(family string, created bool) {
	op := "update"
	if created {
		op = "create"
	}
	r.recordsSaved.WithLabelValues(family, op).Inc()
}

func (r *Recorder) RecordDeleted(family string) {
	r.recordsDeleted.WithLabelValues(family).Inc()
}

func (r *Recorder) ValidationFailed(family string) {
	r.validationFailures.WithLabelValues(family).Inc()
}

func (r *Recorder) QualityFailed() { r.qualityFailures.Inc() }

// BatchEvent counts a batch operation: created, advanced, updated or deleted.
func (r *Recorder) BatchEvent(kind string) {
	r.batchEvents.WithLabelValues(kind).Inc()
}

func (r *Recorder) SessionCreated() { r.sessionsCreated.Inc() }

func (r *Recorder) SessionsEvicted(n int) { r.sessionsEvicted.Add(float64(n)) }

// SchemaReloaded counts a reload of the fields document.
func (r *Recorder) SchemaReloaded(degraded bool) {
	result := "ok"
	if degraded {
		result = "degraded"
	}
	r.schemaReloads.WithLabelValues(result).Inc()
}
