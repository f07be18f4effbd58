package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "normalizr"

// Metrics implements [EngineHooks], [BuilderHooks] and [CacheHooks] with
// Prometheus collectors. It registers on its own registry so a short-lived
// CLI run can dump everything it recorded with [Metrics.WriteTextfile].
type Metrics struct {
	registry *prometheus.Registry

	Runs            *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	EntitiesStored  prometheus.Counter
	SchemasBuilt    *prometheus.CounterVec
	UnresolvedTotal *prometheus.CounterVec
	CacheEvents     *prometheus.CounterVec
	CacheBytes      *prometheus.CounterVec
}

// NewMetrics creates collectors on a fresh registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}

// NewMetricsWithRegistry creates collectors registered on reg.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of normalize and denormalize runs",
			},
			[]string{"operation", "root_kind", "status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Engine run duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"operation"},
		),
		EntitiesStored: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entities_stored_total",
				Help:      "Total number of entity records produced by normalize",
			},
		),
		SchemasBuilt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schemas_registered_total",
				Help:      "Total number of schemas registered by the builder",
			},
			[]string{"module"},
		),
		UnresolvedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schemas_unresolved_total",
				Help:      "Total number of schema configs left unresolved",
			},
			[]string{"module"},
		),
		CacheEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_events_total",
				Help:      "Cache hits, misses and writes",
			},
			[]string{"key_type", "event"},
		),
		CacheBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_written_bytes_total",
				Help:      "Bytes written to the cache",
			},
			[]string{"key_type"},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Install registers m as the engine, builder and cache hooks.
func (m *Metrics) Install() {
	SetEngineHooks(m)
	SetBuilderHooks(m)
	SetCacheHooks(m)
}

// WriteTextfile writes all gathered metrics to path in the text exposition
// format, for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) OnNormalize(_ context.Context, rootKind string, entityCount int, d time.Duration, err error) {
	m.Runs.WithLabelValues("normalize", rootKind, status(err)).Inc()
	m.RunDuration.WithLabelValues("normalize").Observe(d.Seconds())
	if err == nil {
		m.EntitiesStored.Add(float64(entityCount))
	}
}

func (m *Metrics) OnDenormalize(_ context.Context, rootKind string, d time.Duration, err error) {
	m.Runs.WithLabelValues("denormalize", rootKind, status(err)).Inc()
	m.RunDuration.WithLabelValues("denormalize").Observe(d.Seconds())
}

func (m *Metrics) OnSchemaRegistered(_ context.Context, module, _ string) {
	m.SchemasBuilt.WithLabelValues(module).Inc()
}

func (m *Metrics) OnUnresolved(_ context.Context, module, _ string, _ []string) {
	m.UnresolvedTotal.WithLabelValues(module).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.CacheEvents.WithLabelValues(keyType, "set").Inc()
	m.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
