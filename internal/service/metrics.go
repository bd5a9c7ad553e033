package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of one session. Each collector has
// its own registry so sessions and tests never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	EntitiesCreated   prometheus.Counter
	RelationsCreated  prometheus.Counter
	RelationsRejected prometheus.Counter
	Relabels          prometheus.Counter
	OutliersFlagged   prometheus.Counter

	GraphEntities  prometheus.Gauge
	GraphRelations prometheus.Gauge

	AnalysisRuns     *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
}

// NewMetrics creates a collector with the given namespace
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		EntitiesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_created_total",
			Help:      "Total number of entities registered",
		}),
		RelationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_created_total",
			Help:      "Total number of relations registered",
		}),
		RelationsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_rejected_total",
			Help:      "Total number of relations rejected as invalid",
		}),
		Relabels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_relabeled_total",
			Help:      "Total number of relations whose label was overwritten",
		}),
		OutliersFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outliers_flagged_total",
			Help:      "Total number of entities flagged as outliers",
		}),
		GraphEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_entities",
			Help:      "Entities currently in the session graph",
		}),
		GraphRelations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_relations",
			Help:      "Relations currently in the session graph",
		}),
		AnalysisRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Total number of analysis runs",
		}, []string{"kind", "status"}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Analysis duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	registry.MustRegister(
		m.EntitiesCreated,
		m.RelationsCreated,
		m.RelationsRejected,
		m.Relabels,
		m.OutliersFlagged,
		m.GraphEntities,
		m.GraphRelations,
		m.AnalysisRuns,
		m.AnalysisDuration,
	)

	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAnalysis records one analysis run
func (m *Metrics) ObserveAnalysis(kind, status string, started time.Time) {
	m.AnalysisRuns.WithLabelValues(kind, status).Inc()
	m.AnalysisDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// SetGraphSize updates the size gauges
func (m *Metrics) SetGraphSize(entities, relations int) {
	m.GraphEntities.Set(float64(entities))
	m.GraphRelations.Set(float64(relations))
}
