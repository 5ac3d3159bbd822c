// Package metrics provides Prometheus metrics for othala.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	TreeBuildsTotal   prometheus.Counter
	TreeBuildDuration prometheus.Histogram
	TreeNodes         prometheus.Gauge

	ExpressionsCompiled *prometheus.CounterVec
	SearchesTotal       *prometheus.CounterVec
	IndexSyncsTotal     *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
}

// New creates and registers all metrics, plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TreeBuildsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "othala_schema_tree_builds_total",
			Help: "Total number of asset-type trees built",
		}),
		TreeBuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "othala_schema_tree_build_duration_seconds",
			Help:    "Duration of asset-type tree builds in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		TreeNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "othala_schema_tree_nodes",
			Help: "Number of nodes in the most recently built tree",
		}),
		ExpressionsCompiled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "othala_filter_expressions_compiled_total",
			Help: "Total number of compiled filter expressions",
		}, []string{"mode"}),
		SearchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "othala_searches_total",
			Help: "Total number of search queries",
		}, []string{"status"}),
		IndexSyncsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "othala_index_syncs_total",
			Help: "Total number of search index reconciliations",
		}, []string{"status"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "othala_events_published_total",
			Help: "Total number of change events published",
		}, []string{"type"}),
	}
}

// ObserveTreeBuild records one tree build.
func (m *Metrics) ObserveTreeBuild(d time.Duration, nodes int) {
	m.TreeBuildsTotal.Inc()
	m.TreeBuildDuration.Observe(d.Seconds())
	m.TreeNodes.Set(float64(nodes))
}

// ObserveCompile records one compiled expression.
func (m *Metrics) ObserveCompile(grouped bool) {
	mode := "compat"
	if grouped {
		mode = "grouped"
	}
	m.ExpressionsCompiled.WithLabelValues(mode).Inc()
}

// ObserveSearch records one search outcome.
func (m *Metrics) ObserveSearch(err error) {
	m.SearchesTotal.WithLabelValues(status(err)).Inc()
}

// ObserveSync records one index reconciliation.
func (m *Metrics) ObserveSync(err error) {
	m.IndexSyncsTotal.WithLabelValues(status(err)).Inc()
}

// ObserveEvent records one published event.
func (m *Metrics) ObserveEvent(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
