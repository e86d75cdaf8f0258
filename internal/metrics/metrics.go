// Package metrics exposes Prometheus counters for pipeline runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zwickfi"

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	// StatusTruncated marks a load of an empty table that cleared the destination.
	StatusTruncated = "truncated"
)

// Metrics holds the collectors of one process on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	RowsExtracted   *prometheus.GaugeVec
	LoadsTotal      *prometheus.CounterVec
	LoadDuration    *prometheus.HistogramVec
	LastSuccessTime prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of pipeline runs.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		RowsExtracted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_extracted",
			Help:      "Rows produced for each dataset by the latest run.",
		}, []string{"dataset"}),
		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_loads_total",
			Help:      "Warehouse table loads by destination and status.",
		}, []string{"table", "status"}),
		LoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "table_load_duration_seconds",
			Help:      "Duration of warehouse load jobs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table"}),
		LastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RowsExtracted,
		m.LoadsTotal,
		m.LoadDuration,
		m.LastSuccessTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(err error, started, finished time.Time) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	} else {
		m.LastSuccessTime.Set(float64(finished.Unix()))
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(finished.Sub(started).Seconds())
}

// ObserveRows records the row count of a dataset.
func (m *Metrics) ObserveRows(dataset string, rows int) {
	if m == nil {
		return
	}
	m.RowsExtracted.WithLabelValues(dataset).Set(float64(rows))
}

// ObserveLoad records one table load with the given status.
func (m *Metrics) ObserveLoad(table, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(table, status).Inc()
	m.LoadDuration.WithLabelValues(table).Observe(d.Seconds())
}
