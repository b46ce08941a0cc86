// Package metrics counts load outcomes and writes them in the Prometheus
// textfile format, for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaibhaw-/CareStat/internal/carestat/reconcile"
)

const namespace = "carestat"

// Recorder holds the load counters on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	records   *prometheus.CounterVec
	repairs   *prometheus.CounterVec
	inserts   *prometheus.CounterVec
	malformed *prometheus.CounterVec
	duration  *prometheus.GaugeVec
	lastRun   prometheus.Gauge
}

// New registers the load metrics on a fresh registry.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.records = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Candidate records by reconciliation disposition",
		},
		[]string{"table", "disposition"},
	)
	r.repairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repairs_total",
			Help:      "Field repairs by rule",
		},
		[]string{"table", "rule"},
	)
	r.inserts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inserts_total",
			Help:      "Insert attempts by outcome",
		},
		[]string{"table", "outcome"},
	)
	r.malformed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_rows_total",
			Help:      "Input rows rejected before reconciliation",
		},
		[]string{"table"},
	)
	r.duration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Wall time of the last load of a table",
		},
		[]string{"table"},
	)
	r.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})

	r.registry.MustRegister(r.records, r.repairs, r.inserts, r.malformed, r.duration, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveResult counts the dispositions and repair rules of a pass.
func (r *Recorder) ObserveResult(table string, res *reconcile.Result) {
	for _, e := range res.Log {
		r.records.WithLabelValues(table, string(e.Disposition)).Inc()
		for _, c := range e.Changes {
			r.repairs.WithLabelValues(table, string(c.Rule)).Inc()
		}
	}
}

// Malformed adds n rejected input rows.
func (r *Recorder) Malformed(table string, n int) {
	r.malformed.WithLabelValues(table).Add(float64(n))
}

// Inserted records insert outcomes: ok rows written, failed rows refused by
// the store.
func (r *Recorder) Inserted(table string, ok, failed int) {
	r.inserts.WithLabelValues(table, "ok").Add(float64(ok))
	r.inserts.WithLabelValues(table, "failed").Add(float64(failed))
}

// Duration sets the load time of a table.
func (r *Recorder) Duration(table string, d time.Duration) {
	r.duration.WithLabelValues(table).Set(d.Seconds())
}

// WriteTextfile stamps the run time and writes every metric to path.
func (r *Recorder) WriteTextfile(path string) error {
	r.lastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
