// Package metrics exposes sync and persistence counters in Prometheus form.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultNotFound = "not_found"
)

type Metrics struct {
	// Registry owns these metrics; the /metrics endpoint serves it.
	Registry *prometheus.Registry

	pushes        *prometheus.CounterVec
	pushDuration  *prometheus.HistogramVec
	pulls         *prometheus.CounterVec
	remoteUpdates prometheus.Counter
	imports       *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	mode          *prometheus.GaugeVec
	transactions  prometheus.Gauge
}

// New creates a private registry so repeated construction in tests does
// not collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		pushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hhsfinance_sync_pushes_total",
				Help: "Snapshot pushes by backend and result.",
			},
			[]string{"backend", "result"},
		),
		pushDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hhsfinance_sync_push_duration_seconds",
				Help:    "Duration of snapshot pushes.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		pulls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hhsfinance_sync_pulls_total",
				Help: "Manual pulls by backend and result.",
			},
			[]string{"backend", "result"},
		),
		remoteUpdates: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "hhsfinance_sync_remote_updates_total",
				Help: "Remote snapshots applied from a live subscription.",
			},
		),
		imports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hhsfinance_imports_total",
				Help: "Backup imports by envelope format and result.",
			},
			[]string{"format", "result"},
		),
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hhsfinance_mutations_total",
				Help: "Local state mutations by operation.",
			},
			[]string{"op"},
		),
		mode: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hhsfinance_connection_mode",
				Help: "1 for the current connection mode, 0 otherwise.",
			},
			[]string{"mode"},
		),
		transactions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hhsfinance_transactions",
				Help: "Number of transactions in the current state.",
			},
		),
	}
}

func (m *Metrics) RecordPush(backend string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.pushes.WithLabelValues(backend, result(err)).Inc()
	m.pushDuration.WithLabelValues(backend).Observe(d.Seconds())
}

func (m *Metrics) RecordPull(backend, res string) {
	if m == nil {
		return
	}
	m.pulls.WithLabelValues(backend, res).Inc()
}

func (m *Metrics) IncrRemoteUpdate() {
	if m == nil {
		return
	}
	m.remoteUpdates.Inc()
}

func (m *Metrics) RecordImport(format string, err error) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(format, result(err)).Inc()
}

func (m *Metrics) IncrMutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

// SetMode marks current as the active mode among all.
func (m *Metrics) SetMode(current string, all []string) {
	if m == nil {
		return
	}
	for _, mode := range all {
		v := 0.0
		if mode == current {
			v = 1
		}
		m.mode.WithLabelValues(mode).Set(v)
	}
}

func (m *Metrics) SetTransactions(n int) {
	if m == nil {
		return
	}
	m.transactions.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
