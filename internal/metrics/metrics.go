// Package metrics defines the Prometheus collectors the ledger exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "splitledger"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	DebtsDerived    prometheus.Counter
	DebtsSimplified *prometheus.CounterVec
	DebtsRetired    *prometheus.CounterVec
	Conflicts       *prometheus.CounterVec
	LockWait        prometheus.Histogram
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RPCRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC requests handled, by procedure and Connect code.",
		}, []string{"procedure", "code"}),
		RPCDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		DebtsDerived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debts_derived_total",
			Help:      "Debts written by receipt derivation.",
		}),
		DebtsSimplified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debts_simplified_total",
			Help:      "Debts created by simplification, by currency.",
		}, []string{"currency"}),
		DebtsRetired: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debts_retired_total",
			Help:      "Debts retired by simplification, by currency.",
		}, []string{"currency"}),
		Conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Operations aborted by a concurrent mutation.",
		}, []string{"operation"}),
		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for a receipt or group lock.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}
}

// ObserveDerived counts debts written for one receipt.
func (m *Metrics) ObserveDerived(n int) {
	if m == nil {
		return
	}
	m.DebtsDerived.Add(float64(n))
}

// ObserveSimplified counts one applied simplification.
func (m *Metrics) ObserveSimplified(currency string, retired, created int) {
	if m == nil {
		return
	}
	m.DebtsRetired.WithLabelValues(currency).Add(float64(retired))
	m.DebtsSimplified.WithLabelValues(currency).Add(float64(created))
}

// ObserveConflict counts an operation lost to a concurrent writer.
func (m *Metrics) ObserveConflict(operation string) {
	if m == nil {
		return
	}
	m.Conflicts.WithLabelValues(operation).Inc()
}

// ObserveLockWait records how long a lock took to acquire.
func (m *Metrics) ObserveLockWait(seconds float64) {
	if m == nil {
		return
	}
	m.LockWait.Observe(seconds)
}

// ObserveRPC records one handled RPC.
func (m *Metrics) ObserveRPC(procedure, code string, seconds float64) {
	if m == nil {
		return
	}
	m.RPCRequests.WithLabelValues(procedure, code).Inc()
	m.RPCDuration.WithLabelValues(procedure).Observe(seconds)
}
