package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
)

// LedgerMetrics exposes ledger activity and the current cash position.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	operations      *prometheus.CounterVec
	cashBalance     prometheus.Gauge
	outstandingTabs prometheus.Gauge
	discrepancy     prometheus.Gauge
	remoteSnapshots prometheus.Counter
	persistFailures *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return nil
	}
	m := &LedgerMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minibar_ledger_operations_total",
			Help: "Ledger operations by outcome.",
		}, []string{"operation", "outcome"}),
		cashBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "minibar_cash_balance",
			Help: "Current cash register balance in euro.",
		}),
		outstandingTabs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "minibar_outstanding_tabs",
			Help: "Total owed across open tabs in euro.",
		}),
		discrepancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "minibar_last_audit_discrepancy",
			Help: "Discrepancy recorded by the most recent audit in euro.",
		}),
		remoteSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minibar_remote_snapshots_total",
			Help: "Snapshots applied from other writers.",
		}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minibar_persist_failures_total",
			Help: "Failed writes by persistence target.",
		}, []string{"target"}),
	}
	reg.MustRegister(m.operations, m.cashBalance, m.outstandingTabs, m.discrepancy, m.remoteSnapshots, m.persistFailures)
	return m
}

func (m *LedgerMetrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeRejected
	}
	m.operations.WithLabelValues(normalizeLabel(operation), outcome).Inc()
}

func (m *LedgerMetrics) SetPosition(cash, outstanding, discrepancy decimal.Decimal) {
	if m == nil {
		return
	}
	m.cashBalance.Set(cash.InexactFloat64())
	m.outstandingTabs.Set(outstanding.InexactFloat64())
	m.discrepancy.Set(discrepancy.InexactFloat64())
}

func (m *LedgerMetrics) IncRemoteSnapshot() {
	if m == nil {
		return
	}
	m.remoteSnapshots.Inc()
}

func (m *LedgerMetrics) IncPersistFailure(target string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(normalizeLabel(target)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
