package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestLedgerMetricsExportsCountersAndGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.ObserveOperation("sale", nil)
	m.ObserveOperation("sale", nil)
	m.ObserveOperation("sale", errors.New("out of stock"))
	m.ObserveOperation("", nil)
	m.SetPosition(decimal.RequireFromString("312.50"), decimal.RequireFromString("4"), decimal.RequireFromString("-1.5"))
	m.IncRemoteSnapshot()
	m.IncPersistFailure("remote")

	if got := testutil.ToFloat64(m.operations.WithLabelValues("sale", OutcomeSuccess)); got != 2 {
		t.Fatalf("expected 2 successful sales, got %f", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("sale", OutcomeRejected)); got != 1 {
		t.Fatalf("expected 1 rejected sale, got %f", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("unknown", OutcomeSuccess)); got != 1 {
		t.Fatalf("expected empty operation to map to unknown, got %f", got)
	}
	if got := testutil.ToFloat64(m.cashBalance); got != 312.5 {
		t.Fatalf("unexpected cash gauge %f", got)
	}
	if got := testutil.ToFloat64(m.discrepancy); got != -1.5 {
		t.Fatalf("unexpected discrepancy gauge %f", got)
	}
	if got := testutil.ToFloat64(m.persistFailures.WithLabelValues("remote")); got != 1 {
		t.Fatalf("unexpected failure count %f", got)
	}

	count, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if count == 0 {
		t.Fatal("expected registered metrics")
	}
}

func TestNilLedgerMetricsIsSafe(t *testing.T) {
	var m *LedgerMetrics = NewLedgerMetrics(nil)
	m.ObserveOperation("sale", nil)
	m.SetPosition(decimal.Zero, decimal.Zero, decimal.Zero)
	m.IncRemoteSnapshot()
	m.IncPersistFailure("bus")
}
