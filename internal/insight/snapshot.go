package insight

import (
	"github.com/shopspring/decimal"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

// Snapshot is the summary handed to a Generator.
type Snapshot struct {
	CashBalance     decimal.Decimal   `json:"cashBalance"`
	OutstandingTabs decimal.Decimal   `json:"outstandingTabs"`
	LowStockItems   []string          `json:"lowStockItems"`
	RecentActivity  []domain.LogEntry `json:"recentActivity"`
	Discrepancy     decimal.Decimal   `json:"discrepancy"`
}

// BuildSnapshot lists products with stock below lowStockThreshold and the
// newest recentLimit log entries.
func BuildSnapshot(state domain.State, lowStockThreshold, recentLimit int) Snapshot {
	lowStock := make([]string, 0)
	for _, p := range state.Products {
		if p.Stock < lowStockThreshold {
			lowStock = append(lowStock, p.Name)
		}
	}

	if recentLimit < 0 {
		recentLimit = 0
	}
	recent := state.Logs
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	return Snapshot{
		CashBalance:     state.CashRegister.CurrentBalance,
		OutstandingTabs: state.OutstandingTabs(),
		LowStockItems:   lowStock,
		RecentActivity:  append([]domain.LogEntry{}, recent...),
		Discrepancy:     state.LastAuditDiscrepancy,
	}
}
