package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultStartingCash = "312.00"

func SeedMembers() []Member {
	return []Member{
		{ID: "u1", Name: "CALEF"},
		{ID: "u2", Name: "CICO"},
		{ID: "u3", Name: "FRANCO"},
		{ID: "u4", Name: "GELSO"},
		{ID: "u5", Name: "ELIO"},
		{ID: "u6", Name: "LUCA"},
		{ID: "u7", Name: "FELICE"},
		{ID: "u8", Name: "SAVINO"},
		{ID: "u9", Name: "PAOLO"},
	}
}

func SeedProducts() []Product {
	return []Product{
		seedProduct("p1", "Thè", 28, "1.00", "0.36", "Bibite"),
		seedProduct("p2", "Fanta", 7, "1.50", "0.68", "Bibite"),
		seedProduct("p3", "Peroni", 7, "1.50", "0.63", "Birre"),
		seedProduct("p4", "Patatina", 1, "1.00", "0.91", "Snack"),
		seedProduct("p5", "Tuc", 15, "1.00", "0.40", "Snack"),
		seedProduct("p6", "Ringo vaniglia", 7, "1.00", "0.42", "Dolci"),
		seedProduct("p7", "Baiocchi pistacchio", 15, "0.60", "0.34", "Dolci"),
	}
}

// SeedState is the document created on first run.
func SeedState(startingCash decimal.Decimal, now time.Time) State {
	return State{
		Products: SeedProducts(),
		Tabs:     []Tab{},
		CashRegister: CashState{
			CurrentBalance:   startingCash,
			LastVerifiedDate: now.UTC(),
		},
		Logs:                 []LogEntry{},
		CumulativeSales:      decimal.Zero,
		CumulativeExpenses:   decimal.Zero,
		LastAuditDiscrepancy: decimal.Zero,
	}
}

func seedProduct(id, name string, stock int, sell, cost, category string) Product {
	return Product{
		ID:        id,
		Name:      name,
		SellPrice: decimal.RequireFromString(sell),
		CostPrice: decimal.RequireFromString(cost),
		Stock:     stock,
		Category:  category,
	}
}
