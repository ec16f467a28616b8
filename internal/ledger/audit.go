package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

// PerformAudit reconciles a physical count against the ledger. Missing stock
// is booked as presumed cash sales; extra stock is only noted. The cash
// register is reset to the counted amount. Everything it logs is locked.
// Counts for unknown product ids are ignored.
func (e *Engine) PerformAudit(state domain.State, actor domain.Actor, countedCash decimal.Decimal, countedStock map[string]int) (domain.State, domain.AuditReport, error) {
	if countedCash.IsNegative() {
		return state, domain.AuditReport{}, invalid("countedCash", "must not be negative")
	}
	ids := make([]string, 0, len(countedStock))
	for id := range countedStock {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if countedStock[id] < 0 {
			return state, domain.AuditReport{}, invalid("countedStock."+id, "must not be negative")
		}
	}

	next := state.Clone()
	presumed := decimal.Zero
	notes := make([]string, 0)

	for i, p := range next.Products {
		counted, ok := countedStock[p.ID]
		if !ok {
			counted = p.Stock
		}
		switch diff := p.Stock - counted; {
		case diff > 0:
			revenue := p.SellPrice.Mul(units(diff))
			presumed = presumed.Add(revenue)
			notes = append(notes, fmt.Sprintf("%s (mancanti %d, +%s)", p.Name, diff, e.FormatMoney(revenue)))
		case diff < 0:
			notes = append(notes, fmt.Sprintf("%s (trovati %d)", p.Name, -diff))
		}
		next.Products[i].Stock = counted
	}

	if presumed.IsPositive() {
		next.CumulativeSales = next.CumulativeSales.Add(presumed)
		next = e.AppendLog(next, actor, domain.LogSaleCash, "Vendite Presunte da Conteggio: "+strings.Join(notes, ", "), presumed, LogOptions{
			Meta:   domain.PresumedSalesMeta{Source: "audit", ProductsUpdatedLog: notes},
			Locked: true,
		})
	}

	theoretical := e.startingCash.Add(next.CumulativeSales).Sub(next.CumulativeExpenses)
	actual := countedCash.Add(next.OutstandingTabs())
	discrepancy := actual.Sub(theoretical)

	next.LastAuditDiscrepancy = discrepancy
	next.CashRegister = domain.CashState{
		CurrentBalance:   countedCash,
		LastVerifiedDate: e.now(),
	}

	description := fmt.Sprintf("Conteggio Cassa: %s. Discrepanza gestione rilevata: %s", e.FormatMoney(countedCash), e.FormatMoney(discrepancy))
	next = e.AppendLog(next, actor, domain.LogCashCount, description, discrepancy, LogOptions{
		Meta:   domain.CashCountMeta{CountedCash: countedCash, Discrepancy: discrepancy},
		Locked: true,
	})

	return next, domain.AuditReport{
		PresumedSalesRevenue: presumed,
		TheoreticalAssets:    theoretical,
		ActualAssets:         actual,
		Discrepancy:          discrepancy,
		Notes:                notes,
	}, nil
}
