package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Generator interface {
	Generate(ctx context.Context, snapshot Snapshot) (string, error)
}

// RuleGenerator writes a short Italian report covering cash health, stock
// warnings and the last audit, without calling any external model.
type RuleGenerator struct {
	formatMoney func(decimal.Decimal) string
}

func NewRuleGenerator(formatMoney func(decimal.Decimal) string) *RuleGenerator {
	if formatMoney == nil {
		formatMoney = func(d decimal.Decimal) string { return "€ " + d.StringFixed(2) }
	}
	return &RuleGenerator{formatMoney: formatMoney}
}

var tolerance = decimal.New(1, -2)

func (g *RuleGenerator) Generate(_ context.Context, s Snapshot) (string, error) {
	lines := make([]string, 0, 4)

	finance := fmt.Sprintf("💰 Salute finanziaria: in cassa ci sono %s, i bolli aperti valgono %s.",
		g.formatMoney(s.CashBalance), g.formatMoney(s.OutstandingTabs))
	switch {
	case s.OutstandingTabs.IsPositive() && s.OutstandingTabs.GreaterThanOrEqual(s.CashBalance):
		finance += " I bolli superano la cassa: conviene sollecitare i pagamenti."
	case s.OutstandingTabs.IsPositive():
		finance += " I bolli sono sotto controllo."
	default:
		finance += " Nessun bollo da riscuotere."
	}
	lines = append(lines, finance)

	if len(s.LowStockItems) == 0 {
		lines = append(lines, "📦 Magazzino: nessun prodotto sotto soglia.")
	} else {
		lines = append(lines, fmt.Sprintf("📦 Magazzino: stanno finendo %s. Da riordinare presto.", strings.Join(s.LowStockItems, ", ")))
	}

	switch {
	case s.Discrepancy.Abs().LessThan(tolerance):
		lines = append(lines, "🔍 Anomalie: l'ultimo conteggio torna con i conti.")
	case s.Discrepancy.IsNegative():
		lines = append(lines, fmt.Sprintf("🔍 Anomalie: all'ultimo conteggio mancavano %s rispetto al previsto.", g.formatMoney(s.Discrepancy.Abs())))
	default:
		lines = append(lines, fmt.Sprintf("🔍 Anomalie: all'ultimo conteggio c'erano %s in più del previsto.", g.formatMoney(s.Discrepancy)))
	}

	if len(s.RecentActivity) > 0 {
		last := s.RecentActivity[0]
		lines = append(lines, fmt.Sprintf("🕒 Ultima operazione: %s (%s).", last.Description, last.User))
	}

	return strings.Join(lines, "\n"), nil
}
