package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

// GuestTarget can be sent as the sale target together with a guest name.
const GuestTarget = "guest_custom"

// GuestID derives the tab identity of a free-text guest. Names differing only
// in case or spacing map to the same tab.
func GuestID(name string) string {
	return "guest_" + strings.Join(strings.Fields(GuestName(name)), "_")
}

func GuestName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func saleLabel(name string, qty int) string {
	if qty > 1 {
		return fmt.Sprintf("%s (x%d)", name, qty)
	}
	return name
}

func (e *Engine) ProcessSale(state domain.State, actor domain.Actor, req domain.SaleRequest) (domain.State, error) {
	if req.Qty < 1 {
		return state, invalid("qty", "must be at least 1")
	}
	product, idx, ok := state.FindProduct(req.ProductID)
	if !ok {
		return state, fmt.Errorf("%w: %s", ErrProductNotFound, req.ProductID)
	}
	if req.Qty > product.Stock {
		return state, &InsufficientStockError{
			ProductID: product.ID,
			Product:   product.Name,
			Available: product.Stock,
			Requested: req.Qty,
		}
	}

	var debtorID, debtorName string
	if !req.Cash {
		var err error
		debtorID, debtorName, err = e.resolveDebtor(state, req)
		if err != nil {
			return state, err
		}
	}

	next := state.Clone()
	next.Products[idx].Stock -= req.Qty
	total := product.SellPrice.Mul(units(req.Qty))
	label := saleLabel(product.Name, req.Qty)
	next.CumulativeSales = next.CumulativeSales.Add(total)

	if req.Cash {
		next.CashRegister.CurrentBalance = next.CashRegister.CurrentBalance.Add(total)
		return e.AppendLog(next, actor, domain.LogSaleCash, "Vendita Cassa: "+label, total, LogOptions{
			Meta: domain.SaleCashMeta{ProductID: product.ID, Qty: req.Qty, Amount: total, Mode: "cash"},
		}), nil
	}

	item := domain.TabItem{
		ID:          e.newID("item"),
		ProductID:   product.ID,
		ProductName: label,
		Price:       total,
		Timestamp:   e.now(),
	}
	if _, ti, found := next.FindTab(debtorID); found {
		next.Tabs[ti].Items = append(next.Tabs[ti].Items, item)
		next.Tabs[ti].TotalOwed = next.Tabs[ti].TotalOwed.Add(total)
	} else {
		next.Tabs = append(next.Tabs, domain.Tab{
			UserID:    debtorID,
			UserName:  debtorName,
			Items:     []domain.TabItem{item},
			TotalOwed: total,
		})
	}

	return e.AppendLog(next, actor, domain.LogSaleTab, fmt.Sprintf("Bollo %s: %s", debtorName, label), total, LogOptions{
		Meta: domain.SaleTabMeta{
			ProductID: product.ID,
			Qty:       req.Qty,
			TabUserID: debtorID,
			TabItemID: item.ID,
			Amount:    total,
			UserName:  debtorName,
		},
	}), nil
}

func (e *Engine) resolveDebtor(state domain.State, req domain.SaleRequest) (string, string, error) {
	target := strings.TrimSpace(req.TargetID)
	if guest := GuestName(req.GuestName); guest != "" && (target == "" || target == GuestTarget) {
		return GuestID(guest), guest, nil
	}
	if target == "" || target == GuestTarget {
		return "", "", invalid("targetId", "a member or guest name is required for a tab sale")
	}
	if name, ok := e.members[target]; ok {
		return target, name, nil
	}
	if tab, _, ok := state.FindTab(target); ok {
		return tab.UserID, tab.UserName, nil
	}
	return "", "", invalid("targetId", "unknown member "+target)
}

func (e *Engine) PayTab(state domain.State, actor domain.Actor, userID string, amount decimal.Decimal) (domain.State, error) {
	if !amount.IsPositive() {
		return state, invalid("amount", "must be greater than zero")
	}
	tab, ti, ok := state.FindTab(userID)
	if !ok {
		return state, fmt.Errorf("%w: %s", ErrTabNotFound, userID)
	}

	next := state.Clone()
	remaining := floorZero(tab.TotalOwed.Sub(amount))
	if remaining.LessThanOrEqual(Epsilon) {
		next.Tabs = append(next.Tabs[:ti], next.Tabs[ti+1:]...)
	} else {
		next.Tabs[ti].TotalOwed = remaining
	}
	next.CashRegister.CurrentBalance = next.CashRegister.CurrentBalance.Add(amount)

	return e.AppendLog(next, actor, domain.LogTabPayment, "Pagamento Bollo: "+tab.UserName, amount, LogOptions{
		Meta: domain.TabPaymentMeta{UserID: tab.UserID, Amount: amount, UserName: tab.UserName},
	}), nil
}
