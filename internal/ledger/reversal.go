package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

// ReverseLogEffects returns the state as if entry had never been applied,
// using only what the entry recorded. The entry itself stays in the log.
func (e *Engine) ReverseLogEffects(entry domain.LogEntry, state domain.State) (domain.State, error) {
	if err := checkReversible(entry); err != nil {
		return state, err
	}

	next := state.Clone()
	switch meta := entry.Meta.(type) {
	case domain.SaleCashMeta:
		addStock(&next, meta.ProductID, meta.Qty)
		next.CashRegister.CurrentBalance = next.CashRegister.CurrentBalance.Sub(meta.Amount)
		next.CumulativeSales = floorZero(next.CumulativeSales.Sub(meta.Amount))

	case domain.SaleTabMeta:
		addStock(&next, meta.ProductID, meta.Qty)
		next.CumulativeSales = floorZero(next.CumulativeSales.Sub(meta.Amount))
		if tab, ti, ok := next.FindTab(meta.TabUserID); ok {
			refunded := meta.Amount
			items := make([]domain.TabItem, 0, len(tab.Items))
			for _, item := range tab.Items {
				if item.ID == meta.TabItemID {
					refunded = item.Price
					continue
				}
				items = append(items, item)
			}
			owed := floorZero(tab.TotalOwed.Sub(refunded))
			if owed.LessThanOrEqual(Epsilon) && len(items) == 0 {
				next.Tabs = append(next.Tabs[:ti], next.Tabs[ti+1:]...)
			} else {
				next.Tabs[ti].Items = items
				next.Tabs[ti].TotalOwed = owed
			}
		}

	case domain.TabPaymentMeta:
		if _, ti, ok := next.FindTab(meta.UserID); ok {
			next.Tabs[ti].TotalOwed = next.Tabs[ti].TotalOwed.Add(meta.Amount)
		} else {
			next.Tabs = append(next.Tabs, domain.Tab{
				UserID:    meta.UserID,
				UserName:  e.tabOwnerName(meta),
				Items:     []domain.TabItem{},
				TotalOwed: meta.Amount,
			})
		}
		next.CashRegister.CurrentBalance = next.CashRegister.CurrentBalance.Sub(meta.Amount)

	case domain.ExpenseMeta:
		next.CashRegister.CurrentBalance = next.CashRegister.CurrentBalance.Add(meta.Amount)
		next.CumulativeExpenses = floorZero(next.CumulativeExpenses.Sub(meta.Amount))

	case domain.RestockMeta:
		if _, pi, ok := next.FindProduct(meta.ProductID); ok {
			if meta.IsNewProduct {
				next.Products = append(next.Products[:pi], next.Products[pi+1:]...)
			} else {
				next.Products[pi].Stock = max(0, next.Products[pi].Stock-meta.StockAdded)
			}
		}
		next.CashRegister.CurrentBalance = next.CashRegister.CurrentBalance.Add(meta.CostImpact)
		next.CumulativeExpenses = floorZero(next.CumulativeExpenses.Sub(meta.CostImpact))

	case domain.InventoryAdjustmentMeta:
		if _, _, ok := next.FindProduct(meta.RemovedProduct.ID); !ok {
			next.Products = append(next.Products, meta.RemovedProduct)
		}
	}
	return next, nil
}

// DeleteLogEntry undoes a non-locked entry, drops it from the log and records
// the undo as a locked LOG_MODIFICATION entry.
func (e *Engine) DeleteLogEntry(state domain.State, actor domain.Actor, logID string) (domain.State, error) {
	entry, idx, ok := state.FindLog(logID)
	if !ok {
		return state, fmt.Errorf("%w: %s", ErrLogNotFound, logID)
	}
	if entry.Locked {
		return state, fmt.Errorf("%w: %s", ErrProtectedEntry, logID)
	}

	next, err := e.ReverseLogEffects(entry, state)
	if err != nil {
		return state, err
	}
	next.Logs = append(next.Logs[:idx], next.Logs[idx+1:]...)

	return e.AppendLog(next, actor, domain.LogModification, "Azione annullata: "+entry.Description, decimal.Zero, LogOptions{
		Meta: domain.LogModificationMeta{
			DeletedLogID:        entry.ID,
			OriginalType:        entry.Type,
			OriginalDescription: entry.Description,
		},
		Locked: true,
	}), nil
}

func checkReversible(entry domain.LogEntry) error {
	if entry.Locked {
		return fmt.Errorf("%w: %s is locked", ErrNotReversible, entry.ID)
	}

	var expected domain.LogType
	var missing []string
	require := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}

	switch meta := entry.Meta.(type) {
	case nil:
		if entry.Type == domain.LogCashCount || entry.Type == domain.LogModification {
			return fmt.Errorf("%w: %s", ErrNotReversible, entry.Type)
		}
		return &IncompleteLogDataError{LogID: entry.ID, Type: entry.Type, Missing: []string{"meta"}}
	case domain.IncompleteMeta:
		if len(meta.Missing) == 0 {
			return fmt.Errorf("%w: %s", ErrNotReversible, entry.Type)
		}
		return &IncompleteLogDataError{LogID: entry.ID, Type: entry.Type, Missing: meta.Missing}
	case domain.SaleCashMeta:
		expected = domain.LogSaleCash
		require(meta.ProductID != "", "productId")
		require(meta.Qty > 0, "qty")
	case domain.SaleTabMeta:
		expected = domain.LogSaleTab
		require(meta.ProductID != "", "productId")
		require(meta.Qty > 0, "qty")
		require(meta.TabUserID != "", "tabUserId")
		require(meta.TabItemID != "", "tabItemId")
	case domain.TabPaymentMeta:
		expected = domain.LogTabPayment
		require(meta.UserID != "", "userId")
	case domain.ExpenseMeta:
		expected = domain.LogExpense
	case domain.RestockMeta:
		expected = domain.LogRestock
		require(meta.ProductID != "", "productId")
	case domain.InventoryAdjustmentMeta:
		expected = domain.LogInventoryAdjustment
		require(meta.RemovedProduct.ID != "", "removedProduct")
	default:
		return fmt.Errorf("%w: %s", ErrNotReversible, entry.Type)
	}

	if entry.Type != expected {
		return fmt.Errorf("%w: %s entry carries %s data", ErrNotReversible, entry.Type, expected)
	}
	if len(missing) > 0 {
		return &IncompleteLogDataError{LogID: entry.ID, Type: entry.Type, Missing: missing}
	}
	return nil
}

func addStock(state *domain.State, productID string, qty int) {
	if _, i, ok := state.FindProduct(productID); ok {
		state.Products[i].Stock += qty
	}
}

func (e *Engine) tabOwnerName(meta domain.TabPaymentMeta) string {
	if meta.UserName != "" {
		return meta.UserName
	}
	if name, ok := e.members[meta.UserID]; ok {
		return name
	}
	return "Utente"
}
