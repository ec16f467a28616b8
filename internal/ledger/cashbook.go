package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

func (e *Engine) AddExpense(state domain.State, actor domain.Actor, amount decimal.Decimal, reason string) (domain.State, error) {
	if !amount.IsPositive() {
		return state, invalid("amount", "must be greater than zero")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return state, invalid("reason", "is required")
	}

	next := state.Clone()
	next.CashRegister.CurrentBalance = next.CashRegister.CurrentBalance.Sub(amount)
	next.CumulativeExpenses = next.CumulativeExpenses.Add(amount)

	return e.AppendLog(next, actor, domain.LogExpense, "Spesa: "+reason, amount.Neg(), LogOptions{
		Meta: domain.ExpenseMeta{Amount: amount},
	}), nil
}

// SaveProduct creates a product when existingID is empty and edits it
// otherwise. Added stock is paid out of the cash register at cost price;
// removing stock through an edit has no financial effect.
func (e *Engine) SaveProduct(state domain.State, actor domain.Actor, draft domain.ProductDraft, existingID string) (domain.State, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Category = strings.TrimSpace(draft.Category)
	if err := validateDraft(draft); err != nil {
		return state, err
	}

	next := state.Clone()
	product := domain.Product{
		Name:      draft.Name,
		CostPrice: draft.CostPrice,
		SellPrice: draft.SellPrice,
		Stock:     draft.Stock,
		Category:  draft.Category,
	}

	if existingID == "" {
		product.ID = e.newID("prod")
		next.Products = append(next.Products, product)
		if product.Stock <= 0 {
			return next, nil
		}
		return e.restock(next, actor, "Nuovo Prodotto: "+product.Name, domain.RestockMeta{
			ProductID:    product.ID,
			StockAdded:   product.Stock,
			CostImpact:   product.CostPrice.Mul(units(product.Stock)),
			IsNewProduct: true,
		}), nil
	}

	old, idx, ok := next.FindProduct(existingID)
	if !ok {
		return state, fmt.Errorf("%w: %s", ErrProductNotFound, existingID)
	}
	product.ID = old.ID
	next.Products[idx] = product

	delta := product.Stock - old.Stock
	if delta <= 0 {
		return next, nil
	}
	return e.restock(next, actor, "Modifica/Restock: "+product.Name, domain.RestockMeta{
		ProductID:  product.ID,
		StockAdded: delta,
		CostImpact: product.CostPrice.Mul(units(delta)),
	}), nil
}

func (e *Engine) restock(next domain.State, actor domain.Actor, description string, meta domain.RestockMeta) domain.State {
	next.CashRegister.CurrentBalance = next.CashRegister.CurrentBalance.Sub(meta.CostImpact)
	next.CumulativeExpenses = next.CumulativeExpenses.Add(meta.CostImpact)
	return e.AppendLog(next, actor, domain.LogRestock, description, meta.CostImpact.Neg(), LogOptions{Meta: meta})
}

func validateDraft(draft domain.ProductDraft) error {
	switch {
	case draft.Name == "":
		return invalid("name", "is required")
	case draft.CostPrice.IsNegative():
		return invalid("costPrice", "must not be negative")
	case draft.SellPrice.IsNegative():
		return invalid("sellPrice", "must not be negative")
	case draft.Stock < 0:
		return invalid("stock", "must not be negative")
	}
	return nil
}

func (e *Engine) DeleteProduct(state domain.State, actor domain.Actor, id string) (domain.State, error) {
	product, idx, ok := state.FindProduct(id)
	if !ok {
		return state, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	next := state.Clone()
	next.Products = append(next.Products[:idx], next.Products[idx+1:]...)

	return e.AppendLog(next, actor, domain.LogInventoryAdjustment, "Eliminato Articolo: "+product.Name, decimal.Zero, LogOptions{
		Meta: domain.InventoryAdjustmentMeta{RemovedProduct: product},
	}), nil
}
