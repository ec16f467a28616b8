package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type LogType string

const (
	LogSaleCash            LogType = "SALE_CASH"
	LogSaleTab             LogType = "SALE_TAB"
	LogRestock             LogType = "RESTOCK"
	LogExpense             LogType = "EXPENSE"
	LogCashCount           LogType = "CASH_COUNT"
	LogTabPayment          LogType = "TAB_PAYMENT"
	LogInventoryAdjustment LogType = "INVENTORY_ADJUSTMENT"
	LogModification        LogType = "LOG_MODIFICATION"
)

func (t LogType) Valid() bool {
	switch t {
	case LogSaleCash, LogSaleTab, LogRestock, LogExpense, LogCashCount,
		LogTabPayment, LogInventoryAdjustment, LogModification:
		return true
	}
	return false
}

type LogEntry struct {
	ID          string
	Timestamp   time.Time
	User        string
	Type        LogType
	Description string
	Value       decimal.Decimal
	Meta        LogMeta
	Locked      bool
}

// LogMeta is the per-type payload captured when an entry is written. It holds
// everything needed to undo the entry without looking at later state.
type LogMeta interface {
	logMeta()
}

type SaleCashMeta struct {
	ProductID string          `json:"productId"`
	Qty       int             `json:"qty"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      string          `json:"mode"`
}

// PresumedSalesMeta marks the locked SALE_CASH entry an audit writes for
// stock that went missing.
type PresumedSalesMeta struct {
	Source             string   `json:"source"`
	ProductsUpdatedLog []string `json:"productsUpdatedLog"`
}

type SaleTabMeta struct {
	ProductID string          `json:"productId"`
	Qty       int             `json:"qty"`
	TabUserID string          `json:"tabUserId"`
	TabItemID string          `json:"tabItemId"`
	Amount    decimal.Decimal `json:"amount"`
	UserName  string          `json:"userName"`
}

type TabPaymentMeta struct {
	UserID   string          `json:"userId"`
	Amount   decimal.Decimal `json:"amount"`
	UserName string          `json:"userName"`
}

type ExpenseMeta struct {
	Amount decimal.Decimal `json:"amount"`
}

type RestockMeta struct {
	ProductID    string          `json:"productId"`
	StockAdded   int             `json:"stockAdded"`
	CostImpact   decimal.Decimal `json:"costImpact"`
	IsNewProduct bool            `json:"isNewProduct"`
}

type InventoryAdjustmentMeta struct {
	RemovedProduct Product `json:"removedProduct"`
}

type CashCountMeta struct {
	CountedCash decimal.Decimal `json:"countedCash"`
	Discrepancy decimal.Decimal `json:"discrepancy"`
}

type LogModificationMeta struct {
	DeletedLogID        string  `json:"deletedLogId"`
	OriginalType        LogType `json:"originalType"`
	OriginalDescription string  `json:"originalDescription"`
}

// IncompleteMeta stands in for a stored payload that lacks keys its entry
// type requires. The raw bytes are kept so the document round-trips.
type IncompleteMeta struct {
	Type    LogType
	Missing []string
	Raw     json.RawMessage
}

func (SaleCashMeta) logMeta()            {}
func (PresumedSalesMeta) logMeta()       {}
func (SaleTabMeta) logMeta()             {}
func (TabPaymentMeta) logMeta()          {}
func (ExpenseMeta) logMeta()             {}
func (RestockMeta) logMeta()             {}
func (InventoryAdjustmentMeta) logMeta() {}
func (CashCountMeta) logMeta()           {}
func (LogModificationMeta) logMeta()     {}
func (IncompleteMeta) logMeta()          {}

func (m IncompleteMeta) MarshalJSON() ([]byte, error) {
	if len(m.Raw) == 0 {
		return []byte("{}"), nil
	}
	return m.Raw, nil
}

type logEntryJSON struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	User        string          `json:"user"`
	Type        LogType         `json:"type"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	Meta        json.RawMessage `json:"meta,omitempty"`
	Locked      bool            `json:"locked"`
}

func (e LogEntry) MarshalJSON() ([]byte, error) {
	out := logEntryJSON{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		User:        e.User,
		Type:        e.Type,
		Description: e.Description,
		Value:       e.Value,
		Locked:      e.Locked,
	}
	if e.Meta != nil {
		raw, err := json.Marshal(e.Meta)
		if err != nil {
			return nil, fmt.Errorf("encode %s meta: %w", e.Type, err)
		}
		out.Meta = raw
	}
	return json.Marshal(out)
}

func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var in logEntryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	meta, err := DecodeLogMeta(in.Type, in.Meta)
	if err != nil {
		return err
	}
	*e = LogEntry{
		ID:          in.ID,
		Timestamp:   in.Timestamp,
		User:        in.User,
		Type:        in.Type,
		Description: in.Description,
		Value:       in.Value,
		Meta:        meta,
		Locked:      in.Locked,
	}
	return nil
}

// DecodeLogMeta picks the payload variant from the entry type. A SALE_CASH
// payload carrying a "source" key is an audit's presumed-sales entry.
func DecodeLogMeta(t LogType, raw json.RawMessage) (LogMeta, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode %s meta: %w", t, err)
	}

	switch t {
	case LogSaleCash:
		if _, ok := fields["source"]; ok {
			return decodeVariant[PresumedSalesMeta](t, raw, fields, "source")
		}
		return decodeVariant[SaleCashMeta](t, raw, fields, "productId", "qty", "amount")
	case LogSaleTab:
		return decodeVariant[SaleTabMeta](t, raw, fields, "productId", "qty", "tabUserId", "tabItemId", "amount")
	case LogTabPayment:
		return decodeVariant[TabPaymentMeta](t, raw, fields, "userId", "amount")
	case LogExpense:
		return decodeVariant[ExpenseMeta](t, raw, fields, "amount")
	case LogRestock:
		return decodeVariant[RestockMeta](t, raw, fields, "productId", "stockAdded", "costImpact")
	case LogInventoryAdjustment:
		return decodeVariant[InventoryAdjustmentMeta](t, raw, fields, "removedProduct")
	case LogCashCount:
		return decodeVariant[CashCountMeta](t, raw, fields, "countedCash", "discrepancy")
	case LogModification:
		return decodeVariant[LogModificationMeta](t, raw, fields, "deletedLogId")
	default:
		return IncompleteMeta{Type: t, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

func decodeVariant[T LogMeta](t LogType, raw json.RawMessage, fields map[string]json.RawMessage, required ...string) (LogMeta, error) {
	var missing []string
	for _, key := range required {
		value, ok := fields[key]
		if !ok || string(value) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return IncompleteMeta{Type: t, Missing: missing, Raw: append(json.RawMessage(nil), raw...)}, nil
	}

	var meta T
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode %s meta: %w", t, err)
	}
	return meta, nil
}
