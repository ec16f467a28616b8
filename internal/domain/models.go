package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CostPrice decimal.Decimal `json:"costPrice"`
	SellPrice decimal.Decimal `json:"sellPrice"`
	Stock     int             `json:"stock"`
	Category  string          `json:"category"`
}

type TabItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Timestamp   time.Time       `json:"timestamp"`
}

type Tab struct {
	UserID    string          `json:"userId"`
	UserName  string          `json:"userName"`
	Items     []TabItem       `json:"items"`
	TotalOwed decimal.Decimal `json:"totalOwed"`
}

type CashState struct {
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	LastVerifiedDate time.Time       `json:"lastVerifiedDate"`
}

// State is the whole shared ledger document. It is replaced wholesale on
// every persist and every remote update.
type State struct {
	Products             []Product       `json:"products"`
	Tabs                 []Tab           `json:"tabs"`
	CashRegister         CashState       `json:"cashRegister"`
	Logs                 []LogEntry      `json:"logs"`
	CumulativeSales      decimal.Decimal `json:"cumulativeSales"`
	CumulativeExpenses   decimal.Decimal `json:"cumulativeExpenses"`
	LastAuditDiscrepancy decimal.Decimal `json:"lastAuditDiscrepancy"`
}

// Clone returns a deep copy. Log metadata variants are immutable values and
// are shared between copies.
func (s State) Clone() State {
	out := s
	out.Products = cloneSlice(s.Products)
	out.Tabs = cloneSlice(s.Tabs)
	for i := range out.Tabs {
		out.Tabs[i].Items = cloneSlice(out.Tabs[i].Items)
	}
	out.Logs = cloneSlice(s.Logs)
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func (s State) FindProduct(id string) (Product, int, bool) {
	for i, p := range s.Products {
		if p.ID == id {
			return p, i, true
		}
	}
	return Product{}, -1, false
}

func (s State) FindTab(userID string) (Tab, int, bool) {
	for i, t := range s.Tabs {
		if t.UserID == userID {
			return t, i, true
		}
	}
	return Tab{}, -1, false
}

func (s State) FindLog(id string) (LogEntry, int, bool) {
	for i, entry := range s.Logs {
		if entry.ID == id {
			return entry, i, true
		}
	}
	return LogEntry{}, -1, false
}

func (s State) OutstandingTabs() decimal.Decimal {
	total := decimal.Zero
	for _, t := range s.Tabs {
		total = total.Add(t.TotalOwed)
	}
	return total
}

func (s State) InventoryValue() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Products {
		total = total.Add(p.SellPrice.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	return total
}

type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Actor is the member performing an operation. It travels on the request
// context and is never stored on the State.
type Actor struct {
	MemberID string
	Name     string
}

// RemoteSnapshot is a full document pushed by another writer. Applying it
// replaces local state unconditionally.
type RemoteSnapshot struct {
	Origin     string    `json:"origin"`
	Revision   int64     `json:"revision"`
	State      State     `json:"state"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type SaleRequest struct {
	ProductID string `json:"productId" validate:"required"`
	TargetID  string `json:"targetId"`
	Cash      bool   `json:"cash"`
	GuestName string `json:"guestName" validate:"max=64"`
	Qty       int    `json:"qty" validate:"min=1"`
}

type TabPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type ExpenseRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"required,max=200"`
}

type ProductDraft struct {
	Name      string          `json:"name" validate:"required,max=120"`
	CostPrice decimal.Decimal `json:"costPrice"`
	SellPrice decimal.Decimal `json:"sellPrice"`
	Stock     int             `json:"stock" validate:"min=0"`
	Category  string          `json:"category" validate:"max=60"`
}

type AuditRequest struct {
	CountedCash  decimal.Decimal `json:"countedCash"`
	CountedStock map[string]int  `json:"countedStock"`
}

type AuditReport struct {
	PresumedSalesRevenue decimal.Decimal `json:"presumedSalesRevenue"`
	TheoreticalAssets    decimal.Decimal `json:"theoreticalAssets"`
	ActualAssets         decimal.Decimal `json:"actualAssets"`
	Discrepancy          decimal.Decimal `json:"discrepancy"`
	Notes                []string        `json:"notes"`
}

type AuditResponse struct {
	Report AuditReport `json:"report"`
	State  State       `json:"state"`
}

type LogFilter struct {
	Type  LogType
	Query string
	From  time.Time
	To    time.Time
	Limit int
}

type Dashboard struct {
	CashBalance          decimal.Decimal `json:"cashBalance"`
	OutstandingTabs      decimal.Decimal `json:"outstandingTabs"`
	InventoryValue       decimal.Decimal `json:"inventoryValue"`
	CumulativeSales      decimal.Decimal `json:"cumulativeSales"`
	CumulativeExpenses   decimal.Decimal `json:"cumulativeExpenses"`
	LastAuditDiscrepancy decimal.Decimal `json:"lastAuditDiscrepancy"`
	LastVerifiedDate     time.Time       `json:"lastVerifiedDate"`
	LowStock             []Product       `json:"lowStock"`
	Tabs                 []Tab           `json:"tabs"`
}

type SyncStatus struct {
	LastPersistAt    time.Time `json:"lastPersistAt,omitempty"`
	LastError        string    `json:"lastError,omitempty"`
	LastErrorAt      time.Time `json:"lastErrorAt,omitempty"`
	LastRemoteAt     time.Time `json:"lastRemoteAt,omitempty"`
	LastRemoteOrigin string    `json:"lastRemoteOrigin,omitempty"`
	PendingWrites    int       `json:"pendingWrites"`
}

type InsightResponse struct {
	Report      string    `json:"report"`
	GeneratedAt time.Time `json:"generatedAt"`
	Cached      bool      `json:"cached"`
}

type Account struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	MemberID     string    `json:"memberId"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	MemberID string `json:"memberId" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	MemberID    string `json:"memberId"`
	Name        string `json:"name"`
	ExpiresAt   string `json:"expiresAt"`
}
