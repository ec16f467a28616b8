package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
	"github.com/indipendencepark/sana-intraprendenza/internal/insight"
	"github.com/indipendencepark/sana-intraprendenza/internal/ledger"
	"github.com/indipendencepark/sana-intraprendenza/internal/metrics"
)

var ErrNotReady = errors.New("ledger not loaded yet")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Persister is the storage side the service writes through. The gateway
// package provides the production implementation.
type Persister interface {
	LoadInitialState(ctx context.Context, seed func() domain.State) (domain.State, error)
	Persist(state domain.State)
	OnRemoteStateChanged(handler func(domain.RemoteSnapshot))
	OnError(handler func(target string, err error))
	Status() domain.SyncStatus
}

type Options struct {
	Engine            *ledger.Engine
	Persister         Persister
	Insights          *insight.Engine
	Metrics           *metrics.LedgerMetrics
	Logger            zerolog.Logger
	Members           []domain.Member
	LowStockThreshold int
	RecentLogLimit    int
}

// Service holds the live ledger document and serializes every mutation
// through the pure ledger engine.
type Service struct {
	engine    *ledger.Engine
	persister Persister
	insights  *insight.Engine
	metrics   *metrics.LedgerMetrics
	logger    zerolog.Logger
	members   []domain.Member
	lowStock  int
	recent    int

	mu    sync.RWMutex
	state domain.State
	ready bool

	subMu       sync.Mutex
	subscribers map[int]chan domain.State
	nextSub     int
}

func New(opts Options) *Service {
	if opts.Members == nil {
		opts.Members = domain.SeedMembers()
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = 5
	}
	if opts.RecentLogLimit <= 0 {
		opts.RecentLogLimit = 10
	}
	if opts.Insights == nil {
		opts.Insights = insight.NewEngine(nil, 0, insight.NewRuleGenerator(opts.Engine.FormatMoney))
	}

	return &Service{
		engine:      opts.Engine,
		persister:   opts.Persister,
		insights:    opts.Insights,
		metrics:     opts.Metrics,
		logger:      opts.Logger.With().Str("component", "service").Logger(),
		members:     opts.Members,
		lowStock:    opts.LowStockThreshold,
		recent:      opts.RecentLogLimit,
		subscribers: make(map[int]chan domain.State),
	}
}

// Bootstrap loads the shared document, creating it from the seed on first
// run, and starts following remote snapshots.
func (s *Service) Bootstrap(ctx context.Context) error {
	state, err := s.persister.LoadInitialState(ctx, func() domain.State {
		return domain.SeedState(s.engine.StartingCash(), time.Now().UTC())
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = state
	s.ready = true
	s.mu.Unlock()

	s.persister.OnRemoteStateChanged(s.ApplyRemoteSnapshot)
	s.persister.OnError(func(target string, _ error) {
		s.metrics.IncPersistFailure(target)
	})
	s.recordPosition(state)

	s.logger.Info().Int("products", len(state.Products)).Int("logs", len(state.Logs)).Msg("ledger loaded")
	return nil
}

func (s *Service) State() (domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return domain.State{}, ErrNotReady
	}
	return s.state.Clone(), nil
}

func (s *Service) Members() []domain.Member {
	return append([]domain.Member(nil), s.members...)
}

func (s *Service) ProcessSale(ctx context.Context, req domain.SaleRequest) (domain.State, error) {
	return s.apply(ctx, "sale", func(state domain.State, actor domain.Actor) (domain.State, error) {
		return s.engine.ProcessSale(state, actor, req)
	})
}

func (s *Service) PayTab(ctx context.Context, userID string, req domain.TabPaymentRequest) (domain.State, error) {
	return s.apply(ctx, "tab_payment", func(state domain.State, actor domain.Actor) (domain.State, error) {
		return s.engine.PayTab(state, actor, strings.TrimSpace(userID), req.Amount)
	})
}

func (s *Service) AddExpense(ctx context.Context, req domain.ExpenseRequest) (domain.State, error) {
	return s.apply(ctx, "expense", func(state domain.State, actor domain.Actor) (domain.State, error) {
		return s.engine.AddExpense(state, actor, req.Amount, req.Reason)
	})
}

// SaveProduct creates a product when existingID is empty, otherwise edits it.
func (s *Service) SaveProduct(ctx context.Context, draft domain.ProductDraft, existingID string) (domain.State, error) {
	operation := "product_create"
	if existingID != "" {
		operation = "product_update"
	}
	return s.apply(ctx, operation, func(state domain.State, actor domain.Actor) (domain.State, error) {
		return s.engine.SaveProduct(state, actor, draft, existingID)
	})
}

func (s *Service) DeleteProduct(ctx context.Context, id string) (domain.State, error) {
	return s.apply(ctx, "product_delete", func(state domain.State, actor domain.Actor) (domain.State, error) {
		return s.engine.DeleteProduct(state, actor, id)
	})
}

func (s *Service) PerformAudit(ctx context.Context, req domain.AuditRequest) (domain.AuditResponse, error) {
	var report domain.AuditReport
	next, err := s.apply(ctx, "audit", func(state domain.State, actor domain.Actor) (domain.State, error) {
		var (
			out domain.State
			err error
		)
		out, report, err = s.engine.PerformAudit(state, actor, req.CountedCash, req.CountedStock)
		return out, err
	})
	if err != nil {
		return domain.AuditResponse{}, err
	}
	return domain.AuditResponse{Report: report, State: next}, nil
}

func (s *Service) DeleteLogEntry(ctx context.Context, logID string) (domain.State, error) {
	return s.apply(ctx, "log_delete", func(state domain.State, actor domain.Actor) (domain.State, error) {
		return s.engine.DeleteLogEntry(state, actor, logID)
	})
}

// ApplyRemoteSnapshot replaces the local document with one written by another
// process. The newest snapshot wins; no merge is attempted.
func (s *Service) ApplyRemoteSnapshot(snapshot domain.RemoteSnapshot) {
	state := snapshot.State.Clone()

	s.mu.Lock()
	s.state = state
	s.ready = true
	s.publish(state)
	s.mu.Unlock()

	s.metrics.IncRemoteSnapshot()
	s.recordPosition(state)
	s.logger.Info().
		Str("origin", snapshot.Origin).
		Int64("revision", snapshot.Revision).
		Msg("remote snapshot applied")
}

// ListLogs returns entries newest first. Dates in the filter are inclusive
// whole days; the query matches description or user, ignoring case.
func (s *Service) ListLogs(_ context.Context, filter domain.LogFilter) ([]domain.LogEntry, error) {
	state, err := s.State()
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	var from, until time.Time
	if !filter.From.IsZero() {
		from = startOfDay(filter.From)
	}
	if !filter.To.IsZero() {
		until = startOfDay(filter.To).AddDate(0, 0, 1)
	}

	result := make([]domain.LogEntry, 0, len(state.Logs))
	for _, entry := range state.Logs {
		if filter.Type != "" && entry.Type != filter.Type {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(entry.Description), query) &&
			!strings.Contains(strings.ToLower(entry.User), query) {
			continue
		}
		if !from.IsZero() && entry.Timestamp.Before(from) {
			continue
		}
		if !until.IsZero() && !entry.Timestamp.Before(until) {
			continue
		}
		result = append(result, entry)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (s *Service) Dashboard(_ context.Context) (domain.Dashboard, error) {
	state, err := s.State()
	if err != nil {
		return domain.Dashboard{}, err
	}

	lowStock := make([]domain.Product, 0)
	for _, p := range state.Products {
		if p.Stock < s.lowStock {
			lowStock = append(lowStock, p)
		}
	}

	return domain.Dashboard{
		CashBalance:          state.CashRegister.CurrentBalance,
		OutstandingTabs:      state.OutstandingTabs(),
		InventoryValue:       state.InventoryValue(),
		CumulativeSales:      state.CumulativeSales,
		CumulativeExpenses:   state.CumulativeExpenses,
		LastAuditDiscrepancy: state.LastAuditDiscrepancy,
		LastVerifiedDate:     state.CashRegister.LastVerifiedDate,
		LowStock:             lowStock,
		Tabs:                 state.Tabs,
	}, nil
}

func (s *Service) Insights(ctx context.Context) (domain.InsightResponse, error) {
	state, err := s.State()
	if err != nil {
		return domain.InsightResponse{}, err
	}
	return s.insights.Report(ctx, insight.BuildSnapshot(state, s.lowStock, s.recent))
}

func (s *Service) SyncStatus() domain.SyncStatus {
	return s.persister.Status()
}

// Subscribe streams every new state until ctx is done. Slow readers only see
// the newest state.
func (s *Service) Subscribe(ctx context.Context) <-chan domain.State {
	ch := make(chan domain.State, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subscribers, id)
		close(ch)
		s.subMu.Unlock()
	}()
	return ch
}

func (s *Service) apply(ctx context.Context, operation string, fn func(domain.State, domain.Actor) (domain.State, error)) (domain.State, error) {
	actor, _ := ActorFromContext(ctx)

	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return domain.State{}, ErrNotReady
	}
	next, err := fn(s.state, actor)
	if err != nil {
		s.mu.Unlock()
		s.metrics.ObserveOperation(operation, err)
		s.logger.Debug().Err(err).Str("operation", operation).Str("member_id", actor.MemberID).Msg("operation rejected")
		return domain.State{}, err
	}
	s.state = next
	// Persist and publish under mu so the gateway and subscribers see
	// documents in the order they were produced.
	s.persister.Persist(next)
	s.publish(next)
	s.mu.Unlock()

	s.metrics.ObserveOperation(operation, nil)
	s.recordPosition(next)
	s.logger.Info().Str("operation", operation).Str("member_id", actor.MemberID).Msg("operation applied")
	return next.Clone(), nil
}

func (s *Service) publish(state domain.State) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state.Clone():
		default:
		}
	}
}

func (s *Service) recordPosition(state domain.State) {
	s.metrics.SetPosition(state.CashRegister.CurrentBalance, state.OutstandingTabs(), state.LastAuditDiscrepancy)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsClientError reports whether err came from rejected input rather than a
// failure on our side.
func IsClientError(err error) bool {
	return ledger.IsValidationError(err) ||
		ledger.IsNotFound(err) ||
		ledger.IsIrreversible(err) ||
		errors.Is(err, ledger.ErrInsufficientStock)
}
