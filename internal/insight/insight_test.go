package insight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seededState() domain.State {
	return domain.SeedState(dec("312"), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
}

func TestBuildSnapshotPicksLowStockAndRecentLogs(t *testing.T) {
	state := seededState()
	state.Tabs = []domain.Tab{{UserID: "u2", UserName: "CICO", TotalOwed: dec("4.5")}}
	for i := 0; i < 12; i++ {
		state.Logs = append(state.Logs, domain.LogEntry{ID: string(rune('a' + i)), Description: "x"})
	}
	state.LastAuditDiscrepancy = dec("-3")

	s := BuildSnapshot(state, 5, 10)
	assert.Equal(t, []string{"Patatina"}, s.LowStockItems)
	assert.Len(t, s.RecentActivity, 10)
	assert.Equal(t, "a", s.RecentActivity[0].ID)
	assert.True(t, s.OutstandingTabs.Equal(dec("4.5")))
	assert.True(t, s.Discrepancy.Equal(dec("-3")))

	s.RecentActivity[0].ID = "changed"
	assert.Equal(t, "a", state.Logs[0].ID)
}

func TestRuleGeneratorCoversAllPoints(t *testing.T) {
	g := NewRuleGenerator(nil)
	text, err := g.Generate(context.Background(), Snapshot{
		CashBalance:     dec("10"),
		OutstandingTabs: dec("12"),
		LowStockItems:   []string{"Patatina", "Fanta"},
		Discrepancy:     dec("-2.5"),
		RecentActivity:  []domain.LogEntry{{Description: "Vendita Cassa: Tuc", User: "CALEF"}},
	})
	require.NoError(t, err)
	assert.Contains(t, text, "€ 10.00")
	assert.Contains(t, text, "sollecitare")
	assert.Contains(t, text, "Patatina, Fanta")
	assert.Contains(t, text, "mancavano € 2.50")
	assert.Contains(t, text, "Vendita Cassa: Tuc (CALEF)")
}

func TestRuleGeneratorCalmReport(t *testing.T) {
	text, err := NewRuleGenerator(nil).Generate(context.Background(), Snapshot{CashBalance: dec("300")})
	require.NoError(t, err)
	assert.Contains(t, text, "Nessun bollo")
	assert.Contains(t, text, "nessun prodotto sotto soglia")
	assert.Contains(t, text, "torna con i conti")
}

type mapCache struct {
	values map[string]domain.InsightResponse
	sets   int
}

func (m *mapCache) Get(_ context.Context, key string) (*domain.InsightResponse, bool, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func (m *mapCache) Set(_ context.Context, key string, value *domain.InsightResponse, _ time.Duration) error {
	m.values[key] = *value
	m.sets++
	return nil
}

type countingGenerator struct {
	calls int
	err   error
}

func (c *countingGenerator) Generate(_ context.Context, _ Snapshot) (string, error) {
	c.calls++
	return "report", c.err
}

func TestEngineCachesBySnapshot(t *testing.T) {
	store := &mapCache{values: map[string]domain.InsightResponse{}}
	gen := &countingGenerator{}
	e := NewEngine(store, time.Minute, gen)
	ctx := context.Background()
	snap := BuildSnapshot(seededState(), 5, 10)

	first, err := e.Report(ctx, snap)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := e.Report(ctx, snap)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "report", second.Report)
	assert.Equal(t, 1, gen.calls)

	snap.CashBalance = dec("1")
	_, err = e.Report(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, 2, store.sets)
}

func TestEngineSurfacesGeneratorErrors(t *testing.T) {
	e := NewEngine(nil, 0, &countingGenerator{err: errors.New("model offline")})
	_, err := e.Report(context.Background(), Snapshot{})
	assert.Error(t, err)
}
