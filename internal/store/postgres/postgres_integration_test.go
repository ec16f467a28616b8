package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

func TestStateDocumentRoundTripsThroughPostgres(t *testing.T) {
	databaseURL := os.Getenv("MINIBAR_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set MINIBAR_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	documentID := fmt.Sprintf("it_state_%d", time.Now().UnixNano())
	s, err := New(ctx, databaseURL, documentID)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM app_state WHERE id = $1`, documentID)
		_ = s.Close()
	})

	if err := Migrate(ctx, s.DB(), "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	state := domain.SeedState(decimal.RequireFromString("312.00"), time.Now().UTC())
	state.Products[0].Stock = 3
	if err := s.SaveState(ctx, state); err != nil {
		t.Fatalf("first save: %v", err)
	}
	state.Products[0].Stock = 2
	if err := s.SaveState(ctx, state); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := s.LoadState(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Products[0].Stock != 2 {
		t.Fatalf("expected last write to win with stock 2, got %d", loaded.Products[0].Stock)
	}

	var revision int64
	if err := s.db.QueryRowContext(ctx, `SELECT revision FROM app_state WHERE id = $1`, documentID).Scan(&revision); err != nil {
		t.Fatalf("query revision: %v", err)
	}
	if revision != 2 {
		t.Fatalf("expected revision 2, got %d", revision)
	}
}
