package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
	"github.com/indipendencepark/sana-intraprendenza/internal/store"
)

// SQLiteStore keeps the last few documents in a local SQLite file.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.Mutex
	retention int
}

// NewSQLite opens (and migrates) the backup database. Use ":memory:" in
// tests. retention is the number of snapshots kept.
func NewSQLite(path string, retention int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open backup database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if retention < 1 {
		retention = 20
	}

	s := &SQLiteStore{db: db, retention: retention}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			body       TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate backup database: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, state domain.State) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots (body, created_at) VALUES (?, ?)`,
		string(body), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert backup: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)
	`, s.retention); err != nil {
		return fmt.Errorf("prune backups: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Latest(ctx context.Context) (*domain.State, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var state domain.State
	if err := json.Unmarshal([]byte(body), &state); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return &state, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n)
	return n, err
}
