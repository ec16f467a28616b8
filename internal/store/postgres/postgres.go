package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
	"github.com/indipendencepark/sana-intraprendenza/internal/store"
)

type Store struct {
	db         *sql.DB
	documentID string
}

func New(ctx context.Context, databaseURL string, documentID string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewWithDB(db, documentID), nil
}

func NewWithDB(db *sql.DB, documentID string) *Store {
	if documentID == "" {
		documentID = "main_state"
	}
	return &Store{db: db, documentID: documentID}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadState(ctx context.Context) (*domain.State, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT body
		FROM app_state
		WHERE id = $1
	`, s.documentID).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var state domain.State
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("decode state document %s: %w", s.documentID, err)
	}
	return &state, nil
}

// SaveState replaces the whole document. The last writer wins.
func (s *Store) SaveState(ctx context.Context, state domain.State) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_state (id, body, revision, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (id)
		DO UPDATE SET body = EXCLUDED.body, revision = app_state.revision + 1, updated_at = now()
	`, s.documentID, body)
	return err
}

func (s *Store) CreateAccount(ctx context.Context, account domain.Account) error {
	email := strings.ToLower(strings.TrimSpace(account.Email))
	if email == "" || account.PasswordHash == "" || account.MemberID == "" {
		return store.ErrInvalidAccount
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (email, password_hash, member_id, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, email, account.PasswordHash, account.MemberID, account.Name, account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT email, password_hash, member_id, name, created_at
		FROM accounts
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(&account.Email, &account.PasswordHash, &account.MemberID, &account.Name, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email, password_hash, member_id, name, created_at
		FROM accounts
		ORDER BY email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, 16)
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(&account.Email, &account.PasswordHash, &account.MemberID, &account.Name, &account.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
