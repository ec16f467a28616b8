package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
	"github.com/indipendencepark/sana-intraprendenza/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	state    *domain.State
	accounts map[string]domain.Account
}

func New() *Store {
	return &Store{accounts: make(map[string]domain.Account)}
}

// NewSeeded returns a store holding the first-run document and one dev
// account linked to member u1. Credentials come from MINIBAR_SEED_ACCOUNT_EMAIL and
// MINIBAR_SEED_ACCOUNT_PASSWORD.
func NewSeeded(startingCash decimal.Decimal) *Store {
	s := New()
	seed := domain.SeedState(startingCash, time.Now().UTC())
	s.state = &seed

	email := strings.ToLower(envOr("MINIBAR_SEED_ACCOUNT_EMAIL", "calef@sana.local"))
	password := envOr("MINIBAR_SEED_ACCOUNT_PASSWORD", "barista123")
	if os.Getenv("MINIBAR_SEED_ACCOUNT_PASSWORD") == "" {
		log.Warn().Str("component", "memory-store").Msg("using default dev credentials, set MINIBAR_SEED_ACCOUNT_PASSWORD to override")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Str("component", "memory-store").Msg("failed to hash seed password")
	}
	s.accounts[email] = domain.Account{
		Email:        email,
		PasswordHash: string(hash),
		MemberID:     "u1",
		Name:         "CALEF",
		CreatedAt:    time.Now().UTC(),
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) LoadState(_ context.Context) (*domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, store.ErrNotFound
	}
	clone := s.state.Clone()
	return &clone, nil
}

func (s *Store) SaveState(_ context.Context, state domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := state.Clone()
	s.state = &clone
	return nil
}

func (s *Store) CreateAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(account.Email))
	if email == "" || account.PasswordHash == "" || account.MemberID == "" {
		return store.ErrInvalidAccount
	}
	if _, exists := s.accounts[email]; exists {
		return store.ErrConflict
	}
	for _, existing := range s.accounts {
		if existing.MemberID == account.MemberID {
			return store.ErrConflict
		}
	}
	account.Email = email
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	s.accounts[email] = account
	return nil
}

func (s *Store) GetAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &account, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	slices.SortFunc(accounts, func(a, b domain.Account) int {
		return strings.Compare(a.Email, b.Email)
	})
	return accounts, nil
}
