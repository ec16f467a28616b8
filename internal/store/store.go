package store

import (
	"context"
	"errors"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an account email or member link is taken.
	ErrConflict       = errors.New("conflict")
	ErrInvalidAccount = errors.New("invalid account")
)

// StateRepository holds the single shared ledger document. LoadState returns
// ErrNotFound before the document has been created.
type StateRepository interface {
	LoadState(ctx context.Context) (*domain.State, error)
	SaveState(ctx context.Context, state domain.State) error
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account domain.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}

type Repository interface {
	StateRepository
	AccountRepository
}
