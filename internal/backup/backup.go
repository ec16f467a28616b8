package backup

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
	"github.com/indipendencepark/sana-intraprendenza/internal/store"
)

// Store keeps local or off-site copies of the ledger document, independent of
// the shared remote store.
type Store interface {
	Save(ctx context.Context, state domain.State) error
	// Latest returns store.ErrNotFound when nothing was saved yet.
	Latest(ctx context.Context) (*domain.State, error)
}

// Fanout writes to every target and reads from the first that has a copy.
type Fanout []Store

func (f Fanout) Save(ctx context.Context, state domain.State) error {
	var errs error
	for i, target := range f {
		if err := target.Save(ctx, state); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("backup target %d: %w", i, err))
		}
	}
	return errs
}

func (f Fanout) Latest(ctx context.Context) (*domain.State, error) {
	var errs []error
	for _, target := range f {
		state, err := target.Latest(ctx)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, multierr.Combine(errs...)
	}
	return nil, store.ErrNotFound
}
