// Package store opens the configured persistence backend for debt accounts
// and their ledgers.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cleared-dev/payoff/internal/config"
	"github.com/cleared-dev/payoff/internal/model"
	"github.com/cleared-dev/payoff/internal/store/filestore"
	"github.com/cleared-dev/payoff/internal/store/sqlitestore"
)

// Store is the full persistence surface. It satisfies payments.Store and
// summary.Source.
type Store interface {
	GetAccount(ctx context.Context, id uuid.UUID) (model.DebtAccount, error)
	ListAccounts(ctx context.Context) ([]model.DebtAccount, error)
	Entries(ctx context.Context, id uuid.UUID) ([]model.LedgerEntry, error)
	CreateAccount(ctx context.Context, acct model.DebtAccount) error
	Commit(ctx context.Context, id uuid.UUID, prev, next model.LoanState, entry model.LedgerEntry) error
	Close() error
}

// Open returns the backend selected by cfg for the project at root.
func Open(cfg *config.Config, root string) (Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile, "":
		return filestore.New(root), nil
	case config.BackendSQLite:
		s, err := sqlitestore.Open(cfg.SQLitePath(root))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
