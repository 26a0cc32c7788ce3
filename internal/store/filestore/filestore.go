// Package filestore keeps debt accounts and ledgers as CSV files in the
// project directory, so every change is visible in git history.
package filestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cleared-dev/payoff/internal/accounts"
	"github.com/cleared-dev/payoff/internal/journal"
	"github.com/cleared-dev/payoff/internal/model"
)

// Store is a CSV-backed store rooted at a project directory. One mutex
// serializes all access within the process.
type Store struct {
	root   string
	mu     sync.Mutex
	ledger *journal.Service
}

// New creates a Store for the project at root.
func New(root string) *Store {
	return &Store{root: root, ledger: journal.NewService(root)}
}

// GetAccount returns one account or model.ErrAccountNotFound.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (model.DebtAccount, error) {
	if err := ctx.Err(); err != nil {
		return model.DebtAccount{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := accounts.Load(s.root)
	if err != nil {
		return model.DebtAccount{}, err
	}
	acct, ok := reg.Get(id)
	if !ok {
		return model.DebtAccount{}, model.ErrAccountNotFound
	}
	return acct, nil
}

// ListAccounts returns every account in registry order.
func (s *Store) ListAccounts(ctx context.Context) ([]model.DebtAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := accounts.Load(s.root)
	if err != nil {
		return nil, err
	}
	return reg.All(), nil
}

// Entries returns an account's ledger in append order.
func (s *Store) Entries(ctx context.Context, id uuid.UUID) ([]model.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.Read(id)
}

// CreateAccount adds a new account to the registry.
func (s *Store) CreateAccount(ctx context.Context, acct model.DebtAccount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := accounts.Load(s.root)
	if err != nil {
		return err
	}
	if err := reg.Add(acct); err != nil {
		return err
	}
	return reg.Save(s.root)
}

// Commit appends the ledger entry and replaces the account's state when the
// registry on disk still holds prev. If the registry cannot be written the
// appended entry is removed again.
func (s *Store) Commit(ctx context.Context, id uuid.UUID, prev, next model.LoanState, entry model.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.AccountID != id {
		return fmt.Errorf("entry for account %s committed to %s", entry.AccountID, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := accounts.Load(s.root)
	if err != nil {
		return err
	}
	current, ok := reg.Get(id)
	if !ok {
		return model.ErrAccountNotFound
	}
	if !current.State.Equal(prev) {
		return model.ErrStateConflict
	}
	if err := reg.SetState(id, next); err != nil {
		return err
	}

	existing, err := s.ledger.Read(id)
	if err != nil {
		return err
	}
	if err := s.ledger.Append(entry); err != nil {
		return err
	}
	if err := reg.Save(s.root); err != nil {
		if terr := s.ledger.Truncate(id, len(existing)); terr != nil {
			return fmt.Errorf("%w (rolling back ledger: %v)", err, terr)
		}
		return err
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
