// Package payments applies real-world payments and monthly automatic
// updates to debt accounts. It is the only package that mutates loan state.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/payoff/internal/model"
)

// Store is the account and ledger persistence the service depends on.
// Commit must persist next and append the entry atomically, and fail with
// model.ErrStateConflict when the stored state is no longer prev.
type Store interface {
	GetAccount(ctx context.Context, id uuid.UUID) (model.DebtAccount, error)
	Commit(ctx context.Context, id uuid.UUID, prev, next model.LoanState, entry model.LedgerEntry) error
}

// Service applies payments and auto-updates. Each apply-and-persist cycle
// holds a per-account lock, so concurrent calls on one account serialize
// while different accounts proceed independently.
type Service struct {
	store Store
	locks *accountLocks
	log   logrus.FieldLogger
}

// NewService creates a payments Service.
func NewService(store Store, log logrus.FieldLogger) *Service {
	return &Service{store: store, locks: newAccountLocks(), log: log}
}

// commit persists a state transition computed from acct.State.
func (s *Service) commit(ctx context.Context, acct model.DebtAccount, next model.LoanState, entry model.LedgerEntry) error {
	err := s.store.Commit(ctx, acct.ID, acct.State, next, entry)
	if errors.Is(err, model.ErrStateConflict) {
		return model.StateError{AccountID: acct.ID, Description: "changed by another writer; retry"}
	}
	return err
}

// loadDebt fetches an account and checks that it carries loan terms.
func (s *Service) loadDebt(ctx context.Context, id uuid.UUID) (model.DebtAccount, error) {
	acct, err := s.store.GetAccount(ctx, id)
	if errors.Is(err, model.ErrAccountNotFound) {
		return model.DebtAccount{}, model.NotFoundError{AccountID: id, Description: "no such account"}
	}
	if err != nil {
		return model.DebtAccount{}, fmt.Errorf("loading account %s: %w", id, err)
	}
	if !acct.IsDebt() {
		return model.DebtAccount{}, model.NotFoundError{AccountID: id, Description: "not a debt account"}
	}
	return acct, nil
}
