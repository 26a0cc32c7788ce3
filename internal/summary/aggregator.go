package summary

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/payoff/internal/model"
)

// maxConcurrentLoads bounds how many accounts are read at once.
const maxConcurrentLoads = 8

// Source is the read side of the account and ledger stores.
type Source interface {
	GetAccount(ctx context.Context, id uuid.UUID) (model.DebtAccount, error)
	ListAccounts(ctx context.Context) ([]model.DebtAccount, error)
	Entries(ctx context.Context, id uuid.UUID) ([]model.LedgerEntry, error)
}

// Report is the per-account summaries plus their aggregate.
type Report struct {
	Accounts []model.DebtSummary
	Total    Totals
}

// Aggregator builds payoff reports from persisted accounts and ledgers.
type Aggregator struct {
	source Source
	log    logrus.FieldLogger
}

// NewAggregator creates an Aggregator.
func NewAggregator(source Source, log logrus.FieldLogger) *Aggregator {
	return &Aggregator{source: source, log: log}
}

// Summarize reports on the given accounts, or on every debt account when
// ids is empty. Results keep the order of ids.
func (a *Aggregator) Summarize(ctx context.Context, ids []uuid.UUID) (Report, error) {
	accts, err := a.resolve(ctx, ids)
	if err != nil {
		return Report{}, err
	}

	summaries := make([]model.DebtSummary, len(accts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, acct := range accts {
		g.Go(func() error {
			entries, err := a.source.Entries(gctx, acct.ID)
			if err != nil {
				return fmt.Errorf("reading ledger for %s: %w", acct.ID, err)
			}
			s, err := Summarize(acct, entries)
			if err != nil {
				return err
			}
			if s.ProjectedPayoffDate == nil && s.CurrentBalance.IsPositive() {
				a.log.WithField("account_id", acct.ID).Warn("payoff date cannot be projected")
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	return Report{Accounts: summaries, Total: Aggregate(summaries)}, nil
}

func (a *Aggregator) resolve(ctx context.Context, ids []uuid.UUID) ([]model.DebtAccount, error) {
	if len(ids) == 0 {
		all, err := a.source.ListAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing accounts: %w", err)
		}
		var debts []model.DebtAccount
		for _, acct := range all {
			if acct.IsDebt() {
				debts = append(debts, acct)
			}
		}
		return debts, nil
	}

	accts := make([]model.DebtAccount, 0, len(ids))
	for _, id := range ids {
		acct, err := a.source.GetAccount(ctx, id)
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, model.NotFoundError{AccountID: id, Description: "no such account"}
		}
		if err != nil {
			return nil, fmt.Errorf("loading account %s: %w", id, err)
		}
		if !acct.IsDebt() {
			return nil, model.NotFoundError{AccountID: id, Description: "not a debt account"}
		}
		accts = append(accts, acct)
	}
	return accts, nil
}
