package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/payoff/internal/amortize"
	"github.com/cleared-dev/payoff/internal/model"
)

// AutoUpdateResult is what one automatic period advance did.
type AutoUpdateResult struct {
	NewBalance    decimal.Decimal
	InterestAdded decimal.Decimal
	PrincipalPaid decimal.Decimal
	Applied       bool // false when the period was already posted
}

// ApplyAutoUpdate advances a loan by exactly one billing period. A second
// call for the same period is a successful no-op; a period before the last
// posted one is a StateError.
func (s *Service) ApplyAutoUpdate(ctx context.Context, id uuid.UUID, period model.BillingPeriod) (AutoUpdateResult, error) {
	if period.Start.IsZero() || !period.End.After(period.Start) {
		return AutoUpdateResult{}, model.ValidationError{Field: "period", Description: fmt.Sprintf("invalid billing period %s", period)}
	}

	unlock := s.locks.lock(id)
	defer unlock()

	acct, err := s.loadDebt(ctx, id)
	if err != nil {
		return AutoUpdateResult{}, err
	}
	if !acct.AutoUpdate {
		return AutoUpdateResult{}, model.StateError{AccountID: id, Description: "automatic updates are not enabled"}
	}

	state := acct.State
	log := s.log.WithFields(logrus.Fields{"account_id": id, "period": period.String()})

	if state.LastAutoUpdateDate != nil && period.Contains(*state.LastAutoUpdateDate) {
		log.Debug("auto-update already posted for period")
		return AutoUpdateResult{NewBalance: state.CurrentBalance, InterestAdded: decimal.Zero, PrincipalPaid: decimal.Zero}, nil
	}
	if state.LastAutoUpdateDate != nil && period.Start.Before(model.Day(*state.LastAutoUpdateDate)) {
		return AutoUpdateResult{}, model.StateError{
			AccountID:   id,
			Description: fmt.Sprintf("period %s precedes last auto-update on %s", period, state.LastAutoUpdateDate.Format(model.DateFormat)),
		}
	}
	if !state.CurrentBalance.IsPositive() {
		return AutoUpdateResult{}, model.StateError{AccountID: id, Description: "loan is paid off"}
	}

	p, err := amortize.Next(*acct.Terms, state.CurrentBalance, state.RemainingMonths <= 1)
	if err != nil {
		return AutoUpdateResult{}, err
	}

	posted := period.Start
	state.CurrentBalance = p.RemainingBalanceAfter
	if state.RemainingMonths > 0 {
		state.RemainingMonths--
	}
	state.LastAutoUpdateDate = &posted

	entry := model.LedgerEntry{
		ID:               uuid.New(),
		AccountID:        id,
		Date:             posted,
		TotalAmount:      p.TotalPayment,
		PrincipalPortion: p.PrincipalPayment,
		InterestPortion:  p.InterestPayment,
		ResultingBalance: state.CurrentBalance,
		Kind:             model.KindAutoUpdate,
	}
	if err := s.commit(ctx, acct, state, entry); err != nil {
		return AutoUpdateResult{}, fmt.Errorf("recording auto-update for %s: %w", id, err)
	}

	log.WithFields(logrus.Fields{
		"principal": p.PrincipalPayment.StringFixed(2),
		"interest":  p.InterestPayment.StringFixed(2),
		"balance":   state.CurrentBalance.StringFixed(2),
	}).Info("auto-update applied")

	return AutoUpdateResult{
		NewBalance:    state.CurrentBalance,
		InterestAdded: p.InterestPayment,
		PrincipalPaid: p.PrincipalPayment,
		Applied:       true,
	}, nil
}
