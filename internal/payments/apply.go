package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/payoff/internal/amortize"
	"github.com/cleared-dev/payoff/internal/model"
)

// Split is a caller-supplied principal/interest breakdown of a payment.
type Split struct {
	Principal decimal.Decimal
	Interest  decimal.Decimal
}

// PaymentRequest describes one real-world payment against a loan.
type PaymentRequest struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Date      time.Time
	Intent    model.PaymentIntent // empty means mixed
	Split     *Split              // overrides the intent when set
	Kind      model.EntryKind     // empty means manual_payment
	Memo      string
}

// PaymentResult is what a payment did to the loan.
type PaymentResult struct {
	EntryID         uuid.UUID
	NewBalance      decimal.Decimal
	PrincipalPaid   decimal.Decimal
	InterestPaid    decimal.Decimal
	TotalPaid       decimal.Decimal
	Unapplied       decimal.Decimal // paid beyond the balance; only on payoff
	RemainingMonths int
}

func (r *PaymentRequest) normalize() error {
	if !r.Amount.IsPositive() {
		return model.ValidationError{Field: "amount", Description: fmt.Sprintf("must be positive, got %s", r.Amount)}
	}
	if !r.Amount.Equal(model.RoundMoney(r.Amount)) {
		return model.ValidationError{Field: "amount", Description: fmt.Sprintf("%s has more than %d decimal places", r.Amount, model.MoneyPlaces)}
	}
	if r.Date.IsZero() {
		return model.ValidationError{Field: "date", Description: "is required"}
	}
	r.Date = model.Day(r.Date)

	intent, err := model.ParseIntent(string(r.Intent))
	if err != nil {
		return model.ValidationError{Field: "intent", Description: err.Error()}
	}
	r.Intent = intent

	switch r.Kind {
	case "":
		r.Kind = model.KindManualPayment
	case model.KindManualPayment, model.KindScheduledPayment:
	default:
		return model.ValidationError{Field: "kind", Description: fmt.Sprintf("payments cannot be recorded as %q", r.Kind)}
	}

	if r.Split != nil {
		if r.Split.Principal.IsNegative() || r.Split.Interest.IsNegative() {
			return model.ValidationError{Field: "split", Description: "portions must not be negative"}
		}
		if !r.Split.Principal.Add(r.Split.Interest).Equal(r.Amount) {
			return model.ValidationError{
				Field:       "split",
				Description: fmt.Sprintf("principal %s + interest %s != amount %s", r.Split.Principal.StringFixed(2), r.Split.Interest.StringFixed(2), r.Amount.StringFixed(2)),
			}
		}
	}
	return nil
}

// ApplyPayment records a payment, splitting it into principal and interest
// by the request's explicit split or intent, and reduces the balance.
func (s *Service) ApplyPayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if err := req.normalize(); err != nil {
		return PaymentResult{}, err
	}

	unlock := s.locks.lock(req.AccountID)
	defer unlock()

	acct, err := s.loadDebt(ctx, req.AccountID)
	if err != nil {
		return PaymentResult{}, err
	}

	balance := acct.State.CurrentBalance
	principal, interest := splitPayment(*acct.Terms, balance, req)

	state := acct.State
	state.CurrentBalance = decimal.Max(balance.Sub(principal), decimal.Zero)
	state.RemainingMonths = decrementRemaining(*acct.Terms, state.RemainingMonths, principal)

	entry := model.LedgerEntry{
		ID:               uuid.New(),
		AccountID:        acct.ID,
		Date:             req.Date,
		TotalAmount:      req.Amount,
		PrincipalPortion: principal,
		InterestPortion:  interest,
		ResultingBalance: state.CurrentBalance,
		Kind:             req.Kind,
		Intent:           req.Intent,
		Memo:             req.Memo,
	}
	if err := s.commit(ctx, acct, state, entry); err != nil {
		return PaymentResult{}, fmt.Errorf("recording payment for %s: %w", acct.ID, err)
	}

	s.log.WithFields(logrus.Fields{
		"account_id": acct.ID,
		"amount":     req.Amount.StringFixed(2),
		"intent":     req.Intent,
		"principal":  principal.StringFixed(2),
		"interest":   interest.StringFixed(2),
		"balance":    state.CurrentBalance.StringFixed(2),
	}).Info("payment applied")

	return PaymentResult{
		EntryID:         entry.ID,
		NewBalance:      state.CurrentBalance,
		PrincipalPaid:   principal,
		InterestPaid:    interest,
		TotalPaid:       entry.TotalAmount,
		Unapplied:       entry.Unapplied(),
		RemainingMonths: state.RemainingMonths,
	}, nil
}

// splitPayment decides the principal and interest portions. Principal never
// exceeds the current balance.
func splitPayment(terms model.LoanTerms, balance decimal.Decimal, req PaymentRequest) (principal, interest decimal.Decimal) {
	amount := req.Amount

	if req.Split != nil {
		return decimal.Min(req.Split.Principal, balance), req.Split.Interest
	}

	switch req.Intent {
	case model.IntentPrincipal:
		return decimal.Min(amount, balance), decimal.Zero
	case model.IntentInterest:
		return decimal.Zero, amount
	}

	next, ok := amortize.NextPayment(&terms, balance)
	if ok && next.TotalPayment.IsPositive() {
		ratio := amount.Div(next.TotalPayment)
		principal = model.RoundMoney(next.PrincipalPayment.Mul(ratio))
	} else {
		// No projectable installment: interest due this period comes first.
		due := model.RoundMoney(balance.Mul(amortize.PeriodicRate(terms.APRRate)))
		principal = amount.Sub(decimal.Min(amount, due))
	}
	principal = decimal.Min(principal, balance)
	return principal, amount.Sub(principal)
}

// decrementRemaining approximates the months a principal payment covers as
// floor(principal / installment). It drifts from the true remaining term
// after partial or extra payments; the schedule is not recomputed.
func decrementRemaining(terms model.LoanTerms, remaining int, principal decimal.Decimal) int {
	if terms.PaymentType != model.PaymentTypeFixed {
		return remaining
	}
	installment, err := amortize.MonthlyPayment(terms)
	if err != nil || !installment.IsPositive() {
		return remaining
	}
	remaining -= int(principal.Div(installment).Floor().IntPart())
	if remaining < 0 {
		return 0
	}
	return remaining
}
