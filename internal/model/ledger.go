package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind records what produced a ledger entry.
type EntryKind string

const (
	KindScheduledPayment EntryKind = "scheduled_payment"
	KindManualPayment    EntryKind = "manual_payment"
	KindAutoUpdate       EntryKind = "auto_update"
)

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	switch k {
	case KindScheduledPayment, KindManualPayment, KindAutoUpdate:
		return true
	}
	return false
}

// PaymentIntent tells the payment applier how to split an amount.
type PaymentIntent string

const (
	IntentPrincipal PaymentIntent = "principal"
	IntentInterest  PaymentIntent = "interest"
	IntentMixed     PaymentIntent = "mixed"
)

// ParseIntent maps user input to an intent. Empty input means mixed.
func ParseIntent(s string) (PaymentIntent, error) {
	switch PaymentIntent(s) {
	case "":
		return IntentMixed, nil
	case IntentPrincipal, IntentInterest, IntentMixed:
		return PaymentIntent(s), nil
	}
	return "", fmt.Errorf("unknown payment intent %q", s)
}

// LedgerEntry is one append-only row in an account's payment history.
type LedgerEntry struct {
	ID               uuid.UUID
	AccountID        uuid.UUID
	Date             time.Time
	TotalAmount      decimal.Decimal
	PrincipalPortion decimal.Decimal
	InterestPortion  decimal.Decimal
	ResultingBalance decimal.Decimal
	Kind             EntryKind
	Intent           PaymentIntent // empty for auto updates
	Memo             string
}

// Unapplied is the part of TotalAmount that went to neither principal nor
// interest because the payment exceeded the balance.
func (e LedgerEntry) Unapplied() decimal.Decimal {
	return e.TotalAmount.Sub(e.PrincipalPortion).Sub(e.InterestPortion)
}

// ScheduledPayment is one period of an amortization schedule.
type ScheduledPayment struct {
	Index                 int
	DueDate               time.Time
	PrincipalPayment      decimal.Decimal
	InterestPayment       decimal.Decimal
	TotalPayment          decimal.Decimal
	RemainingBalanceAfter decimal.Decimal
}

// DebtSummary reports payoff progress for one account.
type DebtSummary struct {
	AccountID           uuid.UUID
	Name                string
	OriginalBalance     decimal.Decimal
	CurrentBalance      decimal.Decimal
	TotalPrincipalPaid  decimal.Decimal
	TotalInterestPaid   decimal.Decimal
	PercentPaidOff      decimal.Decimal // fraction, 0.25 = 25%
	ProjectedPayoffDate *time.Time
}
