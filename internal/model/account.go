package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType selects how a loan repays principal.
type PaymentType string

const (
	PaymentTypeFixed        PaymentType = "fixed"
	PaymentTypeInterestOnly PaymentType = "interest_only"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	return t == PaymentTypeFixed || t == PaymentTypeInterestOnly
}

// LoanTerms are fixed at origination.
type LoanTerms struct {
	OriginalBalance     decimal.Decimal
	APRRate             decimal.Decimal // fraction, 0.035 = 3.5%
	TermMonths          int
	PaymentType         PaymentType
	FixedMonthlyPayment decimal.NullDecimal // computed when not valid
	OriginationDate     time.Time
}

// LoanState is the part of a loan that moves as payments are applied.
type LoanState struct {
	CurrentBalance     decimal.Decimal
	RemainingMonths    int
	LastAutoUpdateDate *time.Time
}

// Equal reports whether two states describe the same loan position.
func (s LoanState) Equal(o LoanState) bool {
	if !s.CurrentBalance.Equal(o.CurrentBalance) || s.RemainingMonths != o.RemainingMonths {
		return false
	}
	if s.LastAutoUpdateDate == nil || o.LastAutoUpdateDate == nil {
		return s.LastAutoUpdateDate == nil && o.LastAutoUpdateDate == nil
	}
	return s.LastAutoUpdateDate.Equal(*o.LastAutoUpdateDate)
}

// DebtAccount is one loan as persisted by the account store.
type DebtAccount struct {
	ID         uuid.UUID
	Name       string
	Terms      *LoanTerms // nil = not configured as a debt instrument
	State      LoanState
	AutoUpdate bool
}

// IsDebt reports whether the account carries loan terms.
func (a DebtAccount) IsDebt() bool {
	return a.Terms != nil
}

// NewDebtAccount returns an account whose state starts at origination.
func NewDebtAccount(name string, terms LoanTerms, autoUpdate bool) DebtAccount {
	return DebtAccount{
		ID:    uuid.New(),
		Name:  name,
		Terms: &terms,
		State: LoanState{
			CurrentBalance:  RoundMoney(terms.OriginalBalance),
			RemainingMonths: terms.TermMonths,
		},
		AutoUpdate: autoUpdate,
	}
}
