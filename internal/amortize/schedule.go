// Package amortize computes amortization schedules and single-period
// payment splits. Everything here is pure and safe for concurrent use.
package amortize

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payoff/internal/model"
)

// factorPlaces bounds the precision of (1+r)^n while it is accumulated.
const factorPlaces = 20

var (
	one           = decimal.NewFromInt(1)
	monthsPerYear = decimal.NewFromInt(12)
)

// PeriodicRate converts an APR fraction to a monthly rate.
func PeriodicRate(apr decimal.Decimal) decimal.Decimal {
	return apr.Div(monthsPerYear)
}

// Validate checks the loan terms that every computation depends on.
func Validate(terms model.LoanTerms) error {
	switch {
	case terms.TermMonths <= 0:
		return model.ValidationError{Field: "term_months", Description: fmt.Sprintf("must be positive, got %d", terms.TermMonths)}
	case terms.OriginalBalance.IsNegative():
		return model.ValidationError{Field: "original_balance", Description: fmt.Sprintf("must not be negative, got %s", terms.OriginalBalance)}
	case terms.APRRate.IsNegative():
		return model.ValidationError{Field: "apr_rate", Description: fmt.Sprintf("must not be negative, got %s", terms.APRRate)}
	case !terms.PaymentType.Valid():
		return model.ValidationError{Field: "payment_type", Description: fmt.Sprintf("unknown payment type %q", terms.PaymentType)}
	case terms.FixedMonthlyPayment.Valid && terms.FixedMonthlyPayment.Decimal.IsNegative():
		return model.ValidationError{Field: "fixed_monthly_payment", Description: fmt.Sprintf("must not be negative, got %s", terms.FixedMonthlyPayment.Decimal)}
	}
	return nil
}

// MonthlyPayment returns the installment for the terms: the supplied fixed
// payment when present, otherwise the closed-form annuity payment on the
// original balance (Fixed) or the first period's interest (InterestOnly).
func MonthlyPayment(terms model.LoanTerms) (decimal.Decimal, error) {
	if err := Validate(terms); err != nil {
		return decimal.Zero, err
	}
	if terms.FixedMonthlyPayment.Valid {
		return model.RoundMoney(terms.FixedMonthlyPayment.Decimal), nil
	}
	balance := model.RoundMoney(terms.OriginalBalance)
	rate := PeriodicRate(terms.APRRate)
	if terms.PaymentType == model.PaymentTypeInterestOnly {
		return model.RoundMoney(balance.Mul(rate)), nil
	}
	return annuityPayment(balance, rate, terms.TermMonths), nil
}

// annuityPayment is balance*r*(1+r)^n / ((1+r)^n - 1), or balance/n at r == 0.
func annuityPayment(balance, rate decimal.Decimal, n int) decimal.Decimal {
	if rate.IsZero() {
		return model.RoundMoney(balance.Div(decimal.NewFromInt(int64(n))))
	}
	factor := one
	base := one.Add(rate)
	for i := 0; i < n; i++ {
		factor = factor.Mul(base).Round(factorPlaces)
	}
	return model.RoundMoney(balance.Mul(rate).Mul(factor).Div(factor.Sub(one)))
}

// GenerateSchedule returns the full payment table for a loan, one entry per
// month of the term. Any rounding residual is folded into the final period,
// so principal always sums to the original balance.
func GenerateSchedule(terms model.LoanTerms) ([]model.ScheduledPayment, error) {
	payment, err := MonthlyPayment(terms)
	if err != nil {
		return nil, err
	}
	rate := PeriodicRate(terms.APRRate)
	balance := model.RoundMoney(terms.OriginalBalance)
	if err := checkAmortizes(terms.PaymentType, balance, rate, payment); err != nil {
		return nil, err
	}

	schedule := make([]model.ScheduledPayment, 0, terms.TermMonths)
	for i := 1; i <= terms.TermMonths; i++ {
		p := step(balance, rate, payment, terms.PaymentType, i == terms.TermMonths)
		p.Index = i
		p.DueDate = model.AddMonths(terms.OriginationDate, i)
		schedule = append(schedule, p)
		balance = p.RemainingBalanceAfter
	}
	return schedule, nil
}

// step computes one period of the recurrence from balance. It is the only
// place interest and principal are derived.
func step(balance, rate, payment decimal.Decimal, typ model.PaymentType, final bool) model.ScheduledPayment {
	interest := model.RoundMoney(balance.Mul(rate))

	var principal decimal.Decimal
	switch {
	case final:
		principal = balance
	case typ == model.PaymentTypeInterestOnly:
		principal = decimal.Zero
	default:
		principal = decimal.Min(payment.Sub(interest), balance)
		if principal.IsNegative() {
			principal = decimal.Zero
		}
	}

	return model.ScheduledPayment{
		PrincipalPayment:      principal,
		InterestPayment:       interest,
		TotalPayment:          principal.Add(interest),
		RemainingBalanceAfter: balance.Sub(principal),
	}
}

// checkAmortizes rejects a fixed payment that does not cover the interest
// accruing on a positive balance.
func checkAmortizes(typ model.PaymentType, balance, rate, payment decimal.Decimal) error {
	if typ != model.PaymentTypeFixed || !balance.IsPositive() {
		return nil
	}
	interest := model.RoundMoney(balance.Mul(rate))
	if payment.LessThanOrEqual(interest) {
		return model.ComputationError{
			Description: fmt.Sprintf("payment %s does not exceed interest %s on balance %s", payment.StringFixed(2), interest.StringFixed(2), balance.StringFixed(2)),
		}
	}
	return nil
}

// ScheduleTotals sums a schedule.
type ScheduleTotals struct {
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Payments  decimal.Decimal
}

// Totals returns what a schedule costs over its whole term.
func Totals(schedule []model.ScheduledPayment) ScheduleTotals {
	var t ScheduleTotals
	for _, p := range schedule {
		t.Principal = t.Principal.Add(p.PrincipalPayment)
		t.Interest = t.Interest.Add(p.InterestPayment)
		t.Payments = t.Payments.Add(p.TotalPayment)
	}
	return t
}

// PayoffIndex returns the position of the first period that leaves a zero
// balance, or -1 when the schedule never reaches zero.
func PayoffIndex(schedule []model.ScheduledPayment) int {
	for i, p := range schedule {
		if p.RemainingBalanceAfter.IsZero() {
			return i
		}
	}
	return -1
}
