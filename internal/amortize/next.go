package amortize

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payoff/internal/model"
)

// Next computes the coming period for a loan at an arbitrary current
// balance, using the same recurrence step as GenerateSchedule. final folds
// the whole balance into principal, as on the last month of a term.
//
// The result is positioned as the first period after origination; callers
// that know where the loan stands in time set DueDate and Index themselves.
func Next(terms model.LoanTerms, balance decimal.Decimal, final bool) (model.ScheduledPayment, error) {
	payment, err := MonthlyPayment(terms)
	if err != nil {
		return model.ScheduledPayment{}, err
	}
	if balance.IsNegative() {
		return model.ScheduledPayment{}, model.ValidationError{Field: "current_balance", Description: fmt.Sprintf("must not be negative, got %s", balance)}
	}
	rate := PeriodicRate(terms.APRRate)
	balance = model.RoundMoney(balance)
	if err := checkAmortizes(terms.PaymentType, balance, rate, payment); err != nil {
		return model.ScheduledPayment{}, err
	}

	p := step(balance, rate, payment, terms.PaymentType, final)
	p.Index = 1
	p.DueDate = model.AddMonths(terms.OriginationDate, 1)
	return p, nil
}

// NextPayment is Next for callers that only need to know whether a payment
// can be projected. It reports false for accounts without loan terms and for
// terms that cannot amortize.
func NextPayment(terms *model.LoanTerms, balance decimal.Decimal) (model.ScheduledPayment, bool) {
	if terms == nil {
		return model.ScheduledPayment{}, false
	}
	p, err := Next(*terms, balance, terms.TermMonths == 1)
	if err != nil {
		return model.ScheduledPayment{}, false
	}
	return p, true
}
