// Package summary folds loan ledgers into payoff-progress reports. It only
// reads persisted data.
package summary

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payoff/internal/amortize"
	"github.com/cleared-dev/payoff/internal/model"
)

// percentPlaces is the precision of PercentPaidOff (0.1234 = 12.34%).
const percentPlaces = 4

// Summarize folds one account's ledger into a DebtSummary.
//
// The payoff date is projected by regenerating a schedule from the current
// balance at the loan's current installment, starting from the latest
// ledger date. It is nil when the loan cannot be projected.
func Summarize(acct model.DebtAccount, ledger []model.LedgerEntry) (model.DebtSummary, error) {
	if !acct.IsDebt() {
		return model.DebtSummary{}, model.NotFoundError{AccountID: acct.ID, Description: "not a debt account"}
	}
	terms := *acct.Terms

	s := model.DebtSummary{
		AccountID:          acct.ID,
		Name:               acct.Name,
		OriginalBalance:    terms.OriginalBalance,
		CurrentBalance:     acct.State.CurrentBalance,
		TotalPrincipalPaid: decimal.Zero,
		TotalInterestPaid:  decimal.Zero,
		PercentPaidOff:     percentPaid(terms.OriginalBalance, acct.State.CurrentBalance),
	}

	asOf := terms.OriginationDate
	for _, e := range ledger {
		s.TotalPrincipalPaid = s.TotalPrincipalPaid.Add(e.PrincipalPortion)
		s.TotalInterestPaid = s.TotalInterestPaid.Add(e.InterestPortion)
		if e.Date.After(asOf) {
			asOf = e.Date
		}
	}

	s.ProjectedPayoffDate = projectPayoff(terms, acct.State, asOf, len(ledger) > 0)
	return s, nil
}

func percentPaid(original, current decimal.Decimal) decimal.Decimal {
	if !original.IsPositive() {
		return decimal.Zero
	}
	return original.Sub(current).Div(original).Round(percentPlaces)
}

func projectPayoff(terms model.LoanTerms, state model.LoanState, asOf time.Time, hasHistory bool) *time.Time {
	if !state.CurrentBalance.IsPositive() {
		if !hasHistory {
			return nil
		}
		paid := asOf
		return &paid
	}

	installment, err := amortize.MonthlyPayment(terms)
	if err != nil {
		return nil
	}
	months := state.RemainingMonths
	if months <= 0 {
		months = terms.TermMonths
	}

	projection := terms
	projection.OriginalBalance = state.CurrentBalance
	projection.TermMonths = months
	projection.FixedMonthlyPayment = decimal.NewNullDecimal(installment)
	projection.OriginationDate = asOf

	schedule, err := amortize.GenerateSchedule(projection)
	if err != nil {
		return nil
	}
	i := amortize.PayoffIndex(schedule)
	if i < 0 {
		return nil
	}
	due := schedule[i].DueDate
	return &due
}

// Totals aggregates summaries across accounts.
type Totals struct {
	Accounts            int
	OriginalBalance     decimal.Decimal
	CurrentBalance      decimal.Decimal
	TotalPrincipalPaid  decimal.Decimal
	TotalInterestPaid   decimal.Decimal
	PercentPaidOff      decimal.Decimal // weighted by original balance
	LatestPayoffDate    *time.Time
	UnprojectedAccounts int
}

// Aggregate sums a set of summaries.
func Aggregate(summaries []model.DebtSummary) Totals {
	t := Totals{Accounts: len(summaries)}
	for _, s := range summaries {
		t.OriginalBalance = t.OriginalBalance.Add(s.OriginalBalance)
		t.CurrentBalance = t.CurrentBalance.Add(s.CurrentBalance)
		t.TotalPrincipalPaid = t.TotalPrincipalPaid.Add(s.TotalPrincipalPaid)
		t.TotalInterestPaid = t.TotalInterestPaid.Add(s.TotalInterestPaid)

		switch {
		case s.ProjectedPayoffDate == nil:
			t.UnprojectedAccounts++
		case t.LatestPayoffDate == nil || s.ProjectedPayoffDate.After(*t.LatestPayoffDate):
			d := *s.ProjectedPayoffDate
			t.LatestPayoffDate = &d
		}
	}
	t.PercentPaidOff = percentPaid(t.OriginalBalance, t.CurrentBalance)
	return t
}
