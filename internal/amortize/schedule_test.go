package amortize

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/payoff/internal/model"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func fixed(balance, apr string, months int) model.LoanTerms {
	return model.LoanTerms{
		OriginalBalance: dec(balance),
		APRRate:         dec(apr),
		TermMonths:      months,
		PaymentType:     model.PaymentTypeFixed,
		OriginationDate: model.Date(2025, 1, 15),
	}
}

func TestMonthlyPayment_ClosedForm(t *testing.T) {
	p, err := MonthlyPayment(fixed("250000.00", "0.035", 300))
	require.NoError(t, err)
	assert.Equal(t, "1251.56", p.StringFixed(2))

	p, err = MonthlyPayment(fixed("1000.00", "0.12", 3))
	require.NoError(t, err)
	assert.Equal(t, "340.02", p.StringFixed(2))
}

func TestMonthlyPayment_Supplied(t *testing.T) {
	terms := fixed("250000.00", "0.035", 300)
	terms.FixedMonthlyPayment = decimal.NewNullDecimal(dec("1249.25"))
	p, err := MonthlyPayment(terms)
	require.NoError(t, err)
	assert.Equal(t, "1249.25", p.StringFixed(2))
}

func TestGenerateSchedule_Mortgage(t *testing.T) {
	terms := fixed("250000.00", "0.035", 300)
	schedule, err := GenerateSchedule(terms)
	require.NoError(t, err)
	require.Len(t, schedule, 300)

	first := schedule[0]
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, model.Date(2025, 2, 15), first.DueDate)
	assert.Equal(t, "729.17", first.InterestPayment.StringFixed(2))
	assert.Equal(t, "522.39", first.PrincipalPayment.StringFixed(2))
	assert.Equal(t, "1251.56", first.TotalPayment.StringFixed(2))
	assert.Equal(t, "249477.61", first.RemainingBalanceAfter.StringFixed(2))

	last := schedule[299]
	assert.Equal(t, 300, last.Index)
	assert.True(t, last.RemainingBalanceAfter.IsZero())
	assert.Equal(t, "1247.40", last.PrincipalPayment.StringFixed(2))

	totals := Totals(schedule)
	assert.True(t, totals.Principal.Equal(terms.OriginalBalance), "principal sums to %s", totals.Principal)
	assert.Equal(t, "125467.48", totals.Interest.StringFixed(2))
}

func TestGenerateSchedule_SuppliedPayment(t *testing.T) {
	terms := fixed("250000.00", "0.035", 300)
	terms.FixedMonthlyPayment = decimal.NewNullDecimal(dec("1249.25"))
	schedule, err := GenerateSchedule(terms)
	require.NoError(t, err)

	first := schedule[0]
	assert.Equal(t, "729.17", first.InterestPayment.StringFixed(2))
	assert.Equal(t, "520.08", first.PrincipalPayment.StringFixed(2))
	assert.Equal(t, "249479.92", first.RemainingBalanceAfter.StringFixed(2))

	// The shortfall against the closed-form payment lands in the last period.
	last := schedule[len(schedule)-1]
	assert.True(t, last.RemainingBalanceAfter.IsZero())
	assert.True(t, last.PrincipalPayment.GreaterThan(dec("1249.25")))
	assert.True(t, Totals(schedule).Principal.Equal(terms.OriginalBalance))
}

func TestGenerateSchedule_ShortLoan(t *testing.T) {
	schedule, err := GenerateSchedule(fixed("1000.00", "0.12", 3))
	require.NoError(t, err)
	require.Len(t, schedule, 3)

	want := []struct{ interest, principal, total, remaining string }{
		{"10.00", "330.02", "340.02", "669.98"},
		{"6.70", "333.32", "340.02", "336.66"},
		{"3.37", "336.66", "340.03", "0.00"},
	}
	for i, w := range want {
		p := schedule[i]
		assert.Equal(t, w.interest, p.InterestPayment.StringFixed(2), "period %d interest", i+1)
		assert.Equal(t, w.principal, p.PrincipalPayment.StringFixed(2), "period %d principal", i+1)
		assert.Equal(t, w.total, p.TotalPayment.StringFixed(2), "period %d total", i+1)
		assert.Equal(t, w.remaining, p.RemainingBalanceAfter.StringFixed(2), "period %d remaining", i+1)
	}
}

func TestGenerateSchedule_InterestMatchesBalance(t *testing.T) {
	for _, terms := range []model.LoanTerms{
		fixed("250000.00", "0.035", 300),
		fixed("18500.00", "0.0699", 60),
		fixed("3200.50", "0.2499", 24),
		fixed("999999.99", "0.0725", 360),
	} {
		schedule, err := GenerateSchedule(terms)
		require.NoError(t, err)
		require.Len(t, schedule, terms.TermMonths)

		rate := PeriodicRate(terms.APRRate)
		balance := terms.OriginalBalance
		sum := decimal.Zero
		for _, p := range schedule {
			assert.True(t, p.InterestPayment.Equal(balance.Mul(rate).Round(2)), "period %d", p.Index)
			assert.True(t, p.TotalPayment.Equal(p.PrincipalPayment.Add(p.InterestPayment)))
			balance = p.RemainingBalanceAfter
			sum = sum.Add(p.PrincipalPayment)
		}
		assert.True(t, schedule[len(schedule)-1].RemainingBalanceAfter.IsZero())
		assert.True(t, sum.Equal(terms.OriginalBalance), "principal %s != %s", sum, terms.OriginalBalance)
	}
}

func TestGenerateSchedule_ZeroRate(t *testing.T) {
	terms := fixed("1000.00", "0", 3)
	payment, err := MonthlyPayment(terms)
	require.NoError(t, err)
	assert.Equal(t, "333.33", payment.StringFixed(2))

	schedule, err := GenerateSchedule(terms)
	require.NoError(t, err)
	for _, p := range schedule {
		assert.True(t, p.InterestPayment.IsZero())
	}
	assert.Equal(t, "333.33", schedule[0].PrincipalPayment.StringFixed(2))
	assert.Equal(t, "333.34", schedule[2].PrincipalPayment.StringFixed(2))
	assert.True(t, schedule[2].RemainingBalanceAfter.IsZero())
}

func TestGenerateSchedule_InterestOnly(t *testing.T) {
	terms := fixed("120000.00", "0.06", 12)
	terms.PaymentType = model.PaymentTypeInterestOnly

	schedule, err := GenerateSchedule(terms)
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	for _, p := range schedule[:11] {
		assert.True(t, p.PrincipalPayment.IsZero(), "period %d", p.Index)
		assert.Equal(t, "600.00", p.InterestPayment.StringFixed(2))
		assert.True(t, p.RemainingBalanceAfter.Equal(terms.OriginalBalance))
	}
	balloon := schedule[11]
	assert.True(t, balloon.PrincipalPayment.Equal(terms.OriginalBalance))
	assert.Equal(t, "120600.00", balloon.TotalPayment.StringFixed(2))
	assert.True(t, balloon.RemainingBalanceAfter.IsZero())
}

func TestGenerateSchedule_EarlyPayoffLeavesZeroRows(t *testing.T) {
	terms := fixed("1000.00", "0.12", 6)
	terms.FixedMonthlyPayment = decimal.NewNullDecimal(dec("600.00"))

	schedule, err := GenerateSchedule(terms)
	require.NoError(t, err)
	require.Len(t, schedule, 6)
	assert.Equal(t, 1, PayoffIndex(schedule))
	for _, p := range schedule[2:] {
		assert.True(t, p.TotalPayment.IsZero())
	}
	assert.True(t, Totals(schedule).Principal.Equal(terms.OriginalBalance))
}

func TestGenerateSchedule_DueDatesClampToMonthEnd(t *testing.T) {
	terms := fixed("1000.00", "0.05", 3)
	terms.OriginationDate = model.Date(2025, 1, 31)
	schedule, err := GenerateSchedule(terms)
	require.NoError(t, err)
	assert.Equal(t, model.Date(2025, 2, 28), schedule[0].DueDate)
	assert.Equal(t, model.Date(2025, 3, 31), schedule[1].DueDate)
	assert.Equal(t, model.Date(2025, 4, 30), schedule[2].DueDate)
}

func TestGenerateSchedule_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		terms model.LoanTerms
		field string
	}{
		{"zero term", fixed("1000.00", "0.05", 0), "term_months"},
		{"negative term", fixed("1000.00", "0.05", -12), "term_months"},
		{"negative balance", fixed("-1.00", "0.05", 12), "original_balance"},
		{"negative rate", fixed("1000.00", "-0.01", 12), "apr_rate"},
		{"unknown type", model.LoanTerms{OriginalBalance: dec("1"), TermMonths: 1, PaymentType: "balloon"}, "payment_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateSchedule(tt.terms)
			var verr model.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestGenerateSchedule_NegativeAmortization(t *testing.T) {
	terms := fixed("250000.00", "0.035", 300)
	terms.FixedMonthlyPayment = decimal.NewNullDecimal(dec("729.17"))

	_, err := GenerateSchedule(terms)
	var cerr model.ComputationError
	require.True(t, errors.As(err, &cerr), "got %v", err)
	assert.Contains(t, cerr.Error(), "729.17")
}

func TestGenerateSchedule_ZeroBalance(t *testing.T) {
	schedule, err := GenerateSchedule(fixed("0", "0.05", 2))
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	for _, p := range schedule {
		assert.True(t, p.TotalPayment.IsZero())
	}
}

func TestGenerateSchedule_Concurrent(t *testing.T) {
	terms := fixed("18500.00", "0.0699", 60)
	want, err := GenerateSchedule(terms)
	require.NoError(t, err)

	done := make(chan []model.ScheduledPayment)
	for i := 0; i < 8; i++ {
		go func() {
			s, _ := GenerateSchedule(terms)
			done <- s
		}()
	}
	timeout := time.After(5 * time.Second)
	for i := 0; i < 8; i++ {
		select {
		case got := <-done:
			assert.Equal(t, want, got)
		case <-timeout:
			t.Fatal("timed out")
		}
	}
}
