package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMonths(t *testing.T) {
	tests := []struct {
		from time.Time
		n    int
		want time.Time
	}{
		{Date(2025, 1, 15), 1, Date(2025, 2, 15)},
		{Date(2025, 1, 31), 1, Date(2025, 2, 28)},
		{Date(2024, 1, 31), 1, Date(2024, 2, 29)},
		{Date(2025, 1, 31), 3, Date(2025, 4, 30)},
		{Date(2025, 11, 30), 2, Date(2026, 1, 30)},
		{Date(2025, 3, 31), 12, Date(2026, 3, 31)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AddMonths(tt.from, tt.n), "AddMonths(%s, %d)", tt.from.Format(DateFormat), tt.n)
	}
}

func TestPeriodFor(t *testing.T) {
	p, err := PeriodFor(Date(2025, 3, 20), 1)
	require.NoError(t, err)
	assert.Equal(t, Date(2025, 3, 1), p.Start)
	assert.Equal(t, Date(2025, 4, 1), p.End)

	p, err = PeriodFor(Date(2025, 3, 10), 15)
	require.NoError(t, err)
	assert.Equal(t, Date(2025, 2, 15), p.Start)
	assert.Equal(t, Date(2025, 3, 15), p.End)

	p, err = PeriodFor(Date(2025, 1, 5), 15)
	require.NoError(t, err)
	assert.Equal(t, Date(2024, 12, 15), p.Start)
}

func TestPeriodFor_InvalidCycleDay(t *testing.T) {
	_, err := PeriodFor(Date(2025, 3, 20), 31)
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "cycle_day", verr.Field)
}

func TestBillingPeriodContains(t *testing.T) {
	p := BillingPeriod{Start: Date(2025, 3, 1), End: Date(2025, 4, 1)}
	assert.True(t, p.Contains(Date(2025, 3, 1)))
	assert.True(t, p.Contains(time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(Date(2025, 4, 1)))
	assert.False(t, p.Contains(Date(2025, 2, 28)))
}

func TestParseMoney(t *testing.T) {
	d, err := ParseMoney(" 1249.25 ")
	require.NoError(t, err)
	assert.Equal(t, "1249.25", d.StringFixed(2))

	_, err = ParseMoney("12.345")
	require.Error(t, err)

	_, err = ParseMoney("abc")
	require.Error(t, err)
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		in      string
		want    PaymentIntent
		wantErr bool
	}{
		{"", IntentMixed, false},
		{"mixed", IntentMixed, false},
		{"principal", IntentPrincipal, false},
		{"interest", IntentInterest, false},
		{"escrow", "", true},
	}
	for _, tt := range tests {
		got, err := ParseIntent(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseIntent(%q)", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestLoanStateEqual(t *testing.T) {
	feb, feb2 := Date(2025, 2, 1), Date(2025, 2, 1)
	mar := Date(2025, 3, 1)
	base := LoanState{CurrentBalance: decimal.RequireFromString("100.00"), RemainingMonths: 3, LastAutoUpdateDate: &feb}

	same := base
	same.CurrentBalance = decimal.RequireFromString("100")
	same.LastAutoUpdateDate = &feb2
	assert.True(t, base.Equal(same))

	moved := base
	moved.LastAutoUpdateDate = &mar
	assert.False(t, base.Equal(moved))

	unstamped := base
	unstamped.LastAutoUpdateDate = nil
	assert.False(t, base.Equal(unstamped))
	assert.True(t, unstamped.Equal(LoanState{CurrentBalance: decimal.RequireFromString("100.00"), RemainingMonths: 3}))

	fewer := base
	fewer.RemainingMonths = 2
	assert.False(t, base.Equal(fewer))
}
