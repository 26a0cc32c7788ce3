package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the minor-unit precision of every money amount.
const MoneyPlaces = 2

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// RoundMoney rounds d half away from zero to whole cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ParseMoney parses a money amount. More than two decimal places is an error.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if !d.Equal(RoundMoney(d)) {
		return decimal.Zero, fmt.Errorf("amount %s has more than %d decimal places", s, MoneyPlaces)
	}
	return d, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// Date returns the calendar date y-m-d at UTC midnight.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day truncates t to its calendar date.
func Day(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// AddMonths moves a date n months forward, clamping the day to the end of
// the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	first := Date(t.Year(), t.Month(), 1).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return Date(first.Year(), first.Month(), day)
}
