package model

import (
	"fmt"
	"time"
)

// BillingPeriod is a half-open date range [Start, End).
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the calendar date of t falls inside the period.
func (p BillingPeriod) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(p.Start) && d.Before(p.End)
}

func (p BillingPeriod) String() string {
	return fmt.Sprintf("%s..%s", p.Start.Format(DateFormat), p.End.Format(DateFormat))
}

// PeriodFor returns the monthly billing period containing t. Periods start on
// cycleDay, which must be 1..28.
func PeriodFor(t time.Time, cycleDay int) (BillingPeriod, error) {
	if cycleDay < 1 || cycleDay > 28 {
		return BillingPeriod{}, ValidationError{Field: "cycle_day", Description: fmt.Sprintf("must be 1..28, got %d", cycleDay)}
	}
	d := Day(t)
	start := Date(d.Year(), d.Month(), cycleDay)
	if d.Day() < cycleDay {
		start = start.AddDate(0, -1, 0)
	}
	return BillingPeriod{Start: start, End: start.AddDate(0, 1, 0)}, nil
}
