package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payoff/internal/model"
)

// ChaseParser parses Chase checking CSV exports. Debits whose description
// matches a rule become mixed payments on that rule's account; every other
// row is ignored.
type ChaseParser struct {
	Rules []Rule
}

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV and returns the matched payments.
func (p *ChaseParser) Parse(r io.Reader) ([]Payment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var out []Payment
	for i, rec := range records[1:] {
		date, amount, err := parseChaseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if !amount.IsNegative() {
			continue
		}
		desc := rec[chaseColDesc]
		rule, ok := matchRule(p.Rules, desc)
		if !ok {
			continue
		}
		out = append(out, Payment{
			Row:       i + 2,
			AccountID: rule.AccountID,
			Date:      date,
			Amount:    amount.Neg(),
			Intent:    model.IntentMixed,
			Memo:      makeChaseRef(date, desc),
		})
	}
	return out, nil
}

func parseChaseRow(rec []string) (time.Time, decimal.Decimal, error) {
	date, err := time.Parse(chaseDateFormat, rec[chaseColDate])
	if err != nil {
		return time.Time{}, decimal.Zero, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], err)
	}

	amount, err := decimal.NewFromString(rec[chaseColAmount])
	if err != nil {
		return time.Time{}, decimal.Zero, fmt.Errorf("parsing amount %q: %w", rec[chaseColAmount], err)
	}
	return date, amount, nil
}

// makeChaseRef creates a reference like chase_20250103_ROCKETMORT.
func makeChaseRef(date time.Time, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s", date.Format("20060102"), prefix)
}
