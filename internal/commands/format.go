package commands

import (
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payoff/internal/model"
)

type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer) *table {
	return &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (t *table) row(cols ...string) {
	io.WriteString(t.tw, strings.Join(cols, "\t")+"\n")
}

func (t *table) flush() error {
	return t.tw.Flush()
}

var hundred = decimal.NewFromInt(100)

// percent renders a fraction as a percentage: 0.035 -> "3.500%".
func percent(f decimal.Decimal) string {
	return f.Mul(hundred).StringFixed(3) + "%"
}

func paidOff(f decimal.Decimal) string {
	return f.Mul(hundred).StringFixed(2) + "%"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func optDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(model.DateFormat)
}
