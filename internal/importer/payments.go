package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/cleared-dev/payoff/internal/model"
	"github.com/cleared-dev/payoff/internal/payments"
)

// PaymentsHeader is the header of the native payments import format.
const PaymentsHeader = "date,account_id,amount,intent,principal,interest,memo"

const (
	payNumFields    = 7
	payColDate      = 0
	payColAcctID    = 1
	payColAmount    = 2
	payColIntent    = 3
	payColPrincipal = 4
	payColInterest  = 5
	payColMemo      = 6
)

// PaymentsParser parses the native payments format. principal and interest
// are optional but must be given together.
type PaymentsParser struct{}

// Format returns the parser name.
func (p *PaymentsParser) Format() string { return "payments" }

// Parse reads a payments CSV.
func (p *PaymentsParser) Parse(r io.Reader) ([]Payment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = payNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading payments CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	if got := strings.Join(records[0], ","); got != PaymentsHeader {
		return nil, fmt.Errorf("unexpected header %q", got)
	}

	var out []Payment
	for i, rec := range records[1:] {
		pay, err := parsePaymentRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		pay.Row = i + 2
		out = append(out, pay)
	}
	return out, nil
}

func parsePaymentRow(rec []string) (Payment, error) {
	date, err := model.ParseDate(rec[payColDate])
	if err != nil {
		return Payment{}, err
	}
	id, err := uuid.Parse(rec[payColAcctID])
	if err != nil {
		return Payment{}, fmt.Errorf("parsing account_id %q: %w", rec[payColAcctID], err)
	}
	amount, err := model.ParseMoney(rec[payColAmount])
	if err != nil {
		return Payment{}, err
	}
	intent, err := model.ParseIntent(strings.TrimSpace(rec[payColIntent]))
	if err != nil {
		return Payment{}, err
	}

	pay := Payment{
		AccountID: id,
		Date:      date,
		Amount:    amount,
		Intent:    intent,
		Memo:      rec[payColMemo],
	}

	principal, interest := rec[payColPrincipal], rec[payColInterest]
	switch {
	case principal == "" && interest == "":
	case principal == "" || interest == "":
		return Payment{}, fmt.Errorf("principal and interest must be given together")
	default:
		var split payments.Split
		if split.Principal, err = model.ParseMoney(principal); err != nil {
			return Payment{}, fmt.Errorf("parsing principal: %w", err)
		}
		if split.Interest, err = model.ParseMoney(interest); err != nil {
			return Payment{}, fmt.Errorf("parsing interest: %w", err)
		}
		if !split.Principal.Add(split.Interest).Equal(amount) {
			return Payment{}, fmt.Errorf("principal %s + interest %s != amount %s", principal, interest, amount.StringFixed(2))
		}
		pay.Split = &split
	}
	return pay, nil
}
