package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payoff/internal/model"
)

// Header is the CSV header for debt-accounts.csv.
const Header = "account_id,name,original_balance,apr_rate,term_months,payment_type,fixed_monthly_payment,origination_date,current_balance,remaining_months,last_auto_update_date,auto_update"

const (
	numFields      = 12
	colID          = 0
	colName        = 1
	colOriginal    = 2
	colAPR         = 3
	colTerm        = 4
	colPaymentType = 5
	colFixedPay    = 6
	colOrigination = 7
	colBalance     = 8
	colRemaining   = 9
	colLastAuto    = 10
	colAutoUpdate  = 11
)

// ReadAccounts reads debt-accounts.csv.
func ReadAccounts(r io.Reader) ([]model.DebtAccount, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.DebtAccount
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes debt-accounts.csv (including header).
func WriteAccounts(w io.Writer, accounts []model.DebtAccount) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts a DebtAccount to a CSV row. Accounts without loan
// terms leave the term columns empty.
func MarshalAccount(acct model.DebtAccount) []string {
	row := make([]string, numFields)
	row[colID] = acct.ID.String()
	row[colName] = acct.Name

	if t := acct.Terms; t != nil {
		row[colOriginal] = t.OriginalBalance.StringFixed(2)
		row[colAPR] = t.APRRate.String()
		row[colTerm] = strconv.Itoa(t.TermMonths)
		row[colPaymentType] = string(t.PaymentType)
		if t.FixedMonthlyPayment.Valid {
			row[colFixedPay] = t.FixedMonthlyPayment.Decimal.StringFixed(2)
		}
		row[colOrigination] = t.OriginationDate.Format(model.DateFormat)
	}

	row[colBalance] = acct.State.CurrentBalance.StringFixed(2)
	row[colRemaining] = strconv.Itoa(acct.State.RemainingMonths)
	if acct.State.LastAutoUpdateDate != nil {
		row[colLastAuto] = acct.State.LastAutoUpdateDate.Format(model.DateFormat)
	}
	row[colAutoUpdate] = strconv.FormatBool(acct.AutoUpdate)
	return row
}

// UnmarshalAccount converts a CSV row to a DebtAccount.
func UnmarshalAccount(record []string) (model.DebtAccount, error) {
	if len(record) != numFields {
		return model.DebtAccount{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	id, err := uuid.Parse(record[colID])
	if err != nil {
		return model.DebtAccount{}, fmt.Errorf("parsing account_id %q: %w", record[colID], err)
	}

	acct := model.DebtAccount{ID: id, Name: record[colName]}

	if record[colPaymentType] != "" {
		terms, err := unmarshalTerms(record)
		if err != nil {
			return model.DebtAccount{}, err
		}
		acct.Terms = &terms
	}

	acct.State.CurrentBalance, err = decimal.NewFromString(record[colBalance])
	if err != nil {
		return model.DebtAccount{}, fmt.Errorf("parsing current_balance %q: %w", record[colBalance], err)
	}
	acct.State.RemainingMonths, err = strconv.Atoi(record[colRemaining])
	if err != nil {
		return model.DebtAccount{}, fmt.Errorf("parsing remaining_months %q: %w", record[colRemaining], err)
	}
	if record[colLastAuto] != "" {
		last, err := time.Parse(model.DateFormat, record[colLastAuto])
		if err != nil {
			return model.DebtAccount{}, fmt.Errorf("parsing last_auto_update_date %q: %w", record[colLastAuto], err)
		}
		acct.State.LastAutoUpdateDate = &last
	}
	if record[colAutoUpdate] != "" {
		acct.AutoUpdate, err = strconv.ParseBool(record[colAutoUpdate])
		if err != nil {
			return model.DebtAccount{}, fmt.Errorf("parsing auto_update %q: %w", record[colAutoUpdate], err)
		}
	}
	return acct, nil
}

func unmarshalTerms(record []string) (model.LoanTerms, error) {
	var terms model.LoanTerms
	var err error

	terms.OriginalBalance, err = decimal.NewFromString(record[colOriginal])
	if err != nil {
		return terms, fmt.Errorf("parsing original_balance %q: %w", record[colOriginal], err)
	}
	terms.APRRate, err = decimal.NewFromString(record[colAPR])
	if err != nil {
		return terms, fmt.Errorf("parsing apr_rate %q: %w", record[colAPR], err)
	}
	terms.TermMonths, err = strconv.Atoi(record[colTerm])
	if err != nil {
		return terms, fmt.Errorf("parsing term_months %q: %w", record[colTerm], err)
	}
	terms.PaymentType = model.PaymentType(record[colPaymentType])
	if record[colFixedPay] != "" {
		p, err := decimal.NewFromString(record[colFixedPay])
		if err != nil {
			return terms, fmt.Errorf("parsing fixed_monthly_payment %q: %w", record[colFixedPay], err)
		}
		terms.FixedMonthlyPayment = decimal.NewNullDecimal(p)
	}
	terms.OriginationDate, err = time.Parse(model.DateFormat, record[colOrigination])
	if err != nil {
		return terms, fmt.Errorf("parsing origination_date %q: %w", record[colOrigination], err)
	}
	return terms, nil
}
