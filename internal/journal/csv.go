package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payoff/internal/model"
)

// Header is the CSV header for ledger/<account_id>.csv.
const Header = "entry_id,account_id,date,total_amount,principal_portion,interest_portion,resulting_balance,kind,intent,memo"

const (
	numFields    = 10
	colEntryID   = 0
	colAcctID    = 1
	colDate      = 2
	colTotal     = 3
	colPrincipal = 4
	colInterest  = 5
	colBalance   = 6
	colKind      = 7
	colIntent    = 8
	colMemo      = 9
)

// ReadEntries reads all entries from a ledger CSV reader.
func ReadEntries(r io.Reader) ([]model.LedgerEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var entries []model.LedgerEntry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteEntries writes entries to a ledger CSV writer (including header).
func WriteEntries(w io.Writer, entries []model.LedgerEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// AppendEntries appends entries to an existing ledger writer (no header).
func AppendEntries(w io.Writer, entries []model.LedgerEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return cw.Error()
}

// MarshalEntry converts a LedgerEntry to a CSV row.
func MarshalEntry(e model.LedgerEntry) []string {
	row := make([]string, numFields)
	row[colEntryID] = e.ID.String()
	row[colAcctID] = e.AccountID.String()
	row[colDate] = e.Date.Format(model.DateFormat)
	row[colTotal] = e.TotalAmount.StringFixed(2)
	row[colPrincipal] = e.PrincipalPortion.StringFixed(2)
	row[colInterest] = e.InterestPortion.StringFixed(2)
	row[colBalance] = e.ResultingBalance.StringFixed(2)
	row[colKind] = string(e.Kind)
	row[colIntent] = string(e.Intent)
	row[colMemo] = e.Memo
	return row
}

// UnmarshalEntry converts a CSV row to a LedgerEntry.
func UnmarshalEntry(record []string) (model.LedgerEntry, error) {
	if len(record) != numFields {
		return model.LedgerEntry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	entryID, err := uuid.Parse(record[colEntryID])
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing entry_id %q: %w", record[colEntryID], err)
	}
	acctID, err := uuid.Parse(record[colAcctID])
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing account_id %q: %w", record[colAcctID], err)
	}
	date, err := time.Parse(model.DateFormat, record[colDate])
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	amounts := make([]decimal.Decimal, 4)
	for i, col := range []int{colTotal, colPrincipal, colInterest, colBalance} {
		amounts[i], err = decimal.NewFromString(record[col])
		if err != nil {
			return model.LedgerEntry{}, fmt.Errorf("parsing %s %q: %w", columnName(col), record[col], err)
		}
	}

	return model.LedgerEntry{
		ID:               entryID,
		AccountID:        acctID,
		Date:             date,
		TotalAmount:      amounts[0],
		PrincipalPortion: amounts[1],
		InterestPortion:  amounts[2],
		ResultingBalance: amounts[3],
		Kind:             model.EntryKind(record[colKind]),
		Intent:           model.PaymentIntent(record[colIntent]),
		Memo:             record[colMemo],
	}, nil
}

func columnName(col int) string {
	return strings.Split(Header, ",")[col]
}
