// Package activity keeps logs/activity-log.csv, an append-only record of
// every change made to a project through the CLI.
package activity

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is one row in the activity log.
type Entry struct {
	Timestamp time.Time
	Command   string
	Action    string
	AccountID uuid.UUID // uuid.Nil for project-wide actions
	Amount    decimal.NullDecimal
	Details   string
}

// Header is the CSV header for activity-log.csv.
const Header = "timestamp,command,action,account_id,amount,details"

const (
	numFields    = 6
	logDir       = "logs"
	logFile      = "logs/activity-log.csv"
	colTimestamp = 0
	colCommand   = 1
	colAction    = 2
	colAccountID = 3
	colAmount    = 4
	colDetails   = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colCommand] = e.Command
	row[colAction] = e.Action
	if e.AccountID != uuid.Nil {
		row[colAccountID] = e.AccountID.String()
	}
	if e.Amount.Valid {
		row[colAmount] = e.Amount.Decimal.StringFixed(2)
	}
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	e := Entry{
		Timestamp: ts,
		Command:   record[colCommand],
		Action:    record[colAction],
		Details:   record[colDetails],
	}
	if s := record[colAccountID]; s != "" {
		if e.AccountID, err = uuid.Parse(s); err != nil {
			return Entry{}, fmt.Errorf("parsing account_id %q: %w", s, err)
		}
	}
	if s := record[colAmount]; s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Entry{}, fmt.Errorf("parsing amount %q: %w", s, err)
		}
		e.Amount = decimal.NewNullDecimal(d)
	}
	return e, nil
}

// Append writes entries to <repoRoot>/logs/activity-log.csv, creating the
// file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/activity-log.csv.
// Returns an empty slice if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	path := filepath.Join(repoRoot, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

// ForAccount filters entries down to one account, keeping order.
func ForAccount(entries []Entry, id uuid.UUID) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.AccountID == id {
			out = append(out, e)
		}
	}
	return out
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
