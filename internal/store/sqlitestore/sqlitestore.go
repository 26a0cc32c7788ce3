// Package sqlitestore keeps debt accounts and ledgers in a SQLite database.
// Money and rates are stored as decimal TEXT; dates as YYYY-MM-DD.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payoff/internal/journal"
	"github.com/cleared-dev/payoff/internal/model"

	_ "modernc.org/sqlite"
)

const accountColumns = `id, name, original_balance, apr_rate, term_months, payment_type,
	fixed_monthly_payment, origination_date, current_balance, remaining_months,
	last_auto_update_date, auto_update`

const entryColumns = `id, account_id, date, total_amount, principal_portion,
	interest_portion, resulting_balance, kind, intent, memo`

// Store is a SQLite-backed store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection keeps Commit from
	// hitting SQLITE_BUSY under concurrent payments.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetAccount returns one account or model.ErrAccountNotFound.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (model.DebtAccount, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM debt_accounts WHERE id = ?`, id.String())
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DebtAccount{}, model.ErrAccountNotFound
	}
	if err != nil {
		return model.DebtAccount{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return acct, nil
}

// ListAccounts returns every account in creation order.
func (s *Store) ListAccounts(ctx context.Context) ([]model.DebtAccount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM debt_accounts ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []model.DebtAccount
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

// CreateAccount inserts a new account.
func (s *Store) CreateAccount(ctx context.Context, acct model.DebtAccount) error {
	var (
		original, apr, fixed, origination sql.NullString
		term                              sql.NullInt64
		paymentType                       sql.NullString
	)
	if t := acct.Terms; t != nil {
		original = nullString(t.OriginalBalance.StringFixed(2))
		apr = nullString(t.APRRate.String())
		term = sql.NullInt64{Int64: int64(t.TermMonths), Valid: true}
		paymentType = nullString(string(t.PaymentType))
		if t.FixedMonthlyPayment.Valid {
			fixed = nullString(t.FixedMonthlyPayment.Decimal.StringFixed(2))
		}
		origination = nullString(t.OriginationDate.Format(model.DateFormat))
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO debt_accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acct.ID.String(), acct.Name, original, apr, term, paymentType, fixed, origination,
		acct.State.CurrentBalance.StringFixed(2), acct.State.RemainingMonths,
		dateOrNull(acct.State.LastAutoUpdateDate), acct.AutoUpdate,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("account %s already exists", acct.ID)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Entries returns an account's ledger in append order.
func (s *Store) Entries(ctx context.Context, id uuid.UUID) ([]model.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE account_id = ? ORDER BY seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Commit updates the account's state and appends the entry in one
// transaction. The update only matches while the stored state equals prev;
// otherwise it returns model.ErrStateConflict.
func (s *Store) Commit(ctx context.Context, id uuid.UUID, prev, next model.LoanState, entry model.LedgerEntry) error {
	if verrs := journal.ValidateEntries([]model.LedgerEntry{entry}, id); len(verrs) > 0 {
		return fmt.Errorf("validation failed: %w", verrs[0])
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE debt_accounts
		SET current_balance = ?, remaining_months = ?, last_auto_update_date = ?
		WHERE id = ? AND current_balance = ? AND remaining_months = ? AND last_auto_update_date IS ?`,
		next.CurrentBalance.StringFixed(2), next.RemainingMonths, dateOrNull(next.LastAutoUpdateDate),
		id.String(), prev.CurrentBalance.StringFixed(2), prev.RemainingMonths, dateOrNull(prev.LastAutoUpdateDate))
	if err != nil {
		return fmt.Errorf("update account state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account state: %w", err)
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM debt_accounts WHERE id = ?`, id.String()).Scan(&exists)
		if err != nil {
			return fmt.Errorf("update account state: %w", err)
		}
		if exists == 0 {
			return model.ErrAccountNotFound
		}
		return model.ErrStateConflict
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(), entry.AccountID.String(), entry.Date.Format(model.DateFormat),
		entry.TotalAmount.StringFixed(2), entry.PrincipalPortion.StringFixed(2),
		entry.InterestPortion.StringFixed(2), entry.ResultingBalance.StringFixed(2),
		string(entry.Kind), string(entry.Intent), entry.Memo,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (model.DebtAccount, error) {
	var (
		id, name                           string
		original, apr, fixed               decimal.NullDecimal
		term                               sql.NullInt64
		paymentType, origination, lastAuto sql.NullString
		balance                            decimal.Decimal
		remaining                          int
		autoUpdate                         bool
	)
	if err := row.Scan(&id, &name, &original, &apr, &term, &paymentType, &fixed, &origination,
		&balance, &remaining, &lastAuto, &autoUpdate); err != nil {
		return model.DebtAccount{}, err
	}

	acctID, err := uuid.Parse(id)
	if err != nil {
		return model.DebtAccount{}, fmt.Errorf("parsing id %q: %w", id, err)
	}
	acct := model.DebtAccount{
		ID:         acctID,
		Name:       name,
		AutoUpdate: autoUpdate,
		State: model.LoanState{
			CurrentBalance:  balance,
			RemainingMonths: remaining,
		},
	}

	if paymentType.Valid {
		orig, err := time.Parse(model.DateFormat, origination.String)
		if err != nil {
			return model.DebtAccount{}, fmt.Errorf("parsing origination_date %q: %w", origination.String, err)
		}
		acct.Terms = &model.LoanTerms{
			OriginalBalance:     original.Decimal,
			APRRate:             apr.Decimal,
			TermMonths:          int(term.Int64),
			PaymentType:         model.PaymentType(paymentType.String),
			FixedMonthlyPayment: fixed,
			OriginationDate:     orig,
		}
	}

	if lastAuto.Valid {
		last, err := time.Parse(model.DateFormat, lastAuto.String)
		if err != nil {
			return model.DebtAccount{}, fmt.Errorf("parsing last_auto_update_date %q: %w", lastAuto.String, err)
		}
		acct.State.LastAutoUpdateDate = &last
	}
	return acct, nil
}

func scanEntry(row scanner) (model.LedgerEntry, error) {
	var (
		id, accountID, date, kind, intent, memo string
		e                                       model.LedgerEntry
	)
	if err := row.Scan(&id, &accountID, &date, &e.TotalAmount, &e.PrincipalPortion,
		&e.InterestPortion, &e.ResultingBalance, &kind, &intent, &memo); err != nil {
		return model.LedgerEntry{}, err
	}

	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing id %q: %w", id, err)
	}
	if e.AccountID, err = uuid.Parse(accountID); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing account_id %q: %w", accountID, err)
	}
	if e.Date, err = time.Parse(model.DateFormat, date); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	e.Kind = model.EntryKind(kind)
	e.Intent = model.PaymentIntent(intent)
	e.Memo = memo
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func dateOrNull(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return nullString(t.Format(model.DateFormat))
}
