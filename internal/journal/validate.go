package journal

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payoff/internal/model"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant   int
	EntryID     string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.EntryID, e.Description)
}

// ValidateEntries enforces 5 invariants on one account's ledger.
func ValidateEntries(entries []model.LedgerEntry, accountID uuid.UUID) []ValidationError {
	var errs []ValidationError
	seen := make(map[uuid.UUID]bool, len(entries))

	for _, e := range entries {
		id := e.ID.String()

		// Invariant 1: Portions add up to the total. Only the payment that
		// clears the balance may carry an unapplied remainder.
		switch unapplied := e.Unapplied(); {
		case unapplied.IsNegative():
			errs = append(errs, ValidationError{
				Invariant: 1,
				EntryID:   id,
				Description: fmt.Sprintf("principal (%s) + interest (%s) > total (%s)",
					e.PrincipalPortion.StringFixed(2), e.InterestPortion.StringFixed(2), e.TotalAmount.StringFixed(2)),
			})
		case unapplied.IsPositive() && !e.ResultingBalance.IsZero():
			errs = append(errs, ValidationError{
				Invariant: 1,
				EntryID:   id,
				Description: fmt.Sprintf("%s unapplied while balance %s remains",
					unapplied.StringFixed(2), e.ResultingBalance.StringFixed(2)),
			})
		}

		// Invariant 2: Known kind, and payments carry an intent.
		if !e.Kind.Valid() {
			errs = append(errs, ValidationError{Invariant: 2, EntryID: id, Description: fmt.Sprintf("unknown kind %q", e.Kind)})
		} else if e.Kind != model.KindAutoUpdate && e.Intent == "" {
			errs = append(errs, ValidationError{Invariant: 2, EntryID: id, Description: "payment entry has no intent"})
		}

		// Invariant 3: Entry belongs to this ledger's account.
		if e.AccountID != accountID {
			errs = append(errs, ValidationError{
				Invariant:   3,
				EntryID:     id,
				Description: fmt.Sprintf("account %s in ledger for %s", e.AccountID, accountID),
			})
		}

		// Invariant 4: Exact non-negative cents.
		for _, f := range []struct {
			name string
			v    decimal.Decimal
		}{
			{"total", e.TotalAmount},
			{"principal", e.PrincipalPortion},
			{"interest", e.InterestPortion},
			{"resulting balance", e.ResultingBalance},
		} {
			if f.v.IsNegative() {
				errs = append(errs, ValidationError{Invariant: 4, EntryID: id, Description: fmt.Sprintf("%s %s is negative", f.name, f.v)})
			}
			if !f.v.Equal(model.RoundMoney(f.v)) {
				errs = append(errs, ValidationError{Invariant: 4, EntryID: id, Description: fmt.Sprintf("%s %s has more than 2 decimal places", f.name, f.v)})
			}
		}

		// Invariant 5: Unique entry IDs.
		if seen[e.ID] {
			errs = append(errs, ValidationError{Invariant: 5, EntryID: id, Description: "duplicate entry ID"})
		}
		seen[e.ID] = true
	}

	return errs
}
