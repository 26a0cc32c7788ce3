// Package journal is the append-only, per-account payment ledger stored as
// ledger/<account_id>.csv under a project root.
package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cleared-dev/payoff/internal/model"
)

// Dir is the ledger directory relative to a project root.
const Dir = "ledger"

// Service reads and appends ledger files.
type Service struct {
	repoRoot string
}

// NewService creates a journal Service.
func NewService(repoRoot string) *Service {
	return &Service{repoRoot: repoRoot}
}

// Append validates the entry together with the account's existing history
// and appends it to the account's ledger file.
func (s *Service) Append(entry model.LedgerEntry) error {
	existing, err := s.Read(entry.AccountID)
	if err != nil {
		return err
	}

	// Validate ALL entries together.
	all := append(existing, entry)
	if verrs := ValidateEntries(all, entry.AccountID); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Error()
		}
		return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
	}

	path := s.path(entry.AccountID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	if err := AppendEntries(f, []model.LedgerEntry{entry}); err != nil {
		return fmt.Errorf("appending entry: %w", err)
	}
	return f.Sync()
}

// Read returns an account's entries in append order. An account with no
// ledger file has no entries.
func (s *Service) Read(accountID uuid.UUID) ([]model.LedgerEntry, error) {
	path := s.path(accountID)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ReadEntries(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	return entries, nil
}

// Truncate rewrites an account's ledger with only its first n entries. It
// backs out an append whose account-state write failed.
func (s *Service) Truncate(accountID uuid.UUID, n int) error {
	entries, err := s.Read(accountID)
	if err != nil {
		return err
	}
	if n >= len(entries) {
		return nil
	}

	f, err := os.Create(s.path(accountID))
	if err != nil {
		return fmt.Errorf("rewriting ledger: %w", err)
	}
	defer f.Close()

	if err := WriteEntries(f, entries[:n]); err != nil {
		return fmt.Errorf("rewriting ledger: %w", err)
	}
	return nil
}

func (s *Service) path(accountID uuid.UUID) string {
	return filepath.Join(s.repoRoot, Dir, accountID.String()+".csv")
}
