package accounts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/cleared-dev/payoff/internal/model"
)

// File is the registry's path relative to a project root.
const File = "accounts/debt-accounts.csv"

// Registry is an in-memory, ordered view of debt-accounts.csv. It is not
// safe for concurrent use; callers serialize access.
type Registry struct {
	accounts []model.DebtAccount
	byID     map[uuid.UUID]int
}

// NewRegistry creates a Registry from a slice of accounts.
func NewRegistry(accounts []model.DebtAccount) *Registry {
	r := &Registry{byID: make(map[uuid.UUID]int, len(accounts))}
	for _, a := range accounts {
		r.accounts = append(r.accounts, a)
		r.byID[a.ID] = len(r.accounts) - 1
	}
	return r
}

// Load reads debt-accounts.csv from a project root. A missing file is an
// empty registry.
func Load(root string) (*Registry, error) {
	f, err := os.Open(filepath.Join(root, File))
	if errors.Is(err, fs.ErrNotExist) {
		return NewRegistry(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening debt accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading debt accounts: %w", err)
	}
	return NewRegistry(accts), nil
}

// All returns all accounts in file order.
func (r *Registry) All() []model.DebtAccount {
	return append([]model.DebtAccount(nil), r.accounts...)
}

// Get returns an account by ID.
func (r *Registry) Get(id uuid.UUID) (model.DebtAccount, bool) {
	i, ok := r.byID[id]
	if !ok {
		return model.DebtAccount{}, false
	}
	return r.accounts[i], true
}

// Add appends a new account. Duplicate IDs are rejected.
func (r *Registry) Add(acct model.DebtAccount) error {
	if _, ok := r.byID[acct.ID]; ok {
		return fmt.Errorf("account %s already exists", acct.ID)
	}
	r.accounts = append(r.accounts, acct)
	r.byID[acct.ID] = len(r.accounts) - 1
	return nil
}

// SetState replaces an account's loan state.
func (r *Registry) SetState(id uuid.UUID, state model.LoanState) error {
	i, ok := r.byID[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	r.accounts[i].State = state
	return nil
}

// Save writes the registry to accounts/debt-accounts.csv, replacing the
// file atomically.
func (r *Registry) Save(root string) error {
	path := filepath.Join(root, File)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".debt-accounts-*.csv")
	if err != nil {
		return fmt.Errorf("creating debt accounts file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteAccounts(tmp, r.accounts); err != nil {
		tmp.Close()
		return fmt.Errorf("writing debt accounts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing debt accounts file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing debt accounts file: %w", err)
	}
	return nil
}
