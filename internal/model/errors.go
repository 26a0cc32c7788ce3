package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound is returned by stores for an unknown account ID.
	ErrAccountNotFound = errors.New("account not found")
	// ErrStateConflict is returned by stores when the persisted loan state
	// no longer matches the state a commit was computed from.
	ErrStateConflict = errors.New("account state changed since it was read")
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Description)
}

// ComputationError reports loan terms that cannot amortize.
type ComputationError struct {
	Description string
}

func (e ComputationError) Error() string {
	return "cannot amortize: " + e.Description
}

// NotFoundError reports an unknown account or one that is not a debt instrument.
type NotFoundError struct {
	AccountID   uuid.UUID
	Description string
}

func (e NotFoundError) Error() string {
	if e.AccountID == uuid.Nil {
		return "account not found: " + e.Description
	}
	return fmt.Sprintf("account %s: %s", e.AccountID, e.Description)
}

// StateError reports an operation the account's current state does not allow.
type StateError struct {
	AccountID   uuid.UUID
	Description string
}

func (e StateError) Error() string {
	return fmt.Sprintf("account %s: %s", e.AccountID, e.Description)
}
