package payments

import (
	"sync"

	"github.com/google/uuid"
)

// accountLocks hands out one mutex per account ID.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// lock blocks until the account's mutex is held and returns its release.
func (l *accountLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
