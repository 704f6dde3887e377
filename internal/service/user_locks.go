package service

import "sync"

// UserLocks serializes operations on one user's collections. Bot handlers
// and scheduled jobs run on different goroutines, and every operation reads
// a whole collection before writing it back.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the user's lock is held and returns the release func.
// The lock is not reentrant.
func (l *UserLocks) Lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
