package rules

import "sync"

// userLocks serializes rule execution per user so concurrent triggers for the
// same user cannot interleave cooldown checks and awards. Entries are never
// reclaimed; the user population is bounded.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (u *userLocks) lock(key string) func() {
	u.mu.Lock()
	m, ok := u.locks[key]
	if !ok {
		m = &sync.Mutex{}
		u.locks[key] = m
	}
	u.mu.Unlock()

	m.Lock()
	return m.Unlock
}
