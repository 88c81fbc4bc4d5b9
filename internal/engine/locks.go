package engine

import "sync"

// LockTable hands out one mutex per order id. Fills, cancels and sweep
// transitions against the same order must hold the same lock: the overfill
// check reads executed quantity before writing, so interleaved appends could
// otherwise both pass the check and jointly overfill.
type LockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[string]*sync.Mutex)}
}

// Acquire returns the mutex for the given order id, creating it on first
// use. The caller locks and unlocks it.
func (t *LockTable) Acquire(orderID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.locks[orderID]
	if !ok {
		m = &sync.Mutex{}
		t.locks[orderID] = m
	}
	return m
}

// Forget drops the mutex for an order that was physically evicted.
func (t *LockTable) Forget(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.locks, orderID)
}
