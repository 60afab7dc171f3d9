package keylock

import (
	"sync"
)

// KeyLock serializes work per key while letting different keys proceed
// concurrently. Entries are reference counted and removed once the last
// holder or waiter releases, so the map never grows beyond the number of
// keys with in-flight work.
type KeyLock struct {
	mu      sync.Mutex
	entries map[uint]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyLock {
	return &KeyLock{
		entries: make(map[uint]*entry),
	}
}

// Lock blocks until the caller holds the exclusive lock for key
func (k *KeyLock) Lock(key uint) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for key. Must pair with a previous Lock.
func (k *KeyLock) Unlock(key uint) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("keylock: unlock of unheld key")
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// Len reports how many keys currently have holders or waiters
func (k *KeyLock) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
