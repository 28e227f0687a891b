package keylock

import "sync"

// KeyLock serializes access per string key. Used to guarantee at-most-one
// in-flight mutating operation per content item.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*entry)}
}

// Lock blocks until the lock for key is held.
func (k *KeyLock) Lock(key string) {
	k.acquire(key).mu.Lock()
}

// TryLock attempts to take the lock for key without blocking.
// Returns false if another holder is active.
func (k *KeyLock) TryLock(key string) bool {
	e := k.acquire(key)
	if e.mu.TryLock() {
		return true
	}
	k.release(key)
	return false
}

// Unlock releases the lock for key.
func (k *KeyLock) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Unlock()
	k.release(key)
}

func (k *KeyLock) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *KeyLock) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(k.locks, key)
	}
}
