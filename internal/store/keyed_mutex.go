package store

import "sync"

// keyedMutex hands out one *sync.Mutex per key, lazily allocated and
// reference-counted so a session's lock is freed once nobody holds it.
// Grounded on the Hub's single mutex guarding its whole client map; this
// generalizes that to one lock per session code instead of one lock for
// every session, so unrelated sessions never contend with each other.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
}

// Unlock releases the mutex for key, freeing it once no one else is
// waiting on it.
func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		return
	}
	m.refs--
	if m.refs <= 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	m.Unlock()
}
