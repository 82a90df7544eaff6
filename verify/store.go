package verify

import "sync"

// Store keeps live challenges keyed by target. Implementations must make
// each method atomic per key; DeleteMatching is the compare-and-delete
// primitive Confirm relies on.
type Store interface {
	// Put stores ch, overwriting any existing challenge for the same target.
	Put(ch Challenge) error
	Get(target string) (Challenge, bool, error)
	Delete(target string) error
	// DeleteMatching removes the challenge only if its code equals code and
	// reports whether a row was removed.
	DeleteMatching(target, code string) (bool, error)
	// BumpAttempts increments the failed-attempt counter and returns the
	// new value.
	BumpAttempts(target string) (int, error)
}

// MemoryStore is a mutex-guarded in-process Store. Suitable for tests and
// single-instance deployments; production uses the database-backed store so
// challenges survive restarts and are shared across instances.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{challenges: make(map[string]Challenge)}
}

func (m *MemoryStore) Put(ch Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[ch.Target] = ch
	return nil
}

func (m *MemoryStore) Get(target string) (Challenge, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[target]
	return ch, ok, nil
}

func (m *MemoryStore) Delete(target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.challenges, target)
	return nil
}

func (m *MemoryStore) DeleteMatching(target, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[target]
	if !ok || ch.Code != code {
		return false, nil
	}
	delete(m.challenges, target)
	return true, nil
}

func (m *MemoryStore) BumpAttempts(target string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[target]
	if !ok {
		return 0, nil
	}
	ch.Attempts++
	m.challenges[target] = ch
	return ch.Attempts, nil
}
