package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory mirror of RedisStore for tests and single
// instance development runs.
type MemoryStore struct {
	mu      sync.Mutex
	nonces  map[string]time.Time
	revoked map[string]time.Time
	windows map[string]*rateWindow
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nonces:  make(map[string]time.Time),
		revoked: make(map[string]time.Time),
		windows: make(map[string]*rateWindow),
	}
}

// Issue records a nonce with its expiry instant.
func (s *MemoryStore) Issue(ctx context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nonces[nonce] = time.Now().Add(ttl)
	return nil
}

// Consume removes a nonce under the lock, so concurrent consumers of the
// same nonce cannot both succeed.
func (s *MemoryStore) Consume(ctx context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.nonces[nonce]
	if !ok {
		return false, nil
	}
	delete(s.nonces, nonce)

	if time.Now().After(expiry) {
		return false, nil
	}
	return true, nil
}

// Revoke marks a session token id as signed out.
func (s *MemoryStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[tokenID] = time.Now().Add(ttl)
	return nil
}

// IsRevoked checks whether a session token id has been signed out.
func (s *MemoryStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

// Allow implements the same fixed-window counter as the Redis adapter:
// the first hit on a key opens a window, every hit inside it counts
// against the budget, and the counter resets only when the window rolls
// over. Requests spaced inside one window cannot exceed the budget.
func (s *MemoryStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		for k, win := range s.windows {
			if !now.Before(win.resetAt) {
				delete(s.windows, k)
			}
		}
		w = &rateWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++

	return w.count <= limit, nil
}
