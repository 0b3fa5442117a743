// Package revocation tracks revoked signing certificates. The list is an
// explicit, injected store rather than process-global state so verification
// stays testable and horizontally scalable. Revocation is a hard
// invalidation source: a revoked key fails verification from that moment
// on, no matter when the signature was produced.
package revocation

import (
	"context"
	"sync"
)

// Store answers whether a key id has been revoked.
type Store interface {
	Revoke(ctx context.Context, keyID string) error
	IsRevoked(ctx context.Context, keyID string) (bool, error)
}

// InMemoryRevocationStore is the single-process implementation.
type InMemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]bool
}

func NewMemory() *InMemoryRevocationStore {
	return &InMemoryRevocationStore{revoked: make(map[string]bool)}
}

func (s *InMemoryRevocationStore) Revoke(_ context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[keyID] = true
	return nil
}

func (s *InMemoryRevocationStore) IsRevoked(_ context.Context, keyID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revoked[keyID], nil
}
