package store

import (
	"context"
	"sync"

	"docgov/internal/policy/models"
	id "docgov/pkg/domain"
)

// InMemoryGrantStore keeps capability grants per actor. Suitable for tests
// and single-process deployments; the Postgres store is the durable option.
type InMemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[id.ActorID][]models.Grant
}

func NewMemory() *InMemoryGrantStore {
	return &InMemoryGrantStore{grants: make(map[id.ActorID][]models.Grant)}
}

func (s *InMemoryGrantStore) ListByActor(_ context.Context, actorID id.ActorID) ([]models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grants := s.grants[actorID]
	out := make([]models.Grant, len(grants))
	copy(out, grants)
	return out, nil
}

func (s *InMemoryGrantStore) Add(_ context.Context, grant models.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grants[grant.ActorID] = append(s.grants[grant.ActorID], grant)
	return nil
}

// RemoveByCapability drops all of an actor's grants for one capability.
func (s *InMemoryGrantStore) RemoveByCapability(_ context.Context, actorID id.ActorID, capability models.Capability) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.grants[actorID][:0]
	for _, g := range s.grants[actorID] {
		if g.Capability != capability {
			kept = append(kept, g)
		}
	}
	s.grants[actorID] = kept
	return nil
}
