package store

import (
	"context"
	"sync"

	"docgov/internal/signature"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

// ErrNotFound is returned when no signature record exists for an id.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "signature record not found")

// InMemorySignatureStore keeps signature records by id. Records are
// write-once; Save rejects duplicates.
type InMemorySignatureStore struct {
	mu      sync.RWMutex
	records map[id.SignatureID]signature.SignatureRecord
}

func NewMemory() *InMemorySignatureStore {
	return &InMemorySignatureStore{records: make(map[id.SignatureID]signature.SignatureRecord)}
}

func (s *InMemorySignatureStore) Save(_ context.Context, rec signature.SignatureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "signature %s already exists", rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *InMemorySignatureStore) FindByID(_ context.Context, sigID id.SignatureID) (signature.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[sigID]
	if !exists {
		return signature.SignatureRecord{}, ErrNotFound
	}
	return rec, nil
}

// Snapshot captures current contents and returns a restore function, so a
// failed transition commit also rolls back the signature write.
func (s *InMemorySignatureStore) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := make(map[id.SignatureID]signature.SignatureRecord, len(s.records))
	for k, v := range s.records {
		saved[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.records = saved
	}
}
