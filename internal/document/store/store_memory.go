package store

import (
	"context"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"

	"docgov/internal/document/models"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

var (
	// ErrNotFound keeps store-specific 404s consistent across the in-memory
	// and Postgres implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "document not found")

	// ErrVersionConflict signals the optimistic check failed: the document
	// changed since it was read. Callers retry once with fresh state.
	ErrVersionConflict = dErrors.New(dErrors.CodeConflict, "document version conflict")
)

// InMemoryDocumentStore holds documents behind a RWMutex. Commit performs a
// compare-and-swap on the version so two concurrent transitions from the
// same pre-state cannot both apply.
type InMemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]models.ControlledDocument
}

func NewMemory() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		docs: make(map[id.DocumentID]models.ControlledDocument),
	}
}

func (s *InMemoryDocumentStore) Create(_ context.Context, doc models.ControlledDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "document %s already exists", doc.ID)
	}
	s.docs[doc.ID] = doc
	return nil
}

func (s *InMemoryDocumentStore) FindByID(_ context.Context, docID id.DocumentID) (models.ControlledDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.docs[docID]
	if !exists {
		return models.ControlledDocument{}, ErrNotFound
	}
	return doc, nil
}

// CommitState applies the post-transition state iff the stored version still
// equals expectedVersion.
func (s *InMemoryDocumentStore) CommitState(_ context.Context, docID id.DocumentID, expectedVersion int64, newState models.LifecycleState, newVersion int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.docs[docID]
	if !exists {
		return ErrNotFound
	}
	if doc.Version != expectedVersion {
		return ErrVersionConflict
	}
	doc.State = newState
	doc.Version = newVersion
	doc.UpdatedAt = at
	s.docs[docID] = doc
	return nil
}

// UpdateContent swaps the content digest of an editable document. Terminal
// states refuse content changes.
func (s *InMemoryDocumentStore) UpdateContent(_ context.Context, docID id.DocumentID, dgst digest.Digest, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.docs[docID]
	if !exists {
		return ErrNotFound
	}
	if doc.State.IsTerminal() {
		return dErrors.Newf(dErrors.CodeConflict, "document %s is %s; create a new version to edit content", docID, doc.State)
	}
	doc.ContentDigest = dgst
	doc.UpdatedAt = at
	s.docs[docID] = doc
	return nil
}

// Snapshot captures current contents and returns a restore function. The
// transactional runner uses this to roll back partial memory commits.
func (s *InMemoryDocumentStore) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := make(map[id.DocumentID]models.ControlledDocument, len(s.docs))
	for k, v := range s.docs {
		saved[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.docs = saved
	}
}
