package store

import (
	"context"
	"sync"

	id "docgov/pkg/domain"
)

// InMemoryReviewerDirectory tracks which actors are assigned to review
// which documents. Assignments feed the evaluator's contextual reviewer
// rule.
type InMemoryReviewerDirectory struct {
	mu       sync.RWMutex
	assigned map[id.DocumentID][]id.ActorID
}

func NewMemoryReviewerDirectory() *InMemoryReviewerDirectory {
	return &InMemoryReviewerDirectory{
		assigned: make(map[id.DocumentID][]id.ActorID),
	}
}

// Assign adds an actor as reviewer for a document. Assigning twice is a
// no-op.
func (d *InMemoryReviewerDirectory) Assign(_ context.Context, docID id.DocumentID, actorID id.ActorID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.assigned[docID] {
		if existing == actorID {
			return nil
		}
	}
	d.assigned[docID] = append(d.assigned[docID], actorID)
	return nil
}

// ReviewersFor lists the actors assigned to review a document.
func (d *InMemoryReviewerDirectory) ReviewersFor(_ context.Context, docID id.DocumentID) ([]id.ActorID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]id.ActorID(nil), d.assigned[docID]...), nil
}
