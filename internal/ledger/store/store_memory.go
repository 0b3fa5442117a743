package store

import (
	"context"
	"sync"

	"docgov/internal/ledger"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

var (
	// ErrEntryNotFound is returned when no entry exists for an id.
	ErrEntryNotFound = dErrors.New(dErrors.CodeNotFound, "audit entry not found")

	// ErrSequenceConflict means an append raced another writer for the same
	// document sequence slot. The transition commit's serialization should
	// make this unreachable; seeing it indicates a wiring bug.
	ErrSequenceConflict = dErrors.New(dErrors.CodeConflict, "audit sequence conflict")
)

// InMemoryLedgerStore keeps per-document entry slices in append order.
type InMemoryLedgerStore struct {
	mu      sync.RWMutex
	chains  map[id.DocumentID][]ledger.Entry
	byEntry map[id.EntryID]ledger.Entry
}

func NewMemory() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		chains:  make(map[id.DocumentID][]ledger.Entry),
		byEntry: make(map[id.EntryID]ledger.Entry),
	}
}

// Head returns the last sequence number and entry hash for a document.
// A document with no entries reports sequence 0 and an empty hash.
func (s *InMemoryLedgerStore) Head(_ context.Context, docID id.DocumentID) (uint64, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[docID]
	if len(chain) == 0 {
		return 0, "", nil
	}
	last := chain[len(chain)-1]
	return last.Seq, last.EntryHash, nil
}

// Append persists a fully formed entry. The entry's sequence must be
// exactly one past the current head.
func (s *InMemoryLedgerStore) Append(_ context.Context, entry ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.chains[entry.DocumentID]
	if entry.Seq != uint64(len(chain))+1 {
		return ErrSequenceConflict
	}
	s.chains[entry.DocumentID] = append(chain, entry)
	s.byEntry[entry.ID] = entry
	return nil
}

// ListByDocument returns up to limit entries with sequence greater than
// afterSeq, in sequence order. A limit of 0 means no limit.
func (s *InMemoryLedgerStore) ListByDocument(_ context.Context, docID id.DocumentID, afterSeq uint64, limit int) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[docID]
	var out []ledger.Entry
	for _, e := range chain {
		if e.Seq <= afterSeq {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryLedgerStore) FindByID(_ context.Context, entryID id.EntryID) (ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.byEntry[entryID]
	if !exists {
		return ledger.Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

// Tamper overwrites a stored entry in place, bypassing the append-only
// API. Test hook only: it simulates a direct data-store edit so chain
// verification tests have something to detect.
func (s *InMemoryLedgerStore) Tamper(docID id.DocumentID, seq uint64, mutate func(*ledger.Entry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.chains[docID]
	for i := range chain {
		if chain[i].Seq == seq {
			mutate(&chain[i])
			s.byEntry[chain[i].ID] = chain[i]
			return true
		}
	}
	return false
}

// Snapshot captures current contents and returns a restore function for
// the transactional memory runner.
func (s *InMemoryLedgerStore) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	savedChains := make(map[id.DocumentID][]ledger.Entry, len(s.chains))
	for k, v := range s.chains {
		savedChains[k] = append([]ledger.Entry(nil), v...)
	}
	savedByEntry := make(map[id.EntryID]ledger.Entry, len(s.byEntry))
	for k, v := range s.byEntry {
		savedByEntry[k] = v
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.chains = savedChains
		s.byEntry = savedByEntry
	}
}
