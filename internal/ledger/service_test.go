package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docgov/internal/document/models"
	"docgov/internal/ledger"
	"docgov/internal/ledger/store"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

type LedgerServiceSuite struct {
	suite.Suite

	ctx   context.Context
	store *store.InMemoryLedgerStore
	svc   *ledger.Service
	now   time.Time
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemory()
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	svc, err := ledger.New(s.store, ledger.WithClock(func() time.Time {
		s.now = s.now.Add(time.Second)
		return s.now
	}))
	s.Require().NoError(err)
	s.svc = svc
}

func (s *LedgerServiceSuite) record(docID id.DocumentID, action string) models.TransitionRecord {
	return models.TransitionRecord{
		DocumentID:         docID,
		FromState:          models.StateDraft,
		ToState:            models.StatePendingReview,
		Action:             action,
		ActorID:            id.NewActorID(),
		RequiredCapability: "author",
		RequestedAt:        s.now,
		Outcome:            models.RecordCommitted,
	}
}

func (s *LedgerServiceSuite) appendN(docID id.DocumentID, n int) []ledger.Entry {
	entries := make([]ledger.Entry, 0, n)
	for i := 0; i < n; i++ {
		entry, err := s.svc.Append(s.ctx, s.record(docID, "submit_for_review"))
		s.Require().NoError(err)
		entries = append(entries, entry)
	}
	return entries
}

// ============================================================
// Append
// ============================================================

func (s *LedgerServiceSuite) TestAppend() {
	s.Run("first entry links to genesis", func() {
		docID := id.NewDocumentID()

		entry, err := s.svc.Append(s.ctx, s.record(docID, "submit_for_review"))

		s.Require().NoError(err)
		s.Equal(uint64(1), entry.Seq)
		s.Equal("genesis", entry.PrevHash)
		s.Contains(entry.EntryHash, "sha256:")
		s.False(entry.ID.IsNil())
	})

	s.Run("subsequent entries link to the previous hash", func() {
		docID := id.NewDocumentID()
		entries := s.appendN(docID, 3)

		s.Equal(entries[0].EntryHash, entries[1].PrevHash)
		s.Equal(entries[1].EntryHash, entries[2].PrevHash)
		s.Equal(uint64(3), entries[2].Seq)
	})

	s.Run("chains are independent per document", func() {
		a := id.NewDocumentID()
		b := id.NewDocumentID()
		s.appendN(a, 2)

		entry, err := s.svc.Append(s.ctx, s.record(b, "submit_for_review"))

		s.Require().NoError(err)
		s.Equal(uint64(1), entry.Seq)
		s.Equal("genesis", entry.PrevHash)
	})
}

// ============================================================
// Query and List
// ============================================================

func (s *LedgerServiceSuite) TestQuery() {
	s.Run("streams entries in sequence order", func() {
		docID := id.NewDocumentID()
		appended := s.appendN(docID, 5)

		var got []ledger.Entry
		for entry, err := range s.svc.Query(s.ctx, docID) {
			s.Require().NoError(err)
			got = append(got, entry)
		}

		s.Equal(appended, got)
	})

	s.Run("is restartable", func() {
		docID := id.NewDocumentID()
		s.appendN(docID, 3)
		seq := s.svc.Query(s.ctx, docID)

		for range 2 {
			var count int
			for _, err := range seq {
				s.Require().NoError(err)
				count++
			}
			s.Equal(3, count)
		}
	})

	s.Run("stops early when the consumer breaks", func() {
		docID := id.NewDocumentID()
		s.appendN(docID, 4)

		var count int
		for _, err := range s.svc.Query(s.ctx, docID) {
			s.Require().NoError(err)
			count++
			if count == 2 {
				break
			}
		}

		s.Equal(2, count)
	})

	s.Run("empty document yields nothing", func() {
		entries, err := s.svc.List(s.ctx, id.NewDocumentID())

		s.Require().NoError(err)
		s.Empty(entries)
	})
}

func (s *LedgerServiceSuite) TestFindEntry() {
	s.Run("returns a stored entry", func() {
		docID := id.NewDocumentID()
		appended := s.appendN(docID, 1)

		entry, err := s.svc.FindEntry(s.ctx, appended[0].ID)

		s.Require().NoError(err)
		s.Equal(appended[0], entry)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.svc.FindEntry(s.ctx, id.NewEntryID())

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// ============================================================
// Chain verification
// ============================================================

func (s *LedgerServiceSuite) TestVerifyChain() {
	s.Run("intact chain verifies", func() {
		docID := id.NewDocumentID()
		s.appendN(docID, 4)

		result, err := s.svc.VerifyChain(s.ctx, docID)

		s.Require().NoError(err)
		s.True(result.OK)
		s.Equal(uint64(4), result.CheckedThrough)
		s.Nil(result.DivergenceSeq)
	})

	s.Run("verification is repeatable", func() {
		docID := id.NewDocumentID()
		s.appendN(docID, 2)

		first, err := s.svc.VerifyChain(s.ctx, docID)
		s.Require().NoError(err)
		second, err := s.svc.VerifyChain(s.ctx, docID)
		s.Require().NoError(err)

		s.Equal(first, second)
	})

	s.Run("empty chain verifies trivially", func() {
		result, err := s.svc.VerifyChain(s.ctx, id.NewDocumentID())

		s.Require().NoError(err)
		s.True(result.OK)
		s.Zero(result.CheckedThrough)
	})

	s.Run("edited payload is detected at its entry", func() {
		docID := id.NewDocumentID()
		s.appendN(docID, 4)
		ok := s.store.Tamper(docID, 2, func(e *ledger.Entry) {
			e.Payload.ActorID = id.NewActorID()
		})
		s.Require().True(ok)

		result, err := s.svc.VerifyChain(s.ctx, docID)

		s.Require().NoError(err)
		s.False(result.OK)
		s.Equal(uint64(1), result.CheckedThrough)
		s.Require().NotNil(result.DivergenceSeq)
		s.Equal(uint64(2), *result.DivergenceSeq)
		s.Equal("entry hash mismatch", result.Reason)
	})

	s.Run("rewritten hash breaks the next link", func() {
		docID := id.NewDocumentID()
		s.appendN(docID, 3)
		// Rehash entry 2 after editing it, the way a careful attacker
		// would: the edit hides locally but entry 3 still holds the old
		// hash, so the break surfaces one link later.
		s.store.Tamper(docID, 2, func(e *ledger.Entry) {
			e.Payload.Comment = "rewritten"
			hash, err := ledger.RehashForTest(*e)
			s.Require().NoError(err)
			e.EntryHash = hash
		})

		result, err := s.svc.VerifyChain(s.ctx, docID)

		s.Require().NoError(err)
		s.False(result.OK)
		s.Require().NotNil(result.DivergenceSeq)
		s.Equal(uint64(3), *result.DivergenceSeq)
		s.Equal("previous-hash link broken", result.Reason)
	})

	s.Run("deleted entry is a sequence gap", func() {
		docID := id.NewDocumentID()
		s.appendN(docID, 3)
		s.store.Tamper(docID, 2, func(e *ledger.Entry) {
			e.Seq = 5
		})

		result, err := s.svc.VerifyChain(s.ctx, docID)

		s.Require().NoError(err)
		s.False(result.OK)
		s.Contains(result.Reason, "sequence gap")
	})
}

func (s *LedgerServiceSuite) TestVerifyAll() {
	s.Run("reports per-document results", func() {
		clean := id.NewDocumentID()
		dirty := id.NewDocumentID()
		s.appendN(clean, 3)
		s.appendN(dirty, 3)
		s.store.Tamper(dirty, 1, func(e *ledger.Entry) {
			e.Payload.Outcome = models.RecordDenied
		})

		results, err := s.svc.VerifyAll(s.ctx, []id.DocumentID{clean, dirty})

		s.Require().NoError(err)
		s.Require().Len(results, 2)
		s.True(results[clean].OK)
		s.False(results[dirty].OK)
	})

	s.Run("no documents is a no-op", func() {
		results, err := s.svc.VerifyAll(s.ctx, nil)

		s.Require().NoError(err)
		s.Empty(results)
	})
}

// ============================================================
// Constructor
// ============================================================

func (s *LedgerServiceSuite) TestNew() {
	s.Run("requires a store", func() {
		_, err := ledger.New(nil)

		s.Require().Error(err)
	})
}
