package transition_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	blobstore "docgov/internal/document/content"
	"docgov/internal/document/models"
	docstore "docgov/internal/document/store"
	"docgov/internal/ledger"
	ledgerstore "docgov/internal/ledger/store"
	"docgov/internal/policy"
	policymodels "docgov/internal/policy/models"
	policystore "docgov/internal/policy/store"
	"docgov/internal/signature"
	"docgov/internal/signature/keystore"
	"docgov/internal/signature/revocation"
	sigstore "docgov/internal/signature/store"
	"docgov/internal/transition"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
	txcontext "docgov/pkg/platform/tx"
)

const approvalIntent = "i-approve-this-document"

// captureExporter stands in for the Kafka exporter; the service treats
// export as fire-and-forget, so all it can promise is that every appended
// entry is handed over.
type captureExporter struct {
	mu      sync.Mutex
	entries []ledger.Entry
}

func (e *captureExporter) Export(_ context.Context, entry ledger.Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
}

func (e *captureExporter) exported() []ledger.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ledger.Entry(nil), e.entries...)
}

type TransitionServiceSuite struct {
	suite.Suite

	ctx context.Context

	documents  *docstore.InMemoryDocumentStore
	blobs      *blobstore.InMemoryBlobStore
	ledgerSt   *ledgerstore.InMemoryLedgerStore
	ledgerSvc  *ledger.Service
	signatures *sigstore.InMemorySignatureStore
	keys       *keystore.InMemoryKeyStore
	sigSvc     *signature.Service
	grants     *policystore.InMemoryGrantStore
	reviewers  *policystore.InMemoryReviewerDirectory
	exporter   *captureExporter
	svc        *transition.Service

	author   id.ActorID
	reviewer id.ActorID
	approver id.ActorID
	manager  id.ActorID
}

func TestTransitionServiceSuite(t *testing.T) {
	suite.Run(t, new(TransitionServiceSuite))
}

func (s *TransitionServiceSuite) SetupTest() {
	s.ctx = context.Background()

	s.documents = docstore.NewMemory()
	s.blobs = blobstore.NewMemory()
	s.ledgerSt = ledgerstore.NewMemory()
	s.signatures = sigstore.NewMemory()
	s.keys = keystore.NewMemory()
	s.grants = policystore.NewMemory()
	s.reviewers = policystore.NewMemoryReviewerDirectory()
	s.exporter = &captureExporter{}

	var err error
	s.ledgerSvc, err = ledger.New(s.ledgerSt)
	s.Require().NoError(err)
	s.sigSvc, err = signature.New(s.keys, revocation.NewMemory())
	s.Require().NoError(err)
	evaluator, err := policy.New(s.grants)
	s.Require().NoError(err)
	tables, err := transition.DefaultTables()
	s.Require().NoError(err)

	runner := txcontext.NewMemoryRunner(s.documents, s.ledgerSt, s.signatures)

	s.svc, err = transition.New(
		s.documents, s.blobs, s.ledgerSvc, s.sigSvc, s.signatures,
		evaluator, runner, tables,
		transition.WithReviewerDirectory(s.reviewers),
		transition.WithExporter(s.exporter),
	)
	s.Require().NoError(err)

	s.author = id.NewActorID()
	s.reviewer = id.NewActorID()
	s.approver = id.NewActorID()
	s.manager = id.NewActorID()
	s.grant(s.reviewer, policymodels.CapabilityReviewer)
	s.grant(s.approver, policymodels.CapabilityApprover)
	s.grant(s.manager, policymodels.CapabilityQualityManager)

	_, err = s.keys.Enroll(s.ctx, s.approver, approvalIntent, time.Hour)
	s.Require().NoError(err)
}

func (s *TransitionServiceSuite) grant(actorID id.ActorID, capability policymodels.Capability) {
	s.Require().NoError(s.grants.Add(s.ctx, policymodels.Grant{
		ActorID:    actorID,
		Capability: capability,
		ValidFrom:  time.Now().Add(-time.Hour),
	}))
}

func (s *TransitionServiceSuite) createSOP() models.ControlledDocument {
	doc, err := s.svc.CreateDocument(s.ctx, models.DocTypeSOP, "Cleaning Procedure", s.author, []byte("step 1: clean"))
	s.Require().NoError(err)
	return doc
}

func (s *TransitionServiceSuite) commit(docID id.DocumentID, action string, actorID id.ActorID, intent string) transition.Outcome {
	outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
		DocumentID:    docID,
		Action:        action,
		ActorID:       actorID,
		Comment:       "ok",
		SigningIntent: intent,
	})
	s.Require().NoError(err)
	s.Require().Equal(models.OutcomeCommitted, outcome.Kind, "outcome: %s (%s)", outcome.Kind, outcome.DenyReason)
	return outcome
}

// driveToPendingApproval moves a fresh SOP to PendingApproval.
func (s *TransitionServiceSuite) driveToPendingApproval(docID id.DocumentID) {
	s.commit(docID, transition.ActionSubmitForReview, s.author, "")
	s.commit(docID, transition.ActionApproveReview, s.reviewer, "")
	s.commit(docID, transition.ActionSubmitApproval, s.author, "")
}

func (s *TransitionServiceSuite) state(docID id.DocumentID) models.LifecycleState {
	state, err := s.svc.GetDocumentState(s.ctx, docID)
	s.Require().NoError(err)
	return state
}

// ============================================================
// Committed transitions
// ============================================================

func (s *TransitionServiceSuite) TestCommit() {
	s.Run("owner submits a draft via the contextual author rule", func() {
		doc := s.createSOP()

		outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
			DocumentID: doc.ID,
			Action:     transition.ActionSubmitForReview,
			ActorID:    s.author,
		})

		s.Require().NoError(err)
		s.Equal(models.OutcomeCommitted, outcome.Kind)
		s.Equal(models.StatePendingReview, outcome.NewState)
		s.False(outcome.AuditEntryID.IsNil())
		s.Equal(models.StatePendingReview, s.state(doc.ID))
	})

	s.Run("commit bumps the document version", func() {
		doc := s.createSOP()
		s.commit(doc.ID, transition.ActionSubmitForReview, s.author, "")

		updated, err := s.svc.GetDocument(s.ctx, doc.ID)

		s.Require().NoError(err)
		s.Equal(doc.Version+1, updated.Version)
	})

	s.Run("commit appends a committed audit entry", func() {
		doc := s.createSOP()
		outcome := s.commit(doc.ID, transition.ActionSubmitForReview, s.author, "")

		entries, err := s.ledgerSvc.List(s.ctx, doc.ID)

		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(outcome.AuditEntryID, entries[0].ID)
		s.Equal(models.RecordCommitted, entries[0].Payload.Outcome)
		s.Equal(transition.ActionSubmitForReview, entries[0].Payload.Action)
	})

	s.Run("assigned reviewer may review without an explicit grant", func() {
		doc := s.createSOP()
		s.commit(doc.ID, transition.ActionSubmitForReview, s.author, "")
		assigned := id.NewActorID()
		s.Require().NoError(s.reviewers.Assign(s.ctx, doc.ID, assigned))

		outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
			DocumentID: doc.ID,
			Action:     transition.ActionApproveReview,
			ActorID:    assigned,
		})

		s.Require().NoError(err)
		s.Equal(models.OutcomeCommitted, outcome.Kind)
	})
}

// ============================================================
// Signed transitions
// ============================================================

func (s *TransitionServiceSuite) TestSignedApproval() {
	s.Run("final approval produces a verifiable signature", func() {
		doc := s.createSOP()
		s.driveToPendingApproval(doc.ID)

		outcome := s.commit(doc.ID, transition.ActionApproveFinal, s.approver, approvalIntent)

		s.Equal(models.StateApproved, outcome.NewState)
		s.Require().NotNil(outcome.SignatureID)

		rec, err := s.signatures.FindByID(s.ctx, *outcome.SignatureID)
		s.Require().NoError(err)
		s.Equal(s.approver, rec.SignerID)
		s.Equal("Approved", rec.Meaning)

		// The signature binds to the document's content digest at signing.
		current, err := s.svc.GetDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(current.ContentDigest, rec.ContentDigest)

		result, err := s.sigSvc.Verify(s.ctx, rec, rec.ContentDigest)
		s.Require().NoError(err)
		s.Equal(signature.StatusValid, result.Status)
	})

	s.Run("the committed entry references the signature", func() {
		doc := s.createSOP()
		s.driveToPendingApproval(doc.ID)
		outcome := s.commit(doc.ID, transition.ActionApproveFinal, s.approver, approvalIntent)

		entries, err := s.ledgerSvc.List(s.ctx, doc.ID)

		s.Require().NoError(err)
		last := entries[len(entries)-1]
		s.Require().NotNil(last.Payload.SignatureID)
		s.Equal(*outcome.SignatureID, *last.Payload.SignatureID)
	})

	s.Run("wrong signing intent blocks the transition", func() {
		doc := s.createSOP()
		s.driveToPendingApproval(doc.ID)

		outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
			DocumentID:    doc.ID,
			Action:        transition.ActionApproveFinal,
			ActorID:       s.approver,
			SigningIntent: "wrong",
		})

		s.Require().NoError(err)
		s.Equal(models.OutcomeSigningFailed, outcome.Kind)
		s.Equal(models.StatePendingApproval, s.state(doc.ID))
	})

	s.Run("unavailable signing key denies and audits the attempt", func() {
		unkeyed := id.NewActorID()
		s.grant(unkeyed, policymodels.CapabilityApprover)
		doc := s.createSOP()
		s.driveToPendingApproval(doc.ID)
		before, err := s.ledgerSvc.List(s.ctx, doc.ID)
		s.Require().NoError(err)

		outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
			DocumentID: doc.ID,
			Action:     transition.ActionApproveFinal,
			ActorID:    unkeyed,
		})

		s.Require().NoError(err)
		s.Equal(models.OutcomeSigningFailed, outcome.Kind)
		s.Equal(models.StatePendingApproval, s.state(doc.ID))

		entries, err := s.ledgerSvc.List(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Require().Len(entries, len(before)+1)
		s.Equal(models.RecordDenied, entries[len(entries)-1].Payload.Outcome)
	})
}

// ============================================================
// Denials
// ============================================================

func (s *TransitionServiceSuite) TestDenials() {
	s.Run("unknown action is NoSuchTransition", func() {
		doc := s.createSOP()

		outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
			DocumentID: doc.ID,
			Action:     "launch_rocket",
			ActorID:    s.author,
		})

		s.Require().NoError(err)
		s.Equal(models.OutcomeNoSuchTransition, outcome.Kind)
	})

	s.Run("known action from the wrong state is StaleState", func() {
		doc := s.createSOP()

		outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
			DocumentID: doc.ID,
			Action:     transition.ActionApproveFinal,
			ActorID:    s.approver,
		})

		s.Require().NoError(err)
		s.Equal(models.OutcomeStaleState, outcome.Kind)
	})

	s.Run("replaying a committed request is StaleState", func() {
		doc := s.createSOP()
		s.commit(doc.ID, transition.ActionSubmitForReview, s.author, "")

		outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
			DocumentID: doc.ID,
			Action:     transition.ActionSubmitForReview,
			ActorID:    s.author,
		})

		s.Require().NoError(err)
		s.Equal(models.OutcomeStaleState, outcome.Kind)
		s.Equal(models.StatePendingReview, s.state(doc.ID))
	})

	s.Run("missing capability is PermissionDenied and audited", func() {
		doc := s.createSOP()
		s.commit(doc.ID, transition.ActionSubmitForReview, s.author, "")
		stranger := id.NewActorID()

		outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
			DocumentID: doc.ID,
			Action:     transition.ActionApproveReview,
			ActorID:    stranger,
		})

		s.Require().NoError(err)
		s.Equal(models.OutcomePermissionDenied, outcome.Kind)
		s.Equal(models.StatePendingReview, s.state(doc.ID))

		entries, err := s.ledgerSvc.List(s.ctx, doc.ID)
		s.Require().NoError(err)
		last := entries[len(entries)-1].Payload
		s.Equal(models.RecordDenied, last.Outcome)
		s.Equal(stranger, last.ActorID)
		s.NotEmpty(last.DenyReason)
	})

	s.Run("guard failure is GuardFailed with the guard's reason", func() {
		doc := s.createSOP()
		s.commit(doc.ID, transition.ActionSubmitForReview, s.author, "")

		outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
			DocumentID: doc.ID,
			Action:     transition.ActionReturnToDraft,
			ActorID:    s.reviewer,
			// no comment
		})

		s.Require().NoError(err)
		s.Equal(models.OutcomeGuardFailed, outcome.Kind)
		s.Contains(outcome.DenyReason, "comment")
		s.Equal(models.StatePendingReview, s.state(doc.ID))
	})

	s.Run("unknown document is an error, not an outcome", func() {
		_, err := s.svc.RequestTransition(s.ctx, transition.Request{
			DocumentID: id.NewDocumentID(),
			Action:     transition.ActionSubmitForReview,
			ActorID:    s.author,
		})

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("invalid input is rejected before any lookup", func() {
		_, err := s.svc.RequestTransition(s.ctx, transition.Request{
			Action:  transition.ActionSubmitForReview,
			ActorID: s.author,
		})

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

// ============================================================
// Review scenario
// ============================================================

// Draft document; the author submits it, an actor without the reviewer
// capability is denied on record, a granted reviewer then commits the same
// action. Three entries, in order, with the denial in the middle.
func (s *TransitionServiceSuite) TestReviewScenario() {
	doc := s.createSOP()

	first := s.commit(doc.ID, transition.ActionSubmitForReview, s.author, "")
	s.Equal(models.StatePendingReview, first.NewState)

	outsider := id.NewActorID()
	denied, err := s.svc.RequestTransition(s.ctx, transition.Request{
		DocumentID: doc.ID,
		Action:     transition.ActionApproveReview,
		ActorID:    outsider,
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomePermissionDenied, denied.Kind)

	third := s.commit(doc.ID, transition.ActionApproveReview, s.reviewer, "")
	s.Equal(models.StateReviewed, third.NewState)

	entries, err := s.ledgerSvc.List(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(uint64(1), entries[0].Seq)
	s.Equal(models.RecordCommitted, entries[0].Payload.Outcome)
	s.Equal(models.RecordDenied, entries[1].Payload.Outcome)
	s.Equal(outsider, entries[1].Payload.ActorID)
	s.Equal(models.RecordCommitted, entries[2].Payload.Outcome)

	result, err := s.ledgerSvc.VerifyChain(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.True(result.OK)
}

// ============================================================
// Concurrency
// ============================================================

func (s *TransitionServiceSuite) TestConcurrentSameTransition() {
	doc := s.createSOP()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []transition.Outcome
		errs     []error
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
				DocumentID: doc.ID,
				Action:     transition.ActionSubmitForReview,
				ActorID:    s.author,
			})
			mu.Lock()
			outcomes = append(outcomes, outcome)
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()
	for _, err := range errs {
		s.Require().NoError(err)
	}

	var committed, refused int
	for _, outcome := range outcomes {
		switch outcome.Kind {
		case models.OutcomeCommitted:
			committed++
		case models.OutcomeStaleState, models.OutcomeConflict:
			refused++
		default:
			s.Failf("unexpected outcome", "%s (%s)", outcome.Kind, outcome.DenyReason)
		}
	}
	s.Equal(1, committed)
	s.Equal(1, refused)
	s.Equal(models.StatePendingReview, s.state(doc.ID))
}

// ============================================================
// Cancellation
// ============================================================

func (s *TransitionServiceSuite) TestCancellation() {
	doc := s.createSOP()
	cancelled, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.svc.RequestTransition(cancelled, transition.Request{
		DocumentID: doc.ID,
		Action:     transition.ActionSubmitForReview,
		ActorID:    s.author,
	})

	s.Require().Error(err)
	s.Equal(models.StateDraft, s.state(doc.ID))

	entries, err := s.ledgerSvc.List(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Empty(entries)
}

// ============================================================
// New versions
// ============================================================

func (s *TransitionServiceSuite) TestNewVersion() {
	s.Run("only approved documents can be revised", func() {
		doc := s.createSOP()

		_, err := s.svc.NewVersion(s.ctx, doc.ID, s.author, []byte("v2"))

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("revision requires the author capability", func() {
		doc := s.approvedSOP()

		_, err := s.svc.NewVersion(s.ctx, doc.ID, id.NewActorID(), []byte("v2"))

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("successor starts in draft with lineage", func() {
		doc := s.approvedSOP()

		successor, err := s.svc.NewVersion(s.ctx, doc.ID, s.author, []byte("step 1: clean better"))

		s.Require().NoError(err)
		s.Equal(models.StateDraft, successor.State)
		s.Equal(int64(1), successor.Version)
		s.Require().NotNil(successor.Supersedes)
		s.Equal(doc.ID, *successor.Supersedes)
		s.NotEqual(doc.ContentDigest, successor.ContentDigest)
	})

	s.Run("approving the successor retires the predecessor", func() {
		doc := s.approvedSOP()
		successor, err := s.svc.NewVersion(s.ctx, doc.ID, s.author, []byte("step 1: clean better"))
		s.Require().NoError(err)

		s.driveToPendingApproval(successor.ID)
		s.commit(successor.ID, transition.ActionApproveFinal, s.approver, approvalIntent)

		s.Equal(models.StateApproved, s.state(successor.ID))
		s.Equal(models.StateObsolete, s.state(doc.ID))

		entries, err := s.ledgerSvc.List(s.ctx, doc.ID)
		s.Require().NoError(err)
		last := entries[len(entries)-1].Payload
		s.Equal(transition.ActionSupersede, last.Action)
		s.Equal(models.RecordCommitted, last.Outcome)
	})
}

// ============================================================
// Quality events
// ============================================================

func (s *TransitionServiceSuite) TestQualityEventFlow() {
	const closeIntent = "event-investigated-and-closed"
	_, err := s.keys.Enroll(s.ctx, s.manager, closeIntent, time.Hour)
	s.Require().NoError(err)

	doc, err := s.svc.CreateDocument(s.ctx, models.DocTypeQualityEvent, "Deviation 2026-114", s.author, []byte("observed deviation"))
	s.Require().NoError(err)

	s.commit(doc.ID, transition.ActionSubmitForReview, s.author, "")
	s.commit(doc.ID, transition.ActionApproveReview, s.manager, "")
	outcome := s.commit(doc.ID, transition.ActionCloseEvent, s.manager, closeIntent)

	s.Equal(models.StateApproved, outcome.NewState)
	s.Require().NotNil(outcome.SignatureID)

	rec, err := s.signatures.FindByID(s.ctx, *outcome.SignatureID)
	s.Require().NoError(err)
	s.Equal("Closed", rec.Meaning)
	s.Equal(s.manager, rec.SignerID)
}

func (s *TransitionServiceSuite) approvedSOP() models.ControlledDocument {
	doc := s.createSOP()
	s.driveToPendingApproval(doc.ID)
	s.commit(doc.ID, transition.ActionApproveFinal, s.approver, approvalIntent)
	return doc
}

// ============================================================
// Export hand-off
// ============================================================

func (s *TransitionServiceSuite) TestEntriesAreHandedToExporter() {
	doc := s.createSOP()

	s.commit(doc.ID, transition.ActionSubmitForReview, s.author, "")

	// The author is not a reviewer; the denial must still be exported.
	outcome, err := s.svc.RequestTransition(s.ctx, transition.Request{
		DocumentID: doc.ID,
		Action:     transition.ActionApproveReview,
		ActorID:    s.author,
	})
	s.Require().NoError(err)
	s.Equal(models.OutcomePermissionDenied, outcome.Kind)

	exported := s.exporter.exported()
	s.Require().Len(exported, 2)
	s.Equal(models.RecordCommitted, exported[0].Payload.Outcome)
	s.Equal(uint64(1), exported[0].Seq)
	s.Equal(models.RecordDenied, exported[1].Payload.Outcome)
	s.Equal(uint64(2), exported[1].Seq)
}
