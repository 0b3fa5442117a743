// Package transition is the lifecycle state machine: the sole authority for
// changing a controlled document's state. Every attempt, denied or
// committed, leaves an audit entry; the commit itself (signature persist +
// ledger append + state update) is one atomic unit.
package transition

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docgov/internal/document/models"
	"docgov/internal/ledger"
	policymodels "docgov/internal/policy/models"
	"docgov/internal/signature"
	"docgov/internal/transition/metrics"
	"docgov/internal/transition/ports"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

// Request is one transition attempt as it enters the engine.
type Request struct {
	DocumentID id.DocumentID
	Action     string
	ActorID    id.ActorID

	// Comment carries optional transition metadata; some guards require it.
	Comment string

	// SigningIntent is the re-authentication material for signing
	// transitions. Never key material, which the signature engine manages.
	SigningIntent string
}

// Outcome is the result of a transition attempt. Kind is always set;
// NewState, AuditEntryID and SignatureID are set on commit, DenyReason on
// any denial.
type Outcome struct {
	Kind         models.TransitionOutcomeKind
	NewState     models.LifecycleState
	AuditEntryID id.EntryID
	SignatureID  *id.SignatureID
	DenyReason   string
}

// Service orchestrates transitions over the declarative tables.
type Service struct {
	documents  ports.DocumentStore
	blobs      ports.ContentStore
	audit      ports.LedgerAppender
	signer     ports.Signer
	signatures ports.SignatureStore
	policy     ports.Authorizer
	runner     ports.TxRunner
	tables     Tables

	reviewers ports.ReviewerDirectory
	exporter  ports.Exporter
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     func() time.Time
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithExporter streams committed audit entries to external tooling.
func WithExporter(exporter ports.Exporter) Option {
	return func(s *Service) { s.exporter = exporter }
}

// WithReviewerDirectory feeds assigned reviewers into the policy context.
func WithReviewerDirectory(reviewers ports.ReviewerDirectory) Option {
	return func(s *Service) { s.reviewers = reviewers }
}

func New(
	documents ports.DocumentStore,
	blobs ports.ContentStore,
	audit ports.LedgerAppender,
	signer ports.Signer,
	signatures ports.SignatureStore,
	policy ports.Authorizer,
	runner ports.TxRunner,
	tables Tables,
	opts ...Option,
) (*Service, error) {
	switch {
	case documents == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "document store is required")
	case blobs == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "content store is required")
	case audit == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "ledger is required")
	case signer == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "signer is required")
	case signatures == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "signature store is required")
	case policy == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "authorizer is required")
	case runner == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "tx runner is required")
	case len(tables) == 0:
		return nil, dErrors.New(dErrors.CodeInternal, "lifecycle tables are required")
	}

	svc := &Service{
		documents:  documents,
		blobs:      blobs,
		audit:      audit,
		signer:     signer,
		signatures: signatures,
		policy:     policy,
		runner:     runner,
		tables:     tables,
		clock:      time.Now,
		tracer:     otel.Tracer("docgov/transition"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RequestTransition attempts one lifecycle transition. Expected denials
// (policy, guard, signing, state mismatch) come back as Outcome kinds, not
// errors; errors are reserved for invalid input and infrastructure failure.
func (s *Service) RequestTransition(ctx context.Context, req Request) (Outcome, error) {
	start := s.clock()
	ctx, span := s.tracer.Start(ctx, "transition.RequestTransition", trace.WithAttributes(
		attribute.String("document_id", req.DocumentID.String()),
		attribute.String("action", req.Action),
	))
	defer span.End()

	if req.DocumentID.IsNil() {
		return Outcome{}, dErrors.New(dErrors.CodeBadRequest, "document id is required")
	}
	if req.ActorID.IsNil() {
		return Outcome{}, dErrors.New(dErrors.CodeBadRequest, "actor id is required")
	}
	if req.Action == "" {
		return Outcome{}, dErrors.New(dErrors.CodeBadRequest, "action is required")
	}

	outcome, err := s.attempt(ctx, req, true)
	if err != nil {
		return Outcome{}, err
	}

	span.SetAttributes(attribute.String("outcome", string(outcome.Kind)))
	s.metrics.IncrementOutcome(string(outcome.Kind), req.Action)
	s.metrics.ObserveTransitionLatency(s.clock().Sub(start))
	return outcome, nil
}

// attempt runs one full validate-sign-commit pass. An optimistic-commit
// conflict triggers exactly one retry against fresh state; the retry
// re-validates everything because the document may have moved.
func (s *Service) attempt(ctx context.Context, req Request, allowRetry bool) (Outcome, error) {
	doc, err := s.documents.FindByID(ctx, req.DocumentID)
	if err != nil {
		return Outcome{}, err
	}
	table, err := s.tables.ForType(doc.Type)
	if err != nil {
		return Outcome{}, err
	}

	tr, ok := table.Lookup(doc.State, req.Action)
	if !ok {
		if table.KnowsAction(req.Action) {
			// The action exists but not from this state: the caller acted
			// on stale state.
			return s.recordDenial(ctx, doc, req, denial{
				kind:       models.OutcomeStaleState,
				target:     doc.State,
				reason:     "action " + req.Action + " does not apply in state " + string(doc.State),
				capability: "",
			})
		}
		return s.recordDenial(ctx, doc, req, denial{
			kind:       models.OutcomeNoSuchTransition,
			target:     doc.State,
			reason:     "no transition named " + req.Action + " for this document type",
			capability: "",
		})
	}

	rctx, err := s.resourceContext(ctx, doc)
	if err != nil {
		return Outcome{}, err
	}
	allowed, err := s.policy.Authorize(ctx, req.ActorID, tr.RequiredCapability, rctx)
	if err != nil {
		return Outcome{}, err
	}
	if !allowed {
		return s.recordDenial(ctx, doc, req, denial{
			kind:       models.OutcomePermissionDenied,
			target:     tr.Target,
			reason:     "actor lacks capability " + string(tr.RequiredCapability),
			capability: string(tr.RequiredCapability),
		})
	}

	var sigRec *signature.SignatureRecord
	if tr.RequiresSignature {
		sigRec, err = s.produceSignature(ctx, doc, tr, req)
		if err != nil {
			s.metrics.IncrementSigningFailure()
			return s.recordDenial(ctx, doc, req, denial{
				kind:       models.OutcomeSigningFailed,
				target:     tr.Target,
				reason:     "signing failed: " + err.Error(),
				capability: string(tr.RequiredCapability),
			})
		}
	}

	if tr.Guard != nil {
		if ok, reason := tr.Guard(doc, req); !ok {
			return s.recordDenial(ctx, doc, req, denial{
				kind:       models.OutcomeGuardFailed,
				target:     tr.Target,
				reason:     reason,
				capability: string(tr.RequiredCapability),
			})
		}
	}

	// Last cancellation point. Once the commit starts it runs to
	// completion; a half-applied transition must be impossible.
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	commitCtx := context.WithoutCancel(ctx)

	now := s.clock().UTC()
	record := models.TransitionRecord{
		DocumentID:         doc.ID,
		FromState:          doc.State,
		ToState:            tr.Target,
		Action:             tr.Action,
		ActorID:            req.ActorID,
		RequiredCapability: string(tr.RequiredCapability),
		RequestedAt:        now,
		Outcome:            models.RecordCommitted,
		Comment:            req.Comment,
	}
	if sigRec != nil {
		record.SignatureID = &sigRec.ID
	}

	var entry ledger.Entry
	err = s.runner.RunInTx(commitCtx, func(txCtx context.Context) error {
		if sigRec != nil {
			if err := s.signatures.Save(txCtx, *sigRec); err != nil {
				return err
			}
		}
		var err error
		entry, err = s.audit.Append(txCtx, record)
		if err != nil {
			return err
		}
		return s.documents.CommitState(txCtx, doc.ID, doc.Version, tr.Target, doc.Version+1, now)
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			if allowRetry {
				return s.attempt(ctx, req, false)
			}
			return s.recordDenial(ctx, doc, req, denial{
				kind:       models.OutcomeConflict,
				target:     tr.Target,
				reason:     "document changed concurrently; retry with fresh state",
				capability: string(tr.RequiredCapability),
			})
		}
		return Outcome{}, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "transition committed",
			"document_id", doc.ID,
			"action", tr.Action,
			"from_state", doc.State,
			"to_state", tr.Target,
			"actor_id", req.ActorID,
			"audit_entry_id", entry.ID,
		)
	}
	if s.exporter != nil {
		s.exporter.Export(commitCtx, entry)
	}

	// Approving a revision retires the document it supersedes.
	if tr.Target == models.StateApproved && doc.Supersedes != nil {
		s.supersedePredecessor(commitCtx, *doc.Supersedes, req.ActorID)
	}

	return Outcome{
		Kind:         models.OutcomeCommitted,
		NewState:     tr.Target,
		AuditEntryID: entry.ID,
		SignatureID:  record.SignatureID,
	}, nil
}

// produceSignature recomputes the content digest from the authoritative
// blob store and signs it. A digest that cannot be recomputed blocks the
// transition the same way an unavailable key does.
func (s *Service) produceSignature(ctx context.Context, doc models.ControlledDocument, tr Transition, req Request) (*signature.SignatureRecord, error) {
	dgst, err := s.blobs.Digest(ctx, doc.ContentDigest)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "content unavailable for signing")
	}
	return s.signer.Sign(ctx, req.ActorID, dgst, tr.Meaning, req.SigningIntent)
}

type denial struct {
	kind       models.TransitionOutcomeKind
	target     models.LifecycleState
	reason     string
	capability string
}

// recordDenial appends a Denied record so refused attempts are as visible
// in the audit trail as committed ones. A sequence race with a concurrent
// commit is retried once; the denial itself changes no document state.
func (s *Service) recordDenial(ctx context.Context, doc models.ControlledDocument, req Request, d denial) (Outcome, error) {
	record := models.TransitionRecord{
		DocumentID:         doc.ID,
		FromState:          doc.State,
		ToState:            d.target,
		Action:             req.Action,
		ActorID:            req.ActorID,
		RequiredCapability: d.capability,
		RequestedAt:        s.clock().UTC(),
		Outcome:            models.RecordDenied,
		DenyReason:         d.reason,
		Comment:            req.Comment,
	}

	appendCtx := context.WithoutCancel(ctx)
	var entry ledger.Entry
	appendOnce := func() error {
		return s.runner.RunInTx(appendCtx, func(txCtx context.Context) error {
			var err error
			entry, err = s.audit.Append(txCtx, record)
			return err
		})
	}
	err := appendOnce()
	if err != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
		err = appendOnce()
	}
	if err != nil {
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record denied attempt")
	}

	if s.logger != nil {
		s.logger.WarnContext(ctx, "transition denied",
			"document_id", doc.ID,
			"action", req.Action,
			"actor_id", req.ActorID,
			"outcome", d.kind,
			"reason", d.reason,
		)
	}
	if s.exporter != nil {
		s.exporter.Export(appendCtx, entry)
	}
	return Outcome{
		Kind:         d.kind,
		AuditEntryID: entry.ID,
		DenyReason:   d.reason,
	}, nil
}

// supersedePredecessor retires the document a just-approved revision
// replaces. The approval is already durable; a failure here is logged and
// resolvable by an explicit obsolete action.
func (s *Service) supersedePredecessor(ctx context.Context, predID id.DocumentID, actorID id.ActorID) {
	pred, err := s.documents.FindByID(ctx, predID)
	if err != nil {
		s.logWarn(ctx, "supersede skipped: predecessor not readable", predID, err)
		return
	}
	table, err := s.tables.ForType(pred.Type)
	if err != nil {
		s.logWarn(ctx, "supersede skipped: no lifecycle table", predID, err)
		return
	}
	tr, ok := table.Lookup(pred.State, ActionSupersede)
	if !ok {
		// Already obsolete or never approved; nothing to retire.
		return
	}

	now := s.clock().UTC()
	record := models.TransitionRecord{
		DocumentID:         pred.ID,
		FromState:          pred.State,
		ToState:            tr.Target,
		Action:             ActionSupersede,
		ActorID:            actorID,
		RequiredCapability: string(tr.RequiredCapability),
		RequestedAt:        now,
		Outcome:            models.RecordCommitted,
	}

	var entry ledger.Entry
	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		entry, err = s.audit.Append(txCtx, record)
		if err != nil {
			return err
		}
		return s.documents.CommitState(txCtx, pred.ID, pred.Version, tr.Target, pred.Version+1, now)
	})
	if err != nil {
		s.logWarn(ctx, "supersede failed", predID, err)
		return
	}
	if s.exporter != nil {
		s.exporter.Export(ctx, entry)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "predecessor superseded",
			"document_id", predID,
			"audit_entry_id", entry.ID,
		)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, docID id.DocumentID, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, "document_id", docID, "error", err)
	}
}

// CreateDocument registers a new controlled document in Draft with its
// initial content.
func (s *Service) CreateDocument(ctx context.Context, docType models.DocumentType, title string, ownerID id.ActorID, content []byte) (models.ControlledDocument, error) {
	if _, err := s.tables.ForType(docType); err != nil {
		return models.ControlledDocument{}, dErrors.Newf(dErrors.CodeBadRequest, "unknown document type %q", docType)
	}
	if title == "" {
		return models.ControlledDocument{}, dErrors.New(dErrors.CodeBadRequest, "title is required")
	}
	if ownerID.IsNil() {
		return models.ControlledDocument{}, dErrors.New(dErrors.CodeBadRequest, "owner id is required")
	}

	dgst, err := s.blobs.Put(ctx, content)
	if err != nil {
		return models.ControlledDocument{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store content")
	}

	now := s.clock().UTC()
	doc := models.ControlledDocument{
		ID:            id.NewDocumentID(),
		Type:          docType,
		Title:         title,
		State:         models.StateDraft,
		ContentDigest: dgst,
		Version:       1,
		OwnerID:       ownerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return models.ControlledDocument{}, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "document created",
			"document_id", doc.ID,
			"type", docType,
			"owner_id", ownerID,
		)
	}
	return doc, nil
}

// NewVersion creates a successor revision of an approved document. The
// successor starts in Draft with fresh content and carries supersedes
// lineage; approving it retires the predecessor.
func (s *Service) NewVersion(ctx context.Context, predID id.DocumentID, actorID id.ActorID, content []byte) (models.ControlledDocument, error) {
	pred, err := s.documents.FindByID(ctx, predID)
	if err != nil {
		return models.ControlledDocument{}, err
	}
	if pred.State != models.StateApproved {
		return models.ControlledDocument{}, dErrors.Newf(dErrors.CodeConflict, "document %s is %s; only approved documents can be revised", predID, pred.State)
	}

	rctx, err := s.resourceContext(ctx, pred)
	if err != nil {
		return models.ControlledDocument{}, err
	}
	allowed, err := s.policy.Authorize(ctx, actorID, policymodels.CapabilityAuthor, rctx)
	if err != nil {
		return models.ControlledDocument{}, err
	}
	if !allowed {
		return models.ControlledDocument{}, dErrors.New(dErrors.CodeForbidden, "actor lacks capability author")
	}

	dgst, err := s.blobs.Put(ctx, content)
	if err != nil {
		return models.ControlledDocument{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store content")
	}

	now := s.clock().UTC()
	successor := models.ControlledDocument{
		ID:            id.NewDocumentID(),
		Type:          pred.Type,
		Title:         pred.Title,
		State:         models.StateDraft,
		ContentDigest: dgst,
		Version:       1,
		OwnerID:       actorID,
		Supersedes:    &pred.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.documents.Create(ctx, successor); err != nil {
		return models.ControlledDocument{}, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "new document version created",
			"document_id", successor.ID,
			"supersedes", pred.ID,
			"actor_id", actorID,
		)
	}
	return successor, nil
}

// GetDocument returns the current document record.
func (s *Service) GetDocument(ctx context.Context, docID id.DocumentID) (models.ControlledDocument, error) {
	return s.documents.FindByID(ctx, docID)
}

// GetDocumentState returns the current lifecycle state.
func (s *Service) GetDocumentState(ctx context.Context, docID id.DocumentID) (models.LifecycleState, error) {
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		return "", err
	}
	return doc.State, nil
}

func (s *Service) resourceContext(ctx context.Context, doc models.ControlledDocument) (policymodels.ResourceContext, error) {
	rctx := policymodels.ResourceContext{
		DocumentID: doc.ID,
		OwnerID:    doc.OwnerID,
	}
	if s.reviewers != nil {
		assigned, err := s.reviewers.ReviewersFor(ctx, doc.ID)
		if err != nil {
			return policymodels.ResourceContext{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assigned reviewers")
		}
		rctx.AssignedReviewers = assigned
	}
	return rctx, nil
}
