// Package ports defines the interfaces the lifecycle state machine consumes.
// Defined here rather than in the providing packages so the engine states
// exactly what it needs and wiring stays swappable per environment.
package ports

import (
	"context"
	"time"

	"github.com/opencontainers/go-digest"

	"docgov/internal/document/models"
	"docgov/internal/ledger"
	policymodels "docgov/internal/policy/models"
	"docgov/internal/signature"
	id "docgov/pkg/domain"
)

// DocumentStore provides atomic read-modify-write over document state.
// CommitState is a compare-and-swap on the version column.
type DocumentStore interface {
	Create(ctx context.Context, doc models.ControlledDocument) error
	FindByID(ctx context.Context, docID id.DocumentID) (models.ControlledDocument, error)
	CommitState(ctx context.Context, docID id.DocumentID, expectedVersion int64, newState models.LifecycleState, newVersion int64, at time.Time) error
}

// ContentStore is the content-addressed blob boundary. Digest recomputes
// from the stored bytes so a signature binds to what the store holds.
type ContentStore interface {
	Put(ctx context.Context, data []byte) (digest.Digest, error)
	Digest(ctx context.Context, dgst digest.Digest) (digest.Digest, error)
}

// LedgerAppender appends a transition record to the document's audit chain.
type LedgerAppender interface {
	Append(ctx context.Context, record models.TransitionRecord) (ledger.Entry, error)
}

// Signer produces a signature record over a content digest. The record is
// returned unpersisted; the engine saves it inside the commit.
type Signer interface {
	Sign(ctx context.Context, signerID id.ActorID, contentDigest digest.Digest, meaning, intent string) (*signature.SignatureRecord, error)
}

// SignatureStore persists signature records produced by committed
// transitions.
type SignatureStore interface {
	Save(ctx context.Context, rec signature.SignatureRecord) error
}

// Authorizer answers whether an actor holds a capability for a resource.
type Authorizer interface {
	Authorize(ctx context.Context, actorID id.ActorID, capability policymodels.Capability, rctx policymodels.ResourceContext) (bool, error)
}

// ReviewerDirectory resolves the reviewers assigned to a document, feeding
// the evaluator's contextual reviewer rule.
type ReviewerDirectory interface {
	ReviewersFor(ctx context.Context, docID id.DocumentID) ([]id.ActorID, error)
}

// TxRunner executes a unit of work atomically: either every write inside
// fn is applied, or none is.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Exporter streams committed audit entries to external compliance tooling.
// Strictly best-effort and called only after the entry is durable.
type Exporter interface {
	Export(ctx context.Context, entry ledger.Entry)
}
