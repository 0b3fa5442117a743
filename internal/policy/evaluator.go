// Package policy answers "may actor X exercise capability Y against this
// document" without the state machine knowing how grants are modeled.
// Evaluation is a pure function of the actor's current grants, the
// capability, and the resource context; the store read is the only effect.
package policy

import (
	"context"
	"log/slog"
	"time"

	"docgov/internal/policy/models"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

// GrantStore reads the actor's current capability grants.
type GrantStore interface {
	ListByActor(ctx context.Context, actorID id.ActorID) ([]models.Grant, error)
}

type Evaluator struct {
	grants GrantStore
	logger *slog.Logger
	clock  func() time.Time
}

type Option func(*Evaluator)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// WithClock overrides the time source for tests of grant expiry.
func WithClock(clock func() time.Time) Option {
	return func(e *Evaluator) { e.clock = clock }
}

func New(grants GrantStore, opts ...Option) (*Evaluator, error) {
	if grants == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "grant store is required")
	}
	e := &Evaluator{grants: grants, clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Authorize reports whether the actor holds the capability for the given
// resource context. Contextual rules are checked first, then explicit
// grants; either suffices.
func (e *Evaluator) Authorize(ctx context.Context, actorID id.ActorID, capability models.Capability, rctx models.ResourceContext) (bool, error) {
	if actorID.IsNil() {
		return false, dErrors.New(dErrors.CodeBadRequest, "actor id is required")
	}
	if !capability.IsValid() {
		return false, dErrors.Newf(dErrors.CodeBadRequest, "unknown capability %q", capability)
	}

	if contextuallyGranted(actorID, capability, rctx) {
		return true, nil
	}

	grants, err := e.grants.ListByActor(ctx, actorID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load grants")
	}

	allowed := granted(grants, capability, rctx, e.clock())
	if !allowed && e.logger != nil {
		e.logger.InfoContext(ctx, "capability denied",
			"actor_id", actorID,
			"capability", capability,
			"document_id", rctx.DocumentID,
		)
	}
	return allowed, nil
}

// contextuallyGranted applies the standing contextual rules: a document's
// owner always holds author on it, and an assigned reviewer holds reviewer
// on that specific document.
func contextuallyGranted(actorID id.ActorID, capability models.Capability, rctx models.ResourceContext) bool {
	switch capability {
	case models.CapabilityAuthor:
		return rctx.OwnerID == actorID
	case models.CapabilityReviewer:
		for _, reviewer := range rctx.AssignedReviewers {
			if reviewer == actorID {
				return true
			}
		}
	}
	return false
}

// granted is the pure core: does any active grant cover this capability
// and document at the given instant.
func granted(grants []models.Grant, capability models.Capability, rctx models.ResourceContext, now time.Time) bool {
	for _, g := range grants {
		if g.Capability != capability {
			continue
		}
		if !g.ActiveAt(now) {
			continue
		}
		if !g.AppliesTo(rctx.DocumentID) {
			continue
		}
		return true
	}
	return false
}
