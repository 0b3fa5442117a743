// Package models defines the controlled-document data model: lifecycle
// states, the document record itself, and the transition records that make
// up its history. Documents are never deleted; superseded revisions park in
// a terminal state and are retained permanently.
package models

import (
	"time"

	"github.com/opencontainers/go-digest"

	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

// LifecycleState is the controlled-document lifecycle position.
// Invariant: a document's state is always one of these values, and changes
// only through the transition service.
type LifecycleState string

const (
	StateDraft           LifecycleState = "draft"
	StatePendingReview   LifecycleState = "pending_review"
	StateReviewed        LifecycleState = "reviewed"
	StatePendingApproval LifecycleState = "pending_approval"
	StateApproved        LifecycleState = "approved"
	StateRejected        LifecycleState = "rejected"
	StateObsolete        LifecycleState = "obsolete"
)

var validStates = map[LifecycleState]bool{
	StateDraft:           true,
	StatePendingReview:   true,
	StateReviewed:        true,
	StatePendingApproval: true,
	StateApproved:        true,
	StateRejected:        true,
	StateObsolete:        true,
}

// ParseLifecycleState constructs a LifecycleState from external input.
func ParseLifecycleState(s string) (LifecycleState, error) {
	st := LifecycleState(s)
	if !validStates[st] {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown lifecycle state %q", s)
	}
	return st, nil
}

func (s LifecycleState) IsValid() bool { return validStates[s] }

// IsTerminal reports whether content editing is closed in this state. A new
// version must be created to change content further.
func (s LifecycleState) IsTerminal() bool {
	return s == StateApproved || s == StateObsolete
}

// DocumentType selects which transition table governs a document.
type DocumentType string

const (
	DocTypeSOP          DocumentType = "sop"
	DocTypeQualityEvent DocumentType = "quality_event"
)

// ControlledDocument is the governed record. ContentDigest always matches
// the immutable content blob currently associated with the document, and
// Version strictly increases.
type ControlledDocument struct {
	ID            id.DocumentID
	Type          DocumentType
	Title         string
	State         LifecycleState
	ContentDigest digest.Digest
	Version       int64
	OwnerID       id.ActorID

	// Supersedes links a new revision to the document it replaces. Set only
	// by the new-version operation.
	Supersedes *id.DocumentID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransitionOutcomeKind classifies the result of a transition attempt.
type TransitionOutcomeKind string

const (
	OutcomeCommitted        TransitionOutcomeKind = "committed"
	OutcomePermissionDenied TransitionOutcomeKind = "permission_denied"
	OutcomeGuardFailed      TransitionOutcomeKind = "guard_failed"
	OutcomeNoSuchTransition TransitionOutcomeKind = "no_such_transition"
	OutcomeStaleState       TransitionOutcomeKind = "stale_state"
	OutcomeSigningFailed    TransitionOutcomeKind = "signing_failed"
	OutcomeConflict         TransitionOutcomeKind = "conflict"
)

// RecordOutcome is what gets persisted on a TransitionRecord: either the
// transition committed or it was denied. Denials keep the reason.
type RecordOutcome string

const (
	RecordCommitted RecordOutcome = "committed"
	RecordDenied    RecordOutcome = "denied"
)

// TransitionRecord is one attempted or committed transition. Created once
// per attempt, denials included, and immutable afterwards.
type TransitionRecord struct {
	DocumentID         id.DocumentID   `json:"document_id"`
	FromState          LifecycleState  `json:"from_state"`
	ToState            LifecycleState  `json:"to_state"`
	Action             string          `json:"action"`
	ActorID            id.ActorID      `json:"actor_id"`
	RequiredCapability string          `json:"required_capability"`
	RequestedAt        time.Time       `json:"requested_at"`
	Outcome            RecordOutcome   `json:"outcome"`
	DenyReason         string          `json:"deny_reason,omitempty"`
	SignatureID        *id.SignatureID `json:"signature_id,omitempty"`
	Comment            string          `json:"comment,omitempty"`
}
