// Package models defines capabilities and the time-bounded grants the
// policy evaluator reasons over.
package models

import (
	"time"

	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

// Capability is a named permission evaluated against a resource context.
type Capability string

const (
	CapabilityAuthor         Capability = "author"
	CapabilityReviewer       Capability = "reviewer"
	CapabilityApprover       Capability = "approver"
	CapabilityQualityManager Capability = "quality_manager"
)

var validCapabilities = map[Capability]bool{
	CapabilityAuthor:         true,
	CapabilityReviewer:       true,
	CapabilityApprover:       true,
	CapabilityQualityManager: true,
}

// ParseCapability constructs a Capability from external input.
func ParseCapability(s string) (Capability, error) {
	c := Capability(s)
	if !validCapabilities[c] {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown capability %q", s)
	}
	return c, nil
}

func (c Capability) IsValid() bool { return validCapabilities[c] }

// Grant gives an actor a capability for a bounded period. A nil DocumentID
// scopes the grant to all documents; otherwise it applies to one document
// only. An expired grant evaluates as absent, not as present-but-flagged.
type Grant struct {
	ActorID    id.ActorID
	Capability Capability
	DocumentID *id.DocumentID
	ValidFrom  time.Time
	ValidUntil *time.Time
}

// ActiveAt reports whether the grant is in force at the given instant.
func (g Grant) ActiveAt(now time.Time) bool {
	if now.Before(g.ValidFrom) {
		return false
	}
	if g.ValidUntil != nil && !now.Before(*g.ValidUntil) {
		return false
	}
	return true
}

// AppliesTo reports whether the grant covers the given document.
func (g Grant) AppliesTo(docID id.DocumentID) bool {
	return g.DocumentID == nil || *g.DocumentID == docID
}

// ResourceContext carries the document facts contextual rules need: who
// owns it and who is assigned to review it.
type ResourceContext struct {
	DocumentID        id.DocumentID
	OwnerID           id.ActorID
	AssignedReviewers []id.ActorID
}
