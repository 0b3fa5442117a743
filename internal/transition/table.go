package transition

import (
	"docgov/internal/document/models"
	policymodels "docgov/internal/policy/models"
	dErrors "docgov/pkg/domain-errors"
)

// Transition is one edge in a document type's lifecycle graph. The table is
// data, not code: the engine is generic over it, and the table itself is
// unit-testable without the engine.
type Transition struct {
	Source             models.LifecycleState
	Action             string
	Target             models.LifecycleState
	RequiredCapability policymodels.Capability

	// RequiresSignature transitions produce a signature over the document's
	// current content digest before committing. Meaning is the human-readable
	// signing statement and is required when RequiresSignature is set.
	RequiresSignature bool
	Meaning           string

	// Guard is an optional predicate evaluated after authorization. A false
	// result aborts the transition with the returned reason.
	Guard Guard
}

type tableKey struct {
	source models.LifecycleState
	action string
}

// Table holds the transitions for one document type.
type Table struct {
	docType     models.DocumentType
	transitions map[tableKey]Transition
	actions     map[string]bool
}

// NewTable builds and validates a table. Duplicate (source, action) pairs,
// invalid states, invalid capabilities, and signature transitions without a
// meaning are all construction errors.
func NewTable(docType models.DocumentType, transitions []Transition) (*Table, error) {
	t := &Table{
		docType:     docType,
		transitions: make(map[tableKey]Transition, len(transitions)),
		actions:     make(map[string]bool, len(transitions)),
	}
	for _, tr := range transitions {
		if !tr.Source.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeInternal, "%s table: invalid source state %q", docType, tr.Source)
		}
		if !tr.Target.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeInternal, "%s table: invalid target state %q", docType, tr.Target)
		}
		if tr.Action == "" {
			return nil, dErrors.Newf(dErrors.CodeInternal, "%s table: transition from %s has no action", docType, tr.Source)
		}
		if !tr.RequiredCapability.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeInternal, "%s table: action %q has invalid capability %q", docType, tr.Action, tr.RequiredCapability)
		}
		if tr.RequiresSignature && tr.Meaning == "" {
			return nil, dErrors.Newf(dErrors.CodeInternal, "%s table: signing action %q has no meaning", docType, tr.Action)
		}
		key := tableKey{source: tr.Source, action: tr.Action}
		if _, exists := t.transitions[key]; exists {
			return nil, dErrors.Newf(dErrors.CodeInternal, "%s table: duplicate transition (%s, %s)", docType, tr.Source, tr.Action)
		}
		t.transitions[key] = tr
		t.actions[tr.Action] = true
	}
	return t, nil
}

// Lookup finds the transition registered for (source, action).
func (t *Table) Lookup(source models.LifecycleState, action string) (Transition, bool) {
	tr, ok := t.transitions[tableKey{source: source, action: action}]
	return tr, ok
}

// KnowsAction reports whether any transition in the table uses this action.
// Distinguishes an unknown action (NoSuchTransition) from a known action
// requested against the wrong current state (StaleState).
func (t *Table) KnowsAction(action string) bool {
	return t.actions[action]
}

// Tables maps document types to their lifecycle tables.
type Tables map[models.DocumentType]*Table

// ForType returns the table governing a document type.
func (ts Tables) ForType(docType models.DocumentType) (*Table, error) {
	t, ok := ts[docType]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInternal, "no lifecycle table for document type %q", docType)
	}
	return t, nil
}

// Actions used by more than one table.
const (
	ActionSubmitForReview = "submit_for_review"
	ActionApproveReview   = "approve_review"
	ActionReturnToDraft   = "return_to_draft"
	ActionSubmitApproval  = "submit_for_approval"
	ActionApproveFinal    = "approve_final"
	ActionRejectFinal     = "reject_final"
	ActionRevise          = "revise"
	ActionCloseEvent      = "close_event"
	ActionObsolete        = "obsolete"

	// ActionSupersede is the system-initiated obsolete applied to a
	// predecessor when its successor revision is approved.
	ActionSupersede = "supersede"
)

// DefaultTables returns the standard lifecycle tables for controlled SOPs
// and quality-event records.
func DefaultTables() (Tables, error) {
	sop, err := NewTable(models.DocTypeSOP, []Transition{
		{
			Source:             models.StateDraft,
			Action:             ActionSubmitForReview,
			Target:             models.StatePendingReview,
			RequiredCapability: policymodels.CapabilityAuthor,
			Guard:              ContentPresent,
		},
		{
			Source:             models.StatePendingReview,
			Action:             ActionApproveReview,
			Target:             models.StateReviewed,
			RequiredCapability: policymodels.CapabilityReviewer,
		},
		{
			Source:             models.StatePendingReview,
			Action:             ActionReturnToDraft,
			Target:             models.StateDraft,
			RequiredCapability: policymodels.CapabilityReviewer,
			Guard:              CommentRequired,
		},
		{
			Source:             models.StateReviewed,
			Action:             ActionSubmitApproval,
			Target:             models.StatePendingApproval,
			RequiredCapability: policymodels.CapabilityAuthor,
		},
		{
			Source:             models.StatePendingApproval,
			Action:             ActionApproveFinal,
			Target:             models.StateApproved,
			RequiredCapability: policymodels.CapabilityApprover,
			RequiresSignature:  true,
			Meaning:            "Approved",
		},
		{
			Source:             models.StatePendingApproval,
			Action:             ActionRejectFinal,
			Target:             models.StateRejected,
			RequiredCapability: policymodels.CapabilityApprover,
			Guard:              CommentRequired,
		},
		{
			Source:             models.StateRejected,
			Action:             ActionRevise,
			Target:             models.StateDraft,
			RequiredCapability: policymodels.CapabilityAuthor,
		},
		{
			Source:             models.StateApproved,
			Action:             ActionObsolete,
			Target:             models.StateObsolete,
			RequiredCapability: policymodels.CapabilityQualityManager,
		},
		{
			Source:             models.StateApproved,
			Action:             ActionSupersede,
			Target:             models.StateObsolete,
			RequiredCapability: policymodels.CapabilityQualityManager,
		},
	})
	if err != nil {
		return nil, err
	}

	// Quality events skip the two-stage approval: the quality manager both
	// reviews and closes, and closure carries the signature.
	qualityEvent, err := NewTable(models.DocTypeQualityEvent, []Transition{
		{
			Source:             models.StateDraft,
			Action:             ActionSubmitForReview,
			Target:             models.StatePendingReview,
			RequiredCapability: policymodels.CapabilityAuthor,
			Guard:              ContentPresent,
		},
		{
			Source:             models.StatePendingReview,
			Action:             ActionApproveReview,
			Target:             models.StateReviewed,
			RequiredCapability: policymodels.CapabilityQualityManager,
		},
		{
			Source:             models.StatePendingReview,
			Action:             ActionReturnToDraft,
			Target:             models.StateDraft,
			RequiredCapability: policymodels.CapabilityQualityManager,
			Guard:              CommentRequired,
		},
		{
			Source:             models.StateReviewed,
			Action:             ActionCloseEvent,
			Target:             models.StateApproved,
			RequiredCapability: policymodels.CapabilityQualityManager,
			RequiresSignature:  true,
			Meaning:            "Closed",
		},
		{
			Source:             models.StateApproved,
			Action:             ActionObsolete,
			Target:             models.StateObsolete,
			RequiredCapability: policymodels.CapabilityQualityManager,
		},
		{
			Source:             models.StateApproved,
			Action:             ActionSupersede,
			Target:             models.StateObsolete,
			RequiredCapability: policymodels.CapabilityQualityManager,
		},
	})
	if err != nil {
		return nil, err
	}

	return Tables{
		models.DocTypeSOP:          sop,
		models.DocTypeQualityEvent: qualityEvent,
	}, nil
}
