package transition

import (
	"docgov/internal/document/models"
)

// Guard is a transition-specific predicate evaluated after authorization.
// Guards are pure over the document and the request; a false result aborts
// the transition with the returned reason.
type Guard func(doc models.ControlledDocument, req Request) (bool, string)

// ContentPresent refuses to move a document forward while it has no content
// associated.
func ContentPresent(doc models.ControlledDocument, _ Request) (bool, string) {
	if doc.ContentDigest == "" {
		return false, "document has no content"
	}
	return true, ""
}

// CommentRequired refuses rejections and returns-to-draft without an
// explanation on record.
func CommentRequired(_ models.ControlledDocument, req Request) (bool, string) {
	if req.Comment == "" {
		return false, "a comment explaining the decision is required"
	}
	return true, ""
}
