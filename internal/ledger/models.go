// Package ledger is the append-only, hash-chained audit trail. Every
// transition attempt on a document, denials included, becomes exactly one
// entry. Entries are never modified or removed; tampering through the
// storage layer is detected by chain verification, which makes this a
// detective control, not a preventive one.
package ledger

import (
	"time"

	"docgov/internal/document/models"
	id "docgov/pkg/domain"
)

// payloadVersion tags the serialized payload so chains remain verifiable
// years after creation.
const payloadVersion = 1

// genesisHash is the previous-hash value of the first entry in every
// document's chain.
const genesisHash = "genesis"

// Entry is one link in a document's audit chain.
// EntryHash = sha256(serialize(payload) || PrevHash); the payload covers
// the sequence number and timestamp, so reordering is as detectable as
// content edits.
type Entry struct {
	ID         id.EntryID              `json:"id"`
	DocumentID id.DocumentID           `json:"document_id"`
	Seq        uint64                  `json:"seq"`
	Payload    models.TransitionRecord `json:"payload"`
	PrevHash   string                  `json:"prev_hash"`
	EntryHash  string                  `json:"entry_hash"`
	RecordedAt time.Time               `json:"recorded_at"`
}

// ChainVerificationResult reports a full walk of one document's chain.
// Divergence points at the first entry whose stored hash, linkage, or
// sequence number fails recomputation.
type ChainVerificationResult struct {
	DocumentID     id.DocumentID
	OK             bool
	CheckedThrough uint64
	DivergenceSeq  *uint64
	Reason         string
}
