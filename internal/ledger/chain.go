package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"docgov/internal/document/models"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

// payloadEnvelope is the exact byte layout that gets hashed. Field order
// and content are frozen at version 1; any change requires a new version
// and dual-path verification.
type payloadEnvelope struct {
	Version    int                     `json:"v"`
	DocumentID id.DocumentID           `json:"document_id"`
	Seq        uint64                  `json:"seq"`
	RecordedAt time.Time               `json:"recorded_at"`
	Record     models.TransitionRecord `json:"record"`
}

// encodePayload produces the canonical serialized payload for hashing.
func encodePayload(e Entry) ([]byte, error) {
	b, err := json.Marshal(payloadEnvelope{
		Version:    payloadVersion,
		DocumentID: e.DocumentID,
		Seq:        e.Seq,
		RecordedAt: e.RecordedAt.UTC(),
		Record:     e.Payload,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode ledger payload")
	}
	return b, nil
}

// computeEntryHash chains an entry to its predecessor:
// sha256(payload || "|" || prevHash), hex, sha256-prefixed.
func computeEntryHash(payload []byte, prevHash string) string {
	h := sha256.New()
	h.Write(payload)
	fmt.Fprintf(h, "|%s", prevHash)
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// hashEntry computes the hash an entry should carry given its contents.
func hashEntry(e Entry) (string, error) {
	payload, err := encodePayload(e)
	if err != nil {
		return "", err
	}
	return computeEntryHash(payload, e.PrevHash), nil
}

// verifyEntries walks a complete, ordered chain and reports the first
// divergence: a sequence gap, a broken previous-hash link, or a stored
// hash that no longer matches recomputation.
func verifyEntries(docID id.DocumentID, entries []Entry) ChainVerificationResult {
	result := ChainVerificationResult{DocumentID: docID, OK: true}

	prevHash := genesisHash
	var expectedSeq uint64 = 1
	for _, e := range entries {
		if e.Seq != expectedSeq {
			seq := e.Seq
			return ChainVerificationResult{
				DocumentID:     docID,
				CheckedThrough: expectedSeq - 1,
				DivergenceSeq:  &seq,
				Reason:         fmt.Sprintf("sequence gap: expected %d, found %d", expectedSeq, e.Seq),
			}
		}
		if e.PrevHash != prevHash {
			seq := e.Seq
			return ChainVerificationResult{
				DocumentID:     docID,
				CheckedThrough: e.Seq - 1,
				DivergenceSeq:  &seq,
				Reason:         "previous-hash link broken",
			}
		}
		recomputed, err := hashEntry(e)
		if err != nil {
			seq := e.Seq
			return ChainVerificationResult{
				DocumentID:     docID,
				CheckedThrough: e.Seq - 1,
				DivergenceSeq:  &seq,
				Reason:         "payload not decodable: " + err.Error(),
			}
		}
		if recomputed != e.EntryHash {
			seq := e.Seq
			return ChainVerificationResult{
				DocumentID:     docID,
				CheckedThrough: e.Seq - 1,
				DivergenceSeq:  &seq,
				Reason:         "entry hash mismatch",
			}
		}
		prevHash = e.EntryHash
		expectedSeq++
	}

	result.CheckedThrough = expectedSeq - 1
	return result
}
