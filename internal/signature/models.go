// Package signature produces and verifies the electronic signatures that
// bind a signer identity, a content digest, and a timestamp. Validity is
// always recomputed at verification time; nothing here stores an
// is-valid flag that could go stale when certificate state changes.
package signature

import (
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"

	id "docgov/pkg/domain"
)

// recordVersion tags the serialized form so records remain verifiable
// years after creation, independent of runtime changes.
const recordVersion = 1

// SignatureRecord is an immutable signing event. Owned by the transition
// record that produced it.
type SignatureRecord struct {
	Version       int            `json:"v"`
	ID            id.SignatureID `json:"id"`
	SignerID      id.ActorID     `json:"signer_id"`
	ContentDigest digest.Digest  `json:"content_digest"`

	// Meaning is the human-readable purpose of the signature, e.g.
	// "Approved" or "Reviewed".
	Meaning string `json:"meaning"`

	SignedAt  time.Time `json:"signed_at"`
	Algorithm string    `json:"alg"`
	KeyID     string    `json:"key_id"`
	PublicKey []byte    `json:"public_key"`
	Signature []byte    `json:"signature"`
}

// canonicalPayload is the exact byte sequence that gets signed:
// contentDigest || timestamp || signerId, pipe-separated, timestamp in
// RFC 3339 nano UTC. Changing this breaks verification of every existing
// signature, so it is frozen at record version 1.
func canonicalPayload(contentDigest digest.Digest, signedAt time.Time, signerID id.ActorID) []byte {
	return fmt.Appendf(nil, "%s|%s|%s",
		contentDigest, signedAt.UTC().Format(time.RFC3339Nano), signerID)
}

// VerificationStatus classifies a fresh verification pass.
type VerificationStatus string

const (
	StatusValid              VerificationStatus = "valid"
	StatusInvalid            VerificationStatus = "invalid"
	StatusCertificateExpired VerificationStatus = "certificate_expired"
)

// VerificationResult is computed per call and never persisted.
type VerificationResult struct {
	Status VerificationStatus
	Reason string
}

func valid() VerificationResult {
	return VerificationResult{Status: StatusValid}
}

func invalid(reason string) VerificationResult {
	return VerificationResult{Status: StatusInvalid, Reason: reason}
}

func expired(reason string) VerificationResult {
	return VerificationResult{Status: StatusCertificateExpired, Reason: reason}
}
