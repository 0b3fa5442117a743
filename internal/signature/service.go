package signature

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"time"

	"github.com/opencontainers/go-digest"

	"docgov/internal/signature/keystore"
	"docgov/internal/signature/revocation"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

// ErrSigningKeyUnavailable is what callers see for any failure to obtain
// key material: missing, expired, revoked, wrong intent, or a timed-out
// key-management call. The transition aborts either way.
var ErrSigningKeyUnavailable = keystore.ErrKeyUnavailable

const algorithmEd25519 = "ed25519"

// Service signs content digests and verifies existing records.
type Service struct {
	keys        keystore.Store
	revocations revocation.Store
	logger      *slog.Logger
	clock       func() time.Time

	// signTimeout bounds the key-management call; timeouts surface as
	// ErrSigningKeyUnavailable with no partial signature.
	signTimeout time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithSignTimeout(d time.Duration) Option {
	return func(s *Service) { s.signTimeout = d }
}

func New(keys keystore.Store, revocations revocation.Store, opts ...Option) (*Service, error) {
	if keys == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "key store is required")
	}
	if revocations == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "revocation store is required")
	}
	svc := &Service{
		keys:        keys,
		revocations: revocations,
		clock:       time.Now,
		signTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Sign produces a signature record over the given content digest. The
// digest must have been recomputed from the authoritative content store
// immediately before the call. The record is returned, not persisted;
// persistence happens inside the transition commit so an aborted
// transition leaves no orphan signature.
func (s *Service) Sign(ctx context.Context, signerID id.ActorID, contentDigest digest.Digest, meaning, intent string) (*SignatureRecord, error) {
	if signerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "signer id is required")
	}
	if contentDigest == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "content digest is required")
	}
	if meaning == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "signature meaning is required")
	}

	keyCtx, cancel := context.WithTimeout(ctx, s.signTimeout)
	defer cancel()

	signer, err := s.keys.Signer(keyCtx, signerID, intent)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "key store timed out")
		}
		return nil, err
	}

	// Revocation blocks new signatures too, not just verification.
	revoked, err := s.revocations.IsRevoked(ctx, signer.KeyID())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation")
	}
	if revoked {
		return nil, ErrSigningKeyUnavailable
	}

	signedAt := s.clock().UTC()
	payload := canonicalPayload(contentDigest, signedAt, signerID)
	sig, err := signer.Sign(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "signing failed")
	}

	rec := &SignatureRecord{
		Version:       recordVersion,
		ID:            id.NewSignatureID(),
		SignerID:      signerID,
		ContentDigest: contentDigest,
		Meaning:       meaning,
		SignedAt:      signedAt,
		Algorithm:     algorithmEd25519,
		KeyID:         signer.KeyID(),
		PublicKey:     append([]byte(nil), signer.PublicKey()...),
		Signature:     sig,
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "signature produced",
			"signer_id", signerID,
			"key_id", rec.KeyID,
			"meaning", meaning,
		)
	}
	return rec, nil
}

// Verify recomputes the record's validity against the expected digest and
// current certificate state. Called fresh every time validity is displayed
// or relied upon; a result is never cached.
func (s *Service) Verify(ctx context.Context, rec SignatureRecord, expectedDigest digest.Digest) (VerificationResult, error) {
	if rec.Version != recordVersion {
		return invalid("unsupported record version"), nil
	}
	if rec.ContentDigest != expectedDigest {
		return invalid("content digest mismatch"), nil
	}
	if rec.Algorithm != algorithmEd25519 {
		return invalid("unsupported algorithm"), nil
	}
	if len(rec.PublicKey) != ed25519.PublicKeySize {
		return invalid("malformed public key"), nil
	}

	payload := canonicalPayload(rec.ContentDigest, rec.SignedAt, rec.SignerID)
	if !ed25519.Verify(ed25519.PublicKey(rec.PublicKey), payload, rec.Signature) {
		return invalid("signature does not verify"), nil
	}

	// Certificate state is consulted live: expiry and revocation can change
	// long after the signature was produced.
	cert, err := s.keys.Certificate(ctx, rec.KeyID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeCrypto) {
			return invalid("signing certificate unknown"), nil
		}
		return VerificationResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	if !cert.PublicKey.Equal(ed25519.PublicKey(rec.PublicKey)) {
		return invalid("public key does not match certificate"), nil
	}
	if cert.ExpiredAt(s.clock()) {
		return expired("signing certificate expired"), nil
	}

	revoked, err := s.revocations.IsRevoked(ctx, rec.KeyID)
	if err != nil {
		return VerificationResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation")
	}
	if revoked {
		return invalid("signing certificate revoked"), nil
	}

	return valid(), nil
}
