// Package keystore manages signer key material. The signature service
// borrows a Signer for the duration of one call; private keys never leave
// this package and are never cached by callers.
//
// Releasing key material requires a signing-intent passphrase check, the
// re-authentication step electronic-records rules expect at the moment of
// signing.
package keystore

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

var (
	// ErrKeyUnavailable covers missing, expired, and not-yet-valid key
	// material. Callers must treat it as transition-blocking.
	ErrKeyUnavailable = dErrors.New(dErrors.CodeCrypto, "signing key unavailable")

	// ErrIntentRejected means the signing-intent passphrase did not match.
	// Same blocking semantics as an unavailable key.
	ErrIntentRejected = dErrors.New(dErrors.CodeCrypto, "signing intent rejected")
)

// Signer is scoped key material for one signing call.
type Signer interface {
	KeyID() string
	PublicKey() ed25519.PublicKey
	Sign(payload []byte) ([]byte, error)
}

// Certificate is the public half of a signer's key with its validity
// window. Verification consults this for current expiry state.
type Certificate struct {
	KeyID     string
	SignerID  id.ActorID
	PublicKey ed25519.PublicKey
	NotBefore time.Time
	NotAfter  time.Time
}

// ExpiredAt reports whether the certificate is outside its validity window
// at the given instant.
func (c Certificate) ExpiredAt(now time.Time) bool {
	return now.Before(c.NotBefore) || now.After(c.NotAfter)
}

// Store is the key-management boundary. Implementations may call out to an
// external KMS; all methods honor context cancellation.
type Store interface {
	// Signer releases scoped signing material after verifying the signing
	// intent passphrase. Returns ErrKeyUnavailable or ErrIntentRejected.
	Signer(ctx context.Context, signerID id.ActorID, intent string) (Signer, error)

	// Certificate returns the public certificate for a key id.
	Certificate(ctx context.Context, keyID string) (Certificate, error)
}

type enrolledKey struct {
	keyID      string
	signerID   id.ActorID
	private    ed25519.PrivateKey
	public     ed25519.PublicKey
	intentHash []byte
	notBefore  time.Time
	notAfter   time.Time
}

// InMemoryKeyStore holds Ed25519 keys in process memory. Development and
// test wiring; a production deployment fronts an external KMS behind the
// same interface.
type InMemoryKeyStore struct {
	mu      sync.RWMutex
	byActor map[id.ActorID]*enrolledKey
	byKeyID map[string]*enrolledKey
	clock   func() time.Time
}

func NewMemory() *InMemoryKeyStore {
	return &InMemoryKeyStore{
		byActor: make(map[id.ActorID]*enrolledKey),
		byKeyID: make(map[string]*enrolledKey),
		clock:   time.Now,
	}
}

// WithClock overrides the time source for expiry tests.
func (s *InMemoryKeyStore) WithClock(clock func() time.Time) *InMemoryKeyStore {
	s.clock = clock
	return s
}

// Enroll generates a key pair for the signer, protected by the given
// signing-intent passphrase, valid for the given duration. Re-enrolling
// replaces the actor's previous key; old certificates stay resolvable by
// key id so historical signatures remain verifiable.
func (s *InMemoryKeyStore) Enroll(_ context.Context, signerID id.ActorID, intent string, validFor time.Duration) (string, error) {
	if signerID.IsNil() {
		return "", dErrors.New(dErrors.CodeBadRequest, "signer id is required")
	}
	if intent == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "signing intent passphrase is required")
	}

	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCrypto, "generate key pair")
	}
	intentHash, err := bcrypt.GenerateFromPassword([]byte(intent), bcrypt.DefaultCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeCrypto, "hash signing intent")
	}

	now := s.clock()
	key := &enrolledKey{
		keyID:      id.NewSignatureID().String(),
		signerID:   signerID,
		private:    private,
		public:     public,
		intentHash: intentHash,
		notBefore:  now,
		notAfter:   now.Add(validFor),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byActor[signerID] = key
	s.byKeyID[key.keyID] = key
	return key.keyID, nil
}

func (s *InMemoryKeyStore) Signer(ctx context.Context, signerID id.ActorID, intent string) (Signer, error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCrypto, "key store call cancelled")
	}

	s.mu.RLock()
	key, exists := s.byActor[signerID]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrKeyUnavailable
	}
	now := s.clock()
	if now.Before(key.notBefore) || now.After(key.notAfter) {
		return nil, ErrKeyUnavailable
	}
	if err := bcrypt.CompareHashAndPassword(key.intentHash, []byte(intent)); err != nil {
		return nil, ErrIntentRejected
	}
	return &memorySigner{key: key}, nil
}

func (s *InMemoryKeyStore) Certificate(ctx context.Context, keyID string) (Certificate, error) {
	if err := ctx.Err(); err != nil {
		return Certificate{}, dErrors.Wrap(err, dErrors.CodeCrypto, "key store call cancelled")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key, exists := s.byKeyID[keyID]
	if !exists {
		return Certificate{}, ErrKeyUnavailable
	}
	return Certificate{
		KeyID:     key.keyID,
		SignerID:  key.signerID,
		PublicKey: key.public,
		NotBefore: key.notBefore,
		NotAfter:  key.notAfter,
	}, nil
}

type memorySigner struct {
	key *enrolledKey
}

func (m *memorySigner) KeyID() string                { return m.key.keyID }
func (m *memorySigner) PublicKey() ed25519.PublicKey { return m.key.public }

func (m *memorySigner) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(m.key.private, payload), nil
}
