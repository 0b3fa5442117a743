// Package content provides the content-addressed blob store the core reads
// when binding a signature to document bytes. The digest is always computed
// here, from the authoritative bytes, immediately before signing; callers
// never supply a digest the store did not just produce.
package content

import (
	"context"
	"sync"

	"github.com/opencontainers/go-digest"

	dErrors "docgov/pkg/domain-errors"
)

// ErrBlobNotFound is returned when no blob exists for a digest.
var ErrBlobNotFound = dErrors.New(dErrors.CodeNotFound, "content blob not found")

// InMemoryBlobStore keys immutable blobs by their sha256 digest.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[digest.Digest][]byte
}

func NewMemory() *InMemoryBlobStore {
	return &InMemoryBlobStore{blobs: make(map[digest.Digest][]byte)}
}

// Put stores the blob and returns its digest. Storing the same bytes twice
// is a no-op; blobs are immutable by construction.
func (s *InMemoryBlobStore) Put(_ context.Context, data []byte) (digest.Digest, error) {
	dgst := digest.FromBytes(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blobs[dgst]; !exists {
		stored := make([]byte, len(data))
		copy(stored, data)
		s.blobs[dgst] = stored
	}
	return dgst, nil
}

// Get returns the blob for a digest.
func (s *InMemoryBlobStore) Get(_ context.Context, dgst digest.Digest) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.blobs[dgst]
	if !exists {
		return nil, ErrBlobNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Digest recomputes the digest of the stored blob. Used right before
// signing so the signature binds to what the store actually holds, not to
// a digest the caller remembered.
func (s *InMemoryBlobStore) Digest(ctx context.Context, dgst digest.Digest) (digest.Digest, error) {
	data, err := s.Get(ctx, dgst)
	if err != nil {
		return "", err
	}
	return digest.FromBytes(data), nil
}
