package revocation

import (
	"context"

	platformredis "docgov/internal/platform/redis"
	dErrors "docgov/pkg/domain-errors"
)

const revokedKeyPrefix = "docgov:revoked_key:"

// RedisRevocationStore shares the revocation list across processes.
// Entries have no TTL; revocation is permanent.
type RedisRevocationStore struct {
	client *platformredis.Client
}

func NewRedis(client *platformredis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, keyID string) error {
	if err := s.client.Set(ctx, revokedKeyPrefix+keyID, "1", 0).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "record revocation")
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, keyID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+keyID).Result()
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "check revocation")
	}
	return n > 0, nil
}
