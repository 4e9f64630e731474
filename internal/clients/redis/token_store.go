package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const jtiPrefix = "spackmon:jti:"

// TokenStore keeps issued JWT ids until they expire.
type TokenStore struct {
	rdb *goredis.Client
}

func NewTokenStore(rdb *goredis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

func (s *TokenStore) Remember(ctx context.Context, jti, userID uuid.UUID, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, jtiPrefix+jti.String(), userID.String(), ttl).Err()
}

func (s *TokenStore) Active(ctx context.Context, jti uuid.UUID) (bool, error) {
	err := s.rdb.Get(ctx, jtiPrefix+jti.String()).Err()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *TokenStore) Revoke(ctx context.Context, jti uuid.UUID) error {
	return s.rdb.Del(ctx, jtiPrefix+jti.String()).Err()
}
