package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/repos"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
)

// TokenStore tracks issued JWT ids. A token whose id is not active is refused even when its
// signature and expiry are valid.
type TokenStore interface {
	Remember(ctx context.Context, jti, userID uuid.UUID, expiresAt time.Time) error
	Active(ctx context.Context, jti uuid.UUID) (bool, error)
	Revoke(ctx context.Context, jti uuid.UUID) error
}

type dbTokenStore struct {
	tokens repos.UserTokenRepo
}

// NewDBTokenStore keeps token ids in the user_tokens table.
func NewDBTokenStore(tokens repos.UserTokenRepo) TokenStore {
	return &dbTokenStore{tokens: tokens}
}

func (s *dbTokenStore) Remember(ctx context.Context, jti, userID uuid.UUID, expiresAt time.Time) error {
	return s.tokens.Create(dbctx.Context{Ctx: ctx}, &types.UserToken{ID: jti, UserID: userID, ExpiresAt: expiresAt})
}

func (s *dbTokenStore) Active(ctx context.Context, jti uuid.UUID) (bool, error) {
	tok, err := s.tokens.GetByID(dbctx.Context{Ctx: ctx}, jti)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tok.Active(time.Now()), nil
}

func (s *dbTokenStore) Revoke(ctx context.Context, jti uuid.UUID) error {
	return s.tokens.Revoke(dbctx.Context{Ctx: ctx}, jti, time.Now())
}

// PurgeExpired deletes token rows that expired before the cutoff.
func (s *dbTokenStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	return s.tokens.DeleteExpired(dbctx.Context{Ctx: ctx}, before)
}

// TokenPurger is implemented by stores that need expired ids removed; redis expires keys
// on its own.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
