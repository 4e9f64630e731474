package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type UserTokenRepo interface {
	Create(dbc dbctx.Context, token *types.UserToken) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UserToken, error)
	Revoke(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	RevokeForUser(dbc dbctx.Context, userID uuid.UUID, at time.Time) (int64, error)
	DeleteExpired(dbc dbctx.Context, before time.Time) (int64, error)
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	repoLog := baseLog.With("repo", "UserTokenRepo")
	return &userTokenRepo{db: db, log: repoLog}
}

func (r *userTokenRepo) Create(dbc dbctx.Context, token *types.UserToken) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(token).Error
}

func (r *userTokenRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UserToken, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.UserToken
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userTokenRepo) Revoke(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.UserToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
}

func (r *userTokenRepo) RevokeForUser(dbc dbctx.Context, userID uuid.UUID, at time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.UserToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at)
	return res.RowsAffected, res.Error
}

func (r *userTokenRepo) DeleteExpired(dbc dbctx.Context, before time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).Where("expires_at < ?", before).Delete(&types.UserToken{})
	return res.RowsAffected, res.Error
}
