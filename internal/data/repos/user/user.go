package user

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, u *types.User) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByUsername(dbc dbctx.Context, username string) (*types.User, error)
	SetTokenHash(dbc dbctx.Context, id uuid.UUID, tokenHash string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Create(dbc dbctx.Context, u *types.User) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	return transaction.WithContext(dbc.Ctx).Create(u).Error
}

func (ur *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	var out types.User
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (ur *userRepo) GetByUsername(dbc dbctx.Context, username string) (*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	var out types.User
	if err := transaction.WithContext(dbc.Ctx).Where("username = ?", username).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (ur *userRepo) SetTokenHash(dbc dbctx.Context, id uuid.UUID, tokenHash string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("id = ?", id).
		Update("token_hash", tokenHash).Error
}
