package specs

import (
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/upsert"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type DependencyRepo interface {
	CountForSpec(dbc dbctx.Context, specID int64) (int64, error)
	Link(dbc dbctx.Context, ownerID, dependencySpecID int64, dependencyType string) (*types.Dependency, bool, error)
	ListForSpec(dbc dbctx.Context, specID int64) ([]*types.Dependency, error)
	ListForSpecs(dbc dbctx.Context, specIDs []int64) ([]*types.Dependency, error)
}

type dependencyRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
}

func NewDependencyRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) DependencyRepo {
	return &dependencyRepo{
		db:     db,
		log:    baseLog.With("repo", "DependencyRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
	}
}

func (r *dependencyRepo) CountForSpec(dbc dbctx.Context, specID int64) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	err := t.WithContext(dbc.Ctx).Model(&types.Dependency{}).Where("spec_id = ?", specID).Count(&n).Error
	return n, err
}

// Link attaches dependencySpecID to ownerID. dependencyType must already be canonical.
func (r *dependencyRepo) Link(dbc dbctx.Context, ownerID, dependencySpecID int64, dependencyType string) (*types.Dependency, bool, error) {
	row := &types.Dependency{SpecID: ownerID, DependencySpecID: dependencySpecID, DependencyType: dependencyType}
	return upsert.FindOrCreate(dbc, r.finder, row, map[string]any{
		"spec_id":            ownerID,
		"dependency_spec_id": dependencySpecID,
		"dependency_type":    dependencyType,
	})
}

func (r *dependencyRepo) ListForSpec(dbc dbctx.Context, specID int64) ([]*types.Dependency, error) {
	return r.ListForSpecs(dbc, []int64{specID})
}

func (r *dependencyRepo) ListForSpecs(dbc dbctx.Context, specIDs []int64) ([]*types.Dependency, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Dependency
	if len(specIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Preload("DependencySpec").
		Where("spec_id IN ?", specIDs).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
