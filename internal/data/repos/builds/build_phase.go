package builds

import (
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/upsert"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type BuildPhaseRepo interface {
	FindOrCreate(dbc dbctx.Context, buildID int64, name string) (*types.BuildPhase, bool, error)
	Update(dbc dbctx.Context, id int64, status string, output *string) error
	GetByID(dbc dbctx.Context, id int64) (*types.BuildPhase, error)
	ListForBuild(dbc dbctx.Context, buildID int64) ([]*types.BuildPhase, error)
}

type buildPhaseRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
}

func NewBuildPhaseRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) BuildPhaseRepo {
	return &buildPhaseRepo{
		db:     db,
		log:    baseLog.With("repo", "BuildPhaseRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
	}
}

func (r *buildPhaseRepo) FindOrCreate(dbc dbctx.Context, buildID int64, name string) (*types.BuildPhase, bool, error) {
	return upsert.FindOrCreate(dbc, r.finder, &types.BuildPhase{BuildID: buildID, Name: name}, map[string]any{
		"build_id": buildID,
		"name":     name,
	})
}

// Update sets the status and, when output is non-nil, replaces the output text.
func (r *buildPhaseRepo) Update(dbc dbctx.Context, id int64, status string, output *string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	updates := map[string]any{"status": status}
	if output != nil {
		updates["output"] = *output
	}
	return t.WithContext(dbc.Ctx).Model(&types.BuildPhase{}).Where("id = ?", id).Updates(updates).Error
}

func (r *buildPhaseRepo) GetByID(dbc dbctx.Context, id int64) (*types.BuildPhase, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.BuildPhase
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *buildPhaseRepo) ListForBuild(dbc dbctx.Context, buildID int64) ([]*types.BuildPhase, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.BuildPhase
	err := t.WithContext(dbc.Ctx).Where("build_id = ?", buildID).Order("id ASC").Find(&out).Error
	return out, err
}
