package builds

import (
	"sort"

	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/upsert"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/domain/builds"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type EnvarRepo interface {
	// ReplaceForBuild swaps the build's variable set for vars. Rows that only this build
	// referenced are deleted; rows shared with other builds or still in vars survive.
	ReplaceForBuild(dbc dbctx.Context, buildID int64, vars map[string]string) (deleted int64, err error)
	ListForBuild(dbc dbctx.Context, buildID int64) ([]*types.EnvironmentVariable, error)
	ReferenceCount(dbc dbctx.Context, envarID int64) (int64, error)
}

type envarRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
}

func NewEnvarRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) EnvarRepo {
	return &envarRepo{
		db:     db,
		log:    baseLog.With("repo", "EnvarRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
	}
}

func (r *envarRepo) ReplaceForBuild(dbc dbctx.Context, buildID int64, vars map[string]string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	dbc = dbctx.Context{Ctx: dbc.Ctx, Tx: t}
	conn := t.WithContext(dbc.Ctx)

	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	keep := make(map[int64]struct{}, len(names))
	links := make([]types.BuildEnvar, 0, len(names))
	for _, name := range names {
		value := vars[name]
		hash := builds.HashEnvarValue(value)
		ev, _, err := upsert.FindOrCreate(dbc, r.finder,
			&types.EnvironmentVariable{Name: name, Value: value, ValueHash: hash},
			map[string]any{"name": name, "value_hash": hash},
		)
		if err != nil {
			return 0, err
		}
		keep[ev.ID] = struct{}{}
		links = append(links, types.BuildEnvar{BuildID: buildID, EnvironmentVariableID: ev.ID})
	}

	var previous []int64
	if err := conn.Model(&types.BuildEnvar{}).
		Where("build_id = ?", buildID).
		Pluck("environment_variable_id", &previous).Error; err != nil {
		return 0, err
	}
	dropped := make([]int64, 0, len(previous))
	for _, id := range previous {
		if _, ok := keep[id]; !ok {
			dropped = append(dropped, id)
		}
	}

	var deleted int64
	if len(dropped) > 0 {
		if err := conn.
			Where("build_id = ? AND environment_variable_id IN ?", buildID, dropped).
			Delete(&types.BuildEnvar{}).Error; err != nil {
			return 0, err
		}
		res := conn.
			Where("id IN ?", dropped).
			Where("NOT EXISTS (SELECT 1 FROM build_envars be WHERE be.environment_variable_id = environment_variables.id)").
			Delete(&types.EnvironmentVariable{})
		if res.Error != nil {
			return 0, res.Error
		}
		deleted = res.RowsAffected
	}

	if _, err := upsert.LinkIgnoreDuplicates(dbc, r.db, links, "build_id", "environment_variable_id"); err != nil {
		return deleted, err
	}
	return deleted, nil
}

func (r *envarRepo) ListForBuild(dbc dbctx.Context, buildID int64) ([]*types.EnvironmentVariable, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.EnvironmentVariable
	err := t.WithContext(dbc.Ctx).
		Joins("JOIN build_envars be ON be.environment_variable_id = environment_variables.id").
		Where("be.build_id = ?", buildID).
		Order("environment_variables.name ASC").
		Find(&out).Error
	return out, err
}

func (r *envarRepo) ReferenceCount(dbc dbctx.Context, envarID int64) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	err := t.WithContext(dbc.Ctx).Model(&types.BuildEnvar{}).Where("environment_variable_id = ?", envarID).Count(&n).Error
	return n, err
}
