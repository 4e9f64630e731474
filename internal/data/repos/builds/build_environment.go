package builds

import (
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/upsert"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type BuildEnvironmentRepo interface {
	FindOrCreate(dbc dbctx.Context, env types.BuildEnvironment) (*types.BuildEnvironment, bool, error)
	Find(dbc dbctx.Context, env types.BuildEnvironment) (*types.BuildEnvironment, error)
}

type buildEnvironmentRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
}

func NewBuildEnvironmentRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) BuildEnvironmentRepo {
	return &buildEnvironmentRepo{
		db:     db,
		log:    baseLog.With("repo", "BuildEnvironmentRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
	}
}

func envKey(env types.BuildEnvironment) map[string]any {
	return map[string]any{
		"hostname":       env.Hostname,
		"kernel_version": env.KernelVersion,
		"host_os":        env.HostOS,
		"host_target":    env.HostTarget,
		"platform":       env.Platform,
	}
}

func (r *buildEnvironmentRepo) FindOrCreate(dbc dbctx.Context, env types.BuildEnvironment) (*types.BuildEnvironment, bool, error) {
	row := &types.BuildEnvironment{
		Hostname:      env.Hostname,
		KernelVersion: env.KernelVersion,
		HostOS:        env.HostOS,
		HostTarget:    env.HostTarget,
		Platform:      env.Platform,
	}
	return upsert.FindOrCreate(dbc, r.finder, row, envKey(env))
}

func (r *buildEnvironmentRepo) Find(dbc dbctx.Context, env types.BuildEnvironment) (*types.BuildEnvironment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.BuildEnvironment
	if err := t.WithContext(dbc.Ctx).Where(envKey(env)).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
