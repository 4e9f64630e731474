package specs

import (
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/upsert"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type ArchitectureRepo interface {
	FindOrCreate(dbc dbctx.Context, platform, platformOS string, targetID int64) (*types.Architecture, bool, error)
}

type architectureRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
}

func NewArchitectureRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) ArchitectureRepo {
	return &architectureRepo{
		db:     db,
		log:    baseLog.With("repo", "ArchitectureRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
	}
}

func (r *architectureRepo) FindOrCreate(dbc dbctx.Context, platform, platformOS string, targetID int64) (*types.Architecture, bool, error) {
	row := &types.Architecture{Platform: platform, PlatformOS: platformOS, TargetID: targetID}
	return upsert.FindOrCreate(dbc, r.finder, row, map[string]any{
		"platform":    platform,
		"platform_os": platformOS,
		"target_id":   targetID,
	})
}

type CompilerRepo interface {
	FindOrCreate(dbc dbctx.Context, name, version string) (*types.Compiler, bool, error)
}

type compilerRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
}

func NewCompilerRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) CompilerRepo {
	return &compilerRepo{
		db:     db,
		log:    baseLog.With("repo", "CompilerRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
	}
}

func (r *compilerRepo) FindOrCreate(dbc dbctx.Context, name, version string) (*types.Compiler, bool, error) {
	return upsert.FindOrCreate(dbc, r.finder, &types.Compiler{Name: name, Version: version}, map[string]any{
		"name":    name,
		"version": version,
	})
}
