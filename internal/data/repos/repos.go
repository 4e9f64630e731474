package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/auth"
	"github.com/yungbote/spackmon-backend/internal/data/repos/builds"
	"github.com/yungbote/spackmon-backend/internal/data/repos/specs"
	"github.com/yungbote/spackmon-backend/internal/data/repos/user"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type TargetRepo = specs.TargetRepo
type ArchitectureRepo = specs.ArchitectureRepo
type CompilerRepo = specs.CompilerRepo
type SpecRepo = specs.SpecRepo
type SpecFields = specs.SpecFields
type DependencyRepo = specs.DependencyRepo

type BuildEnvironmentRepo = builds.BuildEnvironmentRepo
type BuildRepo = builds.BuildRepo
type BuildPhaseRepo = builds.BuildPhaseRepo
type LogEventRepo = builds.LogEventRepo
type InstallFileRepo = builds.InstallFileRepo
type ManifestEntry = builds.ManifestEntry
type AttributeRepo = builds.AttributeRepo
type EnvarRepo = builds.EnvarRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewTargetRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) TargetRepo {
	return specs.NewTargetRepo(db, baseLog, hooks)
}
func NewArchitectureRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) ArchitectureRepo {
	return specs.NewArchitectureRepo(db, baseLog, hooks)
}
func NewCompilerRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) CompilerRepo {
	return specs.NewCompilerRepo(db, baseLog, hooks)
}
func NewSpecRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) SpecRepo {
	return specs.NewSpecRepo(db, baseLog, hooks)
}
func NewDependencyRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) DependencyRepo {
	return specs.NewDependencyRepo(db, baseLog, hooks)
}

func NewBuildEnvironmentRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) BuildEnvironmentRepo {
	return builds.NewBuildEnvironmentRepo(db, baseLog, hooks)
}
func NewBuildRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) BuildRepo {
	return builds.NewBuildRepo(db, baseLog, hooks)
}
func NewBuildPhaseRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) BuildPhaseRepo {
	return builds.NewBuildPhaseRepo(db, baseLog, hooks)
}
func NewLogEventRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) LogEventRepo {
	return builds.NewLogEventRepo(db, baseLog, hooks)
}
func NewInstallFileRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) InstallFileRepo {
	return builds.NewInstallFileRepo(db, baseLog, hooks)
}
func NewAttributeRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) AttributeRepo {
	return builds.NewAttributeRepo(db, baseLog, hooks)
}
func NewEnvarRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) EnvarRepo {
	return builds.NewEnvarRepo(db, baseLog, hooks)
}
