package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type Repos struct {
	User      repos.UserRepo
	UserToken repos.UserTokenRepo

	Target       repos.TargetRepo
	Architecture repos.ArchitectureRepo
	Compiler     repos.CompilerRepo
	Spec         repos.SpecRepo
	Dependency   repos.DependencyRepo

	BuildEnvironment repos.BuildEnvironmentRepo
	Build            repos.BuildRepo
	BuildPhase       repos.BuildPhaseRepo
	LogEvent         repos.LogEventRepo
	InstallFile      repos.InstallFileRepo
	Attribute        repos.AttributeRepo
	Envar            repos.EnvarRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger, hooks aggregates.Hooks) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:      repos.NewUserRepo(db, log),
		UserToken: repos.NewUserTokenRepo(db, log),

		Target:       repos.NewTargetRepo(db, log, hooks),
		Architecture: repos.NewArchitectureRepo(db, log, hooks),
		Compiler:     repos.NewCompilerRepo(db, log, hooks),
		Spec:         repos.NewSpecRepo(db, log, hooks),
		Dependency:   repos.NewDependencyRepo(db, log, hooks),

		BuildEnvironment: repos.NewBuildEnvironmentRepo(db, log, hooks),
		Build:            repos.NewBuildRepo(db, log, hooks),
		BuildPhase:       repos.NewBuildPhaseRepo(db, log, hooks),
		LogEvent:         repos.NewLogEventRepo(db, log, hooks),
		InstallFile:      repos.NewInstallFileRepo(db, log, hooks),
		Attribute:        repos.NewAttributeRepo(db, log, hooks),
		Envar:            repos.NewEnvarRepo(db, log, hooks),
	}
}
