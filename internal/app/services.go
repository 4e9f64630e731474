package app

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/observability"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
	"github.com/yungbote/spackmon-backend/internal/services"
)

type Services struct {
	SpecImport services.SpecImportService
	Build      services.BuildService
	Metadata   services.MetadataService
	Analysis   services.AnalysisService
	LogParse   services.LogParseService
	Auth       services.AuthService
	Tokens     services.TokenStore
	Notifier   services.BuildNotifier
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	repos Repos,
	clients Clients,
	hooks aggregates.Hooks,
	metrics *observability.Metrics,
) Services {
	log.Info("Wiring services...")

	tokens := clients.TokenStore
	if tokens == nil {
		tokens = services.NewDBTokenStore(repos.UserToken)
	}
	var publisher services.BuildPublisher
	if clients.BuildBus != nil {
		publisher = clients.BuildBus
	}
	notifier := services.NewBuildNotifier(log, publisher)

	specImport := services.NewSpecImportService(db, log, hooks,
		repos.Target, repos.Architecture, repos.Compiler, repos.Spec, repos.Dependency,
		clients.Projector, metrics)
	logParse := services.NewLogParseService(db, log, hooks, nil,
		repos.Build, repos.BuildPhase, repos.LogEvent, metrics)
	build := services.NewBuildService(db, log, hooks,
		services.BuildServiceConfig{CascadeMode: cfg.CascadeMode},
		repos.Spec, repos.Dependency, repos.BuildEnvironment, repos.Build, repos.BuildPhase,
		repos.LogEvent, repos.Envar, notifier, logParse, metrics)
	metadata := services.NewMetadataService(db, log, hooks,
		services.MetadataServiceConfig{InstallPrefixMarker: cfg.InstallPrefixMarker},
		repos.Build, repos.InstallFile, repos.Attribute, repos.Envar, build)
	analysis := services.NewAnalysisService(db, log,
		services.AnalysisConfig{SymbolAnalyzer: cfg.SymbolAnalyzer},
		repos.Build, repos.InstallFile, repos.Attribute, nil)
	auth := services.NewAuthService(db, log, services.AuthConfig{
		Disabled: cfg.DisableAuthentication,
		Secret:   cfg.JWTSecret,
		TokenTTL: time.Duration(cfg.JWTExpiresMinutes) * time.Minute,
		Server:   cfg.ServerURL,
	}, repos.User, tokens)

	return Services{
		SpecImport: specImport,
		Build:      build,
		Metadata:   metadata,
		Analysis:   analysis,
		LogParse:   logParse,
		Auth:       auth,
		Tokens:     tokens,
		Notifier:   notifier,
	}
}
