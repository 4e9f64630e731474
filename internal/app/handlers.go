package app

import (
	"time"

	"gorm.io/gorm"

	httpH "github.com/yungbote/spackmon-backend/internal/http/handlers"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Auth        *httpH.AuthHandler
	ServiceInfo *httpH.ServiceInfoHandler
	Spec        *httpH.SpecHandler
	Build       *httpH.BuildHandler
	Analysis    *httpH.AnalysisHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, cfg Config, services Services, startedAt time.Time) Handlers {
	log.Info("Wiring handlers...")
	info := httpH.ServiceInfo{
		ID:                  "org.spack.monitor",
		Status:              "running",
		Name:                cfg.ServiceName,
		Description:         "This service provides a database to monitor spack builds.",
		Organization:        cfg.Organization,
		ContactURL:          cfg.ContactURL,
		DocumentationURL:    "https://spack-monitor.readthedocs.io",
		CreatedAt:           startedAt,
		UpdatedAt:           startedAt,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		AuthInstructionsURL: "https://spack-monitor.readthedocs.io/en/latest/getting_started/auth.html",
	}
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Auth:        httpH.NewAuthHandler(services.Auth, cfg.ServerURL),
		ServiceInfo: httpH.NewServiceInfoHandler(info),
		Spec:        httpH.NewSpecHandler(services.SpecImport),
		Build:       httpH.NewBuildHandler(services.Build, services.Metadata),
		Analysis:    httpH.NewAnalysisHandler(services.Analysis),
	}
}
