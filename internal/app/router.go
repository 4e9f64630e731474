package app

import (
	"net"

	httpserver "github.com/yungbote/spackmon-backend/internal/http"
	"github.com/yungbote/spackmon-backend/internal/observability"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

func routerConfig(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) httpserver.RouterConfig {
	return httpserver.RouterConfig{
		Log:                log,
		ServiceName:        cfg.ServiceName,
		APIPrefix:          cfg.APIPrefix,
		CORSOrigins:        cfg.CORSAllowedOrigins,
		Tracing:            cfg.OtelEnabled,
		Metrics:            metrics,
		RateLimiter:        middleware.RateLimit,
		AuthMiddleware:     middleware.Auth,
		AuthHandler:        handlers.Auth,
		ServiceInfoHandler: handlers.ServiceInfo,
		SpecHandler:        handlers.Spec,
		BuildHandler:       handlers.Build,
		AnalysisHandler:    handlers.Analysis,
		HealthHandler:      handlers.Health,
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *httpserver.Server {
	return httpserver.NewServer(net.JoinHostPort("", cfg.Port), routerConfig(log, cfg, handlers, middleware, metrics))
}
