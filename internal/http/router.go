package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/spackmon-backend/internal/http/handlers"
	httpMW "github.com/yungbote/spackmon-backend/internal/http/middleware"
	"github.com/yungbote/spackmon-backend/internal/observability"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

const DefaultAPIPrefix = "ms1"

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	APIPrefix   string
	CORSOrigins []string
	Tracing     bool

	Metrics        *observability.Metrics
	RateLimiter    *httpMW.RateLimiter
	AuthMiddleware *httpMW.AuthMiddleware

	AuthHandler        *httpH.AuthHandler
	ServiceInfoHandler *httpH.ServiceInfoHandler
	SpecHandler        *httpH.SpecHandler
	BuildHandler       *httpH.BuildHandler
	AnalysisHandler    *httpH.AnalysisHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		name := cfg.ServiceName
		if name == "" {
			name = "spackmon"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Token issuance (basic credentials)
	if cfg.AuthHandler != nil {
		r.GET("/auth/token/", cfg.AuthHandler.Token)
		r.POST("/auth/token/", cfg.AuthHandler.Token)
	}

	prefix := strings.Trim(strings.TrimSpace(cfg.APIPrefix), "/")
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}
	api := r.Group("/" + prefix)
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Handler())
	}

	// Public reads
	if cfg.ServiceInfoHandler != nil {
		api.GET("/", cfg.ServiceInfoHandler.Get)
	}
	if cfg.SpecHandler != nil {
		api.GET("/specs/:full_hash/", cfg.SpecHandler.GetSpec)
	}
	if cfg.BuildHandler != nil {
		api.GET("/builds/:id/", cfg.BuildHandler.GetBuild)
	}
	if cfg.AnalysisHandler != nil {
		api.GET("/attributes/:id/download/", cfg.AnalysisHandler.DownloadAttribute)
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Specs
		if cfg.SpecHandler != nil {
			protected.POST("/specs/new/", cfg.SpecHandler.NewSpec)
		}

		// Builds
		if cfg.BuildHandler != nil {
			protected.POST("/builds/new/", cfg.BuildHandler.NewBuild)
			protected.POST("/builds/update/", cfg.BuildHandler.UpdateBuild)
			protected.POST("/builds/phases/update/", cfg.BuildHandler.UpdatePhase)
			protected.POST("/errors/new/", cfg.BuildHandler.NewErrors)
			protected.POST("/analyze/builds/", cfg.BuildHandler.AnalyzeBuild)
		}

		// Analysis
		if cfg.AnalysisHandler != nil {
			protected.POST("/analyze/splice/", cfg.AnalysisHandler.Splice)
		}
	}

	return r
}
