package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/db"
	httpserver "github.com/yungbote/spackmon-backend/internal/http"
	"github.com/yungbote/spackmon-backend/internal/jobs/sweep"
	"github.com/yungbote/spackmon-backend/internal/observability"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
	"github.com/yungbote/spackmon-backend/internal/services"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Cfg       Config
	Metrics   *observability.Metrics
	Clients   Clients
	Repos     Repos
	Services  Services
	Server    *httpserver.Server
	Scheduler *sweep.Scheduler

	dbService    *db.Service
	otelShutdown func(context.Context) error
}

// New connects storage and external clients and wires every layer. Tables are migrated
// on every start; migrations are additive.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    cfg.OtelEndpoint,
		Headers:     observability.ParseHeaders(cfg.OtelHeaders),
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})

	dbService, err := OpenDB(log, cfg)
	if err != nil {
		return nil, err
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		_ = dbService.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbService.Close()
		return nil, err
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}
	hooks := aggregates.NewMetricsHooks(metrics)

	reposet := wireRepos(theDB, log, hooks)
	serviceset := wireServices(theDB, log, cfg, reposet, clients, hooks, metrics)
	handlerset := wireHandlers(log, theDB, cfg, serviceset, time.Now().UTC())
	middleware, err := wireMiddleware(log, cfg, serviceset)
	if err != nil {
		clients.Close(ctx)
		_ = dbService.Close()
		return nil, err
	}

	scheduler, err := wireScheduler(log, cfg, serviceset)
	if err != nil {
		clients.Close(ctx)
		_ = dbService.Close()
		return nil, err
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Server:       wireServer(log, cfg, handlerset, middleware, metrics),
		Scheduler:    scheduler,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

// OpenDB connects to the configured database without migrating it.
func OpenDB(log *logger.Logger, cfg Config) (*db.Service, error) {
	dbService, err := db.NewService(log, db.Options{
		Driver:           cfg.DBDriver,
		PostgresHost:     cfg.PostgresHost,
		PostgresPort:     cfg.PostgresPort,
		PostgresUser:     cfg.PostgresUser,
		PostgresPassword: cfg.PostgresPassword,
		PostgresName:     cfg.PostgresName,
		PostgresSSLMode:  cfg.PostgresSSLMode,
		SQLitePath:       cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return dbService, nil
}

func wireScheduler(log *logger.Logger, cfg Config, svc Services) (*sweep.Scheduler, error) {
	s := sweep.NewScheduler(log)
	if cfg.LogParseInterval > 0 {
		if err := s.Register(sweep.NewLogParseJob(log, svc.LogParse, cfg.LogParseBatch), cfg.LogParseInterval); err != nil {
			return nil, err
		}
	}
	if purger, ok := svc.Tokens.(services.TokenPurger); ok && cfg.TokenPurgeInterval > 0 {
		if err := s.Register(sweep.NewTokenPurgeJob(log, purger), cfg.TokenPurgeInterval); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Run serves http and runs the scheduler until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("Starting server", "port", a.Cfg.Port, "api_prefix", a.Cfg.APIPrefix)
		return a.Server.Run()
	})
	g.Go(func() error {
		return a.Scheduler.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Scheduler.Shutdown(); err != nil {
			a.Log.Warn("scheduler shutdown failed", "error", err)
		}
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.Clients.Close(ctx)
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
