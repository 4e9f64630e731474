package services

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos"
	"github.com/yungbote/spackmon-backend/internal/modules/logparse"
	"github.com/yungbote/spackmon-backend/internal/observability"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type LogParseService interface {
	ParseBuild(ctx context.Context, buildID int64) error
	Sweep(ctx context.Context, limit int) (int, error)
}

type logParseService struct {
	db      *gorm.DB
	log     *logger.Logger
	deps    aggregates.BaseDeps
	parser  logparse.Parser
	builds  repos.BuildRepo
	phases  repos.BuildPhaseRepo
	events  repos.LogEventRepo
	metrics *observability.Metrics

	// parse defaults to ParseBuild.
	parse func(ctx context.Context, buildID int64) error

	mu     sync.Mutex
	cursor int64
}

func NewLogParseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	hooks aggregates.Hooks,
	parser logparse.Parser,
	buildRepo repos.BuildRepo,
	phases repos.BuildPhaseRepo,
	events repos.LogEventRepo,
	metrics *observability.Metrics,
) LogParseService {
	log := baseLog.With("service", "LogParseService")
	if parser == nil {
		parser = logparse.NewLineParser()
	}
	s := &logParseService{
		db:      db,
		log:     log,
		deps:    aggregates.BaseDeps{DB: db, Log: log, Hooks: hooks}.WithDefaults(),
		parser:  parser,
		builds:  buildRepo,
		phases:  phases,
		events:  events,
		metrics: metrics,
	}
	s.parse = s.ParseBuild
	return s
}

// ParseBuild extracts events from every phase's output and marks the build parsed. Stored
// events are deduplicated, so parsing twice adds nothing.
func (s *logParseService) ParseBuild(ctx context.Context, buildID int64) error {
	var errCount, warnCount int
	err := aggregates.ExecuteWrite(ctx, s.deps, "build.parse_logs", func(dbc dbctx.Context) error {
		errCount, warnCount = 0, 0
		phases, err := s.phases.ListForBuild(dbc, buildID)
		if err != nil {
			return err
		}
		for _, p := range phases {
			errs, warns := s.parser.Parse(p.Output)
			for _, ev := range errs {
				_, created, err := s.events.AddError(dbc, p.ID, ev)
				if err != nil {
					return fmt.Errorf("phase %s: %w", p.Name, err)
				}
				if created {
					errCount++
				}
			}
			for _, ev := range warns {
				_, created, err := s.events.AddWarning(dbc, p.ID, ev)
				if err != nil {
					return fmt.Errorf("phase %s: %w", p.Name, err)
				}
				if created {
					warnCount++
				}
			}
		}
		return s.builds.SetLogsParsed(dbc, buildID, true)
	})
	if err != nil {
		return err
	}
	s.metrics.AddLogEvents("error", errCount)
	s.metrics.AddLogEvents("warning", warnCount)
	if errCount+warnCount > 0 {
		s.log.Debug("build logs parsed", "build_id", buildID, "errors", errCount, "warnings", warnCount)
	}
	return nil
}

// Sweep parses up to limit builds that still have unparsed logs. Successive sweeps page
// forward by id so builds that keep failing do not starve the rest; the cursor wraps once a
// page comes back short, and failed builds are retried on the next pass.
func (s *logParseService) Sweep(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.builds.ListUnparsedIDs(dbctx.Context{Ctx: ctx}, s.cursor, limit)
	if err != nil {
		return 0, err
	}
	if len(ids) < limit {
		s.cursor = 0
	} else {
		s.cursor = ids[len(ids)-1]
	}
	parsed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return parsed, ctx.Err()
		}
		if err := s.parse(ctx, id); err != nil {
			s.log.Warn("log parse failed", "build_id", id, "error", err)
			continue
		}
		parsed++
	}
	return parsed, nil
}
