package sweep

import (
	"context"
	"time"

	"github.com/yungbote/spackmon-backend/internal/platform/logger"
	"github.com/yungbote/spackmon-backend/internal/services"
)

const DefaultLogParseBatch = 100

// LogParseJob parses phase output of builds that were never looked at.
type LogParseJob struct {
	log    *logger.Logger
	parser services.LogParseService
	batch  int
}

func NewLogParseJob(baseLog *logger.Logger, parser services.LogParseService, batch int) *LogParseJob {
	if batch <= 0 {
		batch = DefaultLogParseBatch
	}
	return &LogParseJob{log: baseLog.With("job", "log_parse_sweep"), parser: parser, batch: batch}
}

func (j *LogParseJob) Name() string { return "log_parse_sweep" }

func (j *LogParseJob) Run(ctx context.Context) error {
	n, err := j.parser.Sweep(ctx, j.batch)
	if n > 0 {
		j.log.Info("parsed build logs", "builds", n)
	}
	return err
}

// TokenPurgeJob deletes token ids that expired before now.
type TokenPurgeJob struct {
	log    *logger.Logger
	purger services.TokenPurger
	now    func() time.Time
}

func NewTokenPurgeJob(baseLog *logger.Logger, purger services.TokenPurger) *TokenPurgeJob {
	return &TokenPurgeJob{log: baseLog.With("job", "token_purge"), purger: purger, now: time.Now}
}

func (j *TokenPurgeJob) Name() string { return "token_purge" }

func (j *TokenPurgeJob) Run(ctx context.Context) error {
	n, err := j.purger.PurgeExpired(ctx, j.now())
	if n > 0 {
		j.log.Info("purged expired tokens", "tokens", n)
	}
	return err
}
