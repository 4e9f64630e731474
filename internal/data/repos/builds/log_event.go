package builds

import (
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/upsert"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

// LogEventRepo stores parsed build errors and warnings, deduplicated per phase by the
// event fingerprint.
type LogEventRepo interface {
	AddError(dbc dbctx.Context, phaseID int64, ev types.LogEvent) (*types.BuildError, bool, error)
	AddWarning(dbc dbctx.Context, phaseID int64, ev types.LogEvent) (*types.BuildWarning, bool, error)
	ListErrorsForBuild(dbc dbctx.Context, buildID int64) ([]*types.BuildError, error)
	ListWarningsForBuild(dbc dbctx.Context, buildID int64) ([]*types.BuildWarning, error)
}

type logEventRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
}

func NewLogEventRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) LogEventRepo {
	return &logEventRepo{
		db:     db,
		log:    baseLog.With("repo", "LogEventRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
	}
}

func (r *logEventRepo) AddError(dbc dbctx.Context, phaseID int64, ev types.LogEvent) (*types.BuildError, bool, error) {
	fp := ev.Fingerprint()
	row := &types.BuildError{BuildPhaseID: phaseID, Fingerprint: fp, LogEvent: ev}
	return upsert.FindOrCreate(dbc, r.finder, row, map[string]any{"build_phase_id": phaseID, "fingerprint": fp})
}

func (r *logEventRepo) AddWarning(dbc dbctx.Context, phaseID int64, ev types.LogEvent) (*types.BuildWarning, bool, error) {
	fp := ev.Fingerprint()
	row := &types.BuildWarning{BuildPhaseID: phaseID, Fingerprint: fp, LogEvent: ev}
	return upsert.FindOrCreate(dbc, r.finder, row, map[string]any{"build_phase_id": phaseID, "fingerprint": fp})
}

func (r *logEventRepo) ListErrorsForBuild(dbc dbctx.Context, buildID int64) ([]*types.BuildError, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.BuildError
	err := t.WithContext(dbc.Ctx).
		Joins("JOIN build_phases bp ON bp.id = build_errors.build_phase_id").
		Where("bp.build_id = ?", buildID).
		Order("build_errors.id ASC").
		Find(&out).Error
	return out, err
}

func (r *logEventRepo) ListWarningsForBuild(dbc dbctx.Context, buildID int64) ([]*types.BuildWarning, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.BuildWarning
	err := t.WithContext(dbc.Ctx).
		Joins("JOIN build_phases bp ON bp.id = build_warnings.build_phase_id").
		Where("bp.build_id = ?", buildID).
		Order("build_warnings.id ASC").
		Find(&out).Error
	return out, err
}
