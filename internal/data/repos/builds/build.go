package builds

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/upsert"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/domain/builds"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type BuildRepo interface {
	FindOrCreate(dbc dbctx.Context, specID, environmentID int64, owner *uuid.UUID) (*types.Build, bool, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Build, error)
	GetForSpec(dbc dbctx.Context, specID, preferEnvironmentID int64) (*types.Build, error)
	ListForSpec(dbc dbctx.Context, specID int64) ([]*types.Build, error)
	Lock(dbc dbctx.Context, id int64) (bool, error)
	SetStatus(dbc dbctx.Context, id int64, status string) error
	CancelUnlessSuccess(dbc dbctx.Context, id int64) (bool, error)
	SetConfigArgs(dbc dbctx.Context, id int64, configArgs string) error
	AddTags(dbc dbctx.Context, id int64, tags []string) (int, error)
	ListTags(dbc dbctx.Context, id int64) ([]string, error)
	ListUnparsedIDs(dbc dbctx.Context, afterID int64, limit int) ([]int64, error)
	SetLogsParsed(dbc dbctx.Context, id int64, parsed bool) error
}

type buildRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
	guard  aggregates.CASGuard
}

func NewBuildRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) BuildRepo {
	return &buildRepo{
		db:     db,
		log:    baseLog.With("repo", "BuildRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
		guard:  aggregates.NewCASGuard(db),
	}
}

// FindOrCreate keys on (spec, environment). owner is only recorded when the build is new.
func (r *buildRepo) FindOrCreate(dbc dbctx.Context, specID, environmentID int64, owner *uuid.UUID) (*types.Build, bool, error) {
	row := &types.Build{
		SpecID:             specID,
		BuildEnvironmentID: environmentID,
		Status:             builds.StatusNotRun,
		OwnerID:            owner,
	}
	return upsert.FindOrCreate(dbc, r.finder, row, map[string]any{
		"spec_id":              specID,
		"build_environment_id": environmentID,
	})
}

func (r *buildRepo) GetByID(dbc dbctx.Context, id int64) (*types.Build, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Build
	if err := t.WithContext(dbc.Ctx).
		Preload("Spec").
		Preload("BuildEnvironment").
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// GetForSpec picks the spec's build in preferEnvironmentID when there is one, otherwise the
// oldest build of the spec.
func (r *buildRepo) GetForSpec(dbc dbctx.Context, specID, preferEnvironmentID int64) (*types.Build, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Build
	if preferEnvironmentID > 0 {
		err := t.WithContext(dbc.Ctx).
			Where("spec_id = ? AND build_environment_id = ?", specID, preferEnvironmentID).
			Take(&out).Error
		if err == nil {
			return &out, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if err := t.WithContext(dbc.Ctx).Where("spec_id = ?", specID).Order("id ASC").Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *buildRepo) ListForSpec(dbc dbctx.Context, specID int64) ([]*types.Build, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Build
	err := t.WithContext(dbc.Ctx).Where("spec_id = ?", specID).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *buildRepo) Lock(dbc dbctx.Context, id int64) (bool, error) {
	return r.guard.LockRow(dbc, types.Build{}.TableName(), id)
}

func (r *buildRepo) SetStatus(dbc dbctx.Context, id int64, status string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Build{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// CancelUnlessSuccess moves the build to CANCELLED unless it already succeeded or was already
// cancelled. It reports whether the row changed.
func (r *buildRepo) CancelUnlessSuccess(dbc dbctx.Context, id int64) (bool, error) {
	return r.guard.UpdateIf(dbc, types.Build{}.TableName(), id,
		"status NOT IN ?", []any{[]string{builds.StatusSuccess, builds.StatusCancelled}},
		map[string]any{"status": builds.StatusCancelled, "updated_at": time.Now().UTC()},
	)
}

func (r *buildRepo) SetConfigArgs(dbc dbctx.Context, id int64, configArgs string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Build{}).
		Where("id = ?", id).
		Update("config_args", configArgs).Error
}

// AddTags is additive: tags already on the build are kept.
func (r *buildRepo) AddTags(dbc dbctx.Context, id int64, tags []string) (int, error) {
	rows := make([]types.BuildTag, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, types.BuildTag{BuildID: id, Tag: tag})
	}
	return upsert.LinkIgnoreDuplicates(dbc, r.db, rows, "build_id", "tag")
}

func (r *buildRepo) ListTags(dbc dbctx.Context, id int64) ([]string, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var tags []string
	err := t.WithContext(dbc.Ctx).
		Model(&types.BuildTag{}).
		Where("build_id = ?", id).
		Order("tag ASC").
		Pluck("tag", &tags).Error
	return tags, err
}

// ListUnparsedIDs pages through builds with unparsed logs in id order, starting after afterID.
func (r *buildRepo) ListUnparsedIDs(dbc dbctx.Context, afterID int64, limit int) ([]int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var ids []int64
	err := t.WithContext(dbc.Ctx).
		Model(&types.Build{}).
		Where("logs_parsed = ? AND id > ?", false, afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *buildRepo) SetLogsParsed(dbc dbctx.Context, id int64, parsed bool) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Build{}).
		Where("id = ?", id).
		Update("logs_parsed", parsed).Error
}
