package specs

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/upsert"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type TargetRepo interface {
	FindOrCreate(dbc dbctx.Context, name string) (*types.Target, bool, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Target, error)
	UpdateScalars(dbc dbctx.Context, id int64, vendor string, generation *int) error
	AddFeatures(dbc dbctx.Context, targetID int64, names []string) (int, error)
	AddParents(dbc dbctx.Context, targetID int64, parentNames []string) (int, error)
	ListFeatureNames(dbc dbctx.Context, targetID int64) ([]string, error)
	ListParentNames(dbc dbctx.Context, targetID int64) ([]string, error)
}

type targetRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
}

func NewTargetRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) TargetRepo {
	return &targetRepo{
		db:     db,
		log:    baseLog.With("repo", "TargetRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
	}
}

func (r *targetRepo) FindOrCreate(dbc dbctx.Context, name string) (*types.Target, bool, error) {
	return upsert.FindOrCreate(dbc, r.finder, &types.Target{Name: name}, map[string]any{"name": name})
}

func (r *targetRepo) GetByID(dbc dbctx.Context, id int64) (*types.Target, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Target
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateScalars overwrites vendor and generation. Last writer wins.
func (r *targetRepo) UpdateScalars(dbc dbctx.Context, id int64, vendor string, generation *int) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Target{}).
		Where("id = ?", id).
		Updates(map[string]any{"vendor": vendor, "generation": generation}).Error
}

// AddFeatures links named features to the target. Existing links are kept.
func (r *targetRepo) AddFeatures(dbc dbctx.Context, targetID int64, names []string) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	dbc = dbctx.Context{Ctx: dbc.Ctx, Tx: t}
	links := make([]types.TargetFeature, 0, len(names))
	for _, name := range dedupe(names) {
		f, _, err := upsert.FindOrCreate(dbc, r.finder, &types.Feature{Name: name}, map[string]any{"name": name})
		if err != nil {
			return 0, err
		}
		links = append(links, types.TargetFeature{TargetID: targetID, FeatureID: f.ID})
	}
	return upsert.LinkIgnoreDuplicates(dbc, r.db, links, "target_id", "feature_id")
}

// AddParents links named parent targets, creating bare parents on first reference.
func (r *targetRepo) AddParents(dbc dbctx.Context, targetID int64, parentNames []string) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	dbc = dbctx.Context{Ctx: dbc.Ctx, Tx: t}
	links := make([]types.TargetParent, 0, len(parentNames))
	for _, name := range dedupe(parentNames) {
		p, _, err := r.FindOrCreate(dbc, name)
		if err != nil {
			return 0, err
		}
		if p.ID == targetID {
			r.log.Warn("target lists itself as parent, skipping", "target_id", targetID, "name", name)
			continue
		}
		links = append(links, types.TargetParent{TargetID: targetID, ParentID: p.ID})
	}
	return upsert.LinkIgnoreDuplicates(dbc, r.db, links, "target_id", "parent_id")
}

func (r *targetRepo) ListFeatureNames(dbc dbctx.Context, targetID int64) ([]string, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var names []string
	err := t.WithContext(dbc.Ctx).
		Table("features").
		Joins("JOIN target_features tf ON tf.feature_id = features.id").
		Where("tf.target_id = ?", targetID).
		Order("features.name ASC").
		Pluck("features.name", &names).Error
	return names, err
}

func (r *targetRepo) ListParentNames(dbc dbctx.Context, targetID int64) ([]string, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var names []string
	err := t.WithContext(dbc.Ctx).
		Table("targets").
		Joins("JOIN target_parents tp ON tp.parent_id = targets.id").
		Where("tp.target_id = ?", targetID).
		Order("targets.name ASC").
		Pluck("targets.name", &names).Error
	return names, err
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
