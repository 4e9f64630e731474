package specs

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/upsert"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

// SpecFields are the descriptive columns rewritten on every import.
type SpecFields struct {
	Version     string
	Namespace   string
	Hash        string
	BuildHash   string
	PackageHash string
	Parameters  datatypes.JSON
	ArchID      *int64
	CompilerID  *int64
}

type SpecRepo interface {
	FindOrCreate(dbc dbctx.Context, name, fullHash, spackVersion string) (*types.Spec, bool, error)
	UpdateDescriptive(dbc dbctx.Context, id int64, f SpecFields) error
	GetByID(dbc dbctx.Context, id int64) (*types.Spec, error)
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Spec, error)
	GetByFullHash(dbc dbctx.Context, fullHash, spackVersion string) (*types.Spec, error)
	Count(dbc dbctx.Context) (int64, error)
}

type specRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
}

func NewSpecRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) SpecRepo {
	return &specRepo{
		db:     db,
		log:    baseLog.With("repo", "SpecRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
	}
}

func (r *specRepo) FindOrCreate(dbc dbctx.Context, name, fullHash, spackVersion string) (*types.Spec, bool, error) {
	row := &types.Spec{Name: name, FullHash: fullHash, SpackVersion: spackVersion}
	return upsert.FindOrCreate(dbc, r.finder, row, map[string]any{
		"name":          name,
		"full_hash":     fullHash,
		"spack_version": spackVersion,
	})
}

func (r *specRepo) UpdateDescriptive(dbc dbctx.Context, id int64, f SpecFields) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var params any
	if len(f.Parameters) > 0 {
		params = f.Parameters
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Spec{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"version":      f.Version,
			"namespace":    f.Namespace,
			"hash":         f.Hash,
			"build_hash":   f.BuildHash,
			"package_hash": f.PackageHash,
			"parameters":   params,
			"arch_id":      f.ArchID,
			"compiler_id":  f.CompilerID,
		}).Error
}

func (r *specRepo) GetByID(dbc dbctx.Context, id int64) (*types.Spec, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Spec
	if err := t.WithContext(dbc.Ctx).
		Preload("Arch.Target").
		Preload("Compiler").
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *specRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Spec, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Spec
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetByFullHash returns the oldest spec with the hash. Two package names sharing a full hash
// would be a hash collision, so the first row is authoritative. An empty spackVersion matches
// any version.
func (r *specRepo) GetByFullHash(dbc dbctx.Context, fullHash, spackVersion string) (*types.Spec, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Preload("Arch.Target").
		Preload("Compiler").
		Where("full_hash = ?", fullHash)
	if spackVersion != "" {
		q = q.Where("spack_version = ?", spackVersion)
	}
	var out types.Spec
	if err := q.Order("id ASC").Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *specRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	err := t.WithContext(dbc.Ctx).Model(&types.Spec{}).Count(&n).Error
	return n, err
}
