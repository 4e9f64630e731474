package builds

import (
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/upsert"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

// ManifestEntry is one file of a spack install manifest.
type ManifestEntry struct {
	Ftype string
	Mode  *int
	Owner *int
	Group *int
	Hash  string
}

type InstallFileRepo interface {
	FindOrCreate(dbc dbctx.Context, buildID int64, name string) (*types.InstallFile, bool, error)
	ApplyManifest(dbc dbctx.Context, id int64, m ManifestEntry) error
	ListForBuild(dbc dbctx.Context, buildID int64) ([]*types.InstallFile, error)
}

type installFileRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
}

func NewInstallFileRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) InstallFileRepo {
	return &installFileRepo{
		db:     db,
		log:    baseLog.With("repo", "InstallFileRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
	}
}

func (r *installFileRepo) FindOrCreate(dbc dbctx.Context, buildID int64, name string) (*types.InstallFile, bool, error) {
	return upsert.FindOrCreate(dbc, r.finder, &types.InstallFile{BuildID: buildID, Name: name}, map[string]any{
		"build_id": buildID,
		"name":     name,
	})
}

// ApplyManifest overwrites ftype, mode, owner and group. The hash is only replaced when the
// manifest carries one.
func (r *installFileRepo) ApplyManifest(dbc dbctx.Context, id int64, m ManifestEntry) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	updates := map[string]any{
		"ftype": m.Ftype,
		"mode":  m.Mode,
		"owner": m.Owner,
		"group": m.Group,
	}
	if m.Hash != "" {
		updates["hash"] = m.Hash
	}
	return t.WithContext(dbc.Ctx).Model(&types.InstallFile{}).Where("id = ?", id).Updates(updates).Error
}

func (r *installFileRepo) ListForBuild(dbc dbctx.Context, buildID int64) ([]*types.InstallFile, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.InstallFile
	err := t.WithContext(dbc.Ctx).Where("build_id = ?", buildID).Order("name ASC").Find(&out).Error
	return out, err
}
