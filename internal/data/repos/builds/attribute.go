package builds

import (
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos/upsert"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type AttributeRepo interface {
	Upsert(dbc dbctx.Context, installFileID int64, name, analyzer string, value types.AttributeValue) (*types.Attribute, bool, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Attribute, error)
	ListForInstallFiles(dbc dbctx.Context, installFileIDs []int64, analyzer string) ([]*types.Attribute, error)
}

type attributeRepo struct {
	db     *gorm.DB
	log    *logger.Logger
	finder upsert.Finder
}

func NewAttributeRepo(db *gorm.DB, baseLog *logger.Logger, hooks aggregates.Hooks) AttributeRepo {
	return &attributeRepo{
		db:     db,
		log:    baseLog.With("repo", "AttributeRepo"),
		finder: upsert.Finder{DB: db, Hooks: hooks},
	}
}

// Upsert keys on (name, analyzer, install file) and replaces the stored value in place when
// the attribute already exists.
func (r *attributeRepo) Upsert(dbc dbctx.Context, installFileID int64, name, analyzer string, value types.AttributeValue) (*types.Attribute, bool, error) {
	row := &types.Attribute{Name: name, Analyzer: analyzer, InstallFileID: installFileID}
	row.SetValue(value)
	got, created, err := upsert.FindOrCreate(dbc, r.finder, row, map[string]any{
		"name":            name,
		"analyzer":        analyzer,
		"install_file_id": installFileID,
	})
	if err != nil || created {
		return got, created, err
	}

	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	got.SetValue(value)
	var jsonValue any
	if got.JSONValue != nil {
		jsonValue = got.JSONValue
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Attribute{}).
		Where("id = ?", got.ID).
		Updates(map[string]any{
			"value_kind":   got.ValueKind,
			"value":        got.Value,
			"binary_value": got.BinaryValue,
			"json_value":   jsonValue,
		}).Error; err != nil {
		return nil, false, err
	}
	return got, false, nil
}

func (r *attributeRepo) GetByID(dbc dbctx.Context, id int64) (*types.Attribute, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Attribute
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *attributeRepo) ListForInstallFiles(dbc dbctx.Context, installFileIDs []int64, analyzer string) ([]*types.Attribute, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Attribute
	if len(installFileIDs) == 0 {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).Where("install_file_id IN ?", installFileIDs)
	if analyzer != "" {
		q = q.Where("analyzer = ?", analyzer)
	}
	err := q.Order("id ASC").Find(&out).Error
	return out, err
}
