package aggregates

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
)

// CASGuard provides compare-and-set and row lock helpers for transactional writes.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) conn(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx == nil && g.db == nil {
		return nil, fmt.Errorf("missing db transaction context")
	}
	return dbc.Conn(g.db), nil
}

// UpdateIf applies updates to the row with id only while the guard predicate holds, and
// reports whether a row changed.
func (g CASGuard) UpdateIf(dbc dbctx.Context, table string, id int64, guard string, guardArgs []any, updates map[string]any) (bool, error) {
	db, err := g.conn(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id <= 0 {
		return false, fmt.Errorf("table and id are required for UpdateIf")
	}
	q := db.Table(table).Where("id = ?", id)
	if strings.TrimSpace(guard) != "" {
		q = q.Where(guard, guardArgs...)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// LockRow takes a row lock on postgres. SQLite serializes writers per database, so the
// call is a plain existence check there.
func (g CASGuard) LockRow(dbc dbctx.Context, table string, id int64) (bool, error) {
	db, err := g.conn(dbc)
	if err != nil {
		return false, err
	}
	q := db.Table(table).Select("id").Where("id = ?", id)
	if IsPostgres(db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var ids []int64
	if err := q.Limit(1).Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) == 1, nil
}

func IsPostgres(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == "postgres"
}
