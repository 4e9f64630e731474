package upsert

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/spackmon-backend/internal/domain/aggregates"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
)

const maxAttempts = 3

// Finder carries what FindOrCreate needs from its caller's repo.
type Finder struct {
	DB    *gorm.DB
	Hooks aggregates.Hooks
}

func (f Finder) retried(table string) {
	if f.Hooks != nil {
		f.Hooks.IncRetry(table)
	}
}

type tabler interface {
	TableName() string
}

// FindOrCreate returns the row whose unique columns equal key, inserting row when none
// exists. key must name exactly the columns of a unique index on T. The bool reports whether
// this call inserted the row.
//
// The insert uses ON CONFLICT DO NOTHING, so a concurrent writer winning the race shows up as
// zero affected rows and the winner's row is fetched instead. Inside a transaction the insert
// runs under a savepoint so a unique violation from another path does not poison the
// enclosing transaction.
func FindOrCreate[T any](dbc dbctx.Context, f Finder, row *T, key map[string]any) (*T, bool, error) {
	if len(key) == 0 {
		return nil, false, fmt.Errorf("find-or-create: empty key")
	}
	cols := make([]string, 0, len(key))
	for c := range key {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	conflict := make([]clause.Column, 0, len(cols))
	for _, c := range cols {
		conflict = append(conflict, clause.Column{Name: c})
	}
	table := tableOf(row)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		inserted, err := tryInsert(dbc, f.DB, row, conflict, attempt)
		if err != nil && !aggregates.IsUniqueViolation(err) {
			return nil, false, err
		}
		if inserted {
			return row, true, nil
		}

		existing := new(T)
		err = dbc.Conn(f.DB).Where(key).Take(existing).Error
		if err == nil {
			if attempt > 0 || lastErr != nil {
				f.retried(table)
			}
			return existing, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
		// conflicting row was gone by the time we looked; insert again
		lastErr = fmt.Errorf("%s: row vanished between insert and fetch", table)
		f.retried(table)
	}
	return nil, false, domainagg.Wrap(domainagg.CodeConflict, "upsert."+table, lastErr)
}

func tryInsert[T any](dbc dbctx.Context, db *gorm.DB, row *T, conflict []clause.Column, attempt int) (bool, error) {
	conn := dbc.Conn(db)
	if dbc.Tx == nil {
		res := conn.Clauses(clause.OnConflict{Columns: conflict, DoNothing: true}).Create(row)
		return res.Error == nil && res.RowsAffected == 1, res.Error
	}
	sp := fmt.Sprintf("find_or_create_%d", attempt)
	if err := conn.SavePoint(sp).Error; err != nil {
		return false, err
	}
	res := conn.Clauses(clause.OnConflict{Columns: conflict, DoNothing: true}).Create(row)
	if res.Error != nil {
		if rbErr := conn.RollbackTo(sp).Error; rbErr != nil {
			return false, rbErr
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func tableOf(row any) string {
	if t, ok := row.(tabler); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", row)
}

// LinkIgnoreDuplicates inserts join rows, skipping pairs that already exist. It returns
// how many rows were new.
func LinkIgnoreDuplicates[T any](dbc dbctx.Context, db *gorm.DB, rows []T, cols ...string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	conflict := make([]clause.Column, 0, len(cols))
	for _, c := range cols {
		conflict = append(conflict, clause.Column{Name: c})
	}
	res := dbc.Conn(db).Clauses(clause.OnConflict{Columns: conflict, DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}
