package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/spackmon-backend/internal/domain/aggregates"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

func (d BaseDeps) WithDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	return d
}

// ExecuteWrite runs fn in one transaction, maps the failure into an aggregate code and
// reports the outcome to the hooks.
func ExecuteWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.WithDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, op, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = string(domainagg.CodeOf(mapped))
		if status == "" {
			status = "failure"
		}
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if deps.Log != nil && status != string(domainagg.CodeValidation) && status != string(domainagg.CodeNotFound) {
			deps.Log.Debug("write rolled back", "op", op, "status", status, "error", mapped)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}
