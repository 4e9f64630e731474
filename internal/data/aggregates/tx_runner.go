package aggregates

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/spackmon-backend/internal/domain/aggregates"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
)

var tracer = otel.Tracer("spackmon/aggregates")

// TxRunner opens the transaction an aggregate write runs in.
type TxRunner interface {
	InTx(ctx context.Context, op string, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// InTx runs fn inside a gorm transaction and a span named after op.
func (r *gormTxRunner) InTx(ctx context.Context, op string, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "transaction runner has nil db", nil)
	}
	ctx, span := tracer.Start(ctx, "tx "+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", r.db.Dialector.Name()),
		attribute.String("spackmon.write_op", op),
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction rolled back")
	}
	return err
}
