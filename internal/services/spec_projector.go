package services

import (
	"context"

	types "github.com/yungbote/spackmon-backend/internal/domain"
)

// SpecProjector mirrors imported spec graphs into a secondary store.
type SpecProjector interface {
	ProjectSpecs(ctx context.Context, specs []*types.Spec, deps []*types.Dependency) error
}

type noopProjector struct{}

func (noopProjector) ProjectSpecs(context.Context, []*types.Spec, []*types.Dependency) error {
	return nil
}

func NoopSpecProjector() SpecProjector { return noopProjector{} }
