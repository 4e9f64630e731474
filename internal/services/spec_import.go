package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/modules/specgraph"
	"github.com/yungbote/spackmon-backend/internal/observability"
	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type ImportResult struct {
	Spec    *SpecView `json:"spec"`
	Created bool      `json:"created"`
}

// Code is 201 when the root spec was created by this import.
func (r ImportResult) Code() int {
	if r.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}

type SpecImportService interface {
	Import(ctx context.Context, doc *specgraph.Document, spackVersion string) (*ImportResult, error)
	GetSpec(ctx context.Context, fullHash, spackVersion string) (*SpecView, error)
}

type specImportService struct {
	db           *gorm.DB
	log          *logger.Logger
	deps         aggregates.BaseDeps
	targets      repos.TargetRepo
	archs        repos.ArchitectureRepo
	compilers    repos.CompilerRepo
	specs        repos.SpecRepo
	dependencies repos.DependencyRepo
	projector    SpecProjector
	metrics      *observability.Metrics
}

func NewSpecImportService(
	db *gorm.DB,
	baseLog *logger.Logger,
	hooks aggregates.Hooks,
	targets repos.TargetRepo,
	archs repos.ArchitectureRepo,
	compilers repos.CompilerRepo,
	specRepo repos.SpecRepo,
	dependencies repos.DependencyRepo,
	projector SpecProjector,
	metrics *observability.Metrics,
) SpecImportService {
	log := baseLog.With("service", "SpecImportService")
	if projector == nil {
		projector = NoopSpecProjector()
	}
	return &specImportService{
		db:           db,
		log:          log,
		deps:         aggregates.BaseDeps{DB: db, Log: log, Hooks: hooks}.WithDefaults(),
		targets:      targets,
		archs:        archs,
		compilers:    compilers,
		specs:        specRepo,
		dependencies: dependencies,
		projector:    projector,
		metrics:      metrics,
	}
}

// Import stores every node of doc. Each node commits on its own, so a failure part way
// leaves earlier nodes in place; re-importing the same document is safe.
func (s *specImportService) Import(ctx context.Context, doc *specgraph.Document, spackVersion string) (*ImportResult, error) {
	spackVersion = strings.TrimSpace(spackVersion)
	if spackVersion == "" {
		return nil, apierr.BadRequest("missing_spack_version", "spack_version is required")
	}
	if err := specgraph.Validate(doc); err != nil {
		if errors.Is(err, specgraph.ErrMissingNodes) {
			return nil, apierr.BadRequest("missing_nodes", "%s", err.Error())
		}
		return nil, apierr.BadRequest("invalid_spec", "%s", err.Error())
	}

	var (
		rootID      int64
		rootCreated bool
		touched     = make([]int64, 0, len(doc.Nodes))
	)
	for i, node := range doc.Nodes {
		var (
			id      int64
			created bool
		)
		err := aggregates.ExecuteWrite(ctx, s.deps, "spec.import_node", func(dbc dbctx.Context) error {
			spec, wasCreated, err := s.importNode(dbc, node, spackVersion)
			if err != nil {
				return err
			}
			id, created = spec.ID, wasCreated
			return nil
		})
		if err != nil {
			s.log.Error("import node failed", "name", node.Name, "full_hash", node.Identity(), "error", err)
			return nil, err
		}
		if i == 0 {
			rootID, rootCreated = id, created
		}
		touched = append(touched, id)
	}
	s.metrics.IncSpecImport(rootCreated)

	view, err := s.specView(dbctx.Context{Ctx: ctx}, rootID)
	if err != nil {
		return nil, err
	}
	s.project(ctx, touched)
	s.log.Info("configuration imported",
		"spec", view.Name,
		"full_hash", view.FullHash,
		"nodes", len(doc.Nodes),
		"created", rootCreated,
	)
	return &ImportResult{Spec: view, Created: rootCreated}, nil
}

func (s *specImportService) importNode(dbc dbctx.Context, node specgraph.Node, spackVersion string) (*types.Spec, bool, error) {
	fields := repos.SpecFields{
		Version:     node.Version,
		Namespace:   node.Namespace,
		Hash:        node.Hash,
		BuildHash:   node.BuildHash,
		PackageHash: node.PackageHash,
		Parameters:  datatypes.JSON(node.ParametersJSON()),
	}
	if node.FailedConcretization() {
		fields.BuildHash = types.FailedConcretization
	} else {
		archID, err := s.resolveArch(dbc, node.Arch)
		if err != nil {
			return nil, false, err
		}
		fields.ArchID = &archID
	}
	if node.Compiler != nil && strings.TrimSpace(node.Compiler.Name) != "" {
		c, _, err := s.compilers.FindOrCreate(dbc, node.Compiler.Name, node.Compiler.Version)
		if err != nil {
			return nil, false, err
		}
		fields.CompilerID = &c.ID
	}

	spec, created, err := s.specs.FindOrCreate(dbc, node.Name, node.Identity(), spackVersion)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.deps.CASGuard.LockRow(dbc, types.Spec{}.TableName(), spec.ID); err != nil {
		return nil, false, err
	}
	if err := s.specs.UpdateDescriptive(dbc, spec.ID, fields); err != nil {
		return nil, false, err
	}

	n, err := s.dependencies.CountForSpec(dbc, spec.ID)
	if err != nil {
		return nil, false, err
	}
	if n > 0 {
		return spec, created, nil
	}
	for _, ref := range node.Dependencies {
		dep, _, err := s.specs.FindOrCreate(dbc, ref.Name, ref.Identity(), spackVersion)
		if err != nil {
			return nil, false, err
		}
		if dep.ID == spec.ID {
			continue
		}
		if _, _, err := s.dependencies.Link(dbc, spec.ID, dep.ID, types.CanonicalDependencyType(ref.Type)); err != nil {
			return nil, false, err
		}
	}
	return spec, created, nil
}

// resolveArch upserts the target and architecture. Only the object form of a target carries
// attributes; scalars are overwritten and features and parents are unioned.
func (s *specImportService) resolveArch(dbc dbctx.Context, arch *specgraph.Arch) (int64, error) {
	target, _, err := s.targets.FindOrCreate(dbc, arch.Target.Name)
	if err != nil {
		return 0, err
	}
	if arch.Target.Detailed {
		if err := s.targets.UpdateScalars(dbc, target.ID, arch.Target.Vendor, arch.Target.Generation); err != nil {
			return 0, err
		}
		if _, err := s.targets.AddFeatures(dbc, target.ID, arch.Target.Features); err != nil {
			return 0, err
		}
		if _, err := s.targets.AddParents(dbc, target.ID, arch.Target.Parents); err != nil {
			return 0, err
		}
	}
	a, _, err := s.archs.FindOrCreate(dbc, arch.Platform, arch.PlatformOS, target.ID)
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}

func (s *specImportService) GetSpec(ctx context.Context, fullHash, spackVersion string) (*SpecView, error) {
	fullHash = strings.TrimSpace(fullHash)
	if fullHash == "" {
		return nil, apierr.BadRequest("missing_full_hash", "full_hash is required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	spec, err := s.specs.GetByFullHash(dbc, fullHash, strings.TrimSpace(spackVersion))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("spec_not_found", "spec with full hash %s does not exist", fullHash)
		}
		return nil, err
	}
	return s.buildView(dbc, spec)
}

func (s *specImportService) specView(dbc dbctx.Context, id int64) (*SpecView, error) {
	spec, err := s.specs.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	return s.buildView(dbc, spec)
}

func (s *specImportService) buildView(dbc dbctx.Context, spec *types.Spec) (*SpecView, error) {
	view := &SpecView{
		ID:           spec.ID,
		Name:         spec.Name,
		Version:      spec.Version,
		FullHash:     spec.FullHash,
		SpackVersion: spec.SpackVersion,
		Namespace:    spec.Namespace,
		Hash:         spec.Hash,
		BuildHash:    spec.BuildHash,
		PackageHash:  spec.PackageHash,
		Dependencies: map[string]DependencyView{},
	}
	if len(spec.Parameters) > 0 {
		view.Parameters = []byte(spec.Parameters)
	}
	if spec.Arch != nil && spec.Arch.Target != nil {
		t := spec.Arch.Target
		features, err := s.targets.ListFeatureNames(dbc, t.ID)
		if err != nil {
			return nil, err
		}
		parents, err := s.targets.ListParentNames(dbc, t.ID)
		if err != nil {
			return nil, err
		}
		view.Arch = &ArchView{
			Platform:   spec.Arch.Platform,
			PlatformOS: spec.Arch.PlatformOS,
			Target: TargetView{
				Name:       t.Name,
				Vendor:     t.Vendor,
				Generation: t.Generation,
				Features:   features,
				Parents:    parents,
			},
		}
	}
	if spec.Compiler != nil {
		view.Compiler = &CompilerView{Name: spec.Compiler.Name, Version: spec.Compiler.Version}
	}
	deps, err := s.dependencies.ListForSpec(dbc, spec.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range deps {
		if d.DependencySpec == nil {
			continue
		}
		view.Dependencies[d.DependencySpec.Name] = DependencyView{Hash: d.DependencySpec.FullHash, Type: d.Types()}
	}
	return view, nil
}

func (s *specImportService) project(ctx context.Context, ids []int64) {
	dbc := dbctx.Context{Ctx: ctx}
	specs, err := s.specs.GetByIDs(dbc, ids)
	if err != nil {
		s.log.Warn("load specs for projection failed", "error", err)
		return
	}
	deps, err := s.dependencies.ListForSpecs(dbc, ids)
	if err != nil {
		s.log.Warn("load dependencies for projection failed", "error", err)
		return
	}
	if err := s.projector.ProjectSpecs(ctx, specs, deps); err != nil {
		s.log.Warn("spec graph projection failed", "specs", len(specs), "error", err)
	}
}
