package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/observability"
	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
	"github.com/yungbote/spackmon-backend/internal/platform/ctxutil"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

const (
	CascadeDirect     = "direct"
	CascadeTransitive = "transitive"
)

var requestValidator = validator.New()

// EnvironmentFacts identifies the host a build ran on.
type EnvironmentFacts struct {
	Hostname      string `json:"hostname" validate:"required,max=150"`
	KernelVersion string `json:"kernel_version" validate:"required,max=150"`
	HostOS        string `json:"host_os" validate:"required,max=150"`
	HostTarget    string `json:"host_target" validate:"required,max=150"`
	Platform      string `json:"platform" validate:"required,max=50"`
}

func (f EnvironmentFacts) environment() types.BuildEnvironment {
	return types.BuildEnvironment{
		Hostname:      strings.TrimSpace(f.Hostname),
		KernelVersion: strings.TrimSpace(f.KernelVersion),
		HostOS:        strings.TrimSpace(f.HostOS),
		HostTarget:    strings.TrimSpace(f.HostTarget),
		Platform:      strings.TrimSpace(f.Platform),
	}
}

type BuildRequest struct {
	EnvironmentFacts
	FullHash     string `json:"full_hash" validate:"required,max=64"`
	SpackVersion string `json:"spack_version" validate:"required,max=250"`
	Tags         string `json:"tags,omitempty"`
}

type BuildResult struct {
	Build                   BuildSummary `json:"build"`
	BuildCreated            bool         `json:"build_created"`
	BuildEnvironmentCreated bool         `json:"build_environment_created"`
}

func (r BuildResult) Code() int {
	if r.BuildCreated {
		return http.StatusCreated
	}
	return http.StatusOK
}

type PhaseUpdate struct {
	BuildID   int64             `json:"build_id" validate:"required,gt=0"`
	PhaseName string            `json:"phase_name" validate:"required,max=250"`
	Status    string            `json:"status" validate:"required"`
	Output    *string           `json:"output,omitempty"`
	Errors    []json.RawMessage `json:"errors,omitempty"`
}

type PhaseResult struct {
	Phase         PhaseView `json:"phase"`
	ErrorsAdded   int       `json:"errors_added"`
	ErrorsSkipped int       `json:"errors_skipped"`
}

// PhaseErrors is one entry of a bulk error upload.
type PhaseErrors struct {
	BuildID   int64             `json:"build_id"`
	PhaseName string            `json:"phase_name"`
	Errors    []json.RawMessage `json:"errors"`
}

type ErrorIngestResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// BuildLogParser produces error and warning rows for a build that has not been parsed yet.
type BuildLogParser interface {
	ParseBuild(ctx context.Context, buildID int64) error
}

type BuildService interface {
	GetOrCreate(ctx context.Context, req BuildRequest) (*BuildResult, error)
	UpdateStatus(ctx context.Context, buildID int64, status string) (*BuildSummary, error)
	UpdatePhase(ctx context.Context, req PhaseUpdate) (*PhaseResult, error)
	AddErrors(ctx context.Context, batch []PhaseErrors) (*ErrorIngestResult, error)
	Get(ctx context.Context, buildID int64) (*BuildDetail, error)
}

type BuildServiceConfig struct {
	CascadeMode string
}

type buildService struct {
	db           *gorm.DB
	log          *logger.Logger
	deps         aggregates.BaseDeps
	cfg          BuildServiceConfig
	specs        repos.SpecRepo
	dependencies repos.DependencyRepo
	envs         repos.BuildEnvironmentRepo
	builds       repos.BuildRepo
	phases       repos.BuildPhaseRepo
	events       repos.LogEventRepo
	envars       repos.EnvarRepo
	notifier     BuildNotifier
	parser       BuildLogParser
	metrics      *observability.Metrics
}

func NewBuildService(
	db *gorm.DB,
	baseLog *logger.Logger,
	hooks aggregates.Hooks,
	cfg BuildServiceConfig,
	specRepo repos.SpecRepo,
	dependencies repos.DependencyRepo,
	envs repos.BuildEnvironmentRepo,
	buildRepo repos.BuildRepo,
	phases repos.BuildPhaseRepo,
	events repos.LogEventRepo,
	envars repos.EnvarRepo,
	notifier BuildNotifier,
	parser BuildLogParser,
	metrics *observability.Metrics,
) BuildService {
	log := baseLog.With("service", "BuildService")
	if cfg.CascadeMode != CascadeTransitive {
		cfg.CascadeMode = CascadeDirect
	}
	if notifier == nil {
		notifier = NewBuildNotifier(baseLog, nil)
	}
	return &buildService{
		db:           db,
		log:          log,
		deps:         aggregates.BaseDeps{DB: db, Log: log, Hooks: hooks}.WithDefaults(),
		cfg:          cfg,
		specs:        specRepo,
		dependencies: dependencies,
		envs:         envs,
		builds:       buildRepo,
		phases:       phases,
		events:       events,
		envars:       envars,
		notifier:     notifier,
		parser:       parser,
		metrics:      metrics,
	}
}

// GetOrCreate never creates a spec: the spec's configuration must have been imported first.
func (s *buildService) GetOrCreate(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	if err := requestValidator.Struct(req); err != nil {
		return nil, apierr.BadRequest("invalid_build_request", "%s", flattenValidation(err))
	}
	var out BuildResult
	err := aggregates.ExecuteWrite(ctx, s.deps, "build.get_or_create", func(dbc dbctx.Context) error {
		spec, err := s.specs.GetByFullHash(dbc, strings.TrimSpace(req.FullHash), strings.TrimSpace(req.SpackVersion))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.BadRequest("unknown_spec",
					"spec %s for spack %s does not exist, import its configuration first", req.FullHash, req.SpackVersion)
			}
			return err
		}
		env, envCreated, err := s.envs.FindOrCreate(dbc, req.environment())
		if err != nil {
			return err
		}
		b, created, err := s.builds.FindOrCreate(dbc, spec.ID, env.ID, ctxutil.OwnerID(ctx))
		if err != nil {
			return err
		}
		if tags := types.ParseTags(req.Tags); len(tags) > 0 {
			if _, err := s.builds.AddTags(dbc, b.ID, tags); err != nil {
				return err
			}
		}
		out = BuildResult{
			Build:                   summarizeBuild(b, spec),
			BuildCreated:            created,
			BuildEnvironmentCreated: envCreated,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.BuildCreated {
		s.log.Info("build created", "build_id", out.Build.BuildID, "spec", out.Build.SpecName, "full_hash", out.Build.SpecFullHash)
	}
	return &out, nil
}

// UpdateStatus moves a build to status and, for FAILED and CANCELLED, cancels the builds of
// the specs it depends on unless they already succeeded.
func (s *buildService) UpdateStatus(ctx context.Context, buildID int64, status string) (*BuildSummary, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !types.ValidBuildStatus(status) {
		return nil, apierr.BadRequest("invalid_status", "invalid build status %q", status)
	}
	var (
		out    BuildSummary
		events []types.BuildStatusEvent
	)
	err := aggregates.ExecuteWrite(ctx, s.deps, "build.update_status", func(dbc dbctx.Context) error {
		events = events[:0]
		b, err := s.lockBuild(dbc, buildID)
		if err != nil {
			return err
		}
		if err := checkTransition(b.Status, status); err != nil {
			return err
		}
		if b.Status != status {
			if err := s.builds.SetStatus(dbc, b.ID, status); err != nil {
				return err
			}
			events = append(events, statusEvent(b, b.Spec, status, false, 0))
		}
		if types.CascadesCancellation(status) {
			cascaded, err := s.cascade(dbc, b)
			if err != nil {
				return err
			}
			events = append(events, cascaded...)
		}
		b.Status = status
		out = summarizeBuild(b, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	cascades := 0
	for _, ev := range events {
		if ev.Cascaded {
			cascades++
		} else {
			s.metrics.IncBuildStatus(ev.NewStatus)
		}
		s.notifier.StatusChanged(ctx, ev)
	}
	s.metrics.AddCascadeCancellations(cascades)
	if cascades > 0 {
		s.log.Info("cascade cancelled dependency builds", "build_id", buildID, "status", status, "cancelled", cascades)
	}
	return &out, nil
}

func checkTransition(from, to string) error {
	switch {
	case from == to:
		return nil
	case to == types.BuildStatusNotRun:
		return apierr.BadRequest("invalid_transition", "a build cannot return to %s from %s", to, from)
	case from == types.BuildStatusSuccess:
		return apierr.BadRequest("invalid_transition", "a successful build cannot become %s", to)
	}
	return nil
}

// cascade walks dependency edges from b's spec. Direct mode stops after one hop; transitive
// mode keeps walking but never passes through a successful build.
func (s *buildService) cascade(dbc dbctx.Context, b *types.Build) ([]types.BuildStatusEvent, error) {
	var out []types.BuildStatusEvent
	seen := map[int64]struct{}{b.SpecID: {}}
	frontier := []int64{b.SpecID}
	for depth := 0; len(frontier) > 0; depth++ {
		if depth > 0 && s.cfg.CascadeMode != CascadeTransitive {
			break
		}
		edges, err := s.dependencies.ListForSpecs(dbc, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, edge := range edges {
			if _, ok := seen[edge.DependencySpecID]; ok {
				continue
			}
			seen[edge.DependencySpecID] = struct{}{}

			dep, err := s.builds.GetForSpec(dbc, edge.DependencySpecID, b.BuildEnvironmentID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				frontier = append(frontier, edge.DependencySpecID)
				continue
			}
			if err != nil {
				return nil, err
			}
			if dep.Status == types.BuildStatusSuccess {
				continue
			}
			changed, err := s.builds.CancelUnlessSuccess(dbc, dep.ID)
			if err != nil {
				return nil, err
			}
			if changed {
				out = append(out, statusEvent(dep, edge.DependencySpec, types.BuildStatusCancelled, true, b.ID))
			}
			frontier = append(frontier, edge.DependencySpecID)
		}
	}
	return out, nil
}

func statusEvent(b *types.Build, spec *types.Spec, newStatus string, cascaded bool, causedBy int64) types.BuildStatusEvent {
	ev := types.BuildStatusEvent{
		BuildID:   b.ID,
		OldStatus: b.Status,
		NewStatus: newStatus,
		Cascaded:  cascaded,
		CausedBy:  causedBy,
	}
	if spec != nil {
		ev.SpecFullHash = spec.FullHash
		ev.SpecName = spec.Name
	}
	return ev
}

func (s *buildService) lockBuild(dbc dbctx.Context, buildID int64) (*types.Build, error) {
	if buildID <= 0 {
		return nil, apierr.BadRequest("missing_build_id", "build_id is required")
	}
	ok, err := s.builds.Lock(dbc, buildID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.BadRequest("unknown_build", "build %d does not exist", buildID)
	}
	return s.builds.GetByID(dbc, buildID)
}

// UpdatePhase records a phase result. Error records are stored afterwards one by one, and a
// bad record is skipped without failing the phase.
func (s *buildService) UpdatePhase(ctx context.Context, req PhaseUpdate) (*PhaseResult, error) {
	if err := requestValidator.Struct(req); err != nil {
		return nil, apierr.BadRequest("invalid_phase", "%s", flattenValidation(err))
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if !types.ValidPhaseStatus(req.Status) {
		return nil, apierr.BadRequest("invalid_phase_status", "invalid phase status %q", req.Status)
	}
	var phase *types.BuildPhase
	err := aggregates.ExecuteWrite(ctx, s.deps, "build.update_phase", func(dbc dbctx.Context) error {
		b, err := s.lockBuild(dbc, req.BuildID)
		if err != nil {
			return err
		}
		p, _, err := s.phases.FindOrCreate(dbc, b.ID, strings.TrimSpace(req.PhaseName))
		if err != nil {
			return err
		}
		if err := s.phases.Update(dbc, p.ID, req.Status, req.Output); err != nil {
			return err
		}
		if req.Output != nil {
			if err := s.builds.SetLogsParsed(dbc, b.ID, false); err != nil {
				return err
			}
		}
		p.Status = req.Status
		phase = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	added, skipped := s.addPhaseErrors(ctx, phase.ID, req.Errors)
	return &PhaseResult{
		Phase:         PhaseView{ID: phase.ID, Name: phase.Name, Status: phase.Status},
		ErrorsAdded:   added,
		ErrorsSkipped: skipped,
	}, nil
}

// AddErrors ingests errors for several phases. Entries naming an unknown build are skipped.
func (s *buildService) AddErrors(ctx context.Context, batch []PhaseErrors) (*ErrorIngestResult, error) {
	out := &ErrorIngestResult{}
	for _, entry := range batch {
		name := strings.TrimSpace(entry.PhaseName)
		if entry.BuildID <= 0 || name == "" {
			out.Skipped += len(entry.Errors)
			continue
		}
		var phaseID int64
		err := aggregates.ExecuteWrite(ctx, s.deps, "build.error_phase", func(dbc dbctx.Context) error {
			if _, err := s.lockBuild(dbc, entry.BuildID); err != nil {
				return err
			}
			p, _, err := s.phases.FindOrCreate(dbc, entry.BuildID, name)
			if err != nil {
				return err
			}
			phaseID = p.ID
			return nil
		})
		if err != nil {
			s.log.Warn("skipping errors for phase", "build_id", entry.BuildID, "phase", name, "error", err)
			out.Skipped += len(entry.Errors)
			continue
		}
		added, skipped := s.addPhaseErrors(ctx, phaseID, entry.Errors)
		out.Added += added
		out.Skipped += skipped
	}
	return out, nil
}

func (s *buildService) addPhaseErrors(ctx context.Context, phaseID int64, records []json.RawMessage) (added, skipped int) {
	for i, raw := range records {
		var ev types.LogEvent
		if err := json.Unmarshal(raw, &ev); err != nil || strings.TrimSpace(ev.Text) == "" {
			s.log.Warn("skipping malformed error record", "phase_id", phaseID, "index", i, "error", err)
			skipped++
			continue
		}
		created := false
		err := aggregates.ExecuteWrite(ctx, s.deps, "build.add_error", func(dbc dbctx.Context) error {
			_, wasCreated, err := s.events.AddError(dbc, phaseID, ev)
			created = wasCreated
			return err
		})
		if err != nil {
			s.log.Warn("skipping error record", "phase_id", phaseID, "index", i, "error", err)
			skipped++
			continue
		}
		if created {
			added++
		}
	}
	s.metrics.AddLogEvents("error", added)
	return added, skipped
}

// Get returns the full build. Logs are parsed on first read.
func (s *buildService) Get(ctx context.Context, buildID int64) (*BuildDetail, error) {
	dbc := dbctx.Context{Ctx: ctx}
	b, err := s.builds.GetByID(dbc, buildID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("build_not_found", "build %d does not exist", buildID)
		}
		return nil, err
	}
	if !b.LogsParsed && s.parser != nil {
		if err := s.parser.ParseBuild(ctx, b.ID); err != nil {
			s.log.Warn("lazy log parse failed", "build_id", b.ID, "error", err)
		} else {
			b.LogsParsed = true
		}
	}

	out := &BuildDetail{
		BuildSummary:     summarizeBuild(b, nil),
		ConfigArgs:       b.ConfigArgs,
		BuildEnvironment: b.BuildEnvironment,
		Envars:           map[string]string{},
		LogsParsed:       b.LogsParsed,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
	if b.Spec != nil {
		out.SpackVersion = b.Spec.SpackVersion
	}
	if out.Tags, err = s.builds.ListTags(dbc, b.ID); err != nil {
		return nil, err
	}
	phases, err := s.phases.ListForBuild(dbc, b.ID)
	if err != nil {
		return nil, err
	}
	out.Phases = phaseViews(phases)
	vars, err := s.envars.ListForBuild(dbc, b.ID)
	if err != nil {
		return nil, err
	}
	for _, v := range vars {
		out.Envars[v.Name] = v.Value
	}
	if out.Errors, err = s.events.ListErrorsForBuild(dbc, b.ID); err != nil {
		return nil, err
	}
	if out.Warnings, err = s.events.ListWarningsForBuild(dbc, b.ID); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(msgs, "; ")
}
