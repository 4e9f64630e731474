package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/repos"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/modules/splice"
	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

const DefaultSymbolAnalyzer = "symbolator-json"

type SpliceResult struct {
	splice.Prediction
	A   string `json:"A"`
	B   string `json:"B"`
	AID int64  `json:"A_id"`
	BID int64  `json:"B_id"`
}

type AnalysisService interface {
	PredictSplice(ctx context.Context, buildA, buildB int64) (*SpliceResult, error)
	DownloadAttribute(ctx context.Context, id int64) (*types.Attribute, types.AttributeValue, error)
}

type AnalysisConfig struct {
	SymbolAnalyzer string
}

type analysisService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          AnalysisConfig
	builds       repos.BuildRepo
	installFiles repos.InstallFileRepo
	attributes   repos.AttributeRepo
	solver       splice.Solver
}

func NewAnalysisService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg AnalysisConfig,
	buildRepo repos.BuildRepo,
	installFiles repos.InstallFileRepo,
	attributes repos.AttributeRepo,
	solver splice.Solver,
) AnalysisService {
	if strings.TrimSpace(cfg.SymbolAnalyzer) == "" {
		cfg.SymbolAnalyzer = DefaultSymbolAnalyzer
	}
	if solver == nil {
		solver = splice.SetSolver{}
	}
	return &analysisService{
		db:           db,
		log:          baseLog.With("service", "AnalysisService"),
		cfg:          cfg,
		builds:       buildRepo,
		installFiles: installFiles,
		attributes:   attributes,
		solver:       solver,
	}
}

// PredictSplice swaps libraries of build A for same-named libraries of build B and reports
// the symbols that would go missing.
func (s *analysisService) PredictSplice(ctx context.Context, buildA, buildB int64) (*SpliceResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	a, err := s.loadBuild(dbc, buildA)
	if err != nil {
		return nil, err
	}
	b, err := s.loadBuild(dbc, buildB)
	if err != nil {
		return nil, err
	}
	original, err := s.corpora(dbc, a.ID)
	if err != nil {
		return nil, err
	}
	splices, err := s.corpora(dbc, b.ID)
	if err != nil {
		return nil, err
	}
	pred, err := splice.Predict(ctx, s.solver, original, splices)
	if err != nil {
		return nil, err
	}
	out := &SpliceResult{Prediction: *pred}
	if a.Spec != nil {
		out.A, out.AID = specLabel(a.Spec), a.Spec.ID
	}
	if b.Spec != nil {
		out.B, out.BID = specLabel(b.Spec), b.Spec.ID
	}
	s.log.Debug("splice predicted", "build_a", a.ID, "build_b", b.ID, "missing", len(pred.Missing))
	return out, nil
}

func (s *analysisService) loadBuild(dbc dbctx.Context, id int64) (*types.Build, error) {
	if id <= 0 {
		return nil, apierr.BadRequest("missing_build_id", "both build ids are required")
	}
	b, err := s.builds.GetByID(dbc, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("build_not_found", "build %d does not exist", id)
		}
		return nil, err
	}
	return b, nil
}

// corpora collects the symbol tables the analyzer recorded for a build's install files. A
// corpus without a path takes the install file's name.
func (s *analysisService) corpora(dbc dbctx.Context, buildID int64) ([]splice.Corpus, error) {
	files, err := s.installFiles.ListForBuild(dbc, buildID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	names := make(map[int64]string, len(files))
	ids := make([]int64, 0, len(files))
	for _, f := range files {
		names[f.ID] = f.Name
		ids = append(ids, f.ID)
	}
	attrs, err := s.attributes.ListForInstallFiles(dbc, ids, s.cfg.SymbolAnalyzer)
	if err != nil {
		return nil, err
	}
	var out []splice.Corpus
	for _, attr := range attrs {
		if attr.ValueKind != types.ValueJSON {
			continue
		}
		decoded, err := splice.DecodeCorpora(attr.JSONValue)
		if err != nil {
			s.log.Warn("skipping undecodable corpus", "attribute_id", attr.ID, "error", err)
			continue
		}
		for _, c := range decoded {
			if c.Path == "" {
				c.Path = names[attr.InstallFileID]
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func specLabel(spec *types.Spec) string {
	label := spec.Name
	if spec.Version != "" {
		label += "@" + spec.Version
	}
	if spec.Compiler != nil {
		label += fmt.Sprintf("%%%s@%s", spec.Compiler.Name, spec.Compiler.Version)
	}
	if len(spec.FullHash) > 7 {
		return label + " /" + spec.FullHash[:7]
	}
	return label + " /" + spec.FullHash
}

// DownloadAttribute returns the attribute and its stored value. An attribute without a value
// is reported as not found.
func (s *analysisService) DownloadAttribute(ctx context.Context, id int64) (*types.Attribute, types.AttributeValue, error) {
	attr, err := s.attributes.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.AttributeValue{}, apierr.NotFound("attribute_not_found", "attribute %d does not exist", id)
		}
		return nil, types.AttributeValue{}, err
	}
	v := attr.Payload()
	if v.Kind == "" || (v.Kind == types.ValueJSON && len(v.JSON) == 0) || (v.Kind == types.ValueBinary && v.Binary == nil) {
		return nil, v, apierr.New(http.StatusNotFound, "attribute_empty", errors.New("this attribute does not have an associated value"))
	}
	return attr, v, nil
}
