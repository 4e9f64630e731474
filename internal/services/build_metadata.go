package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/aggregates"
	"github.com/yungbote/spackmon-backend/internal/data/repos"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

const DefaultInstallPrefixMarker = "/spack/opt/spack/"

const (
	metadataConfigArgs   = "config_args"
	metadataInstallFiles = "install_files"
	metadataEnvars       = "environment_variables"
)

var metadataAliases = map[string]string{
	"config":       metadataConfigArgs,
	"manifest":     metadataInstallFiles,
	"envars":       metadataEnvars,
	"environment":  metadataEnvars,
	"install_file": metadataInstallFiles,
}

// MetadataRequest names the build either by id or by the facts that identify it.
type MetadataRequest struct {
	BuildID  int64                      `json:"build_id,omitempty"`
	Build    *BuildRequest              `json:"-"`
	Metadata map[string]json.RawMessage `json:"metadata"`
}

type MetadataResult struct {
	Build   BuildSummary `json:"build"`
	Applied []string     `json:"applied"`
	Skipped int          `json:"skipped"`
}

type MetadataService interface {
	Merge(ctx context.Context, req MetadataRequest) (*MetadataResult, error)
}

type MetadataServiceConfig struct {
	InstallPrefixMarker string
}

type metadataService struct {
	db           *gorm.DB
	log          *logger.Logger
	deps         aggregates.BaseDeps
	cfg          MetadataServiceConfig
	builds       repos.BuildRepo
	installFiles repos.InstallFileRepo
	attributes   repos.AttributeRepo
	envars       repos.EnvarRepo
	buildService BuildService
}

func NewMetadataService(
	db *gorm.DB,
	baseLog *logger.Logger,
	hooks aggregates.Hooks,
	cfg MetadataServiceConfig,
	buildRepo repos.BuildRepo,
	installFiles repos.InstallFileRepo,
	attributes repos.AttributeRepo,
	envars repos.EnvarRepo,
	buildService BuildService,
) MetadataService {
	log := baseLog.With("service", "MetadataService")
	if strings.TrimSpace(cfg.InstallPrefixMarker) == "" {
		cfg.InstallPrefixMarker = DefaultInstallPrefixMarker
	}
	return &metadataService{
		db:           db,
		log:          log,
		deps:         aggregates.BaseDeps{DB: db, Log: log, Hooks: hooks}.WithDefaults(),
		cfg:          cfg,
		builds:       buildRepo,
		installFiles: installFiles,
		attributes:   attributes,
		envars:       envars,
		buildService: buildService,
	}
}

// Merge applies each metadata section. A bad analyzer record is skipped; a bad section is
// logged and the remaining sections still apply.
func (s *metadataService) Merge(ctx context.Context, req MetadataRequest) (*MetadataResult, error) {
	b, err := s.resolveBuild(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &MetadataResult{Build: summarizeBuild(b, nil), Applied: []string{}}

	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		payload := req.Metadata[key]
		section := strings.TrimSpace(key)
		if alias, ok := metadataAliases[section]; ok {
			section = alias
		}
		var err error
		switch section {
		case metadataConfigArgs:
			err = s.mergeConfigArgs(ctx, b.ID, payload)
		case metadataInstallFiles:
			err = s.mergeManifest(ctx, b.ID, payload)
		case metadataEnvars:
			err = s.mergeEnvars(ctx, b.ID, payload)
		default:
			out.Skipped += s.mergeAnalyzer(ctx, b.ID, section, payload)
		}
		if err != nil {
			s.log.Warn("metadata section not applied", "build_id", b.ID, "section", section, "error", err)
			out.Skipped++
			continue
		}
		out.Applied = append(out.Applied, section)
	}
	return out, nil
}

func (s *metadataService) resolveBuild(ctx context.Context, req MetadataRequest) (*types.Build, error) {
	buildID := req.BuildID
	if buildID <= 0 && req.Build != nil {
		res, err := s.buildService.GetOrCreate(ctx, *req.Build)
		if err != nil {
			return nil, err
		}
		buildID = res.Build.BuildID
	}
	if buildID <= 0 {
		return nil, apierr.BadRequest("missing_build", "build_id or the build's environment facts are required")
	}
	b, err := s.builds.GetByID(dbctx.Context{Ctx: ctx}, buildID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.BadRequest("unknown_build", "build %d does not exist", buildID)
		}
		return nil, err
	}
	return b, nil
}

func (s *metadataService) mergeConfigArgs(ctx context.Context, buildID int64, payload json.RawMessage) error {
	text := rawText(payload)
	return aggregates.ExecuteWrite(ctx, s.deps, "build.config_args", func(dbc dbctx.Context) error {
		return s.builds.SetConfigArgs(dbc, buildID, text)
	})
}

type manifestAttrs struct {
	Type  string `json:"type"`
	Mode  *int   `json:"mode"`
	Owner *int   `json:"owner"`
	Group *int   `json:"group"`
	Hash  string `json:"hash"`
}

func (s *metadataService) mergeManifest(ctx context.Context, buildID int64, payload json.RawMessage) error {
	var manifest map[string]manifestAttrs
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return err
	}
	names := make([]string, 0, len(manifest))
	for name := range manifest {
		names = append(names, name)
	}
	sort.Strings(names)
	return aggregates.ExecuteWrite(ctx, s.deps, "build.install_files", func(dbc dbctx.Context) error {
		for _, name := range names {
			rel := s.relativeName(name)
			if rel == "" {
				continue
			}
			f, _, err := s.installFiles.FindOrCreate(dbc, buildID, rel)
			if err != nil {
				return err
			}
			attrs := manifest[name]
			if err := s.installFiles.ApplyManifest(dbc, f.ID, repos.ManifestEntry{
				Ftype: attrs.Type,
				Mode:  attrs.Mode,
				Owner: attrs.Owner,
				Group: attrs.Group,
				Hash:  attrs.Hash,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *metadataService) mergeEnvars(ctx context.Context, buildID int64, payload json.RawMessage) error {
	var vars map[string]string
	if err := json.Unmarshal(payload, &vars); err != nil {
		return err
	}
	return aggregates.ExecuteWrite(ctx, s.deps, "build.envars", func(dbc dbctx.Context) error {
		deleted, err := s.envars.ReplaceForBuild(dbc, buildID, vars)
		if err != nil {
			return err
		}
		if deleted > 0 {
			s.log.Debug("removed unreferenced environment variables", "build_id", buildID, "deleted", deleted)
		}
		return nil
	})
}

type analyzerRecord struct {
	InstallFile string          `json:"install_file"`
	Name        string          `json:"name"`
	Value       json.RawMessage `json:"value"`
	BinaryValue *string         `json:"binary_value"`
	JSONValue   json.RawMessage `json:"json_value"`
}

// value picks the populated variant. Exactly one is expected; text wins over binary and
// binary over json when a client sends more than one.
func (r analyzerRecord) value() (types.AttributeValue, error) {
	var v types.AttributeValue
	switch {
	case present(r.Value):
		v = types.TextValue(rawText(r.Value))
	case r.BinaryValue != nil:
		b, err := base64.StdEncoding.DecodeString(*r.BinaryValue)
		if err != nil {
			return v, err
		}
		v = types.BinaryValue(b)
	case present(r.JSONValue):
		raw := bytes.TrimSpace(r.JSONValue)
		if raw[0] == '"' {
			// json_value sent as an encoded string
			var inner string
			if err := json.Unmarshal(raw, &inner); err != nil {
				return v, err
			}
			raw = []byte(inner)
		}
		v = types.JSONValue(raw)
	default:
		return v, errors.New("record has no value")
	}
	return v, v.Validate()
}

func (s *metadataService) mergeAnalyzer(ctx context.Context, buildID int64, analyzer string, payload json.RawMessage) int {
	var records []analyzerRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		s.log.Warn("analyzer results are not a list", "build_id", buildID, "analyzer", analyzer, "error", err)
		return 1
	}
	skipped := 0
	for i, rec := range records {
		rel := s.relativeName(rec.InstallFile)
		name := strings.TrimSpace(rec.Name)
		value, err := rec.value()
		if rel == "" || name == "" || err != nil {
			s.log.Warn("skipping analyzer record", "build_id", buildID, "analyzer", analyzer, "index", i, "error", err)
			skipped++
			continue
		}
		err = aggregates.ExecuteWrite(ctx, s.deps, "build.attribute", func(dbc dbctx.Context) error {
			f, _, err := s.installFiles.FindOrCreate(dbc, buildID, rel)
			if err != nil {
				return err
			}
			_, _, err = s.attributes.Upsert(dbc, f.ID, name, analyzer, value)
			return err
		})
		if err != nil {
			s.log.Warn("storing analyzer record failed", "build_id", buildID, "analyzer", analyzer, "index", i, "error", err)
			skipped++
		}
	}
	return skipped
}

// relativeName strips everything up to and including the install prefix marker.
func (s *metadataService) relativeName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, s.cfg.InstallPrefixMarker); i >= 0 {
		name = name[i+len(s.cfg.InstallPrefixMarker):]
	}
	return name
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// rawText returns a json string's contents, or the raw json for anything else.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	if !present(raw) {
		return ""
	}
	return string(raw)
}
