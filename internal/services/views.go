package services

import (
	"encoding/json"
	"time"

	types "github.com/yungbote/spackmon-backend/internal/domain"
)

type TargetView struct {
	Name       string   `json:"name"`
	Vendor     string   `json:"vendor,omitempty"`
	Generation *int     `json:"generation,omitempty"`
	Features   []string `json:"features"`
	Parents    []string `json:"parents"`
}

type ArchView struct {
	Platform   string     `json:"platform"`
	PlatformOS string     `json:"platform_os"`
	Target     TargetView `json:"target"`
}

type CompilerView struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type DependencyView struct {
	Hash string   `json:"hash"`
	Type []string `json:"type"`
}

type SpecView struct {
	ID           int64                     `json:"id"`
	Name         string                    `json:"name"`
	Version      string                    `json:"version,omitempty"`
	FullHash     string                    `json:"full_hash"`
	SpackVersion string                    `json:"spack_version"`
	Namespace    string                    `json:"namespace,omitempty"`
	Hash         string                    `json:"hash,omitempty"`
	BuildHash    string                    `json:"build_hash,omitempty"`
	PackageHash  string                    `json:"package_hash,omitempty"`
	Parameters   json.RawMessage           `json:"parameters,omitempty"`
	Arch         *ArchView                 `json:"arch"`
	Compiler     *CompilerView             `json:"compiler"`
	Dependencies map[string]DependencyView `json:"dependencies"`
}

// BuildSummary is the short build form returned by write endpoints.
type BuildSummary struct {
	BuildID      int64  `json:"build_id"`
	SpecFullHash string `json:"spec_full_hash"`
	SpecName     string `json:"spec_name"`
	Status       string `json:"status"`
}

type PhaseView struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type BuildDetail struct {
	BuildSummary
	SpackVersion     string                  `json:"spack_version"`
	ConfigArgs       string                  `json:"config_args,omitempty"`
	Tags             []string                `json:"tags"`
	BuildEnvironment *types.BuildEnvironment `json:"build_environment,omitempty"`
	Phases           []PhaseView             `json:"phases"`
	Envars           map[string]string       `json:"envars"`
	Errors           []*types.BuildError     `json:"errors"`
	Warnings         []*types.BuildWarning   `json:"warnings"`
	LogsParsed       bool                    `json:"logs_parsed"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func summarizeBuild(b *types.Build, spec *types.Spec) BuildSummary {
	out := BuildSummary{BuildID: b.ID, Status: b.Status}
	if spec == nil {
		spec = b.Spec
	}
	if spec != nil {
		out.SpecFullHash = spec.FullHash
		out.SpecName = spec.Name
	}
	return out
}

func phaseViews(phases []*types.BuildPhase) []PhaseView {
	out := make([]PhaseView, 0, len(phases))
	for _, p := range phases {
		out = append(out, PhaseView{ID: p.ID, Name: p.Name, Status: p.Status})
	}
	return out
}
