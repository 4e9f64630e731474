package specgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Document is a concretized spack spec graph. Nodes[0] is the root.
type Document struct {
	Nodes []Node `json:"nodes" validate:"required,min=1,dive"`
}

type Node struct {
	Name         string          `json:"name" validate:"required,max=250"`
	Version      string          `json:"version,omitempty" validate:"max=50"`
	Namespace    string          `json:"namespace,omitempty" validate:"max=250"`
	Hash         string          `json:"hash,omitempty" validate:"max=64"`
	FullHash     string          `json:"full_hash,omitempty" validate:"max=64"`
	BuildHash    string          `json:"build_hash,omitempty" validate:"max=64"`
	PackageHash  string          `json:"package_hash,omitempty" validate:"max=250"`
	Parameters   json.RawMessage `json:"parameters,omitempty"`
	Arch         *Arch           `json:"arch,omitempty" validate:"omitempty"`
	Compiler     *Compiler       `json:"compiler,omitempty" validate:"omitempty"`
	Dependencies []DependencyRef `json:"dependencies,omitempty" validate:"dive"`
}

// Identity is the hash the node is stored under: full_hash, then hash, then build_hash.
func (n Node) Identity() string {
	return firstNonEmpty(n.FullHash, n.Hash, n.BuildHash)
}

// FailedConcretization reports whether the node arrived without an arch.
func (n Node) FailedConcretization() bool { return n.Arch == nil }

// ParametersJSON returns the raw parameters object, defaulting to {}.
func (n Node) ParametersJSON() []byte {
	raw := bytes.TrimSpace(n.Parameters)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []byte("{}")
	}
	return raw
}

type Arch struct {
	Platform   string    `json:"platform" validate:"required,max=50"`
	PlatformOS string    `json:"platform_os" validate:"required,max=50"`
	Target     TargetRef `json:"target"`
}

// TargetRef is either a bare target name or a full target description. Detailed is set
// only for the object form; a bare name never touches the target's stored attributes.
type TargetRef struct {
	Name       string   `json:"name" validate:"required,max=100"`
	Vendor     string   `json:"vendor,omitempty"`
	Generation *int     `json:"generation,omitempty" validate:"omitempty,min=0"`
	Features   []string `json:"features,omitempty" validate:"dive,required"`
	Parents    []string `json:"parents,omitempty" validate:"dive,required"`
	Detailed   bool     `json:"-"`
}

func (t *TargetRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		*t = TargetRef{Name: strings.TrimSpace(name)}
		return nil
	}
	type plain TargetRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("target must be a string or an object: %w", err)
	}
	*t = TargetRef(p)
	t.Name = strings.TrimSpace(t.Name)
	t.Detailed = true
	return nil
}

func (t TargetRef) MarshalJSON() ([]byte, error) {
	if !t.Detailed {
		return json.Marshal(t.Name)
	}
	type plain TargetRef
	return json.Marshal(plain(t))
}

type Compiler struct {
	Name    string `json:"name" validate:"required,max=50"`
	Version string `json:"version" validate:"max=50"`
}

type DependencyRef struct {
	Name      string   `json:"name" validate:"required,max=250"`
	FullHash  string   `json:"full_hash,omitempty" validate:"max=64"`
	BuildHash string   `json:"build_hash,omitempty" validate:"max=64"`
	Hash      string   `json:"hash,omitempty" validate:"max=64"`
	Type      []string `json:"type,omitempty"`
}

// Identity uses the same precedence as Node.Identity.
func (d DependencyRef) Identity() string {
	return firstNonEmpty(d.FullHash, d.Hash, d.BuildHash)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
