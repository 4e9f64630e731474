package specs

import (
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// FailedConcretization marks a spec that arrived without an arch.
const FailedConcretization = "FAILED_CONCRETIZATION"

// Spec is one package build configuration. Identity is (name, full_hash, spack_version).
type Spec struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string         `gorm:"column:name;size:250;not null;uniqueIndex:uk_spec_identity,priority:1" json:"name"`
	FullHash     string         `gorm:"column:full_hash;size:64;not null;uniqueIndex:uk_spec_identity,priority:2;index" json:"full_hash"`
	SpackVersion string         `gorm:"column:spack_version;size:250;not null;uniqueIndex:uk_spec_identity,priority:3" json:"spack_version"`
	Version      string         `gorm:"column:version;size:50" json:"version,omitempty"`
	Namespace    string         `gorm:"column:namespace;size:250" json:"namespace,omitempty"`
	Hash         string         `gorm:"column:hash;size:64" json:"hash,omitempty"`
	BuildHash    string         `gorm:"column:build_hash;size:64" json:"build_hash,omitempty"`
	PackageHash  string         `gorm:"column:package_hash;size:250" json:"package_hash,omitempty"`
	Parameters   datatypes.JSON `gorm:"column:parameters" json:"parameters,omitempty"`
	ArchID       *int64         `gorm:"column:arch_id;index" json:"arch_id,omitempty"`
	Arch         *Architecture  `gorm:"foreignKey:ArchID" json:"arch,omitempty"`
	CompilerID   *int64         `gorm:"column:compiler_id;index" json:"compiler_id,omitempty"`
	Compiler     *Compiler      `gorm:"foreignKey:CompilerID" json:"compiler,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (Spec) TableName() string { return "specs" }

// Dependency is an edge from the owning spec to the spec it depends on. Edge identity
// includes both endpoints and the canonical type set.
type Dependency struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SpecID           int64     `gorm:"column:spec_id;not null;uniqueIndex:uk_spec_dependency,priority:1" json:"spec_id"`
	DependencySpecID int64     `gorm:"column:dependency_spec_id;not null;uniqueIndex:uk_spec_dependency,priority:2;index" json:"dependency_spec_id"`
	DependencyType   string    `gorm:"column:dependency_type;size:100;not null;uniqueIndex:uk_spec_dependency,priority:3" json:"dependency_type"`
	DependencySpec   *Spec     `gorm:"foreignKey:DependencySpecID" json:"dependency_spec,omitempty"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
}

func (Dependency) TableName() string { return "spec_dependencies" }

// Types splits the stored canonical type set.
func (d Dependency) Types() []string {
	if d.DependencyType == "" {
		return []string{}
	}
	return strings.Split(d.DependencyType, ",")
}

// CanonicalDependencyType lowercases, dedupes and sorts a type set so that
// ["run","build"] and ["build","run","build"] key the same edge.
func CanonicalDependencyType(types []string) string {
	seen := make(map[string]struct{}, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
