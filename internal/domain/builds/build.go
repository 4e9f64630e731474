package builds

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/spackmon-backend/internal/domain/specs"
)

// BuildEnvironment identifies one class of build host.
type BuildEnvironment struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Hostname      string    `gorm:"column:hostname;size:150;not null;uniqueIndex:uk_build_environment,priority:1" json:"hostname"`
	KernelVersion string    `gorm:"column:kernel_version;size:150;not null;uniqueIndex:uk_build_environment,priority:2" json:"kernel_version"`
	HostOS        string    `gorm:"column:host_os;size:150;not null;uniqueIndex:uk_build_environment,priority:3" json:"host_os"`
	HostTarget    string    `gorm:"column:host_target;size:150;not null;uniqueIndex:uk_build_environment,priority:4" json:"host_target"`
	Platform      string    `gorm:"column:platform;size:50;not null;uniqueIndex:uk_build_environment,priority:5" json:"platform"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (BuildEnvironment) TableName() string { return "build_environments" }

func (e BuildEnvironment) Arch() string {
	return fmt.Sprintf("%s %s %s", e.Platform, e.HostOS, e.HostTarget)
}

type Build struct {
	ID                 int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	SpecID             int64             `gorm:"column:spec_id;not null;uniqueIndex:uk_build_identity,priority:1" json:"spec_id"`
	Spec               *specs.Spec       `gorm:"foreignKey:SpecID" json:"spec,omitempty"`
	BuildEnvironmentID int64             `gorm:"column:build_environment_id;not null;uniqueIndex:uk_build_identity,priority:2;index" json:"build_environment_id"`
	BuildEnvironment   *BuildEnvironment `gorm:"foreignKey:BuildEnvironmentID" json:"build_environment,omitempty"`
	Status             string            `gorm:"column:status;size:25;not null;default:NOTRUN;index" json:"status"`
	ConfigArgs         string            `gorm:"column:config_args;type:text" json:"config_args,omitempty"`
	OwnerID            *uuid.UUID        `gorm:"column:owner_id;type:uuid;index" json:"owner_id,omitempty"`
	LogsParsed         bool              `gorm:"column:logs_parsed;not null;default:false;index" json:"logs_parsed"`
	CreatedAt          time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null" json:"updated_at"`
}

func (Build) TableName() string { return "builds" }

type BuildTag struct {
	BuildID   int64     `gorm:"column:build_id;primaryKey" json:"build_id"`
	Tag       string    `gorm:"column:tag;size:100;primaryKey;index" json:"tag"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (BuildTag) TableName() string { return "build_tags" }

type BuildPhase struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BuildID   int64     `gorm:"column:build_id;not null;uniqueIndex:uk_build_phase,priority:1" json:"build_id"`
	Name      string    `gorm:"column:name;size:250;not null;uniqueIndex:uk_build_phase,priority:2" json:"name"`
	Status    string    `gorm:"column:status;size:25" json:"status,omitempty"`
	Output    string    `gorm:"column:output;type:text" json:"output,omitempty"`
	Error     string    `gorm:"column:error;type:text" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (BuildPhase) TableName() string { return "build_phases" }
