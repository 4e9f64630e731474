package domain

import (
	"github.com/yungbote/spackmon-backend/internal/domain/auth"
	"github.com/yungbote/spackmon-backend/internal/domain/builds"
	"github.com/yungbote/spackmon-backend/internal/domain/specs"
	"github.com/yungbote/spackmon-backend/internal/domain/user"
)

type (
	Target        = specs.Target
	Feature       = specs.Feature
	TargetFeature = specs.TargetFeature
	TargetParent  = specs.TargetParent
	Architecture  = specs.Architecture
	Compiler      = specs.Compiler
	Spec          = specs.Spec
	Dependency    = specs.Dependency

	BuildEnvironment    = builds.BuildEnvironment
	Build               = builds.Build
	BuildTag            = builds.BuildTag
	BuildPhase          = builds.BuildPhase
	BuildError          = builds.BuildError
	BuildWarning        = builds.BuildWarning
	LogEvent            = builds.LogEvent
	InstallFile         = builds.InstallFile
	Attribute           = builds.Attribute
	AttributeValue      = builds.AttributeValue
	EnvironmentVariable = builds.EnvironmentVariable
	BuildEnvar          = builds.BuildEnvar
	BuildStatusEvent    = builds.StatusEvent

	User      = user.User
	UserToken = auth.UserToken
)

const (
	BuildStatusNotRun    = builds.StatusNotRun
	BuildStatusSuccess   = builds.StatusSuccess
	BuildStatusFailed    = builds.StatusFailed
	BuildStatusCancelled = builds.StatusCancelled

	FailedConcretization = specs.FailedConcretization

	ValueText   = builds.ValueText
	ValueBinary = builds.ValueBinary
	ValueJSON   = builds.ValueJSON
)

var (
	CanonicalDependencyType = specs.CanonicalDependencyType
	ParseTags               = builds.ParseTags
	ValidBuildStatus        = builds.ValidBuildStatus
	ValidPhaseStatus        = builds.ValidPhaseStatus
	CascadesCancellation    = builds.CascadesCancellation
	TextValue               = builds.TextValue
	BinaryValue             = builds.BinaryValue
	JSONValue               = builds.JSONValue
)
