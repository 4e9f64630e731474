package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/spackmon-backend/internal/data/repos"
	"github.com/yungbote/spackmon-backend/internal/data/repos/testutil"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/modules/specgraph"
	"github.com/yungbote/spackmon-backend/internal/observability"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.BuildStatusEvent
}

func (p *recordingPublisher) PublishBuildStatus(_ context.Context, ev types.BuildStatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) cascaded() []types.BuildStatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []types.BuildStatusEvent
	for _, ev := range p.events {
		if ev.Cascaded {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	db        *gorm.DB
	ctx       context.Context
	repos     testRepos
	pub       *recordingPublisher
	metrics   *observability.Metrics
	specs     SpecImportService
	builds    BuildService
	metadata  MetadataService
	analysis  AnalysisService
	logs      LogParseService
	auth      AuthService
	tokens    TokenStore
	spackVers string
}

type testRepos struct {
	specs        repos.SpecRepo
	dependencies repos.DependencyRepo
	builds       repos.BuildRepo
	phases       repos.BuildPhaseRepo
	envars       repos.EnvarRepo
	attributes   repos.AttributeRepo
	installFiles repos.InstallFileRepo
	events       repos.LogEventRepo
	targets      repos.TargetRepo
}

func newTestEnv(t *testing.T, cascadeMode string) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	metrics := observability.NewMetrics()

	r := testRepos{
		specs:        repos.NewSpecRepo(db, log, nil),
		dependencies: repos.NewDependencyRepo(db, log, nil),
		builds:       repos.NewBuildRepo(db, log, nil),
		phases:       repos.NewBuildPhaseRepo(db, log, nil),
		envars:       repos.NewEnvarRepo(db, log, nil),
		attributes:   repos.NewAttributeRepo(db, log, nil),
		installFiles: repos.NewInstallFileRepo(db, log, nil),
		events:       repos.NewLogEventRepo(db, log, nil),
		targets:      repos.NewTargetRepo(db, log, nil),
	}
	pub := &recordingPublisher{}
	tokens := NewDBTokenStore(repos.NewUserTokenRepo(db, log))

	env := &testEnv{
		db:        db,
		ctx:       context.Background(),
		repos:     r,
		pub:       pub,
		metrics:   metrics,
		tokens:    tokens,
		spackVers: testutil.Unique("0.17"),
	}
	env.specs = NewSpecImportService(db, log, nil, r.targets,
		repos.NewArchitectureRepo(db, log, nil), repos.NewCompilerRepo(db, log, nil),
		r.specs, r.dependencies, nil, metrics)
	env.logs = NewLogParseService(db, log, nil, nil, r.builds, r.phases, r.events, metrics)
	env.builds = NewBuildService(db, log, nil, BuildServiceConfig{CascadeMode: cascadeMode},
		r.specs, r.dependencies, repos.NewBuildEnvironmentRepo(db, log, nil), r.builds, r.phases,
		r.events, r.envars, NewBuildNotifier(log, pub), env.logs, metrics)
	env.metadata = NewMetadataService(db, log, nil, MetadataServiceConfig{}, r.builds, r.installFiles,
		r.attributes, r.envars, env.builds)
	env.analysis = NewAnalysisService(db, log, AnalysisConfig{}, r.builds, r.installFiles, r.attributes, nil)
	env.auth = NewAuthService(db, log, AuthConfig{Secret: "test-secret", TokenTTL: time.Minute, Server: "http://monitor.test"},
		repos.NewUserRepo(db, log), tokens)
	return env
}

// graph is a root package with two dependencies, one of which is a failed concretization.
type graph struct {
	root, dep, leaf string
	doc             *specgraph.Document
}

func newGraph(t *testing.T) graph {
	t.Helper()
	g := graph{root: testutil.Unique("abc"), dep: testutil.Unique("def"), leaf: testutil.Unique("ghi")}
	raw := fmt.Sprintf(`{"spec": {"nodes": [
	  {"name": "singularity", "version": "3.8.0", "full_hash": %q,
	   "arch": {"platform": "linux", "platform_os": "ubuntu20.04",
	            "target": {"name": "skylake", "vendor": "GenuineIntel", "generation": 0,
	                       "features": ["avx", "avx2"], "parents": ["broadwell"]}},
	   "compiler": {"name": "gcc", "version": "9.3.0"},
	   "parameters": {"network": true},
	   "dependencies": [
	     {"name": "go", "full_hash": %q, "type": ["build"]},
	     {"name": "libseccomp", "build_hash": %q, "type": ["link", "build"]}
	   ]},
	  {"name": "go", "full_hash": %q,
	   "arch": {"platform": "linux", "platform_os": "ubuntu20.04", "target": "skylake"},
	   "compiler": {"name": "gcc", "version": "9.3.0"}},
	  {"name": "libseccomp", "hash": %q}
	]}}`, g.root, g.dep, g.leaf, g.dep, g.leaf)
	doc, err := specgraph.Parse([]byte(raw))
	require.NoError(t, err)
	g.doc = doc
	return g
}

func (e *testEnv) facts(hostname string) EnvironmentFacts {
	return EnvironmentFacts{
		Hostname:      hostname,
		KernelVersion: "#1 SMP Debian 5.10.46-4",
		HostOS:        "ubuntu20.04",
		HostTarget:    "skylake",
		Platform:      "linux",
	}
}

func (e *testEnv) newBuild(t *testing.T, fullHash, hostname string) *BuildResult {
	t.Helper()
	res, err := e.builds.GetOrCreate(e.ctx, BuildRequest{
		EnvironmentFacts: e.facts(hostname),
		FullHash:         fullHash,
		SpackVersion:     e.spackVers,
	})
	require.NoError(t, err)
	return res
}
