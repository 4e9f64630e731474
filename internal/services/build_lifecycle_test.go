package services

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/spackmon-backend/internal/data/repos/testutil"
	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
)

func ptr[T any](v T) *T { return &v }

func TestGetOrCreateBuildIsIdempotent(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	g := newGraph(t)
	_, err := env.specs.Import(env.ctx, g.doc, env.spackVers)
	require.NoError(t, err)

	host := testutil.Unique("host")
	first := env.newBuild(t, g.root, host)
	assert.True(t, first.BuildCreated)
	assert.True(t, first.BuildEnvironmentCreated)
	assert.Equal(t, http.StatusCreated, first.Code())
	assert.Equal(t, types.BuildStatusNotRun, first.Build.Status)
	assert.Equal(t, "singularity", first.Build.SpecName)

	second := env.newBuild(t, g.root, host)
	assert.False(t, second.BuildCreated)
	assert.False(t, second.BuildEnvironmentCreated)
	assert.Equal(t, http.StatusOK, second.Code())
	assert.Equal(t, first.Build.BuildID, second.Build.BuildID)
}

func TestGetOrCreateBuildNeedsImportedSpec(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)

	_, err := env.builds.GetOrCreate(env.ctx, BuildRequest{
		EnvironmentFacts: env.facts("host"),
		FullHash:         testutil.Unique("missing"),
		SpackVersion:     env.spackVers,
	})
	ae := apierr.As(err)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "unknown_spec", ae.Code)

	_, err = env.builds.GetOrCreate(env.ctx, BuildRequest{FullHash: "x", SpackVersion: env.spackVers})
	assert.Equal(t, http.StatusBadRequest, apierr.As(err).Status)
}

func TestGetOrCreateBuildAddsTags(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	g := newGraph(t)
	_, err := env.specs.Import(env.ctx, g.doc, env.spackVers)
	require.NoError(t, err)

	req := BuildRequest{EnvironmentFacts: env.facts(testutil.Unique("host")), FullHash: g.root, SpackVersion: env.spackVers, Tags: "ci, nightly"}
	res, err := env.builds.GetOrCreate(env.ctx, req)
	require.NoError(t, err)
	req.Tags = "gpu"
	_, err = env.builds.GetOrCreate(env.ctx, req)
	require.NoError(t, err)

	tags, err := env.repos.builds.ListTags(dbctx.Context{Ctx: env.ctx}, res.Build.BuildID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ci", "gpu", "nightly"}, tags)
}

func TestFailureCascadesToDependencyBuilds(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	g := newGraph(t)
	_, err := env.specs.Import(env.ctx, g.doc, env.spackVers)
	require.NoError(t, err)

	host := testutil.Unique("host")
	root := env.newBuild(t, g.root, host)
	dep := env.newBuild(t, g.dep, host)
	leaf := env.newBuild(t, g.leaf, host)
	_, err = env.builds.UpdateStatus(env.ctx, leaf.Build.BuildID, types.BuildStatusSuccess)
	require.NoError(t, err)

	out, err := env.builds.UpdateStatus(env.ctx, root.Build.BuildID, types.BuildStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, types.BuildStatusFailed, out.Status)

	dbc := dbctx.Context{Ctx: env.ctx}
	got, err := env.repos.builds.GetByID(dbc, dep.Build.BuildID)
	require.NoError(t, err)
	assert.Equal(t, types.BuildStatusCancelled, got.Status)

	got, err = env.repos.builds.GetByID(dbc, leaf.Build.BuildID)
	require.NoError(t, err)
	assert.Equal(t, types.BuildStatusSuccess, got.Status, "successful builds are never cancelled")

	cascaded := env.pub.cascaded()
	require.Len(t, cascaded, 1)
	assert.Equal(t, dep.Build.BuildID, cascaded[0].BuildID)
	assert.Equal(t, root.Build.BuildID, cascaded[0].CausedBy)
	assert.Equal(t, g.dep, cascaded[0].SpecFullHash)
}

func TestCascadeModes(t *testing.T) {
	for _, tc := range []struct {
		mode string
		want string
	}{
		{mode: CascadeDirect, want: types.BuildStatusNotRun},
		{mode: CascadeTransitive, want: types.BuildStatusCancelled},
	} {
		t.Run(tc.mode, func(t *testing.T) {
			env := newTestEnv(t, tc.mode)
			ctx := env.ctx
			a := testutil.SeedSpec(t, ctx, env.db, "a", testutil.Unique("a"), env.spackVers)
			b := testutil.SeedSpec(t, ctx, env.db, "b", testutil.Unique("b"), env.spackVers)
			c := testutil.SeedSpec(t, ctx, env.db, "c", testutil.Unique("c"), env.spackVers)
			testutil.SeedDependency(t, ctx, env.db, a.ID, b.ID, "build")
			testutil.SeedDependency(t, ctx, env.db, b.ID, c.ID, "link")
			host := testutil.SeedBuildEnvironment(t, ctx, env.db, testutil.Unique("host"))
			ba := testutil.SeedBuild(t, ctx, env.db, a.ID, host.ID, "")
			bb := testutil.SeedBuild(t, ctx, env.db, b.ID, host.ID, "")
			bc := testutil.SeedBuild(t, ctx, env.db, c.ID, host.ID, "")

			_, err := env.builds.UpdateStatus(ctx, ba.ID, types.BuildStatusCancelled)
			require.NoError(t, err)

			dbc := dbctx.Context{Ctx: ctx}
			got, err := env.repos.builds.GetByID(dbc, bb.ID)
			require.NoError(t, err)
			assert.Equal(t, types.BuildStatusCancelled, got.Status)
			got, err = env.repos.builds.GetByID(dbc, bc.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Status)
		})
	}
}

func TestStatusTransitionRules(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	ctx := env.ctx
	spec := testutil.SeedSpec(t, ctx, env.db, "zlib", testutil.Unique("z"), env.spackVers)
	host := testutil.SeedBuildEnvironment(t, ctx, env.db, testutil.Unique("host"))
	b := testutil.SeedBuild(t, ctx, env.db, spec.ID, host.ID, "")

	_, err := env.builds.UpdateStatus(ctx, b.ID, "RUNNING")
	assert.Equal(t, "invalid_status", apierr.As(err).Code)

	_, err = env.builds.UpdateStatus(ctx, b.ID+1000, types.BuildStatusFailed)
	assert.Equal(t, "unknown_build", apierr.As(err).Code)

	_, err = env.builds.UpdateStatus(ctx, b.ID, types.BuildStatusFailed)
	require.NoError(t, err)
	_, err = env.builds.UpdateStatus(ctx, b.ID, types.BuildStatusNotRun)
	assert.Equal(t, "invalid_transition", apierr.As(err).Code)

	_, err = env.builds.UpdateStatus(ctx, b.ID, "success")
	require.NoError(t, err)
	_, err = env.builds.UpdateStatus(ctx, b.ID, types.BuildStatusSuccess)
	require.NoError(t, err, "repeating SUCCESS is a no-op")
	_, err = env.builds.UpdateStatus(ctx, b.ID, types.BuildStatusFailed)
	assert.Equal(t, "invalid_transition", apierr.As(err).Code)
}

func TestUpdatePhaseKeepsGoodErrors(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	ctx := env.ctx
	spec := testutil.SeedSpec(t, ctx, env.db, "zlib", testutil.Unique("z"), env.spackVers)
	host := testutil.SeedBuildEnvironment(t, ctx, env.db, testutil.Unique("host"))
	b := testutil.SeedBuild(t, ctx, env.db, spec.ID, host.ID, "")

	req := PhaseUpdate{
		BuildID:   b.ID,
		PhaseName: "install",
		Status:    "FAILED",
		Output:    ptr("==> Error: install failed\n"),
		Errors: []json.RawMessage{
			json.RawMessage(`{"text": "undefined reference to foo", "source_file": "a.c", "line_no": 12}`),
			json.RawMessage(`{"text": 7}`),
			json.RawMessage(`{"source_file": "no text"}`),
		},
	}
	res, err := env.builds.UpdatePhase(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "install", res.Phase.Name)
	assert.Equal(t, "FAILED", res.Phase.Status)
	assert.Equal(t, 1, res.ErrorsAdded)
	assert.Equal(t, 2, res.ErrorsSkipped)

	again, err := env.builds.UpdatePhase(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, res.Phase.ID, again.Phase.ID)
	assert.Equal(t, 0, again.ErrorsAdded, "identical errors are stored once")

	_, err = env.builds.UpdatePhase(ctx, PhaseUpdate{BuildID: b.ID, PhaseName: "install", Status: "RUNNING"})
	assert.Equal(t, http.StatusBadRequest, apierr.As(err).Status)
}

func TestAddErrorsSkipsUnknownBuilds(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	ctx := env.ctx
	spec := testutil.SeedSpec(t, ctx, env.db, "zlib", testutil.Unique("z"), env.spackVers)
	host := testutil.SeedBuildEnvironment(t, ctx, env.db, testutil.Unique("host"))
	b := testutil.SeedBuild(t, ctx, env.db, spec.ID, host.ID, "")

	res, err := env.builds.AddErrors(ctx, []PhaseErrors{
		{BuildID: b.ID, PhaseName: "build", Errors: []json.RawMessage{json.RawMessage(`{"text": "boom"}`)}},
		{BuildID: b.ID + 1000, PhaseName: "build", Errors: []json.RawMessage{json.RawMessage(`{"text": "lost"}`)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Skipped)
}

func TestGetParsesLogsOnFirstRead(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	ctx := env.ctx
	spec := testutil.SeedSpec(t, ctx, env.db, "zlib", testutil.Unique("z"), env.spackVers)
	host := testutil.SeedBuildEnvironment(t, ctx, env.db, testutil.Unique("host"))
	b := testutil.SeedBuild(t, ctx, env.db, spec.ID, host.ID, "")

	output := "checking for gcc... gcc\nzlib.c:10:5: error: expected ';' before '}' token\nutil.c:3:1: warning: unused variable 'x'\n"
	_, err := env.builds.UpdatePhase(ctx, PhaseUpdate{BuildID: b.ID, PhaseName: "build", Status: "FAILED", Output: &output})
	require.NoError(t, err)

	detail, err := env.builds.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, detail.LogsParsed)
	require.Len(t, detail.Errors, 1)
	assert.Equal(t, "zlib.c", detail.Errors[0].SourceFile)
	require.Len(t, detail.Warnings, 1)
	require.Len(t, detail.Phases, 1)
	assert.Equal(t, "build", detail.Phases[0].Name)

	again, err := env.builds.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, again.Errors, 1)

	_, err = env.builds.Get(ctx, b.ID+1000)
	assert.Equal(t, http.StatusNotFound, apierr.As(err).Status)
}

func TestConcurrentGetOrCreateBuildCreatesOneBuild(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	g := newGraph(t)
	res, err := env.specs.Import(env.ctx, g.doc, env.spackVers)
	require.NoError(t, err)
	host := testutil.Unique("host")
	const agents = 16

	codes := make([]int, agents)
	buildIDs := make([]int64, agents)
	var eg errgroup.Group
	for i := 0; i < agents; i++ {
		eg.Go(func() error {
			b, err := env.builds.GetOrCreate(env.ctx, BuildRequest{
				EnvironmentFacts: env.facts(host),
				FullHash:         g.root,
				SpackVersion:     env.spackVers,
			})
			if err != nil {
				return err
			}
			codes[i], buildIDs[i] = b.Code(), b.Build.BuildID
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	created := 0
	for i, code := range codes {
		if code == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusOK, code)
		}
		assert.Equal(t, buildIDs[0], buildIDs[i])
	}
	assert.Equal(t, 1, created, "exactly one request creates the build")

	var builds int64
	require.NoError(t, env.db.Model(&types.Build{}).Where("spec_id = ?", res.Spec.ID).Count(&builds).Error)
	assert.EqualValues(t, 1, builds)
}
