package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/modules/specgraph"
	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
)

func TestImportIsIdempotent(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	g := newGraph(t)
	dbc := dbctx.Context{Ctx: env.ctx}

	first, err := env.specs.Import(env.ctx, g.doc, env.spackVers)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, http.StatusCreated, first.Code())
	assert.Equal(t, g.root, first.Spec.FullHash)

	count, err := env.repos.specs.Count(dbc)
	require.NoError(t, err)

	second, err := env.specs.Import(env.ctx, g.doc, env.spackVers)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, http.StatusOK, second.Code())
	assert.Equal(t, first.Spec.ID, second.Spec.ID)

	after, err := env.repos.specs.Count(dbc)
	require.NoError(t, err)
	assert.Equal(t, count, after, "re-import must not add specs")

	deps, err := env.repos.dependencies.ListForSpec(dbc, first.Spec.ID)
	require.NoError(t, err)
	assert.Len(t, deps, 2)
}

func TestImportLinksEveryDependency(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	g := newGraph(t)

	res, err := env.specs.Import(env.ctx, g.doc, env.spackVers)
	require.NoError(t, err)

	require.Len(t, res.Spec.Dependencies, 2)
	assert.Equal(t, DependencyView{Hash: g.dep, Type: []string{"build"}}, res.Spec.Dependencies["go"])
	assert.Equal(t, DependencyView{Hash: g.leaf, Type: []string{"build", "link"}}, res.Spec.Dependencies["libseccomp"])

	dep, err := env.specs.GetSpec(env.ctx, g.dep, env.spackVers)
	require.NoError(t, err)
	assert.Equal(t, "go", dep.Name)
	require.NotNil(t, dep.Arch)
	assert.Equal(t, "skylake", dep.Arch.Target.Name)
}

func TestImportFailedConcretizationLeaf(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	g := newGraph(t)

	_, err := env.specs.Import(env.ctx, g.doc, env.spackVers)
	require.NoError(t, err)

	leaf, err := env.specs.GetSpec(env.ctx, g.leaf, env.spackVers)
	require.NoError(t, err)
	assert.Nil(t, leaf.Arch)
	assert.Equal(t, types.FailedConcretization, leaf.BuildHash)
	assert.Empty(t, leaf.Dependencies)
}

func TestImportUnionsTargetAttributes(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	g := newGraph(t)
	_, err := env.specs.Import(env.ctx, g.doc, env.spackVers)
	require.NoError(t, err)

	name := "zen-" + g.root
	doc := &specgraph.Document{Nodes: []specgraph.Node{{
		Name:     "zlib",
		FullHash: g.root + "-zlib",
		Arch: &specgraph.Arch{Platform: "linux", PlatformOS: "centos8", Target: specgraph.TargetRef{
			Name: name, Vendor: "AuthenticAMD", Features: []string{"sse4_2"}, Detailed: true,
		}},
	}}}
	_, err = env.specs.Import(env.ctx, doc, env.spackVers)
	require.NoError(t, err)

	doc.Nodes[0].FullHash = g.root + "-zlib2"
	doc.Nodes[0].Arch.Target.Features = []string{"avx"}
	doc.Nodes[0].Arch.Target.Vendor = "AMD"
	res, err := env.specs.Import(env.ctx, doc, env.spackVers)
	require.NoError(t, err)

	require.NotNil(t, res.Spec.Arch)
	assert.Equal(t, "AMD", res.Spec.Arch.Target.Vendor, "scalars are last writer wins")
	assert.ElementsMatch(t, []string{"avx", "sse4_2"}, res.Spec.Arch.Target.Features, "features only grow")
}

func TestImportRejectsMissingNodes(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)

	_, err := env.specs.Import(env.ctx, &specgraph.Document{}, env.spackVers)
	require.Error(t, err)
	ae := apierr.As(err)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "missing_nodes", ae.Code)

	_, err = env.specs.Import(env.ctx, newGraph(t).doc, "")
	assert.Equal(t, http.StatusBadRequest, apierr.As(err).Status)
}

func TestGetSpecNotFound(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	_, err := env.specs.GetSpec(env.ctx, "nope", "")
	assert.Equal(t, http.StatusNotFound, apierr.As(err).Status)
}

func TestConcurrentImportsCreateOneGraph(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	g := newGraph(t)
	const agents = 16

	codes := make([]int, agents)
	rootIDs := make([]int64, agents)
	var eg errgroup.Group
	for i := 0; i < agents; i++ {
		eg.Go(func() error {
			res, err := env.specs.Import(env.ctx, g.doc, env.spackVers)
			if err != nil {
				return err
			}
			codes[i], rootIDs[i] = res.Code(), res.Spec.ID
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
		assert.Equal(t, rootIDs[0], rootIDs[i])
	}
	assert.Equal(t, 1, created, "exactly one import creates the root")

	var specs int64
	require.NoError(t, env.db.Model(&types.Spec{}).Where("spack_version = ?", env.spackVers).Count(&specs).Error)
	assert.EqualValues(t, 3, specs)

	deps, err := env.repos.dependencies.ListForSpec(dbctx.Context{Ctx: env.ctx}, rootIDs[0])
	require.NoError(t, err)
	assert.Len(t, deps, 2)
}
