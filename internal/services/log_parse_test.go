package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/spackmon-backend/internal/data/repos/testutil"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
)

func TestSweepPagesPastFailingBuilds(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	ctx := env.ctx
	spec := testutil.SeedSpec(t, ctx, env.db, "zlib", testutil.Unique("z"), env.spackVers)
	var ids []int64
	for i := 0; i < 3; i++ {
		host := testutil.SeedBuildEnvironment(t, ctx, env.db, testutil.Unique("host"))
		ids = append(ids, testutil.SeedBuild(t, ctx, env.db, spec.ID, host.ID, "").ID)
	}
	broken := ids[0]

	svc := env.logs.(*logParseService)
	attempts := map[int64]int{}
	svc.parse = func(ctx context.Context, buildID int64) error {
		attempts[buildID]++
		if buildID == broken {
			return errors.New("unreadable output")
		}
		return svc.ParseBuild(ctx, buildID)
	}

	parsed := func(id int64) bool {
		b, err := env.repos.builds.GetByID(dbctx.Context{Ctx: ctx}, id)
		require.NoError(t, err)
		return b.LogsParsed
	}
	for i := 0; i < 1000 && !(parsed(ids[1]) && parsed(ids[2])); i++ {
		_, err := svc.Sweep(ctx, 1)
		require.NoError(t, err)
	}

	assert.True(t, parsed(ids[1]))
	assert.True(t, parsed(ids[2]))
	assert.False(t, parsed(broken))
	assert.GreaterOrEqual(t, attempts[broken], 1)
}

func TestSweepRetriesFailuresOnTheNextPass(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	ctx := env.ctx
	spec := testutil.SeedSpec(t, ctx, env.db, "zlib", testutil.Unique("z"), env.spackVers)
	host := testutil.SeedBuildEnvironment(t, ctx, env.db, testutil.Unique("host"))
	b := testutil.SeedBuild(t, ctx, env.db, spec.ID, host.ID, "")

	svc := env.logs.(*logParseService)
	fail := true
	svc.parse = func(ctx context.Context, buildID int64) error {
		if buildID == b.ID && fail {
			return errors.New("temporarily unavailable")
		}
		return svc.ParseBuild(ctx, buildID)
	}

	for i := 0; i < 1000; i++ {
		if _, err := svc.Sweep(ctx, 1); err != nil {
			t.Fatal(err)
		}
		fail = false
		got, err := env.repos.builds.GetByID(dbctx.Context{Ctx: ctx}, b.ID)
		require.NoError(t, err)
		if got.LogsParsed {
			return
		}
	}
	t.Fatalf("build %d was never parsed after its failure cleared", b.ID)
}
