package services

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
	"github.com/yungbote/spackmon-backend/internal/platform/dbctx"
)

func postCorpora(t *testing.T, env *testEnv, buildID int64, file string, corpora string) {
	t.Helper()
	records, err := json.Marshal([]map[string]any{{
		"install_file": file,
		"name":         "corpora",
		"json_value":   json.RawMessage(corpora),
	}})
	require.NoError(t, err)
	res, err := env.metadata.Merge(env.ctx, MetadataRequest{BuildID: buildID, Metadata: map[string]json.RawMessage{
		DefaultSymbolAnalyzer: records,
	}})
	require.NoError(t, err)
	require.Zero(t, res.Skipped)
}

func TestPredictSpliceReportsNewlyMissingSymbols(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	a := seedBuild(t, env, "curl")
	b := seedBuild(t, env, "zlib")

	postCorpora(t, env, a.ID, "bin/curl", `[
		{"path": "bin/curl", "symbols": [{"name": "deflate", "defined": false}, {"name": "crc32", "defined": false}]},
		{"path": "lib/libz.so.1.2.11", "symbols": [{"name": "deflate", "defined": true}, {"name": "crc32", "defined": true}]}
	]`)
	postCorpora(t, env, b.ID, "lib/libz.so.1.2.8", `{"path": "lib/libz.so.1.2.8", "symbols": [{"name": "deflate", "defined": true}]}`)

	res, err := env.analysis.PredictSplice(env.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"curl crc32"}, res.Missing)
	assert.False(t, res.WillWork)
	require.Len(t, res.Selected, 1)
	assert.Equal(t, [2]string{"lib/libz.so.1.2.8", "lib/libz.so.1.2.11"}, res.Selected[0])
	assert.Contains(t, res.A, "curl")
	assert.Equal(t, a.SpecID, res.AID)
	assert.Equal(t, b.SpecID, res.BID)
}

func TestPredictSpliceWithoutCorpora(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	a := seedBuild(t, env, "curl")
	b := seedBuild(t, env, "zlib")

	res, err := env.analysis.PredictSplice(env.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Missing)
	assert.NotEmpty(t, res.Message)

	_, err = env.analysis.PredictSplice(env.ctx, a.ID, b.ID+1000)
	assert.Equal(t, http.StatusNotFound, apierr.As(err).Status)
}

func TestDownloadAttribute(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	dbc := dbctx.Context{Ctx: env.ctx}
	b := seedBuild(t, env, "zlib")
	postCorpora(t, env, b.ID, "lib/libz.so", `{"path": "lib/libz.so", "symbols": []}`)

	files, err := env.repos.installFiles.ListForBuild(dbc, b.ID)
	require.NoError(t, err)
	attrs, err := env.repos.attributes.ListForInstallFiles(dbc, []int64{files[0].ID}, DefaultSymbolAnalyzer)
	require.NoError(t, err)
	require.Len(t, attrs, 1)

	attr, value, err := env.analysis.DownloadAttribute(env.ctx, attrs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "corpora", attr.Name)
	assert.JSONEq(t, `{"path": "lib/libz.so", "symbols": []}`, string(value.JSON))

	_, _, err = env.analysis.DownloadAttribute(env.ctx, attrs[0].ID+1000)
	assert.Equal(t, http.StatusNotFound, apierr.As(err).Status)
}
