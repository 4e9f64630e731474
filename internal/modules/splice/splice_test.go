package splice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryKey(t *testing.T) {
	assert.Equal(t, "libz", LibraryKey("/opt/spack/zlib-1.2.11/lib/libz.so.1.2.11"))
	assert.Equal(t, "app", LibraryKey("bin/app"))
}

func TestDecodeCorpora(t *testing.T) {
	list, err := DecodeCorpora([]byte(`[{"path":"a.so","symbols":[{"name":"f","defined":true}]}]`))
	require.NoError(t, err)
	require.Len(t, list, 1)

	wrapped, err := DecodeCorpora([]byte(`{"corpora":[{"path":"a.so"},{"path":"b.so"}]}`))
	require.NoError(t, err)
	assert.Len(t, wrapped, 2)

	single, err := DecodeCorpora([]byte(`{"path":"a.so","symbols":[]}`))
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = DecodeCorpora([]byte(`"nope"`))
	assert.Error(t, err)
}

func TestSetSolverFindsUndefined(t *testing.T) {
	ans, err := SetSolver{}.Solve(context.Background(), []Corpus{
		{Path: "bin/app", Symbols: []Symbol{{Name: "deflate"}, {Name: "main", Defined: true}, {Name: "gone"}}},
		{Path: "lib/libz.so.1", Symbols: []Symbol{{Name: "deflate", Defined: true}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []MissingSymbol{{Library: "bin/app", Symbol: "gone"}}, ans.MissingSymbols)
}

func TestPredictReportsNewlyMissingSymbols(t *testing.T) {
	original := []Corpus{
		{Path: "bin/app", Symbols: []Symbol{{Name: "deflate"}, {Name: "inflate"}}},
		{Path: "lib/libz.so.1.2.11", Symbols: []Symbol{{Name: "deflate", Defined: true}, {Name: "inflate", Defined: true}}},
	}
	splices := []Corpus{
		{Path: "other/libz.so.1.2.8", Symbols: []Symbol{{Name: "deflate", Defined: true}}},
		{Path: "other/libbz2.so.1", Symbols: []Symbol{{Name: "BZ2_x", Defined: true}}},
	}
	p, err := Predict(context.Background(), SetSolver{}, original, splices)
	require.NoError(t, err)
	assert.Equal(t, []string{"app inflate"}, p.Missing)
	assert.Equal(t, [][2]string{{"other/libz.so.1.2.8", "lib/libz.so.1.2.11"}}, p.Selected)
	assert.False(t, p.WillWork)

	p, err = Predict(context.Background(), SetSolver{}, original, original[1:])
	require.NoError(t, err)
	assert.True(t, p.WillWork)
	assert.Empty(t, p.Missing)
}

func TestPredictWithoutCorpora(t *testing.T) {
	p, err := Predict(context.Background(), SetSolver{}, nil, []Corpus{{Path: "a"}})
	require.NoError(t, err)
	assert.NotEmpty(t, p.Message)
	assert.False(t, p.WillWork)
}
