package specgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singularity = `{
  "spec": {
    "nodes": [
      {
        "name": "singularity",
        "version": "3.8.0",
        "full_hash": "abc123",
        "arch": {
          "platform": "linux",
          "platform_os": "ubuntu20.04",
          "target": {"name": "skylake", "vendor": "GenuineIntel", "generation": 0,
                     "features": ["avx", "avx2"], "parents": ["broadwell"]}
        },
        "compiler": {"name": "gcc", "version": "9.3.0"},
        "parameters": {"cflags": [], "network": true},
        "dependencies": [
          {"name": "go", "full_hash": "def456", "type": ["build"]},
          {"name": "libseccomp", "build_hash": "ghi789", "type": ["build", "link"]}
        ]
      },
      {"name": "go", "full_hash": "def456", "arch": {"platform": "linux", "platform_os": "ubuntu20.04", "target": "skylake"}},
      {"name": "libseccomp", "hash": "ghi789"}
    ]
  }
}`

func TestParseNestedDocument(t *testing.T) {
	doc, err := Parse([]byte(singularity))
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)

	root := doc.Nodes[0]
	assert.Equal(t, "abc123", root.Identity())
	require.NotNil(t, root.Arch)
	assert.True(t, root.Arch.Target.Detailed)
	assert.Equal(t, []string{"avx", "avx2"}, root.Arch.Target.Features)
	require.NotNil(t, root.Arch.Target.Generation)
	assert.Equal(t, 0, *root.Arch.Target.Generation)
	assert.Len(t, root.Dependencies, 2)
	assert.Equal(t, "ghi789", root.Dependencies[1].Identity())

	goNode := doc.Nodes[1]
	assert.False(t, goNode.Arch.Target.Detailed)
	assert.Equal(t, "skylake", goNode.Arch.Target.Name)
	assert.JSONEq(t, `{}`, string(goNode.ParametersJSON()))

	leaf := doc.Nodes[2]
	assert.True(t, leaf.FailedConcretization())
	assert.Equal(t, "ghi789", leaf.Identity())
}

func TestParseBareNodes(t *testing.T) {
	doc, err := Parse([]byte(`{"nodes":[{"name":"zlib","full_hash":"z1"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "zlib", doc.Nodes[0].Name)
}

func TestParseMissingNodes(t *testing.T) {
	for _, raw := range []string{``, `{}`, `{"spec":{}}`, `{"spec":{"nodes":null}}`} {
		_, err := Parse([]byte(raw))
		assert.True(t, errors.Is(err, ErrMissingNodes), "input %q: %v", raw, err)
	}
}

func TestParseRejectsInvalidNodes(t *testing.T) {
	_, err := Parse([]byte(`{"nodes":[{"name":"zlib"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash_required")

	_, err = Parse([]byte(`{"nodes":[{"name":"zlib","full_hash":"z","arch":{"platform":"linux","target":"x86_64"}}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PlatformOS")

	_, err = Parse([]byte(`{"nodes":[{"name":"zlib","full_hash":"z","dependencies":[{"name":"cmake"}]}]}`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"nodes":[{"name":"zlib","full_hash":"z","arch":{"platform":"linux","platform_os":"x","target":5}}]}`))
	require.Error(t, err)
}

func TestParseRejectsOversizedHashes(t *testing.T) {
	long := strings.Repeat("a", 65)

	_, err := Parse([]byte(fmt.Sprintf(`{"nodes":[{"name":"zlib","full_hash":%q}]}`, long)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FullHash failed max")

	_, err = Parse([]byte(fmt.Sprintf(`{"nodes":[{"name":"zlib","full_hash":"z","dependencies":[{"name":"cmake","build_hash":%q}]}]}`, long)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BuildHash failed max")

	_, err = Parse([]byte(fmt.Sprintf(`{"nodes":[{"name":"zlib","full_hash":%q}]}`, strings.Repeat("a", 64))))
	assert.NoError(t, err)
}

func TestTargetRefRoundTripKeepsForm(t *testing.T) {
	var short TargetRef
	require.NoError(t, json.Unmarshal([]byte(`"zen2"`), &short))
	out, err := json.Marshal(short)
	require.NoError(t, err)
	assert.Equal(t, `"zen2"`, string(out))

	var full TargetRef
	require.NoError(t, json.Unmarshal([]byte(`{"name":"zen2","vendor":"AuthenticAMD"}`), &full))
	out, err = json.Marshal(full)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"zen2","vendor":"AuthenticAMD"}`, string(out))
}
