package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/spackmon-backend/internal/platform/logger"
	"github.com/yungbote/spackmon-backend/internal/services"
)

const singularityConfig = `{"spec": {"nodes": [
  {"name": "singularity", "version": "3.8.0", "full_hash": "abc123",
   "arch": {"platform": "linux", "platform_os": "ubuntu20.04", "target": "skylake"},
   "compiler": {"name": "gcc", "version": "9.3.0"},
   "dependencies": [{"name": "go", "full_hash": "def456", "type": ["build"]}]},
  {"name": "go", "version": "1.16.5", "full_hash": "def456",
   "arch": {"platform": "linux", "platform_os": "ubuntu20.04", "target": "skylake"},
   "compiler": {"name": "gcc", "version": "9.3.0"}}
]}}`

type envelope struct {
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	*App
	bearer string
}

func newTestApp(t *testing.T, mutate func(*Config)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := DefaultConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "spackmon.db")
	cfg.ServerURL = "http://monitor.test"
	cfg.JWTSecret = "test-secret"
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return &testApp{App: a}
}

func (a *testApp) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	if a.bearer != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+a.bearer)
	}
	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return env
}

// login creates a user and exchanges its api token for a bearer token.
func (a *testApp) login(t *testing.T) {
	t.Helper()
	_, apiToken, err := a.Services.Auth.CreateUser(context.Background(), "vsoch", "vsoch@example.org")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/token/?scope=build", nil)
	req.SetBasicAuth("vsoch", apiToken)
	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok services.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	require.NotEmpty(t, tok.Token)
	assert.Equal(t, 600, tok.ExpiresIn)
	a.bearer = tok.Token
}

func buildRequest(fullHash string) map[string]any {
	return map[string]any{
		"hostname":       "corona171",
		"kernel_version": "#1 SMP Debian 5.10.46-4",
		"host_os":        "ubuntu20.04",
		"host_target":    "skylake",
		"platform":       "linux",
		"full_hash":      fullHash,
		"spack_version":  "0.17.0",
	}
}

func TestEndToEndImportBuildAndCascade(t *testing.T) {
	a := newTestApp(t, nil)

	rec := a.do(t, http.MethodPost, "/ms1/specs/new/", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Bearer realm="http://monitor.test/auth/token/",service="http://monitor.test",scope="build"`,
		rec.Header().Get("Www-Authenticate"))

	a.login(t)
	body := fmt.Sprintf(`{"spec": %s, "spack_version": "0.17.0"}`, singularityConfig)

	var imported services.ImportResult
	rec = a.do(t, http.MethodPost, "/ms1/specs/new/", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env := decode(t, rec, &imported)
	assert.Equal(t, http.StatusCreated, env.Code)
	assert.True(t, imported.Created)
	require.NotNil(t, imported.Spec)
	assert.Equal(t, "abc123", imported.Spec.FullHash)
	assert.Equal(t, "def456", imported.Spec.Dependencies["go"].Hash)

	imported = services.ImportResult{}
	rec = a.do(t, http.MethodPost, "/ms1/specs/new/", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &imported)
	assert.False(t, imported.Created)
	require.NotNil(t, imported.Spec)
	assert.Equal(t, "abc123", imported.Spec.FullHash)

	var root, dep services.BuildResult
	rec = a.do(t, http.MethodPost, "/ms1/builds/new/", buildRequest("abc123"), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &root)
	assert.True(t, root.BuildCreated)
	assert.Equal(t, "NOTRUN", root.Build.Status)

	rec = a.do(t, http.MethodPost, "/ms1/builds/new/", buildRequest("def456"), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &dep)

	var updated struct {
		Build services.BuildSummary `json:"build"`
	}
	rec = a.do(t, http.MethodPost, "/ms1/builds/update/",
		map[string]any{"build_id": root.Build.BuildID, "status": "FAILED"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &updated)
	assert.Equal(t, "FAILED", updated.Build.Status)

	var detail services.BuildDetail
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/ms1/builds/%d/", dep.Build.BuildID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &detail)
	assert.Equal(t, "CANCELLED", detail.Status)
}

func TestRejectsBadRequests(t *testing.T) {
	a := newTestApp(t, nil)
	a.login(t)

	rec := a.do(t, http.MethodPost, "/ms1/specs/new/", `{"spec": {"nodes": []}, "spack_version": "0.17.0"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_nodes", decode(t, rec, nil).Error)

	long := strings.Repeat("f", 65)
	rec = a.do(t, http.MethodPost, "/ms1/specs/new/",
		fmt.Sprintf(`{"spec": {"nodes": [{"name": "zlib", "full_hash": %q}]}, "spack_version": "0.17.0"}`, long), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_spec", decode(t, rec, nil).Error)

	rec = a.do(t, http.MethodPost, "/ms1/builds/new/", buildRequest("nope"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_spec", decode(t, rec, nil).Error)

	rec = a.do(t, http.MethodPost, "/ms1/builds/update/", map[string]any{"build_id": 999, "status": "FAILED"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/ms1/builds/999/", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/ms1/builds/abc/", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/ms1/specs/missing/", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTokenEndpointRejectsBadCredentials(t *testing.T) {
	a := newTestApp(t, nil)

	rec := a.do(t, http.MethodGet, "/auth/token/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Www-Authenticate"))

	req := httptest.NewRequest(http.MethodPost, "/auth/token/", nil)
	req.SetBasicAuth("nobody", "wrong")
	out := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(out, req)
	assert.Equal(t, http.StatusForbidden, out.Code)
}

func TestDisabledAuthenticationAllowsWrites(t *testing.T) {
	a := newTestApp(t, func(c *Config) { c.DisableAuthentication = true })
	body := fmt.Sprintf(`{"spec": %s, "spack_version": "0.17.0"}`, singularityConfig)
	rec := a.do(t, http.MethodPost, "/ms1/specs/new/", body, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestPublicEndpoints(t *testing.T) {
	a := newTestApp(t, nil)

	var info struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	rec := a.do(t, http.MethodGet, "/ms1/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &info)
	assert.Equal(t, "spackmon", info.Name)
	assert.Equal(t, "running", info.Status)

	rec = a.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	a.do(t, http.MethodGet, "/ms1/specs/missing/", nil, nil)
	rec = a.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "spackmon_http_requests_total")
}

func TestRateLimitBlocks(t *testing.T) {
	a := newTestApp(t, func(c *Config) {
		c.RateLimit = "2/1h"
		c.RateLimitBlock = true
	})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, a.do(t, http.MethodGet, "/ms1/", nil, nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
