package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainagg "github.com/yungbote/spackmon-backend/internal/domain/aggregates"
	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apierr.BadRequest("unknown_spec", "missing %s", "x"), http.StatusBadRequest, "unknown_spec"},
		{fmt.Errorf("wrapped: %w", apierr.NotFound("build_not_found", "gone")), http.StatusNotFound, "build_not_found"},
		{domainagg.NewError(domainagg.CodeRetryable, "op", "locked", nil), http.StatusServiceUnavailable, "retryable"},
		{domainagg.NewError(domainagg.CodeConflict, "op", "dup", nil), http.StatusConflict, "conflict"},
		{errors.New("dial tcp: refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code, _ := Classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestRespondServiceErrorHidesInternals(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondServiceError(c, errors.New("pq: password authentication failed"))

	var body Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, body.Code)
	assert.Equal(t, "internal error", body.Message)
}
