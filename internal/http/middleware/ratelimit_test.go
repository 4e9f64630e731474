package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

func TestParseRate(t *testing.T) {
	cases := map[string]Rate{
		"1000/1d": {Count: 1000, Period: 24 * time.Hour},
		"10/s":    {Count: 10, Period: time.Second},
		"50/15m":  {Count: 50, Period: 15 * time.Minute},
		" 3/H ":   {Count: 3, Period: time.Hour},
	}
	for raw, want := range cases {
		got, err := ParseRate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, bad := range []string{"", "10", "x/s", "0/s", "10/", "10/w", "10/0m"} {
		_, err := ParseRate(bad)
		assert.Error(t, err, bad)
	}
}

func TestRateLimiterBlocks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, block := range []bool{true, false} {
		rl := NewRateLimiter(logger.NewNop(), Rate{Count: 2, Period: time.Hour}, block)
		r := gin.New()
		r.Use(rl.Handler())
		r.GET("/ms1/", func(c *gin.Context) { c.Status(http.StatusOK) })

		var codes []int
		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ms1/", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			r.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}
		want := http.StatusOK
		if block {
			want = http.StatusTooManyRequests
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, want}, codes, "block=%v", block)
	}
}
