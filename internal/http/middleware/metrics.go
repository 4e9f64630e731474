package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/spackmon-backend/internal/observability"
)

// Metrics records request counts and latency per route template. Unmatched paths share one
// label so scanners cannot blow up the series count.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.FullPath() == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		m.IncInflight()
		defer m.DecInflight()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
