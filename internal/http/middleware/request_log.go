package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/spackmon-backend/internal/platform/ctxutil"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

// quietRoutes are polled by probes and scrapers and only logged at debug.
var quietRoutes = map[string]bool{"/healthz": true, "/metrics": true}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("middleware", "RequestLogger")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if route != "" {
			fields = append(fields, "route", route)
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if id := ctxutil.GetIdentity(c.Request.Context()); id != nil && id.UserID != nil {
			fields = append(fields, "user_id", id.UserID.String(), "username", id.Username)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case quietRoutes[route]:
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
