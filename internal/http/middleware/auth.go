package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/spackmon-backend/internal/http/response"
	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
	"github.com/yungbote/spackmon-backend/internal/platform/ctxutil"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
	"github.com/yungbote/spackmon-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
	server      string
}

// NewAuthMiddleware answers unauthenticated calls with a bearer challenge pointing at the
// token endpoint on server. An empty server is derived from each request.
func NewAuthMiddleware(log *logger.Logger, authService services.AuthService, server string) *AuthMiddleware {
	middlewareLogger := log.With("middleware", "AuthMiddleware")
	return &AuthMiddleware{
		log:         middlewareLogger,
		authService: authService,
		server:      strings.TrimRight(strings.TrimSpace(server), "/"),
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := am.authService.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			ae := apierr.As(err)
			if ae.Status == http.StatusUnauthorized {
				c.Header("Www-Authenticate", Challenge(am.serverFor(c)))
			}
			if ae.Status >= http.StatusInternalServerError {
				am.log.Error("authentication failed", "error", err)
			}
			response.RespondServiceError(c, err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func (am *AuthMiddleware) serverFor(c *gin.Context) string {
	if am.server != "" {
		return am.server
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// Challenge is the Www-Authenticate value for a bearer token issued by server.
func Challenge(server string) string {
	return fmt.Sprintf(`Bearer realm="%s/auth/token/",service="%s",scope="%s"`, server, server, services.DefaultTokenScope)
}
