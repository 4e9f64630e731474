package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/spackmon-backend/internal/http/middleware"
	"github.com/yungbote/spackmon-backend/internal/http/response"
	"github.com/yungbote/spackmon-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
	server      string
}

func NewAuthHandler(authService services.AuthService, server string) *AuthHandler {
	return &AuthHandler{authService: authService, server: strings.TrimRight(server, "/")}
}

// GET|POST /auth/token/?scope=build
// Basic username:token credentials are exchanged for a short lived bearer token.
func (ah *AuthHandler) Token(c *gin.Context) {
	username, token, ok := c.Request.BasicAuth()
	if !ok {
		server := ah.server
		if server == "" {
			server = requestServer(c)
		}
		c.Header("Www-Authenticate", middleware.Challenge(server))
		response.RespondError(c, http.StatusUnauthorized, "authentication_required", errors.New("basic credentials are required"))
		return
	}
	user, err := ah.authService.VerifyBasic(c.Request.Context(), username, token)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	scope := strings.TrimSpace(c.Query("scope"))
	if scope == "" {
		scope = services.DefaultTokenScope
	}
	tok, err := ah.authService.IssueToken(c.Request.Context(), user, scope)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

func requestServer(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
