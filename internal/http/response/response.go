package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/spackmon-backend/internal/domain/aggregates"
	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
)

// Envelope is the body of every API response. Code mirrors the HTTP status.
type Envelope struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func RespondEnvelope(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Message: message, Code: status, Data: data})
}

func RespondOK(c *gin.Context, data any) {
	RespondEnvelope(c, http.StatusOK, "success", data)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, Envelope{Message: msg, Code: status, Error: code})
}

// AbortError writes the error envelope and stops the handler chain.
func AbortError(c *gin.Context, status int, code string, err error) {
	RespondError(c, status, code, err)
	c.Abort()
}

// RespondServiceError maps a service failure to a status. Internal details of unexpected
// errors are not echoed to the caller.
func RespondServiceError(c *gin.Context, err error) {
	status, code, msg := Classify(err)
	if domainagg.CodeOf(err).Temporary() {
		c.Header("Retry-After", "1")
	}
	c.JSON(status, Envelope{Message: msg, Code: status, Error: code})
}

func Classify(err error) (int, string, string) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae != nil {
		return ae.Status, ae.Code, ae.Error()
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation:
		return http.StatusBadRequest, string(domainagg.CodeValidation), err.Error()
	case domainagg.CodeNotFound:
		return http.StatusNotFound, string(domainagg.CodeNotFound), "resource not found"
	case domainagg.CodeConflict:
		return http.StatusConflict, string(domainagg.CodeConflict), "conflicting write, retry the request"
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable, string(domainagg.CodeRetryable), "temporarily unavailable, retry the request"
	}
	return http.StatusInternalServerError, "internal_error", "internal error"
}
