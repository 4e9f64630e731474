package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/spackmon-backend/internal/http/response"
)

// ServiceInfo describes this deployment at the root of the api prefix.
type ServiceInfo struct {
	ID                  string    `json:"id"`
	Status              string    `json:"status"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Organization        string    `json:"organization"`
	ContactURL          string    `json:"contactUrl"`
	DocumentationURL    string    `json:"documentationUrl"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
	Environment         string    `json:"environment"`
	Version             string    `json:"version"`
	AuthInstructionsURL string    `json:"auth_instructions_url"`
}

type ServiceInfoHandler struct {
	info ServiceInfo
}

func NewServiceInfoHandler(info ServiceInfo) *ServiceInfoHandler {
	if info.Status == "" {
		info.Status = "running"
	}
	return &ServiceInfoHandler{info: info}
}

// GET /ms1/
func (h *ServiceInfoHandler) Get(c *gin.Context) {
	response.RespondOK(c, h.info)
}
