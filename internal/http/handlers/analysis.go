package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/http/response"
	"github.com/yungbote/spackmon-backend/internal/services"
)

type AnalysisHandler struct {
	analysisService services.AnalysisService
}

func NewAnalysisHandler(analysisService services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// POST /analyze/splice/
// body: { "spec_a": <build id>, "spec_b": <build id> }
func (ah *AnalysisHandler) Splice(c *gin.Context) {
	var req struct {
		SpecA int64 `json:"spec_a"`
		SpecB int64 `json:"spec_b"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.SpecA <= 0 || req.SpecB <= 0 {
		response.RespondError(c, http.StatusBadRequest, "missing_builds", errors.New("spec_a and spec_b build ids are required"))
		return
	}
	res, err := ah.analysisService.PredictSplice(c.Request.Context(), req.SpecA, req.SpecB)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /attributes/:id/download/
func (ah *AnalysisHandler) DownloadAttribute(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_attribute_id", errors.New("attribute id must be a positive integer"))
		return
	}
	attr, value, err := ah.analysisService.DownloadAttribute(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	switch value.Kind {
	case types.ValueJSON:
		c.Data(http.StatusOK, "application/json", value.JSON)
	case types.ValueText:
		c.String(http.StatusOK, value.Text)
	default:
		name := path.Base(attr.Name)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		c.Data(http.StatusOK, "application/octet-stream", value.Binary)
	}
}
