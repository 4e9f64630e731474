package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/spackmon-backend/internal/http/response"
	"github.com/yungbote/spackmon-backend/internal/services"
)

type BuildHandler struct {
	buildService    services.BuildService
	metadataService services.MetadataService
}

func NewBuildHandler(buildService services.BuildService, metadataService services.MetadataService) *BuildHandler {
	return &BuildHandler{buildService: buildService, metadataService: metadataService}
}

// POST /builds/new/
// body: environment facts + { "full_hash", "spack_version", "tags" }
func (bh *BuildHandler) NewBuild(c *gin.Context) {
	var req services.BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := bh.buildService.GetOrCreate(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	msg := "Build already exists."
	if res.BuildCreated {
		msg = "Build was created."
	}
	response.RespondEnvelope(c, res.Code(), msg, res)
}

// POST /builds/update/
// body: { "build_id": 1, "status": "SUCCESS" }
func (bh *BuildHandler) UpdateBuild(c *gin.Context) {
	var req struct {
		BuildID int64  `json:"build_id"`
		Status  string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	summary, err := bh.buildService.UpdateStatus(c.Request.Context(), req.BuildID, req.Status)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondEnvelope(c, http.StatusOK, "Status updated", gin.H{"build": summary})
}

// POST /builds/phases/update/
func (bh *BuildHandler) UpdatePhase(c *gin.Context) {
	var req services.PhaseUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := bh.buildService.UpdatePhase(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondEnvelope(c, http.StatusOK, "Phase updated", res)
}

// GET /builds/:id/
func (bh *BuildHandler) GetBuild(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_build_id", errors.New("build id must be a positive integer"))
		return
	}
	detail, err := bh.buildService.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// POST /errors/new/
// body: [ { "build_id": 1, "phase_name": "build", "errors": [...] } ]
func (bh *BuildHandler) NewErrors(c *gin.Context) {
	var batch []services.PhaseErrors
	if err := c.ShouldBindJSON(&batch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := bh.buildService.AddErrors(c.Request.Context(), batch)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondEnvelope(c, http.StatusOK, "Errors added", res)
}

// POST /analyze/builds/
// body: { "build_id": 1, "metadata": {...} } or the build's environment facts with "metadata".
func (bh *BuildHandler) AnalyzeBuild(c *gin.Context) {
	var req struct {
		services.BuildRequest
		BuildID  int64                      `json:"build_id"`
		Metadata map[string]json.RawMessage `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	mreq := services.MetadataRequest{BuildID: req.BuildID, Metadata: req.Metadata}
	if req.BuildID <= 0 && strings.TrimSpace(req.FullHash) != "" {
		mreq.Build = &req.BuildRequest
	}
	res, err := bh.metadataService.Merge(c.Request.Context(), mreq)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondEnvelope(c, http.StatusOK, "Metadata updated", res)
}
