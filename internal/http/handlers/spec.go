package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/spackmon-backend/internal/http/response"
	"github.com/yungbote/spackmon-backend/internal/modules/specgraph"
	"github.com/yungbote/spackmon-backend/internal/services"
)

type SpecHandler struct {
	specService services.SpecImportService
}

func NewSpecHandler(specService services.SpecImportService) *SpecHandler {
	return &SpecHandler{specService: specService}
}

// POST /specs/new/
// body: { "spec": <configuration document>, "spack_version": "..." }
func (sh *SpecHandler) NewSpec(c *gin.Context) {
	var req struct {
		Spec         json.RawMessage `json:"spec"`
		SpackVersion string          `json:"spack_version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	doc, err := specgraph.Parse(req.Spec)
	if err != nil {
		code := "invalid_spec"
		if errors.Is(err, specgraph.ErrMissingNodes) {
			code = "missing_nodes"
		}
		response.RespondError(c, http.StatusBadRequest, code, err)
		return
	}
	res, err := sh.specService.Import(c.Request.Context(), doc, req.SpackVersion)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	msg := "This spec already exists."
	if res.Created {
		msg = "Import of spec successful."
	}
	response.RespondEnvelope(c, res.Code(), msg, res)
}

// GET /specs/:full_hash/?spack_version=...
func (sh *SpecHandler) GetSpec(c *gin.Context) {
	view, err := sh.specService.GetSpec(c.Request.Context(), c.Param("full_hash"), c.Query("spack_version"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}
