package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/evoplanner-backend/internal/http/response"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/services"
)

type RecruitmentHandler struct {
	constraints services.ConstraintEncoder
	preferences services.PreferenceEncoder
	trigger     *services.TriggerScheduler
}

func NewRecruitmentHandler(
	constraints services.ConstraintEncoder,
	preferences services.PreferenceEncoder,
	trigger *services.TriggerScheduler,
) *RecruitmentHandler {
	return &RecruitmentHandler{constraints: constraints, preferences: preferences, trigger: trigger}
}

// POST /api/recruitments/:id/constraints
func (h *RecruitmentHandler) EncodeConstraints(c *gin.Context) {
	recID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_recruitment_id", err)
		return
	}
	res, err := h.constraints.Encode(dbctx.Context{Ctx: c.Request.Context()}, recID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"recruitment_id":   res.RecruitmentID,
		"ordering_version": res.Encoded.Manifest.Version,
		"constraints":      json.RawMessage(res.ConstraintsJSON),
		"index_manifest":   json.RawMessage(res.ManifestJSON),
	})
}

// GET /api/recruitments/:id/constraints
func (h *RecruitmentHandler) GetConstraints(c *gin.Context) {
	recID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_recruitment_id", err)
		return
	}
	row, err := h.constraints.Get(dbctx.Context{Ctx: c.Request.Context()}, recID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"constraints": row})
}

// GET /api/recruitments/:id/problem
func (h *RecruitmentHandler) PreviewProblem(c *gin.Context) {
	recID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_recruitment_id", err)
		return
	}
	prepared, err := h.preferences.Prepare(dbctx.Context{Ctx: c.Request.Context()}, recID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"recruitment_id":   prepared.RecruitmentID,
		"ordering_version": prepared.OrderingVersion,
		"problem_data":     prepared.ProblemData,
		"report":           prepared.Report,
	})
}

// POST /api/recruitments/:id/optimize
func (h *RecruitmentHandler) TriggerOptimization(c *gin.Context) {
	recID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_recruitment_id", err)
		return
	}
	job, err := h.trigger.Trigger(dbctx.Context{Ctx: c.Request.Context()}, recID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"job": job})
}
