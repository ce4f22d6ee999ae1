package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/evoplanner-backend/internal/data/repos"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/http/response"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/services"
)

type JobHandler struct {
	jobs         services.OptimizerService
	materializer services.Materializer
}

func NewJobHandler(jobs services.OptimizerService, materializer services.Materializer) *JobHandler {
	return &JobHandler{jobs: jobs, materializer: materializer}
}

type createJobRequest struct {
	RecruitmentID    uuid.UUID `json:"recruitment_id" binding:"required"`
	MaxExecutionTime int       `json:"max_execution_time"`
}

func validJobStatus(s string) bool {
	for _, known := range types.JobStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// GET /api/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_pagination", err)
		return
	}
	filter := repos.OptimizationJobFilter{Limit: limit, Offset: offset}
	if s := c.Query("status"); s != "" {
		if !validJobStatus(s) {
			response.RespondError(c, http.StatusBadRequest, "invalid_status", nil)
			return
		}
		filter.Status = s
	}
	if raw := c.Query("recruitment_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_recruitment_id", err)
			return
		}
		filter.RecruitmentID = &id
	}

	jobs, total, err := h.jobs.ListJobs(dbctx.Context{Ctx: c.Request.Context()}, filter)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs, "total": total, "limit": limit, "offset": offset})
}

// POST /api/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.jobs.SubmitJob(dbctx.Context{Ctx: c.Request.Context()}, req.RecruitmentID, req.MaxExecutionTime)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"job": job})
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.GetJob(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/jobs/:id/status
func (h *JobHandler) GetStatus(c *gin.Context) {
	jobID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	status, err := h.jobs.GetStatus(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, status)
}

// POST /api/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.CancelJob(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/jobs/:id/progress
func (h *JobHandler) ListProgress(c *gin.Context) {
	jobID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	limit, offset, err := pagination(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_pagination", err)
		return
	}
	rows, total, err := h.jobs.ListProgress(dbctx.Context{Ctx: c.Request.Context()}, jobID, limit, offset)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": rows, "total": total, "limit": limit, "offset": offset})
}

// POST /api/jobs/:id/materialize
func (h *JobHandler) Materialize(c *gin.Context) {
	jobID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	res, err := h.materializer.MaterializeJob(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}
