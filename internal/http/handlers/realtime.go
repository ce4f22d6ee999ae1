package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/evoplanner-backend/internal/http/response"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
	"github.com/yungbote/evoplanner-backend/internal/realtime"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{Log: log.With("handler", "RealtimeHandler"), Hub: hub}
}

// GET /api/jobs/:id/stream
func (h *RealtimeHandler) JobStream(c *gin.Context) {
	jobID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	h.stream(c, realtime.JobChannel(jobID))
}

// GET /api/recruitments/:id/stream
func (h *RealtimeHandler) RecruitmentStream(c *gin.Context) {
	recID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_recruitment_id", err)
		return
	}
	h.stream(c, realtime.RecruitmentChannel(recID))
}

func (h *RealtimeHandler) stream(c *gin.Context, channel string) {
	client := h.Hub.NewSSEClient()
	h.Hub.AddChannel(client, channel)
	h.Log.Info("SSE stream open", "client_id", client.ID, "channel", channel)

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.Hub.CloseClient(client)
	h.Log.Info("SSE stream closed", "client_id", client.ID, "channel", channel)
}

