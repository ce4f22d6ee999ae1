package services

import (
	"context"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/realtime"
)

// JobNotifier fans job lifecycle events out to observers. Each event goes to the job's
// channel and to its recruitment's channel.
type JobNotifier interface {
	JobCreated(ctx context.Context, job *types.OptimizationJob)
	JobProgress(ctx context.Context, job *types.OptimizationJob, iteration int, fitness *float64)
	JobCompleted(ctx context.Context, job *types.OptimizationJob)
	JobStatusChanged(ctx context.Context, job *types.OptimizationJob)
	PlanStatusChanged(ctx context.Context, rec *types.Recruitment)
}

type jobNotifier struct {
	emit SSEEmitter
}

func NewJobNotifier(emit SSEEmitter) JobNotifier {
	if emit == nil {
		emit = nopEmitter{}
	}
	return &jobNotifier{emit: emit}
}

func (n *jobNotifier) broadcast(ctx context.Context, job *types.OptimizationJob, event realtime.SSEEvent, data map[string]any) {
	n.emit.Emit(ctx, realtime.SSEMessage{Channel: realtime.JobChannel(job.ID), Event: event, Data: data})
	n.emit.Emit(ctx, realtime.SSEMessage{Channel: realtime.RecruitmentChannel(job.RecruitmentID), Event: event, Data: data})
}

func (n *jobNotifier) JobCreated(ctx context.Context, job *types.OptimizationJob) {
	n.broadcast(ctx, job, realtime.SSEEventJobCreated, map[string]any{
		"job_id":         job.ID,
		"recruitment_id": job.RecruitmentID,
		"status":         job.Status,
	})
}

func (n *jobNotifier) JobProgress(ctx context.Context, job *types.OptimizationJob, iteration int, fitness *float64) {
	data := map[string]any{
		"job_id":         job.ID,
		"recruitment_id": job.RecruitmentID,
		"iteration":      iteration,
		"status":         job.Status,
	}
	if fitness != nil {
		data["fitness"] = *fitness
	}
	n.broadcast(ctx, job, realtime.SSEEventJobProgress, data)
}

func (n *jobNotifier) JobCompleted(ctx context.Context, job *types.OptimizationJob) {
	n.broadcast(ctx, job, realtime.SSEEventJobCompleted, map[string]any{
		"job_id":                 job.ID,
		"recruitment_id":         job.RecruitmentID,
		"status":                 job.Status,
		"final_solution":         job.FinalSolution,
		"materialization_status": job.MaterializationStatus,
	})
}

func (n *jobNotifier) JobStatusChanged(ctx context.Context, job *types.OptimizationJob) {
	n.broadcast(ctx, job, realtime.SSEEventJobStatusChanged, map[string]any{
		"job_id":                 job.ID,
		"recruitment_id":         job.RecruitmentID,
		"status":                 job.Status,
		"materialization_status": job.MaterializationStatus,
		"error":                  job.ErrorMessage,
	})
}

func (n *jobNotifier) PlanStatusChanged(ctx context.Context, rec *types.Recruitment) {
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.RecruitmentChannel(rec.ID),
		Event:   realtime.SSEEventPlanStatus,
		Data:    map[string]any{"recruitment_id": rec.ID, "plan_status": rec.PlanStatus},
	})
}
