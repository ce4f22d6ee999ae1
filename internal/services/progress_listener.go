package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"gorm.io/datatypes"

	"github.com/yungbote/evoplanner-backend/internal/data/repos"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/observability"
	"github.com/yungbote/evoplanner-backend/internal/optimizer/problem"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type ProgressListenerConfig struct {
	ReceiveTimeout time.Duration
	// RetryBackoff bounds how often a broken subscription is re-established.
	RetryBackoff time.Duration
}

// Outcome says what HandleNotification did with one notification.
type Outcome string

const (
	OutcomeDropped   Outcome = "dropped"
	OutcomeUnknown   Outcome = "unknown_job"
	OutcomeRecorded  Outcome = "recorded"
	OutcomeDetached  Outcome = "detached"
	OutcomeCompleted Outcome = "completed"
	OutcomeDuplicate Outcome = "duplicate"
)

// ProgressListener consumes solver notifications one at a time and applies them to jobs.
type ProgressListener struct {
	log          *logger.Logger
	jobs         repos.OptimizationJobRepo
	progress     repos.OptimizationProgressRepo
	store        ProgressStore
	subscriber   ProgressSubscriber
	materializer Materializer
	notify       JobNotifier
	cfg          ProgressListenerConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewProgressListener(
	baseLog *logger.Logger,
	jobs repos.OptimizationJobRepo,
	progress repos.OptimizationProgressRepo,
	store ProgressStore,
	subscriber ProgressSubscriber,
	materializer Materializer,
	notify JobNotifier,
	cfg ProgressListenerConfig,
) *ProgressListener {
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if notify == nil {
		notify = NewJobNotifier(nil)
	}
	return &ProgressListener{
		log:          baseLog.With("service", "ProgressListener"),
		jobs:         jobs,
		progress:     progress,
		store:        store,
		subscriber:   subscriber,
		materializer: materializer,
		notify:       notify,
		cfg:          cfg,
	}
}

// Start runs the listener in its own goroutine until Stop or ctx cancellation.
func (l *ProgressListener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		_ = l.Run(runCtx)
	}(l.done)
}

// Stop cancels the listener and waits up to timeout for the loop to exit.
func (l *ProgressListener) Stop(timeout time.Duration) error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("progress listener did not stop within %s", timeout)
	}
}

// Run blocks until ctx is cancelled. Broken subscriptions are re-established with backoff.
func (l *ProgressListener) Run(ctx context.Context) error {
	l.log.Info("Progress listener started", "receive_timeout", l.cfg.ReceiveTimeout)
	limiter := rate.NewLimiter(rate.Every(l.cfg.RetryBackoff), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			l.log.Info("Progress listener stopped")
			return nil
		}
		err := l.consume(ctx)
		if ctx.Err() != nil {
			l.log.Info("Progress listener stopped")
			return nil
		}
		l.log.Warn("Progress subscription lost; resubscribing", "error", err)
	}
}

func (l *ProgressListener) consume(ctx context.Context) error {
	sub, err := l.subscriber.SubscribeProgress(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		raw, err := sub.Receive(ctx, l.cfg.ReceiveTimeout)
		if err != nil {
			return err
		}
		if raw == nil {
			continue
		}
		l.safeHandle(ctx, raw)
	}
}

func (l *ProgressListener) safeHandle(ctx context.Context, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("Progress handler panic", "panic", r, "payload", string(raw))
		}
	}()
	if _, err := l.HandleNotification(ctx, raw); err != nil {
		l.log.Warn("Progress notification failed", "error", err)
	}
}

// HandleNotification applies one raw notification. Malformed input and unknown jobs are
// dropped and reported through the Outcome, not the error.
func (l *ProgressListener) HandleNotification(ctx context.Context, raw []byte) (out Outcome, err error) {
	defer func() {
		if err != nil {
			observability.Current().IncNotification("error")
			return
		}
		observability.Current().IncNotification(string(out))
	}()
	n, perr := problem.ParseNotification(raw)
	if perr != nil {
		l.log.Warn("Dropping malformed notification", "error", perr, "payload", string(raw))
		return OutcomeDropped, nil
	}
	if n.Iteration < problem.CompletionSentinel {
		l.log.Warn("Dropping notification with invalid iteration", "job_id", n.JobID, "iteration", n.Iteration)
		return OutcomeDropped, nil
	}

	ctx, span := observability.StartSpan(ctx, "optimizer.progress_notification", observability.JobAttr(n.JobID))
	defer func() { observability.EndSpan(span, err) }()
	dbc := dbctx.Context{Ctx: ctx}

	job, err := l.jobs.GetByID(dbc, n.JobID)
	if err != nil {
		return "", fmt.Errorf("load job %s: %w", n.JobID, err)
	}
	if job == nil {
		l.log.Warn("Notification for unknown job", "job_id", n.JobID, "iteration", n.Iteration)
		return OutcomeUnknown, nil
	}

	raw, err = l.store.GetProgress(ctx, n.JobID)
	if err != nil {
		if n.Iteration != problem.CompletionSentinel {
			return "", fmt.Errorf("fetch progress for %s: %w", n.JobID, err)
		}
		// Completion is not redelivered; finish with the last recorded solution.
		l.log.Warn("Completing without final payload", "job_id", n.JobID, "error", err)
		raw, err = nil, nil
	}
	var payload *problem.ProgressPayload
	if raw != nil {
		if payload, perr = problem.ParseProgressPayload(raw); perr != nil {
			l.log.Warn("Unusable progress payload", "job_id", n.JobID, "iteration", n.Iteration, "error", perr)
			payload = nil
		}
	}

	if n.Iteration == problem.CompletionSentinel {
		return l.complete(dbc, job, payload)
	}
	if payload == nil {
		l.log.Warn("Dropping progress without payload", "job_id", n.JobID, "iteration", n.Iteration)
		return OutcomeDropped, nil
	}
	return l.record(dbc, job, n.Iteration, payload)
}

func (l *ProgressListener) record(dbc dbctx.Context, job *types.OptimizationJob, iteration int, payload *problem.ProgressPayload) (Outcome, error) {
	fitness := problem.Fitness(payload.BestSolution)
	created, err := l.progress.CreateIfAbsent(dbc, &types.OptimizationProgress{
		JobID:        job.ID,
		Iteration:    iteration,
		Fitness:      fitness,
		BestSolution: datatypes.JSON(payload.BestSolution),
	})
	if err != nil {
		return "", fmt.Errorf("record progress: %w", err)
	}
	if !created {
		l.log.Debug("Duplicate progress snapshot ignored", "job_id", job.ID, "iteration", iteration)
		return OutcomeDuplicate, nil
	}
	if job.IsDetached() {
		l.log.Info("Progress for detached job recorded only", "job_id", job.ID, "status", job.Status, "iteration", iteration)
		return OutcomeDetached, nil
	}
	if iteration < job.CurrentIteration {
		l.log.Debug("Out-of-order progress kept as snapshot only", "job_id", job.ID, "iteration", iteration, "current", job.CurrentIteration)
		return OutcomeRecorded, nil
	}

	updates := map[string]interface{}{
		"final_solution":    datatypes.JSON(payload.BestSolution),
		"current_iteration": iteration,
	}
	if job.Status == types.JobStatusQueued {
		now := time.Now().UTC()
		updates["status"] = types.JobStatusRunning
		updates["started_at"] = now
		job.StartedAt = &now
	}
	ok, err := l.jobs.UpdateFieldsIfStatus(dbc, job.ID, []string{types.JobStatusQueued, types.JobStatusRunning}, updates)
	if err != nil {
		return "", fmt.Errorf("update job progress: %w", err)
	}
	if !ok {
		l.log.Debug("Job left the active states; progress kept as snapshot only", "job_id", job.ID)
		return OutcomeRecorded, nil
	}
	statusChanged := job.Status == types.JobStatusQueued
	job.Status = types.JobStatusRunning
	job.CurrentIteration = iteration
	job.FinalSolution = datatypes.JSON(payload.BestSolution)

	ctx := dbc.Context()
	if statusChanged {
		l.notify.JobStatusChanged(ctx, job)
	}
	l.notify.JobProgress(ctx, job, iteration, fitness)
	return OutcomeRecorded, nil
}

func (l *ProgressListener) complete(dbc dbctx.Context, job *types.OptimizationJob, payload *problem.ProgressPayload) (Outcome, error) {
	if job.IsDetached() {
		l.log.Info("Completion for detached job ignored", "job_id", job.ID, "status", job.Status)
		return OutcomeDetached, nil
	}
	if job.Status == types.JobStatusCompleted || job.Status == types.JobStatusFailed {
		l.log.Info("Completion for finished job ignored", "job_id", job.ID, "status", job.Status)
		return OutcomeDuplicate, nil
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":                 types.JobStatusCompleted,
		"completed_at":           now,
		"materialization_status": types.MaterializationPending,
	}
	if payload != nil {
		updates["final_solution"] = datatypes.JSON(payload.BestSolution)
		job.FinalSolution = datatypes.JSON(payload.BestSolution)
	}
	ok, err := l.jobs.UpdateFieldsIfStatus(dbc, job.ID, []string{types.JobStatusQueued, types.JobStatusRunning}, updates)
	if err != nil {
		return "", fmt.Errorf("complete job: %w", err)
	}
	if !ok {
		l.log.Info("Job changed state before completion applied", "job_id", job.ID)
		return OutcomeDuplicate, nil
	}
	job.Status = types.JobStatusCompleted
	job.CompletedAt = &now
	job.MaterializationStatus = types.MaterializationPending
	l.log.Info("Optimization job completed", "job_id", job.ID, "recruitment_id", job.RecruitmentID)

	ctx := dbc.Context()
	if l.materializer != nil {
		res, merr := l.materializer.MaterializeJob(dbctx.Context{Ctx: ctx}, job.ID)
		if merr != nil {
			job.MaterializationStatus = types.MaterializationFailed
			job.MaterializationError = merr.Error()
			l.log.Error("Schedule not updated; job stays completed", "job_id", job.ID, "error", merr)
		} else {
			job.MaterializationStatus = types.MaterializationSucceeded
			l.log.Info("Schedule updated", "job_id", job.ID, "meetings", res.Meetings)
		}
	} else {
		l.log.Warn("Completion without materializer", "job_id", job.ID)
	}
	l.notify.JobCompleted(ctx, job)
	return OutcomeCompleted, nil
}
