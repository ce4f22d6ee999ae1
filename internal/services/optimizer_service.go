package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/evoplanner-backend/internal/data/repos"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/observability"
	"github.com/yungbote/evoplanner-backend/internal/optimizer/problem"
	"github.com/yungbote/evoplanner-backend/internal/platform/apierr"
	"github.com/yungbote/evoplanner-backend/internal/platform/ctxutil"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

const (
	DefaultMaxExecutionTime = 300
	DefaultCancelTTL        = time.Hour
)

// JobStatus is the compact view of a job served to pollers.
type JobStatus struct {
	JobID                 uuid.UUID  `json:"job_id"`
	RecruitmentID         uuid.UUID  `json:"recruitment_id"`
	Status                string     `json:"status"`
	CurrentIteration      int        `json:"current_iteration"`
	Fitness               *float64   `json:"fitness,omitempty"`
	MaterializationStatus string     `json:"materialization_status,omitempty"`
	MaterializationError  string     `json:"materialization_error,omitempty"`
	ErrorMessage          string     `json:"error_message,omitempty"`
	StartedAt             *time.Time `json:"started_at,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
}

type OptimizerServiceConfig struct {
	CancelTTL time.Duration
}

// OptimizerService creates solver jobs, publishes them, and answers job queries.
type OptimizerService interface {
	// SubmitJob prepares the recruitment's problem and dispatches it. A draft recruitment is
	// moved to optimizing so the trigger scheduler does not start a competing round; the move
	// is reverted if dispatch fails.
	SubmitJob(dbc dbctx.Context, recruitmentID uuid.UUID, maxExecutionTime int) (*types.OptimizationJob, error)
	// Dispatch records a queued job for an already prepared problem and pushes it to the
	// solver queue. On publish failure the job row stays queued.
	Dispatch(dbc dbctx.Context, prepared *PreparedProblem, maxExecutionTime int) (*types.OptimizationJob, error)
	CancelJob(dbc dbctx.Context, jobID uuid.UUID) (*types.OptimizationJob, error)
	GetJob(dbc dbctx.Context, jobID uuid.UUID) (*types.OptimizationJob, error)
	GetStatus(dbc dbctx.Context, jobID uuid.UUID) (*JobStatus, error)
	ListJobs(dbc dbctx.Context, filter repos.OptimizationJobFilter) ([]*types.OptimizationJob, int64, error)
	ListProgress(dbc dbctx.Context, jobID uuid.UUID, limit, offset int) ([]*types.OptimizationProgress, int64, error)
}

type optimizerService struct {
	db           *gorm.DB
	log          *logger.Logger
	recruitments repos.RecruitmentRepo
	jobs         repos.OptimizationJobRepo
	progress     repos.OptimizationProgressRepo
	prefs        PreferenceEncoder
	queue        JobQueue
	cancels      CancelFlagStore
	notify       JobNotifier
	cancelTTL    time.Duration
}

func NewOptimizerService(
	db *gorm.DB,
	baseLog *logger.Logger,
	recruitments repos.RecruitmentRepo,
	jobs repos.OptimizationJobRepo,
	progress repos.OptimizationProgressRepo,
	prefs PreferenceEncoder,
	queue JobQueue,
	cancels CancelFlagStore,
	notify JobNotifier,
	cfg OptimizerServiceConfig,
) OptimizerService {
	if notify == nil {
		notify = NewJobNotifier(nil)
	}
	ttl := cfg.CancelTTL
	if ttl <= 0 {
		ttl = DefaultCancelTTL
	}
	return &optimizerService{
		db:           db,
		log:          baseLog.With("service", "OptimizerService"),
		recruitments: recruitments,
		jobs:         jobs,
		progress:     progress,
		prefs:        prefs,
		queue:        queue,
		cancels:      cancels,
		notify:       notify,
		cancelTTL:    ttl,
	}
}

func (s *optimizerService) SubmitJob(dbc dbctx.Context, recruitmentID uuid.UUID, maxExecutionTime int) (*types.OptimizationJob, error) {
	rec, err := s.recruitments.GetByID(dbc, recruitmentID)
	if err != nil {
		return nil, fmt.Errorf("load recruitment: %w", err)
	}
	if rec == nil {
		return nil, apierr.Wrap(apierr.ErrNotFound, "recruitment %s", recruitmentID)
	}
	prepared, err := s.prefs.Prepare(dbc, recruitmentID)
	if err != nil {
		return nil, err
	}
	if maxExecutionTime <= 0 {
		maxExecutionTime = rec.MaxRoundExecutionTime
	}

	claimed, err := s.recruitments.TransitionStatus(dbc, rec.ID, []string{types.PlanStatusDraft}, types.PlanStatusOptimizing)
	if err != nil {
		return nil, fmt.Errorf("mark optimizing: %w", err)
	}
	if claimed {
		rec.PlanStatus = types.PlanStatusOptimizing
		s.notify.PlanStatusChanged(dbc.Context(), rec)
	}

	job, err := s.Dispatch(dbc, prepared, maxExecutionTime)
	if err != nil && claimed {
		if _, rerr := s.recruitments.TransitionStatus(dbc, rec.ID, []string{types.PlanStatusOptimizing}, types.PlanStatusDraft); rerr != nil {
			s.log.Error("Failed to revert recruitment to draft", "recruitment_id", rec.ID, "error", rerr)
		} else {
			rec.PlanStatus = types.PlanStatusDraft
			s.notify.PlanStatusChanged(dbc.Context(), rec)
		}
	}
	return job, err
}

func (s *optimizerService) Dispatch(dbc dbctx.Context, prepared *PreparedProblem, maxExecutionTime int) (job *types.OptimizationJob, err error) {
	if prepared == nil || len(prepared.ProblemData) == 0 {
		return nil, apierr.Wrap(apierr.ErrValidation, "missing problem data")
	}
	if maxExecutionTime <= 0 {
		maxExecutionTime = DefaultMaxExecutionTime
	}
	ctx, span := observability.StartSpan(dbc.Context(), "optimizer.dispatch", observability.RecruitmentAttr(prepared.RecruitmentID))
	defer func() { observability.EndSpan(span, err) }()
	dbc.Ctx = ctx
	log := s.log.With(ctxutil.LogFields(ctx)...)

	job = &types.OptimizationJob{
		RecruitmentID:         prepared.RecruitmentID,
		Status:                types.JobStatusQueued,
		MaxExecutionTime:      maxExecutionTime,
		ProblemData:           datatypes.JSON(prepared.ProblemData),
		IndexManifest:         datatypes.JSON(prepared.ManifestJSON),
		CurrentIteration:      0,
		MaterializationStatus: types.MaterializationPending,
	}

	if err = s.jobs.Create(dbc, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	span.SetAttributes(observability.JobAttr(job.ID))

	msg, err := json.Marshal(problem.NewJobMessage(job.ID, prepared.ProblemData, maxExecutionTime))
	if err != nil {
		return nil, fmt.Errorf("marshal job message: %w", err)
	}
	if err = s.queue.PushJob(ctx, msg); err != nil {
		log.Error("Job publish failed; job left queued",
			"job_id", job.ID,
			"recruitment_id", job.RecruitmentID,
			"error", err,
		)
		observability.Current().IncDispatch("publish_failed")
		return nil, apierr.Wrap(apierr.ErrTransientInfra, "publish job %s: %v", job.ID, err)
	}
	observability.Current().IncDispatch("queued")

	superseded := s.supersede(dbc, job)
	log.Info("Dispatched optimization job",
		"job_id", job.ID,
		"recruitment_id", job.RecruitmentID,
		"max_execution_time", maxExecutionTime,
		"ordering_version", prepared.OrderingVersion,
		"superseded", len(superseded),
		"preferences_consistent", prepared.Report.Consistent,
	)
	s.notify.JobCreated(ctx, job)
	return job, nil
}

// supersede archives and cancel-flags the recruitment's other unfinished jobs. It runs only
// after job is on the queue; failures are logged.
func (s *optimizerService) supersede(dbc dbctx.Context, job *types.OptimizationJob) []*types.OptimizationJob {
	ctx := dbc.Context()
	log := s.log.With(ctxutil.LogFields(ctx)...)
	active := []string{types.JobStatusQueued, types.JobStatusRunning}

	var superseded []*types.OptimizationJob
	run := func(tx *gorm.DB) error {
		var err error
		superseded, err = s.jobs.ArchiveByRecruitment(dbctx.Context{Ctx: ctx, Tx: tx}, job.RecruitmentID, active, job.ID)
		return err
	}
	var err error
	if dbc.Tx != nil {
		err = run(dbc.Tx)
	} else {
		err = s.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		log.Error("Failed to archive superseded jobs", "job_id", job.ID, "recruitment_id", job.RecruitmentID, "error", err)
		return nil
	}

	for _, old := range superseded {
		old.Status = types.JobStatusArchived
		if ferr := s.cancels.SetCancelFlag(ctx, old.ID, s.cancelTTL); ferr != nil {
			log.Warn("Failed to flag superseded job", "job_id", old.ID, "error", ferr)
		}
		s.notify.JobStatusChanged(ctx, old)
	}
	return superseded
}

func (s *optimizerService) CancelJob(dbc dbctx.Context, jobID uuid.UUID) (*types.OptimizationJob, error) {
	job, err := s.GetJob(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsCancellable() {
		return nil, apierr.Wrap(apierr.ErrConflict, "job %s is %s and cannot be cancelled", jobID, job.Status)
	}
	ctx := dbc.Context()
	if err := s.cancels.SetCancelFlag(ctx, jobID, s.cancelTTL); err != nil {
		return nil, apierr.Wrap(apierr.ErrTransientInfra, "set cancel flag for %s: %v", jobID, err)
	}
	now := time.Now().UTC()
	ok, err := s.jobs.UpdateFieldsIfStatus(dbc, jobID, []string{types.JobStatusQueued, types.JobStatusRunning}, map[string]interface{}{
		"status":       types.JobStatusCancelled,
		"completed_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	if !ok {
		return nil, apierr.Wrap(apierr.ErrConflict, "job %s changed state before it could be cancelled", jobID)
	}
	job.Status = types.JobStatusCancelled
	job.CompletedAt = &now
	s.log.Info("Cancelled optimization job", "job_id", jobID, "recruitment_id", job.RecruitmentID)
	s.notify.JobStatusChanged(ctx, job)
	return job, nil
}

func (s *optimizerService) GetJob(dbc dbctx.Context, jobID uuid.UUID) (*types.OptimizationJob, error) {
	job, err := s.jobs.GetByID(dbc, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, apierr.Wrap(apierr.ErrNotFound, "job %s", jobID)
	}
	return job, nil
}

func (s *optimizerService) GetStatus(dbc dbctx.Context, jobID uuid.UUID) (*JobStatus, error) {
	job, err := s.GetJob(dbc, jobID)
	if err != nil {
		return nil, err
	}
	st := &JobStatus{
		JobID:                 job.ID,
		RecruitmentID:         job.RecruitmentID,
		Status:                job.Status,
		CurrentIteration:      job.CurrentIteration,
		MaterializationStatus: job.MaterializationStatus,
		MaterializationError:  job.MaterializationError,
		ErrorMessage:          job.ErrorMessage,
		StartedAt:             job.StartedAt,
		CompletedAt:           job.CompletedAt,
	}
	if len(job.FinalSolution) > 0 {
		st.Fitness = problem.Fitness(job.FinalSolution)
	}
	return st, nil
}

func (s *optimizerService) ListJobs(dbc dbctx.Context, filter repos.OptimizationJobFilter) ([]*types.OptimizationJob, int64, error) {
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.jobs.List(dbc, filter)
}

func (s *optimizerService) ListProgress(dbc dbctx.Context, jobID uuid.UUID, limit, offset int) ([]*types.OptimizationProgress, int64, error) {
	if _, err := s.GetJob(dbc, jobID); err != nil {
		return nil, 0, err
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.progress.ListByJob(dbc, jobID, limit, offset)
}
