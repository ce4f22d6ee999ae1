package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/evoplanner-backend/internal/data/repos"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/observability"
	"github.com/yungbote/evoplanner-backend/internal/platform/apierr"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type TriggerReason string

const (
	TriggerNone      TriggerReason = ""
	TriggerDeadline  TriggerReason = "deadline"
	TriggerThreshold TriggerReason = "threshold"
	TriggerManual    TriggerReason = "manual"
)

type TriggerSchedulerConfig struct {
	PollInterval time.Duration
}

// TriggerScheduler polls draft recruitments and starts an optimization round when the
// deadline passes or enough participants have submitted preferences.
type TriggerScheduler struct {
	log          *logger.Logger
	recruitments repos.RecruitmentRepo
	participants repos.ParticipantRepo
	encoder      ConstraintEncoder
	optimizer    OptimizerService
	notify       JobNotifier
	interval     time.Duration
	now          func() time.Time

	// serializes RunOnce and manual triggers
	mu sync.Mutex
}

func NewTriggerScheduler(
	baseLog *logger.Logger,
	recruitments repos.RecruitmentRepo,
	participants repos.ParticipantRepo,
	encoder ConstraintEncoder,
	optimizer OptimizerService,
	notify JobNotifier,
	cfg TriggerSchedulerConfig,
) *TriggerScheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if notify == nil {
		notify = NewJobNotifier(nil)
	}
	return &TriggerScheduler{
		log:          baseLog.With("service", "TriggerScheduler"),
		recruitments: recruitments,
		participants: participants,
		encoder:      encoder,
		optimizer:    optimizer,
		notify:       notify,
		interval:     cfg.PollInterval,
		now:          time.Now,
	}
}

// Run polls until ctx is cancelled.
func (s *TriggerScheduler) Run(ctx context.Context) error {
	s.log.Info("Trigger scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.safeRunOnce(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("Trigger scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *TriggerScheduler) safeRunOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Trigger poll panic", "panic", r)
		}
	}()
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Warn("Trigger poll failed", "error", err)
	}
}

// RunOnce evaluates every draft recruitment once and returns the ids that were dispatched.
func (s *TriggerScheduler) RunOnce(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbc := dbctx.Context{Ctx: ctx}
	drafts, err := s.recruitments.ListByStatus(dbc, types.PlanStatusDraft)
	if err != nil {
		return nil, fmt.Errorf("list draft recruitments: %w", err)
	}
	now := s.now()
	var started []uuid.UUID
	for _, rec := range drafts {
		if ctx.Err() != nil {
			break
		}
		reason, err := s.ShouldStart(dbc, rec, now)
		if err != nil {
			s.log.Warn("Trigger evaluation failed", "recruitment_id", rec.ID, "error", err)
			continue
		}
		if reason == TriggerNone {
			continue
		}
		if _, err := s.start(dbc, rec, reason); err != nil {
			s.log.Warn("Optimization trigger failed; will retry next poll", "recruitment_id", rec.ID, "reason", reason, "error", err)
			continue
		}
		started = append(started, rec.ID)
	}
	return started, nil
}

// ShouldStart evaluates the deadline and threshold conditions for one draft recruitment.
func (s *TriggerScheduler) ShouldStart(dbc dbctx.Context, rec *types.Recruitment, now time.Time) (TriggerReason, error) {
	if rec.PlanStatus != types.PlanStatusDraft {
		return TriggerNone, nil
	}
	if rec.OptimizationStartDate != nil && !now.Before(*rec.OptimizationStartDate) {
		return TriggerDeadline, nil
	}
	if rec.UserPrefsStartDate == nil || rec.OptimizationStartDate == nil {
		return TriggerNone, nil
	}
	if now.Before(*rec.UserPrefsStartDate) || !now.Before(*rec.OptimizationStartDate) {
		return TriggerNone, nil
	}
	eligible, err := s.participants.CountEligible(dbc, rec.ID)
	if err != nil {
		return TriggerNone, fmt.Errorf("count eligible participants: %w", err)
	}
	if ThresholdReached(rec.UsersSubmittedCount, eligible, rec.PreferenceThreshold) {
		return TriggerThreshold, nil
	}
	return TriggerNone, nil
}

// ThresholdReached reports submitted >= ceil(eligible * fraction). An empty recruitment never
// reaches its threshold.
func ThresholdReached(submitted int, eligible int64, fraction float64) bool {
	if eligible <= 0 {
		return false
	}
	need := int(math.Ceil(float64(eligible) * fraction))
	return submitted >= need
}

// Trigger starts a round for one recruitment immediately, regardless of its conditions.
func (s *TriggerScheduler) Trigger(dbc dbctx.Context, recruitmentID uuid.UUID) (*types.OptimizationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.recruitments.GetByID(dbc, recruitmentID)
	if err != nil {
		return nil, fmt.Errorf("load recruitment: %w", err)
	}
	if rec == nil {
		return nil, apierr.Wrap(apierr.ErrNotFound, "recruitment %s", recruitmentID)
	}
	if rec.PlanStatus != types.PlanStatusDraft {
		return nil, apierr.Wrap(apierr.ErrConflict, "recruitment %s is %s, not draft", recruitmentID, rec.PlanStatus)
	}
	return s.start(dbc, rec, TriggerManual)
}

// start encodes, flips draft to optimizing, and dispatches. A dispatch failure reverts the
// recruitment to draft.
func (s *TriggerScheduler) start(dbc dbctx.Context, rec *types.Recruitment, reason TriggerReason) (*types.OptimizationJob, error) {
	log := s.log.With("recruitment_id", rec.ID, "reason", reason)

	if _, err := s.encoder.Encode(dbc, rec.ID); err != nil {
		return nil, fmt.Errorf("encode constraints: %w", err)
	}
	ok, err := s.recruitments.TransitionStatus(dbc, rec.ID, []string{types.PlanStatusDraft}, types.PlanStatusOptimizing)
	if err != nil {
		return nil, fmt.Errorf("mark optimizing: %w", err)
	}
	if !ok {
		return nil, apierr.Wrap(apierr.ErrConflict, "recruitment %s left draft concurrently", rec.ID)
	}
	rec.PlanStatus = types.PlanStatusOptimizing
	s.notify.PlanStatusChanged(dbc.Context(), rec)

	job, err := s.optimizer.SubmitJob(dbc, rec.ID, rec.MaxRoundExecutionTime)
	if err != nil {
		if _, rerr := s.recruitments.TransitionStatus(dbc, rec.ID, []string{types.PlanStatusOptimizing}, types.PlanStatusDraft); rerr != nil {
			log.Error("Failed to revert recruitment to draft", "error", rerr)
		} else {
			rec.PlanStatus = types.PlanStatusDraft
			s.notify.PlanStatusChanged(dbc.Context(), rec)
		}
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	log.Info("Optimization round started", "job_id", job.ID)
	observability.Current().IncTrigger(string(reason))
	return job, nil
}
