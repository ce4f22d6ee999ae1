package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/evoplanner-backend/internal/data/repos"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/observability"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type MaintenanceConfig struct {
	// Schedule is a cron spec, e.g. "@every 5m".
	Schedule string
	// OrphanJobMaxAge fails queued jobs older than this. Zero disables the sweep.
	OrphanJobMaxAge time.Duration
}

type SweepResult struct {
	Archived      int `json:"archived"`
	OrphansFailed int `json:"orphans_failed"`
}

// Maintenance archives expired recruitments and optionally fails stale queued jobs.
type Maintenance struct {
	log          *logger.Logger
	recruitments repos.RecruitmentRepo
	jobs         repos.OptimizationJobRepo
	notify       JobNotifier
	cfg          MaintenanceConfig
	now          func() time.Time
}

func NewMaintenance(
	baseLog *logger.Logger,
	recruitments repos.RecruitmentRepo,
	jobs repos.OptimizationJobRepo,
	notify JobNotifier,
	cfg MaintenanceConfig,
) *Maintenance {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if notify == nil {
		notify = NewJobNotifier(nil)
	}
	return &Maintenance{
		log:          baseLog.With("service", "Maintenance"),
		recruitments: recruitments,
		jobs:         jobs,
		notify:       notify,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Run schedules the sweep with cron and blocks until ctx is cancelled.
func (m *Maintenance) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{m.log})))
	if _, err := c.AddFunc(m.cfg.Schedule, func() {
		if _, err := m.Sweep(ctx); err != nil {
			m.log.Warn("Maintenance sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("maintenance schedule %q: %w", m.cfg.Schedule, err)
	}
	m.log.Info("Maintenance scheduled", "schedule", m.cfg.Schedule, "orphan_job_max_age", m.cfg.OrphanJobMaxAge)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	m.log.Info("Maintenance stopped")
	return nil
}

func (m *Maintenance) Sweep(ctx context.Context) (*SweepResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	now := m.now().UTC()
	res := &SweepResult{}

	archived, err := m.recruitments.ArchiveExpired(dbc, now)
	if err != nil {
		return nil, fmt.Errorf("archive expired recruitments: %w", err)
	}
	res.Archived = len(archived)
	for _, id := range archived {
		m.log.Info("Recruitment archived after expiration", "recruitment_id", id)
		m.notify.PlanStatusChanged(ctx, &types.Recruitment{ID: id, PlanStatus: types.PlanStatusArchived})
	}

	if m.cfg.OrphanJobMaxAge > 0 {
		n, err := m.failOrphans(dbc, now.Add(-m.cfg.OrphanJobMaxAge))
		if err != nil {
			return res, err
		}
		res.OrphansFailed = n
	}
	observability.Current().AddSweep(res.Archived, res.OrphansFailed)
	return res, nil
}

func (m *Maintenance) failOrphans(dbc dbctx.Context, cutoff time.Time) (int, error) {
	stale, err := m.jobs.ListQueuedBefore(dbc, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale queued jobs: %w", err)
	}
	failed := 0
	for _, job := range stale {
		msg := fmt.Sprintf("no solver progress since %s", job.CreatedAt.UTC().Format(time.RFC3339))
		ok, err := m.jobs.UpdateFieldsIfStatus(dbc, job.ID, []string{types.JobStatusQueued}, map[string]interface{}{
			"status":        types.JobStatusFailed,
			"error_message": msg,
			"completed_at":  m.now().UTC(),
		})
		if err != nil {
			m.log.Warn("Failed to fail orphaned job", "job_id", job.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		failed++
		job.Status = types.JobStatusFailed
		job.ErrorMessage = msg
		m.log.Warn("Orphaned job failed", "job_id", job.ID, "recruitment_id", job.RecruitmentID)
		m.notify.JobStatusChanged(dbc.Context(), job)
	}
	return failed, nil
}

// cronLogger routes cron's recovery output through the service logger.
type cronLogger struct{ log *logger.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
