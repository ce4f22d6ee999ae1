package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/evoplanner-backend/internal/data/repos"
	"github.com/yungbote/evoplanner-backend/internal/data/repos/testutil"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/apierr"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
)

func TestSubmitJobPublishesMessage(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}
	_, err := h.encoder().Encode(dbc, f.rec.ID)
	require.NoError(t, err)

	job, err := h.optimizer().SubmitJob(dbc, f.rec.ID, 0)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusQueued, job.Status)
	require.Equal(t, f.rec.MaxRoundExecutionTime, job.MaxExecutionTime)
	require.NotEmpty(t, job.IndexManifest)

	require.Equal(t, 1, h.queue.count())
	var msg struct {
		RecruitmentID    string          `json:"recruitment_id"`
		JobID            string          `json:"job_id"`
		ProblemData      json.RawMessage `json:"problem_data"`
		MaxExecutionTime int             `json:"max_execution_time"`
	}
	require.NoError(t, json.Unmarshal(h.queue.pushed[0], &msg))
	require.Equal(t, job.ID.String(), msg.JobID)
	require.Equal(t, job.ID.String(), msg.RecruitmentID)
	require.Equal(t, f.rec.MaxRoundExecutionTime, msg.MaxExecutionTime)
	require.JSONEq(t, string(job.ProblemData), string(msg.ProblemData))

	stored, err := h.jobs.GetByID(dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusQueued, stored.Status)
	require.Equal(t, 0, stored.CurrentIteration)
}

func TestSubmitJobPublishFailureLeavesJobQueued(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}
	_, err := h.encoder().Encode(dbc, f.rec.ID)
	require.NoError(t, err)

	h.queue.err = errBrokerDown
	_, err = h.optimizer().SubmitJob(dbc, f.rec.ID, 30)
	require.ErrorIs(t, err, apierr.ErrTransientInfra)

	jobs, total, err := h.jobs.List(dbc, repos.OptimizationJobFilter{RecruitmentID: &f.rec.ID, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, types.JobStatusQueued, jobs[0].Status)
	require.Equal(t, 30, jobs[0].MaxExecutionTime)
}

func TestSubmitJobPublishFailureKeepsActiveJob(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}
	_, err := h.encoder().Encode(dbc, f.rec.ID)
	require.NoError(t, err)
	running := testutil.SeedJob(t, h.db, f.rec.ID, types.JobStatusRunning)

	h.queue.err = errBrokerDown
	_, err = h.optimizer().SubmitJob(dbc, f.rec.ID, 0)
	require.ErrorIs(t, err, apierr.ErrTransientInfra)

	prev, err := h.jobs.GetByID(dbc, running.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusRunning, prev.Status)
	require.False(t, h.cancels.flagged(running.ID))

	jobs, total, err := h.jobs.List(dbc, repos.OptimizationJobFilter{RecruitmentID: &f.rec.ID, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	for _, j := range jobs {
		require.NotEqual(t, types.JobStatusArchived, j.Status)
	}
}

func TestSubmitJobClaimsDraftRecruitment(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}
	_, err := h.encoder().Encode(dbc, f.rec.ID)
	require.NoError(t, err)

	h.queue.err = errBrokerDown
	_, err = h.optimizer().SubmitJob(dbc, f.rec.ID, 0)
	require.ErrorIs(t, err, apierr.ErrTransientInfra)
	rec, err := h.recruitments.GetByID(dbc, f.rec.ID)
	require.NoError(t, err)
	require.Equal(t, types.PlanStatusDraft, rec.PlanStatus)

	h.queue.err = nil
	_, err = h.optimizer().SubmitJob(dbc, f.rec.ID, 0)
	require.NoError(t, err)
	rec, err = h.recruitments.GetByID(dbc, f.rec.ID)
	require.NoError(t, err)
	require.Equal(t, types.PlanStatusOptimizing, rec.PlanStatus)

	started, err := newScheduler(h, time.Now().UTC().Add(24*time.Hour)).RunOnce(dbc.Ctx)
	require.NoError(t, err)
	require.Empty(t, started)
	require.Equal(t, 1, h.queue.count())
}

func TestSubmitJobSupersedesActiveJobs(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}
	_, err := h.encoder().Encode(dbc, f.rec.ID)
	require.NoError(t, err)
	old := testutil.SeedJob(t, h.db, f.rec.ID, types.JobStatusRunning)

	job, err := h.optimizer().SubmitJob(dbc, f.rec.ID, 0)
	require.NoError(t, err)
	require.NotEqual(t, old.ID, job.ID)

	prev, err := h.jobs.GetByID(dbc, old.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusArchived, prev.Status)
	require.True(t, h.cancels.flagged(old.ID))

	current, err := h.jobs.GetByID(dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusQueued, current.Status)
	require.False(t, h.cancels.flagged(job.ID))
}

func TestSubmitJobWithoutConstraints(t *testing.T) {
	h := newHarness(t)
	org := testutil.SeedOrganization(t, h.db, "org")
	rec := testutil.SeedRecruitment(t, h.db, org.ID, nil)

	_, err := h.optimizer().SubmitJob(dbctx.Context{Ctx: context.Background()}, rec.ID, 0)
	require.ErrorIs(t, err, apierr.ErrValidation)
	require.Zero(t, h.queue.count())
}

func TestCancelJob(t *testing.T) {
	h := newHarness(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	org := testutil.SeedOrganization(t, h.db, "org")
	rec := testutil.SeedRecruitment(t, h.db, org.ID, nil)
	svc := h.optimizer()

	t.Run("queued job is cancelled and flagged", func(t *testing.T) {
		job := testutil.SeedJob(t, h.db, rec.ID, types.JobStatusQueued)
		out, err := svc.CancelJob(dbc, job.ID)
		require.NoError(t, err)
		require.Equal(t, types.JobStatusCancelled, out.Status)
		require.True(t, h.cancels.flagged(job.ID))
		require.Equal(t, DefaultCancelTTL, h.cancels.flags[job.ID])

		stored, err := h.jobs.GetByID(dbc, job.ID)
		require.NoError(t, err)
		require.Equal(t, types.JobStatusCancelled, stored.Status)
		require.NotNil(t, stored.CompletedAt)
	})

	t.Run("completed job is rejected", func(t *testing.T) {
		job := testutil.SeedJob(t, h.db, rec.ID, types.JobStatusCompleted)
		_, err := svc.CancelJob(dbc, job.ID)
		require.ErrorIs(t, err, apierr.ErrConflict)
		require.False(t, h.cancels.flagged(job.ID))

		stored, err := h.jobs.GetByID(dbc, job.ID)
		require.NoError(t, err)
		require.Equal(t, types.JobStatusCompleted, stored.Status)
	})

	t.Run("flag failure leaves status unchanged", func(t *testing.T) {
		job := testutil.SeedJob(t, h.db, rec.ID, types.JobStatusRunning)
		h.cancels.err = errBrokerDown
		defer func() { h.cancels.err = nil }()

		_, err := svc.CancelJob(dbc, job.ID)
		require.ErrorIs(t, err, apierr.ErrTransientInfra)
		stored, err := h.jobs.GetByID(dbc, job.ID)
		require.NoError(t, err)
		require.Equal(t, types.JobStatusRunning, stored.Status)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := svc.CancelJob(dbc, org.ID)
		require.ErrorIs(t, err, apierr.ErrNotFound)
	})
}

func TestGetStatusReportsFitness(t *testing.T) {
	h := newHarness(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	org := testutil.SeedOrganization(t, h.db, "org")
	rec := testutil.SeedRecruitment(t, h.db, org.ID, nil)
	job := testutil.SeedJob(t, h.db, rec.ID, types.JobStatusRunning)
	require.NoError(t, h.jobs.UpdateFields(dbc, job.ID, map[string]interface{}{
		"final_solution":    datatypes.JSON(`{"fitness":12.5,"by_group":[],"by_student":[]}`),
		"current_iteration": 7,
	}))

	st, err := h.optimizer().GetStatus(dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, 7, st.CurrentIteration)
	require.NotNil(t, st.Fitness)
	require.InDelta(t, 12.5, *st.Fitness, 1e-9)
}
