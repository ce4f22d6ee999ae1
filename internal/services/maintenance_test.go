package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/evoplanner-backend/internal/data/repos/testutil"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
)

func TestMaintenanceSweep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	now := time.Now().UTC()

	org := testutil.SeedOrganization(t, h.db, "org")
	expired := testutil.SeedRecruitment(t, h.db, org.ID, func(r *types.Recruitment) {
		r.PlanStatus = types.PlanStatusActive
		r.ExpirationDate = testutil.PtrTime(now.Add(-time.Hour))
	})
	live := testutil.SeedRecruitment(t, h.db, org.ID, func(r *types.Recruitment) {
		r.PlanStatus = types.PlanStatusActive
		r.ExpirationDate = testutil.PtrTime(now.Add(time.Hour))
	})
	stale := testutil.SeedJob(t, h.db, live.ID, types.JobStatusQueued)
	running := testutil.SeedJob(t, h.db, live.ID, types.JobStatusRunning)

	m := NewMaintenance(h.log, h.recruitments, h.jobs, nil, MaintenanceConfig{OrphanJobMaxAge: time.Hour})
	m.now = func() time.Time { return now.Add(2 * time.Hour) }

	res, err := m.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.Archived, "both recruitments are past expiry at now+2h")
	require.Equal(t, 1, res.OrphansFailed)

	rec, err := h.recruitments.GetByID(dbc, expired.ID)
	require.NoError(t, err)
	require.Equal(t, types.PlanStatusArchived, rec.PlanStatus)

	job, err := h.jobs.GetByID(dbc, stale.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusFailed, job.Status)
	require.NotEmpty(t, job.ErrorMessage)

	job, err = h.jobs.GetByID(dbc, running.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusRunning, job.Status)
}

func TestMaintenanceSweepWithoutOrphanAge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := testutil.SeedOrganization(t, h.db, "org")
	rec := testutil.SeedRecruitment(t, h.db, org.ID, nil)
	queued := testutil.SeedJob(t, h.db, rec.ID, types.JobStatusQueued)

	m := NewMaintenance(h.log, h.recruitments, h.jobs, nil, MaintenanceConfig{})
	m.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	res, err := m.Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Archived)
	require.Zero(t, res.OrphansFailed)

	job, err := h.jobs.GetByID(dbctx.Context{Ctx: ctx}, queued.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusQueued, job.Status)
}
