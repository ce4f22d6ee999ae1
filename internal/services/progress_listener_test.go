package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/evoplanner-backend/internal/data/repos/testutil"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/apierr"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
)

func notification(jobID uuid.UUID, iteration int) []byte {
	return []byte(fmt.Sprintf(`{"job_id":%q,"iteration":%d}`, jobID, iteration))
}

func newListener(h *harness, mat Materializer, sub ProgressSubscriber) *ProgressListener {
	return NewProgressListener(h.log, h.jobs, h.progress, h.store, sub, mat, nil, ProgressListenerConfig{
		ReceiveTimeout: 20 * time.Millisecond,
		RetryBackoff:   10 * time.Millisecond,
	})
}

func seedQueuedJob(t *testing.T, h *harness) *types.OptimizationJob {
	t.Helper()
	org := testutil.SeedOrganization(t, h.db, "org")
	rec := testutil.SeedRecruitment(t, h.db, org.ID, nil)
	return testutil.SeedJob(t, h.db, rec.ID, types.JobStatusQueued)
}

func TestListenerRecordsProgressOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := seedQueuedJob(t, h)
	l := newListener(h, &fakeMaterializer{}, nil)
	h.store.put(job.ID, `{"best_solution":{"fitness":3.5,"by_group":[],"by_student":[]}}`)

	out, err := l.HandleNotification(ctx, notification(job.ID, 4))
	require.NoError(t, err)
	require.Equal(t, OutcomeRecorded, out)

	out, err = l.HandleNotification(ctx, notification(job.ID, 4))
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, out)

	rows, total, err := h.progress.ListByJob(dbctx.Context{Ctx: ctx}, job.ID, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, 4, rows[0].Iteration)
	require.NotNil(t, rows[0].Fitness)
	require.InDelta(t, 3.5, *rows[0].Fitness, 1e-9)

	stored, err := h.jobs.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusRunning, stored.Status)
	require.Equal(t, 4, stored.CurrentIteration)
	require.NotNil(t, stored.StartedAt)
	require.JSONEq(t, `{"fitness":3.5,"by_group":[],"by_student":[]}`, string(stored.FinalSolution))
}

func TestListenerKeepsOutOfOrderAsSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := seedQueuedJob(t, h)
	l := newListener(h, &fakeMaterializer{}, nil)

	h.store.put(job.ID, `{"best_solution":{"fitness":9,"by_group":[],"by_student":[]}}`)
	_, err := l.HandleNotification(ctx, notification(job.ID, 10))
	require.NoError(t, err)
	h.store.put(job.ID, `{"best_solution":{"fitness":1,"by_group":[],"by_student":[]}}`)
	out, err := l.HandleNotification(ctx, notification(job.ID, 3))
	require.NoError(t, err)
	require.Equal(t, OutcomeRecorded, out)

	stored, err := h.jobs.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	require.NoError(t, err)
	require.Equal(t, 10, stored.CurrentIteration)

	_, total, err := h.progress.ListByJob(dbctx.Context{Ctx: ctx}, job.ID, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}

func TestListenerCompletionMaterializesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := seedQueuedJob(t, h)
	mat := &fakeMaterializer{err: apierr.Wrap(apierr.ErrMaterialization, "boom")}
	l := newListener(h, mat, nil)
	h.store.put(job.ID, `{"best_solution":{"by_group":[[1,0]],"by_student":[]}}`)

	out, err := l.HandleNotification(ctx, notification(job.ID, -1))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, out)

	out, err = l.HandleNotification(ctx, notification(job.ID, -1))
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, out)
	require.Len(t, mat.calls, 1)

	stored, err := h.jobs.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	require.JSONEq(t, `{"by_group":[[1,0]],"by_student":[]}`, string(stored.FinalSolution))
}

func TestListenerCompletesWhenPayloadUnreadable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := seedQueuedJob(t, h)
	mat := &fakeMaterializer{}
	l := newListener(h, mat, nil)

	h.store.put(job.ID, `{"best_solution":{"fitness":2,"by_group":[[1,0]],"by_student":[]}}`)
	_, err := l.HandleNotification(ctx, notification(job.ID, 6))
	require.NoError(t, err)

	h.store.err = errBrokerDown
	out, err := l.HandleNotification(ctx, notification(job.ID, 7))
	require.ErrorIs(t, err, errBrokerDown)
	require.Empty(t, out)

	out, err = l.HandleNotification(ctx, notification(job.ID, -1))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, out)
	require.Len(t, mat.calls, 1)

	stored, err := h.jobs.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusCompleted, stored.Status)
	require.JSONEq(t, `{"fitness":2,"by_group":[[1,0]],"by_student":[]}`, string(stored.FinalSolution))
}

func TestListenerIgnoresDetachedJobs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := seedQueuedJob(t, h)
	require.NoError(t, h.jobs.UpdateFields(dbctx.Context{Ctx: ctx}, job.ID, map[string]interface{}{"status": types.JobStatusCancelled}))
	mat := &fakeMaterializer{}
	l := newListener(h, mat, nil)
	h.store.put(job.ID, `{"best_solution":{"by_group":[],"by_student":[]}}`)

	out, err := l.HandleNotification(ctx, notification(job.ID, 2))
	require.NoError(t, err)
	require.Equal(t, OutcomeDetached, out)

	out, err = l.HandleNotification(ctx, notification(job.ID, -1))
	require.NoError(t, err)
	require.Equal(t, OutcomeDetached, out)
	require.Empty(t, mat.calls)

	stored, err := h.jobs.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusCancelled, stored.Status)
	require.Zero(t, stored.CurrentIteration)
}

func TestListenerDropsBadInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := newListener(h, &fakeMaterializer{}, nil)

	cases := []struct {
		name string
		raw  []byte
		want Outcome
	}{
		{"not json", []byte("iteration=3"), OutcomeDropped},
		{"missing iteration", []byte(fmt.Sprintf(`{"job_id":%q}`, uuid.New())), OutcomeDropped},
		{"bad iteration", notification(uuid.New(), -7), OutcomeDropped},
		{"unknown job", notification(uuid.New(), 1), OutcomeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := l.HandleNotification(ctx, tc.raw)
			require.NoError(t, err)
			require.Equal(t, tc.want, out)
		})
	}

	job := seedQueuedJob(t, h)
	out, err := l.HandleNotification(ctx, notification(job.ID, 1))
	require.NoError(t, err)
	require.Equal(t, OutcomeDropped, out, "progress without a stored payload")
}

func TestListenerRunConsumesSubscription(t *testing.T) {
	h := newHarness(t)
	job := seedQueuedJob(t, h)
	sub := newFakeSubscription()
	l := newListener(h, &fakeMaterializer{}, fakeSubscriber{sub: sub})
	h.store.put(job.ID, `{"best_solution":{"fitness":1,"by_group":[],"by_student":[]}}`)

	l.Start(context.Background())
	sub.msgs <- []byte("garbage")
	sub.msgs <- notification(job.ID, 1)

	require.Eventually(t, func() bool {
		stored, err := h.jobs.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID)
		return err == nil && stored.CurrentIteration == 1
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, l.Stop(time.Second))
}
