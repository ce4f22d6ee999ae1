package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/apierr"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
)

// completedJob encodes the fixture, dispatches it, and marks the job completed with solution.
func completedJob(t *testing.T, h *harness, f *encoderFixture, solution string) *types.OptimizationJob {
	t.Helper()
	dbc := dbctx.Context{Ctx: context.Background()}
	_, err := h.encoder().Encode(dbc, f.rec.ID)
	require.NoError(t, err)
	job, err := h.optimizer().SubmitJob(dbc, f.rec.ID, 0)
	require.NoError(t, err)
	require.NoError(t, h.jobs.UpdateFields(dbc, job.ID, map[string]interface{}{
		"status":         types.JobStatusCompleted,
		"final_solution": datatypes.JSON(solution),
	}))
	return job
}

func meetingsOf(t *testing.T, h *harness, recID uuid.UUID) []*types.Meeting {
	t.Helper()
	out, err := h.meetings.ListByRecruitment(dbctx.Context{Ctx: context.Background()}, recID)
	require.NoError(t, err)
	return out
}

func TestMaterializeSingleGroup(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}
	job := completedJob(t, h, f, `{"by_group":[[5,0]],"by_student":[[0]]}`)

	res, err := h.materializer().MaterializeJob(dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, 1, res.Meetings)
	require.Empty(t, res.Skipped)

	got := meetingsOf(t, h, f.rec.ID)
	require.Len(t, got, 1)
	m := got[0]
	require.Equal(t, 5, m.StartTimeslot)
	require.Equal(t, 0, m.DayOfCycle)
	require.Equal(t, 0, m.DayOfWeek)
	require.Equal(t, f.room.ID, m.RoomID)
	require.Equal(t, f.group.ID, m.SubjectGroupID)
	require.NotNil(t, m.OptimizationJobID)
	require.Equal(t, job.ID, *m.OptimizationJobID)

	members, err := h.groups.MemberIDsByGroup(dbc, []uuid.UUID{m.GroupID})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{f.student.ID}, members[m.GroupID])

	rec, err := h.recruitments.GetByID(dbc, f.rec.ID)
	require.NoError(t, err)
	require.Equal(t, types.PlanStatusActive, rec.PlanStatus)

	stored, err := h.jobs.GetByID(dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, types.MaterializationSucceeded, stored.MaterializationStatus)
	require.NotNil(t, stored.MaterializedAt)
}

func TestMaterializeReplacesPreviousSchedule(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}

	first := completedJob(t, h, f, `{"by_group":[[5,0]],"by_student":[[0]]}`)
	_, err := h.materializer().MaterializeJob(dbc, first.ID)
	require.NoError(t, err)
	oldGroup := meetingsOf(t, h, f.rec.ID)[0].GroupID

	second := completedJob(t, h, f, `{"by_group":[[25,0]],"by_student":[[0]]}`)
	_, err = h.materializer().MaterializeJob(dbc, second.ID)
	require.NoError(t, err)

	got := meetingsOf(t, h, f.rec.ID)
	require.Len(t, got, 1)
	require.Equal(t, 25, got[0].StartTimeslot)
	require.Equal(t, 1, got[0].DayOfCycle)
	require.Equal(t, 1, got[0].DayOfWeek)

	var groups int64
	require.NoError(t, h.db.Model(&types.Group{}).Where("id = ?", oldGroup).Count(&groups).Error)
	require.Zero(t, groups)
}

func TestMaterializeShapeMismatchWritesNothing(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}

	good := completedJob(t, h, f, `{"by_group":[[5,0]],"by_student":[[0]]}`)
	_, err := h.materializer().MaterializeJob(dbc, good.ID)
	require.NoError(t, err)
	before := meetingsOf(t, h, f.rec.ID)

	bad := completedJob(t, h, f, `{"by_group":[[5,0],[6,0]],"by_student":[[0]]}`)
	_, err = h.materializer().MaterializeJob(dbc, bad.ID)
	require.ErrorIs(t, err, apierr.ErrMaterialization)

	after := meetingsOf(t, h, f.rec.ID)
	require.Len(t, after, len(before))
	require.Equal(t, before[0].ID, after[0].ID)

	stored, err := h.jobs.GetByID(dbc, bad.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusCompleted, stored.Status)
	require.Equal(t, types.MaterializationFailed, stored.MaterializationStatus)
	require.Contains(t, stored.MaterializationError, "by_group")
}

func TestMaterializeSkipsInvalidRoom(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}
	job := completedJob(t, h, f, `{"by_group":[[5,3]],"by_student":[[0]]}`)

	res, err := h.materializer().MaterializeJob(dbc, job.ID)
	require.NoError(t, err)
	require.Zero(t, res.Meetings)
	require.Equal(t, []int{0}, res.Skipped)
	require.Empty(t, meetingsOf(t, h, f.rec.ID))
}

func TestMaterializeRequiresCompletedJob(t *testing.T) {
	h := newHarness(t)
	f := seedEncoderFixture(t, h)
	dbc := dbctx.Context{Ctx: context.Background()}
	_, err := h.encoder().Encode(dbc, f.rec.ID)
	require.NoError(t, err)
	job, err := h.optimizer().SubmitJob(dbc, f.rec.ID, 0)
	require.NoError(t, err)

	_, err = h.materializer().MaterializeJob(dbc, job.ID)
	require.ErrorIs(t, err, apierr.ErrConflict)
}

func TestMaterializeSkipsPlacementsOffTheGrid(t *testing.T) {
	cases := []struct {
		name     string
		solution string
	}{
		{"past cycle end", `{"by_group":[[100000,0]],"by_student":[[0]]}`},
		{"first slot after cycle", `{"by_group":[[140,0]],"by_student":[[0]]}`},
		{"runs past day end", `{"by_group":[[18,0]],"by_student":[[0]]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			f := seedEncoderFixture(t, h)
			dbc := dbctx.Context{Ctx: context.Background()}
			job := completedJob(t, h, f, tc.solution)

			res, err := h.materializer().MaterializeJob(dbc, job.ID)
			require.NoError(t, err)
			require.Zero(t, res.Meetings)
			require.Equal(t, []int{0}, res.Skipped)
			require.Empty(t, meetingsOf(t, h, f.rec.ID))
		})
	}
}
