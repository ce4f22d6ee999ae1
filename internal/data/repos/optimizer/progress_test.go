package optimizer

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/evoplanner-backend/internal/data/repos/testutil"
	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
)

func TestProgressRepoCreateIfAbsent(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewProgressRepo(db, testutil.Logger(t))

	org := testutil.SeedOrganization(t, db, "org")
	rec := testutil.SeedRecruitment(t, db, org.ID, nil)
	job := testutil.SeedJob(t, db, rec.ID, types.JobStatusRunning)

	first := &types.OptimizationProgress{JobID: job.ID, Iteration: 3, BestSolution: datatypes.JSON([]byte(`{"fitness":1}`))}
	created, err := repo.CreateIfAbsent(dbc, first)
	if err != nil || !created {
		t.Fatalf("CreateIfAbsent(first): created=%v err=%v", created, err)
	}
	dup := &types.OptimizationProgress{JobID: job.ID, Iteration: 3, BestSolution: datatypes.JSON([]byte(`{"fitness":2}`))}
	created, err = repo.CreateIfAbsent(dbc, dup)
	if err != nil {
		t.Fatalf("CreateIfAbsent(dup): %v", err)
	}
	if created {
		t.Fatalf("CreateIfAbsent(dup): want created=false")
	}
	if _, err := repo.CreateIfAbsent(dbc, &types.OptimizationProgress{JobID: job.ID, Iteration: 7, BestSolution: datatypes.JSON([]byte(`{}`))}); err != nil {
		t.Fatalf("CreateIfAbsent(7): %v", err)
	}

	rows, total, err := repo.ListByJob(dbc, job.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListByJob: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("ListByJob: want=2 got total=%d len=%d", total, len(rows))
	}
	if rows[0].Iteration != 7 {
		t.Fatalf("ListByJob order: want first iteration=7 got=%d", rows[0].Iteration)
	}
}

func TestJobRepoConditionalUpdateAndArchive(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewJobRepo(db, testutil.Logger(t))

	org := testutil.SeedOrganization(t, db, "org")
	rec := testutil.SeedRecruitment(t, db, org.ID, nil)
	queued := testutil.SeedJob(t, db, rec.ID, types.JobStatusQueued)
	completed := testutil.SeedJob(t, db, rec.ID, types.JobStatusCompleted)
	failed := testutil.SeedJob(t, db, rec.ID, types.JobStatusFailed)
	fresh := testutil.SeedJob(t, db, rec.ID, types.JobStatusQueued)

	ok, err := repo.UpdateFieldsIfStatus(dbc, completed.ID, []string{types.JobStatusQueued, types.JobStatusRunning}, map[string]interface{}{"status": types.JobStatusCancelled})
	if err != nil {
		t.Fatalf("UpdateFieldsIfStatus: %v", err)
	}
	if ok {
		t.Fatalf("UpdateFieldsIfStatus(completed): want no change")
	}

	prior, err := repo.ArchiveByRecruitment(dbc, rec.ID, []string{types.JobStatusQueued, types.JobStatusRunning, types.JobStatusCompleted}, fresh.ID)
	if err != nil {
		t.Fatalf("ArchiveByRecruitment: %v", err)
	}
	if len(prior) != 2 {
		t.Fatalf("ArchiveByRecruitment: want=2 got=%d", len(prior))
	}
	for _, id := range []struct {
		job    *types.OptimizationJob
		status string
	}{{queued, types.JobStatusArchived}, {completed, types.JobStatusArchived}, {failed, types.JobStatusFailed}, {fresh, types.JobStatusQueued}} {
		got, err := repo.GetByID(dbc, id.job.ID)
		if err != nil || got == nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Status != id.status {
			t.Fatalf("status after archive: want=%s got=%s", id.status, got.Status)
		}
	}

	list, total, err := repo.List(dbc, JobFilter{RecruitmentID: &rec.ID, Status: types.JobStatusArchived})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("List: want=2 got total=%d len=%d", total, len(list))
	}
}
