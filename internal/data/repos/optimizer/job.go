package optimizer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type JobFilter struct {
	RecruitmentID *uuid.UUID
	Status        string
	Limit         int
	Offset        int
}

type JobRepo interface {
	Create(dbc dbctx.Context, job *types.OptimizationJob) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.OptimizationJob, error)
	List(dbc dbctx.Context, filter JobFilter) ([]*types.OptimizationJob, int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateFieldsIfStatus applies updates only when the job's status is one of allowed.
	UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowed []string, updates map[string]interface{}) (bool, error)
	// ArchiveByRecruitment marks the recruitment's jobs in any of statuses as archived, except
	// the ids in keep, and returns them as they were before the update.
	ArchiveByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID, statuses []string, keep ...uuid.UUID) ([]*types.OptimizationJob, error)
	ListQueuedBefore(dbc dbctx.Context, cutoff time.Time) ([]*types.OptimizationJob, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{db: db, log: baseLog.With("repo", "OptimizationJobRepo")}
}

func (r *jobRepo) Create(dbc dbctx.Context, job *types.OptimizationJob) error {
	return dbc.DB(r.db).Create(job).Error
}

func (r *jobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.OptimizationJob, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.OptimizationJob
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRepo) List(dbc dbctx.Context, filter JobFilter) ([]*types.OptimizationJob, int64, error) {
	q := dbc.DB(r.db).Model(&types.OptimizationJob{})
	if filter.RecruitmentID != nil {
		q = q.Where("recruitment_id = ?", *filter.RecruitmentID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	var out []*types.OptimizationJob
	err := q.Omit("problem_data", "index_manifest").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *jobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&types.OptimizationJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowed []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	q := dbc.DB(r.db).Model(&types.OptimizationJob{}).Where("id = ?", id)
	if len(allowed) > 0 {
		q = q.Where("status IN ?", allowed)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) ArchiveByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID, statuses []string, keep ...uuid.UUID) ([]*types.OptimizationJob, error) {
	db := dbc.DB(r.db)
	var prior []*types.OptimizationJob
	q := db.Where("recruitment_id = ? AND status IN ?", recruitmentID, statuses).
		Omit("problem_data", "final_solution")
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	if db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Order("created_at ASC").Find(&prior).Error; err != nil {
		return nil, err
	}
	if len(prior) == 0 {
		return prior, nil
	}
	ids := make([]uuid.UUID, 0, len(prior))
	for _, j := range prior {
		ids = append(ids, j.ID)
	}
	err := db.Model(&types.OptimizationJob{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     types.JobStatusArchived,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, err
	}
	return prior, nil
}

func (r *jobRepo) ListQueuedBefore(dbc dbctx.Context, cutoff time.Time) ([]*types.OptimizationJob, error) {
	var out []*types.OptimizationJob
	err := dbc.DB(r.db).
		Omit("problem_data", "final_solution", "index_manifest").
		Where("status = ? AND created_at < ?", types.JobStatusQueued, cutoff).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
