package optimizer

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type ProgressRepo interface {
	// CreateIfAbsent inserts the snapshot unless (job_id, iteration) already exists. It
	// reports whether a row was written.
	CreateIfAbsent(dbc dbctx.Context, p *types.OptimizationProgress) (bool, error)
	ListByJob(dbc dbctx.Context, jobID uuid.UUID, limit, offset int) ([]*types.OptimizationProgress, int64, error)
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return &progressRepo{db: db, log: baseLog.With("repo", "OptimizationProgressRepo")}
}

func (r *progressRepo) CreateIfAbsent(dbc dbctx.Context, p *types.OptimizationProgress) (bool, error) {
	res := dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "iteration"}},
		DoNothing: true,
	}).Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *progressRepo) ListByJob(dbc dbctx.Context, jobID uuid.UUID, limit, offset int) ([]*types.OptimizationProgress, int64, error) {
	q := dbc.DB(r.db).Model(&types.OptimizationProgress{}).Where("job_id = ?", jobID).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.OptimizationProgress
	err := q.Order("iteration DESC").Limit(limit).Offset(offset).Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
