package scheduling

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type ConstraintsRepo interface {
	GetByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) (*types.Constraints, error)
	// Upsert replaces the recruitment's single constraints row.
	Upsert(dbc dbctx.Context, c *types.Constraints) error
}

type constraintsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConstraintsRepo(db *gorm.DB, baseLog *logger.Logger) ConstraintsRepo {
	return &constraintsRepo{db: db, log: baseLog.With("repo", "ConstraintsRepo")}
}

func (r *constraintsRepo) GetByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) (*types.Constraints, error) {
	var c types.Constraints
	if err := dbc.DB(r.db).Where("recruitment_id = ?", recruitmentID).Limit(1).Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *constraintsRepo) Upsert(dbc dbctx.Context, c *types.Constraints) error {
	c.UpdatedAt = time.Now().UTC()
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recruitment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"constraints_data", "index_manifest", "ordering_version", "updated_at"}),
	}).Create(c).Error
}
