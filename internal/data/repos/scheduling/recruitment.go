package scheduling

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type RecruitmentRepo interface {
	Create(dbc dbctx.Context, rec *types.Recruitment) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Recruitment, error)
	ListByStatus(dbc dbctx.Context, status string) ([]*types.Recruitment, error)
	ListByOrganization(dbc dbctx.Context, orgID uuid.UUID) ([]*types.Recruitment, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// TransitionStatus moves plan_status to `to` only when the current status is one of
	// `from`. It reports whether a row changed.
	TransitionStatus(dbc dbctx.Context, id uuid.UUID, from []string, to string) (bool, error)
	ArchiveExpired(dbc dbctx.Context, now time.Time) ([]uuid.UUID, error)
}

type recruitmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecruitmentRepo(db *gorm.DB, baseLog *logger.Logger) RecruitmentRepo {
	return &recruitmentRepo{db: db, log: baseLog.With("repo", "RecruitmentRepo")}
}

func (r *recruitmentRepo) Create(dbc dbctx.Context, rec *types.Recruitment) error {
	return dbc.DB(r.db).Create(rec).Error
}

func (r *recruitmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Recruitment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rec types.Recruitment
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&rec).Error; err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *recruitmentRepo) ListByStatus(dbc dbctx.Context, status string) ([]*types.Recruitment, error) {
	var out []*types.Recruitment
	err := dbc.DB(r.db).
		Where("plan_status = ?", status).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *recruitmentRepo) ListByOrganization(dbc dbctx.Context, orgID uuid.UUID) ([]*types.Recruitment, error) {
	var out []*types.Recruitment
	err := dbc.DB(r.db).
		Where("organization_id = ?", orgID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *recruitmentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Recruitment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *recruitmentRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, from []string, to string) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	q := dbc.DB(r.db).Model(&types.Recruitment{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("plan_status IN ?", from)
	}
	res := q.Updates(map[string]interface{}{
		"plan_status": to,
		"updated_at":  time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *recruitmentRepo) ArchiveExpired(dbc dbctx.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&types.Recruitment{}).
			Where("plan_status = ? AND expiration_date IS NOT NULL AND expiration_date < ?", types.PlanStatusActive, now).
			Order("id ASC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&types.Recruitment{}).
			Where("id IN ? AND plan_status = ?", ids, types.PlanStatusActive).
			Updates(map[string]interface{}{
				"plan_status": types.PlanStatusArchived,
				"updated_at":  now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
