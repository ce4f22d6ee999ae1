package scheduling

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

// ParticipantRow is a recruitment participant joined with the user's role.
type ParticipantRow struct {
	UserID  uuid.UUID
	Role    string
	Weight  int
	SortKey int64
}

type ParticipantRepo interface {
	Create(dbc dbctx.Context, p *types.RecruitmentParticipant) error
	// ListByRecruitment returns participants in encoding order: sort_key, then user id.
	ListByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) ([]ParticipantRow, error)
	// CountEligible counts participants whose role lets them submit preferences.
	CountEligible(dbc dbctx.Context, recruitmentID uuid.UUID) (int64, error)
	ListRegistrations(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.SubjectRegistration, error)
	CreateRegistration(dbc dbctx.Context, reg *types.SubjectRegistration) error
}

type participantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewParticipantRepo(db *gorm.DB, baseLog *logger.Logger) ParticipantRepo {
	return &participantRepo{db: db, log: baseLog.With("repo", "ParticipantRepo")}
}

func (r *participantRepo) Create(dbc dbctx.Context, p *types.RecruitmentParticipant) error {
	return dbc.DB(r.db).Create(p).Error
}

func (r *participantRepo) ListByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) ([]ParticipantRow, error) {
	var rows []ParticipantRow
	err := dbc.DB(r.db).
		Table("recruitment_participant AS rp").
		Select("rp.user_id AS user_id, u.role AS role, rp.weight AS weight, rp.sort_key AS sort_key").
		Joins("JOIN app_user u ON u.id = rp.user_id").
		Where("rp.recruitment_id = ?", recruitmentID).
		Order("rp.sort_key ASC, rp.user_id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *participantRepo) CountEligible(dbc dbctx.Context, recruitmentID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).
		Table("recruitment_participant AS rp").
		Joins("JOIN app_user u ON u.id = rp.user_id").
		Where("rp.recruitment_id = ? AND u.role IN ?", recruitmentID, []string{types.RoleParticipant, types.RoleHost}).
		Count(&n).Error
	return n, err
}

func (r *participantRepo) ListRegistrations(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.SubjectRegistration, error) {
	var out []*types.SubjectRegistration
	if len(userIDs) == 0 {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("user_id IN ?", userIDs).
		Order("user_id ASC, subject_id ASC").
		Find(&out).Error
	return out, err
}

func (r *participantRepo) CreateRegistration(dbc dbctx.Context, reg *types.SubjectRegistration) error {
	return dbc.DB(r.db).Create(reg).Error
}
