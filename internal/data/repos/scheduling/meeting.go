package scheduling

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/dbctx"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

// BusyMeetingRow is a meeting joined with what occupancy needs: its host and duration.
type BusyMeetingRow struct {
	MeetingID      uuid.UUID
	RecruitmentID  uuid.UUID
	RoomID         uuid.UUID
	GroupID        uuid.UUID
	HostUserID     uuid.UUID
	StartTimeslot  int
	DayOfCycle     int
	DurationBlocks int
}

type MeetingRepo interface {
	Create(dbc dbctx.Context, meetings []*types.Meeting) error
	ListByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) ([]*types.Meeting, error)
	ListBusyByRecruitments(dbc dbctx.Context, recruitmentIDs []uuid.UUID) ([]BusyMeetingRow, error)
	// DeleteByRecruitment removes every meeting of the recruitment and returns the ids of
	// the participant groups they referenced.
	DeleteByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) ([]uuid.UUID, error)
}

type meetingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMeetingRepo(db *gorm.DB, baseLog *logger.Logger) MeetingRepo {
	return &meetingRepo{db: db, log: baseLog.With("repo", "MeetingRepo")}
}

func (r *meetingRepo) Create(dbc dbctx.Context, meetings []*types.Meeting) error {
	if len(meetings) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&meetings).Error
}

func (r *meetingRepo) ListByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) ([]*types.Meeting, error) {
	var out []*types.Meeting
	err := dbc.DB(r.db).
		Where("recruitment_id = ?", recruitmentID).
		Order("start_timeslot ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *meetingRepo) ListBusyByRecruitments(dbc dbctx.Context, recruitmentIDs []uuid.UUID) ([]BusyMeetingRow, error) {
	var rows []BusyMeetingRow
	if len(recruitmentIDs) == 0 {
		return rows, nil
	}
	err := dbc.DB(r.db).
		Table("meeting AS m").
		Select(`m.id AS meeting_id, m.recruitment_id AS recruitment_id, m.room_id AS room_id,
			m.group_id AS group_id, sg.host_user_id AS host_user_id, m.start_timeslot AS start_timeslot,
			m.day_of_cycle AS day_of_cycle, s.duration_blocks AS duration_blocks`).
		Joins("JOIN subject_group sg ON sg.id = m.subject_group_id").
		Joins("JOIN subject s ON s.id = sg.subject_id").
		Where("m.recruitment_id IN ?", recruitmentIDs).
		Order("m.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *meetingRepo) DeleteByRecruitment(dbc dbctx.Context, recruitmentID uuid.UUID) ([]uuid.UUID, error) {
	db := dbc.DB(r.db)
	var groupIDs []uuid.UUID
	if err := db.Model(&types.Meeting{}).
		Where("recruitment_id = ?", recruitmentID).
		Distinct().
		Pluck("group_id", &groupIDs).Error; err != nil {
		return nil, err
	}
	if err := db.Where("recruitment_id = ?", recruitmentID).Delete(&types.Meeting{}).Error; err != nil {
		return nil, err
	}
	return groupIDs, nil
}
