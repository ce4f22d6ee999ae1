package scheduling

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/evoplanner-backend/internal/domain/ident"
)

// Meeting is one generated slot. Meetings are owned by their recruitment and are replaced
// wholesale every time a solution is materialized.
type Meeting struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RecruitmentID     uuid.UUID  `gorm:"type:uuid;column:recruitment_id;not null;index" json:"recruitment_id"`
	SubjectGroupID    uuid.UUID  `gorm:"type:uuid;column:subject_group_id;not null;index" json:"subject_group_id"`
	GroupID           uuid.UUID  `gorm:"type:uuid;column:group_id;not null;index" json:"group_id"`
	RoomID            uuid.UUID  `gorm:"type:uuid;column:room_id;not null;index" json:"room_id"`
	RequiredTagID     *uuid.UUID `gorm:"type:uuid;column:required_tag_id" json:"required_tag_id,omitempty"`
	OptimizationJobID *uuid.UUID `gorm:"type:uuid;column:optimization_job_id;index" json:"optimization_job_id,omitempty"`
	StartTimeslot     int        `gorm:"column:start_timeslot;not null" json:"start_timeslot"`
	DayOfWeek         int        `gorm:"column:day_of_week;not null" json:"day_of_week"`
	DayOfCycle        int        `gorm:"column:day_of_cycle;not null" json:"day_of_cycle"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
}

func (Meeting) TableName() string { return "meeting" }

func (m *Meeting) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&m.ID)
	return nil
}

type UserPreferences struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_user_preferences_pair" json:"user_id"`
	RecruitmentID   uuid.UUID      `gorm:"type:uuid;column:recruitment_id;not null;uniqueIndex:idx_user_preferences_pair;index" json:"recruitment_id"`
	PreferencesData datatypes.JSON `gorm:"column:preferences_data;type:jsonb" json:"preferences_data"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (UserPreferences) TableName() string { return "user_preferences" }

func (p *UserPreferences) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&p.ID)
	return nil
}

// Constraints is the encoded problem for one recruitment plus the index manifest that maps
// every array position back to an entity id.
type Constraints struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RecruitmentID   uuid.UUID      `gorm:"type:uuid;column:recruitment_id;not null;uniqueIndex" json:"recruitment_id"`
	ConstraintsData datatypes.JSON `gorm:"column:constraints_data;type:jsonb" json:"constraints_data"`
	IndexManifest   datatypes.JSON `gorm:"column:index_manifest;type:jsonb" json:"index_manifest"`
	OrderingVersion string         `gorm:"column:ordering_version;not null" json:"ordering_version"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (Constraints) TableName() string { return "recruitment_constraints" }

func (c *Constraints) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&c.ID)
	return nil
}
