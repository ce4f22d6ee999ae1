package scheduling

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/evoplanner-backend/internal/domain/ident"
)

type Subject struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RecruitmentID  uuid.UUID `gorm:"type:uuid;column:recruitment_id;not null;index" json:"recruitment_id"`
	Name           string    `gorm:"column:name;not null" json:"name"`
	DurationBlocks int       `gorm:"column:duration_blocks;not null;default:4" json:"duration_blocks"`
	Capacity       int       `gorm:"column:capacity;not null;default:0" json:"capacity"`
	MinStudents    int       `gorm:"column:min_students;not null;default:0" json:"min_students"`
	SortKey        int64     `gorm:"column:sort_key;not null;index" json:"sort_key"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (Subject) TableName() string { return "subject" }

func (s *Subject) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&s.ID)
	if s.SortKey == 0 {
		s.SortKey = ident.NextSortKey()
	}
	return nil
}

// SubjectGroup is a (subject, host) pair: the unit the solver places in time and space.
type SubjectGroup struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RecruitmentID uuid.UUID `gorm:"type:uuid;column:recruitment_id;not null;index" json:"recruitment_id"`
	SubjectID     uuid.UUID `gorm:"type:uuid;column:subject_id;not null;index" json:"subject_id"`
	HostUserID    uuid.UUID `gorm:"type:uuid;column:host_user_id;not null;index" json:"host_user_id"`
	SortKey       int64     `gorm:"column:sort_key;not null;index" json:"sort_key"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (SubjectGroup) TableName() string { return "subject_group" }

func (g *SubjectGroup) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&g.ID)
	if g.SortKey == 0 {
		g.SortKey = ident.NextSortKey()
	}
	return nil
}

// SubjectRegistration records that a student must attend a subject.
type SubjectRegistration struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_subject_registration_pair" json:"user_id"`
	SubjectID uuid.UUID `gorm:"type:uuid;column:subject_id;not null;uniqueIndex:idx_subject_registration_pair;index" json:"subject_id"`
}

func (SubjectRegistration) TableName() string { return "subject_registration" }

func (r *SubjectRegistration) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&r.ID)
	return nil
}
