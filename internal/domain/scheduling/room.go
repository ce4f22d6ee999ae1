package scheduling

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/evoplanner-backend/internal/domain/ident"
)

type Room struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;column:organization_id;not null;index" json:"organization_id"`
	BuildingName   string    `gorm:"column:building_name" json:"building_name"`
	RoomNumber     string    `gorm:"column:room_number" json:"room_number"`
	Capacity       int       `gorm:"column:capacity;not null;default:0" json:"capacity"`
	SortKey        int64     `gorm:"column:sort_key;not null;index" json:"sort_key"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (Room) TableName() string { return "room" }

func (r *Room) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&r.ID)
	if r.SortKey == 0 {
		r.SortKey = ident.NextSortKey()
	}
	return nil
}

type Tag struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
}

func (Tag) TableName() string { return "tag" }

func (t *Tag) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&t.ID)
	return nil
}

type RoomTag struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID uuid.UUID `gorm:"type:uuid;column:room_id;not null;uniqueIndex:idx_room_tag_pair" json:"room_id"`
	TagID  uuid.UUID `gorm:"type:uuid;column:tag_id;not null;uniqueIndex:idx_room_tag_pair" json:"tag_id"`
}

func (RoomTag) TableName() string { return "room_tag" }

func (t *RoomTag) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&t.ID)
	return nil
}

type SubjectTag struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectID uuid.UUID `gorm:"type:uuid;column:subject_id;not null;uniqueIndex:idx_subject_tag_pair" json:"subject_id"`
	TagID     uuid.UUID `gorm:"type:uuid;column:tag_id;not null;uniqueIndex:idx_subject_tag_pair" json:"tag_id"`
}

func (SubjectTag) TableName() string { return "subject_tag" }

func (t *SubjectTag) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&t.ID)
	return nil
}
