package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/evoplanner-backend/internal/domain/ident"
)

const (
	RoleAdmin       = "admin"
	RoleOffice      = "office"
	RoleHost        = "host"
	RoleParticipant = "participant"
)

type Organization struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Organization) TableName() string { return "organization" }

func (o *Organization) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&o.ID)
	return nil
}

type User struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string     `gorm:"column:username;not null;uniqueIndex" json:"username"`
	FirstName      string     `gorm:"column:first_name" json:"first_name"`
	LastName       string     `gorm:"column:last_name" json:"last_name"`
	Role           string     `gorm:"column:role;not null;index" json:"role"`
	OrganizationID *uuid.UUID `gorm:"type:uuid;column:organization_id;index" json:"organization_id,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "app_user" }

func (u *User) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&u.ID)
	return nil
}

// Group is a named set of users. Materialization synthesizes one per meeting with
// Category "meeting".
type Group struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string     `gorm:"column:name;not null" json:"name"`
	Category       string     `gorm:"column:category;not null;index" json:"category"`
	OrganizationID *uuid.UUID `gorm:"type:uuid;column:organization_id;index" json:"organization_id,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
}

func (Group) TableName() string { return "user_group" }

func (g *Group) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&g.ID)
	return nil
}

type GroupMember struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID uuid.UUID `gorm:"type:uuid;column:group_id;not null;uniqueIndex:idx_user_group_member_pair" json:"group_id"`
	UserID  uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_user_group_member_pair;index" json:"user_id"`
}

func (GroupMember) TableName() string { return "user_group_member" }

func (m *GroupMember) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&m.ID)
	return nil
}
