package scheduling

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/evoplanner-backend/internal/domain/ident"
)

const (
	PlanStatusDraft      = "draft"
	PlanStatusOptimizing = "optimizing"
	PlanStatusActive     = "active"
	PlanStatusArchived   = "archived"
)

const (
	CycleWeekly   = "weekly"
	CycleBiweekly = "biweekly"
	CycleMonthly  = "monthly"
)

// Recruitment is one optimization cycle for an organization.
type Recruitment struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"column:name;not null" json:"name"`
	OrganizationID uuid.UUID `gorm:"type:uuid;column:organization_id;not null;index" json:"organization_id"`

	// Minutes after midnight; nil falls back to the default planning day.
	DayStartMinute *int `gorm:"column:day_start_minute" json:"day_start_minute,omitempty"`
	DayEndMinute   *int `gorm:"column:day_end_minute" json:"day_end_minute,omitempty"`

	HostPrefsStartDate    *time.Time `gorm:"column:host_prefs_start_date" json:"host_prefs_start_date,omitempty"`
	UserPrefsStartDate    *time.Time `gorm:"column:user_prefs_start_date" json:"user_prefs_start_date,omitempty"`
	OptimizationStartDate *time.Time `gorm:"column:optimization_start_date;index" json:"optimization_start_date,omitempty"`
	OptimizationEndDate   *time.Time `gorm:"column:optimization_end_date" json:"optimization_end_date,omitempty"`
	ExpirationDate        *time.Time `gorm:"column:expiration_date;index" json:"expiration_date,omitempty"`

	PreferenceThreshold   float64 `gorm:"column:preference_threshold;not null;default:0.5" json:"preference_threshold"`
	UsersSubmittedCount   int     `gorm:"column:users_submitted_count;not null;default:0" json:"users_submitted_count"`
	CycleType             string  `gorm:"column:cycle_type;not null;default:weekly" json:"cycle_type"`
	PlanStatus            string  `gorm:"column:plan_status;not null;default:draft;index" json:"plan_status"`
	MaxRoundExecutionTime int     `gorm:"column:max_round_execution_time;not null;default:300" json:"max_round_execution_time"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Recruitment) TableName() string { return "recruitment" }

func (r *Recruitment) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&r.ID)
	if r.PlanStatus == "" {
		r.PlanStatus = PlanStatusDraft
	}
	if r.CycleType == "" {
		r.CycleType = CycleWeekly
	}
	return nil
}

// ActiveWindow is the period the recruitment's schedule is live. Open ends are unbounded.
func (r *Recruitment) ActiveWindow() (start, end *time.Time) {
	return r.OptimizationStartDate, r.ExpirationDate
}

// WindowsOverlap reports whether two recruitments' active windows intersect.
func WindowsOverlap(a, b *Recruitment) bool {
	aStart, aEnd := a.ActiveWindow()
	bStart, bEnd := b.ActiveWindow()
	if aStart != nil && bEnd != nil && bEnd.Before(*aStart) {
		return false
	}
	if bStart != nil && aEnd != nil && aEnd.Before(*bStart) {
		return false
	}
	return true
}

// RecruitmentParticipant links a user to a recruitment. SortKey fixes the user's position
// in the encoded student/teacher vectors.
type RecruitmentParticipant struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RecruitmentID uuid.UUID `gorm:"type:uuid;column:recruitment_id;not null;uniqueIndex:idx_recruitment_participant_pair" json:"recruitment_id"`
	UserID        uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_recruitment_participant_pair;index" json:"user_id"`
	SortKey       int64     `gorm:"column:sort_key;not null;index" json:"sort_key"`
	Weight        int       `gorm:"column:weight;not null;default:1" json:"weight"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (RecruitmentParticipant) TableName() string { return "recruitment_participant" }

func (p *RecruitmentParticipant) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&p.ID)
	if p.SortKey == 0 {
		p.SortKey = ident.NextSortKey()
	}
	if p.Weight == 0 {
		p.Weight = 1
	}
	return nil
}
