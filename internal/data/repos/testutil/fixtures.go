package testutil

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
)

func SeedOrganization(tb testing.TB, tx *gorm.DB, name string) *types.Organization {
	tb.Helper()
	org := &types.Organization{Name: name}
	if err := tx.Create(org).Error; err != nil {
		tb.Fatalf("seed organization: %v", err)
	}
	return org
}

func SeedRecruitment(tb testing.TB, tx *gorm.DB, orgID uuid.UUID, mutate func(r *types.Recruitment)) *types.Recruitment {
	tb.Helper()
	start, end := 8*60, 13*60
	rec := &types.Recruitment{
		Name:                  "rec-" + uuid.NewString()[:8],
		OrganizationID:        orgID,
		DayStartMinute:        &start,
		DayEndMinute:          &end,
		CycleType:             types.CycleWeekly,
		PlanStatus:            types.PlanStatusDraft,
		PreferenceThreshold:   0.5,
		MaxRoundExecutionTime: 120,
	}
	if mutate != nil {
		mutate(rec)
	}
	if err := tx.Create(rec).Error; err != nil {
		tb.Fatalf("seed recruitment: %v", err)
	}
	return rec
}

// SeedUser creates a user in the organization and links it to the recruitment when
// recruitmentID is non-nil.
func SeedUser(tb testing.TB, tx *gorm.DB, orgID uuid.UUID, role string, recruitmentID *uuid.UUID) *types.User {
	tb.Helper()
	u := &types.User{
		Username:       fmt.Sprintf("%s-%s", role, uuid.NewString()[:8]),
		Role:           role,
		OrganizationID: PtrUUID(orgID),
	}
	if err := tx.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	if recruitmentID != nil {
		link := &types.RecruitmentParticipant{RecruitmentID: *recruitmentID, UserID: u.ID}
		if err := tx.Create(link).Error; err != nil {
			tb.Fatalf("seed participant: %v", err)
		}
	}
	return u
}

func SeedSubject(tb testing.TB, tx *gorm.DB, recruitmentID uuid.UUID, name string, duration, capacity, minStudents int) *types.Subject {
	tb.Helper()
	s := &types.Subject{
		RecruitmentID:  recruitmentID,
		Name:           name,
		DurationBlocks: duration,
		Capacity:       capacity,
		MinStudents:    minStudents,
	}
	if err := tx.Create(s).Error; err != nil {
		tb.Fatalf("seed subject: %v", err)
	}
	return s
}

func SeedSubjectGroup(tb testing.TB, tx *gorm.DB, recruitmentID, subjectID, hostID uuid.UUID) *types.SubjectGroup {
	tb.Helper()
	g := &types.SubjectGroup{RecruitmentID: recruitmentID, SubjectID: subjectID, HostUserID: hostID}
	if err := tx.Create(g).Error; err != nil {
		tb.Fatalf("seed subject group: %v", err)
	}
	return g
}

func SeedRoom(tb testing.TB, tx *gorm.DB, orgID uuid.UUID, number string, capacity int) *types.Room {
	tb.Helper()
	r := &types.Room{OrganizationID: orgID, BuildingName: "A", RoomNumber: number, Capacity: capacity}
	if err := tx.Create(r).Error; err != nil {
		tb.Fatalf("seed room: %v", err)
	}
	return r
}

func SeedTag(tb testing.TB, tx *gorm.DB, name string) *types.Tag {
	tb.Helper()
	tag := &types.Tag{Name: name}
	if err := tx.Create(tag).Error; err != nil {
		tb.Fatalf("seed tag: %v", err)
	}
	return tag
}

func TagRoom(tb testing.TB, tx *gorm.DB, roomID, tagID uuid.UUID) {
	tb.Helper()
	if err := tx.Create(&types.RoomTag{RoomID: roomID, TagID: tagID}).Error; err != nil {
		tb.Fatalf("tag room: %v", err)
	}
}

func TagSubject(tb testing.TB, tx *gorm.DB, subjectID, tagID uuid.UUID) {
	tb.Helper()
	if err := tx.Create(&types.SubjectTag{SubjectID: subjectID, TagID: tagID}).Error; err != nil {
		tb.Fatalf("tag subject: %v", err)
	}
}

func Register(tb testing.TB, tx *gorm.DB, userID, subjectID uuid.UUID) {
	tb.Helper()
	if err := tx.Create(&types.SubjectRegistration{UserID: userID, SubjectID: subjectID}).Error; err != nil {
		tb.Fatalf("register: %v", err)
	}
}

func SeedPreferences(tb testing.TB, tx *gorm.DB, userID, recruitmentID uuid.UUID, payload map[string]interface{}) {
	tb.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		tb.Fatalf("marshal preferences: %v", err)
	}
	row := &types.UserPreferences{UserID: userID, RecruitmentID: recruitmentID, PreferencesData: datatypes.JSON(raw)}
	if err := tx.Create(row).Error; err != nil {
		tb.Fatalf("seed preferences: %v", err)
	}
}

func SeedJob(tb testing.TB, tx *gorm.DB, recruitmentID uuid.UUID, status string) *types.OptimizationJob {
	tb.Helper()
	job := &types.OptimizationJob{
		RecruitmentID:    recruitmentID,
		Status:           status,
		MaxExecutionTime: 60,
		ProblemData:      datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.Create(job).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return job
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

func PtrInt(v int) *int { return &v }
