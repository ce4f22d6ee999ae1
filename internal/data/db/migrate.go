package db

import (
	"fmt"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	err := db.AutoMigrate(

		// =========================
		// Identity
		// =========================
		&types.Organization{},
		&types.User{},
		&types.Group{},
		&types.GroupMember{},

		// =========================
		// Recruitment inputs
		// =========================
		&types.Recruitment{},
		&types.RecruitmentParticipant{},
		&types.Subject{},
		&types.SubjectGroup{},
		&types.SubjectRegistration{},
		&types.Room{},
		&types.Tag{},
		&types.RoomTag{},
		&types.SubjectTag{},
		&types.UserPreferences{},

		// =========================
		// Encoded problem + solver jobs
		// =========================
		&types.Constraints{},
		&types.OptimizationJob{},
		&types.OptimizationProgress{},

		// =========================
		// Materialized schedule
		// =========================
		&types.Meeting{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
