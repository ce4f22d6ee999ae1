package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/evoplanner-backend/internal/data/repos"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type Repos struct {
	Recruitment          repos.RecruitmentRepo
	Participant          repos.ParticipantRepo
	Subject              repos.SubjectRepo
	Room                 repos.RoomRepo
	Meeting              repos.MeetingRepo
	Group                repos.GroupRepo
	Preferences          repos.PreferencesRepo
	Constraints          repos.ConstraintsRepo
	OptimizationJob      repos.OptimizationJobRepo
	OptimizationProgress repos.OptimizationProgressRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Recruitment:          repos.NewRecruitmentRepo(db, log),
		Participant:          repos.NewParticipantRepo(db, log),
		Subject:              repos.NewSubjectRepo(db, log),
		Room:                 repos.NewRoomRepo(db, log),
		Meeting:              repos.NewMeetingRepo(db, log),
		Group:                repos.NewGroupRepo(db, log),
		Preferences:          repos.NewPreferencesRepo(db, log),
		Constraints:          repos.NewConstraintsRepo(db, log),
		OptimizationJob:      repos.NewOptimizationJobRepo(db, log),
		OptimizationProgress: repos.NewOptimizationProgressRepo(db, log),
	}
}
