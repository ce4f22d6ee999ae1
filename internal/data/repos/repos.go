package repos

import (
	"github.com/yungbote/evoplanner-backend/internal/data/repos/optimizer"
	"github.com/yungbote/evoplanner-backend/internal/data/repos/scheduling"
	"github.com/yungbote/evoplanner-backend/internal/data/repos/user"
)

type GroupRepo = user.GroupRepo

type RecruitmentRepo = scheduling.RecruitmentRepo
type ParticipantRepo = scheduling.ParticipantRepo
type ParticipantRow = scheduling.ParticipantRow
type SubjectRepo = scheduling.SubjectRepo
type RoomRepo = scheduling.RoomRepo
type MeetingRepo = scheduling.MeetingRepo
type BusyMeetingRow = scheduling.BusyMeetingRow
type PreferencesRepo = scheduling.PreferencesRepo
type ConstraintsRepo = scheduling.ConstraintsRepo

type OptimizationJobRepo = optimizer.JobRepo
type OptimizationJobFilter = optimizer.JobFilter
type OptimizationProgressRepo = optimizer.ProgressRepo

var (
	NewGroupRepo = user.NewGroupRepo

	NewRecruitmentRepo = scheduling.NewRecruitmentRepo
	NewParticipantRepo = scheduling.NewParticipantRepo
	NewSubjectRepo     = scheduling.NewSubjectRepo
	NewRoomRepo        = scheduling.NewRoomRepo
	NewMeetingRepo     = scheduling.NewMeetingRepo
	NewPreferencesRepo = scheduling.NewPreferencesRepo
	NewConstraintsRepo = scheduling.NewConstraintsRepo

	NewOptimizationJobRepo      = optimizer.NewJobRepo
	NewOptimizationProgressRepo = optimizer.NewProgressRepo
)
