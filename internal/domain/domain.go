package domain

import (
	"github.com/yungbote/evoplanner-backend/internal/domain/optimizer"
	"github.com/yungbote/evoplanner-backend/internal/domain/scheduling"
	"github.com/yungbote/evoplanner-backend/internal/domain/user"
)

const (
	RoleAdmin       = user.RoleAdmin
	RoleOffice      = user.RoleOffice
	RoleHost        = user.RoleHost
	RoleParticipant = user.RoleParticipant

	PlanStatusDraft      = scheduling.PlanStatusDraft
	PlanStatusOptimizing = scheduling.PlanStatusOptimizing
	PlanStatusActive     = scheduling.PlanStatusActive
	PlanStatusArchived   = scheduling.PlanStatusArchived

	CycleWeekly   = scheduling.CycleWeekly
	CycleBiweekly = scheduling.CycleBiweekly
	CycleMonthly  = scheduling.CycleMonthly

	JobStatusQueued    = optimizer.JobStatusQueued
	JobStatusRunning   = optimizer.JobStatusRunning
	JobStatusCompleted = optimizer.JobStatusCompleted
	JobStatusFailed    = optimizer.JobStatusFailed
	JobStatusCancelled = optimizer.JobStatusCancelled
	JobStatusArchived  = optimizer.JobStatusArchived

	MaterializationPending   = optimizer.MaterializationPending
	MaterializationSucceeded = optimizer.MaterializationSucceeded
	MaterializationFailed    = optimizer.MaterializationFailed

	// MeetingGroupCategory tags groups synthesized by materialization.
	MeetingGroupCategory = "meeting"
)

type (
	Organization = user.Organization
	User         = user.User
	Group        = user.Group
	GroupMember  = user.GroupMember

	Recruitment            = scheduling.Recruitment
	RecruitmentParticipant = scheduling.RecruitmentParticipant
	Subject                = scheduling.Subject
	SubjectGroup           = scheduling.SubjectGroup
	SubjectRegistration    = scheduling.SubjectRegistration
	Room                   = scheduling.Room
	Tag                    = scheduling.Tag
	RoomTag                = scheduling.RoomTag
	SubjectTag             = scheduling.SubjectTag
	Meeting                = scheduling.Meeting
	UserPreferences        = scheduling.UserPreferences
	Constraints            = scheduling.Constraints

	OptimizationJob      = optimizer.OptimizationJob
	OptimizationProgress = optimizer.OptimizationProgress
)

var (
	WindowsOverlap = scheduling.WindowsOverlap
	JobStatuses    = optimizer.JobStatuses
)
