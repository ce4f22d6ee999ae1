package optimizer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/evoplanner-backend/internal/domain/ident"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
	JobStatusArchived  = "archived"
)

// JobStatuses lists every job status in lifecycle order.
var JobStatuses = []string{
	JobStatusQueued, JobStatusRunning, JobStatusCompleted,
	JobStatusFailed, JobStatusCancelled, JobStatusArchived,
}

const (
	MaterializationPending   = "pending"
	MaterializationSucceeded = "succeeded"
	MaterializationFailed    = "failed"
)

// OptimizationJob is one solver invocation. Status tracks the solver; MaterializationStatus
// tracks whether its solution became the live schedule.
type OptimizationJob struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RecruitmentID    uuid.UUID      `gorm:"type:uuid;column:recruitment_id;not null;index" json:"recruitment_id"`
	Status           string         `gorm:"column:status;not null;index" json:"status"`
	MaxExecutionTime int            `gorm:"column:max_execution_time;not null" json:"max_execution_time"`
	ProblemData      datatypes.JSON `gorm:"column:problem_data;type:jsonb" json:"problem_data,omitempty"`
	IndexManifest    datatypes.JSON `gorm:"column:index_manifest;type:jsonb" json:"index_manifest,omitempty"`
	CurrentIteration int            `gorm:"column:current_iteration;not null;default:0" json:"current_iteration"`
	FinalSolution    datatypes.JSON `gorm:"column:final_solution;type:jsonb" json:"final_solution,omitempty"`
	ErrorMessage     string         `gorm:"column:error_message" json:"error_message,omitempty"`

	MaterializationStatus string     `gorm:"column:materialization_status;index" json:"materialization_status,omitempty"`
	MaterializationError  string     `gorm:"column:materialization_error" json:"materialization_error,omitempty"`
	MaterializedAt        *time.Time `gorm:"column:materialized_at" json:"materialized_at,omitempty"`

	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (OptimizationJob) TableName() string { return "optimization_job" }

func (j *OptimizationJob) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&j.ID)
	if j.Status == "" {
		j.Status = JobStatusQueued
	}
	return nil
}

// IsCancellable reports whether a cancel request may still affect the solver.
func (j *OptimizationJob) IsCancellable() bool {
	return j.Status == JobStatusQueued || j.Status == JobStatusRunning
}

// IsDetached reports whether the job was cancelled or superseded. Progress for a detached
// job is still recorded but never completes the job or touches the schedule.
func (j *OptimizationJob) IsDetached() bool {
	return j.Status == JobStatusCancelled || j.Status == JobStatusArchived
}

// OptimizationProgress is an immutable snapshot of the best solution at one iteration.
type OptimizationProgress struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobID        uuid.UUID      `gorm:"type:uuid;column:job_id;not null;uniqueIndex:idx_optimization_progress_iteration" json:"job_id"`
	Iteration    int            `gorm:"column:iteration;not null;uniqueIndex:idx_optimization_progress_iteration" json:"iteration"`
	Fitness      *float64       `gorm:"column:fitness" json:"fitness,omitempty"`
	BestSolution datatypes.JSON `gorm:"column:best_solution;type:jsonb" json:"best_solution"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
}

func (OptimizationProgress) TableName() string { return "optimization_progress" }

func (p *OptimizationProgress) BeforeCreate(*gorm.DB) error {
	ident.EnsureID(&p.ID)
	return nil
}
