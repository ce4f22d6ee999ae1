package problem

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// JobMessage is pushed onto the solver queue. The solver keys its progress records by
// recruitment_id, so that field carries the job id.
type JobMessage struct {
	RecruitmentID    string          `json:"recruitment_id"`
	JobID            string          `json:"job_id"`
	ProblemData      json.RawMessage `json:"problem_data"`
	MaxExecutionTime int             `json:"max_execution_time"`
}

func NewJobMessage(jobID uuid.UUID, problemData json.RawMessage, maxExecutionTime int) JobMessage {
	return JobMessage{
		RecruitmentID:    jobID.String(),
		JobID:            jobID.String(),
		ProblemData:      problemData,
		MaxExecutionTime: maxExecutionTime,
	}
}

// CompletionSentinel is the iteration value that marks a finished solver run.
const CompletionSentinel = -1

// Notification is the pointer published on the progress channel.
type Notification struct {
	JobID     uuid.UUID
	Iteration int
}

func ParseNotification(raw []byte) (*Notification, error) {
	var wire struct {
		JobID     string `json:"job_id"`
		Iteration *int   `json:"iteration"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	if wire.JobID == "" || wire.Iteration == nil {
		return nil, errors.New("notification requires job_id and iteration")
	}
	id, err := uuid.Parse(wire.JobID)
	if err != nil {
		return nil, err
	}
	return &Notification{JobID: id, Iteration: *wire.Iteration}, nil
}

// ProgressPayload is what the solver stores under the progress key.
type ProgressPayload struct {
	BestSolution json.RawMessage `json:"best_solution"`
}

func ParseProgressPayload(raw []byte) (*ProgressPayload, error) {
	var p ProgressPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if len(p.BestSolution) == 0 || string(p.BestSolution) == "null" {
		return nil, errors.New("progress payload has no best_solution")
	}
	return &p, nil
}

// Fitness extracts the fitness score from a best_solution blob, if present.
func Fitness(bestSolution []byte) *float64 {
	var probe struct {
		Fitness *float64 `json:"fitness"`
	}
	if err := json.Unmarshal(bestSolution, &probe); err != nil {
		return nil
	}
	return probe.Fitness
}
