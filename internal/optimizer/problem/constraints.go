package problem

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// Constraints is the solver-facing encoding of one recruitment. Field names and order are
// part of the solver contract.
type Constraints struct {
	TimeslotsDaily int `json:"TimeslotsDaily"`
	DaysInCycle    int `json:"DaysInCycle"`

	NumSubjects int `json:"NumSubjects"`
	NumGroups   int `json:"NumGroups"`
	NumTeachers int `json:"NumTeachers"`
	NumStudents int `json:"NumStudents"`
	NumRooms    int `json:"NumRooms"`
	NumTags     int `json:"NumTags"`

	SubjectsDuration    []int `json:"SubjectsDuration"`
	GroupsPerSubject    []int `json:"GroupsPerSubject"`
	MinStudentsPerGroup []int `json:"MinStudentsPerGroup"`
	GroupsCapacity      []int `json:"GroupsCapacity"`
	RoomsCapacity       []int `json:"RoomsCapacity"`

	GroupsTags [][]int `json:"GroupsTags"`
	RoomsTags  [][]int `json:"RoomsTags"`

	StudentsSubjects [][]int `json:"StudentsSubjects"`
	TeachersGroups   [][]int `json:"TeachersGroups"`

	RoomsUnavailabilityTimeslots    [][]int `json:"RoomsUnavailabilityTimeslots"`
	StudentsUnavailabilityTimeslots [][]int `json:"StudentsUnavailabilityTimeslots"`
	TeachersUnavailabilityTimeslots [][]int `json:"TeachersUnavailabilityTimeslots"`

	StudentWeights []int `json:"StudentWeights"`
	TeacherWeights []int `json:"TeacherWeights"`
}

// IndexManifest maps every array position of an encoding back to the entity it stands for.
type IndexManifest struct {
	Version         string      `json:"version"`
	SubjectIDs      []uuid.UUID `json:"subject_ids"`
	SubjectGroupIDs []uuid.UUID `json:"subject_group_ids"`
	RoomIDs         []uuid.UUID `json:"room_ids"`
	Tags            []string    `json:"tags"`
	StudentIDs      []uuid.UUID `json:"student_ids"`
	TeacherIDs      []uuid.UUID `json:"teacher_ids"`
}

// ComputeVersion hashes the ordered id lists so two manifests with the same ordering share
// a version.
func (m *IndexManifest) ComputeVersion() string {
	h := sha256.New()
	write := func(label string, ids []uuid.UUID) {
		_, _ = h.Write([]byte(label))
		for _, id := range ids {
			_, _ = h.Write(id[:])
		}
	}
	write("subjects", m.SubjectIDs)
	write("groups", m.SubjectGroupIDs)
	write("rooms", m.RoomIDs)
	_, _ = h.Write([]byte("tags"))
	for _, t := range m.Tags {
		_, _ = h.Write([]byte(t))
		_, _ = h.Write([]byte{0})
	}
	write("students", m.StudentIDs)
	write("teachers", m.TeacherIDs)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Encoded is the output of one encoding pass.
type Encoded struct {
	Constraints Constraints
	Manifest    IndexManifest
}

// ProblemData is the payload the solver receives.
type ProblemData struct {
	Constraints json.RawMessage `json:"constraints"`
	Preferences Preferences     `json:"preferences"`
}

func ParseManifest(raw []byte) (*IndexManifest, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m IndexManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseConstraints decodes a stored constraints blob.
func ParseConstraints(raw []byte) (*Constraints, error) {
	var c Constraints
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
