package problem

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Solution is the solver's best assignment. ByGroup[i] is [timeslot, roomIndex] for subject
// group i; ByStudent[j] lists the subject group indices student j attends.
type Solution struct {
	Fitness   *float64 `json:"fitness,omitempty"`
	ByGroup   [][]int  `json:"by_group"`
	ByStudent [][]int  `json:"by_student"`
}

func ParseSolution(raw []byte) (*Solution, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("empty solution")
	}
	var s Solution
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s.ByGroup == nil || s.ByStudent == nil {
		return nil, errors.New("solution lacks by_group or by_student")
	}
	return &s, nil
}

// ShapeError reports a solution whose vectors do not match the encoding it answers.
type ShapeError struct {
	Field string
	Want  int
	Got   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s length mismatch: want=%d got=%d", e.Field, e.Want, e.Got)
}

// CheckShape verifies the solution against the manifest it will be decoded with.
func (s *Solution) CheckShape(m *IndexManifest) error {
	if len(s.ByGroup) != len(m.SubjectGroupIDs) {
		return &ShapeError{Field: "by_group", Want: len(m.SubjectGroupIDs), Got: len(s.ByGroup)}
	}
	if len(s.ByStudent) != len(m.StudentIDs) {
		return &ShapeError{Field: "by_student", Want: len(m.StudentIDs), Got: len(s.ByStudent)}
	}
	return nil
}

// Placement is one decoded by_group entry.
type Placement struct {
	GroupIndex int
	Timeslot   int
	RoomIndex  int
	DayOfCycle int
	DayOfWeek  int
	Students   []int
}

// Grid bounds where a placement may land.
type Grid struct {
	TimeslotsDaily int
	DaysInCycle    int
	// GroupDurations holds each subject group's length in timeslots. Zero disables the
	// end-of-day check for that group.
	GroupDurations []int
}

// Grid derives the placement bounds of an encoding. subjectOf maps subject group ids to
// their subject id.
func (c *Constraints) Grid(m *IndexManifest, subjectOf map[uuid.UUID]uuid.UUID) Grid {
	g := Grid{TimeslotsDaily: c.TimeslotsDaily, DaysInCycle: c.DaysInCycle}
	if m == nil || len(c.SubjectsDuration) != len(m.SubjectIDs) {
		return g
	}
	duration := make(map[uuid.UUID]int, len(m.SubjectIDs))
	for i, id := range m.SubjectIDs {
		duration[id] = c.SubjectsDuration[i]
	}
	g.GroupDurations = make([]int, len(m.SubjectGroupIDs))
	for i, gid := range m.SubjectGroupIDs {
		if sid, ok := subjectOf[gid]; ok {
			g.GroupDurations[i] = duration[sid]
		}
	}
	return g
}

// fits reports whether group i may start at timeslot: inside the cycle and ending no later
// than the end of its day.
func (g Grid) fits(i, timeslot int) bool {
	if timeslot < 0 {
		return false
	}
	if g.TimeslotsDaily <= 0 {
		return true
	}
	if g.DaysInCycle > 0 && timeslot >= g.TimeslotsDaily*g.DaysInCycle {
		return false
	}
	if i < len(g.GroupDurations) && g.GroupDurations[i] > 0 {
		return timeslot%g.TimeslotsDaily+g.GroupDurations[i] <= g.TimeslotsDaily
	}
	return true
}

// Placements decodes the valid by_group entries. Entries that are malformed, point outside
// the room list, or fall outside the grid are returned as skipped indices.
func (s *Solution) Placements(numRooms int, grid Grid) (placed []Placement, skipped []int) {
	members := make(map[int][]int, len(s.ByGroup))
	for j, groups := range s.ByStudent {
		seen := map[int]bool{}
		for _, gi := range groups {
			if gi < 0 || gi >= len(s.ByGroup) || seen[gi] {
				continue
			}
			seen[gi] = true
			members[gi] = append(members[gi], j)
		}
	}
	for i, entry := range s.ByGroup {
		if len(entry) != 2 || entry[1] < 0 || entry[1] >= numRooms || !grid.fits(i, entry[0]) {
			skipped = append(skipped, i)
			continue
		}
		doc := DayOfCycle(entry[0], grid.TimeslotsDaily)
		placed = append(placed, Placement{
			GroupIndex: i,
			Timeslot:   entry[0],
			RoomIndex:  entry[1],
			DayOfCycle: doc,
			DayOfWeek:  DayOfWeek(doc),
			Students:   members[i],
		})
	}
	return placed, skipped
}
