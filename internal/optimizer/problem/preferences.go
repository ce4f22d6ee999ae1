package problem

import (
	"encoding/json"
	"errors"
)

// Gaps is the (min, max, weight) triple describing tolerated gaps between meetings.
type Gaps [3]int

// StudentPreference encodes as [shapeWeight, gaps, preferredTimeslots, preferredGroups].
type StudentPreference struct {
	ShapeWeight        int
	Gaps               Gaps
	PreferredTimeslots []int
	PreferredGroups    []int
}

func (p StudentPreference) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.ShapeWeight, p.Gaps, nonNil(p.PreferredTimeslots), nonNil(p.PreferredGroups)})
}

func (p *StudentPreference) UnmarshalJSON(raw []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return err
	}
	if len(parts) != 4 {
		return errors.New("student preference must have 4 elements")
	}
	return unmarshalParts(parts, &p.ShapeWeight, &p.Gaps, &p.PreferredTimeslots, &p.PreferredGroups)
}

// TeacherPreference encodes as [shapeWeight, gaps, preferredTimeslots].
type TeacherPreference struct {
	ShapeWeight        int
	Gaps               Gaps
	PreferredTimeslots []int
}

func (p TeacherPreference) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.ShapeWeight, p.Gaps, nonNil(p.PreferredTimeslots)})
}

func (p *TeacherPreference) UnmarshalJSON(raw []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return errors.New("teacher preference must have 3 elements")
	}
	return unmarshalParts(parts, &p.ShapeWeight, &p.Gaps, &p.PreferredTimeslots)
}

type Preferences struct {
	Students []StudentPreference `json:"students"`
	Teachers []TeacherPreference `json:"teachers"`
}

// rawPreferences is the payload participants submit.
type rawPreferences struct {
	WidthHeightInfo    *float64  `json:"WidthHeightInfo"`
	GapsInfo           []float64 `json:"GapsInfo"`
	PreferredTimeslots []int     `json:"PreferredTimeslots"`
	PreferredGroups    []int     `json:"PreferredGroups"`
}

// DefaultStudentPreference and DefaultTeacherPreference are the neutral tuples used for
// participants without a submission.
func DefaultStudentPreference() StudentPreference {
	return StudentPreference{PreferredTimeslots: []int{}, PreferredGroups: []int{}}
}

func DefaultTeacherPreference() TeacherPreference {
	return TeacherPreference{PreferredTimeslots: []int{}}
}

// ProjectStudent projects a stored payload onto the student tuple. ok is false when the
// payload is missing or unreadable and the neutral default was returned instead.
func ProjectStudent(raw []byte) (StudentPreference, bool) {
	p, ok := parseRaw(raw)
	if !ok {
		return DefaultStudentPreference(), false
	}
	return StudentPreference{
		ShapeWeight:        shapeWeight(p.WidthHeightInfo),
		Gaps:               gapsTriple(p.GapsInfo),
		PreferredTimeslots: nonNil(p.PreferredTimeslots),
		PreferredGroups:    nonNil(p.PreferredGroups),
	}, true
}

// ProjectTeacher is ProjectStudent for hosts; preferred groups do not apply.
func ProjectTeacher(raw []byte) (TeacherPreference, bool) {
	p, ok := parseRaw(raw)
	if !ok {
		return DefaultTeacherPreference(), false
	}
	return TeacherPreference{
		ShapeWeight:        shapeWeight(p.WidthHeightInfo),
		Gaps:               gapsTriple(p.GapsInfo),
		PreferredTimeslots: nonNil(p.PreferredTimeslots),
	}, true
}

func parseRaw(raw []byte) (rawPreferences, bool) {
	var p rawPreferences
	if len(raw) == 0 || string(raw) == "null" {
		return p, false
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, false
	}
	return p, true
}

func shapeWeight(v *float64) int {
	if v == nil {
		return 0
	}
	return int(*v)
}

func gapsTriple(in []float64) Gaps {
	var g Gaps
	for i := 0; i < len(g) && i < len(in); i++ {
		g[i] = int(in[i])
	}
	return g
}

func nonNil(in []int) []int {
	if in == nil {
		return []int{}
	}
	return in
}

func unmarshalParts(parts []json.RawMessage, dst ...interface{}) error {
	for i, d := range dst {
		if err := json.Unmarshal(parts[i], d); err != nil {
			return err
		}
	}
	return nil
}
