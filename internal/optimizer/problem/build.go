package problem

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

type Subject struct {
	ID             uuid.UUID
	DurationBlocks int
	Capacity       int
	MinStudents    int
	Tags           []string
}

type SubjectGroup struct {
	ID        uuid.UUID
	SubjectID uuid.UUID
	HostID    uuid.UUID
}

type Room struct {
	ID       uuid.UUID
	Capacity int
	Tags     []string
}

type Participant struct {
	UserID     uuid.UUID
	Weight     int
	SubjectIDs []uuid.UUID
}

// Input is everything one encoding pass reads. Slices must already be in encoding order;
// Build assigns indices by position.
type Input struct {
	Timing   Timing
	Subjects []Subject
	Groups   []SubjectGroup
	Rooms    []Room
	Students []Participant
	Teachers []Participant
	Busy     []BusyMeeting
	Padding  Padding
}

// Build encodes the input into solver constraints plus the manifest that decodes them.
func Build(in Input) (*Encoded, error) {
	if in.Timing.TimeslotsDaily <= 0 || in.Timing.DaysInCycle <= 0 {
		return nil, fmt.Errorf("invalid timing %+v", in.Timing)
	}

	manifest := IndexManifest{
		SubjectIDs:      make([]uuid.UUID, 0, len(in.Subjects)),
		SubjectGroupIDs: make([]uuid.UUID, 0, len(in.Groups)),
		RoomIDs:         make([]uuid.UUID, 0, len(in.Rooms)),
		StudentIDs:      make([]uuid.UUID, 0, len(in.Students)),
		TeacherIDs:      make([]uuid.UUID, 0, len(in.Teachers)),
	}

	subjectIdx := make(map[uuid.UUID]int, len(in.Subjects))
	for i, s := range in.Subjects {
		if _, dup := subjectIdx[s.ID]; dup {
			return nil, fmt.Errorf("duplicate subject %s", s.ID)
		}
		subjectIdx[s.ID] = i
		manifest.SubjectIDs = append(manifest.SubjectIDs, s.ID)
	}

	tagIdx, tags := tagUniverse(in.Subjects, in.Rooms)
	manifest.Tags = tags

	c := Constraints{
		TimeslotsDaily:      in.Timing.TimeslotsDaily,
		DaysInCycle:         in.Timing.DaysInCycle,
		NumSubjects:         len(in.Subjects),
		NumGroups:           len(in.Groups),
		NumTeachers:         len(in.Teachers),
		NumStudents:         len(in.Students),
		NumRooms:            len(in.Rooms),
		NumTags:             len(tags),
		SubjectsDuration:    make([]int, 0, len(in.Subjects)),
		GroupsPerSubject:    make([]int, len(in.Subjects)),
		MinStudentsPerGroup: make([]int, 0, len(in.Groups)),
		GroupsCapacity:      make([]int, 0, len(in.Groups)),
		RoomsCapacity:       make([]int, 0, len(in.Rooms)),
		GroupsTags:          [][]int{},
		RoomsTags:           [][]int{},
		StudentsSubjects:    make([][]int, 0, len(in.Students)),
		TeachersGroups:      make([][]int, 0, len(in.Teachers)),
		StudentWeights:      make([]int, 0, len(in.Students)),
		TeacherWeights:      make([]int, 0, len(in.Teachers)),
	}

	for _, s := range in.Subjects {
		c.SubjectsDuration = append(c.SubjectsDuration, s.DurationBlocks)
	}

	groupsByHost := map[uuid.UUID][]int{}
	for i, g := range in.Groups {
		si, ok := subjectIdx[g.SubjectID]
		if !ok {
			return nil, fmt.Errorf("subject group %s references subject %s outside the recruitment", g.ID, g.SubjectID)
		}
		manifest.SubjectGroupIDs = append(manifest.SubjectGroupIDs, g.ID)
		subj := in.Subjects[si]
		c.GroupsPerSubject[si]++
		c.MinStudentsPerGroup = append(c.MinStudentsPerGroup, subj.MinStudents)
		c.GroupsCapacity = append(c.GroupsCapacity, subj.Capacity)
		for _, ti := range tagIndices(subj.Tags, tagIdx) {
			c.GroupsTags = append(c.GroupsTags, []int{i, ti})
		}
		groupsByHost[g.HostID] = append(groupsByHost[g.HostID], i)
	}

	for j, r := range in.Rooms {
		manifest.RoomIDs = append(manifest.RoomIDs, r.ID)
		c.RoomsCapacity = append(c.RoomsCapacity, r.Capacity)
		for _, ti := range tagIndices(r.Tags, tagIdx) {
			c.RoomsTags = append(c.RoomsTags, []int{j, ti})
		}
	}

	for _, st := range in.Students {
		manifest.StudentIDs = append(manifest.StudentIDs, st.UserID)
		idx := make([]int, 0, len(st.SubjectIDs))
		for _, sid := range st.SubjectIDs {
			if si, ok := subjectIdx[sid]; ok {
				idx = append(idx, si)
			}
		}
		c.StudentsSubjects = append(c.StudentsSubjects, sortedUnique(idx))
		c.StudentWeights = append(c.StudentWeights, weightOrDefault(st.Weight))
	}

	for _, t := range in.Teachers {
		manifest.TeacherIDs = append(manifest.TeacherIDs, t.UserID)
		c.TeachersGroups = append(c.TeachersGroups, sortedUnique(append([]int{}, groupsByHost[t.UserID]...)))
		c.TeacherWeights = append(c.TeacherWeights, weightOrDefault(t.Weight))
	}

	occ := newOccupancy(in.Timing, in.Padding, manifest.RoomIDs, manifest.StudentIDs, manifest.TeacherIDs)
	for _, b := range in.Busy {
		occ.add(b)
	}
	c.RoomsUnavailabilityTimeslots = occ.rooms.lists()
	c.StudentsUnavailabilityTimeslots = occ.students.lists()
	c.TeachersUnavailabilityTimeslots = occ.teachers.lists()

	manifest.Version = manifest.ComputeVersion()
	return &Encoded{Constraints: c, Manifest: manifest}, nil
}

// Marshal renders constraints as the byte-stable JSON blob that gets persisted.
func (e *Encoded) Marshal() ([]byte, []byte, error) {
	cons, err := json.Marshal(e.Constraints)
	if err != nil {
		return nil, nil, err
	}
	man, err := json.Marshal(e.Manifest)
	if err != nil {
		return nil, nil, err
	}
	return cons, man, nil
}

func tagUniverse(subjects []Subject, rooms []Room) (map[string]int, []string) {
	seen := map[string]struct{}{}
	for _, s := range subjects {
		for _, t := range s.Tags {
			seen[t] = struct{}{}
		}
	}
	for _, r := range rooms {
		for _, t := range r.Tags {
			seen[t] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for t := range seen {
		names = append(names, t)
	}
	sort.Strings(names)
	idx := make(map[string]int, len(names))
	for i, t := range names {
		idx[t] = i
	}
	return idx, names
}

func tagIndices(names []string, universe map[string]int) []int {
	out := make([]int, 0, len(names))
	for _, n := range names {
		if i, ok := universe[n]; ok {
			out = append(out, i)
		}
	}
	return sortedUnique(out)
}

func sortedUnique(in []int) []int {
	if len(in) == 0 {
		return []int{}
	}
	sort.Ints(in)
	out := in[:1]
	for _, v := range in[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func weightOrDefault(w int) int {
	if w <= 0 {
		return 1
	}
	return w
}
