package problem

import (
	"sort"

	"github.com/google/uuid"
)

// BusyMeeting is an existing meeting that blocks its room, host, and members. Source is the
// time grid of the recruitment that owns it.
type BusyMeeting struct {
	RoomID         uuid.UUID
	HostID         uuid.UUID
	MemberIDs      []uuid.UUID
	StartTimeslot  int
	DurationBlocks int
	Source         Timing
}

// Padding widens every busy interval by whole timeslots on either side.
type Padding struct {
	Before int
	After  int
}

type slotSets struct {
	sets []map[int]struct{}
}

func newSlotSets(n int) slotSets {
	s := slotSets{sets: make([]map[int]struct{}, n)}
	for i := range s.sets {
		s.sets[i] = map[int]struct{}{}
	}
	return s
}

func (s slotSets) mark(i int, slots []int) {
	for _, v := range slots {
		s.sets[i][v] = struct{}{}
	}
}

func (s slotSets) lists() [][]int {
	out := make([][]int, len(s.sets))
	for i, set := range s.sets {
		l := make([]int, 0, len(set))
		for v := range set {
			l = append(l, v)
		}
		sort.Ints(l)
		out[i] = l
	}
	return out
}

type occupancy struct {
	target   Timing
	padding  Padding
	roomIdx  map[uuid.UUID]int
	stIdx    map[uuid.UUID]int
	tchIdx   map[uuid.UUID]int
	rooms    slotSets
	students slotSets
	teachers slotSets
}

func newOccupancy(target Timing, padding Padding, rooms, students, teachers []uuid.UUID) *occupancy {
	return &occupancy{
		target:   target,
		padding:  padding,
		roomIdx:  indexOf(rooms),
		stIdx:    indexOf(students),
		tchIdx:   indexOf(teachers),
		rooms:    newSlotSets(len(rooms)),
		students: newSlotSets(len(students)),
		teachers: newSlotSets(len(teachers)),
	}
}

func (o *occupancy) add(b BusyMeeting) {
	slots := OccupiedSlots(b, o.target, o.padding)
	if len(slots) == 0 {
		return
	}
	if i, ok := o.roomIdx[b.RoomID]; ok {
		o.rooms.mark(i, slots)
	}
	o.markPerson(b.HostID, slots)
	for _, m := range b.MemberIDs {
		o.markPerson(m, slots)
	}
}

func (o *occupancy) markPerson(id uuid.UUID, slots []int) {
	if i, ok := o.stIdx[id]; ok {
		o.students.mark(i, slots)
	}
	if i, ok := o.tchIdx[id]; ok {
		o.teachers.mark(i, slots)
	}
}

// OccupiedSlots projects a meeting onto the target grid. The meeting's wall-clock interval
// is mapped into target timeslots (partially covered slots count as occupied) and repeated
// on every target day that lines up with the meeting's cycle day.
func OccupiedSlots(b BusyMeeting, target Timing, padding Padding) []int {
	src := b.Source
	if src.TimeslotsDaily <= 0 || target.TimeslotsDaily <= 0 || target.DaysInCycle <= 0 || b.DurationBlocks <= 0 || b.StartTimeslot < 0 {
		return nil
	}
	srcDays := src.DaysInCycle
	if srcDays <= 0 {
		srcDays = target.DaysInCycle
	}
	day := b.StartTimeslot / src.TimeslotsDaily
	local := b.StartTimeslot % src.TimeslotsDaily

	startMin := src.DayStartMinute + (local-padding.Before)*TimeslotMinutes
	endMin := src.DayStartMinute + (local+b.DurationBlocks+padding.After)*TimeslotMinutes
	first := floorDiv(startMin-target.DayStartMinute, TimeslotMinutes)
	last := ceilDiv(endMin-target.DayStartMinute, TimeslotMinutes) - 1
	if first < 0 {
		first = 0
	}
	if last > target.TimeslotsDaily-1 {
		last = target.TimeslotsDaily - 1
	}
	if first > last {
		return nil
	}

	period := gcd(srcDays, target.DaysInCycle)
	out := make([]int, 0, (last-first+1)*(target.DaysInCycle/period))
	for d := 0; d < target.DaysInCycle; d++ {
		if (d-day%period+period)%period != 0 {
			continue
		}
		for s := first; s <= last; s++ {
			out = append(out, d*target.TimeslotsDaily+s)
		}
	}
	return out
}

func indexOf(ids []uuid.UUID) map[uuid.UUID]int {
	m := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a <= 0 {
		return 1
	}
	return a
}
