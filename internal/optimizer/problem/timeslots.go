package problem

import (
	"fmt"
	"strings"
)

const (
	// TimeslotMinutes is the width of one timeslot block.
	TimeslotMinutes = 15

	// DefaultDayStartMinute and DefaultTimeslotsDaily describe the planning day used when a
	// recruitment leaves its day bounds unset (08:00 to 20:00).
	DefaultDayStartMinute = 8 * 60
	DefaultTimeslotsDaily = 48

	DaysPerWeek = 7
)

var daysInCycle = map[string]int{
	"weekly":   7,
	"biweekly": 14,
	"monthly":  28,
}

// DaysInCycle maps a cycle type onto its length in days.
func DaysInCycle(cycleType string) (int, error) {
	if n, ok := daysInCycle[strings.ToLower(strings.TrimSpace(cycleType))]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("unknown cycle type %q", cycleType)
}

// Timing is the time grid of one recruitment.
type Timing struct {
	DayStartMinute int
	TimeslotsDaily int
	DaysInCycle    int
}

// NewTiming derives the time grid from a recruitment's day bounds and cycle type.
func NewTiming(dayStart, dayEnd *int, cycleType string) (Timing, error) {
	days, err := DaysInCycle(cycleType)
	if err != nil {
		return Timing{}, err
	}
	t := Timing{DayStartMinute: DefaultDayStartMinute, TimeslotsDaily: DefaultTimeslotsDaily, DaysInCycle: days}
	if dayStart == nil || dayEnd == nil {
		return t, nil
	}
	if *dayStart < 0 || *dayEnd > 24*60 || *dayEnd <= *dayStart {
		return Timing{}, fmt.Errorf("invalid day bounds %d..%d", *dayStart, *dayEnd)
	}
	t.DayStartMinute = *dayStart
	t.TimeslotsDaily = (*dayEnd - *dayStart) / TimeslotMinutes
	return t, nil
}

// TotalTimeslots is the number of addressable timeslots in one cycle.
func (t Timing) TotalTimeslots() int {
	return t.TimeslotsDaily * t.DaysInCycle
}

// DayOfCycle returns the cycle day an absolute timeslot falls on.
func DayOfCycle(timeslot, timeslotsDaily int) int {
	if timeslotsDaily <= 0 {
		return 0
	}
	return timeslot / timeslotsDaily
}

// DayOfWeek folds a cycle day onto the weekday index.
func DayOfWeek(dayOfCycle int) int {
	return dayOfCycle % DaysPerWeek
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}
