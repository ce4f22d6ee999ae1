package problem

import (
	"reflect"
	"testing"
)

func TestOccupiedSlotsSameGrid(t *testing.T) {
	tm := weeklyTiming()
	got := OccupiedSlots(BusyMeeting{StartTimeslot: 45, DurationBlocks: 3, Source: tm}, tm, Padding{})
	if !reflect.DeepEqual(got, []int{45, 46, 47}) {
		t.Fatalf("OccupiedSlots: want=[45 46 47] got=%v", got)
	}
}

func TestOccupiedSlotsPaddingClipsAtDayEdge(t *testing.T) {
	tm := weeklyTiming()
	got := OccupiedSlots(BusyMeeting{StartTimeslot: 20, DurationBlocks: 1, Source: tm}, tm, Padding{Before: 2, After: 1})
	if !reflect.DeepEqual(got, []int{20, 21}) {
		t.Fatalf("OccupiedSlots: want=[20 21] got=%v", got)
	}
}

func TestOccupiedSlotsShiftedDayStart(t *testing.T) {
	// Source day starts at 09:00, target at 08:00: a 09:00 meeting lands on target slot 4.
	src := Timing{DayStartMinute: 9 * 60, TimeslotsDaily: 16, DaysInCycle: 7}
	tgt := weeklyTiming()
	got := OccupiedSlots(BusyMeeting{StartTimeslot: 0, DurationBlocks: 2, Source: src}, tgt, Padding{})
	if !reflect.DeepEqual(got, []int{4, 5}) {
		t.Fatalf("OccupiedSlots: want=[4 5] got=%v", got)
	}
}

func TestOccupiedSlotsWeeklyIntoBiweekly(t *testing.T) {
	src := Timing{DayStartMinute: 8 * 60, TimeslotsDaily: 10, DaysInCycle: 7}
	tgt := Timing{DayStartMinute: 8 * 60, TimeslotsDaily: 10, DaysInCycle: 14}
	// Day 2, slot 3.
	got := OccupiedSlots(BusyMeeting{StartTimeslot: 23, DurationBlocks: 1, Source: src}, tgt, Padding{})
	if !reflect.DeepEqual(got, []int{23, 93}) {
		t.Fatalf("OccupiedSlots: want=[23 93] got=%v", got)
	}
}

func TestOccupiedSlotsOutsideTargetDay(t *testing.T) {
	src := Timing{DayStartMinute: 18 * 60, TimeslotsDaily: 8, DaysInCycle: 7}
	tgt := Timing{DayStartMinute: 8 * 60, TimeslotsDaily: 8, DaysInCycle: 7}
	if got := OccupiedSlots(BusyMeeting{StartTimeslot: 0, DurationBlocks: 2, Source: src}, tgt, Padding{}); len(got) != 0 {
		t.Fatalf("OccupiedSlots: want none got=%v", got)
	}
}

func TestTimingAndDays(t *testing.T) {
	start, end := 8*60, 13*60
	tm, err := NewTiming(&start, &end, "biweekly")
	if err != nil {
		t.Fatalf("NewTiming: %v", err)
	}
	if tm.TimeslotsDaily != 20 || tm.DaysInCycle != 14 {
		t.Fatalf("NewTiming: want 20/14 got=%d/%d", tm.TimeslotsDaily, tm.DaysInCycle)
	}
	tm, err = NewTiming(nil, nil, "monthly")
	if err != nil || tm.TimeslotsDaily != DefaultTimeslotsDaily || tm.DaysInCycle != 28 {
		t.Fatalf("NewTiming(default): got=%+v err=%v", tm, err)
	}
	if _, err := NewTiming(&end, &start, "weekly"); err == nil {
		t.Fatalf("NewTiming: want error for inverted bounds")
	}
	if _, err := NewTiming(nil, nil, "yearly"); err == nil {
		t.Fatalf("NewTiming: want error for unknown cycle")
	}
	if DayOfCycle(45, 20) != 2 || DayOfWeek(9) != 2 || DayOfCycle(5, 0) != 0 {
		t.Fatalf("day helpers: unexpected values")
	}
}
