package service

import (
	"sort"
	"time"
)

// TimeSlot is a wall-clock range.
type TimeSlot struct {
	Start time.Time
	End   time.Time
}

// SlotFinder computes the free visit slots of a vendor's day
type SlotFinder struct {
	// OpeningHour - default 9:00
	OpeningHour int
	// ClosingHour - default 18:00
	ClosingHour int
	// Step between candidate start times
	Step time.Duration
}

func NewSlotFinder() *SlotFinder {
	return &SlotFinder{
		OpeningHour: 9,
		ClosingHour: 18,
		Step:        30 * time.Minute,
	}
}

// FreeSlots returns the slots of the given duration on day that do not overlap busy.
func (sf *SlotFinder) FreeSlots(day time.Time, duration time.Duration, busy []TimeSlot) []TimeSlot {
	opening := time.Date(day.Year(), day.Month(), day.Day(), sf.OpeningHour, 0, 0, 0, day.Location())
	closing := time.Date(day.Year(), day.Month(), day.Day(), sf.ClosingHour, 0, 0, 0, day.Location())

	merged := sf.mergeOverlappingSlots(busy)

	free := []TimeSlot{}
	for current := opening; !current.Add(duration).After(closing); current = current.Add(sf.Step) {
		slot := TimeSlot{Start: current, End: current.Add(duration)}
		if !sf.overlapsAny(slot, merged) {
			free = append(free, slot)
		}
	}
	return free
}

// mergeOverlappingSlots merges overlapping or adjacent busy ranges
func (sf *SlotFinder) mergeOverlappingSlots(slots []TimeSlot) []TimeSlot {
	if len(slots) == 0 {
		return slots
	}

	sorted := make([]TimeSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []TimeSlot{sorted[0]}
	for _, current := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !current.Start.After(last.End) {
			if current.End.After(last.End) {
				last.End = current.End
			}
			continue
		}
		merged = append(merged, current)
	}
	return merged
}

func (sf *SlotFinder) overlapsAny(slot TimeSlot, busy []TimeSlot) bool {
	for _, b := range busy {
		if slot.Start.Before(b.End) && slot.End.After(b.Start) {
			return true
		}
	}
	return false
}
