package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 6, 12, hour, minute, 0, 0, time.UTC)
}

func TestFreeSlotsEmptyDay(t *testing.T) {
	slots := NewSlotFinder().FreeSlots(at(0, 0), 90*time.Minute, nil)

	// 09:00 .. 16:30 every half hour
	assert.Len(t, slots, 16)
	assert.Equal(t, at(9, 0), slots[0].Start)
	assert.Equal(t, at(18, 0), slots[len(slots)-1].End)
}

func TestFreeSlotsSkipBusy(t *testing.T) {
	busy := []TimeSlot{
		{Start: at(10, 0), End: at(11, 0)},
		{Start: at(10, 30), End: at(12, 0)}, // overlaps the first
		{Start: at(12, 0), End: at(13, 0)},  // adjacent
	}
	slots := NewSlotFinder().FreeSlots(at(0, 0), time.Hour, busy)

	for _, s := range slots {
		assert.False(t, s.Start.Before(at(13, 0)) && s.End.After(at(10, 0)), "slot %v overlaps busy time", s.Start)
	}
	assert.Equal(t, at(9, 0), slots[0].Start)
	assert.Equal(t, at(13, 0), slots[1].Start)
}

func TestFreeSlotsLongerThanDay(t *testing.T) {
	assert.Empty(t, NewSlotFinder().FreeSlots(at(0, 0), 10*time.Hour, nil))
}
