package ews

import (
	"context"
	"time"
)

// TimeSlot represents a time slot with start and end times
type TimeSlot struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two slots share any instant.
// Overlap occurs when one starts before the other ends and ends after the other starts.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.Start.Before(o.End) && s.End.After(o.Start)
}

// Adjacent reports whether one slot ends exactly when the other starts.
func (s TimeSlot) Adjacent(o TimeSlot) bool {
	return s.End.Equal(o.Start) || o.End.Equal(s.Start)
}

// SlotOf returns the time span of a calendar item. Times without an offset
// are read in loc.
func SlotOf(item CalendarItem, loc *time.Location) (TimeSlot, error) {
	start, err := ParseDateTime(item.Start, loc)
	if err != nil {
		return TimeSlot{}, err
	}

	end, err := ParseDateTime(item.End, loc)
	if err != nil {
		return TimeSlot{}, err
	}

	return TimeSlot{Start: start, End: end}, nil
}

// CheckSlotAvailability checks if a given time slot is available in the calendar
// It returns true if the slot is available, false if there are conflicts
func (c *EWSClient) CheckSlotAvailability(ctx context.Context, slot TimeSlot) (bool, []CalendarItem, error) {
	// A small buffer makes sure items touching the slot edges are listed
	items, err := c.GetCalendarItems(ctx, slot.Start.Add(-1*time.Minute), slot.End.Add(1*time.Minute))
	if err != nil {
		return false, nil, err
	}

	var conflicts []CalendarItem
	for _, item := range items {
		itemSlot, err := SlotOf(item, c.TimeZone)
		if err != nil {
			return false, nil, err
		}

		if itemSlot.Overlaps(slot) {
			conflicts = append(conflicts, item)
		}
	}

	return len(conflicts) == 0, conflicts, nil
}
