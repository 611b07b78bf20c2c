package ewstest

import (
	"time"

	"github.com/slav123/ews-mtgs-conformance/ews"
)

// shape controls which properties an item is rendered with.
type shape struct {
	idOnly    bool
	conflicts bool
	adjacents bool
}

func newShape(s ews.ItemShape) shape {
	out := shape{idOnly: s.BaseShape == ews.IdOnly}
	if s.AdditionalProperties != nil {
		for _, f := range s.AdditionalProperties.FieldURI {
			switch f.FieldURI {
			case ews.FieldConflictingMeetingCount, ews.FieldConflictingMeetings:
				out.conflicts = true
			case ews.FieldAdjacentMeetingCount, ews.FieldAdjacentMeetings:
				out.adjacents = true
			}
		}
	}
	return out
}

var idShape = shape{idOnly: true}

// render appends the target to items in the element of its kind.
func (e *Exchange) render(t target, s shape, items *ews.Items) {
	r := t.rec
	id := &ews.ItemId{Id: r.id, ChangeKey: r.changeKeyString()}

	switch r.kind {
	case kindCalendarItem:
		var item ews.CalendarItem
		if t.index > 0 {
			occ, _ := r.occurrenceItem(t.index)
			item = copyCalendarItem(occ)
			id = &ews.ItemId{Id: occurrenceID(r.id, t.index), ChangeKey: r.changeKeyString()}
		} else {
			item = copyCalendarItem(r.calendar)
		}
		if s.idOnly {
			item = ews.CalendarItem{}
		} else {
			item.ParentFolderId = &ews.FolderId{Id: r.folder.id}
			if s.conflicts || s.adjacents {
				conflicting, adjacent := e.meetingCounts(r, t.index, item)
				if s.conflicts {
					item.ConflictingMeetingCount = ews.Int(conflicting)
				}
				if s.adjacents {
					item.AdjacentMeetingCount = ews.Int(adjacent)
				}
			}
		}
		item.ItemId = id
		items.CalendarItem = append(items.CalendarItem, item)

	case kindMeetingRequest:
		msg := copyMeetingRequest(r.message)
		if s.idOnly {
			msg = ews.MeetingRequest{}
		} else {
			msg.ParentFolderId = &ews.FolderId{Id: r.folder.id}
		}
		msg.ItemId = id
		items.MeetingRequest = append(items.MeetingRequest, msg)

	case kindMeetingResponse, kindMeetingCancellation:
		mm := copyMeetingMessage(r.message.MeetingMessage)
		if s.idOnly {
			mm = ews.MeetingMessage{}
		} else {
			mm.ParentFolderId = &ews.FolderId{Id: r.folder.id}
		}
		mm.ItemId = id
		if r.kind == kindMeetingResponse {
			items.MeetingResponse = append(items.MeetingResponse, ews.MeetingResponse{MeetingMessage: mm})
		} else {
			items.MeetingCancellation = append(items.MeetingCancellation, ews.MeetingCancellation{MeetingMessage: mm})
		}

	default:
		msg := copyMessage(r.message.Message)
		if s.idOnly {
			msg = ews.Message{}
		} else {
			msg.ParentFolderId = &ews.FolderId{Id: r.folder.id}
		}
		msg.ItemId = id
		items.Message = append(items.Message, msg)
	}
}

// meetingCounts counts the other calendar items of the folder that overlap
// or touch the given item, expanding series within a day of it.
func (e *Exchange) meetingCounts(r *record, index int, item ews.CalendarItem) (conflicting, adjacent int) {
	if item.CalendarItemType == ews.CalendarItemRecurringMaster {
		return 0, 0
	}
	slot, err := ews.SlotOf(item, time.UTC)
	if err != nil {
		return 0, 0
	}
	window := ews.TimeSlot{Start: slot.Start.Add(-24 * time.Hour), End: slot.End.Add(24 * time.Hour)}

	count := func(other ews.TimeSlot) {
		switch {
		case other.Overlaps(slot):
			conflicting++
		case other.Adjacent(slot):
			adjacent++
		}
	}

	for _, o := range e.recordsIn(r.folder) {
		if o.kind != kindCalendarItem {
			continue
		}
		if o.isMaster() {
			for _, i := range o.occurrencesBetween(window) {
				if o == r && i == index {
					continue
				}
				if occ, ok := o.occurrenceItem(i); ok {
					if s, err := ews.SlotOf(occ, time.UTC); err == nil {
						count(s)
					}
				}
			}
			continue
		}
		if o == r {
			continue
		}
		if s, err := o.slot(); err == nil {
			count(s)
		}
	}
	return conflicting, adjacent
}
