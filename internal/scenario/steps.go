package scenario

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slav123/ews-mtgs-conformance/ews"
	"github.com/slav123/ews-mtgs-conformance/internal/harness"
)

const dateLayout = "2006-01-02"

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// recurringItem is a daily series starting now.
func recurringItem(s *harness.Suite) ews.CalendarItem {
	start := s.Now().UTC().Truncate(time.Second)
	return ews.CalendarItem{
		Item:  ews.Item{Subject: s.Subject},
		UID:   uuid.NewString(),
		Start: formatTime(start),
		End:   formatTime(start.Add(time.Duration(s.TimeInterval) * time.Hour)),
		Recurrence: &ews.Recurrence{
			DailyRecurrence: &ews.DailyRecurrence{Interval: s.PatternInterval},
			NumberedRecurrence: &ews.NumberedRecurrence{
				StartDate:           start.Format(dateLayout),
				NumberOfOccurrences: s.NumberOfOccurrences,
			},
		},
	}
}

// meetingItem invites the attendee, with the organizer as optional attendee
// and the room as resource.
func meetingItem(s *harness.Suite) ews.CalendarItem {
	return ews.CalendarItem{
		Item:              ews.Item{Subject: s.Subject},
		UID:               uuid.NewString(),
		RequiredAttendees: ews.NewAttendees(s.Address(harness.Attendee)),
		OptionalAttendees: ews.NewAttendees(s.Address(harness.Organizer)),
		Resources:         ews.NewAttendees(s.RoomAddress),
	}
}

// createdId returns the id of the first item in msg.
func createdId(s *harness.Suite, msg *ews.ResponseMessage, message string) (ews.ItemId, error) {
	if err := s.Assert.NotNil(msg, message); err != nil {
		return ews.ItemId{}, err
	}
	id := msg.Items.FirstItemId()
	if err := s.Assert.NotNil(id, message); err != nil {
		return ews.ItemId{}, err
	}
	return *id, nil
}

// occurrenceOf addresses the configured instance of the series master.
func occurrenceOf(s *harness.Suite, master ews.ItemId) ews.OccurrenceItemId {
	return ews.OccurrenceItemId{
		RecurringMasterId: master.Id,
		ChangeKey:         master.ChangeKey,
		InstanceIndex:     s.InstanceIndex,
	}
}

// expectKind asserts that found is a T, e.g. *ews.MeetingRequest.
func expectKind[T any](s *harness.Suite, found *harness.FoundItem, message string) error {
	if err := s.Assert.NotNil(found, message); err != nil {
		return err
	}
	if _, ok := found.Item.(T); !ok {
		return s.Assert.Fail(fmt.Sprintf("%s Got %T.", message, found.Item))
	}
	return nil
}

// succeeded asserts that msg is a Success response message.
func succeeded(s *harness.Suite, msg *ews.ResponseMessage, message string) error {
	if err := s.Assert.NotNil(msg, message); err != nil {
		return err
	}
	return s.Assert.True(msg.ResponseClass == ews.ResponseClassSuccess, message)
}
