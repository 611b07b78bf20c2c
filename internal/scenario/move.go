package scenario

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/slav123/ews-mtgs-conformance/ews"
	"github.com/slav123/ews-mtgs-conformance/internal/harness"
	"github.com/slav123/ews-mtgs-conformance/internal/requirement"
)

func init() {
	register(Scenario{
		ID:          "S04_TC01",
		Title:       "MoveSingleCalendar",
		Description: "Move a single appointment to the inbox folder.",
		Run:         moveSingleCalendar,
	})
	register(Scenario{
		ID:          "S04_TC02",
		Title:       "MoveMeeting",
		Description: "Move a meeting to the inbox and its request, response and cancellation to the calendar folder.",
		Run:         moveMeeting,
	})
	register(Scenario{
		ID:          "S04_TC03",
		Title:       "MoveRecurringCalendar",
		Description: "Move a recurring series through the RecurringMasterItemId of one occurrence.",
		Run:         moveRecurringCalendar,
	})
	register(Scenario{
		ID:          "S04_TC04",
		Title:       "MoveItemErrorCalendarCannotMoveOrCopyOccurrence",
		Description: "Moving an occurrence fails with ErrorCalendarCannotMoveOrCopyOccurrence.",
		Run:         moveOccurrenceFails,
	})
	register(Scenario{
		ID:          "S04_TC05",
		Title:       "MoveItemErrorCalendarCannotUseIdForOccurrenceId",
		Description: "A RecurringMasterItemId naming a single meeting fails with ErrorCalendarCannotUseIdForOccurrenceId.",
		Run:         moveWithMeetingAsOccurrenceFails,
	})
}

func moveSingleCalendar(ctx context.Context, s *harness.Suite) error {
	item := ews.CalendarItem{Item: ews.Item{Subject: s.Subject}, UID: uuid.NewString()}

	created, err := s.CreateSingleCalendarItem(ctx, harness.Organizer, harness.CalendarItems(item), ews.SendToNone)
	if err != nil {
		return err
	}
	calendarId, err := createdId(s, created, "Create a calendar item should be successful.")
	if err != nil {
		return err
	}

	moved, err := s.MoveSingleCalendarItem(ctx, harness.Organizer, calendarId, ews.Distinguished(ews.FolderInbox))
	if err != nil {
		return err
	}
	if err := s.Rec.CaptureIfNotNil(moved, 640,
		`[In Messages] MoveItemSoapIn: For each item being moved that is not a recurring calendar item, the ItemIds element MUST contain an ItemId child element ([MS-OXWSCORE] section 2.2.4.11).`); err != nil {
		return err
	}

	inInbox, err := s.SearchSingleItem(ctx, harness.Organizer, ews.FolderInbox, ews.ClassAppointment, item.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.CalendarItem](s, inInbox, "The calendar item should be moved to Inbox folder."); err != nil {
		return err
	}

	inCalendar, err := s.SearchDeletedSingleItem(ctx, harness.Organizer, ews.FolderCalendar, ews.ClassAppointment, item.UID)
	if err != nil {
		return err
	}
	if err := s.Assert.Nil(inCalendar, "The calendar item should not be in the Calendar folder."); err != nil {
		return err
	}

	return s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderInbox)
}

func moveMeeting(ctx context.Context, s *harness.Suite) error {
	inbox := ews.Distinguished(ews.FolderInbox)
	calendarFolder := ews.Distinguished(ews.FolderCalendar)
	meeting := meetingItem(s)

	created, err := s.CreateSingleCalendarItem(ctx, harness.Organizer, harness.CalendarItems(meeting), ews.SendOnlyToAll)
	if err != nil {
		return err
	}
	meetingId, err := createdId(s, created, "Create single meeting item should be successful.")
	if err != nil {
		return err
	}

	// Organizer moves the meeting to the inbox.
	moved, err := s.MoveSingleCalendarItem(ctx, harness.Organizer, meetingId, inbox)
	if err != nil {
		return err
	}
	movedMeetingId, err := createdId(s, moved, "Server should return success for moving the meeting item.")
	if err != nil {
		return err
	}

	calendar, err := s.SearchSingleItem(ctx, harness.Organizer, ews.FolderInbox, ews.ClassAppointment, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.CalendarItem](s, calendar, "The meeting item should be moved into organizer's Inbox folder."); err != nil {
		return err
	}

	// Attendee moves the request to the calendar and accepts it there.
	request, err := s.SearchSingleItem(ctx, harness.Attendee, ews.FolderInbox, ews.ClassMeetingRequest, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.MeetingRequest](s, request, "The meeting request message should exist in attendee's inbox folder."); err != nil {
		return err
	}

	moved, err = s.MoveSingleCalendarItem(ctx, harness.Attendee, request.ItemId, calendarFolder)
	if err != nil {
		return err
	}
	if err := succeeded(s, moved, "Server should return success for moving meeting request message."); err != nil {
		return err
	}

	request, err = s.SearchSingleItem(ctx, harness.Attendee, ews.FolderCalendar, ews.ClassMeetingRequest, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.MeetingRequest](s, request, "The meeting request message should exist in attendee's calendar folder."); err != nil {
		return err
	}

	accepted, err := s.CreateSingleCalendarItem(ctx, harness.Attendee, harness.AcceptItem(request.ItemId), ews.SendOnlyToAll)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(accepted, "Attendee should accept the meeting request."); err != nil {
		return err
	}

	// Organizer moves the response to the calendar.
	response, err := s.SearchSingleItem(ctx, harness.Organizer, ews.FolderInbox, ews.ClassMeetingResponse, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.MeetingResponse](s, response, "The meeting response message should exist in organizer's inbox folder."); err != nil {
		return err
	}

	moved, err = s.MoveSingleCalendarItem(ctx, harness.Organizer, response.ItemId, calendarFolder)
	if err != nil {
		return err
	}
	if err := succeeded(s, moved, "EWS should return success for moving the meeting response message."); err != nil {
		return err
	}

	response, err = s.SearchSingleItem(ctx, harness.Organizer, ews.FolderCalendar, ews.ClassMeetingResponse, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.MeetingResponse](s, response, "The meeting response message should be in organizer's calendar folder."); err != nil {
		return err
	}

	deleted, err := s.DeleteSingleCalendarItem(ctx, harness.Organizer, movedMeetingId, ews.SendOnlyToAll)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(deleted, "Delete the meeting should be successful."); err != nil {
		return err
	}

	// Attendee moves the cancellation to the calendar and removes the meeting.
	canceled, err := s.SearchSingleItem(ctx, harness.Attendee, ews.FolderInbox, ews.ClassMeetingCancellation, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.MeetingCancellation](s, canceled, "The meeting cancellation message should be in attendee's inbox folder."); err != nil {
		return err
	}

	moved, err = s.MoveSingleCalendarItem(ctx, harness.Attendee, canceled.ItemId, calendarFolder)
	if err != nil {
		return err
	}
	if err := succeeded(s, moved, "EWS should return success for moving the meeting cancellation message."); err != nil {
		return err
	}

	canceled, err = s.SearchSingleItem(ctx, harness.Attendee, ews.FolderCalendar, ews.ClassMeetingCancellation, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.MeetingCancellation](s, canceled, "The meeting cancellation message should be in attendee's calendar folder."); err != nil {
		return err
	}

	removed, err := s.CreateSingleCalendarItem(ctx, harness.Attendee, harness.RemoveItem(canceled.ItemId), ews.SendToNone)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(removed, "The meeting item should be removed."); err != nil {
		return err
	}

	if err := s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderCalendar, ews.FolderDeletedItems); err != nil {
		return err
	}
	return s.CleanupFoldersByRole(ctx, harness.Attendee, ews.FolderSentItems, ews.FolderDeletedItems)
}

func moveRecurringCalendar(ctx context.Context, s *harness.Suite) error {
	series := recurringItem(s)

	created, err := s.CreateSingleCalendarItem(ctx, harness.Organizer, harness.CalendarItems(series), ews.SendToNone)
	if err != nil {
		return err
	}
	masterId, err := createdId(s, created, "Create the recurring calendar item should be successful.")
	if err != nil {
		return err
	}

	got, err := s.GetSingleCalendarItem(ctx, harness.Organizer, occurrenceOf(s, masterId))
	if err != nil {
		return err
	}
	occurrenceId, err := createdId(s, got, "Organizer should get the occurrence item successfully.")
	if err != nil {
		return err
	}

	moved, err := s.MoveSingleCalendarItem(ctx, harness.Organizer,
		ews.RecurringMasterItemId{OccurrenceId: occurrenceId.Id, ChangeKey: occurrenceId.ChangeKey},
		ews.Distinguished(ews.FolderInbox))
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(moved, "Server should return success for moving the recurring calendar item."); err != nil {
		return err
	}

	found, err := s.SearchSingleItem(ctx, harness.Organizer, ews.FolderInbox, ews.ClassAppointment, series.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.CalendarItem](s, found, "The recurring calendar should be in organizer's inbox folder."); err != nil {
		return err
	}

	if s.RequirementEnabled(808) {
		if err := requirement.CaptureIfEqual(s.Rec, ews.CalendarItemRecurringMaster, found.CalendarItem().CalendarItemType, 808,
			`[In Appendix C: Product Behavior] MoveItemSoapIn: For each item being moved that is a recurring calendar item, implementation does contain a RecurringMasterItemId child element ([MS-OXWSCORE] section 2.2.4.11). (Exchange 2007 and above follow this behavior.)`); err != nil {
			return err
		}
	}

	return s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderInbox)
}

func moveOccurrenceFails(ctx context.Context, s *harness.Suite) error {
	series := recurringItem(s)

	created, err := s.CreateSingleCalendarItem(ctx, harness.Organizer, harness.CalendarItems(series), ews.SendToNone)
	if err != nil {
		return err
	}
	masterId, err := createdId(s, created, "Create the recurring calendar item should be successful.")
	if err != nil {
		return err
	}

	s.ActAs(harness.Organizer)
	resp, err := s.Meetings.MoveItem(ctx, &ews.MoveItem{
		ToFolderId: *ews.Distinguished(ews.FolderDrafts),
		ItemIds:    ews.NewItemIds(occurrenceOf(s, masterId)),
	})
	if err != nil {
		return err
	}
	if err := s.Assert.True(resp.Valid(), "The MoveItem operation should return a response message."); err != nil {
		return err
	}
	msg := resp.Messages()[0]

	if err := requirement.CaptureIfEqual(s.Rec, ews.ResponseClassError, msg.ResponseClass, 1228,
		`[In Messages] If the request is unsuccessful, the MoveItem operation returns a MoveItemResponse element with the ResponseClass attribute of the MoveItemResponseMessage element set to "Error".`); err != nil {
		return err
	}
	if err := requirement.CaptureIfEqual(s.Rec, ews.ErrorCalendarCannotMoveOrCopyOccurrence, msg.ResponseCode, 1231,
		`[In Messages] ErrorCalendarCannotMoveOrCopyOccurrence: Specifies that an attempt was made to move or copy an occurrence of a recurring calendar item.`); err != nil {
		return err
	}

	return s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderCalendar)
}

func moveWithMeetingAsOccurrenceFails(ctx context.Context, s *harness.Suite) error {
	now := s.Now().UTC().Truncate(time.Second)
	meeting := ews.CalendarItem{
		Item:              ews.Item{Subject: s.Subject},
		UID:               uuid.NewString(),
		Start:             formatTime(now),
		End:               formatTime(now.Add(time.Duration(s.TimeInterval+1) * time.Hour)),
		Location:          s.Location,
		RequiredAttendees: ews.NewAttendees(s.Address(harness.Attendee)),
	}

	created, err := s.CreateSingleCalendarItem(ctx, harness.Organizer, harness.CalendarItems(meeting), ews.SendToAllAndSaveCopy)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(created, "Server should return success for creating a meeting."); err != nil {
		return err
	}

	inCalendar, err := s.SearchSingleItem(ctx, harness.Organizer, ews.FolderCalendar, ews.ClassAppointment, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.CalendarItem](s, inCalendar,
		"The meeting should be found in organizer's Calendar folder after organizer calls CreateItem with CalendarItemCreateOrDeleteOperationType set to SendToAllAndSaveCopy."); err != nil {
		return err
	}

	series := recurringItem(s)
	created, err = s.CreateSingleCalendarItem(ctx, harness.Organizer, harness.CalendarItems(series), ews.SendToNone)
	if err != nil {
		return err
	}
	masterId, err := createdId(s, created, "Create the recurring calendar item should be successful.")
	if err != nil {
		return err
	}

	got, err := s.GetSingleCalendarItem(ctx, harness.Organizer, occurrenceOf(s, masterId))
	if err != nil {
		return err
	}
	occurrenceId, err := createdId(s, got, "Organizer should get the occurrence item successfully.")
	if err != nil {
		return err
	}

	s.ActAs(harness.Organizer)
	resp, err := s.Meetings.MoveItem(ctx, &ews.MoveItem{
		ToFolderId: *ews.Distinguished(ews.FolderInbox),
		ItemIds: ews.NewItemIds(ews.RecurringMasterItemId{
			OccurrenceId: inCalendar.ItemId.Id,
			ChangeKey:    occurrenceId.ChangeKey,
		}),
	})
	if err != nil {
		return err
	}
	if err := s.Assert.True(resp.Valid(), "The MoveItem operation should return a response message."); err != nil {
		return err
	}

	if err := requirement.CaptureIfEqual(s.Rec, ews.ErrorCalendarCannotUseIdForOccurrenceId, resp.Messages()[0].ResponseCode, 1232,
		`[In Messages] ErrorCalendarCannotUseIdForOccurrenceId: Specifies that the OccurrenceId ([MS-OXWSCORE] section 2.2.4.39) does not correspond to a valid occurrence of a recurring master item.`); err != nil {
		return err
	}

	if err := s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderCalendar, ews.FolderSentItems, ews.FolderDeletedItems); err != nil {
		return err
	}
	return s.CleanupFoldersByRole(ctx, harness.Attendee, ews.FolderCalendar, ews.FolderInbox, ews.FolderDeletedItems)
}
