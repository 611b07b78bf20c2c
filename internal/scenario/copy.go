package scenario

import (
	"context"

	"github.com/google/uuid"

	"github.com/slav123/ews-mtgs-conformance/ews"
	"github.com/slav123/ews-mtgs-conformance/internal/harness"
	"github.com/slav123/ews-mtgs-conformance/internal/requirement"
)

func init() {
	register(Scenario{
		ID:          "S03_TC01",
		Title:       "CopySingleCalendar",
		Description: "Copy a single appointment to the drafts folder.",
		Run:         copySingleCalendar,
	})
	register(Scenario{
		ID:          "S03_TC02",
		Title:       "CopySingleMeetingItem",
		Description: "Copy a meeting, its request, its response and its cancellation to the drafts folder.",
		Run:         copySingleMeetingItem,
	})
	register(Scenario{
		ID:          "S03_TC03",
		Title:       "CopyRecurringCalendar",
		Description: "Copy a recurring series through the RecurringMasterItemId of one occurrence.",
		Run:         copyRecurringCalendar,
	})
	register(Scenario{
		ID:          "S03_TC04",
		Title:       "CopyItemErrorCalendarCannotMoveOrCopyOccurrence",
		Description: "Copying an occurrence fails with ErrorCalendarCannotMoveOrCopyOccurrence.",
		Run:         copyOccurrenceFails,
	})
}

func copySingleCalendar(ctx context.Context, s *harness.Suite) error {
	item := ews.CalendarItem{Item: ews.Item{Subject: s.Subject}, UID: uuid.NewString()}

	created, err := s.CreateSingleCalendarItem(ctx, harness.Organizer, harness.CalendarItems(item), ews.SendToNone)
	if err != nil {
		return err
	}
	calendarId, err := createdId(s, created, "Create a calendar item should be successful.")
	if err != nil {
		return err
	}

	copied, err := s.CopySingleCalendarItem(ctx, harness.Organizer, calendarId, ews.Distinguished(ews.FolderDrafts))
	if err != nil {
		return err
	}
	if err := s.Rec.CaptureIfNotNil(copied, 602,
		`[In Messages] CopyItemSoapIn: For each item being copied that is not a recurring calendar item, the ItemIds element MUST contain an ItemId child element ([MS-OXWSCORE] section 2.2.4.11).`); err != nil {
		return err
	}

	inDrafts, err := s.SearchSingleItem(ctx, harness.Organizer, ews.FolderDrafts, ews.ClassAppointment, item.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.CalendarItem](s, inDrafts, "The calendar item should be in organizer's drafts folder."); err != nil {
		return err
	}

	inCalendar, err := s.SearchSingleItem(ctx, harness.Organizer, ews.FolderCalendar, ews.ClassAppointment, item.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.CalendarItem](s, inCalendar, "The calendar item should also be in organizer's calendar folder."); err != nil {
		return err
	}

	return s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderCalendar, ews.FolderDrafts)
}

func copySingleMeetingItem(ctx context.Context, s *harness.Suite) error {
	meeting := meetingItem(s)
	drafts := ews.Distinguished(ews.FolderDrafts)

	created, err := s.CreateSingleCalendarItem(ctx, harness.Organizer, harness.CalendarItems(meeting), ews.SendOnlyToAll)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(created, "Create single meeting item should be successful."); err != nil {
		return err
	}

	// Organizer copies the meeting.
	calendar, err := s.SearchSingleItem(ctx, harness.Organizer, ews.FolderCalendar, ews.ClassAppointment, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.CalendarItem](s, calendar, "The created calendar should exist in organizer's calendar folder."); err != nil {
		return err
	}
	meetingId := calendar.ItemId

	copied, err := s.CopySingleCalendarItem(ctx, harness.Organizer, meetingId, drafts)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(copied, "Copy the single meeting item should be successful."); err != nil {
		return err
	}

	calendar, err = s.SearchSingleItem(ctx, harness.Organizer, ews.FolderDrafts, ews.ClassAppointment, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.CalendarItem](s, calendar, "The copied calendar should exist in organizer's Drafts folder."); err != nil {
		return err
	}

	// Attendee copies the request, then accepts it.
	request, err := s.SearchSingleItemBy(ctx, harness.Attendee, ews.FolderInbox, ews.FieldSubject, meeting.Subject, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.MeetingRequest](s, request, "The meeting request message should exist in attendee's inbox folder."); err != nil {
		return err
	}

	copied, err = s.CopySingleCalendarItem(ctx, harness.Attendee, request.ItemId, drafts)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(copied, "Copy the single meeting request message should be successful."); err != nil {
		return err
	}

	accepted, err := s.CreateSingleCalendarItem(ctx, harness.Attendee, harness.AcceptItem(request.ItemId), ews.SendOnlyToAll)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(accepted, "Attendee creates items for meeting request should succeed."); err != nil {
		return err
	}

	// Organizer copies the response, then cancels the meeting.
	response, err := s.SearchSingleItem(ctx, harness.Organizer, ews.FolderInbox, ews.ClassMeetingResponse, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.MeetingResponse](s, response, "The response message from Attendee should be in organizer's Inbox folder."); err != nil {
		return err
	}

	copied, err = s.CopySingleCalendarItem(ctx, harness.Organizer, response.ItemId, drafts)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(copied, "Copy the single meeting response message should be successful."); err != nil {
		return err
	}

	deleted, err := s.DeleteSingleCalendarItem(ctx, harness.Organizer, meetingId, ews.SendOnlyToAll)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(deleted, "Delete the single meeting item should be successful."); err != nil {
		return err
	}

	// Attendee copies the cancellation.
	canceled, err := s.SearchSingleItem(ctx, harness.Attendee, ews.FolderInbox, ews.ClassMeetingCancellation, meeting.UID)
	if err != nil {
		return err
	}
	if err := expectKind[*ews.MeetingCancellation](s, canceled, "The cancellation meeting message should be in attendee's Inbox folder."); err != nil {
		return err
	}

	copied, err = s.CopySingleCalendarItem(ctx, harness.Attendee, canceled.ItemId, drafts)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(copied, "Attendee should copy the meeting cancellation message to the Drafts folder."); err != nil {
		return err
	}

	if err := s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderInbox, ews.FolderDrafts, ews.FolderDeletedItems); err != nil {
		return err
	}
	return s.CleanupFoldersByRole(ctx, harness.Attendee, ews.FolderInbox, ews.FolderCalendar, ews.FolderSentItems, ews.FolderDrafts, ews.FolderDeletedItems)
}

func copyRecurringCalendar(ctx context.Context, s *harness.Suite) error {
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
	occurrenceId, err := createdId(s, got, "Get the occurrence should be successful.")
	if err != nil {
		return err
	}

	copied, err := s.CopySingleCalendarItem(ctx, harness.Organizer,
		ews.RecurringMasterItemId{OccurrenceId: occurrenceId.Id, ChangeKey: occurrenceId.ChangeKey},
		ews.Distinguished(ews.FolderDrafts))
	if err != nil {
		return err
	}
	copyId, err := createdId(s, copied, "Copy recurring calendar item through RecurringMasterItemId should be successful.")
	if err != nil {
		return err
	}

	got, err = s.GetSingleCalendarItem(ctx, harness.Organizer, copyId)
	if err != nil {
		return err
	}
	if s.RequirementEnabled(806) {
		if err := s.Rec.CaptureIfNotNil(got, 806,
			`[In Appendix C: Product Behavior] CopyItemSoapIn: For each item being copied that is a recurring calendar item, implementation does contain a RecurringMasterItemId child element ([MS-OXWSCORE] section 2.2.4.11). (Exchange 2007 and above follow this behavior.)`); err != nil {
			return err
		}
	}

	return s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderCalendar, ews.FolderDrafts)
}

func copyOccurrenceFails(ctx context.Context, s *harness.Suite) error {
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
	resp, err := s.Meetings.CopyItem(ctx, &ews.CopyItem{
		ToFolderId: *ews.Distinguished(ews.FolderDrafts),
		ItemIds:    ews.NewItemIds(occurrenceOf(s, masterId)),
	})
	if err != nil {
		return err
	}
	if err := s.Assert.True(resp.Valid(), "The CopyItem operation should return a response message."); err != nil {
		return err
	}
	msg := resp.Messages()[0]

	if err := requirement.CaptureIfEqual(s.Rec, ews.ResponseClassError, msg.ResponseClass, 1190,
		`[In Messages] If the request is unsuccessful, the CopyItem operation returns an CopyItemResponse element with the ResponseClass attribute of the CopyItemResponseMessage element set to "Error".`); err != nil {
		return err
	}
	if err := requirement.CaptureIfEqual(s.Rec, ews.ErrorCalendarCannotMoveOrCopyOccurrence, msg.ResponseCode, 1193,
		`[In Messages] ErrorCalendarCannotMoveOrCopyOccurrence: Specifies that an attempt was made to move or copy an occurrence of a recurring calendar item.`); err != nil {
		return err
	}

	return s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderCalendar)
}
