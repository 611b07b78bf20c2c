package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slav123/ews-mtgs-conformance/ews"
	"github.com/slav123/ews-mtgs-conformance/internal/harness"
	"github.com/slav123/ews-mtgs-conformance/internal/requirement"
)

func init() {
	register(Scenario{
		ID:          "S05_TC01",
		Title:       "GetMultipleCalendarItems",
		Description: "Create, get and delete two calendar items in one request each.",
		Run:         getMultipleCalendarItems,
	})
	register(Scenario{
		ID:          "S05_TC02",
		Title:       "UpdateMultipleCalendarItems",
		Description: "Update the location of two calendar items in one request.",
		Run:         updateMultipleCalendarItems,
	})
	register(Scenario{
		ID:          "S05_TC03",
		Title:       "CopyMultipleCalendarItems",
		Description: "Copy two calendar items to the drafts folder in one request.",
		Run:         copyMultipleCalendarItems,
	})
	register(Scenario{
		ID:          "S05_TC04",
		Title:       "MoveMultipleCalendarItems",
		Description: "Move two calendar items to the inbox folder in one request.",
		Run:         moveMultipleCalendarItems,
	})
}

// createTwo creates both items as the organizer and returns their ids.
func createTwo(ctx context.Context, s *harness.Suite, first, second ews.CalendarItem) ([]ews.BaseItemId, error) {
	msgs, err := s.CreateMultipleCalendarItems(ctx, harness.Organizer, harness.CalendarItems(first, second), ews.SendToNone)
	if err != nil {
		return nil, err
	}
	if err := s.Assert.NotNil(msgs, "The calendars should be created successfully."); err != nil {
		return nil, err
	}
	if err := s.Assert.True(len(msgs) == 2, "There should be only two calendars created."); err != nil {
		return nil, err
	}

	ids := harness.ItemIdsOf(msgs)
	if err := s.Assert.True(len(ids) == 2, "Both created calendars should carry an item id."); err != nil {
		return nil, err
	}
	return ids, nil
}

func locatedItem(s *harness.Suite) ews.CalendarItem {
	return ews.CalendarItem{
		Item:     ews.Item{Subject: s.Subject},
		UID:      uuid.NewString(),
		Location: s.Location,
	}
}

func getMultipleCalendarItems(ctx context.Context, s *harness.Suite) error {
	interval := time.Duration(s.TimeInterval) * time.Hour
	now := s.Now().UTC().Truncate(time.Second)

	firstStart, firstEnd := now.Add(interval), now.Add(interval+time.Hour)
	first := locatedItem(s)
	first.Start, first.End = formatTime(firstStart), formatTime(firstEnd)
	first.LegacyFreeBusyStatus = s.LegacyFreeBusy
	first.When = fmt.Sprintf("%s to %s", first.Start, first.End)

	second := locatedItem(s)
	second.Start, second.End = formatTime(firstEnd.Add(interval)), formatTime(firstEnd.Add(interval+time.Hour))
	second.LegacyFreeBusyStatus = s.LegacyFreeBusy
	second.When = first.When

	ids, err := createTwo(ctx, s, first, second)
	if err != nil {
		return err
	}

	got, err := s.GetMultipleCalendarItems(ctx, harness.Organizer, ids)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(got, "The calendars should be gotten successfully."); err != nil {
		return err
	}
	if err := s.Assert.True(len(got) == 2, "There should be only two calendars returned by GetItem."); err != nil {
		return err
	}

	deleted, err := s.DeleteMultipleCalendarItems(ctx, harness.Organizer, ids, ews.SendToNone)
	if err != nil {
		return err
	}
	return s.Assert.NotNil(deleted, "Server should return success for deleting multiple calendar items.")
}

func updateMultipleCalendarItems(ctx context.Context, s *harness.Suite) error {
	ids, err := createTwo(ctx, s, locatedItem(s), locatedItem(s))
	if err != nil {
		return err
	}

	changes := make([]harness.ItemChange, 0, len(ids))
	for _, id := range ids {
		changes = append(changes, harness.ItemChange{
			ItemId:   id.(ews.ItemId),
			FieldURI: ews.FieldLocation,
			Item:     ews.CalendarItem{Location: s.LocationUpdate},
		})
	}

	updated, err := s.UpdateMultipleCalendarItems(ctx, harness.Organizer, changes, ews.SendToNone)
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(updated, "Server should return success for updating multiple calendar items."); err != nil {
		return err
	}

	for i, id := range ids {
		got, err := s.GetSingleCalendarItem(ctx, harness.Organizer, id)
		if err != nil {
			return err
		}
		if err := s.Assert.NotNil(got, fmt.Sprintf("The updated item %d should exist.", i+1)); err != nil {
			return err
		}
		if err := s.Assert.True(len(got.Items.CalendarItem) == 1, fmt.Sprintf("The updated item %d should be a calendar item.", i+1)); err != nil {
			return err
		}

		location := got.Items.CalendarItem[0].Location
		if err := requirement.Equal(s.Assert, s.LocationUpdate, location,
			fmt.Sprintf("The Location of updated calendar %d should be %s. The actual value is %s.", i+1, s.LocationUpdate, location)); err != nil {
			return err
		}
	}

	return s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderCalendar)
}

func copyMultipleCalendarItems(ctx context.Context, s *harness.Suite) error {
	first, second := locatedItem(s), locatedItem(s)
	ids, err := createTwo(ctx, s, first, second)
	if err != nil {
		return err
	}

	copied, err := s.CopyMultipleCalendarItems(ctx, harness.Organizer, ids, ews.Distinguished(ews.FolderDrafts))
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(copied, "Server should return success for copying multiple calendar items."); err != nil {
		return err
	}

	for _, uid := range []string{first.UID, second.UID} {
		for _, folder := range []ews.DistinguishedFolderName{ews.FolderCalendar, ews.FolderDrafts} {
			found, err := s.SearchSingleItem(ctx, harness.Organizer, folder, ews.ClassAppointment, uid)
			if err != nil {
				return err
			}
			if err := s.Assert.NotNil(found, fmt.Sprintf("The calendar item %s should be in organizer's %s folder.", uid, folder)); err != nil {
				return err
			}
		}
	}

	return s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderCalendar, ews.FolderDrafts)
}

func moveMultipleCalendarItems(ctx context.Context, s *harness.Suite) error {
	first, second := locatedItem(s), locatedItem(s)
	ids, err := createTwo(ctx, s, first, second)
	if err != nil {
		return err
	}

	moved, err := s.MoveMultipleCalendarItems(ctx, harness.Organizer, ids, ews.Distinguished(ews.FolderInbox))
	if err != nil {
		return err
	}
	if err := s.Assert.NotNil(moved, "Server should return success for moving multiple calendar items."); err != nil {
		return err
	}

	for _, uid := range []string{first.UID, second.UID} {
		inCalendar, err := s.SearchDeletedSingleItem(ctx, harness.Organizer, ews.FolderCalendar, ews.ClassAppointment, uid)
		if err != nil {
			return err
		}
		if err := s.Assert.Nil(inCalendar, fmt.Sprintf("The calendar item %s should not be in organizer's calendar folder.", uid)); err != nil {
			return err
		}

		inInbox, err := s.SearchSingleItem(ctx, harness.Organizer, ews.FolderInbox, ews.ClassAppointment, uid)
		if err != nil {
			return err
		}
		if err := s.Assert.NotNil(inInbox, fmt.Sprintf("The calendar item %s should be in organizer's inbox folder.", uid)); err != nil {
			return err
		}
	}

	return s.CleanupFoldersByRole(ctx, harness.Organizer, ews.FolderInbox)
}
