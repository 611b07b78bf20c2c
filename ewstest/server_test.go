package ewstest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/slav123/ews-mtgs-conformance/ews"
)

const domain = "contoso.com"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func newClient(t *testing.T, srv *Server, user string, opts ...ews.Option) *ews.EWSClient {
	t.Helper()
	c, err := ews.NewClient(srv.URL, user, "secret", append([]ews.Option{ews.WithDomain(domain)}, opts...)...)
	require.NoError(t, err)
	return c
}

func createItem(t *testing.T, c *ews.EWSClient, mode ews.SendMode, item ews.CalendarItem) ews.ItemId {
	t.Helper()
	resp, err := c.CreateItem(context.Background(), &ews.CreateItem{
		SendMeetingInvitations: mode,
		Items:                  ews.Items{CalendarItem: []ews.CalendarItem{item}},
	})
	require.NoError(t, err)
	require.NoError(t, resp.FirstError())
	require.Len(t, resp.Messages(), 1)

	id := resp.Messages()[0].Items.FirstItemId()
	require.NotNil(t, id)
	return *id
}

func findIn(t *testing.T, c *ews.EWSClient, folder ews.DistinguishedFolderName) *ews.Items {
	t.Helper()
	resp, err := c.FindItem(context.Background(), &ews.FindItem{
		Traversal:       ews.Shallow,
		ItemShape:       ews.ItemShape{BaseShape: ews.AllProperties},
		ParentFolderIds: ews.NewFolderIds(folder),
	})
	require.NoError(t, err)
	require.NoError(t, resp.FirstError())
	require.NotNil(t, resp.Messages()[0].RootFolder)
	return resp.Messages()[0].RootFolder.Items
}

func dailySeries(count int) ews.CalendarItem {
	return ews.CalendarItem{
		Item:  ews.Item{Subject: "Daily sync"},
		Start: "2024-03-04T09:00:00Z",
		End:   "2024-03-04T09:30:00Z",
		Recurrence: &ews.Recurrence{
			DailyRecurrence:    &ews.DailyRecurrence{Interval: 1},
			NumberedRecurrence: &ews.NumberedRecurrence{StartDate: "2024-03-04", NumberOfOccurrences: count},
		},
	}
}

func TestServer_CopyAndMove(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	ctx := context.Background()
	c := newClient(t, srv, "organizer")
	organizer := "organizer@" + domain

	id := createItem(t, c, ews.SendToNone, ews.CalendarItem{
		Item:  ews.Item{Subject: "Review"},
		Start: "2024-03-01T10:00:00Z",
		End:   "2024-03-01T11:00:00Z",
	})

	copied, err := c.CopyItem(ctx, &ews.CopyItem{
		ToFolderId: *ews.Distinguished(ews.FolderDrafts),
		ItemIds:    ews.NewItemIds(id),
	})
	require.NoError(t, err)
	require.NoError(t, copied.FirstError())
	copyID := copied.Messages()[0].Items.FirstItemId()
	require.NotNil(t, copyID)
	assert.NotEqual(t, id.Id, copyID.Id)
	assert.Equal(t, "CopyItemResponseMessage", copied.Messages()[0].XMLName.Local)

	assert.Equal(t, 1, srv.ItemCount(organizer, ews.FolderCalendar))
	assert.Equal(t, 1, srv.ItemCount(organizer, ews.FolderDrafts))

	drafts := findIn(t, c, ews.FolderDrafts)
	require.Len(t, drafts.CalendarItem, 1)
	assert.Equal(t, "Review", drafts.CalendarItem[0].Subject)

	moved, err := c.MoveItem(ctx, &ews.MoveItem{
		ToFolderId: *ews.Distinguished(ews.FolderInbox),
		ItemIds:    ews.NewItemIds(id),
	})
	require.NoError(t, err)
	require.NoError(t, moved.FirstError())
	movedID := moved.Messages()[0].Items.FirstItemId()
	require.NotNil(t, movedID)
	assert.NotEqual(t, id.Id, movedID.Id)

	assert.Equal(t, 0, srv.ItemCount(organizer, ews.FolderCalendar))
	assert.Equal(t, 1, srv.ItemCount(organizer, ews.FolderInbox))

	// The old id no longer resolves once the item has moved.
	again, err := c.MoveItem(ctx, &ews.MoveItem{
		ToFolderId: *ews.Distinguished(ews.FolderCalendar),
		ItemIds:    ews.NewItemIds(id),
	})
	require.NoError(t, err)
	var respErr *ews.ResponseError
	require.True(t, errors.As(again.FirstError(), &respErr))
	assert.Equal(t, ews.ErrorItemNotFound, respErr.Code)

	noNewIds, err := c.CopyItem(ctx, &ews.CopyItem{
		ToFolderId:       *ews.Distinguished(ews.FolderDrafts),
		ItemIds:          ews.NewItemIds(*movedID),
		ReturnNewItemIds: ews.Bool(false),
	})
	require.NoError(t, err)
	require.NoError(t, noNewIds.FirstError())
	assert.Nil(t, noNewIds.Messages()[0].Items.FirstItemId())
}

func TestServer_RecurringIds(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	ctx := context.Background()
	c := newClient(t, srv, "organizer")

	master := createItem(t, c, ews.SendToNone, dailySeries(3))
	single := createItem(t, c, ews.SendToNone, ews.CalendarItem{
		Item:  ews.Item{Subject: "One-off"},
		Start: "2024-03-04T13:00:00Z",
		End:   "2024-03-04T14:00:00Z",
	})

	got, err := c.GetItem(ctx, &ews.GetItem{
		ItemShape: ews.ItemShape{BaseShape: ews.AllProperties},
		ItemIds:   ews.NewItemIds(ews.OccurrenceItemId{RecurringMasterId: master.Id, InstanceIndex: 2}),
	})
	require.NoError(t, err)
	require.NoError(t, got.FirstError())
	require.Len(t, got.Messages()[0].Items.CalendarItem, 1)
	occurrence := got.Messages()[0].Items.CalendarItem[0]
	assert.Equal(t, ews.CalendarItemOccurrence, occurrence.CalendarItemType)
	assert.Equal(t, "2024-03-05T09:00:00Z", occurrence.Start)
	require.NotNil(t, occurrence.ItemId)

	tests := []struct {
		name string
		ids  ews.ItemIds
		code ews.ResponseCode
	}{
		{
			name: "occurrence item id",
			ids:  ews.NewItemIds(ews.OccurrenceItemId{RecurringMasterId: master.Id, InstanceIndex: 1}),
			code: ews.ErrorCalendarCannotMoveOrCopyOccurrence,
		},
		{
			name: "item id naming an occurrence",
			ids:  ews.NewItemIds(*occurrence.ItemId),
			code: ews.ErrorCalendarCannotMoveOrCopyOccurrence,
		},
		{
			name: "index out of range",
			ids:  ews.NewItemIds(ews.OccurrenceItemId{RecurringMasterId: master.Id, InstanceIndex: 4}),
			code: ews.ErrorCalendarOccurrenceIndexIsOutOfRecurrenceRange,
		},
		{
			name: "occurrence of a single item",
			ids:  ews.NewItemIds(ews.OccurrenceItemId{RecurringMasterId: single.Id, InstanceIndex: 1}),
			code: ews.ErrorCalendarOccurrenceIndexIsOutOfRecurrenceRange,
		},
		{
			name: "master id through a single item",
			ids:  ews.NewItemIds(ews.RecurringMasterItemId{OccurrenceId: single.Id}),
			code: ews.ErrorCalendarCannotUseIdForOccurrenceId,
		},
		{
			name: "unknown id",
			ids:  ews.NewItemIds(ews.ItemId{Id: "missing"}),
			code: ews.ErrorItemNotFound,
		},
		{
			name: "empty id",
			ids:  ews.NewItemIds(ews.ItemId{}),
			code: ews.ErrorInvalidIdMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.CopyItem(ctx, &ews.CopyItem{ToFolderId: *ews.Distinguished(ews.FolderDrafts), ItemIds: tt.ids})
			require.NoError(t, err)
			require.Len(t, resp.Messages(), 1)
			msg := resp.Messages()[0]
			assert.Equal(t, ews.ResponseClassError, msg.ResponseClass)
			assert.Equal(t, tt.code, msg.ResponseCode)
		})
	}

	copied, err := c.CopyItem(ctx, &ews.CopyItem{
		ToFolderId: *ews.Distinguished(ews.FolderDrafts),
		ItemIds:    ews.NewItemIds(ews.RecurringMasterItemId{OccurrenceId: occurrence.ItemId.Id}),
	})
	require.NoError(t, err)
	require.NoError(t, copied.FirstError())
	copyID := copied.Messages()[0].Items.FirstItemId()
	require.NotNil(t, copyID)

	copyItem, err := c.GetItem(ctx, &ews.GetItem{
		ItemShape: ews.ItemShape{BaseShape: ews.AllProperties},
		ItemIds:   ews.NewItemIds(*copyID),
	})
	require.NoError(t, err)
	require.NoError(t, copyItem.FirstError())
	assert.Equal(t, ews.CalendarItemRecurringMaster, copyItem.Messages()[0].Items.CalendarItem[0].CalendarItemType)

	deleted, err := c.DeleteItem(ctx, &ews.DeleteItem{
		DeleteType: ews.HardDelete,
		ItemIds:    ews.NewItemIds(ews.OccurrenceItemId{RecurringMasterId: master.Id, InstanceIndex: 3}),
	})
	require.NoError(t, err)
	require.NoError(t, deleted.FirstError())

	gone, err := c.GetItem(ctx, &ews.GetItem{
		ItemShape: ews.ItemShape{BaseShape: ews.IdOnly},
		ItemIds:   ews.NewItemIds(ews.OccurrenceItemId{RecurringMasterId: master.Id, InstanceIndex: 3}),
	})
	require.NoError(t, err)
	assert.Equal(t, ews.ErrorCalendarOccurrenceIsDeletedFromRecurrence, gone.Messages()[0].ResponseCode)
}

func TestServer_MeetingLifecycle(t *testing.T) {
	clk := newClock()
	srv := NewServer(WithClock(clk.Now), WithDeliveryDelay(time.Minute))
	defer srv.Close()

	ctx := context.Background()
	c := newClient(t, srv, "organizer")
	organizer, attendee := "organizer@"+domain, "attendee@"+domain

	meeting := createItem(t, c, ews.SendToAllAndSaveCopy, ews.CalendarItem{
		Item:              ews.Item{Subject: "Planning"},
		Start:             "2024-03-01T10:00:00Z",
		End:               "2024-03-01T11:00:00Z",
		Location:          "Room 1",
		RequiredAttendees: ews.NewAttendees(attendee),
		OptionalAttendees: ews.NewAttendees(organizer),
		Resources:         ews.NewAttendees("room@" + domain),
	})

	assert.Equal(t, []string{ews.ClassMeetingRequest}, srv.ItemClasses(organizer, ews.FolderSentItems))
	assert.Equal(t, 1, srv.ItemCount(attendee, ews.FolderInbox))
	assert.Empty(t, srv.ItemClasses(attendee, ews.FolderInbox), "delivery is still pending")
	assert.Equal(t, 0, srv.ItemCount(organizer, ews.FolderInbox))

	accept, err := c.CreateItem(ctx, &ews.CreateItem{
		MessageDisposition: ews.SendAndSaveCopy,
		Items:              ews.Items{AcceptItem: []ews.ResponseObject{{ReferenceItemId: &meeting}}},
	})
	require.NoError(t, err)
	assert.Equal(t, ews.ErrorCalendarIsOrganizerForAccept, accept.Messages()[0].ResponseCode)

	clk.Advance(time.Minute)
	c.SwitchUser("attendee", "secret", domain)

	inbox := findIn(t, c, ews.FolderInbox)
	require.Len(t, inbox.MeetingRequest, 1)
	request := inbox.MeetingRequest[0]
	assert.Equal(t, ews.MeetingRequestNew, request.MeetingRequestType)
	assert.Equal(t, "Room 1", request.Location)
	require.NotNil(t, request.ItemId)

	accept, err = c.CreateItem(ctx, &ews.CreateItem{
		MessageDisposition: ews.SendAndSaveCopy,
		Items:              ews.Items{AcceptItem: []ews.ResponseObject{{ReferenceItemId: request.ItemId}}},
	})
	require.NoError(t, err)
	require.NoError(t, accept.FirstError())

	calendar := findIn(t, c, ews.FolderCalendar)
	require.Len(t, calendar.CalendarItem, 1)
	assert.Equal(t, ews.ResponseAccept, calendar.CalendarItem[0].MyResponseType)
	assert.Equal(t, request.UID, calendar.CalendarItem[0].UID)
	assert.Equal(t, []string{ews.ClassMeetingRequest}, srv.ItemClasses(attendee, ews.FolderDeletedItems))
	assert.Equal(t, []string{ews.ClassMeetingResponsePos}, srv.ItemClasses(attendee, ews.FolderSentItems))

	clk.Advance(time.Minute)
	c.SwitchUser("organizer", "secret", domain)

	responses := findIn(t, c, ews.FolderInbox)
	require.Len(t, responses.MeetingResponse, 1)
	assert.Equal(t, ews.ClassMeetingResponsePos, responses.MeetingResponse[0].ItemClass)
	assert.Equal(t, request.UID, responses.MeetingResponse[0].UID)

	deleted, err := c.DeleteItem(ctx, &ews.DeleteItem{
		DeleteType:               ews.HardDelete,
		SendMeetingCancellations: ews.SendOnlyToAll,
		ItemIds:                  ews.NewItemIds(meeting),
	})
	require.NoError(t, err)
	require.NoError(t, deleted.FirstError())
	assert.Equal(t, 0, srv.ItemCount(organizer, ews.FolderCalendar))

	clk.Advance(time.Minute)
	c.SwitchUser("attendee", "secret", domain)

	inbox = findIn(t, c, ews.FolderInbox)
	require.Len(t, inbox.MeetingCancellation, 1)
	cancellation := inbox.MeetingCancellation[0]
	assert.Equal(t, ews.ClassMeetingCancellation, cancellation.ItemClass)
	assert.True(t, strings.HasPrefix(cancellation.Subject, "Canceled: "))

	calendar = findIn(t, c, ews.FolderCalendar)
	require.Len(t, calendar.CalendarItem, 1)
	require.NotNil(t, calendar.CalendarItem[0].IsCancelled)
	assert.True(t, *calendar.CalendarItem[0].IsCancelled)

	removed, err := c.CreateItem(ctx, &ews.CreateItem{
		MessageDisposition: ews.SendAndSaveCopy,
		Items:              ews.Items{RemoveItem: []ews.ResponseObject{{ReferenceItemId: cancellation.ItemId}}},
	})
	require.NoError(t, err)
	require.NoError(t, removed.FirstError())
	assert.Equal(t, 0, srv.ItemCount(attendee, ews.FolderCalendar))
	assert.Equal(t, 0, srv.ItemCount(attendee, ews.FolderInbox))
}

func TestServer_UpdateItem(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	ctx := context.Background()
	c := newClient(t, srv, "organizer")

	id := createItem(t, c, ews.SendToNone, ews.CalendarItem{
		Item:     ews.Item{Subject: "Review"},
		Start:    "2024-03-01T10:00:00Z",
		End:      "2024-03-01T11:00:00Z",
		Location: "Room 1",
	})

	resp, err := c.UpdateItem(ctx, &ews.UpdateItem{
		ConflictResolution:                    ews.AlwaysOverwrite,
		SendMeetingInvitationsOrCancellations: ews.SendToNone,
		ItemChanges: ews.ItemChanges{ItemChange: []ews.ItemChange{
			ews.SetCalendarField(id, ews.FieldLocation, ews.CalendarItem{Location: "Room 2"}),
		}},
	})
	require.NoError(t, err)
	require.NoError(t, resp.FirstError())
	updated := resp.Messages()[0].Items.FirstItemId()
	require.NotNil(t, updated)
	assert.Equal(t, id.Id, updated.Id)
	assert.NotEqual(t, id.ChangeKey, updated.ChangeKey)

	calendar := findIn(t, c, ews.FolderCalendar)
	require.Len(t, calendar.CalendarItem, 1)
	assert.Equal(t, "Room 2", calendar.CalendarItem[0].Location)

	tests := []struct {
		name   string
		change ews.ItemChange
		code   ews.ResponseCode
	}{
		{
			name:   "unsupported field",
			change: ews.SetCalendarField(id, ews.FieldUID, ews.CalendarItem{UID: "other"}),
			code:   ews.ErrorInvalidPropertySet,
		},
		{
			name:   "end before start",
			change: ews.SetCalendarField(id, ews.FieldEnd, ews.CalendarItem{End: "2024-03-01T09:00:00Z"}),
			code:   ews.ErrorCalendarEndDateIsEarlierThanStartDate,
		},
		{
			name: "missing value",
			change: ews.ItemChange{ItemId: &id, Updates: ews.Updates{SetItemField: []ews.SetItemField{
				{FieldURI: ews.FieldURI{FieldURI: ews.FieldSubject}},
			}}},
			code: ews.ErrorInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.UpdateItem(ctx, &ews.UpdateItem{
				ConflictResolution: ews.AlwaysOverwrite,
				ItemChanges:        ews.ItemChanges{ItemChange: []ews.ItemChange{tt.change}},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.Messages()[0].ResponseCode)
		})
	}
}

func TestServer_FindItem(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	ctx := context.Background()
	c := newClient(t, srv, "organizer")

	createItem(t, c, ews.SendToNone, dailySeries(5))
	createItem(t, c, ews.SendToNone, ews.CalendarItem{
		Item:  ews.Item{Subject: "Lunch"},
		Start: "2024-03-05T09:15:00Z",
		End:   "2024-03-05T10:00:00Z",
	})

	items, err := c.GetCalendarItems(ctx,
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, ews.CalendarItemOccurrence, items[0].CalendarItemType)
	assert.Equal(t, ews.CalendarItemOccurrence, items[1].CalendarItemType)
	assert.Equal(t, "Lunch", items[2].Subject)

	tests := []struct {
		name  string
		c     ews.Contains
		count int
	}{
		{
			name:  "substring ignoring case",
			c:     ews.Contains{ContainmentMode: ews.Substring, ContainmentComparison: ews.IgnoreCase, FieldURI: ews.FieldURI{FieldURI: ews.FieldSubject}, Constant: ews.Constant{Value: "SYNC"}},
			count: 1,
		},
		{
			name:  "exact case",
			c:     ews.Contains{ContainmentMode: ews.Substring, ContainmentComparison: ews.Exact, FieldURI: ews.FieldURI{FieldURI: ews.FieldSubject}, Constant: ews.Constant{Value: "SYNC"}},
			count: 0,
		},
		{
			name:  "item class prefix",
			c:     ews.Contains{ContainmentMode: ews.Prefixed, ContainmentComparison: ews.IgnoreCase, FieldURI: ews.FieldURI{FieldURI: ews.FieldItemClass}, Constant: ews.Constant{Value: "IPM.Appointment"}},
			count: 2,
		},
		{
			name:  "full string",
			c:     ews.Contains{ContainmentMode: ews.FullString, FieldURI: ews.FieldURI{FieldURI: ews.FieldSubject}, Constant: ews.Constant{Value: "Lunch"}},
			count: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contains := tt.c
			resp, err := c.FindItem(ctx, &ews.FindItem{
				Traversal:       ews.Shallow,
				ItemShape:       ews.ItemShape{BaseShape: ews.IdOnly},
				Restriction:     &ews.Restriction{Contains: &contains},
				ParentFolderIds: ews.NewFolderIds(ews.FolderCalendar),
			})
			require.NoError(t, err)
			require.NoError(t, resp.FirstError())
			assert.Equal(t, tt.count, resp.Messages()[0].RootFolder.TotalItemsInView)
		})
	}
}

func TestServer_MeetingCounts(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	ctx := context.Background()
	c := newClient(t, srv, "organizer")

	id := createItem(t, c, ews.SendToNone, ews.CalendarItem{Start: "2024-03-01T10:00:00Z", End: "2024-03-01T11:00:00Z"})
	createItem(t, c, ews.SendToNone, ews.CalendarItem{Start: "2024-03-01T10:30:00Z", End: "2024-03-01T11:30:00Z"})
	createItem(t, c, ews.SendToNone, ews.CalendarItem{Start: "2024-03-01T11:00:00Z", End: "2024-03-01T12:00:00Z"})
	createItem(t, c, ews.SendToNone, ews.CalendarItem{Start: "2024-03-01T09:00:00Z", End: "2024-03-01T10:00:00Z"})

	resp, err := c.GetItem(ctx, &ews.GetItem{
		ItemShape: ews.ItemShape{
			BaseShape: ews.AllProperties,
			AdditionalProperties: &ews.AdditionalProperties{FieldURI: []ews.FieldURI{
				{FieldURI: ews.FieldConflictingMeetingCount},
				{FieldURI: ews.FieldAdjacentMeetingCount},
			}},
		},
		ItemIds: ews.NewItemIds(id),
	})
	require.NoError(t, err)
	require.NoError(t, resp.FirstError())

	item := resp.Messages()[0].Items.CalendarItem[0]
	require.NotNil(t, item.ConflictingMeetingCount)
	require.NotNil(t, item.AdjacentMeetingCount)
	assert.Equal(t, 1, *item.ConflictingMeetingCount)
	assert.Equal(t, 2, *item.AdjacentMeetingCount)
}

func TestServer_Folders(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	ctx := context.Background()
	c := newClient(t, srv, "organizer")

	create := func() *ews.Response {
		resp, err := c.CreateFolder(ctx, &ews.CreateFolder{
			ParentFolderId: *ews.Distinguished(ews.FolderInbox),
			Folders:        ews.Folders{CalendarFolder: []ews.BaseFolder{{DisplayName: "Scratch"}}},
		})
		require.NoError(t, err)
		return resp
	}

	created := create()
	require.NoError(t, created.FirstError())
	folders := created.Messages()[0].Folders.All()
	require.Len(t, folders, 1)
	require.NotNil(t, folders[0].FolderId)

	assert.Equal(t, ews.ErrorFolderExists, create().Messages()[0].ResponseCode)

	createItem(t, c, ews.SendToNone, ews.CalendarItem{Start: "2024-03-01T10:00:00Z", End: "2024-03-01T11:00:00Z"})
	resp, err := c.CreateItem(ctx, &ews.CreateItem{
		SendMeetingInvitations: ews.SendToNone,
		SavedItemFolderId:      ews.Folder(*folders[0].FolderId),
		Items:                  ews.Items{CalendarItem: []ews.CalendarItem{{Item: ews.Item{Subject: "filed"}}}},
	})
	require.NoError(t, err)
	require.NoError(t, resp.FirstError())

	deleted, err := c.DeleteFolder(ctx, &ews.DeleteFolder{
		DeleteType: ews.HardDelete,
		FolderIds: ews.FolderIds{
			FolderId:              []ews.FolderId{*folders[0].FolderId, {Id: "missing"}},
			DistinguishedFolderId: []ews.DistinguishedFolderId{{Id: ews.FolderCalendar}},
		},
	})
	require.NoError(t, err)
	require.Len(t, deleted.Messages(), 3)
	assert.True(t, deleted.Messages()[0].Success())
	assert.Equal(t, ews.ErrorFolderNotFound, deleted.Messages()[1].ResponseCode)
	assert.Equal(t, ews.ErrorDeleteDistinguishedFolder, deleted.Messages()[2].ResponseCode)

	assert.Equal(t, 1, srv.ItemCount("organizer@"+domain, ews.FolderCalendar))
}

func TestServer_FolderIdOfAnotherMailbox(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	ctx := context.Background()
	organizer := newClient(t, srv, "organizer")
	created, err := organizer.CreateFolder(ctx, &ews.CreateFolder{
		ParentFolderId: *ews.Distinguished(ews.FolderInbox),
		Folders:        ews.Folders{CalendarFolder: []ews.BaseFolder{{DisplayName: "Private"}}},
	})
	require.NoError(t, err)
	require.NoError(t, created.FirstError())
	folderID := created.Messages()[0].Folders.All()[0].FolderId
	require.NotNil(t, folderID)

	attendee := newClient(t, srv, "attendee")
	id := createItem(t, attendee, ews.SendToNone, ews.CalendarItem{
		Item:  ews.Item{Subject: "Mine"},
		Start: "2024-03-01T10:00:00Z",
		End:   "2024-03-01T11:00:00Z",
	})

	tests := []struct {
		name string
		call func() (*ews.Response, error)
	}{
		{name: "copy", call: func() (*ews.Response, error) {
			return attendee.CopyItem(ctx, &ews.CopyItem{ToFolderId: *ews.Folder(*folderID), ItemIds: ews.NewItemIds(id)})
		}},
		{name: "move", call: func() (*ews.Response, error) {
			return attendee.MoveItem(ctx, &ews.MoveItem{ToFolderId: *ews.Folder(*folderID), ItemIds: ews.NewItemIds(id)})
		}},
		{name: "create", call: func() (*ews.Response, error) {
			return attendee.CreateItem(ctx, &ews.CreateItem{
				SendMeetingInvitations: ews.SendToNone,
				SavedItemFolderId:      ews.Folder(*folderID),
				Items:                  ews.Items{CalendarItem: []ews.CalendarItem{{Item: ews.Item{Subject: "filed"}}}},
			})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			require.NoError(t, err)
			require.Len(t, resp.Messages(), 1)
			assert.Equal(t, ews.ErrorAccessDenied, resp.Messages()[0].ResponseCode)
		})
	}

	assert.Equal(t, 1, srv.ItemCount("attendee@"+domain, ews.FolderCalendar))
}

func TestServer_AcceptUpdatesOnlyOrganizerCalendarItem(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	ctx := context.Background()
	c := newClient(t, srv, "organizer")
	attendee := "attendee@" + domain

	meeting := createItem(t, c, ews.SendToAllAndSaveCopy, ews.CalendarItem{
		Item:              ews.Item{Subject: "Budget"},
		Start:             "2024-03-01T10:00:00Z",
		End:               "2024-03-01T11:00:00Z",
		RequiredAttendees: ews.NewAttendees(attendee),
	})
	copied, err := c.CopyItem(ctx, &ews.CopyItem{
		ToFolderId: *ews.Distinguished(ews.FolderDrafts),
		ItemIds:    ews.NewItemIds(meeting),
	})
	require.NoError(t, err)
	require.NoError(t, copied.FirstError())

	c.SwitchUser("attendee", "secret", domain)
	inbox := findIn(t, c, ews.FolderInbox)
	require.Len(t, inbox.MeetingRequest, 1)
	accept, err := c.CreateItem(ctx, &ews.CreateItem{
		MessageDisposition: ews.SendAndSaveCopy,
		Items:              ews.Items{AcceptItem: []ews.ResponseObject{{ReferenceItemId: inbox.MeetingRequest[0].ItemId}}},
	})
	require.NoError(t, err)
	require.NoError(t, accept.FirstError())

	responseOf := func(list *ews.Attendees) ews.ResponseType {
		t.Helper()
		require.NotNil(t, list)
		require.Len(t, list.Attendee, 1)
		return list.Attendee[0].ResponseType
	}

	processed := findIn(t, c, ews.FolderDeletedItems)
	require.Len(t, processed.MeetingRequest, 1)
	assert.Empty(t, responseOf(processed.MeetingRequest[0].RequiredAttendees))

	own := findIn(t, c, ews.FolderCalendar)
	require.Len(t, own.CalendarItem, 1)
	assert.Empty(t, responseOf(own.CalendarItem[0].RequiredAttendees))

	c.SwitchUser("organizer", "secret", domain)

	calendar := findIn(t, c, ews.FolderCalendar)
	require.Len(t, calendar.CalendarItem, 1)
	assert.Equal(t, ews.ResponseAccept, responseOf(calendar.CalendarItem[0].RequiredAttendees))

	drafts := findIn(t, c, ews.FolderDrafts)
	require.Len(t, drafts.CalendarItem, 1)
	assert.Empty(t, responseOf(drafts.CalendarItem[0].RequiredAttendees), "a copy is independent of its source")

	sent := findIn(t, c, ews.FolderSentItems)
	require.Len(t, sent.MeetingRequest, 1)
	assert.Empty(t, responseOf(sent.MeetingRequest[0].RequiredAttendees), "sent requests keep the state they were sent with")
}

func TestServer_Auth(t *testing.T) {
	srv := NewServer(WithUser("organizer", "secret"), WithBearerToken("token-1"))
	defer srv.Close()

	ctx := context.Background()
	request := &ews.FindItem{
		Traversal:       ews.Shallow,
		ItemShape:       ews.ItemShape{BaseShape: ews.IdOnly},
		ParentFolderIds: ews.NewFolderIds(ews.FolderInbox),
	}

	c := newClient(t, srv, "organizer")
	resp, err := c.FindItem(ctx, request)
	require.NoError(t, err)
	assert.True(t, resp.Valid())

	c.SwitchUser("organizer", "wrong", domain)
	_, err = c.FindItem(ctx, request)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 401")

	bearer := newClient(t, srv, "attendee", ews.WithAuthenticator(ews.TokenAuth{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token-1"}),
	}))
	resp, err = bearer.FindItem(ctx, request)
	require.NoError(t, err)
	assert.True(t, resp.Valid())

	wrongToken := newClient(t, srv, "attendee", ews.WithAuthenticator(ews.TokenAuth{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token-2"}),
	}))
	_, err = wrongToken.FindItem(ctx, request)
	require.Error(t, err)
}

func TestServer_Protocol(t *testing.T) {
	srv := NewTLSServer()
	defer srv.Close()

	c := newClient(t, srv, "organizer", ews.WithHTTPClient(srv.Client()))
	createItem(t, c, ews.SendToNone, ews.CalendarItem{Item: ews.Item{Subject: "x"}})

	info := c.LastExchange()
	assert.Equal(t, "https", info.Scheme)
	assert.Equal(t, http.StatusOK, info.StatusCode)
	assert.Contains(t, info.ContentType, "text/xml")
	require.NotNil(t, info.ServerVersion)
	assert.Equal(t, 15, info.ServerVersion.MajorVersion)

	res, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestServer_UnknownOperationFaults(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(
		`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body><m:ResolveNames xmlns:m="`+ews.NSMessages+`"/></s:Body></s:Envelope>`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.SetBasicAuth("organizer@"+domain, "secret")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

	ed, err := ews.NewEnvelopeDecoder(res.Body)
	require.NoError(t, err)
	require.True(t, ed.IsFault())
	fault, err := ed.Fault()
	require.NoError(t, err)
	require.NotNil(t, fault.Detail)
	assert.Equal(t, ews.ErrorInvalidRequest, fault.Detail.ResponseCode)
}
