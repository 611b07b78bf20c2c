package harness

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slav123/ews-mtgs-conformance/ews"
	"github.com/slav123/ews-mtgs-conformance/ewstest"
	"github.com/slav123/ews-mtgs-conformance/internal/config"
	"github.com/slav123/ews-mtgs-conformance/internal/requirement"
)

func testConfig(url string) *config.Config {
	return &config.Config{
		URL:                 url,
		Auth:                config.AuthBasic,
		Domain:              "contoso.com",
		OrganizerName:       "organizer",
		OrganizerPassword:   "secret",
		AttendeeName:        "attendee",
		AttendeePassword:    "secret",
		DelegateName:        "delegate",
		DelegatePassword:    "secret",
		RoomName:            "room",
		Location:            "Room 1",
		LocationUpdate:      "Room 2",
		MeetingSubject:      "Subject",
		SubjectUpdate:       "SubjectUpdate",
		WaitTime:            1,
		RetryCount:          "5",
		TimeInterval:        1,
		PatternInterval:     1,
		NumberOfOccurrences: 3,
		InstanceIndex:       1,
	}
}

type fixture struct {
	srv    *ewstest.Server
	client *ews.EWSClient
	cfg    *config.Config
	suite  *Suite
}

func newFixture(t *testing.T, mutate func(cfg *config.Config), opts ...Option) *fixture {
	t.Helper()

	srv := ewstest.NewServer()
	t.Cleanup(srv.Close)

	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	cfg := testConfig(srv.URL)
	if mutate != nil {
		mutate(cfg)
	}

	client, err := cfg.NewClient(context.Background(), log)
	require.NoError(t, err)

	rec := requirement.NewRecorder(requirement.DefaultProtocol, log, cfg.RequirementEnabled)
	s, err := New("S03_TC01", cfg, NewAdapters(client), rec, log, opts...)
	require.NoError(t, err)

	return &fixture{srv: srv, client: client, cfg: cfg, suite: s}
}

func (f *fixture) create(t *testing.T, items ...ews.CalendarItem) []ews.BaseItemId {
	t.Helper()
	msgs, err := f.suite.CreateMultipleCalendarItems(context.Background(), Organizer, CalendarItems(items...), ews.SendToNone)
	require.NoError(t, err)
	require.Len(t, msgs, len(items))
	return ItemIdsOf(msgs)
}

func verified(entries []requirement.Entry) map[string]bool {
	out := make(map[string]bool)
	for _, e := range entries {
		prev, seen := out[e.Name()]
		out[e.Name()] = e.Verified && (!seen || prev)
	}
	return out
}

func TestNew(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 3, 1, 8, 30, 15, 123456789, time.UTC) }
	f := newFixture(t, nil, WithClock(clock))
	s := f.suite

	assert.Equal(t, "MSOXWSMTGS_S03_TC01_Subject_083015_123456", s.Subject)
	assert.Equal(t, "MSOXWSMTGS_S03_TC01_Room 2_083015_123456", s.LocationUpdate)
	assert.Equal(t, "Room 1", s.Location)
	assert.Equal(t, "room@contoso.com", s.RoomAddress)
	assert.Equal(t, "attendee@contoso.com", s.Address(Attendee))
	assert.Equal(t, 5, s.RetryCount)
	assert.Equal(t, time.Millisecond, s.WaitTime)
	assert.Equal(t, ews.AllProperties, s.BaseShape)
	assert.Equal(t, ews.SendAndSaveCopy, s.MessageDisposition)
	assert.Equal(t, ews.FreeBusyBusy, s.LegacyFreeBusy)
	assert.Equal(t, "delegate", Delegate.String())
}

func TestNew_RetryCountNotInteger(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.RetryCount = "many"

	client, err := ews.NewClient(cfg.URL, "organizer", "secret")
	require.NoError(t, err)

	_, err = New("S03_TC01", cfg, NewAdapters(client), requirement.NewRecorder("", nil, nil), nil)

	var assertErr *requirement.AssertionError
	require.True(t, errors.As(err, &assertErr))
	assert.Contains(t, assertErr.Message, "RetryCount")
}

func TestSuite_CopyAndMove(t *testing.T) {
	f := newFixture(t, nil)
	s := f.suite
	ctx := context.Background()

	uid := uuid.NewString()
	ids := f.create(t, ews.CalendarItem{Item: ews.Item{Subject: s.Subject}, UID: uid})

	copied, err := s.CopySingleCalendarItem(ctx, Organizer, ids[0], ews.Distinguished(ews.FolderDrafts))
	require.NoError(t, err)
	require.NotNil(t, copied)

	found, err := s.SearchSingleItem(ctx, Organizer, ews.FolderDrafts, ews.ClassAppointment, uid)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, uid, found.UID)
	assert.Equal(t, ews.ClassAppointment, found.ItemClass)
	require.NotNil(t, found.CalendarItem())
	assert.Equal(t, copied.Items.FirstItemId().Id, found.ItemId.Id)

	moved, err := s.MoveSingleCalendarItem(ctx, Organizer, ids[0], ews.Distinguished(ews.FolderInbox))
	require.NoError(t, err)
	require.NotNil(t, moved)

	gone, err := s.SearchDeletedSingleItem(ctx, Organizer, ews.FolderCalendar, ews.ClassAppointment, uid)
	require.NoError(t, err)
	assert.Nil(t, gone)

	inInbox, err := s.SearchSingleItem(ctx, Organizer, ews.FolderInbox, ews.ClassAppointment, uid)
	require.NoError(t, err)
	require.NotNil(t, inInbox)

	got := verified(s.Rec.Entries())
	for _, name := range []string{
		"MS-OXWSMTGS_R1", "MS-OXWSMTGS_R502",
		"MS-OXWSMTGS_R464", "MS-OXWSMTGS_R597", "MS-OXWSMTGS_R1188", "MS-OXWSMTGS_R1189",
		"MS-OXWSMTGS_R457", "MS-OXWSMTGS_R635", "MS-OXWSMTGS_R1226", "MS-OXWSMTGS_R1227",
	} {
		assert.True(t, got[name], name)
	}
	assert.NotContains(t, got, "MS-OXWSMTGS_R504")
}

func TestSuite_CopyOccurrenceFailsCapture(t *testing.T) {
	f := newFixture(t, nil)
	s := f.suite
	ctx := context.Background()

	ids := f.create(t, ews.CalendarItem{
		Item:  ews.Item{Subject: s.Subject},
		Start: "2024-03-04T09:00:00Z",
		End:   "2024-03-04T09:30:00Z",
		Recurrence: &ews.Recurrence{
			DailyRecurrence:    &ews.DailyRecurrence{Interval: 1},
			NumberedRecurrence: &ews.NumberedRecurrence{StartDate: "2024-03-04", NumberOfOccurrences: 3},
		},
	})
	master := ids[0].(ews.ItemId)

	_, err := s.CopySingleCalendarItem(ctx, Organizer, ews.OccurrenceItemId{RecurringMasterId: master.Id, InstanceIndex: 1}, ews.Distinguished(ews.FolderDrafts))

	var reqErr *requirement.Error
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, 1188, reqErr.Entry.ID)
	assert.Equal(t, ews.ResponseClassError, reqErr.Actual)
}

func TestSuite_UpdateGetDelete(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.EnabledRequirements = []int{8852} })
	s := f.suite
	ctx := context.Background()

	ids := f.create(t,
		ews.CalendarItem{Item: ews.Item{Subject: "first"}, Location: s.Location},
		ews.CalendarItem{Item: ews.Item{Subject: "second"}, Location: s.Location},
	)

	var changes []ItemChange
	for _, id := range ids {
		changes = append(changes, ItemChange{
			ItemId:   id.(ews.ItemId),
			FieldURI: ews.FieldLocation,
			Item:     ews.CalendarItem{Location: s.LocationUpdate},
		})
	}
	updated, err := s.UpdateMultipleCalendarItems(ctx, Organizer, changes, ews.SendToNone)
	require.NoError(t, err)
	require.Len(t, updated, 2)

	got, err := s.GetMultipleCalendarItems(ctx, Organizer, ids)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, m := range got {
		require.Len(t, m.Items.CalendarItem, 1)
		item := m.Items.CalendarItem[0]
		assert.Equal(t, s.LocationUpdate, item.Location)
		assert.NotNil(t, item.ConflictingMeetingCount)
	}
	assert.True(t, verified(s.Rec.Entries())["MS-OXWSCDATA_R8852"])
	assert.True(t, verified(s.Rec.Entries())["MS-OXWSMTGS_R451"])

	deleted, err := s.DeleteMultipleCalendarItems(ctx, Organizer, ids, ews.SendToNone)
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	missing, err := s.GetSingleCalendarItem(ctx, Organizer, ids[0])
	require.NoError(t, err)
	assert.Nil(t, missing)
}

type countingSearch struct {
	SearchAdapter
	calls int32
}

func (c *countingSearch) FindItem(ctx context.Context, request *ews.FindItem) (*ews.Response, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.SearchAdapter.FindItem(ctx, request)
}

func TestSuite_SearchGivesUpAfterRetryCount(t *testing.T) {
	srv := ewstest.NewServer()
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	client, err := cfg.NewClient(context.Background(), logrus.NewEntry(logrus.New()))
	require.NoError(t, err)

	counter := &countingSearch{SearchAdapter: client}
	adapters := NewAdapters(client)
	adapters.Search = counter

	s, err := New("S04_TC01", cfg, adapters, requirement.NewRecorder("", nil, nil), nil)
	require.NoError(t, err)

	found, err := s.SearchSingleItem(context.Background(), Attendee, ews.FolderInbox, ews.ClassMeetingRequest, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.EqualValues(t, 5, atomic.LoadInt32(&counter.calls))

	ids, err := s.SearchItemIds(context.Background(), Attendee, ews.FolderInbox, "", "")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSuite_SearchHonoursContext(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.WaitTime = 10000 })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.suite.SearchSingleItem(ctx, Organizer, ews.FolderInbox, ews.ClassAppointment, "uid")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSuite_MeetingSearchWaitsForDelivery(t *testing.T) {
	srv := ewstest.NewServer(ewstest.WithDeliveryDelay(30 * time.Millisecond))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.WaitTime = 10
	cfg.RetryCount = "50"

	client, err := cfg.NewClient(context.Background(), logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	s, err := New("S03_TC02", cfg, NewAdapters(client), requirement.NewRecorder("", nil, nil), nil)
	require.NoError(t, err)

	ctx := context.Background()
	uid := uuid.NewString()
	created, err := s.CreateSingleCalendarItem(ctx, Organizer, CalendarItems(ews.CalendarItem{
		Item:              ews.Item{Subject: s.Subject},
		UID:               uid,
		RequiredAttendees: ews.NewAttendees(s.Address(Attendee)),
	}), ews.SendOnlyToAll)
	require.NoError(t, err)
	require.NotNil(t, created)

	request, err := s.SearchSingleItemBy(ctx, Attendee, ews.FolderInbox, ews.FieldSubject, s.Subject, uid)
	require.NoError(t, err)
	require.NotNil(t, request)
	assert.Equal(t, ews.ClassMeetingRequest, request.ItemClass)
	assert.IsType(t, &ews.MeetingRequest{}, request.Item)
	assert.Nil(t, request.CalendarItem())
}

func TestSuite_CleanupFoldersByRole(t *testing.T) {
	f := newFixture(t, nil)
	s := f.suite
	ctx := context.Background()

	ids := f.create(t, ews.CalendarItem{Item: ews.Item{Subject: "a"}}, ews.CalendarItem{Item: ews.Item{Subject: "b"}})
	_, err := s.CopyMultipleCalendarItems(ctx, Organizer, ids, ews.Distinguished(ews.FolderDrafts))
	require.NoError(t, err)

	organizer := s.Address(Organizer)
	require.Equal(t, 2, f.srv.ItemCount(organizer, ews.FolderCalendar))
	require.Equal(t, 2, f.srv.ItemCount(organizer, ews.FolderDrafts))

	require.NoError(t, s.CleanupFoldersByRole(ctx, Organizer, ews.FolderCalendar, ews.FolderDrafts, ews.FolderInbox))

	assert.Zero(t, f.srv.ItemCount(organizer, ews.FolderCalendar))
	assert.Zero(t, f.srv.ItemCount(organizer, ews.FolderDrafts))
}

func TestSuite_CleanupFolderWaitsForDelivery(t *testing.T) {
	srv := ewstest.NewServer(ewstest.WithDeliveryDelay(30 * time.Millisecond))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.WaitTime = 10
	cfg.RetryCount = "50"

	client, err := cfg.NewClient(context.Background(), logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	s, err := New("S03_TC02", cfg, NewAdapters(client), requirement.NewRecorder("", nil, nil), nil)
	require.NoError(t, err)

	ctx := context.Background()
	created, err := s.CreateSingleCalendarItem(ctx, Organizer, CalendarItems(ews.CalendarItem{
		Item:              ews.Item{Subject: s.Subject},
		RequiredAttendees: ews.NewAttendees(s.Address(Attendee)),
	}), ews.SendOnlyToAll)
	require.NoError(t, err)
	require.NotNil(t, created)

	attendee := s.Address(Attendee)
	require.Equal(t, 1, srv.ItemCount(attendee, ews.FolderInbox), "the request is still in delivery")

	require.NoError(t, s.CleanupFoldersByRole(ctx, Attendee, ews.FolderInbox))
	assert.Zero(t, srv.ItemCount(attendee, ews.FolderInbox))
}

func TestSuite_CleanupDeletesFolder(t *testing.T) {
	f := newFixture(t, nil)
	s := f.suite
	ctx := context.Background()

	require.NoError(t, s.Cleanup(ctx), "nothing to delete")

	resp, err := f.client.CreateFolder(ctx, &ews.CreateFolder{
		ParentFolderId: *ews.Distinguished(ews.FolderInbox),
		Folders:        ews.Folders{Folder: []ews.BaseFolder{{DisplayName: "Scratch"}}},
	})
	require.NoError(t, err)
	require.NoError(t, resp.FirstError())
	s.FolderToDelete = resp.Messages()[0].Folders.All()[0].FolderId

	require.NoError(t, s.Cleanup(ctx))
	assert.Nil(t, s.FolderToDelete)

	s.FolderToDelete = &ews.FolderId{Id: "missing"}
	err = s.Cleanup(ctx)
	var assertErr *requirement.AssertionError
	require.True(t, errors.As(err, &assertErr))

	_, err = s.GetDeleteFolderRequest(ews.HardDelete)
	require.Error(t, err)
}

func TestSuite_TransportOverTLS(t *testing.T) {
	srv := ewstest.NewTLSServer()
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	client, err := cfg.NewClient(context.Background(), logrus.NewEntry(logrus.New()), ews.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	rec := requirement.NewRecorder("", nil, cfg.RequirementEnabled)
	s, err := New("S04_TC01", cfg, NewAdapters(client), rec, nil)
	require.NoError(t, err)

	_, err = s.CreateSingleCalendarItem(context.Background(), Organizer, CalendarItems(ews.CalendarItem{Item: ews.Item{Subject: "tls"}}), ews.SendToNone)
	require.NoError(t, err)

	got := verified(rec.Entries())
	assert.True(t, got["MS-OXWSMTGS_R504"])
	assert.NotContains(t, got, "MS-OXWSMTGS_R502")
}
