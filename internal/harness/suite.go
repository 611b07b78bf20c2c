// Package harness provides the shared state and helpers of the calendar
// conformance scenarios: roles, adapter wrappers that capture transport
// requirements, item helpers and the polling searches.
package harness

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/slav123/ews-mtgs-conformance/ews"
	"github.com/slav123/ews-mtgs-conformance/internal/config"
	"github.com/slav123/ews-mtgs-conformance/internal/requirement"
)

// Role is the mailbox user a step acts as.
type Role int

const (
	Organizer Role = iota
	Attendee
	Delegate
)

func (r Role) String() string {
	switch r {
	case Organizer:
		return "organizer"
	case Attendee:
		return "attendee"
	case Delegate:
		return "delegate"
	default:
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
}

// ResourcePrefix starts every generated subject and location.
const ResourcePrefix = "MSOXWSMTGS"

type user struct {
	name     string
	password string
	address  string
}

// Suite is the per-scenario state. Create one per scenario with New.
type Suite struct {
	// Name is the short scenario name used in resource names, e.g. S03_TC01.
	Name string

	Log    *logrus.Entry
	Rec    *requirement.Recorder
	Assert requirement.Assert

	Meetings MeetingsAdapter
	Search   SearchAdapter
	Folders  FolderAdapter

	Domain              string
	Location            string
	LocationUpdate      string
	Subject             string
	SubjectUpdate       string
	MeetingWorkspaceURL string
	NetShowURL          string
	RoomAddress         string

	WaitTime            time.Duration
	RetryCount          int
	TimeInterval        int
	PatternInterval     int
	NumberOfOccurrences int
	InstanceIndex       int
	ConferenceType      int

	BaseShape          ews.BaseShape
	MessageDisposition ews.MessageDisposition
	LegacyFreeBusy     ews.LegacyFreeBusyStatus

	// FolderToDelete is removed by Cleanup when set.
	FolderToDelete *ews.FolderId

	users map[Role]user
	now   func() time.Time
	cfg   *config.Config
}

// Option configures a Suite.
type Option func(*Suite)

// WithClock replaces time.Now for resource names and item times.
func WithClock(now func() time.Time) Option {
	return func(s *Suite) { s.now = now }
}

// New initialises a suite from configuration. The adapters are wrapped so
// every operation captures the transport requirements into rec.
func New(name string, cfg *config.Config, adapters Adapters, rec *requirement.Recorder, log *logrus.Entry, opts ...Option) (*Suite, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Suite{
		Name:     name,
		Log:      log.WithFields(logrus.Fields{"component": "harness", "scenario": name}),
		Rec:      rec,
		Assert:   rec.Assert(),
		Meetings: capturingMeetings{MeetingsAdapter: adapters.Meetings, rec: rec},
		Search:   capturingSearch{SearchAdapter: adapters.Search, rec: rec},
		Folders:  capturingFolders{FolderAdapter: adapters.Folders, rec: rec},
		now:      time.Now,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Domain = cfg.Domain
	s.Location = cfg.Location
	s.Subject = s.ResourceName(cfg.MeetingSubject)
	s.MeetingWorkspaceURL = cfg.MeetingWorkspaceURL
	s.NetShowURL = cfg.NetShowURL
	s.LocationUpdate = s.ResourceName(cfg.LocationUpdate)
	s.SubjectUpdate = s.ResourceName(cfg.SubjectUpdate)
	s.RoomAddress = cfg.Address(cfg.RoomName)

	s.users = map[Role]user{
		Organizer: {name: cfg.OrganizerName, password: cfg.OrganizerPassword, address: cfg.Address(cfg.OrganizerName)},
		Attendee:  {name: cfg.AttendeeName, password: cfg.AttendeePassword, address: cfg.Address(cfg.AttendeeName)},
		Delegate:  {name: cfg.DelegateName, password: cfg.DelegatePassword, address: cfg.Address(cfg.DelegateName)},
	}

	s.WaitTime = cfg.Wait()
	s.ConferenceType = 2
	s.PatternInterval = cfg.PatternInterval
	s.NumberOfOccurrences = cfg.NumberOfOccurrences
	s.InstanceIndex = cfg.InstanceIndex
	s.TimeInterval = cfg.TimeInterval
	s.BaseShape = ews.AllProperties
	s.MessageDisposition = ews.SendAndSaveCopy
	s.LegacyFreeBusy = ews.FreeBusyBusy

	retries, err := strconv.Atoi(strings.TrimSpace(cfg.RetryCount))
	if err != nil {
		return nil, s.Assert.Fail("The value of RetryCount property was not converted to an integer value.")
	}
	s.RetryCount = retries

	return s, nil
}

// Address returns the SMTP address of role.
func (s *Suite) Address(role Role) string {
	return s.users[role].address
}

// Now returns the suite clock.
func (s *Suite) Now() time.Time {
	return s.now()
}

// RequirementEnabled reports whether a product behaviour requirement applies.
func (s *Suite) RequirementEnabled(id int) bool {
	return s.Rec.IsEnabled(id)
}

// ResourceName makes a per-run unique name from a configured base name.
func (s *Suite) ResourceName(base string) string {
	t := s.now()
	return fmt.Sprintf("%s_%s_%s_%s_%06d", ResourcePrefix, s.Name, base, t.Format("150405"), t.Nanosecond()/int(time.Microsecond))
}

// ActAs switches every adapter to role, for steps that call an adapter
// directly.
func (s *Suite) ActAs(role Role) {
	s.switchMeetings(role)
	s.switchSearch(role)
	s.switchFolders(role)
}

func (s *Suite) switchMeetings(role Role) {
	u := s.users[role]
	s.Meetings.SwitchUser(u.name, u.password, s.Domain)
}

func (s *Suite) switchSearch(role Role) {
	u := s.users[role]
	s.Search.SwitchUser(u.name, u.password, s.Domain)
}

func (s *Suite) switchFolders(role Role) {
	u := s.users[role]
	s.Folders.SwitchUser(u.name, u.password, s.Domain)
}

// GetDeleteFolderRequest builds a DeleteFolder request for the folders.
func (s *Suite) GetDeleteFolderRequest(deleteType ews.DisposalType, folderIds ...ews.FolderId) (*ews.DeleteFolder, error) {
	if err := s.Assert.True(len(folderIds) > 0, "Folders id should contain at least one Id!"); err != nil {
		return nil, err
	}
	return &ews.DeleteFolder{
		DeleteType: deleteType,
		FolderIds:  ews.FolderIds{FolderId: folderIds},
	}, nil
}

// Cleanup deletes FolderToDelete as the organizer.
func (s *Suite) Cleanup(ctx context.Context) error {
	if s.FolderToDelete == nil {
		return nil
	}

	s.switchFolders(Organizer)
	req, err := s.GetDeleteFolderRequest(ews.HardDelete, *s.FolderToDelete)
	if err != nil {
		return err
	}

	resp, err := s.Folders.DeleteFolder(ctx, req)
	if err != nil {
		return fmt.Errorf("error deleting folder %s: %w", s.FolderToDelete.Id, err)
	}
	if err := checkOperationSuccess(s.Assert, resp, 1); err != nil {
		return err
	}

	s.FolderToDelete = nil
	return nil
}

// checkOperationSuccess asserts that resp holds count messages, all Success.
func checkOperationSuccess(a requirement.Assert, resp *ews.Response, count int) error {
	msgs := resp.Messages()
	if err := requirement.Equal(a, count, len(msgs), "The number of response messages should match the request."); err != nil {
		return err
	}
	for i, m := range msgs {
		if err := requirement.Equal(a, ews.ResponseClassSuccess, m.ResponseClass,
			fmt.Sprintf("The response message %d should succeed: %v.", i, m.Err())); err != nil {
			return err
		}
	}
	return nil
}
