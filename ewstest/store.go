package ewstest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slav123/ews-mtgs-conformance/ews"
)

type kind int

const (
	kindCalendarItem kind = iota
	kindMessage
	kindMeetingRequest
	kindMeetingResponse
	kindMeetingCancellation
)

type mailbox struct {
	address string
	folders map[ews.DistinguishedFolderName]*folder
}

type folder struct {
	id            string
	displayName   string
	class         string
	distinguished ews.DistinguishedFolderName
	mailbox       *mailbox
	parent        *folder
}

func (f *folder) isCalendar() bool {
	return f.distinguished == ews.FolderCalendar || f.class == "IPF.Appointment"
}

// record is one stored item. Calendar items keep their data in calendar,
// every other kind in message.
type record struct {
	id        string
	seq       int
	changeKey int
	kind      kind
	folder    *folder
	visibleAt time.Time

	calendar ews.CalendarItem
	message  ews.MeetingRequest

	// Occurrence state of a recurring master, keyed by instance index.
	deleted    map[int]bool
	exceptions map[int]*ews.CalendarItem
}

func (r *record) uid() string {
	if r.kind == kindCalendarItem {
		return r.calendar.UID
	}
	return r.message.UID
}

func (r *record) itemClass() string {
	if r.kind == kindCalendarItem {
		return r.calendar.ItemClass
	}
	return r.message.ItemClass
}

func (r *record) subject() string {
	if r.kind == kindCalendarItem {
		return r.calendar.Subject
	}
	return r.message.Subject
}

func (r *record) isMaster() bool {
	return r.kind == kindCalendarItem && r.calendar.CalendarItemType == ews.CalendarItemRecurringMaster
}

// clone returns a record that shares no mutable state with r.
func (r *record) clone() *record {
	c := *r
	c.calendar = copyCalendarItem(r.calendar)
	c.message = copyMeetingRequest(r.message)
	c.deleted = make(map[int]bool, len(r.deleted))
	for k, v := range r.deleted {
		c.deleted[k] = v
	}
	c.exceptions = make(map[int]*ews.CalendarItem, len(r.exceptions))
	for k, v := range r.exceptions {
		ex := copyCalendarItem(*v)
		c.exceptions[k] = &ex
	}
	return &c
}

// copyCalendarItem deep-copies the list and recurrence fields of ci. Stored
// items and rendered responses never alias each other through them.
func copyCalendarItem(ci ews.CalendarItem) ews.CalendarItem {
	ci.Body = copyBody(ci.Body)
	ci.RequiredAttendees = copyAttendees(ci.RequiredAttendees)
	ci.OptionalAttendees = copyAttendees(ci.OptionalAttendees)
	ci.Resources = copyAttendees(ci.Resources)
	ci.Recurrence = copyRecurrence(ci.Recurrence)
	return ci
}

func copyMessage(m ews.Message) ews.Message {
	m.Body = copyBody(m.Body)
	if m.ToRecipients != nil {
		m.ToRecipients = &ews.Recipients{Mailbox: append([]ews.EmailAddress(nil), m.ToRecipients.Mailbox...)}
	}
	return m
}

func copyMeetingMessage(m ews.MeetingMessage) ews.MeetingMessage {
	m.Message = copyMessage(m.Message)
	return m
}

func copyMeetingRequest(m ews.MeetingRequest) ews.MeetingRequest {
	m.MeetingMessage = copyMeetingMessage(m.MeetingMessage)
	m.RequiredAttendees = copyAttendees(m.RequiredAttendees)
	m.OptionalAttendees = copyAttendees(m.OptionalAttendees)
	m.Resources = copyAttendees(m.Resources)
	m.Recurrence = copyRecurrence(m.Recurrence)
	return m
}

func copyBody(b *ews.ItemBody) *ews.ItemBody {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func copyAttendees(a *ews.Attendees) *ews.Attendees {
	if a == nil {
		return nil
	}
	return &ews.Attendees{Attendee: append([]ews.Attendee(nil), a.Attendee...)}
}

func copyRecurrence(rec *ews.Recurrence) *ews.Recurrence {
	if rec == nil {
		return nil
	}
	c := ews.Recurrence{}
	if rec.DailyRecurrence != nil {
		v := *rec.DailyRecurrence
		c.DailyRecurrence = &v
	}
	if rec.WeeklyRecurrence != nil {
		v := *rec.WeeklyRecurrence
		c.WeeklyRecurrence = &v
	}
	if rec.NoEndRecurrence != nil {
		v := *rec.NoEndRecurrence
		c.NoEndRecurrence = &v
	}
	if rec.EndDateRecurrence != nil {
		v := *rec.EndDateRecurrence
		c.EndDateRecurrence = &v
	}
	if rec.NumberedRecurrence != nil {
		v := *rec.NumberedRecurrence
		c.NumberedRecurrence = &v
	}
	return &c
}

func (r *record) changeKeyString() string {
	return "CK" + strconv.Itoa(r.changeKey)
}

const occurrenceSeparator = ".OCC"

// occurrenceID is the item id of one occurrence of a recurring master.
func occurrenceID(masterID string, index int) string {
	return masterID + occurrenceSeparator + strconv.Itoa(index)
}

func parseOccurrenceID(id string) (string, int, bool) {
	i := strings.LastIndex(id, occurrenceSeparator)
	if i <= 0 {
		return "", 0, false
	}
	index, err := strconv.Atoi(id[i+len(occurrenceSeparator):])
	if err != nil {
		return "", 0, false
	}
	return id[:i], index, true
}

// target is a resolved item id: a stored record, or one occurrence of it
// when index is positive.
type target struct {
	rec   *record
	index int
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// mailboxFor returns the mailbox of address, creating it with the
// distinguished folders on first use. The caller holds e.mu.
func (e *Exchange) mailboxFor(address string) *mailbox {
	key := strings.ToLower(strings.TrimSpace(address))
	if mb, ok := e.mailboxes[key]; ok {
		return mb
	}

	mb := &mailbox{address: key, folders: make(map[ews.DistinguishedFolderName]*folder)}
	root := &folder{id: newID(), displayName: "Top of Information Store", distinguished: ews.FolderMsgFolderRoot, mailbox: mb}
	mb.folders[ews.FolderMsgFolderRoot] = root
	e.folders[root.id] = root

	for _, name := range ews.DistinguishedFolders {
		if name == ews.FolderMsgFolderRoot {
			continue
		}
		f := &folder{id: newID(), displayName: string(name), distinguished: name, mailbox: mb, parent: root, class: "IPF.Note"}
		if name == ews.FolderCalendar {
			f.class = "IPF.Appointment"
		}
		mb.folders[name] = f
		e.folders[f.id] = f
	}

	e.mailboxes[key] = mb
	return mb
}

// resolveFolder finds a target folder. A FolderId must name a folder of mb;
// a DistinguishedFolderId may name another mailbox.
func (e *Exchange) resolveFolder(mb *mailbox, id ews.TargetFolderId) (*folder, ews.ResponseCode) {
	switch {
	case id.FolderId != nil:
		f, ok := e.folders[id.FolderId.Id]
		switch {
		case !ok:
			return nil, ews.ErrorFolderNotFound
		case f.mailbox != mb:
			return nil, ews.ErrorAccessDenied
		}
		return f, ews.NoError
	case id.DistinguishedFolderId != nil:
		owner := mb
		if m := id.DistinguishedFolderId.Mailbox; m != nil && m.EmailAddress != "" {
			owner = e.mailboxFor(m.EmailAddress)
		}
		f, ok := owner.folders[id.DistinguishedFolderId.Id]
		if !ok {
			return nil, ews.ErrorFolderNotFound
		}
		return f, ews.NoError
	default:
		return nil, ews.ErrorInvalidRequest
	}
}

func (e *Exchange) resolveFolderIds(mb *mailbox, ids ews.FolderIds) ([]*folder, ews.ResponseCode) {
	var out []*folder
	for i := range ids.FolderId {
		f, code := e.resolveFolder(mb, ews.TargetFolderId{FolderId: &ids.FolderId[i]})
		if code != ews.NoError {
			return nil, code
		}
		out = append(out, f)
	}
	for i := range ids.DistinguishedFolderId {
		f, code := e.resolveFolder(mb, ews.TargetFolderId{DistinguishedFolderId: &ids.DistinguishedFolderId[i]})
		if code != ews.NoError {
			return nil, code
		}
		out = append(out, f)
	}
	return out, ews.NoError
}

func (e *Exchange) visible(r *record) bool {
	return !e.now().Before(r.visibleAt)
}

// lookup finds an item id in the mailbox. Occurrence ids resolve to their
// master with a positive index.
func (e *Exchange) lookup(mb *mailbox, id string) (target, ews.ResponseCode) {
	if id == "" {
		return target{}, ews.ErrorInvalidIdMalformed
	}

	if r, ok := e.records[id]; ok {
		if r.folder.mailbox != mb || !e.visible(r) {
			return target{}, ews.ErrorItemNotFound
		}
		return target{rec: r}, ews.NoError
	}

	masterID, index, ok := parseOccurrenceID(id)
	if !ok {
		return target{}, ews.ErrorItemNotFound
	}
	t, code := e.lookup(mb, masterID)
	if code != ews.NoError {
		return target{}, code
	}
	return e.occurrence(t.rec, index)
}

func (e *Exchange) occurrence(master *record, index int) (target, ews.ResponseCode) {
	if !master.isMaster() {
		return target{}, ews.ErrorCalendarOccurrenceIndexIsOutOfRecurrenceRange
	}
	if _, ok := master.occurrenceStart(index); !ok {
		return target{}, ews.ErrorCalendarOccurrenceIndexIsOutOfRecurrenceRange
	}
	if master.deleted[index] {
		return target{}, ews.ErrorCalendarOccurrenceIsDeletedFromRecurrence
	}
	return target{rec: master, index: index}, ews.NoError
}

// resolve maps any BaseItemId kind to a target.
func (e *Exchange) resolve(mb *mailbox, id ews.BaseItemId) (target, ews.ResponseCode) {
	switch id := id.(type) {
	case ews.ItemId:
		return e.lookup(mb, id.Id)
	case ews.OccurrenceItemId:
		t, code := e.lookup(mb, id.RecurringMasterId)
		if code != ews.NoError {
			return target{}, code
		}
		if t.index > 0 {
			return target{}, ews.ErrorCalendarOccurrenceIndexIsOutOfRecurrenceRange
		}
		return e.occurrence(t.rec, id.InstanceIndex)
	case ews.RecurringMasterItemId:
		t, code := e.lookup(mb, id.OccurrenceId)
		if code != ews.NoError {
			return target{}, code
		}
		if t.index == 0 {
			return target{}, ews.ErrorCalendarCannotUseIdForOccurrenceId
		}
		return target{rec: t.rec}, ews.NoError
	default:
		return target{}, ews.ErrorInvalidIdMalformed
	}
}

// store files a record in a folder under a fresh id.
func (e *Exchange) store(r *record, f *folder, visibleAt time.Time) *record {
	e.seq++
	r.id = newID()
	r.seq = e.seq
	r.changeKey++
	r.folder = f
	r.visibleAt = visibleAt
	e.records[r.id] = r
	return r
}

// relocate moves a record to another folder. Like Exchange, a moved item
// gets a new id.
func (e *Exchange) relocate(r *record, f *folder) {
	delete(e.records, r.id)
	e.store(r, f, r.visibleAt)
}

func (e *Exchange) remove(r *record) {
	delete(e.records, r.id)
}

// recordsIn returns the visible records of a folder in creation order.
func (e *Exchange) recordsIn(f *folder) []*record {
	var out []*record
	for _, r := range e.records {
		if r.folder == f && e.visible(r) {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out
}

// calendarItemsByUID finds the calendar items of a mailbox carrying uid.
func (e *Exchange) calendarItemsByUID(mb *mailbox, uid string) []*record {
	var out []*record
	for _, r := range e.records {
		if r.kind == kindCalendarItem && r.folder.mailbox == mb && r.calendar.UID == uid {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out
}

func sortRecords(rs []*record) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].seq < rs[j].seq })
}

func (e *Exchange) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e *Exchange) newRecord(k kind) *record {
	return &record{
		kind:       k,
		deleted:    make(map[int]bool),
		exceptions: make(map[int]*ews.CalendarItem),
	}
}

func itemNotFoundText(code ews.ResponseCode) string {
	switch code {
	case ews.ErrorItemNotFound:
		return "The specified object was not found in the store."
	case ews.ErrorFolderNotFound:
		return "The specified folder could not be found in the store."
	case ews.ErrorAccessDenied:
		return "Access is denied."
	case ews.ErrorInvalidIdMalformed:
		return "Id is malformed."
	case ews.ErrorCalendarCannotMoveOrCopyOccurrence:
		return "Cannot move or copy an occurrence of a recurring calendar item."
	case ews.ErrorCalendarCannotUseIdForOccurrenceId:
		return "Id must be an occurrence id."
	case ews.ErrorCalendarOccurrenceIndexIsOutOfRecurrenceRange:
		return "Occurrence index is out of recurrence range."
	case ews.ErrorCalendarOccurrenceIsDeletedFromRecurrence:
		return "Occurrence with this index was previously deleted from the recurrence."
	default:
		return fmt.Sprintf("The request failed with %s.", code)
	}
}
