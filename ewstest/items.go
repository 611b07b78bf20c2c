package ewstest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slav123/ews-mtgs-conformance/ews"
)

func errorMessage(code ews.ResponseCode) ews.ResponseMessage {
	return ews.ErrorMessage(code, itemNotFoundText(code))
}

func successWith(items *ews.Items) ews.ResponseMessage {
	msg := ews.SuccessMessage()
	msg.Items = items
	return msg
}

func smtp(address string) ews.EmailAddress {
	return ews.EmailAddress{EmailAddress: address, RoutingType: "SMTP", MailboxType: "Mailbox"}
}

func organizerOf(r *record) string {
	var org *ews.SingleRecipient
	if r.kind == kindCalendarItem {
		org = r.calendar.Organizer
	} else {
		org = r.message.Organizer
	}
	if org == nil {
		return ""
	}
	return strings.ToLower(org.Mailbox.EmailAddress)
}

// attendeeAddresses lists the required, optional and resource attendees of
// a meeting, except the organizer.
func attendeeAddresses(item ews.CalendarItem, organizer string) []string {
	seen := map[string]bool{strings.ToLower(organizer): true}
	var out []string
	for _, list := range []*ews.Attendees{item.RequiredAttendees, item.OptionalAttendees, item.Resources} {
		if list == nil {
			continue
		}
		for _, a := range list.Attendee {
			address := strings.ToLower(a.Mailbox.EmailAddress)
			if address == "" || seen[address] {
				continue
			}
			seen[address] = true
			out = append(out, address)
		}
	}
	return out
}

func (e *Exchange) createItem(mb *mailbox, req *ews.CreateItem) *ews.Response {
	resp := ews.NewResponse("CreateItem")

	var saved *folder
	if req.SavedItemFolderId != nil {
		f, code := e.resolveFolder(mb, *req.SavedItemFolderId)
		if code != ews.NoError {
			for i := 0; i < max(req.Items.Len(), 1); i++ {
				resp.Add(errorMessage(code))
			}
			return resp
		}
		saved = f
	}

	for _, item := range req.Items.CalendarItem {
		resp.Add(e.createCalendarItem(mb, req, saved, item))
	}
	for _, item := range req.Items.Message {
		resp.Add(e.createMessage(mb, req, saved, item))
	}
	for _, obj := range req.Items.AcceptItem {
		resp.Add(e.respond(mb, req, obj, ews.ResponseAccept))
	}
	for _, obj := range req.Items.TentativelyAcceptItem {
		resp.Add(e.respond(mb, req, obj, ews.ResponseTentative))
	}
	for _, obj := range req.Items.DeclineItem {
		resp.Add(e.respond(mb, req, obj, ews.ResponseDecline))
	}
	for _, obj := range req.Items.RemoveItem {
		resp.Add(e.removeItem(mb, obj))
	}

	if !resp.Valid() {
		resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, "The request contains no items."))
	}
	return resp
}

// normalizeTimes fills in missing times and rewrites both ends in UTC.
func (e *Exchange) normalizeTimes(item *ews.CalendarItem) ews.ResponseCode {
	if item.Start == "" {
		item.Start = e.now().UTC().Truncate(time.Second).Format(time.RFC3339)
	}
	start, err := ews.ParseDateTime(item.Start, time.UTC)
	if err != nil {
		return ews.ErrorInvalidRequest
	}
	if item.End == "" {
		item.End = start.Add(30 * time.Minute).Format(time.RFC3339)
	}
	end, err := ews.ParseDateTime(item.End, time.UTC)
	if err != nil {
		return ews.ErrorInvalidRequest
	}
	if end.Before(start) {
		return ews.ErrorCalendarEndDateIsEarlierThanStartDate
	}

	item.Start = start.UTC().Format(time.RFC3339)
	item.End = end.UTC().Format(time.RFC3339)
	return ews.NoError
}

func (e *Exchange) createCalendarItem(mb *mailbox, req *ews.CreateItem, saved *folder, item ews.CalendarItem) ews.ResponseMessage {
	if code := e.normalizeTimes(&item); code != ews.NoError {
		return errorMessage(code)
	}

	item.ItemId = nil
	item.ParentFolderId = nil
	if item.ItemClass == "" {
		item.ItemClass = ews.ClassAppointment
	}
	if item.UID == "" {
		item.UID = uuid.NewString()
	}
	if item.LegacyFreeBusyStatus == "" {
		item.LegacyFreeBusyStatus = ews.FreeBusyBusy
	}

	attendees := attendeeAddresses(item, mb.address)
	item.Organizer = &ews.SingleRecipient{Mailbox: smtp(mb.address)}
	item.IsMeeting = ews.Bool(item.RequiredAttendees != nil || item.OptionalAttendees != nil || item.Resources != nil)
	item.IsCancelled = ews.Bool(false)
	item.MyResponseType = ews.ResponseOrganizer
	item.CalendarItemType = ews.CalendarItemSingle
	item.IsRecurring = ews.Bool(false)
	item.DateTimeCreated = e.timestamp()
	item.DateTimeStamp = e.timestamp()

	if item.Recurrence != nil {
		start, _ := ews.ParseDateTime(item.Start, time.UTC)
		if _, err := seriesRule(item.Recurrence, start); err != nil {
			return ews.ErrorMessage(ews.ErrorInvalidRecurrence, err.Error())
		}
		item.CalendarItemType = ews.CalendarItemRecurringMaster
		item.IsRecurring = ews.Bool(true)
	}

	send := req.SendMeetingInvitations.Sends() && len(attendees) > 0
	item.MeetingRequestWasSent = ews.Bool(send)

	f := saved
	if f == nil {
		f = mb.folders[ews.FolderCalendar]
	}

	r := e.newRecord(kindCalendarItem)
	r.calendar = item
	e.store(r, f, time.Time{})

	if send {
		e.sendMeetingRequest(mb, r, attendees, ews.MeetingRequestNew, req.SendMeetingInvitations.SavesCopy())
	}

	items := &ews.Items{}
	e.render(target{rec: r}, idShape, items)
	return successWith(items)
}

func (e *Exchange) createMessage(mb *mailbox, req *ews.CreateItem, saved *folder, item ews.Message) ews.ResponseMessage {
	item.ItemId = nil
	item.ParentFolderId = nil
	if item.ItemClass == "" {
		item.ItemClass = ews.ClassNote
	}
	item.DateTimeCreated = e.timestamp()
	item.From = &ews.SingleRecipient{Mailbox: smtp(mb.address)}
	item.Sender = item.From

	r := e.newRecord(kindMessage)
	r.message.Message = item

	if req.MessageDisposition == ews.SaveOnly || req.MessageDisposition == "" {
		f := saved
		if f == nil {
			f = mb.folders[ews.FolderDrafts]
		}
		e.store(r, f, time.Time{})
		items := &ews.Items{}
		e.render(target{rec: r}, idShape, items)
		return successWith(items)
	}

	item.DateTimeSent = e.timestamp()
	if item.ToRecipients != nil {
		for _, to := range item.ToRecipients.Mailbox {
			delivered := e.newRecord(kindMessage)
			delivered.message.Message = copyMessage(item)
			delivered.message.DateTimeReceived = e.timestamp()
			e.deliver(mb, delivered, to.EmailAddress)
		}
	}
	if req.MessageDisposition == ews.SendAndSaveCopy {
		f := saved
		if f == nil {
			f = mb.folders[ews.FolderSentItems]
		}
		r.message.Message = item
		e.store(r, f, time.Time{})
	}
	return successWith(&ews.Items{})
}

// deliver stores a record in the inbox of address. Delivery to another
// mailbox becomes visible after the configured delay.
func (e *Exchange) deliver(from *mailbox, r *record, address string) {
	to := e.mailboxFor(address)
	visibleAt := time.Time{}
	if to != from {
		visibleAt = e.now().Add(e.delay)
	}
	e.store(r, to.folders[ews.FolderInbox], visibleAt)
}

func (e *Exchange) meetingMessage(from *mailbox, ci ews.CalendarItem, class, subject string, to []string) ews.MeetingMessage {
	recipients := &ews.Recipients{}
	for _, address := range to {
		recipients.Mailbox = append(recipients.Mailbox, smtp(address))
	}
	sender := &ews.SingleRecipient{Mailbox: smtp(from.address)}

	return ews.MeetingMessage{
		Message: ews.Message{
			Item: ews.Item{
				ItemClass:       class,
				Subject:         subject,
				Body:            ci.Body,
				DateTimeSent:    e.timestamp(),
				DateTimeCreated: e.timestamp(),
			},
			Sender:       sender,
			ToRecipients: recipients,
			From:         sender,
			IsRead:       ews.Bool(false),
		},
		UID:           ci.UID,
		RecurrenceId:  ci.RecurrenceId,
		DateTimeStamp: e.timestamp(),
	}
}

func (e *Exchange) sendMeetingRequest(organizer *mailbox, r *record, attendees []string, requestType ews.MeetingRequestType, saveCopy bool) {
	ci := r.calendar
	msg := ews.MeetingRequest{
		MeetingMessage:         e.meetingMessage(organizer, ci, ews.ClassMeetingRequest, ci.Subject, attendees),
		MeetingRequestType:     requestType,
		IntendedFreeBusyStatus: ci.LegacyFreeBusyStatus,
		Start:                  ci.Start,
		End:                    ci.End,
		Location:               ci.Location,
		CalendarItemType:       ci.CalendarItemType,
		Organizer:              ci.Organizer,
		RequiredAttendees:      ci.RequiredAttendees,
		OptionalAttendees:      ci.OptionalAttendees,
		Resources:              ci.Resources,
		Recurrence:             ci.Recurrence,
	}
	msg.ResponseType = ews.ResponseNoResponseReceived

	for _, address := range attendees {
		delivered := e.newRecord(kindMeetingRequest)
		delivered.message = copyMeetingRequest(msg)
		delivered.message.DateTimeReceived = e.timestamp()
		e.deliver(organizer, delivered, address)
	}

	if saveCopy {
		sent := e.newRecord(kindMeetingRequest)
		sent.message = copyMeetingRequest(msg)
		e.store(sent, organizer.folders[ews.FolderSentItems], time.Time{})
	}
}

func (e *Exchange) sendCancellation(organizer *mailbox, r *record, attendees []string, saveCopy bool) {
	ci := r.calendar
	msg := ews.MeetingRequest{
		MeetingMessage: e.meetingMessage(organizer, ci, ews.ClassMeetingCancellation, "Canceled: "+ci.Subject, attendees),
		Organizer:      ci.Organizer,
	}

	for _, address := range attendees {
		delivered := e.newRecord(kindMeetingCancellation)
		delivered.message = copyMeetingRequest(msg)
		delivered.message.DateTimeReceived = e.timestamp()
		e.deliver(organizer, delivered, address)

		for _, c := range e.calendarItemsByUID(e.mailboxFor(address), ci.UID) {
			c.calendar.IsCancelled = ews.Bool(true)
			c.changeKey++
		}
	}

	if saveCopy {
		sent := e.newRecord(kindMeetingCancellation)
		sent.message = copyMeetingRequest(msg)
		e.store(sent, organizer.folders[ews.FolderSentItems], time.Time{})
	}
}

var responseClasses = map[ews.ResponseType]struct{ class, prefix string }{
	ews.ResponseAccept:    {ews.ClassMeetingResponsePos, "Accepted: "},
	ews.ResponseTentative: {ews.ClassMeetingResponseTent, "Tentative: "},
	ews.ResponseDecline:   {ews.ClassMeetingResponseNeg, "Declined: "},
}

// respond answers a meeting request for the attendee mailbox.
func (e *Exchange) respond(mb *mailbox, req *ews.CreateItem, obj ews.ResponseObject, answer ews.ResponseType) ews.ResponseMessage {
	if obj.ReferenceItemId == nil {
		return ews.ErrorMessage(ews.ErrorInvalidRequest, "ReferenceItemId is required.")
	}
	t, code := e.lookup(mb, obj.ReferenceItemId.Id)
	if code != ews.NoError {
		return errorMessage(code)
	}
	ref := t.rec
	if ref.kind != kindMeetingRequest && ref.kind != kindCalendarItem {
		return ews.ErrorMessage(ews.ErrorInvalidRequest, "The referenced item is not a meeting.")
	}

	organizer := organizerOf(ref)
	switch organizer {
	case mb.address:
		return errorMessage(ews.ErrorCalendarIsOrganizerForAccept)
	case "":
		return ews.ErrorMessage(ews.ErrorInvalidRequest, "The referenced meeting has no organizer.")
	}

	var ci ews.CalendarItem
	if ref.kind == kindCalendarItem {
		ci = copyCalendarItem(ref.calendar)
	} else {
		ci = calendarItemFromRequest(ref.message)
	}

	if req.MessageDisposition == ews.SaveOnly {
		draft := e.newRecord(kindMeetingResponse)
		draft.message.MeetingMessage = e.meetingMessage(mb, ci, responseClasses[answer].class, responseClasses[answer].prefix+ci.Subject, []string{organizer})
		draft.message.ResponseType = answer
		e.store(draft, mb.folders[ews.FolderDrafts], time.Time{})
		items := &ews.Items{}
		e.render(target{rec: draft}, idShape, items)
		return successWith(items)
	}

	items := &ews.Items{}
	existing := e.calendarItemsByUID(mb, ci.UID)
	switch answer {
	case ews.ResponseDecline:
		for _, c := range existing {
			e.remove(c)
		}
	default:
		if len(existing) == 0 {
			c := e.newRecord(kindCalendarItem)
			c.calendar = ci
			c.calendar.MyResponseType = answer
			if answer == ews.ResponseTentative {
				c.calendar.LegacyFreeBusyStatus = ews.FreeBusyTentative
			}
			existing = append(existing, e.store(c, mb.folders[ews.FolderCalendar], time.Time{}))
		}
		for _, c := range existing {
			c.calendar.MyResponseType = answer
			c.changeKey++
		}
		e.render(target{rec: existing[0]}, idShape, items)
	}

	for _, c := range e.calendarItemsByUID(e.mailboxFor(organizer), ci.UID) {
		if c.folder.isCalendar() {
			setAttendeeResponse(&c.calendar, mb.address, answer)
			c.changeKey++
		}
	}

	response := e.newRecord(kindMeetingResponse)
	response.message.MeetingMessage = e.meetingMessage(mb, ci, responseClasses[answer].class, responseClasses[answer].prefix+ci.Subject, []string{organizer})
	response.message.ResponseType = answer
	response.message.Organizer = ci.Organizer

	if req.MessageDisposition == ews.SendAndSaveCopy || req.MessageDisposition == "" {
		sent := response.clone()
		e.store(sent, mb.folders[ews.FolderSentItems], time.Time{})
	}
	e.deliver(mb, response, organizer)

	if ref.kind == kindMeetingRequest {
		ref.message.HasBeenProcessed = ews.Bool(true)
		e.relocate(ref, mb.folders[ews.FolderDeletedItems])
	}

	return successWith(items)
}

func calendarItemFromRequest(req ews.MeetingRequest) ews.CalendarItem {
	ci := ews.CalendarItem{
		Item: ews.Item{
			ItemClass:       ews.ClassAppointment,
			Subject:         req.Subject,
			Body:            req.Body,
			DateTimeCreated: req.DateTimeReceived,
		},
		UID:                  req.UID,
		RecurrenceId:         req.RecurrenceId,
		DateTimeStamp:        req.DateTimeStamp,
		Start:                req.Start,
		End:                  req.End,
		LegacyFreeBusyStatus: req.IntendedFreeBusyStatus,
		Location:             req.Location,
		IsMeeting:            ews.Bool(true),
		IsCancelled:          ews.Bool(false),
		IsRecurring:          ews.Bool(req.Recurrence != nil),
		CalendarItemType:     req.CalendarItemType,
		Organizer:            req.Organizer,
		RequiredAttendees:    req.RequiredAttendees,
		OptionalAttendees:    req.OptionalAttendees,
		Resources:            req.Resources,
		Recurrence:           req.Recurrence,
	}
	if ci.CalendarItemType == "" {
		ci.CalendarItemType = ews.CalendarItemSingle
	}
	return copyCalendarItem(ci)
}

func setAttendeeResponse(ci *ews.CalendarItem, address string, answer ews.ResponseType) {
	for _, list := range []*ews.Attendees{ci.RequiredAttendees, ci.OptionalAttendees, ci.Resources} {
		if list == nil {
			continue
		}
		for i := range list.Attendee {
			if strings.EqualFold(list.Attendee[i].Mailbox.EmailAddress, address) {
				list.Attendee[i].ResponseType = answer
			}
		}
	}
}

// removeItem drops a cancelled meeting from the attendee calendar.
func (e *Exchange) removeItem(mb *mailbox, obj ews.ResponseObject) ews.ResponseMessage {
	if obj.ReferenceItemId == nil {
		return ews.ErrorMessage(ews.ErrorInvalidRequest, "ReferenceItemId is required.")
	}
	t, code := e.lookup(mb, obj.ReferenceItemId.Id)
	if code != ews.NoError {
		return errorMessage(code)
	}
	ref := t.rec
	if organizerOf(ref) == mb.address {
		return errorMessage(ews.ErrorCalendarIsOrganizerForRemove)
	}
	if ref.kind != kindMeetingCancellation {
		return ews.ErrorMessage(ews.ErrorInvalidRequest, "RemoveItem must reference a meeting cancellation.")
	}

	for _, c := range e.calendarItemsByUID(mb, ref.uid()) {
		e.remove(c)
	}
	ref.message.HasBeenProcessed = ews.Bool(true)
	e.relocate(ref, mb.folders[ews.FolderDeletedItems])

	return successWith(&ews.Items{})
}

func (e *Exchange) copyOrMove(mb *mailbox, operation string, to ews.TargetFolderId, ids ews.ItemIds, returnNew *bool, move bool) *ews.Response {
	resp := ews.NewResponse(operation)
	if ids.Len() == 0 {
		resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, "ItemIds must not be empty."))
		return resp
	}

	dest, folderCode := e.resolveFolder(mb, to)
	for _, id := range ids.All() {
		if folderCode != ews.NoError {
			resp.Add(errorMessage(folderCode))
			continue
		}

		t, code := e.resolve(mb, id)
		if code != ews.NoError {
			resp.Add(errorMessage(code))
			continue
		}
		if t.index > 0 {
			resp.Add(errorMessage(ews.ErrorCalendarCannotMoveOrCopyOccurrence))
			continue
		}

		r := t.rec
		if move {
			e.relocate(r, dest)
		} else {
			r = e.store(r.clone(), dest, time.Time{})
		}

		items := &ews.Items{}
		if returnNew == nil || *returnNew {
			e.render(target{rec: r}, idShape, items)
		}
		resp.Add(successWith(items))
	}
	return resp
}

func (e *Exchange) deleteItem(mb *mailbox, req *ews.DeleteItem) *ews.Response {
	resp := ews.NewResponse("DeleteItem")
	if req.ItemIds.Len() == 0 {
		resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, "ItemIds must not be empty."))
		return resp
	}

	for _, id := range req.ItemIds.All() {
		t, code := e.resolve(mb, id)
		if code != ews.NoError {
			resp.Add(errorMessage(code))
			continue
		}

		r := t.rec
		if t.index > 0 {
			r.deleted[t.index] = true
			delete(r.exceptions, t.index)
			r.changeKey++
			resp.Add(ews.SuccessMessage())
			continue
		}

		if r.kind == kindCalendarItem && organizerOf(r) == mb.address && req.SendMeetingCancellations.Sends() {
			if attendees := attendeeAddresses(r.calendar, mb.address); len(attendees) > 0 {
				e.sendCancellation(mb, r, attendees, req.SendMeetingCancellations.SavesCopy())
			}
		}

		deleted := mb.folders[ews.FolderDeletedItems]
		if req.DeleteType == ews.MoveToDeletedItems && r.folder != deleted {
			e.relocate(r, deleted)
		} else {
			e.remove(r)
		}
		resp.Add(ews.SuccessMessage())
	}
	return resp
}

func (e *Exchange) getItem(mb *mailbox, req *ews.GetItem) *ews.Response {
	resp := ews.NewResponse("GetItem")
	if req.ItemIds.Len() == 0 {
		resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, "ItemIds must not be empty."))
		return resp
	}

	s := newShape(req.ItemShape)
	for _, id := range req.ItemIds.All() {
		t, code := e.resolve(mb, id)
		if code != ews.NoError {
			resp.Add(errorMessage(code))
			continue
		}
		items := &ews.Items{}
		e.render(t, s, items)
		resp.Add(successWith(items))
	}
	return resp
}

func restrictionValue(r *record, fieldURI string) (string, bool) {
	switch fieldURI {
	case ews.FieldItemClass:
		return r.itemClass(), true
	case ews.FieldSubject:
		return r.subject(), true
	case ews.FieldUID:
		return r.uid(), true
	case ews.FieldLocation:
		if r.kind == kindCalendarItem {
			return r.calendar.Location, true
		}
		return r.message.Location, true
	default:
		return "", false
	}
}

func contains(c *ews.Contains, value string) bool {
	constant := c.Constant.Value
	switch c.ContainmentComparison {
	case ews.IgnoreCase, ews.IgnoreCaseAndNonSpacingCharacters:
		value, constant = strings.ToLower(value), strings.ToLower(constant)
	}

	switch c.ContainmentMode {
	case ews.FullString:
		return value == constant
	case ews.Prefixed:
		return strings.HasPrefix(value, constant)
	case ews.PrefixOnWords:
		for _, word := range strings.Fields(value) {
			if strings.HasPrefix(word, constant) {
				return true
			}
		}
		return false
	default:
		return strings.Contains(value, constant)
	}
}

func (e *Exchange) findItem(mb *mailbox, req *ews.FindItem) *ews.Response {
	resp := ews.NewResponse("FindItem")

	folders, code := e.resolveFolderIds(mb, req.ParentFolderIds)
	if code != ews.NoError {
		resp.Add(errorMessage(code))
		return resp
	}
	if len(folders) == 0 {
		resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, "ParentFolderIds must not be empty."))
		return resp
	}

	var restriction *ews.Contains
	if req.Restriction != nil && req.Restriction.Contains != nil {
		restriction = req.Restriction.Contains
		if _, ok := restrictionValue(&record{}, restriction.FieldURI.FieldURI); !ok {
			resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, "Restriction on "+restriction.FieldURI.FieldURI+" is not supported."))
			return resp
		}
	}

	var window *ews.TimeSlot
	if view := req.CalendarView; view != nil {
		start, err := ews.ParseDateTime(view.StartDate, time.UTC)
		if err != nil {
			resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, err.Error()))
			return resp
		}
		end, err := ews.ParseDateTime(view.EndDate, time.UTC)
		if err != nil {
			resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, err.Error()))
			return resp
		}
		if end.Before(start) {
			resp.Add(errorMessage(ews.ErrorCalendarEndDateIsEarlierThanStartDate))
			return resp
		}
		window = &ews.TimeSlot{Start: start, End: end}
	}

	var matches []target
	for _, f := range folders {
		for _, r := range e.recordsIn(f) {
			if restriction != nil {
				value, _ := restrictionValue(r, restriction.FieldURI.FieldURI)
				if !contains(restriction, value) {
					continue
				}
			}
			if window == nil {
				matches = append(matches, target{rec: r})
				continue
			}
			if r.kind != kindCalendarItem {
				continue
			}
			if r.isMaster() {
				for _, index := range r.occurrencesBetween(*window) {
					matches = append(matches, target{rec: r, index: index})
				}
				continue
			}
			if slot, err := r.slot(); err == nil && slot.Overlaps(*window) {
				matches = append(matches, target{rec: r})
			}
		}
	}

	total := len(matches)
	includesLast := true
	if req.CalendarView != nil && req.CalendarView.MaxEntriesReturned > 0 && len(matches) > req.CalendarView.MaxEntriesReturned {
		matches = matches[:req.CalendarView.MaxEntriesReturned]
		includesLast = false
	}

	root := &ews.RootFolder{TotalItemsInView: total, IncludesLastItemInRange: includesLast, Items: &ews.Items{}}
	s := newShape(req.ItemShape)
	for _, t := range matches {
		e.render(t, s, root.Items)
	}

	msg := ews.SuccessMessage()
	msg.RootFolder = root
	resp.Add(msg)
	return resp
}

func (e *Exchange) updateItem(mb *mailbox, req *ews.UpdateItem) *ews.Response {
	resp := ews.NewResponse("UpdateItem")
	if len(req.ItemChanges.ItemChange) == 0 {
		resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, "ItemChanges must not be empty."))
		return resp
	}

	for _, change := range req.ItemChanges.ItemChange {
		resp.Add(e.applyChange(mb, req, change))
	}
	return resp
}

func (e *Exchange) applyChange(mb *mailbox, req *ews.UpdateItem, change ews.ItemChange) ews.ResponseMessage {
	var id ews.BaseItemId
	switch {
	case change.ItemId != nil:
		id = *change.ItemId
	case change.OccurrenceItemId != nil:
		id = *change.OccurrenceItemId
	case change.RecurringMasterItemId != nil:
		id = *change.RecurringMasterItemId
	default:
		return ews.ErrorMessage(ews.ErrorInvalidRequest, "ItemChange has no item id.")
	}

	t, code := e.resolve(mb, id)
	if code != ews.NoError {
		return errorMessage(code)
	}
	r := t.rec
	if r.kind != kindCalendarItem {
		return ews.ErrorMessage(ews.ErrorInvalidPropertySet, "Only calendar items can be updated.")
	}

	updated := copyCalendarItem(r.calendar)
	if t.index > 0 {
		updated, _ = r.occurrenceItem(t.index)
	}

	for _, set := range change.Updates.SetItemField {
		v := set.CalendarItem
		if v == nil {
			return ews.ErrorMessage(ews.ErrorInvalidRequest, "SetItemField has no CalendarItem value.")
		}
		switch set.FieldURI.FieldURI {
		case ews.FieldSubject:
			updated.Subject = v.Subject
		case ews.FieldBody:
			updated.Body = v.Body
		case ews.FieldLocation:
			updated.Location = v.Location
		case ews.FieldStart:
			updated.Start = v.Start
		case ews.FieldEnd:
			updated.End = v.End
		case ews.FieldLegacyFreeBusyStatus:
			updated.LegacyFreeBusyStatus = v.LegacyFreeBusyStatus
		default:
			return ews.ErrorMessage(ews.ErrorInvalidPropertySet, "Cannot set "+set.FieldURI.FieldURI+".")
		}
	}
	for _, del := range change.Updates.DeleteItemField {
		switch del.FieldURI.FieldURI {
		case ews.FieldLocation:
			updated.Location = ""
		case ews.FieldBody:
			updated.Body = nil
		default:
			return ews.ErrorMessage(ews.ErrorInvalidPropertySet, "Cannot delete "+del.FieldURI.FieldURI+".")
		}
	}

	if code := e.normalizeTimes(&updated); code != ews.NoError {
		return errorMessage(code)
	}

	if t.index > 0 {
		r.exceptions[t.index] = &ews.CalendarItem{
			Item:                 ews.Item{Subject: updated.Subject, Body: updated.Body},
			Start:                updated.Start,
			End:                  updated.End,
			Location:             updated.Location,
			LegacyFreeBusyStatus: updated.LegacyFreeBusyStatus,
		}
	} else {
		r.calendar = updated
	}
	r.changeKey++

	if organizerOf(r) == mb.address && req.SendMeetingInvitationsOrCancellations.Sends() {
		if attendees := attendeeAddresses(r.calendar, mb.address); len(attendees) > 0 {
			e.sendMeetingRequest(mb, r, attendees, ews.MeetingRequestFullUpdate, req.SendMeetingInvitationsOrCancellations.SavesCopy())
		}
	}

	items := &ews.Items{}
	e.render(t, idShape, items)
	return successWith(items)
}

func (e *Exchange) createFolder(mb *mailbox, req *ews.CreateFolder) *ews.Response {
	resp := ews.NewResponse("CreateFolder")
	parent, code := e.resolveFolder(mb, req.ParentFolderId)

	create := func(bf ews.BaseFolder, class string, calendar bool) {
		if code != ews.NoError {
			resp.Add(errorMessage(code))
			return
		}
		if bf.DisplayName == "" {
			resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, "DisplayName is required."))
			return
		}
		for _, f := range e.folders {
			if f.parent == parent && strings.EqualFold(f.displayName, bf.DisplayName) {
				resp.Add(ews.ErrorMessage(ews.ErrorFolderExists, "A folder with the specified name already exists."))
				return
			}
		}
		if bf.FolderClass != "" {
			class = bf.FolderClass
		}

		f := &folder{id: newID(), displayName: bf.DisplayName, class: class, mailbox: parent.mailbox, parent: parent}
		e.folders[f.id] = f

		created := ews.BaseFolder{FolderId: &ews.FolderId{Id: f.id, ChangeKey: "CK1"}}
		msg := ews.SuccessMessage()
		msg.Folders = &ews.Folders{}
		if calendar {
			msg.Folders.CalendarFolder = append(msg.Folders.CalendarFolder, created)
		} else {
			msg.Folders.Folder = append(msg.Folders.Folder, created)
		}
		resp.Add(msg)
	}

	for _, bf := range req.Folders.Folder {
		create(bf, "IPF.Note", false)
	}
	for _, bf := range req.Folders.CalendarFolder {
		create(bf, "IPF.Appointment", true)
	}
	if !resp.Valid() {
		resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, "Folders must not be empty."))
	}
	return resp
}

func (e *Exchange) deleteFolder(mb *mailbox, req *ews.DeleteFolder) *ews.Response {
	resp := ews.NewResponse("DeleteFolder")
	if req.FolderIds.Len() == 0 {
		resp.Add(ews.ErrorMessage(ews.ErrorInvalidRequest, "FolderIds must not be empty."))
		return resp
	}

	for _, id := range req.FolderIds.FolderId {
		f, ok := e.folders[id.Id]
		switch {
		case !ok:
			resp.Add(errorMessage(ews.ErrorFolderNotFound))
		case f.mailbox != mb:
			resp.Add(ews.ErrorMessage(ews.ErrorAccessDenied, "Access is denied."))
		case f.distinguished != "":
			resp.Add(ews.ErrorMessage(ews.ErrorDeleteDistinguishedFolder, "Distinguished folders cannot be deleted."))
		case req.DeleteType == ews.MoveToDeletedItems:
			f.parent = mb.folders[ews.FolderDeletedItems]
			resp.Add(ews.SuccessMessage())
		default:
			e.dropFolder(f)
			resp.Add(ews.SuccessMessage())
		}
	}
	for range req.FolderIds.DistinguishedFolderId {
		resp.Add(ews.ErrorMessage(ews.ErrorDeleteDistinguishedFolder, "Distinguished folders cannot be deleted."))
	}
	return resp
}

// dropFolder removes a folder with its items and subfolders.
func (e *Exchange) dropFolder(f *folder) {
	for _, child := range e.folders {
		if child.parent == f {
			e.dropFolder(child)
		}
	}
	for id, r := range e.records {
		if r.folder == f {
			delete(e.records, id)
		}
	}
	delete(e.folders, f.id)
}
