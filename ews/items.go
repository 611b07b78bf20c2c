package ews

// LegacyFreeBusyStatus represents the free/busy status of a calendar item
type LegacyFreeBusyStatus string

// LegacyFreeBusyStatus constants
const (
	FreeBusyFree      LegacyFreeBusyStatus = "Free"      // Time slot is available
	FreeBusyTentative LegacyFreeBusyStatus = "Tentative" // Time slot is tentatively booked
	FreeBusyBusy      LegacyFreeBusyStatus = "Busy"      // Time slot is busy
	FreeBusyOOF       LegacyFreeBusyStatus = "OOF"       // User is Out of Office
	FreeBusyNoData    LegacyFreeBusyStatus = "NoData"    // Status is unknown
)

// CalendarItemType distinguishes single appointments from the parts of a series.
type CalendarItemType string

const (
	CalendarItemSingle          CalendarItemType = "Single"
	CalendarItemOccurrence      CalendarItemType = "Occurrence"
	CalendarItemException       CalendarItemType = "Exception"
	CalendarItemRecurringMaster CalendarItemType = "RecurringMaster"
)

// ResponseType is an attendee's answer to a meeting.
type ResponseType string

const (
	ResponseUnknown            ResponseType = "Unknown"
	ResponseOrganizer          ResponseType = "Organizer"
	ResponseTentative          ResponseType = "Tentative"
	ResponseAccept             ResponseType = "Accept"
	ResponseDecline            ResponseType = "Decline"
	ResponseNoResponseReceived ResponseType = "NoResponseReceived"
)

// MeetingRequestType classifies a meeting request message.
type MeetingRequestType string

const (
	MeetingRequestNone       MeetingRequestType = "None"
	MeetingRequestNew        MeetingRequestType = "NewMeetingRequest"
	MeetingRequestFullUpdate MeetingRequestType = "FullUpdate"
	MeetingRequestOutdated   MeetingRequestType = "Outdated"
)

// Item classes of calendar related items.
const (
	ClassAppointment         = "IPM.Appointment"
	ClassMeetingRequest      = "IPM.Schedule.Meeting.Request"
	ClassMeetingResponse     = "IPM.Schedule.Meeting.Resp"
	ClassMeetingResponsePos  = "IPM.Schedule.Meeting.Resp.Pos"
	ClassMeetingResponseTent = "IPM.Schedule.Meeting.Resp.Tent"
	ClassMeetingResponseNeg  = "IPM.Schedule.Meeting.Resp.Neg"
	ClassMeetingCancellation = "IPM.Schedule.Meeting.Canceled"
	ClassNote                = "IPM.Note"
)

type ItemBody struct {
	BodyType string `xml:"BodyType,attr"`
	Content  string `xml:",chardata"`
}

type EmailAddress struct {
	Name         string `xml:"Name,omitempty"`
	EmailAddress string `xml:"EmailAddress,omitempty"`
	RoutingType  string `xml:"RoutingType,omitempty"`
	MailboxType  string `xml:"MailboxType,omitempty"`
}

// SingleRecipient wraps one mailbox, as used by Organizer, Sender and From.
type SingleRecipient struct {
	Mailbox EmailAddress `xml:"Mailbox"`
}

type Recipients struct {
	Mailbox []EmailAddress `xml:"Mailbox"`
}

type Attendee struct {
	Mailbox      EmailAddress `xml:"Mailbox"`
	ResponseType ResponseType `xml:"ResponseType,omitempty"`
}

type Attendees struct {
	Attendee []Attendee `xml:"Attendee"`
}

// NewAttendees builds an attendee list from SMTP addresses.
func NewAttendees(addresses ...string) *Attendees {
	a := &Attendees{}
	for _, address := range addresses {
		a.Attendee = append(a.Attendee, Attendee{Mailbox: EmailAddress{EmailAddress: address, RoutingType: "SMTP"}})
	}
	return a
}

// Item holds the ItemType elements shared by every item kind. Fields follow
// schema order.
type Item struct {
	ItemId                     *ItemId   `xml:"ItemId,omitempty"`
	ParentFolderId             *FolderId `xml:"ParentFolderId,omitempty"`
	ItemClass                  string    `xml:"ItemClass,omitempty"`
	Subject                    string    `xml:"Subject,omitempty"`
	Body                       *ItemBody `xml:"Body,omitempty"`
	DateTimeReceived           string    `xml:"DateTimeReceived,omitempty"`
	DateTimeSent               string    `xml:"DateTimeSent,omitempty"`
	DateTimeCreated            string    `xml:"DateTimeCreated,omitempty"`
	ReminderIsSet              *bool     `xml:"ReminderIsSet,omitempty"`
	ReminderMinutesBeforeStart string    `xml:"ReminderMinutesBeforeStart,omitempty"`
}

// Recurrence pairs one pattern with one range.
type Recurrence struct {
	DailyRecurrence    *DailyRecurrence    `xml:"DailyRecurrence,omitempty"`
	WeeklyRecurrence   *WeeklyRecurrence   `xml:"WeeklyRecurrence,omitempty"`
	NoEndRecurrence    *NoEndRecurrence    `xml:"NoEndRecurrence,omitempty"`
	EndDateRecurrence  *EndDateRecurrence  `xml:"EndDateRecurrence,omitempty"`
	NumberedRecurrence *NumberedRecurrence `xml:"NumberedRecurrence,omitempty"`
}

type DailyRecurrence struct {
	Interval int `xml:"Interval"`
}

type WeeklyRecurrence struct {
	Interval       int    `xml:"Interval"`
	DaysOfWeek     string `xml:"DaysOfWeek"`
	FirstDayOfWeek string `xml:"FirstDayOfWeek,omitempty"`
}

type NoEndRecurrence struct {
	StartDate string `xml:"StartDate"`
}

type EndDateRecurrence struct {
	StartDate string `xml:"StartDate"`
	EndDate   string `xml:"EndDate"`
}

type NumberedRecurrence struct {
	StartDate           string `xml:"StartDate"`
	NumberOfOccurrences int    `xml:"NumberOfOccurrences"`
}

// CalendarItem is an appointment or meeting in a calendar folder.
type CalendarItem struct {
	Item
	UID                     string               `xml:"UID,omitempty"`
	RecurrenceId            string               `xml:"RecurrenceId,omitempty"`
	DateTimeStamp           string               `xml:"DateTimeStamp,omitempty"`
	Start                   string               `xml:"Start,omitempty"`
	End                     string               `xml:"End,omitempty"`
	IsAllDayEvent           *bool                `xml:"IsAllDayEvent,omitempty"`
	LegacyFreeBusyStatus    LegacyFreeBusyStatus `xml:"LegacyFreeBusyStatus,omitempty"`
	Location                string               `xml:"Location,omitempty"`
	When                    string               `xml:"When,omitempty"`
	IsMeeting               *bool                `xml:"IsMeeting,omitempty"`
	IsCancelled             *bool                `xml:"IsCancelled,omitempty"`
	IsRecurring             *bool                `xml:"IsRecurring,omitempty"`
	MeetingRequestWasSent   *bool                `xml:"MeetingRequestWasSent,omitempty"`
	IsResponseRequested     *bool                `xml:"IsResponseRequested,omitempty"`
	CalendarItemType        CalendarItemType     `xml:"CalendarItemType,omitempty"`
	MyResponseType          ResponseType         `xml:"MyResponseType,omitempty"`
	Organizer               *SingleRecipient     `xml:"Organizer,omitempty"`
	RequiredAttendees       *Attendees           `xml:"RequiredAttendees,omitempty"`
	OptionalAttendees       *Attendees           `xml:"OptionalAttendees,omitempty"`
	Resources               *Attendees           `xml:"Resources,omitempty"`
	ConflictingMeetingCount *int                 `xml:"ConflictingMeetingCount,omitempty"`
	AdjacentMeetingCount    *int                 `xml:"AdjacentMeetingCount,omitempty"`
	Recurrence              *Recurrence          `xml:"Recurrence,omitempty"`
	MeetingWorkspaceUrl     string               `xml:"MeetingWorkspaceUrl,omitempty"`
	NetShowUrl              string               `xml:"NetShowUrl,omitempty"`
}

// Message is a mail item.
type Message struct {
	Item
	Sender       *SingleRecipient `xml:"Sender,omitempty"`
	ToRecipients *Recipients      `xml:"ToRecipients,omitempty"`
	From         *SingleRecipient `xml:"From,omitempty"`
	IsRead       *bool            `xml:"IsRead,omitempty"`
}

// MeetingMessage holds the elements shared by meeting requests, responses
// and cancellations.
type MeetingMessage struct {
	Message
	AssociatedCalendarItemId *ItemId      `xml:"AssociatedCalendarItemId,omitempty"`
	IsDelegated              *bool        `xml:"IsDelegated,omitempty"`
	IsOutOfDate              *bool        `xml:"IsOutOfDate,omitempty"`
	HasBeenProcessed         *bool        `xml:"HasBeenProcessed,omitempty"`
	ResponseType             ResponseType `xml:"ResponseType,omitempty"`
	UID                      string       `xml:"UID,omitempty"`
	RecurrenceId             string       `xml:"RecurrenceId,omitempty"`
	DateTimeStamp            string       `xml:"DateTimeStamp,omitempty"`
}

type MeetingRequest struct {
	MeetingMessage
	MeetingRequestType     MeetingRequestType   `xml:"MeetingRequestType,omitempty"`
	IntendedFreeBusyStatus LegacyFreeBusyStatus `xml:"IntendedFreeBusyStatus,omitempty"`
	Start                  string               `xml:"Start,omitempty"`
	End                    string               `xml:"End,omitempty"`
	Location               string               `xml:"Location,omitempty"`
	CalendarItemType       CalendarItemType     `xml:"CalendarItemType,omitempty"`
	Organizer              *SingleRecipient     `xml:"Organizer,omitempty"`
	RequiredAttendees      *Attendees           `xml:"RequiredAttendees,omitempty"`
	OptionalAttendees      *Attendees           `xml:"OptionalAttendees,omitempty"`
	Resources              *Attendees           `xml:"Resources,omitempty"`
	Recurrence             *Recurrence          `xml:"Recurrence,omitempty"`
}

type MeetingResponse struct {
	MeetingMessage
}

type MeetingCancellation struct {
	MeetingMessage
}

// ResponseObject answers or acts on the item named by ReferenceItemId. It is
// sent through CreateItem as AcceptItem, TentativelyAcceptItem, DeclineItem
// or RemoveItem.
type ResponseObject struct {
	Message
	ReferenceItemId *ItemId `xml:"ReferenceItemId,omitempty"`
}

// Items is the item array of requests and responses. Every element is in the
// types namespace whichever container holds it.
type Items struct {
	Item                  []Item                `xml:"http://schemas.microsoft.com/exchange/services/2006/types Item,omitempty"`
	Message               []Message             `xml:"http://schemas.microsoft.com/exchange/services/2006/types Message,omitempty"`
	CalendarItem          []CalendarItem        `xml:"http://schemas.microsoft.com/exchange/services/2006/types CalendarItem,omitempty"`
	MeetingRequest        []MeetingRequest      `xml:"http://schemas.microsoft.com/exchange/services/2006/types MeetingRequest,omitempty"`
	MeetingResponse       []MeetingResponse     `xml:"http://schemas.microsoft.com/exchange/services/2006/types MeetingResponse,omitempty"`
	MeetingCancellation   []MeetingCancellation `xml:"http://schemas.microsoft.com/exchange/services/2006/types MeetingCancellation,omitempty"`
	AcceptItem            []ResponseObject      `xml:"http://schemas.microsoft.com/exchange/services/2006/types AcceptItem,omitempty"`
	TentativelyAcceptItem []ResponseObject      `xml:"http://schemas.microsoft.com/exchange/services/2006/types TentativelyAcceptItem,omitempty"`
	DeclineItem           []ResponseObject      `xml:"http://schemas.microsoft.com/exchange/services/2006/types DeclineItem,omitempty"`
	RemoveItem            []ResponseObject      `xml:"http://schemas.microsoft.com/exchange/services/2006/types RemoveItem,omitempty"`
}

// Len returns the number of items of all kinds.
func (i *Items) Len() int {
	if i == nil {
		return 0
	}
	return len(i.Item) + len(i.Message) + len(i.CalendarItem) + len(i.MeetingRequest) +
		len(i.MeetingResponse) + len(i.MeetingCancellation) + len(i.AcceptItem) +
		len(i.TentativelyAcceptItem) + len(i.DeclineItem) + len(i.RemoveItem)
}

// ItemIds returns the ids of every item that carries one.
func (i *Items) ItemIds() []ItemId {
	if i == nil {
		return nil
	}

	var ids []ItemId
	add := func(id *ItemId) {
		if id != nil && id.Id != "" {
			ids = append(ids, *id)
		}
	}

	for _, it := range i.Item {
		add(it.ItemId)
	}
	for _, it := range i.Message {
		add(it.ItemId)
	}
	for _, it := range i.CalendarItem {
		add(it.ItemId)
	}
	for _, it := range i.MeetingRequest {
		add(it.ItemId)
	}
	for _, it := range i.MeetingResponse {
		add(it.ItemId)
	}
	for _, it := range i.MeetingCancellation {
		add(it.ItemId)
	}
	return ids
}

// FirstItemId returns the id of the first item, or nil.
func (i *Items) FirstItemId() *ItemId {
	ids := i.ItemIds()
	if len(ids) == 0 {
		return nil
	}
	return &ids[0]
}

// CalendarItemWithUID returns the calendar related item whose UID matches.
// The result is one of *CalendarItem, *MeetingRequest, *MeetingResponse or
// *MeetingCancellation.
func (i *Items) CalendarItemWithUID(uid string) interface{} {
	if i == nil {
		return nil
	}
	for n := range i.CalendarItem {
		if i.CalendarItem[n].UID == uid {
			return &i.CalendarItem[n]
		}
	}
	for n := range i.MeetingCancellation {
		if i.MeetingCancellation[n].UID == uid {
			return &i.MeetingCancellation[n]
		}
	}
	for n := range i.MeetingRequest {
		if i.MeetingRequest[n].UID == uid {
			return &i.MeetingRequest[n]
		}
	}
	for n := range i.MeetingResponse {
		if i.MeetingResponse[n].UID == uid {
			return &i.MeetingResponse[n]
		}
	}
	return nil
}

// Bool returns a pointer to b, for the optional boolean elements.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n, for the optional integer elements.
func Int(n int) *int { return &n }
