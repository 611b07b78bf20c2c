package ews

import "encoding/xml"

// MessageDisposition controls whether a created item is saved, sent or both.
type MessageDisposition string

const (
	SaveOnly        MessageDisposition = "SaveOnly"
	SendOnly        MessageDisposition = "SendOnly"
	SendAndSaveCopy MessageDisposition = "SendAndSaveCopy"
)

// SendMode controls meeting invitations and cancellations sent by
// CreateItem, UpdateItem and DeleteItem.
type SendMode string

const (
	SendToNone               SendMode = "SendToNone"
	SendOnlyToAll            SendMode = "SendOnlyToAll"
	SendOnlyToChanged        SendMode = "SendOnlyToChanged"
	SendToAllAndSaveCopy     SendMode = "SendToAllAndSaveCopy"
	SendToChangedAndSaveCopy SendMode = "SendToChangedAndSaveCopy"
)

// Sends reports whether the mode delivers messages to attendees.
func (m SendMode) Sends() bool {
	return m != "" && m != SendToNone
}

// SavesCopy reports whether the mode keeps a copy in Sent Items.
func (m SendMode) SavesCopy() bool {
	return m == SendToAllAndSaveCopy || m == SendToChangedAndSaveCopy
}

type DisposalType string

const (
	HardDelete         DisposalType = "HardDelete"
	SoftDelete         DisposalType = "SoftDelete"
	MoveToDeletedItems DisposalType = "MoveToDeletedItems"
)

type BaseShape string

const (
	IdOnly        BaseShape = "IdOnly"
	DefaultShape  BaseShape = "Default"
	AllProperties BaseShape = "AllProperties"
)

type ConflictResolution string

const (
	NeverOverwrite  ConflictResolution = "NeverOverwrite"
	AutoResolve     ConflictResolution = "AutoResolve"
	AlwaysOverwrite ConflictResolution = "AlwaysOverwrite"
)

type Traversal string

const (
	Shallow     Traversal = "Shallow"
	SoftDeleted Traversal = "SoftDeleted"
	Associated  Traversal = "Associated"
)

type ContainmentMode string

const (
	FullString    ContainmentMode = "FullString"
	Prefixed      ContainmentMode = "Prefixed"
	Substring     ContainmentMode = "Substring"
	PrefixOnWords ContainmentMode = "PrefixOnWords"
	ExactPhrase   ContainmentMode = "ExactPhrase"
)

type ContainmentComparison string

const (
	Exact                             ContainmentComparison = "Exact"
	IgnoreCase                        ContainmentComparison = "IgnoreCase"
	IgnoreNonSpacingCharacters        ContainmentComparison = "IgnoreNonSpacingCharacters"
	IgnoreCaseAndNonSpacingCharacters ContainmentComparison = "IgnoreCaseAndNonSpacingCharacters"
)

// Unindexed field URIs used by the calendar operations.
const (
	FieldItemClass               = "item:ItemClass"
	FieldSubject                 = "item:Subject"
	FieldBody                    = "item:Body"
	FieldUID                     = "calendar:UID"
	FieldStart                   = "calendar:Start"
	FieldEnd                     = "calendar:End"
	FieldLocation                = "calendar:Location"
	FieldLegacyFreeBusyStatus    = "calendar:LegacyFreeBusyStatus"
	FieldStartTimeZone           = "calendar:StartTimeZone"
	FieldStartTimeZoneId         = "calendar:StartTimeZoneId"
	FieldEndTimeZone             = "calendar:EndTimeZone"
	FieldEndTimeZoneId           = "calendar:EndTimeZoneId"
	FieldEnhancedLocation        = "calendar:EnhancedLocation"
	FieldConflictingMeetingCount = "calendar:ConflictingMeetingCount"
	FieldAdjacentMeetingCount    = "calendar:AdjacentMeetingCount"
	FieldConflictingMeetings     = "calendar:ConflictingMeetings"
	FieldAdjacentMeetings        = "calendar:AdjacentMeetings"
)

type FieldURI struct {
	FieldURI string `xml:"FieldURI,attr"`
}

type AdditionalProperties struct {
	FieldURI []FieldURI `xml:"FieldURI"`
}

type ItemShape struct {
	BaseShape            BaseShape             `xml:"http://schemas.microsoft.com/exchange/services/2006/types BaseShape"`
	AdditionalProperties *AdditionalProperties `xml:"http://schemas.microsoft.com/exchange/services/2006/types AdditionalProperties,omitempty"`
}

type CreateItem struct {
	XMLName                xml.Name           `xml:"http://schemas.microsoft.com/exchange/services/2006/messages CreateItem"`
	MessageDisposition     MessageDisposition `xml:"MessageDisposition,attr,omitempty"`
	SendMeetingInvitations SendMode           `xml:"SendMeetingInvitations,attr,omitempty"`
	SavedItemFolderId      *TargetFolderId    `xml:"SavedItemFolderId,omitempty"`
	Items                  Items              `xml:"Items"`
}

type CopyItem struct {
	XMLName          xml.Name       `xml:"http://schemas.microsoft.com/exchange/services/2006/messages CopyItem"`
	ToFolderId       TargetFolderId `xml:"ToFolderId"`
	ItemIds          ItemIds        `xml:"ItemIds"`
	ReturnNewItemIds *bool          `xml:"ReturnNewItemIds,omitempty"`
}

type MoveItem struct {
	XMLName          xml.Name       `xml:"http://schemas.microsoft.com/exchange/services/2006/messages MoveItem"`
	ToFolderId       TargetFolderId `xml:"ToFolderId"`
	ItemIds          ItemIds        `xml:"ItemIds"`
	ReturnNewItemIds *bool          `xml:"ReturnNewItemIds,omitempty"`
}

type DeleteItem struct {
	XMLName                  xml.Name     `xml:"http://schemas.microsoft.com/exchange/services/2006/messages DeleteItem"`
	DeleteType               DisposalType `xml:"DeleteType,attr"`
	SendMeetingCancellations SendMode     `xml:"SendMeetingCancellations,attr,omitempty"`
	ItemIds                  ItemIds      `xml:"ItemIds"`
}

type GetItem struct {
	XMLName   xml.Name  `xml:"http://schemas.microsoft.com/exchange/services/2006/messages GetItem"`
	ItemShape ItemShape `xml:"ItemShape"`
	ItemIds   ItemIds   `xml:"ItemIds"`
}

type UpdateItem struct {
	XMLName                               xml.Name           `xml:"http://schemas.microsoft.com/exchange/services/2006/messages UpdateItem"`
	ConflictResolution                    ConflictResolution `xml:"ConflictResolution,attr,omitempty"`
	MessageDisposition                    MessageDisposition `xml:"MessageDisposition,attr,omitempty"`
	SendMeetingInvitationsOrCancellations SendMode           `xml:"SendMeetingInvitationsOrCancellations,attr,omitempty"`
	SavedItemFolderId                     *TargetFolderId    `xml:"SavedItemFolderId,omitempty"`
	ItemChanges                           ItemChanges        `xml:"ItemChanges"`
}

type ItemChanges struct {
	ItemChange []ItemChange `xml:"http://schemas.microsoft.com/exchange/services/2006/types ItemChange"`
}

type ItemChange struct {
	ItemId                *ItemId                `xml:"ItemId,omitempty"`
	OccurrenceItemId      *OccurrenceItemId      `xml:"OccurrenceItemId,omitempty"`
	RecurringMasterItemId *RecurringMasterItemId `xml:"RecurringMasterItemId,omitempty"`
	Updates               Updates                `xml:"Updates"`
}

type Updates struct {
	SetItemField    []SetItemField    `xml:"SetItemField,omitempty"`
	DeleteItemField []DeleteItemField `xml:"DeleteItemField,omitempty"`
}

type SetItemField struct {
	FieldURI     FieldURI      `xml:"FieldURI"`
	CalendarItem *CalendarItem `xml:"CalendarItem,omitempty"`
}

type DeleteItemField struct {
	FieldURI FieldURI `xml:"FieldURI"`
}

// SetCalendarField builds a single-field calendar item change.
func SetCalendarField(id ItemId, fieldURI string, value CalendarItem) ItemChange {
	return ItemChange{
		ItemId: &id,
		Updates: Updates{SetItemField: []SetItemField{{
			FieldURI:     FieldURI{FieldURI: fieldURI},
			CalendarItem: &value,
		}}},
	}
}

type CalendarView struct {
	MaxEntriesReturned int    `xml:"MaxEntriesReturned,attr,omitempty"`
	StartDate          string `xml:"StartDate,attr"`
	EndDate            string `xml:"EndDate,attr"`
}

type Restriction struct {
	Contains *Contains `xml:"http://schemas.microsoft.com/exchange/services/2006/types Contains,omitempty"`
}

type Contains struct {
	ContainmentMode       ContainmentMode       `xml:"ContainmentMode,attr,omitempty"`
	ContainmentComparison ContainmentComparison `xml:"ContainmentComparison,attr,omitempty"`
	FieldURI              FieldURI              `xml:"FieldURI"`
	Constant              Constant              `xml:"Constant"`
}

type Constant struct {
	Value string `xml:"Value,attr"`
}

type FindItem struct {
	XMLName         xml.Name      `xml:"http://schemas.microsoft.com/exchange/services/2006/messages FindItem"`
	Traversal       Traversal     `xml:"Traversal,attr"`
	ItemShape       ItemShape     `xml:"ItemShape"`
	CalendarView    *CalendarView `xml:"CalendarView,omitempty"`
	Restriction     *Restriction  `xml:"Restriction,omitempty"`
	ParentFolderIds FolderIds     `xml:"ParentFolderIds"`
}

// BaseFolder is a folder as created by CreateFolder and returned in folder responses.
type BaseFolder struct {
	FolderId         *FolderId `xml:"FolderId,omitempty"`
	ParentFolderId   *FolderId `xml:"ParentFolderId,omitempty"`
	FolderClass      string    `xml:"FolderClass,omitempty"`
	DisplayName      string    `xml:"DisplayName,omitempty"`
	TotalCount       *int      `xml:"TotalCount,omitempty"`
	ChildFolderCount *int      `xml:"ChildFolderCount,omitempty"`
}

type Folders struct {
	Folder         []BaseFolder `xml:"http://schemas.microsoft.com/exchange/services/2006/types Folder,omitempty"`
	CalendarFolder []BaseFolder `xml:"http://schemas.microsoft.com/exchange/services/2006/types CalendarFolder,omitempty"`
}

// All returns folders of both kinds.
func (f *Folders) All() []BaseFolder {
	if f == nil {
		return nil
	}
	out := make([]BaseFolder, 0, len(f.Folder)+len(f.CalendarFolder))
	out = append(out, f.Folder...)
	return append(out, f.CalendarFolder...)
}

type CreateFolder struct {
	XMLName        xml.Name       `xml:"http://schemas.microsoft.com/exchange/services/2006/messages CreateFolder"`
	ParentFolderId TargetFolderId `xml:"ParentFolderId"`
	Folders        Folders        `xml:"Folders"`
}

type DeleteFolder struct {
	XMLName    xml.Name     `xml:"http://schemas.microsoft.com/exchange/services/2006/messages DeleteFolder"`
	DeleteType DisposalType `xml:"DeleteType,attr"`
	FolderIds  FolderIds    `xml:"FolderIds"`
}
