package ews

// ItemId identifies an item in a mailbox store.
type ItemId struct {
	Id        string `xml:"Id,attr"`
	ChangeKey string `xml:"ChangeKey,attr,omitempty"`
}

// OccurrenceItemId identifies one occurrence of a recurring master by its
// 1-based index in the series.
type OccurrenceItemId struct {
	RecurringMasterId string `xml:"RecurringMasterId,attr"`
	ChangeKey         string `xml:"ChangeKey,attr,omitempty"`
	InstanceIndex     int    `xml:"InstanceIndex,attr"`
}

// RecurringMasterItemId identifies a recurring master through the id of one
// of its occurrences.
type RecurringMasterItemId struct {
	OccurrenceId string `xml:"OccurrenceId,attr"`
	ChangeKey    string `xml:"ChangeKey,attr,omitempty"`
}

// BaseItemId is implemented by every item id kind accepted in an ItemIds list.
type BaseItemId interface {
	addTo(ids *ItemIds)
}

func (id ItemId) addTo(ids *ItemIds) { ids.ItemId = append(ids.ItemId, id) }

func (id OccurrenceItemId) addTo(ids *ItemIds) {
	ids.OccurrenceItemId = append(ids.OccurrenceItemId, id)
}

func (id RecurringMasterItemId) addTo(ids *ItemIds) {
	ids.RecurringMasterItemId = append(ids.RecurringMasterItemId, id)
}

// ItemIds is the NonEmptyArrayOfBaseItemIds container. Ids are serialized
// grouped by kind; servers answer one response message per id in that order.
type ItemIds struct {
	ItemId                []ItemId                `xml:"http://schemas.microsoft.com/exchange/services/2006/types ItemId,omitempty"`
	OccurrenceItemId      []OccurrenceItemId      `xml:"http://schemas.microsoft.com/exchange/services/2006/types OccurrenceItemId,omitempty"`
	RecurringMasterItemId []RecurringMasterItemId `xml:"http://schemas.microsoft.com/exchange/services/2006/types RecurringMasterItemId,omitempty"`
}

// NewItemIds collects ids of any kind into an ItemIds container.
func NewItemIds(ids ...BaseItemId) ItemIds {
	var out ItemIds
	for _, id := range ids {
		if id != nil {
			id.addTo(&out)
		}
	}
	return out
}

// Len returns the number of ids of all kinds.
func (ids ItemIds) Len() int {
	return len(ids.ItemId) + len(ids.OccurrenceItemId) + len(ids.RecurringMasterItemId)
}

// All returns the ids in serialization order.
func (ids ItemIds) All() []BaseItemId {
	out := make([]BaseItemId, 0, ids.Len())
	for _, id := range ids.ItemId {
		out = append(out, id)
	}
	for _, id := range ids.OccurrenceItemId {
		out = append(out, id)
	}
	for _, id := range ids.RecurringMasterItemId {
		out = append(out, id)
	}
	return out
}

// DistinguishedFolderName names a well-known mailbox folder.
type DistinguishedFolderName string

const (
	FolderCalendar      DistinguishedFolderName = "calendar"
	FolderInbox         DistinguishedFolderName = "inbox"
	FolderDrafts        DistinguishedFolderName = "drafts"
	FolderSentItems     DistinguishedFolderName = "sentitems"
	FolderDeletedItems  DistinguishedFolderName = "deleteditems"
	FolderMsgFolderRoot DistinguishedFolderName = "msgfolderroot"
)

// DistinguishedFolders lists the well-known folders every mailbox carries.
var DistinguishedFolders = []DistinguishedFolderName{
	FolderCalendar,
	FolderInbox,
	FolderDrafts,
	FolderSentItems,
	FolderDeletedItems,
	FolderMsgFolderRoot,
}

type FolderId struct {
	Id        string `xml:"Id,attr"`
	ChangeKey string `xml:"ChangeKey,attr,omitempty"`
}

type DistinguishedFolderId struct {
	Id        DistinguishedFolderName `xml:"Id,attr"`
	ChangeKey string                  `xml:"ChangeKey,attr,omitempty"`
	Mailbox   *EmailAddress           `xml:"Mailbox,omitempty"`
}

// TargetFolderId holds exactly one folder id of either kind.
type TargetFolderId struct {
	FolderId              *FolderId              `xml:"http://schemas.microsoft.com/exchange/services/2006/types FolderId,omitempty"`
	DistinguishedFolderId *DistinguishedFolderId `xml:"http://schemas.microsoft.com/exchange/services/2006/types DistinguishedFolderId,omitempty"`
}

// Distinguished targets a well-known folder of the acting mailbox.
func Distinguished(name DistinguishedFolderName) *TargetFolderId {
	return &TargetFolderId{DistinguishedFolderId: &DistinguishedFolderId{Id: name}}
}

// Folder targets a folder by id.
func Folder(id FolderId) *TargetFolderId {
	return &TargetFolderId{FolderId: &id}
}

// FolderIds is the NonEmptyArrayOfBaseFolderIds container.
type FolderIds struct {
	FolderId              []FolderId              `xml:"http://schemas.microsoft.com/exchange/services/2006/types FolderId,omitempty"`
	DistinguishedFolderId []DistinguishedFolderId `xml:"http://schemas.microsoft.com/exchange/services/2006/types DistinguishedFolderId,omitempty"`
}

// NewFolderIds builds a FolderIds list of distinguished folders.
func NewFolderIds(names ...DistinguishedFolderName) FolderIds {
	var out FolderIds
	for _, name := range names {
		out.DistinguishedFolderId = append(out.DistinguishedFolderId, DistinguishedFolderId{Id: name})
	}
	return out
}

// Len returns the number of folder ids of both kinds.
func (f FolderIds) Len() int {
	return len(f.FolderId) + len(f.DistinguishedFolderId)
}
