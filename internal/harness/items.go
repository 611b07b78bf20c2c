package harness

import (
	"context"
	"fmt"

	"github.com/slav123/ews-mtgs-conformance/ews"
	"github.com/slav123/ews-mtgs-conformance/internal/requirement"
)

// CalendarItems wraps calendar items for CreateItem.
func CalendarItems(items ...ews.CalendarItem) ews.Items {
	return ews.Items{CalendarItem: items}
}

// AcceptItem answers the meeting request ref with an acceptance.
func AcceptItem(ref ews.ItemId) ews.Items {
	return ews.Items{AcceptItem: []ews.ResponseObject{{ReferenceItemId: &ref}}}
}

// RemoveItem removes the meeting named by the cancellation ref.
func RemoveItem(ref ews.ItemId) ews.Items {
	return ews.Items{RemoveItem: []ews.ResponseObject{{ReferenceItemId: &ref}}}
}

// ItemChange sets one calendar property of one item.
type ItemChange struct {
	ItemId   ews.ItemId
	FieldURI string
	Item     ews.CalendarItem
}

func first(msgs []ews.ResponseMessage) *ews.ResponseMessage {
	if len(msgs) == 0 {
		return nil
	}
	return &msgs[0]
}

// CreateSingleCalendarItem creates one item as role. It returns nil when
// the server did not answer Success.
func (s *Suite) CreateSingleCalendarItem(ctx context.Context, role Role, items ews.Items, mode ews.SendMode) (*ews.ResponseMessage, error) {
	msgs, err := s.CreateMultipleCalendarItems(ctx, role, items, mode)
	return first(msgs), err
}

// CreateMultipleCalendarItems creates items as role and returns the Success
// response messages, or nil when none succeeded.
func (s *Suite) CreateMultipleCalendarItems(ctx context.Context, role Role, items ews.Items, mode ews.SendMode) ([]ews.ResponseMessage, error) {
	req := &ews.CreateItem{
		MessageDisposition:     s.MessageDisposition,
		SendMeetingInvitations: mode,
		Items:                  items,
	}

	s.switchMeetings(role)
	resp, err := s.Meetings.CreateItem(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error creating items as %s: %w", role, err)
	}
	if err := s.Assert.True(resp.Valid(), "The response messages returned by the CreateItem operation should not be null."); err != nil {
		return nil, err
	}

	return resp.Successful(), nil
}

// CopySingleCalendarItem copies one item as role.
func (s *Suite) CopySingleCalendarItem(ctx context.Context, role Role, id ews.BaseItemId, target *ews.TargetFolderId) (*ews.ResponseMessage, error) {
	msgs, err := s.CopyMultipleCalendarItems(ctx, role, []ews.BaseItemId{id}, target)
	return first(msgs), err
}

// CopyMultipleCalendarItems copies items as role. Every response message must
// be a NoError success.
func (s *Suite) CopyMultipleCalendarItems(ctx context.Context, role Role, ids []ews.BaseItemId, target *ews.TargetFolderId) ([]ews.ResponseMessage, error) {
	req := &ews.CopyItem{ToFolderId: *target, ItemIds: ews.NewItemIds(ids...)}

	s.switchMeetings(role)
	resp, err := s.Meetings.CopyItem(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error copying items as %s: %w", role, err)
	}
	if err := s.Assert.True(resp.Valid(), "The response messages returned by the CopyItem operation should succeed."); err != nil {
		return nil, err
	}

	for _, m := range resp.Messages() {
		if err := requirement.CaptureIfEqual(s.Rec, ews.ResponseClassSuccess, m.ResponseClass, 1188,
			`[In Messages] A successful CopyItem operation returns a CopyItemResponse element, as specified in [MS-OXWSCORE] section 3.1.4.1.2.2, with the ResponseClass attribute of the CopyItemResponseMessage element, as specified in [MS-OXWSCDATA] section 2.2.4.12, set to "Success".`); err != nil {
			return nil, err
		}
		if err := requirement.CaptureIfEqual(s.Rec, ews.NoError, m.ResponseCode, 1189,
			`[In Messages] The ResponseCode element, as specified in [MS-OXWSCDATA] section 2.2.4.43, of the CopyItemResponseMessage element is set to "NoError".`); err != nil {
			return nil, err
		}
	}

	return resp.Successful(), nil
}

// MoveSingleCalendarItem moves one item as role.
func (s *Suite) MoveSingleCalendarItem(ctx context.Context, role Role, id ews.BaseItemId, target *ews.TargetFolderId) (*ews.ResponseMessage, error) {
	msgs, err := s.MoveMultipleCalendarItems(ctx, role, []ews.BaseItemId{id}, target)
	return first(msgs), err
}

// MoveMultipleCalendarItems moves items as role. Every response message must
// be a NoError success.
func (s *Suite) MoveMultipleCalendarItems(ctx context.Context, role Role, ids []ews.BaseItemId, target *ews.TargetFolderId) ([]ews.ResponseMessage, error) {
	req := &ews.MoveItem{ToFolderId: *target, ItemIds: ews.NewItemIds(ids...)}

	s.switchMeetings(role)
	resp, err := s.Meetings.MoveItem(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error moving items as %s: %w", role, err)
	}
	if err := s.Assert.True(resp.Valid(), "The response messages returned by the MoveItem operation should succeed."); err != nil {
		return nil, err
	}

	for _, m := range resp.Messages() {
		if err := requirement.CaptureIfEqual(s.Rec, ews.ResponseClassSuccess, m.ResponseClass, 1226,
			`[In Messages] A successful MoveItem operation request returns a MoveItemResponse element, as specified in [MS-OXWSCORE] section 3.1.4.7.2.2, with the ResponseClass attribute of the MoveItemResponseMessage element, as specified in [MS-OXWSCDATA] section 2.2.4.12, set to "Success".`); err != nil {
			return nil, err
		}
		if err := requirement.CaptureIfEqual(s.Rec, ews.NoError, m.ResponseCode, 1227,
			`[In Messages] The ResponseCode element, as specified in [MS-OXWSCDATA] section 2.2.4.43, of the MoveItemResponseMessage element is set to "NoError".`); err != nil {
			return nil, err
		}
	}

	return resp.Successful(), nil
}

// UpdateSingleCalendarItem applies one change as role.
func (s *Suite) UpdateSingleCalendarItem(ctx context.Context, role Role, change ItemChange, mode ews.SendMode) (*ews.ResponseMessage, error) {
	msgs, err := s.UpdateMultipleCalendarItems(ctx, role, []ItemChange{change}, mode)
	return first(msgs), err
}

// UpdateMultipleCalendarItems applies changes as role and returns the Success
// response messages, or nil when none succeeded.
func (s *Suite) UpdateMultipleCalendarItems(ctx context.Context, role Role, changes []ItemChange, mode ews.SendMode) ([]ews.ResponseMessage, error) {
	req := &ews.UpdateItem{
		ConflictResolution:                    ews.AlwaysOverwrite,
		MessageDisposition:                    s.MessageDisposition,
		SendMeetingInvitationsOrCancellations: mode,
	}
	for _, c := range changes {
		req.ItemChanges.ItemChange = append(req.ItemChanges.ItemChange, ews.SetCalendarField(c.ItemId, c.FieldURI, c.Item))
	}

	s.switchMeetings(role)
	resp, err := s.Meetings.UpdateItem(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error updating items as %s: %w", role, err)
	}
	if err := s.Assert.True(resp.Valid(), "The response messages returned by the UpdateItem operation should succeed."); err != nil {
		return nil, err
	}

	return resp.Successful(), nil
}

// DeleteSingleCalendarItem hard-deletes one item as role.
func (s *Suite) DeleteSingleCalendarItem(ctx context.Context, role Role, id ews.BaseItemId, mode ews.SendMode) (*ews.ResponseMessage, error) {
	msgs, err := s.DeleteMultipleCalendarItems(ctx, role, []ews.BaseItemId{id}, mode)
	return first(msgs), err
}

// DeleteMultipleCalendarItems hard-deletes items as role and returns the
// Success response messages, or nil when none succeeded.
func (s *Suite) DeleteMultipleCalendarItems(ctx context.Context, role Role, ids []ews.BaseItemId, mode ews.SendMode) ([]ews.ResponseMessage, error) {
	req := &ews.DeleteItem{
		DeleteType:               ews.HardDelete,
		SendMeetingCancellations: mode,
		ItemIds:                  ews.NewItemIds(ids...),
	}

	s.switchMeetings(role)
	resp, err := s.Meetings.DeleteItem(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error deleting items as %s: %w", role, err)
	}
	if err := s.Assert.True(resp.Valid(), "The invocation to DeleteItem operation should be successful."); err != nil {
		return nil, err
	}

	return resp.Successful(), nil
}

// GetSingleCalendarItem gets one item as role.
func (s *Suite) GetSingleCalendarItem(ctx context.Context, role Role, id ews.BaseItemId) (*ews.ResponseMessage, error) {
	msgs, err := s.GetMultipleCalendarItems(ctx, role, []ews.BaseItemId{id})
	return first(msgs), err
}

// GetMultipleCalendarItems gets items as role and returns the Success
// response messages, or nil when none succeeded.
func (s *Suite) GetMultipleCalendarItems(ctx context.Context, role Role, ids []ews.BaseItemId) ([]ews.ResponseMessage, error) {
	req := s.getItemRequest(ids)

	s.switchMeetings(role)
	resp, err := s.Meetings.GetItem(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error getting items as %s: %w", role, err)
	}
	if err := s.Assert.True(resp.Valid(), "The invocation to GetItem operation should be successful."); err != nil {
		return nil, err
	}

	if s.RequirementEnabled(8852) {
		cdata := s.Rec.For("MS-OXWSCDATA")
		for range resp.Successful() {
			cdata.Capture(8852, `[In Appendix C: Product Behavior] Implementation does support value "calendar:ConflictingMeetingCount" specifies the ConflictingMeetingCount property. (Exchange 2010 and above follow this behavior.)`)
		}
	}

	return resp.Successful(), nil
}

// getItemRequest asks for the properties the enabled product behaviours
// cover on top of BaseShape.
func (s *Suite) getItemRequest(ids []ews.BaseItemId) *ews.GetItem {
	var fields []string
	if s.RequirementEnabled(718) {
		fields = append(fields, ews.FieldStartTimeZone)
		if s.RequirementEnabled(710) {
			fields = append(fields, ews.FieldStartTimeZoneId)
		}
	}
	if s.RequirementEnabled(719) {
		fields = append(fields, ews.FieldEndTimeZone)
		if s.RequirementEnabled(711) {
			fields = append(fields, ews.FieldEndTimeZoneId)
		}
	}
	if s.RequirementEnabled(696) || s.RequirementEnabled(697) || s.RequirementEnabled(707) || s.RequirementEnabled(80011) {
		fields = append(fields, ews.FieldEnhancedLocation)
	}
	if s.RequirementEnabled(8852) {
		fields = append(fields,
			ews.FieldConflictingMeetingCount,
			ews.FieldAdjacentMeetingCount,
			ews.FieldConflictingMeetings,
			ews.FieldAdjacentMeetings,
		)
	}

	req := &ews.GetItem{
		ItemShape: ews.ItemShape{BaseShape: s.BaseShape},
		ItemIds:   ews.NewItemIds(ids...),
	}
	if len(fields) > 0 {
		props := &ews.AdditionalProperties{}
		for _, f := range fields {
			props.FieldURI = append(props.FieldURI, ews.FieldURI{FieldURI: f})
		}
		req.ItemShape.AdditionalProperties = props
	}
	return req
}

// ItemIdsOf collects the first item id of each response message.
func ItemIdsOf(msgs []ews.ResponseMessage) []ews.BaseItemId {
	var ids []ews.BaseItemId
	for _, m := range msgs {
		if id := m.Items.FirstItemId(); id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}
