package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/slav123/ews-mtgs-conformance/ews"
)

// FoundItem is a calendar related item located by a search.
type FoundItem struct {
	ItemId    ews.ItemId
	ItemClass string
	UID       string
	// Item is one of *ews.CalendarItem, *ews.MeetingRequest,
	// *ews.MeetingResponse or *ews.MeetingCancellation.
	Item interface{}
}

// CalendarItem returns the item when it is a calendar item.
func (f *FoundItem) CalendarItem() *ews.CalendarItem {
	if f == nil {
		return nil
	}
	ci, _ := f.Item.(*ews.CalendarItem)
	return ci
}

func foundItem(v interface{}) *FoundItem {
	var (
		item ews.Item
		uid  string
	)
	switch it := v.(type) {
	case *ews.CalendarItem:
		item, uid = it.Item, it.UID
	case *ews.MeetingRequest:
		item, uid = it.Item, it.UID
	case *ews.MeetingResponse:
		item, uid = it.Item, it.UID
	case *ews.MeetingCancellation:
		item, uid = it.Item, it.UID
	default:
		return nil
	}

	f := &FoundItem{ItemClass: item.ItemClass, UID: uid, Item: v}
	if item.ItemId != nil {
		f.ItemId = *item.ItemId
	}
	return f
}

var errNotYet = errors.New("condition not met yet")

// poll waits WaitTime before each attempt and gives up after RetryCount
// attempts. It reports whether an attempt succeeded.
func (s *Suite) poll(ctx context.Context, attempt func() (bool, error)) (bool, error) {
	retries := s.RetryCount
	if retries < 1 {
		retries = 1
	}

	if err := sleep(ctx, s.WaitTime); err != nil {
		return false, err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.WaitTime), uint64(retries-1)), ctx)
	err := backoff.Retry(func() error {
		ok, err := attempt()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotYet
		}
		return nil
	}, b)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNotYet):
		return false, nil
	default:
		return false, err
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// findRequest lists a distinguished folder, restricted to items whose
// fieldURI contains value when value is set.
func findRequest(folder ews.DistinguishedFolderName, value, fieldURI string) *ews.FindItem {
	req := &ews.FindItem{
		Traversal:       ews.Shallow,
		ItemShape:       ews.ItemShape{BaseShape: ews.AllProperties},
		ParentFolderIds: ews.NewFolderIds(folder),
	}
	if value != "" {
		req.Restriction = &ews.Restriction{Contains: &ews.Contains{
			ContainmentMode:       ews.Substring,
			ContainmentComparison: ews.IgnoreCaseAndNonSpacingCharacters,
			FieldURI:              ews.FieldURI{FieldURI: fieldURI},
			Constant:              ews.Constant{Value: value},
		}}
	}
	return req
}

func findItemIds(resp *ews.Response) []ews.ItemId {
	for _, m := range resp.Messages() {
		if m.RootFolder != nil {
			return m.RootFolder.Items.ItemIds()
		}
	}
	return nil
}

func baseIds(ids []ews.ItemId) []ews.BaseItemId {
	out := make([]ews.BaseItemId, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}

// SearchItemIds polls folder until items whose fieldURI contains value show up.
func (s *Suite) SearchItemIds(ctx context.Context, role Role, folder ews.DistinguishedFolderName, value, fieldURI string) ([]ews.ItemId, error) {
	req := findRequest(folder, value, fieldURI)
	s.switchSearch(role)

	var ids []ews.ItemId
	_, err := s.poll(ctx, func() (bool, error) {
		resp, err := s.Search.FindItem(ctx, req)
		if err != nil {
			return false, fmt.Errorf("error finding items in %s as %s: %w", folder, role, err)
		}
		ids = findItemIds(resp)
		return len(ids) > 0, nil
	})
	return ids, err
}

// SearchSingleItem polls folder for the item of the given UID whose item
// class contains value.
func (s *Suite) SearchSingleItem(ctx context.Context, role Role, folder ews.DistinguishedFolderName, value, uid string) (*FoundItem, error) {
	return s.SearchSingleItemBy(ctx, role, folder, ews.FieldItemClass, value, uid)
}

// SearchSingleItemBy polls folder for the item of the given UID whose
// fieldURI contains value. It returns nil when RetryCount attempts found none.
func (s *Suite) SearchSingleItemBy(ctx context.Context, role Role, folder ews.DistinguishedFolderName, fieldURI, value, uid string) (*FoundItem, error) {
	req := findRequest(folder, value, fieldURI)

	var found *FoundItem
	_, err := s.poll(ctx, func() (bool, error) {
		s.switchSearch(role)
		resp, err := s.Search.FindItem(ctx, req)
		if err != nil {
			return false, fmt.Errorf("error finding items in %s as %s: %w", folder, role, err)
		}

		ids := findItemIds(resp)
		if len(ids) == 0 {
			return false, nil
		}

		found, err = s.GetSpecifiedItem(ctx, role, ids, uid)
		if err != nil {
			return false, err
		}
		return found != nil, nil
	})
	return found, err
}

// SearchDeletedSingleItem polls folder until it holds no item whose item
// class contains value. It returns nil once the folder is empty, otherwise
// the item of the given UID from the last listing.
func (s *Suite) SearchDeletedSingleItem(ctx context.Context, role Role, folder ews.DistinguishedFolderName, value, uid string) (*FoundItem, error) {
	req := findRequest(folder, value, ews.FieldItemClass)
	s.switchSearch(role)

	var last []ews.ItemId
	empty, err := s.poll(ctx, func() (bool, error) {
		resp, err := s.Search.FindItem(ctx, req)
		if err != nil {
			return false, fmt.Errorf("error finding items in %s as %s: %w", folder, role, err)
		}
		for _, m := range resp.Messages() {
			if m.RootFolder != nil && m.RootFolder.Items.Len() == 0 {
				return true, nil
			}
		}
		last = findItemIds(resp)
		return false, nil
	})
	if err != nil || empty {
		return nil, err
	}

	return s.GetSpecifiedItem(ctx, role, last, uid)
}

// GetSpecifiedItem gets ids as role and returns the calendar related item
// whose UID matches, or nil.
func (s *Suite) GetSpecifiedItem(ctx context.Context, role Role, ids []ews.ItemId, uid string) (*FoundItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	req := s.getItemRequest(baseIds(ids))
	s.switchMeetings(role)
	resp, err := s.Meetings.GetItem(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error getting items as %s: %w", role, err)
	}
	if !resp.Valid() {
		return nil, s.Assert.Fail("The result of GetItem operation should not be null or empty.")
	}

	for _, m := range resp.Messages() {
		if v := m.Items.CalendarItemWithUID(uid); v != nil {
			return foundItem(v), nil
		}
	}
	return nil, nil
}

// CleanupFoldersByRole hard-deletes every item in the folders of role's
// mailbox without sending cancellations.
func (s *Suite) CleanupFoldersByRole(ctx context.Context, role Role, folders ...ews.DistinguishedFolderName) error {
	for _, folder := range folders {
		if err := s.CleanupFolder(ctx, role, folder); err != nil {
			return err
		}
	}
	return nil
}

// CleanupFolder hard-deletes every item in folder of role's mailbox. The
// listing polls like SearchItemIds, so items still in delivery are caught.
func (s *Suite) CleanupFolder(ctx context.Context, role Role, folder ews.DistinguishedFolderName) error {
	ids, err := s.SearchItemIds(ctx, role, folder, "", "")
	if err != nil {
		return fmt.Errorf("error listing %s as %s: %w", folder, role, err)
	}
	if len(ids) == 0 {
		return nil
	}

	s.Log.WithFields(logrus.Fields{"role": role.String(), "folder": folder, "items": len(ids)}).Debug("cleaning up folder")
	_, err = s.DeleteMultipleCalendarItems(ctx, role, baseIds(ids), ews.SendToNone)
	return err
}
