package ews

import (
	"context"
	"fmt"
)

// CreateItem creates items, or sends response objects such as AcceptItem
// and RemoveItem.
func (c *EWSClient) CreateItem(ctx context.Context, request *CreateItem) (*Response, error) {
	resp, err := c.call(ctx, "CreateItem", request)
	if err != nil {
		return nil, fmt.Errorf("error creating item: %w", err)
	}
	return resp, nil
}

// CopyItem copies items into the target folder.
func (c *EWSClient) CopyItem(ctx context.Context, request *CopyItem) (*Response, error) {
	resp, err := c.call(ctx, "CopyItem", request)
	if err != nil {
		return nil, fmt.Errorf("error copying item: %w", err)
	}
	return resp, nil
}

// MoveItem moves items into the target folder.
func (c *EWSClient) MoveItem(ctx context.Context, request *MoveItem) (*Response, error) {
	resp, err := c.call(ctx, "MoveItem", request)
	if err != nil {
		return nil, fmt.Errorf("error moving item: %w", err)
	}
	return resp, nil
}

// UpdateItem applies property changes to existing items.
func (c *EWSClient) UpdateItem(ctx context.Context, request *UpdateItem) (*Response, error) {
	resp, err := c.call(ctx, "UpdateItem", request)
	if err != nil {
		return nil, fmt.Errorf("error updating item: %w", err)
	}
	return resp, nil
}

// DeleteItem deletes items, sending cancellations for meetings when asked.
func (c *EWSClient) DeleteItem(ctx context.Context, request *DeleteItem) (*Response, error) {
	resp, err := c.call(ctx, "DeleteItem", request)
	if err != nil {
		return nil, fmt.Errorf("error deleting item: %w", err)
	}
	return resp, nil
}

// GetItem retrieves items by id in the requested shape.
func (c *EWSClient) GetItem(ctx context.Context, request *GetItem) (*Response, error) {
	resp, err := c.call(ctx, "GetItem", request)
	if err != nil {
		return nil, fmt.Errorf("error getting item: %w", err)
	}
	return resp, nil
}

// FindItem searches folders. Matches are returned in each message's RootFolder.
func (c *EWSClient) FindItem(ctx context.Context, request *FindItem) (*Response, error) {
	resp, err := c.call(ctx, "FindItem", request)
	if err != nil {
		return nil, fmt.Errorf("error finding items: %w", err)
	}
	return resp, nil
}

// CreateFolder creates folders under the parent folder.
func (c *EWSClient) CreateFolder(ctx context.Context, request *CreateFolder) (*Response, error) {
	resp, err := c.call(ctx, "CreateFolder", request)
	if err != nil {
		return nil, fmt.Errorf("error creating folder: %w", err)
	}
	return resp, nil
}

// DeleteFolder deletes folders together with their contents.
func (c *EWSClient) DeleteFolder(ctx context.Context, request *DeleteFolder) (*Response, error) {
	resp, err := c.call(ctx, "DeleteFolder", request)
	if err != nil {
		return nil, fmt.Errorf("error deleting folder: %w", err)
	}
	return resp, nil
}
