package cdpcontrol

import (
	"context"
	"log/slog"

	"github.com/dgnsrekt/tab_grouper/internal/extract"
	"github.com/dgnsrekt/tab_grouper/internal/types"
)

// ListTabs returns the window's tabs in index order. windowID <= 0 selects
// the last focused window.
func (c *Client) ListTabs(ctx context.Context, windowID int) ([]types.Tab, error) {
	var tabs []types.Tab
	if err := c.evalOnBridge(ctx, jsListTabs(windowID), &tabs); err != nil {
		slog.Warn("cdpcontrol list tabs failed", "window_id", windowID, "error", err)
		return nil, err
	}
	if tabs == nil {
		tabs = []types.Tab{}
	}
	slog.Debug("cdpcontrol list tabs", "window_id", windowID, "count", len(tabs))
	return tabs, nil
}

// ExtractMetadata runs the page extractor inside one tab.
func (c *Client) ExtractMetadata(ctx context.Context, tabID int) (extract.PageMetadata, error) {
	var out extract.PageMetadata
	if err := c.evalOnBridge(ctx, jsExtractMetadata(tabID), &out); err != nil {
		return extract.PageMetadata{}, err
	}
	return out, nil
}

// GroupTabs adds tabs to groupID, or to a new group in windowID for
// types.NoGroup, and returns the group id. A windowID of zero or less leaves
// the window choice to the browser.
func (c *Client) GroupTabs(ctx context.Context, windowID int, tabIDs []int, groupID int) (int, error) {
	if len(tabIDs) == 0 {
		return types.NoGroup, types.NewError(types.CodeValidation, "at least one tab id is required", nil)
	}
	var out struct {
		GroupID int `json:"group_id"`
	}
	if err := c.evalOnBridge(ctx, jsGroupTabs(windowID, tabIDs, groupID), &out); err != nil {
		return types.NoGroup, err
	}
	return out.GroupID, nil
}

func (c *Client) LabelGroup(ctx context.Context, groupID int, title string) error {
	if groupID < 0 {
		return types.NewError(types.CodeValidation, "group id is required", nil)
	}
	return c.evalOnBridge(ctx, jsLabelGroup(groupID, title), nil)
}

func (c *Client) MoveTab(ctx context.Context, tabID, index int) error {
	if index < 0 {
		return types.NewError(types.CodeValidation, "index must be >= 0", nil)
	}
	return c.evalOnBridge(ctx, jsMoveTab(tabID, index), nil)
}
