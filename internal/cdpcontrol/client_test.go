package cdpcontrol

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/dgnsrekt/tab_grouper/internal/types"
)

func TestListTabsThroughBridge(t *testing.T) {
	fb := newFakeBrowser(t, bridgeTargets())
	fb.onEval(func(_ int, expr string) (string, string) {
		return envelope([]map[string]any{
			{"id": 11, "window_id": 1, "index": 0, "group_id": -1, "title": "A", "url": "https://a.com"},
			{"id": 12, "window_id": 1, "index": 1, "group_id": 4, "title": "B", "url": "https://b.com"},
		}), ""
	})

	c := NewClient(fb.srv.URL, "", 2*time.Second)
	t.Cleanup(func() { _ = c.Close() })

	tabs, err := c.ListTabs(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListTabs() error = %v", err)
	}
	if len(tabs) != 2 || tabs[1].ID != 12 || tabs[1].GroupID != 4 || !tabs[1].Grouped() {
		t.Fatalf("ListTabs() = %#v", tabs)
	}
	if got := fb.firstAttached(); got != "sw-1" {
		t.Fatalf("attached to %q; want the bridge worker", got)
	}
	if !containsAll(fb.lastExpr(), "chrome.tabs.query", "var wid = 1;") {
		t.Fatalf("unexpected expression: %s", fb.lastExpr())
	}
}

func TestGroupLabelMoveThroughBridge(t *testing.T) {
	fb := newFakeBrowser(t, bridgeTargets())
	fb.onEval(func(_ int, expr string) (string, string) {
		switch {
		case strings.Contains(expr, "chrome.tabs.group("):
			return envelope(map[string]any{"group_id": 42}), ""
		case strings.Contains(expr, "chrome.tabGroups.update("):
			return envelope(map[string]any{"group_id": 42, "title": "News"}), ""
		case strings.Contains(expr, "chrome.tabs.move("):
			return envelope(map[string]any{"tab_id": 3, "index": 2}), ""
		}
		return errorEnvelope(types.CodeEvalFailure, "unexpected"), ""
	})

	c := NewClient(fb.srv.URL, DefaultBridgeFilter, 2*time.Second)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	gid, err := c.GroupTabs(ctx, 4, []int{1, 2}, types.NoGroup)
	if err != nil {
		t.Fatalf("GroupTabs() error = %v", err)
	}
	if gid != 42 {
		t.Fatalf("GroupTabs() = %d; want 42", gid)
	}
	if !containsAll(fb.lastExpr(), "tabIds: [1,2]", "var gid = -1;", "var wid = 4;") {
		t.Fatalf("unexpected group expression: %s", fb.lastExpr())
	}
	if err := c.LabelGroup(ctx, gid, `News "today"`); err != nil {
		t.Fatalf("LabelGroup() error = %v", err)
	}
	if !strings.Contains(fb.lastExpr(), `{title: "News \"today\""}`) {
		t.Fatalf("title not escaped: %s", fb.lastExpr())
	}
	if err := c.MoveTab(ctx, 3, 2); err != nil {
		t.Fatalf("MoveTab() error = %v", err)
	}
	if fb.attachCount() != 1 {
		t.Fatalf("attach count = %d; want session reuse", fb.attachCount())
	}
}

func TestBridgeErrorEnvelopeIsNotRetried(t *testing.T) {
	fb := newFakeBrowser(t, bridgeTargets())
	fb.onEval(func(_ int, _ string) (string, string) {
		return errorEnvelope(types.CodeEvalFailure, "No tab with id: 9."), ""
	})

	c := NewClient(fb.srv.URL, "", 2*time.Second)
	t.Cleanup(func() { _ = c.Close() })

	err := c.MoveTab(context.Background(), 9, 0)
	if !types.HasCode(err, types.CodeEvalFailure) {
		t.Fatalf("MoveTab() error = %v; want %s", err, types.CodeEvalFailure)
	}
	if !strings.Contains(err.Error(), "No tab with id: 9.") {
		t.Fatalf("error %q lost the browser message", err)
	}
	if n := fb.evalCount(); n != 1 {
		t.Fatalf("eval calls = %d; want 1", n)
	}
}

func TestTransientEvalFailureReattaches(t *testing.T) {
	fb := newFakeBrowser(t, bridgeTargets())
	fb.onEval(func(call int, _ string) (string, string) {
		if call == 1 {
			return "", "No session with given id"
		}
		return envelope(map[string]any{"extension_id": "abcdef", "version": "1.0.0"}), ""
	})

	c := NewClient(fb.srv.URL, "", 2*time.Second)
	t.Cleanup(func() { _ = c.Close() })

	id, err := c.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if id != "abcdef" {
		t.Fatalf("Ping() = %q; want abcdef", id)
	}
	if fb.attachCount() != 2 {
		t.Fatalf("attach count = %d; want a fresh attach on retry", fb.attachCount())
	}
}

func TestConnectWithoutBridge(t *testing.T) {
	fb := newFakeBrowser(t, []map[string]string{
		{"id": "page-1", "type": "page", "url": "https://news.example.com"},
		{"id": "sw-2", "type": "service_worker", "url": "chrome-extension://zzz/other.js"},
	})

	c := NewClient(fb.srv.URL, "", time.Second)
	err := c.Connect(context.Background())
	if !types.HasCode(err, types.CodeBridgeNotFound) {
		t.Fatalf("Connect() error = %v; want %s", err, types.CodeBridgeNotFound)
	}
}

func TestSelectBridgeTargetPrefersWorker(t *testing.T) {
	targets := []*target.Info{
		{TargetID: "p", Type: "page", URL: "chrome-extension://abc/tab_grouper_bridge.html"},
		{TargetID: "x", Type: "service_worker", URL: "https://site.com/tab_grouper_bridge.js"},
		{TargetID: "w", Type: "service_worker", URL: "chrome-extension://abc/tab_grouper_bridge.js"},
	}
	got := selectBridgeTarget(targets, DefaultBridgeFilter)
	if got == nil || got.TargetID != "w" {
		t.Fatalf("selectBridgeTarget() = %+v; want worker w", got)
	}

	got = selectBridgeTarget(targets[:2], DefaultBridgeFilter)
	if got == nil || got.TargetID != "p" {
		t.Fatalf("selectBridgeTarget() = %+v; want extension page p", got)
	}
	if got := selectBridgeTarget(targets[1:2], DefaultBridgeFilter); got != nil {
		t.Fatalf("selectBridgeTarget() = %+v; want nil for non-extension url", got)
	}
}

func TestShouldRetry(t *testing.T) {
	c := &Client{}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "cdp unavailable", err: types.NewError(types.CodeCDPUnavailable, "x", nil), want: true},
		{name: "transient cause", err: types.NewError(types.CodeEvalFailure, "x", errString("rawcdp: Runtime.evaluate: connection closed")), want: true},
		{name: "browser rejection", err: types.NewError(types.CodeEvalFailure, "No tab with id: 3.", nil), want: false},
		{name: "timeout", err: types.NewError(types.CodeEvalTimeout, "x", context.DeadlineExceeded), want: false},
		{name: "bridge missing", err: types.NewError(types.CodeBridgeNotFound, "x", nil), want: false},
		{name: "plain error", err: errString("boom"), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.shouldRetry(tc.err); got != tc.want {
				t.Fatalf("shouldRetry() = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestGroupTabsValidation(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", time.Second)
	if _, err := c.GroupTabs(context.Background(), 1, nil, types.NoGroup); !types.HasCode(err, types.CodeValidation) {
		t.Fatalf("GroupTabs(nil) error = %v; want %s", err, types.CodeValidation)
	}
	if err := c.MoveTab(context.Background(), 1, -1); !types.HasCode(err, types.CodeValidation) {
		t.Fatalf("MoveTab(-1) error = %v; want %s", err, types.CodeValidation)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
