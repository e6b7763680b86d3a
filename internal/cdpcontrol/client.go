// Package cdpcontrol drives native tab groups through the bridge extension's
// worker, reached over the Chrome DevTools Protocol.
package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/dgnsrekt/tab_grouper/internal/types"
)

// DefaultBridgeFilter matches the bridge worker's script URL.
const DefaultBridgeFilter = "tab_grouper_bridge"

// transientHints are substrings in error causes that indicate a transient
// failure worth retrying: a dropped socket or a worker that was restarted.
var transientHints = []string{
	"context canceled",
	"target closed",
	"session closed",
	"no session with given id",
	"cannot find context",
	"websocket",
	"connection reset",
	"broken pipe",
	"eof",
	"connection refused",
	"connection closed",
	"not connected",
}

// bridgeTargetTypes are accepted in preference order.
var bridgeTargetTypes = []string{"service_worker", "background_page", "page"}

type bridgeSession struct {
	info      *target.Info
	mu        sync.Mutex
	sessionID string // from Target.attachToTarget
}

// Client evaluates extension-API calls in the bridge worker. It is safe for
// concurrent use.
type Client struct {
	cdpURL       string
	bridgeFilter string
	evalTimeout  time.Duration

	mu     sync.Mutex
	cdp    *rawCDP
	bridge *bridgeSession
}

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

func NewClient(cdpURL, bridgeFilter string, evalTimeout time.Duration) *Client {
	bridgeFilter = strings.ToLower(strings.TrimSpace(bridgeFilter))
	if bridgeFilter == "" {
		bridgeFilter = DefaultBridgeFilter
	}
	if evalTimeout <= 0 {
		evalTimeout = 5 * time.Second
	}
	return &Client{
		cdpURL:       cdpURL,
		bridgeFilter: bridgeFilter,
		evalTimeout:  evalTimeout,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.cdpURL == "" {
		return types.NewError(types.CodeCDPUnavailable, "missing CDP URL", nil)
	}

	slog.Info("cdpcontrol connect start", "cdp_url", c.cdpURL)
	c.cleanupLocked()

	c.cdp = newRawCDP(c.cdpURL)
	if err := c.cdp.connect(ctx); err != nil {
		c.cdp = nil
		return types.NewError(types.CodeCDPUnavailable, "connect to CDP failed", err)
	}
	if err := c.syncBridgeLocked(ctx); err != nil {
		slog.Error("cdpcontrol bridge lookup failed", "error", err)
		c.cleanupLocked()
		return err
	}

	slog.Info("cdpcontrol connect ok", "cdp_url", c.cdpURL, "bridge_url", c.bridge.info.URL)
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
	return nil
}

func (c *Client) cleanupLocked() {
	if c.cdp != nil {
		if b := c.bridge; b != nil {
			b.mu.Lock()
			if b.sessionID != "" {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				if err := c.cdp.detach(ctx, b.sessionID); err != nil {
					slog.Debug("cdpcontrol detach cleanup failed", "session_id", b.sessionID, "error", err)
				}
				cancel()
				b.sessionID = ""
			}
			b.mu.Unlock()
		}
		c.cdp.close()
		c.cdp = nil
	}
	c.bridge = nil
}

// Ping checks that the bridge is reachable and returns its extension id.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var out struct {
		ExtensionID string `json:"extension_id"`
		Version     string `json:"version"`
	}
	if err := c.evalOnBridge(ctx, jsBridgePing(), &out); err != nil {
		return "", err
	}
	return out.ExtensionID, nil
}

// evalOnBridge evaluates js with one reconnect-or-refresh retry on
// transient failures.
func (c *Client) evalOnBridge(ctx context.Context, js string, out any) error {
	session, err := c.resolveBridge(ctx)
	if err == nil {
		err = c.evalOnSession(ctx, session, js, out)
	}
	if err == nil {
		return nil
	}
	if !c.shouldRetry(err) {
		return err
	}

	slog.Warn("cdpcontrol eval retry after transient failure", "error", err)
	if types.HasCode(err, types.CodeCDPUnavailable) {
		if recErr := c.reconnect(ctx); recErr != nil {
			slog.Error("cdpcontrol reconnect failed during retry", "error", recErr)
			return recErr
		}
	} else if syncErr := c.refreshBridge(ctx); syncErr != nil {
		slog.Warn("cdpcontrol bridge refresh failed during retry", "error", syncErr)
		return syncErr
	}

	session, err = c.resolveBridge(ctx)
	if err != nil {
		return err
	}
	return c.evalOnSession(ctx, session, js, out)
}

func (c *Client) evalOnSession(ctx context.Context, session *bridgeSession, js string, out any) error {
	c.mu.Lock()
	cdp := c.cdp
	c.mu.Unlock()
	if cdp == nil {
		return types.NewError(types.CodeCDPUnavailable, "CDP client not connected", nil)
	}

	sessionID, err := c.ensureSession(ctx, cdp, session)
	if err != nil {
		return err
	}

	evalCtx, cancel := context.WithTimeout(ctx, c.evalTimeout)
	defer cancel()

	raw, err := cdp.evaluate(evalCtx, sessionID, js)
	if err != nil {
		slog.Warn("cdpcontrol eval failed", "target_id", session.info.TargetID, "error", err)
		session.mu.Lock()
		session.sessionID = ""
		session.mu.Unlock()

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			return types.NewError(types.CodeEvalTimeout, "evaluation timed out", err)
		}
		if errors.Is(err, errNotConnected) {
			return types.NewError(types.CodeCDPUnavailable, "CDP connection lost", err)
		}
		return types.NewError(types.CodeEvalFailure, "evaluation failed", err)
	}

	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return types.NewError(types.CodeEvalFailure, "invalid evaluation envelope", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = types.CodeEvalFailure
		}
		return types.NewError(code, env.ErrorMessage, nil)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return types.NewError(types.CodeEvalFailure, "invalid evaluation data", err)
	}
	return nil
}

// ensureSession returns the bridge session id, attaching if needed.
func (c *Client) ensureSession(ctx context.Context, cdp *rawCDP, session *bridgeSession) (string, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.sessionID != "" {
		return session.sessionID, nil
	}
	sid, err := cdp.attach(ctx, session.info.TargetID)
	if err != nil {
		if !cdp.connected() {
			return "", types.NewError(types.CodeCDPUnavailable, "attach to bridge failed", err)
		}
		return "", types.NewError(types.CodeEvalFailure, "attach to bridge failed", err)
	}
	session.sessionID = sid
	slog.Debug("cdpcontrol bridge attached", "target_id", session.info.TargetID, "session_id", sid)
	return sid, nil
}

func (c *Client) resolveBridge(ctx context.Context) (*bridgeSession, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	b := c.bridge
	c.mu.Unlock()
	if b != nil {
		return b, nil
	}
	if err := c.refreshBridge(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bridge == nil {
		return nil, types.NewError(types.CodeBridgeNotFound, "bridge extension target not found", nil)
	}
	return c.bridge, nil
}

func (c *Client) refreshBridge(ctx context.Context) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncBridgeLocked(ctx)
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.cdp != nil && c.cdp.connected()
	c.mu.Unlock()
	if connected {
		return nil
	}
	return c.reconnect(ctx)
}

// syncBridgeLocked picks the bridge target from the browser's target list,
// keeping the attached session when the target is unchanged.
func (c *Client) syncBridgeLocked(ctx context.Context) error {
	if c.cdp == nil {
		return types.NewError(types.CodeCDPUnavailable, "CDP client not connected", nil)
	}

	targets, err := c.cdp.listTargets(ctx)
	if err != nil {
		return types.NewError(types.CodeCDPUnavailable, "failed to list targets", err)
	}

	found := selectBridgeTarget(targets, c.bridgeFilter)
	if found == nil {
		c.bridge = nil
		return types.NewError(types.CodeBridgeNotFound,
			"no extension target matching "+c.bridgeFilter+"; is the bridge extension loaded?", nil)
	}
	if c.bridge != nil && c.bridge.info.TargetID == found.TargetID {
		c.bridge.info = found
		return nil
	}
	c.bridge = &bridgeSession{info: found}
	slog.Debug("cdpcontrol bridge sync", "targets", len(targets), "target_id", found.TargetID, "type", found.Type)
	return nil
}

func selectBridgeTarget(targets []*target.Info, filter string) *target.Info {
	for _, typ := range bridgeTargetTypes {
		for _, t := range targets {
			if t == nil || t.Type != typ {
				continue
			}
			url := strings.ToLower(t.URL)
			if !strings.HasPrefix(url, "chrome-extension://") {
				continue
			}
			if filter != "" && !strings.Contains(url, filter) {
				continue
			}
			return t
		}
	}
	return nil
}

func (c *Client) shouldRetry(err error) bool {
	var coded *types.CodedError
	if !errors.As(err, &coded) {
		return false
	}

	switch coded.Code {
	case types.CodeCDPUnavailable:
		return true
	case types.CodeEvalFailure:
		if coded.Cause == nil {
			return false
		}
		cause := strings.ToLower(coded.Cause.Error())
		for _, hint := range transientHints {
			if strings.Contains(cause, hint) {
				return true
			}
		}
	}
	return false
}
