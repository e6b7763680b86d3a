package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// rawCDP speaks just enough of the DevTools protocol to attach to the bridge
// extension's worker and evaluate script in it. It never enables target
// discovery or auto-attach.
type rawCDP struct {
	httpBase string // e.g. "http://127.0.0.1:9222"

	mu   sync.Mutex // guards conn and serializes writes
	conn net.Conn
	seq  atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan json.RawMessage
}

// cdpReply is the outer frame of a command response.
type cdpReply struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var errNotConnected = errors.New("rawcdp: not connected")

func newRawCDP(httpBase string) *rawCDP {
	return &rawCDP{
		httpBase: strings.TrimRight(httpBase, "/"),
		pending:  make(map[int64]chan json.RawMessage),
	}
}

// connect dials the browser WebSocket advertised by /json/version.
func (r *rawCDP) connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return nil
	}

	wsURL, err := r.browserWSURL(ctx)
	if err != nil {
		return fmt.Errorf("rawcdp: browser ws url: %w", err)
	}
	slog.Debug("rawcdp dial", "ws_url", wsURL)
	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("rawcdp: dial: %w", err)
	}

	r.conn = conn
	r.pendingMu.Lock()
	r.pending = make(map[int64]chan json.RawMessage)
	r.pendingMu.Unlock()
	go r.readLoop(conn)
	return nil
}

func (r *rawCDP) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}

func (r *rawCDP) connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// readLoop routes command responses to their waiters. Events are dropped.
func (r *rawCDP) readLoop(conn net.Conn) {
	defer r.failPending()
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			slog.Debug("rawcdp read loop exit", "error", err)
			r.mu.Lock()
			if r.conn == conn {
				r.conn = nil
			}
			r.mu.Unlock()
			return
		}

		var head struct {
			ID int64 `json:"id"`
		}
		if json.Unmarshal(data, &head) != nil || head.ID == 0 {
			continue
		}
		if ch := r.takePending(head.ID); ch != nil {
			ch <- json.RawMessage(data)
		}
	}
}

func (r *rawCDP) takePending(id int64) chan json.RawMessage {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	ch, ok := r.pending[id]
	if !ok {
		return nil
	}
	delete(r.pending, id)
	return ch
}

func (r *rawCDP) failPending() {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
}

// call sends one command, on a flat session when sessionID is set, and
// returns its result object.
func (r *rawCDP) call(ctx context.Context, sessionID, method string, params any) (json.RawMessage, error) {
	id := r.seq.Add(1)
	frame := struct {
		ID        int64  `json:"id"`
		Method    string `json:"method"`
		SessionID string `json:"sessionId,omitempty"`
		Params    any    `json:"params,omitempty"`
	}{ID: id, Method: method, SessionID: sessionID, Params: params}

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("rawcdp: marshal %s: %w", method, err)
	}

	r.mu.Lock()
	conn := r.conn
	if conn == nil {
		r.mu.Unlock()
		return nil, errNotConnected
	}
	ch := make(chan json.RawMessage, 1)
	r.pendingMu.Lock()
	r.pending[id] = ch
	r.pendingMu.Unlock()
	err = wsutil.WriteClientText(conn, data)
	r.mu.Unlock()
	if err != nil {
		r.takePending(id)
		return nil, fmt.Errorf("rawcdp: send %s: %w", method, err)
	}

	select {
	case raw, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("rawcdp: %s: connection closed", method)
		}
		var reply cdpReply
		if err := json.Unmarshal(raw, &reply); err != nil {
			return nil, fmt.Errorf("rawcdp: unmarshal %s: %w", method, err)
		}
		if reply.Error != nil {
			return nil, fmt.Errorf("rawcdp: %s: %s", method, reply.Error.Message)
		}
		return reply.Result, nil
	case <-ctx.Done():
		r.takePending(id)
		return nil, ctx.Err()
	}
}

// attach opens a flat session on the target.
func (r *rawCDP) attach(ctx context.Context, targetID target.ID) (string, error) {
	params := struct {
		TargetID target.ID `json:"targetId"`
		Flatten  bool      `json:"flatten"`
	}{TargetID: targetID, Flatten: true}

	raw, err := r.call(ctx, "", "Target.attachToTarget", params)
	if err != nil {
		return "", err
	}
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("rawcdp: unmarshal attach: %w", err)
	}
	if out.SessionID == "" {
		return "", errors.New("rawcdp: attach returned no session")
	}
	return out.SessionID, nil
}

// detach leaves the session without closing the target.
func (r *rawCDP) detach(ctx context.Context, sessionID string) error {
	params := struct {
		SessionID string `json:"sessionId"`
	}{SessionID: sessionID}
	_, err := r.call(ctx, "", "Target.detachFromTarget", params)
	return err
}

// evaluate runs js in the session, awaiting a returned promise. String
// results are unquoted; other values come back as raw JSON.
func (r *rawCDP) evaluate(ctx context.Context, sessionID, js string) (string, error) {
	params := struct {
		Expression    string `json:"expression"`
		ReturnByValue bool   `json:"returnByValue"`
		AwaitPromise  bool   `json:"awaitPromise"`
	}{Expression: js, ReturnByValue: true, AwaitPromise: true}

	raw, err := r.call(ctx, sessionID, "Runtime.evaluate", params)
	if err != nil {
		return "", err
	}

	var out struct {
		Result struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("rawcdp: unmarshal eval: %w", err)
	}
	if d := out.ExceptionDetails; d != nil {
		msg := d.Text
		if d.Exception != nil && d.Exception.Description != "" {
			msg = d.Exception.Description
		}
		return "", fmt.Errorf("rawcdp: eval exception: %s", msg)
	}

	var s string
	if err := json.Unmarshal(out.Result.Value, &s); err != nil {
		return string(out.Result.Value), nil
	}
	return s, nil
}

// listTargets reads /json/list. Extension service workers are included
// alongside pages.
func (r *rawCDP) listTargets(ctx context.Context) ([]*target.Info, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	body, err := r.getJSON(ctx, "/json/list")
	if err != nil {
		return nil, err
	}
	var entries []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("rawcdp: /json/list: %w", err)
	}

	out := make([]*target.Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, &target.Info{
			TargetID: target.ID(e.ID),
			Type:     e.Type,
			Title:    e.Title,
			URL:      e.URL,
		})
	}
	return out, nil
}

func (r *rawCDP) browserWSURL(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := r.getJSON(ctx, "/json/version")
	if err != nil {
		return "", err
	}
	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("rawcdp: /json/version: %w", err)
	}
	if info.WebSocketDebuggerURL == "" {
		return "", errors.New("rawcdp: empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}

func (r *rawCDP) getJSON(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.httpBase+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rawcdp: %s: HTTP %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
