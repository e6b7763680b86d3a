package cdpcontrol

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// fakeBrowser serves the DevTools HTTP endpoints and a WebSocket that answers
// Target and Runtime commands through evalFn.
type fakeBrowser struct {
	srv     *httptest.Server
	targets []map[string]string

	mu        sync.Mutex
	attached  []string
	exprs     []string
	evalCalls int

	// evalFn returns the string result of Runtime.evaluate, or a protocol
	// error message.
	evalFn func(call int, expr string) (string, string)
}

func newFakeBrowser(t *testing.T, targets []map[string]string) *fakeBrowser {
	t.Helper()
	fb := &fakeBrowser{targets: targets}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"webSocketDebuggerUrl": "ws://" + r.Host + "/devtools/browser/fake",
		})
	})
	mux.HandleFunc("/json/list", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(fb.targets)
	})
	mux.HandleFunc("/devtools/browser/fake", fb.serveWS)
	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBrowser) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}
		var req struct {
			ID     int64           `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if json.Unmarshal(data, &req) != nil {
			continue
		}

		reply := map[string]any{"id": req.ID}
		switch req.Method {
		case "Target.attachToTarget":
			var p struct {
				TargetID string `json:"targetId"`
			}
			_ = json.Unmarshal(req.Params, &p)
			fb.mu.Lock()
			fb.attached = append(fb.attached, p.TargetID)
			sid := "session-" + p.TargetID
			fb.mu.Unlock()
			reply["result"] = map[string]any{"sessionId": sid}
		case "Target.detachFromTarget":
			reply["result"] = map[string]any{}
		case "Runtime.evaluate":
			var p struct {
				Expression string `json:"expression"`
			}
			_ = json.Unmarshal(req.Params, &p)
			fb.mu.Lock()
			fb.evalCalls++
			call := fb.evalCalls
			fb.exprs = append(fb.exprs, p.Expression)
			fn := fb.evalFn
			fb.mu.Unlock()

			value, protoErr := fn(call, p.Expression)
			if protoErr != "" {
				reply["error"] = map[string]any{"code": -32000, "message": protoErr}
			} else {
				reply["result"] = map[string]any{"result": map[string]any{"type": "string", "value": value}}
			}
		default:
			reply["error"] = map[string]any{"code": -32601, "message": "unknown method " + req.Method}
		}

		out, _ := json.Marshal(reply)
		if err := wsutil.WriteServerText(conn, out); err != nil {
			return
		}
	}
}

func (fb *fakeBrowser) onEval(fn func(call int, expr string) (string, string)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.evalFn = fn
}

func (fb *fakeBrowser) attachCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.attached)
}

func (fb *fakeBrowser) firstAttached() string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.attached) == 0 {
		return ""
	}
	return fb.attached[0]
}

func (fb *fakeBrowser) evalCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.evalCalls
}

func (fb *fakeBrowser) lastExpr() string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.exprs) == 0 {
		return ""
	}
	return fb.exprs[len(fb.exprs)-1]
}

func bridgeTargets() []map[string]string {
	return []map[string]string{
		{"id": "page-1", "type": "page", "title": "News", "url": "https://news.example.com"},
		{"id": "sw-1", "type": "service_worker", "title": "Service Worker", "url": "chrome-extension://abcdef/tab_grouper_bridge.js"},
	}
}

func envelope(data any) string {
	b, _ := json.Marshal(map[string]any{"ok": true, "data": data})
	return string(b)
}

func errorEnvelope(code, msg string) string {
	b, _ := json.Marshal(map[string]any{"ok": false, "error_code": code, "error_message": msg})
	return string(b)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
