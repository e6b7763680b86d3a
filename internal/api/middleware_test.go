package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestLoggerRunAndWindow(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newRequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(runIDHeader, "run-9")
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/cluster?window_id=4", nil))

	lines := decodeLogLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("log lines = %d; want 1", len(lines))
	}
	got := lines[0]
	if got["run_id"] != "run-9" || got["window_id"] != "4" || got["level"] != "INFO" {
		t.Fatalf("log line = %v", got)
	}
	if got["status"] != float64(200) || got["path"] != "/api/v1/cluster" {
		t.Fatalf("log line = %v", got)
	}
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{path: "/health", status: 200, want: slog.LevelDebug},
		{path: "/api/v1/health/deep", status: 200, want: slog.LevelDebug},
		{path: "/api/v1/health/deep", status: 503, want: slog.LevelWarn},
		{path: "/api/v1/cluster", status: 409, want: slog.LevelInfo},
		{path: "/api/v1/cluster", status: 502, want: slog.LevelWarn},
	}
	for _, tc := range tests {
		if got := requestLevel(tc.path, tc.status); got != tc.want {
			t.Fatalf("requestLevel(%q, %d) = %v; want %v", tc.path, tc.status, got, tc.want)
		}
	}
}
