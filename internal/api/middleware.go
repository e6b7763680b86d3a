package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// runIDHeader carries the run id of a cluster response.
const runIDHeader = "X-Run-ID"

// newRequestLogger logs one line per request. Health polls go to debug and
// server errors to warn; the run id and window id are attached when present.
func newRequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			}
			if wid := r.URL.Query().Get("window_id"); wid != "" {
				attrs = append(attrs, slog.String("window_id", wid))
			}
			if runID := ww.Header().Get(runIDHeader); runID != "" {
				attrs = append(attrs, slog.String("run_id", runID))
			}
			log.LogAttrs(context.Background(), requestLevel(r.URL.Path, ww.Status()), "http request", attrs...)
		})
	}
}

func requestLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelWarn
	case path == "/health" || strings.HasPrefix(path, "/api/v1/health"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
