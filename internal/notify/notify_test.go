package notify

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/dgnsrekt/tab_grouper/internal/types"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     make(http.Header),
	}
}

func sampleReport() types.RunReport {
	return types.RunReport{
		RunID:    "run-7",
		TabCount: 5,
		Groups: []types.AppliedGroup{
			{Name: "News", GroupID: 1, TabIDs: []int{1, 2}},
			{Name: "Shopping", GroupID: 2, TabIDs: []int{3}},
		},
		ExceptionTabIDs: []int{4, 5},
	}
}

func TestSendRunSummaryPostsMessage(t *testing.T) {
	var receivedMethod, receivedPath, receivedBody, receivedContentType string
	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			receivedMethod = r.Method
			receivedPath = r.URL.Path
			receivedContentType = r.Header.Get("Content-Type")
			rawBody, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			receivedBody = string(rawBody)
			return okResponse(), nil
		}),
	}

	report := sampleReport()
	if err := SendRunSummary(context.Background(), client, "http://example.com/tabs", report); err != nil {
		t.Fatalf("SendRunSummary() error = %v", err)
	}
	if got, want := receivedMethod, http.MethodPost; got != want {
		t.Fatalf("method = %q; want %q", got, want)
	}
	if got, want := receivedPath, "/tabs"; got != want {
		t.Fatalf("path = %q; want %q", got, want)
	}
	if got, want := receivedContentType, "text/plain"; got != want {
		t.Fatalf("content-type = %q; want %q", got, want)
	}
	if got, want := receivedBody, Summary(report); got != want {
		t.Fatalf("body = %q; want %q", got, want)
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name   string
		report types.RunReport
		want   string
	}{
		{
			name:   "groups and exceptions",
			report: sampleReport(),
			want:   "Tab grouper run run-7: 5 tabs, 2 groups [News (2), Shopping (1)], 2 exceptions.",
		},
		{
			name:   "empty run with failures",
			report: types.RunReport{RunID: "r", Failures: []types.TabFailure{{Op: "move", TabID: 3, Error: "x"}}},
			want:   "Tab grouper run r: 0 tabs, 0 groups, 0 exceptions, 1 failures.",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Summary(tc.report); got != tc.want {
				t.Fatalf("Summary() = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestSendReturnsErrorForServerError(t *testing.T) {
	client := &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader("server failure")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	err := Send(context.Background(), client, "http://example.com/tabs", "hi")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "ntfy notification failed") {
		t.Fatalf("error = %q; want to contain %q", err, "ntfy notification failed")
	}
}

func TestSendDisallowsMissingEndpoint(t *testing.T) {
	if err := Send(context.Background(), http.DefaultClient, "", "hi"); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
