package oracle

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/tab_grouper/internal/types"
	"github.com/tidwall/gjson"
)

func TestClusterSendsPromptAndDecodesChoices(t *testing.T) {
	var gotBody []byte
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"**Cluster 1: News**"}}]}`)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL+"/v1/"), WithModel("test-model"), WithAPIKey("k"))
	got, err := c.Cluster(context.Background(), []string{"a | | | | https://a.com", "b - https://b.com"})
	if err != nil {
		t.Fatalf("Cluster() error = %v", err)
	}
	if got != "**Cluster 1: News**" {
		t.Fatalf("Cluster() = %q", got)
	}
	if gotPath != "/v1/chat/completions" {
		t.Fatalf("path = %q; want /v1/chat/completions", gotPath)
	}
	if gotAuth != "Bearer k" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if m := gjson.GetBytes(gotBody, "model").String(); m != "test-model" {
		t.Fatalf("model = %q; want test-model", m)
	}
	if role := gjson.GetBytes(gotBody, "messages.0.role").String(); role != "system" {
		t.Fatalf("messages[0].role = %q; want system", role)
	}
	want := Instruction + "\na | | | | https://a.com\nb - https://b.com"
	if content := gjson.GetBytes(gotBody, "messages.1.content").String(); content != want {
		t.Fatalf("user prompt = %q; want %q", content, want)
	}
}

func TestClusterHTTPErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL)).Cluster(context.Background(), nil)
	if !types.HasCode(err, types.CodeOracleUnavailable) {
		t.Fatalf("Cluster() error = %v; want %s", err, types.CodeOracleUnavailable)
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("error %q should carry the body snippet", err)
	}
}

func TestClusterTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond)).Cluster(context.Background(), []string{"x"})
	if !types.HasCode(err, types.CodeOracleTimeout) {
		t.Fatalf("Cluster() error = %v; want %s", err, types.CodeOracleTimeout)
	}
	if !types.IsOracleFailure(err) {
		t.Fatalf("IsOracleFailure() = false for %v", err)
	}
}

func TestClusterUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(WithBaseURL(url)).Cluster(context.Background(), nil)
	if !types.HasCode(err, types.CodeOracleUnavailable) {
		t.Fatalf("Cluster() error = %v; want %s", err, types.CodeOracleUnavailable)
	}
}

func TestDecodeReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "chat choices", body: `{"choices":[{"message":{"content":"hello"}}]}`, want: "hello"},
		{name: "completion choices", body: `{"choices":[{"text":"hello"}]}`, want: "hello"},
		{name: "every choice", body: `{"choices":[{"message":{"content":"**Cluster 1: A**"}},{"index":1},{"text":"**Cluster 2: B**"}]}`, want: "**Cluster 1: A**\n\n**Cluster 2: B**"},
		{name: "choices without text", body: `{"choices":[{"index":0}],"content":"hello"}`, want: "hello"},
		{name: "content", body: `{"content":"hello"}`, want: "hello"},
		{name: "text", body: `{"text":"hello"}`, want: "hello"},
		{name: "message string", body: `{"message":"hello"}`, want: "hello"},
		{name: "json string", body: `"hello\nworld"`, want: "hello\nworld"},
		{name: "plain text", body: "  **Cluster 1: News**\n(https://a.com)\n", want: "**Cluster 1: News**\n(https://a.com)"},
		{name: "arbitrary json", body: `{"foo": [1, 2], "message": {"x": 1}}`, want: `{"foo":[1,2],"message":{"x":1}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeReply([]byte(tc.body))
			if err != nil {
				t.Fatalf("DecodeReply() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("DecodeReply() = %q; want %q", got, tc.want)
			}
		})
	}

	if _, err := DecodeReply([]byte(" \n")); !types.HasCode(err, types.CodeOracleBadResponse) {
		t.Fatalf("DecodeReply(empty) error = %v; want %s", err, types.CodeOracleBadResponse)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(WithBaseURL(""), WithModel(""), WithTimeout(0))
	if c.baseURL != DefaultBaseURL || c.Model() != DefaultModel || c.timeout != DefaultTimeout {
		t.Fatalf("New() = %+v; want defaults", c)
	}
}
