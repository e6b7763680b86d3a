package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestNormalizeURLEquivalence(t *testing.T) {
	inputs := []string{
		"http://example.com/path/",
		"https://www.example.com/path",
		"example.com/path",
		"  HTTPS://WWW.example.com/path/  ",
	}
	want := "example.com/path"
	for _, in := range inputs {
		if got := NormalizeURL(in); got != want {
			t.Fatalf("NormalizeURL(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestNormalizeURLKeepsDistinctPaths(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{a: "https://a.com", b: "a.com/", same: true},
		{a: "https://a.com/x", b: "https://a.com/y", same: false},
		{a: "https://a.com/?q=1", b: "https://a.com/?q=2", same: false},
		{a: "https://sub.a.com", b: "https://a.com", same: false},
		{a: "ftp://a.com", b: "a.com", same: false},
	}
	for _, tt := range tests {
		if got := SameURL(tt.a, tt.b); got != tt.same {
			t.Fatalf("SameURL(%q, %q) = %v; want %v", tt.a, tt.b, got, tt.same)
		}
	}
}

func TestIsInternalURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{url: "chrome://newtab/", want: true},
		{url: "chrome-extension://abc/popup.html", want: true},
		{url: "about:blank", want: true},
		{url: "", want: true},
		{url: "https://news.example.com", want: false},
		{url: "file:///tmp/report.html", want: false},
	}
	for _, tt := range tests {
		if got := IsInternalURL(tt.url); got != tt.want {
			t.Fatalf("IsInternalURL(%q) = %v; want %v", tt.url, got, tt.want)
		}
	}
}

func TestCodedErrorHelpers(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("run: %w", NewError(CodeOracleUnavailable, "oracle request failed", cause))

	if !HasCode(err, CodeOracleUnavailable) {
		t.Fatalf("HasCode() = false; want true for %v", err)
	}
	if !IsOracleFailure(err) {
		t.Fatalf("IsOracleFailure() = false; want true")
	}
	if IsOracleFailure(NewError(CodeEvalFailure, "eval", nil)) {
		t.Fatalf("IsOracleFailure(EVAL_FAILURE) = true; want false")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false; want true")
	}
	if got := NewError(CodeValidation, "window_id is required", nil).Error(); got != "VALIDATION: window_id is required" {
		t.Fatalf("Error() = %q", got)
	}
}
