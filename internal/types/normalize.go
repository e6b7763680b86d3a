package types

import "strings"

// internalSchemes are URL schemes the browser never lets extensions script
// or group reliably.
var internalSchemes = []string{
	"chrome:",
	"chrome-extension:",
	"chrome-untrusted:",
	"chrome-search:",
	"devtools:",
	"edge:",
	"brave:",
	"opera:",
	"vivaldi:",
	"about:",
	"view-source:",
}

// NormalizeURL returns the key used to compare URLs for equality: a single
// trailing slash, a leading http:// or https:// and a leading www. are removed.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.TrimSuffix(u, "/")
	lower := strings.ToLower(u)
	switch {
	case strings.HasPrefix(lower, "https://"):
		u = u[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		u = u[len("http://"):]
	}
	if strings.HasPrefix(strings.ToLower(u), "www.") {
		u = u[len("www."):]
	}
	return u
}

// SameURL reports whether two URLs share a normalized key.
func SameURL(a, b string) bool {
	return NormalizeURL(a) == NormalizeURL(b)
}

// IsInternalURL reports whether the URL uses a browser-internal scheme.
func IsInternalURL(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return true
	}
	for _, scheme := range internalSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
