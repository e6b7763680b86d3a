// Package extract defines the per-tab page summary produced inside a tab's
// document and how that summary is rendered for the clustering prompt.
package extract

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxHeaders caps the number of h1-h3 texts kept per page.
	MaxHeaders = 5
	// MaxContentChars caps the body text kept per page.
	MaxContentChars = 1000
)

// PageMetadata is the structured record returned by the in-page extractor.
type PageMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Headers     []string `json:"headers"`
	Content     string   `json:"content"`
	URL         string   `json:"url"`
}

// Normalize trims every field and re-applies the header and content caps.
func (m PageMetadata) Normalize() PageMetadata {
	out := PageMetadata{
		Title:       collapse(m.Title),
		Description: collapse(m.Description),
		Content:     truncateChars(collapse(m.Content), MaxContentChars),
		URL:         strings.TrimSpace(m.URL),
	}
	for _, h := range m.Headers {
		if len(out.Headers) == MaxHeaders {
			break
		}
		if h = collapse(h); h != "" {
			out.Headers = append(out.Headers, h)
		}
	}
	return out
}

// Empty reports whether the extractor returned nothing usable.
func (m PageMetadata) Empty() bool {
	return m.Title == "" && m.Description == "" && m.Content == "" && len(m.Headers) == 0
}

// PromptLine renders the record as one delimited prompt line:
// title | description | header, header | content | url.
func (m PageMetadata) PromptLine() string {
	return strings.Join([]string{
		m.Title,
		m.Description,
		strings.Join(m.Headers, ", "),
		m.Content,
		m.URL,
	}, " | ")
}

// FallbackLine is the summary used when a tab could not be scripted.
func FallbackLine(title, url string) string {
	return collapse(title) + " - " + strings.TrimSpace(url)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateChars(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i]
		}
		n++
	}
	return s
}
