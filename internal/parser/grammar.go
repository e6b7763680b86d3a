// Package parser turns the oracle's free-text reply into ordered clusters of
// member URLs.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultKeywords are the header labels accepted when none are configured.
var DefaultKeywords = []string{"Cluster", "Group"}

// HeaderGrammar configures which lines of the reply start a cluster.
//
// With Pattern empty, a header is a keyword followed by a number, a
// separator and a name, either bolded anywhere on a line
// ("**Cluster 1: News**", "**Group 2:** Shopping") or, unless RequireBold
// is set, alone on its own line, optionally as a list item or # heading.
// A non-empty Pattern replaces the keyword grammar; it must contain a
// named group "name" and may contain "num".
type HeaderGrammar struct {
	Keywords    []string `yaml:"keywords"`
	RequireBold bool     `yaml:"require_bold"`
	Pattern     string   `yaml:"pattern"`
	// BareURLs also collects URLs that are not wrapped in parentheses.
	BareURLs bool `yaml:"bare_urls"`
}

// Grammar is a compiled HeaderGrammar.
type Grammar struct {
	headers  []headerForm
	bareURLs bool
}

// headerForm is one header matcher. Forms are listed by priority: a match of
// a later form that overlaps an earlier form's match is dropped.
type headerForm struct {
	re *regexp.Regexp
	// bold matches end at the closing "**"; an empty name is then read from
	// the rest of the line.
	bold bool
}

// Compile validates the grammar and builds its matchers.
func (h HeaderGrammar) Compile() (*Grammar, error) {
	g := &Grammar{bareURLs: h.BareURLs}

	if p := strings.TrimSpace(h.Pattern); p != "" {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("header grammar: pattern: %w", err)
		}
		if re.SubexpIndex("name") < 0 {
			return nil, errors.New(`header grammar: pattern must contain a (?P<name>...) group`)
		}
		g.headers = []headerForm{{re: re}}
		return g, nil
	}

	keywords := h.Keywords
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
	}
	if len(quoted) == 0 {
		return nil, errors.New("header grammar: at least one keyword is required")
	}
	kw := "(?:" + strings.Join(quoted, "|") + ")"

	// The name may sit inside the bold markers or right after them.
	bold := regexp.MustCompile(`(?i)\*\*[ \t]*` + kw + `[ \t]*(?P<num>\d+)[ \t]*[:.\-][ \t]*(?P<name>[^*\n]*?)[ \t]*\*\*`)
	g.headers = append(g.headers, headerForm{re: bold, bold: true})

	if !h.RequireBold {
		// An opening "**" that is never closed still starts a plain header.
		plain := regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:(?:[-*+]|\d+[.)])[ \t]+)?(?:\*\*[ \t]*)?` + kw + `[ \t]*(?P<num>\d+)[ \t]*[:.\-][ \t]*(?P<name>[^\n]+?)[ \t]*$`)
		g.headers = append(g.headers, headerForm{re: plain})
	}
	return g, nil
}

// MustCompile is Compile that panics on error.
func (h HeaderGrammar) MustCompile() *Grammar {
	g, err := h.Compile()
	if err != nil {
		panic(err)
	}
	return g
}
