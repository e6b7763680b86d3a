package parser

import (
	"iter"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Section is one cluster header and the body span that follows it.
type Section struct {
	Number      int    // Number from the header, 0 when the grammar has none
	Name        string // Cleaned cluster name
	HeaderStart int    // Byte offset of the header match
	BodyStart   int    // Byte offset where the body span starts
	BodyEnd     int    // Byte offset before the next header or EOF
}

type headerMatch struct {
	start     int
	end       int
	number    int
	name      string
	bodyStart int
	// nameAfter marks a bold header whose name follows the closing "**".
	nameAfter bool
}

// Sections yields headers and their body spans in text order. A body runs
// from the header name until the next header or the end of text, so URLs in
// or next to the name are kept.
func (g *Grammar) Sections(text string) iter.Seq[Section] {
	return func(yield func(Section) bool) {
		matches := g.findHeaders(text)
		for i, m := range matches {
			end := len(text)
			if i+1 < len(matches) {
				end = matches[i+1].start
			}
			sec := Section{
				Number:      m.number,
				Name:        m.name,
				HeaderStart: m.start,
				BodyStart:   m.bodyStart,
				BodyEnd:     end,
			}
			if !yield(sec) {
				return
			}
		}
	}
}

// Body returns the section's body text.
func (s Section) Body(text string) string {
	if s.BodyStart >= s.BodyEnd {
		return ""
	}
	return text[s.BodyStart:s.BodyEnd]
}

// findHeaders collects the matches of every header form in priority order,
// dropping a match that overlaps one already kept, and returns them ordered
// by offset with their names resolved.
func (g *Grammar) findHeaders(text string) []headerMatch {
	var kept []headerMatch
	for _, form := range g.headers {
		for _, loc := range form.re.FindAllStringSubmatchIndex(text, -1) {
			if m, ok := toHeaderMatch(form, text, loc); ok && !overlapsAny(kept, m) {
				kept = append(kept, m)
			}
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].start < kept[j].start })

	out := kept[:0]
	for i, m := range kept {
		if m.nameAfter {
			// "**Cluster 1:** News" carries the name up to the line end or the
			// next header on the same line.
			limit := lineEnd(text, m.end)
			if i+1 < len(kept) && kept[i+1].start < limit {
				limit = kept[i+1].start
			}
			m.name = cleanName(text[m.end:limit])
		}
		if m.name == "" {
			if m.number <= 0 {
				continue
			}
			m.name = "Cluster " + strconv.Itoa(m.number)
		}
		out = append(out, m)
	}
	return out
}

func overlapsAny(kept []headerMatch, m headerMatch) bool {
	for _, k := range kept {
		if m.start < k.end && k.start < m.end {
			return true
		}
	}
	return false
}

func toHeaderMatch(form headerForm, text string, loc []int) (headerMatch, bool) {
	idx := form.re.SubexpIndex("name")
	if idx < 0 || loc[2*idx] < 0 {
		return headerMatch{}, false
	}
	m := headerMatch{start: loc[0], end: loc[1], bodyStart: loc[2*idx]}
	if n := form.re.SubexpIndex("num"); n >= 0 && loc[2*n] >= 0 {
		m.number, _ = strconv.Atoi(text[loc[2*n]:loc[2*n+1]])
	}
	m.name = cleanName(text[loc[2*idx]:loc[2*idx+1]])
	m.nameAfter = form.bold && m.name == ""
	if m.name == "" && !m.nameAfter && m.number <= 0 {
		return headerMatch{}, false
	}
	return m, true
}

var (
	linkMarkup    = regexp.MustCompile(`\[([^\]\n]*)\]\((?:[^()\n]|\([^()\n]*\))*\)`)
	parenthesized = regexp.MustCompile(`\((?:[^()\n]|\([^()\n]*\))*\)`)
)

// cleanName strips markup and trailing URL annotations from a header name.
func cleanName(s string) string {
	s = linkMarkup.ReplaceAllString(s, "$1")
	s = parenthesized.ReplaceAllStringFunc(s, func(p string) string {
		if strings.Contains(p, "://") || strings.Contains(strings.ToLower(p), "www.") {
			return ""
		}
		return p
	})
	s = strings.Trim(strings.TrimSpace(s), "*_#`\"' \t\r")
	s = strings.TrimRight(s, ":-|, \t")
	return strings.Join(strings.Fields(s), " ")
}

// lineEnd returns the offset of the newline at or after from, or len(s).
func lineEnd(s string, from int) int {
	if i := strings.IndexByte(s[from:], '\n'); i >= 0 {
		return from + i
	}
	return len(s)
}
