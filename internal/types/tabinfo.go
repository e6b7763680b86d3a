package types

// NoGroup is the group id the browser reports for tabs outside any tab group.
const NoGroup = -1

// Tab is one entry of the live tab snapshot for a window.
type Tab struct {
	ID       int    `json:"id"`
	WindowID int    `json:"window_id"`
	Index    int    `json:"index"`
	GroupID  int    `json:"group_id"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url"`
}

// Grouped reports whether the tab currently belongs to a tab group.
func (t Tab) Grouped() bool { return t.GroupID != NoGroup }

// TabSummary is the per-run textual summary of a tab sent to the oracle.
type TabSummary struct {
	TabID               int    `json:"tab_id"`
	Title               string `json:"title,omitempty"`
	URL                 string `json:"url"`
	ExtractedText       string `json:"extracted_text"`
	ExtractionSucceeded bool   `json:"extraction_succeeded"`
}

// TabIDSet is a small set of tab ids.
type TabIDSet map[int]struct{}

// NewTabIDSet builds a set from ids.
func NewTabIDSet(ids ...int) TabIDSet {
	s := make(TabIDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s TabIDSet) Add(id int) { s[id] = struct{}{} }

func (s TabIDSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}
