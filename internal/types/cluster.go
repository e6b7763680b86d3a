package types

import "time"

// ClusterSpec is one cluster proposed by the oracle, in order of appearance.
type ClusterSpec struct {
	Name       string   `json:"name"`
	MemberURLs []string `json:"member_urls"`
}

// PlannedGroup is a cluster that matched at least one live tab.
// ReuseGroupID is NoGroup unless every matched tab already shares one group.
type PlannedGroup struct {
	Name         string `json:"name"`
	TabIDs       []int  `json:"tab_ids"`
	ReuseGroupID int    `json:"reuse_group_id"`
}

// PlannedMove relocates one exception tab. Index uses the browser's
// final-position move semantics and assumes earlier moves already happened.
type PlannedMove struct {
	TabID int `json:"tab_id"`
	Index int `json:"index"`
}

// Plan is the reconciliation of parsed clusters against one tab snapshot.
type Plan struct {
	WindowID              int            `json:"window_id"`
	Groups                []PlannedGroup `json:"groups"`
	ExceptionTabIDs       []int          `json:"exception_tab_ids"`
	UnmatchedClusterNames []string       `json:"unmatched_cluster_names"`
	Moves                 []PlannedMove  `json:"moves"`
}

// ClaimedTabIDs returns every tab id the plan places in a group.
func (p Plan) ClaimedTabIDs() TabIDSet {
	out := make(TabIDSet)
	for _, g := range p.Groups {
		for _, id := range g.TabIDs {
			out.Add(id)
		}
	}
	return out
}

// AppliedGroup is a tab group as it exists after reconciliation.
type AppliedGroup struct {
	Name    string `json:"name"`
	GroupID int    `json:"group_id"`
	TabIDs  []int  `json:"tab_ids"`
}

// TabFailure records one isolated browser mutation failure.
type TabFailure struct {
	Op      string `json:"op"`
	TabID   int    `json:"tab_id,omitempty"`
	Cluster string `json:"cluster,omitempty"`
	Error   string `json:"error"`
}

// ApplyResult is what the browser ended up with after applying a plan.
type ApplyResult struct {
	Groups    []AppliedGroup `json:"groups"`
	MovedTabs []int          `json:"moved_tabs"`
	Failures  []TabFailure   `json:"failures"`
}

// RunReport describes one complete clustering run.
type RunReport struct {
	RunID             string         `json:"run_id"`
	WindowID          int            `json:"window_id"`
	StartedAt         time.Time      `json:"started_at"`
	DurationMS        int64          `json:"duration_ms"`
	TabCount          int            `json:"tab_count"`
	Clusters          []ClusterSpec  `json:"clusters"`
	Groups            []AppliedGroup `json:"groups"`
	ExceptionTabIDs   []int          `json:"exception_tab_ids"`
	UnmatchedClusters []string       `json:"unmatched_clusters"`
	MovedTabs         []int          `json:"moved_tabs"`
	Failures          []TabFailure   `json:"failures"`
}
