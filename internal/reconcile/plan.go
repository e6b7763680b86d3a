// Package reconcile matches parsed clusters against a tab snapshot and
// applies the resulting tab-group layout through a browser surface.
package reconcile

import (
	"slices"
	"sort"

	"github.com/dgnsrekt/tab_grouper/internal/types"
)

// Plan computes the reconciliation of clusters against one snapshot. It
// performs no I/O.
//
// Clusters claim tabs in order; a tab claimed by an earlier cluster, listed
// in exceptions, or showing a browser-internal page is never claimed. When
// every tab a cluster matched is already in one existing group, and no
// earlier cluster reuses that group, the plan reuses it. Exception tabs are
// moved right after the rightmost claimed tab when anything was claimed.
// New groups are created in the snapshot's window.
func Plan(clusters []types.ClusterSpec, snapshot []types.Tab, exceptions types.TabIDSet) types.Plan {
	tabs := slices.Clone(snapshot)
	sort.SliceStable(tabs, func(i, j int) bool { return tabs[i].Index < tabs[j].Index })

	plan := types.Plan{
		Groups:                []types.PlannedGroup{},
		ExceptionTabIDs:       []int{},
		UnmatchedClusterNames: []string{},
		Moves:                 []types.PlannedMove{},
	}
	if len(tabs) > 0 {
		plan.WindowID = tabs[0].WindowID
	}

	claimed := make(types.TabIDSet)
	reused := make(map[int]bool)
	for _, c := range clusters {
		wanted := make(map[string]struct{}, len(c.MemberURLs))
		for _, u := range c.MemberURLs {
			if key := types.NormalizeURL(u); key != "" {
				wanted[key] = struct{}{}
			}
		}

		var matched []types.Tab
		for _, t := range tabs {
			if claimed.Has(t.ID) || exceptions.Has(t.ID) || types.IsInternalURL(t.URL) {
				continue
			}
			if _, ok := wanted[types.NormalizeURL(t.URL)]; ok {
				matched = append(matched, t)
			}
		}
		if len(matched) == 0 {
			plan.UnmatchedClusterNames = append(plan.UnmatchedClusterNames, c.Name)
			continue
		}

		g := types.PlannedGroup{Name: c.Name, ReuseGroupID: types.NoGroup}
		for _, t := range matched {
			g.TabIDs = append(g.TabIDs, t.ID)
			claimed.Add(t.ID)
		}
		if id, ok := sharedGroup(matched); ok && !reused[id] {
			g.ReuseGroupID = id
			reused[id] = true
		}
		plan.Groups = append(plan.Groups, g)
	}

	for _, t := range tabs {
		if exceptions.Has(t.ID) && !claimed.Has(t.ID) {
			plan.ExceptionTabIDs = append(plan.ExceptionTabIDs, t.ID)
		}
	}
	if len(claimed) > 0 {
		plan.Moves = placeExceptions(tabs, claimed, plan.ExceptionTabIDs)
	}
	return plan
}

// sharedGroup reports the existing group id common to all tabs.
func sharedGroup(tabs []types.Tab) (int, bool) {
	id := tabs[0].GroupID
	if id == types.NoGroup {
		return 0, false
	}
	for _, t := range tabs[1:] {
		if t.GroupID != id {
			return 0, false
		}
	}
	return id, true
}

// placeExceptions simulates the moves on the snapshot order. A move to index
// i leaves the tab at final position i, so each index is taken from the
// order after the tab is removed. Reordering done by the browser while
// grouping is not modeled.
func placeExceptions(tabs []types.Tab, claimed types.TabIDSet, exceptionIDs []int) []types.PlannedMove {
	order := make([]int, len(tabs))
	anchor, found := 0, false
	for i, t := range tabs {
		order[i] = t.ID
		if claimed.Has(t.ID) {
			anchor, found = t.ID, true
		}
	}
	if !found {
		return []types.PlannedMove{}
	}

	moves := make([]types.PlannedMove, 0, len(exceptionIDs))
	for _, id := range exceptionIDs {
		from := slices.Index(order, id)
		if from < 0 {
			continue
		}
		order = slices.Delete(order, from, from+1)
		to := slices.Index(order, anchor) + 1
		order = slices.Insert(order, to, id)
		moves = append(moves, types.PlannedMove{TabID: id, Index: to})
		anchor = id
	}
	return moves
}
