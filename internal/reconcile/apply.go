package reconcile

import (
	"context"
	"log/slog"

	"github.com/dgnsrekt/tab_grouper/internal/types"
)

// Surface is the browser capability used to apply a plan.
type Surface interface {
	// GroupTabs adds tabs to groupID, or to a new group in windowID when
	// groupID is types.NoGroup, and returns the resulting group id.
	GroupTabs(ctx context.Context, windowID int, tabIDs []int, groupID int) (int, error)
	LabelGroup(ctx context.Context, groupID int, title string) error
	MoveTab(ctx context.Context, tabID, index int) error
}

// Apply issues the plan's mutations. Failures are isolated to the tab or
// cluster they concern and collected in the result; Apply never aborts.
func Apply(ctx context.Context, s Surface, plan types.Plan) types.ApplyResult {
	res := types.ApplyResult{
		Groups:    []types.AppliedGroup{},
		MovedTabs: []int{},
		Failures:  []types.TabFailure{},
	}

	for _, g := range plan.Groups {
		applied, ok := applyGroup(ctx, s, plan.WindowID, g, &res)
		if !ok {
			continue
		}
		if err := s.LabelGroup(ctx, applied.GroupID, g.Name); err != nil {
			slog.Warn("reconcile label failed", "cluster", g.Name, "group_id", applied.GroupID, "error", err)
			res.Failures = append(res.Failures, types.TabFailure{Op: "label", Cluster: g.Name, Error: err.Error()})
		}
		res.Groups = append(res.Groups, applied)
	}

	if len(res.Groups) == 0 {
		return res
	}
	for _, m := range plan.Moves {
		if err := s.MoveTab(ctx, m.TabID, m.Index); err != nil {
			slog.Warn("reconcile move failed", "tab_id", m.TabID, "index", m.Index, "error", err)
			res.Failures = append(res.Failures, types.TabFailure{Op: "move", TabID: m.TabID, Error: err.Error()})
			continue
		}
		res.MovedTabs = append(res.MovedTabs, m.TabID)
	}
	return res
}

// applyGroup groups all tabs in one call, falling back to one call per tab
// when the batch fails. The first tab that groups fixes the group id for the
// rest.
func applyGroup(ctx context.Context, s Surface, windowID int, g types.PlannedGroup, res *types.ApplyResult) (types.AppliedGroup, bool) {
	id, err := s.GroupTabs(ctx, windowID, g.TabIDs, g.ReuseGroupID)
	if err == nil {
		return types.AppliedGroup{Name: g.Name, GroupID: id, TabIDs: append([]int(nil), g.TabIDs...)}, true
	}
	slog.Warn("reconcile group failed, retrying per tab", "cluster", g.Name, "tabs", len(g.TabIDs), "error", err)

	out := types.AppliedGroup{Name: g.Name, GroupID: g.ReuseGroupID}
	for _, tabID := range g.TabIDs {
		got, err := s.GroupTabs(ctx, windowID, []int{tabID}, out.GroupID)
		if err != nil {
			slog.Warn("reconcile group tab failed", "cluster", g.Name, "tab_id", tabID, "error", err)
			res.Failures = append(res.Failures, types.TabFailure{Op: "group", TabID: tabID, Cluster: g.Name, Error: err.Error()})
			continue
		}
		out.GroupID = got
		out.TabIDs = append(out.TabIDs, tabID)
	}
	if len(out.TabIDs) == 0 {
		return types.AppliedGroup{}, false
	}
	return out, true
}
