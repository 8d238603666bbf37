package decay

import (
	"fmt"
	"strings"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

// DefaultMinGroupSize is how many same-shaped observations a group
// needs before consolidation considers it.
const DefaultMinGroupSize = 3

// ConsolidateOptions configures a consolidation pass.
type ConsolidateOptions struct {
	Project      string
	MinGroupSize int
	DryRun       bool
}

// ConsolidateResult reports what a pass did, or with DryRun what it
// would have done.
type ConsolidateResult struct {
	Groups  int `json:"groups"`
	Merged  int `json:"merged"`
	Removed int `json:"removed"`
}

// Consolidate collapses groups of observations sharing project, type
// and modified-file set into one surviving observation each. The most
// recent member is kept; its title gains a consolidation marker and
// its body accumulates the distinct bodies of the absorbed members.
// Each group merges in its own transaction, so a failing group leaves
// the others applied.
func (sw *Sweeper) Consolidate(opts ConsolidateOptions) (*ConsolidateResult, error) {
	if opts.MinGroupSize <= 0 {
		opts.MinGroupSize = DefaultMinGroupSize
	}

	groups, err := sw.store.ConsolidationGroups(opts.Project, opts.MinGroupSize)
	if err != nil {
		return nil, err
	}

	result := &ConsolidateResult{}
	for _, group := range groups {
		// Membership is recounted live; another writer may have
		// shrunk the group since it was listed.
		members, err := sw.store.GroupMembers(group)
		if err != nil {
			return result, err
		}
		if len(members) < opts.MinGroupSize {
			continue
		}

		result.Groups++
		if opts.DryRun {
			result.Merged++
			result.Removed += len(members) - 1
			continue
		}

		keeper := members[0]
		removeIDs := make([]int64, 0, len(members)-1)
		for _, m := range members[1:] {
			removeIDs = append(removeIDs, m.ID)
		}

		title := consolidatedTitle(keeper.Title, len(members))
		body := consolidatedBody(members)

		if err := sw.store.MergeGroup(keeper.ID, title, body, removeIDs); err != nil {
			sw.logger.Warn().Err(err).
				Int64("keeper", keeper.ID).
				Str("project", group.Project).
				Str("type", group.Type).
				Msg("Group merge failed, continuing with remaining groups")
			continue
		}

		result.Merged++
		result.Removed += len(removeIDs)
	}

	sw.logger.Info().
		Int("groups", result.Groups).
		Int("merged", result.Merged).
		Int("removed", result.Removed).
		Bool("dryRun", opts.DryRun).
		Msg("Consolidation pass complete")
	return result, nil
}

func consolidatedTitle(title string, size int) string {
	// Re-consolidating a survivor replaces the old marker instead of
	// stacking a second one.
	if strings.HasPrefix(title, "[consolidated x") {
		if end := strings.Index(title, "] "); end >= 0 {
			title = title[end+2:]
		}
	}
	merged := fmt.Sprintf("[consolidated x%d] %s", size, title)
	if len(merged) > store.MaxTitleLen {
		merged = merged[:store.MaxTitleLen]
	}
	return merged
}

func consolidatedBody(members []store.Observation) string {
	seen := make(map[string]struct{}, len(members))
	var parts []string
	for _, m := range members {
		if m.Body == "" {
			continue
		}
		if _, dup := seen[m.Body]; dup {
			continue
		}
		seen[m.Body] = struct{}{}
		parts = append(parts, m.Body)
	}

	body := strings.Join(parts, "\n---\n")
	if len(body) > store.MaxTextLen {
		body = body[:store.MaxTextLen]
	}
	return body
}
