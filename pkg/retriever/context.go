package retriever

import (
	"sort"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/knowledge"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/scoring"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

const (
	// DefaultTokenBudget bounds how much context is assembled for a
	// session start when the caller does not override it.
	DefaultTokenBudget = 2000

	// contextCandidates bounds the recent window the assembler picks
	// from before applying the token budget.
	contextCandidates = 200
)

// ContextItem is one observation selected into an assembled context,
// with the token estimate that was charged against the budget.
type ContextItem struct {
	Observation store.Observation `json:"observation"`
	Score       float64           `json:"score"`
	Tokens      int               `json:"tokens"`
}

// Context is an assembled, token-budgeted slice of memory.
type Context struct {
	Budget int           `json:"budget"`
	Used   int           `json:"used"`
	Items  []ContextItem `json:"items"`
}

// SmartContext assembles recent memory for a project without a query:
// candidates are scored on recency and project affinity, knowledge
// observations are taken first, and items are packed greedily until
// the token budget is reached.
func (r *Retriever) SmartContext(project string, budget int) (*Context, error) {
	if budget <= 0 {
		budget = r.contextBudget
	}

	observations, err := r.store.RecentObservations(project, contextCandidates)
	if err != nil {
		return nil, err
	}

	now := r.store.Now()
	items := make([]ContextItem, 0, len(observations))
	for _, obs := range observations {
		sig := scoring.Signals{
			Recency:      scoring.Recency(obs.CreatedAtEpoch, now),
			ProjectMatch: scoring.ProjectMatch(obs.Project, project),
		}
		items = append(items, ContextItem{
			Observation: obs,
			Score:       scoring.Score(sig, scoring.ContextWeights, obs.Type),
			Tokens:      estimateTokens(obs),
		})
	}

	// Knowledge observations outrank everything else regardless of
	// score; within each group higher scores come first.
	sort.Slice(items, func(i, j int) bool {
		ki := knowledge.IsKnowledgeType(items[i].Observation.Type)
		kj := knowledge.IsKnowledgeType(items[j].Observation.Type)
		if ki != kj {
			return ki
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Observation.ID > items[j].Observation.ID
	})

	result := &Context{Budget: budget}
	for _, item := range items {
		if result.Used+item.Tokens > budget {
			break
		}
		result.Used += item.Tokens
		result.Items = append(result.Items, item)
	}

	r.logger.Debug().
		Int("candidates", len(items)).
		Int("selected", len(result.Items)).
		Int("tokens", result.Used).
		Msg("Assembled context")
	return result, nil
}

// estimateTokens approximates the cost of including an observation,
// at roughly four characters per token.
func estimateTokens(obs store.Observation) int {
	content := obs.Body
	if content == "" {
		content = obs.Narrative
	}
	chars := len(obs.Title) + len(content)
	return (chars + 3) / 4
}
