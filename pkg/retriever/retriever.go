// Package retriever orchestrates the lexical and vector indexes into a
// single ranked result list, and assembles token-budgeted context when
// no query is given.
package retriever

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/embedding"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/lexical"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/scoring"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/vector"
)

// DefaultLimit is the result cap when the caller supplies none.
const DefaultLimit = 10

// Options configures a hybrid search.
type Options struct {
	Project string
	Limit   int
	Weights scoring.Weights
}

// Result is one ranked retrieval hit with its signal breakdown.
type Result struct {
	Observation store.Observation `json:"observation"`
	Score       float64           `json:"score"`
	Signals     scoring.Signals   `json:"signals"`
}

// Retriever owns the two index legs and the scoring pass.
type Retriever struct {
	store    *store.Store
	lexical  *lexical.Index
	vector   *vector.Index
	provider *embedding.Lazy
	logger   zerolog.Logger

	contextBudget int
}

// Config holds retriever construction parameters.
type Config struct {
	Store         *store.Store
	Lexical       *lexical.Index
	Vector        *vector.Index
	Provider      *embedding.Lazy
	Logger        zerolog.Logger
	ContextBudget int // tokens; 0 uses DefaultTokenBudget
}

// New creates a retriever.
func New(cfg Config) *Retriever {
	budget := cfg.ContextBudget
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	return &Retriever{
		store:         cfg.Store,
		lexical:       cfg.Lexical,
		vector:        cfg.Vector,
		provider:      cfg.Provider,
		logger:        cfg.Logger,
		contextBudget: budget,
	}
}

type candidate struct {
	obs      store.Observation
	semantic float64
	lexRank  float64
	bySem    bool
	byLex    bool
}

// Search runs both retrieval legs, merges candidates by observation id
// and returns the top results by composite score. A failing vector leg
// degrades to lexical-only; retrieval never fails for a missing
// embedding capability.
func (r *Retriever) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Weights == (scoring.Weights{}) {
		opts.Weights = scoring.SearchWeights
	}

	// Each leg over-fetches so the scorer has enough candidates.
	fetch := opts.Limit * 2

	var (
		wg      sync.WaitGroup
		vecHits []vector.Hit
		lexHits []lexical.Ranked
		vecErr  error
		lexErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		queryVec, err := r.provider.Embed(ctx, query)
		if err != nil || queryVec == nil {
			vecErr = err
			return
		}
		vecHits, vecErr = r.vector.Search(queryVec, vector.Options{
			Project: opts.Project,
			Limit:   fetch,
		})
	}()
	go func() {
		defer wg.Done()
		lexHits, lexErr = r.lexical.SearchRanked(query, lexical.Filters{
			Project: opts.Project,
			Limit:   fetch,
		})
	}()
	wg.Wait()

	if vecErr != nil {
		r.logger.Warn().Err(vecErr).Msg("Vector search failed, continuing lexical-only")
	}
	if lexErr != nil {
		r.logger.Warn().Err(lexErr).Msg("Lexical search failed, continuing vector-only")
		lexHits = nil
	}

	candidates, err := r.mergeCandidates(vecHits, lexHits)
	if err != nil {
		return nil, err
	}

	results := r.scoreCandidates(candidates, query, opts)

	// Best-effort bookkeeping; a failed stamp never fails the query.
	ids := make([]int64, len(results))
	for i, res := range results {
		ids[i] = res.Observation.ID
	}
	if err := r.store.MarkAccessed(ids); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to mark observations accessed")
	}

	return results, nil
}

func (r *Retriever) mergeCandidates(vecHits []vector.Hit, lexHits []lexical.Ranked) (map[int64]*candidate, error) {
	merged := make(map[int64]*candidate, len(vecHits)+len(lexHits))

	for _, h := range lexHits {
		merged[h.Observation.ID] = &candidate{obs: h.Observation, lexRank: h.Rank, byLex: true}
	}

	var missing []int64
	for _, h := range vecHits {
		if c, ok := merged[h.ObservationID]; ok {
			c.semantic = h.Similarity
			c.bySem = true
			continue
		}
		merged[h.ObservationID] = &candidate{semantic: h.Similarity, bySem: true}
		missing = append(missing, h.ObservationID)
	}

	if len(missing) > 0 {
		observations, err := r.store.ObservationsByIDs(missing)
		if err != nil {
			return nil, err
		}
		for _, obs := range observations {
			merged[obs.ID].obs = obs
		}
		// Vector hits whose observations vanished mid-flight drop out.
		for _, id := range missing {
			if merged[id].obs.ID == 0 {
				delete(merged, id)
			}
		}
	}

	return merged, nil
}

func (r *Retriever) scoreCandidates(candidates map[int64]*candidate, query string, opts Options) []Result {
	rawRanks := make(map[int64]float64)
	for id, c := range candidates {
		if c.byLex {
			rawRanks[id] = c.lexRank
		}
	}
	normalized := scoring.NormalizeRanks(rawRanks)

	now := r.store.Now()
	results := make([]Result, 0, len(candidates))
	for id, c := range candidates {
		sig := scoring.Signals{
			Semantic:     clamp01(c.semantic),
			Lexical:      normalized[id],
			Recency:      scoring.Recency(c.obs.CreatedAtEpoch, now),
			ProjectMatch: scoring.ProjectMatch(c.obs.Project, opts.Project),
			FoundByBoth:  c.bySem && c.byLex,
		}
		results = append(results, Result{
			Observation: c.obs,
			Score:       scoring.Score(sig, opts.Weights, c.obs.Type),
			Signals:     sig,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Observation.ID > results[j].Observation.ID
	})

	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
