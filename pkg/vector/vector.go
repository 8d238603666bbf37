package vector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/embedding"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

// Embedding inputs are truncated to this many characters before the
// provider sees them.
const maxEmbedInputLen = 2000

// Defaults for Search options.
const (
	DefaultLimit         = 10
	DefaultThreshold     = 0.3
	DefaultMaxCandidates = 2000
)

// Options configures a similarity search.
type Options struct {
	Project       string
	Limit         int
	Threshold     float64
	MaxCandidates int
}

// Hit is one similarity match.
type Hit struct {
	ObservationID int64
	Similarity    float64
}

// Index scores stored embeddings against query vectors.
type Index struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewIndex creates a vector index over the shared store.
func NewIndex(s *store.Store, logger zerolog.Logger) *Index {
	return &Index{store: s, logger: logger}
}

// Search runs the two-phase bounded scan: pull at most MaxCandidates
// recency-ordered embeddings from the store, then score each in memory
// and keep those at or above the threshold.
func (ix *Index) Search(queryVec []float32, opts Options) ([]Hit, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}

	candidates, err := ix.store.EmbeddingCandidates(opts.Project, opts.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	hits := make([]Hit, 0, opts.Limit)
	for _, c := range candidates {
		vec, err := DecodeVector(c.Vector)
		if err != nil {
			ix.logger.Warn().Err(err).Int64("observation_id", c.ObservationID).Msg("Skipping undecodable vector")
			continue
		}
		sim := Cosine(queryVec, vec)
		if sim >= opts.Threshold {
			hits = append(hits, Hit{ObservationID: c.ObservationID, Similarity: sim})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

// StoreEmbedding encodes and upserts a vector for an observation.
func (ix *Index) StoreEmbedding(observationID int64, vec []float32, model string) error {
	raw, err := EncodeVector(vec)
	if err != nil {
		return fmt.Errorf("failed to encode vector: %w", err)
	}
	return ix.store.UpsertEmbedding(observationID, raw, model, len(vec))
}

// Backfill embeds up to batchSize observations that lack a vector.
// Observations for which the provider returns nothing are skipped
// silently; a later pass may retry them. Returns how many embeddings
// were persisted.
func (ix *Index) Backfill(ctx context.Context, provider embedding.Provider, batchSize int) (int, error) {
	pending, err := ix.store.ObservationsWithoutEmbedding(batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find backfill candidates: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	texts := make([]string, len(pending))
	for i, obs := range pending {
		texts[i] = EmbeddingText(obs)
	}

	vectors, err := provider.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed batch: %w", err)
	}

	stored := 0
	for i, vec := range vectors {
		if vec == nil {
			continue
		}
		if err := ix.StoreEmbedding(pending[i].ID, vec, provider.Name()); err != nil {
			ix.logger.Warn().Err(err).Int64("observation_id", pending[i].ID).Msg("Failed to store backfilled embedding")
			continue
		}
		stored++
	}

	ix.logger.Debug().Int("pending", len(pending)).Int("stored", stored).Msg("Backfill pass completed")
	return stored, nil
}

// EmbeddingText builds the text an observation is embedded from:
// title, body, narrative and concepts concatenated and truncated.
func EmbeddingText(obs store.Observation) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{obs.Title, obs.Body, obs.Narrative, obs.Concepts} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	text := strings.Join(parts, "\n")
	if len(text) > maxEmbedInputLen {
		text = text[:maxEmbedInputLen]
	}
	return text
}
