package retriever

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/embedding"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/knowledge"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/lexical"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/vector"
)

type fixture struct {
	store     *store.Store
	retriever *Retriever
	provider  *embedding.MockProvider
	vectors   *vector.Index
}

func newFixture(t *testing.T, inner embedding.Provider) *fixture {
	t.Helper()

	dir, err := os.MkdirTemp("", "retriever-test-*")
	require.NoError(t, err)

	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	s, err := store.Open(store.Config{
		Path:   filepath.Join(dir, "test.db"),
		Logger: logger,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(dir)
	})

	vec := vector.NewIndex(s, logger)
	f := &fixture{
		store:   s,
		vectors: vec,
	}
	if mock, ok := inner.(*embedding.MockProvider); ok {
		f.provider = mock
	}
	f.retriever = New(Config{
		Store:    s,
		Lexical:  lexical.NewIndex(s, logger),
		Vector:   vec,
		Provider: embedding.NewLazy(inner, logger),
		Logger:   logger,
	})
	return f
}

// insert adds an observation and, when the fixture has a provider,
// stores its embedding derived from the given text.
func (f *fixture) insert(t *testing.T, n store.NewObservation, embedText string) int64 {
	t.Helper()

	id, err := f.store.InsertObservation(n)
	require.NoError(t, err)
	require.NotEqual(t, store.DuplicateID, id)

	if f.provider != nil && embedText != "" {
		vec, err := f.provider.Embed(context.Background(), embedText)
		require.NoError(t, err)
		require.NoError(t, f.vectors.StoreEmbedding(id, vec, f.provider.Name()))
	}
	return id
}

func TestSearch_HybridRanksSemanticAndLexical(t *testing.T) {
	f := newFixture(t, embedding.NewMockProvider(64))
	query := "goroutine scheduler deadlock on channel close"

	target := f.insert(t, store.NewObservation{
		Project:   "kiro",
		Type:      "file-read",
		Title:     "goroutine scheduler deadlock on channel close",
		Narrative: "found the scheduler wedged when the channel closed early",
	}, query)
	f.insert(t, store.NewObservation{
		Project:   "kiro",
		Type:      "file-read",
		Title:     "refactored template renderer",
		Narrative: "markup cleanup in the renderer",
	}, "template renderer markup cleanup")

	results, err := f.retriever.Search(context.Background(), query, Options{Project: "kiro"})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, target, results[0].Observation.ID)
	assert.True(t, results[0].Signals.FoundByBoth, "target should match both legs")
	assert.InDelta(t, 1.0, results[0].Signals.Semantic, 0.001)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearch_LexicalOnlyWithoutProvider(t *testing.T) {
	f := newFixture(t, nil)

	id := f.insert(t, store.NewObservation{
		Project:   "kiro",
		Type:      "command",
		Title:     "migrated billing schema",
		Narrative: "ran the billing schema migration",
	}, "")

	results, err := f.retriever.Search(context.Background(), "billing schema", Options{Project: "kiro"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, id, results[0].Observation.ID)
	assert.Zero(t, results[0].Signals.Semantic)
	assert.False(t, results[0].Signals.FoundByBoth)
}

func TestSearch_RespectsProjectFilterAndLimit(t *testing.T) {
	f := newFixture(t, embedding.NewMockProvider(64))

	for i := 0; i < 5; i++ {
		f.insert(t, store.NewObservation{
			Project:   "alpha",
			Type:      "file-read",
			Title:     "parser notes " + string(rune('a'+i)),
			Narrative: "parser grammar table entry",
		}, "")
	}
	f.insert(t, store.NewObservation{
		Project:   "beta",
		Type:      "file-read",
		Title:     "parser notes elsewhere",
		Narrative: "parser grammar table entry",
	}, "")

	results, err := f.retriever.Search(context.Background(), "parser grammar", Options{Project: "alpha", Limit: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, "alpha", res.Observation.Project)
	}
}

func TestSearch_MarksResultsAccessed(t *testing.T) {
	f := newFixture(t, nil)

	id := f.insert(t, store.NewObservation{
		Project:   "kiro",
		Type:      "research",
		Title:     "compared cache eviction policies",
		Narrative: "notes on lru versus clock eviction",
	}, "")

	_, err := f.retriever.Search(context.Background(), "cache eviction", Options{Project: "kiro"})
	require.NoError(t, err)

	obs, err := f.store.GetObservation(id)
	require.NoError(t, err)
	assert.Greater(t, obs.LastAccessedEpoch, int64(0))
}

func TestSmartContext_KnowledgeComesFirst(t *testing.T) {
	f := newFixture(t, nil)

	for i := 0; i < 4; i++ {
		f.insert(t, store.NewObservation{
			Project:   "kiro",
			Type:      "file-read",
			Title:     "routine read " + string(rune('a'+i)),
			Narrative: "read a config file",
		}, "")
	}
	decision := f.insert(t, store.NewObservation{
		Project:   "kiro",
		Type:      knowledge.TypeDecision,
		Title:     "store timestamps as epoch seconds",
		Narrative: "chose integer epochs over RFC3339 for sort keys",
	}, "")

	ctx, err := f.retriever.SmartContext("kiro", 100000)
	require.NoError(t, err)
	require.NotEmpty(t, ctx.Items)

	assert.Equal(t, decision, ctx.Items[0].Observation.ID)
}

func TestSmartContext_StopsAtBudget(t *testing.T) {
	f := newFixture(t, nil)

	body := make([]byte, 400) // about 100 tokens each
	for i := range body {
		body[i] = 'x'
	}
	for i := 0; i < 10; i++ {
		f.insert(t, store.NewObservation{
			Project:   "kiro",
			Type:      "file-write",
			Title:     "write " + string(rune('a'+i)),
			Body:      string(body),
			Narrative: "wrote a file",
		}, "")
	}

	ctx, err := f.retriever.SmartContext("kiro", 350)
	require.NoError(t, err)

	assert.LessOrEqual(t, ctx.Used, ctx.Budget)
	assert.Equal(t, 350, ctx.Budget)
	assert.Less(t, len(ctx.Items), 10)
	assert.NotEmpty(t, ctx.Items)
}

func TestSmartContext_DefaultBudget(t *testing.T) {
	f := newFixture(t, nil)

	ctx, err := f.retriever.SmartContext("kiro", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenBudget, ctx.Budget)
	assert.Empty(t, ctx.Items)
}
