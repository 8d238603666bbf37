package lexical

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

func createTestIndex(t *testing.T) (*Index, *store.Store) {
	t.Helper()

	dir, err := os.MkdirTemp("", "lexical-test-*")
	require.NoError(t, err)

	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	s, err := store.Open(store.Config{Path: filepath.Join(dir, "test.db"), Logger: logger})
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(dir)
	})
	return NewIndex(s, logger), s
}

func insert(t *testing.T, s *store.Store, obs store.NewObservation) int64 {
	t.Helper()
	id, err := s.InsertObservation(obs)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))
	return id
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"simple tokens", "null check", `"null" "check"`},
		{"drops quotes", `fix "null" 'check'`, `"fix" "null" "check"`},
		{"empty", "", ""},
		{"whitespace only", "   \t\n ", ""},
		{"only quotes", `"" ''`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeQuery(tt.query))
		})
	}

	t.Run("caps token count", func(t *testing.T) {
		query := strings.Repeat("tok ", 150)
		got := SanitizeQuery(query)
		assert.Equal(t, 100, strings.Count(got, `"tok"`))
	})

	t.Run("caps query length", func(t *testing.T) {
		query := strings.Repeat("a", 20_000)
		got := SanitizeQuery(query)
		assert.LessOrEqual(t, len(got), maxQueryLen+2)
	})
}

func TestSearch_MatchesAndRanks(t *testing.T) {
	ix, s := createTestIndex(t)

	titleHit := insert(t, s, store.NewObservation{
		Project: "p", Type: "file-write", Title: "null check fix",
		Narrative: "guarded the pointer",
	})
	bodyHit := insert(t, s, store.NewObservation{
		Project: "p", Type: "file-write", Title: "refactor parser",
		Body: "also touched the null check in passing", Narrative: "parser cleanup",
	})
	insert(t, s, store.NewObservation{
		Project: "p", Type: "file-write", Title: "unrelated work",
		Narrative: "nothing relevant here",
	})

	ranked, err := ix.SearchRanked("null check", Filters{Project: "p"})
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	// Title matches outweigh body matches.
	assert.Equal(t, titleHit, ranked[0].Observation.ID)
	assert.Equal(t, bodyHit, ranked[1].Observation.ID)
	assert.Greater(t, ranked[0].Rank, ranked[1].Rank)
}

func TestSearch_Filters(t *testing.T) {
	ix, s := createTestIndex(t)

	insert(t, s, store.NewObservation{Project: "p", Type: "file-write", Title: "shared term alpha", Narrative: "x"})
	insert(t, s, store.NewObservation{Project: "q", Type: "file-read", Title: "shared term beta", Narrative: "y"})

	got, err := ix.Search("shared term", Filters{Project: "q"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "q", got[0].Project)

	got, err = ix.Search("shared term", Filters{Type: "file-write"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "file-write", got[0].Type)
}

func TestSearch_LimitDefault(t *testing.T) {
	ix, s := createTestIndex(t)

	for i := 0; i < 60; i++ {
		insert(t, s, store.NewObservation{
			Project: "p", Type: "note",
			Title:     "common phrase entry " + strings.Repeat("x", i+1),
			Narrative: "common phrase",
		})
	}

	got, err := ix.Search("common phrase", Filters{})
	require.NoError(t, err)
	assert.Len(t, got, DefaultLimit)

	got, err = ix.Search("common phrase", Filters{Limit: 7})
	require.NoError(t, err)
	assert.Len(t, got, 7)
}

func TestSearch_EmptyQueryFallsBack(t *testing.T) {
	ix, s := createTestIndex(t)

	insert(t, s, store.NewObservation{Project: "p", Type: "note", Title: "anything", Narrative: "n"})

	// An all-quotes query sanitizes to empty and hits the substring
	// fallback, which matches everything via the empty pattern.
	got, err := ix.Search(`""`, Filters{Project: "p"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearch_FallbackEscapesWildcards(t *testing.T) {
	ix, s := createTestIndex(t)

	insert(t, s, store.NewObservation{Project: "p", Type: "note", Title: "has % literal", Narrative: "n"})
	insert(t, s, store.NewObservation{Project: "p", Type: "note", Title: "no wildcard here", Narrative: "n"})

	// "%" sanitizes to a phrase FTS can't use meaningfully; the literal
	// percent must only match the row that actually contains it.
	ranked, err := ix.fallbackScan("%", Filters{Project: "p", Limit: 10})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "has % literal", ranked[0].Observation.Title)
}

func TestSearchRanked_RanksSurviveMerge(t *testing.T) {
	ix, s := createTestIndex(t)

	id := insert(t, s, store.NewObservation{
		Project: "p", Type: "file-write", Title: "original title", Narrative: "n",
	})

	// Rewriting the row must keep the FTS index in sync via triggers.
	require.NoError(t, s.MergeGroup(id, "[consolidated x2] original title", "merged", nil))

	got, err := ix.Search("consolidated", Filters{Project: "p"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)

	got, err = ix.Search("original title", Filters{Project: "p"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
