package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()

	dir, err := os.MkdirTemp("", "store-test-*")
	require.NoError(t, err)

	s, err := Open(Config{
		Path:   filepath.Join(dir, "test.db"),
		Logger: zerolog.New(os.Stdout).Level(zerolog.Disabled),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(dir)
	})
	return s
}

func testObservation(project, typ, title string) NewObservation {
	return NewObservation{
		Project:   project,
		Type:      typ,
		Title:     title,
		Narrative: "narrative for " + title,
	}
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	dir, err := os.MkdirTemp("", "store-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "test.db")
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	s, err := Open(Config{Path: path, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening must no-op the already-applied migrations.
	s, err = Open(Config{Path: path, Logger: logger})
	require.NoError(t, err)
	defer s.Close()

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrations), count)
}

func TestInsertObservation_RoundTrip(t *testing.T) {
	s := createTestStore(t)

	id, err := s.InsertObservation(NewObservation{
		Project:         "proj",
		Type:            "file-write",
		Title:           "fix bug",
		Subtitle:        "null check",
		Body:            "added a nil guard",
		Narrative:       "fixed null check",
		Concepts:        []string{"bugfix", "nil"},
		FilesRead:       []string{"a.go"},
		FilesModified:   []string{"b.go"},
		PromptNumber:    3,
		DiscoveryTokens: 120,
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	obs, err := s.GetObservation(id)
	require.NoError(t, err)
	assert.Equal(t, "proj", obs.Project)
	assert.Equal(t, "file-write", obs.Type)
	assert.Equal(t, "fix bug", obs.Title)
	assert.Equal(t, "bugfix,nil", obs.Concepts)
	assert.Equal(t, []string{"b.go"}, obs.FilesModified)
	assert.Equal(t, 3, obs.PromptNumber)
	assert.Equal(t, int64(120), obs.DiscoveryTokens)
	assert.Equal(t, "change", obs.AutoCategory)
	assert.False(t, obs.IsStale)
	assert.NotEmpty(t, obs.ContentHash)
	assert.Greater(t, obs.CreatedAtEpoch, int64(0))
}

func TestInsertObservation_Validation(t *testing.T) {
	s := createTestStore(t)

	long := make([]byte, MaxTitleLen+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name string
		obs  NewObservation
	}{
		{"missing project", NewObservation{Type: "note", Title: "t"}},
		{"missing type", NewObservation{Project: "p", Title: "t"}},
		{"missing title", NewObservation{Project: "p", Type: "note"}},
		{"oversized title", NewObservation{Project: "p", Type: "note", Title: string(long)}},
		{"bad knowledge facts", NewObservation{
			Project: "p", Type: "constraint", Title: "t",
			Facts: `{"kind":"constraint"}`,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.InsertObservation(tt.obs)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash("p", "file-write", "fix bug", "fixed null check")
	b := ContentHash("p", "file-write", "fix bug", "fixed null check")
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, ContentHash("q", "file-write", "fix bug", "fixed null check"))
	assert.NotEqual(t, a, ContentHash("p", "file-read", "fix bug", "fixed null check"))
	assert.NotEqual(t, a, ContentHash("p", "file-write", "other", "fixed null check"))
	assert.NotEqual(t, a, ContentHash("p", "file-write", "fix bug", ""))
}

func TestInsertObservation_DedupWindow(t *testing.T) {
	s := createTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	obs := testObservation("p", "file-write", "fix bug")

	id, err := s.InsertObservation(obs)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	// Second insert inside the 10s file-write window is discarded.
	s.now = func() time.Time { return base.Add(5 * time.Second) }
	id, err = s.InsertObservation(obs)
	require.NoError(t, err)
	assert.Equal(t, DuplicateID, id)

	// After the window elapses the insert succeeds.
	s.now = func() time.Time { return base.Add(11 * time.Second) }
	id, err = s.InsertObservation(obs)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
}

func TestInsertObservation_DedupWindowPerType(t *testing.T) {
	s := createTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		typ         string
		withinWin   time.Duration
		outsideWin  time.Duration
	}{
		{"file-read", 59 * time.Second, 61 * time.Second},
		{"command", 29 * time.Second, 31 * time.Second},
		{"research", 119 * time.Second, 121 * time.Second},
		{"delegation", 59 * time.Second, 61 * time.Second},
		{"free-form-tag", 29 * time.Second, 31 * time.Second}, // default window
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			s.now = func() time.Time { return base }
			obs := testObservation("p", tt.typ, "title for "+tt.typ)

			id, err := s.InsertObservation(obs)
			require.NoError(t, err)
			require.Greater(t, id, int64(0))

			s.now = func() time.Time { return base.Add(tt.withinWin) }
			id, err = s.InsertObservation(obs)
			require.NoError(t, err)
			assert.Equal(t, DuplicateID, id)

			s.now = func() time.Time { return base.Add(tt.outsideWin) }
			id, err = s.InsertObservation(obs)
			require.NoError(t, err)
			assert.Greater(t, id, int64(0))
		})
	}
}

func TestInsertObservation_KnowledgeDedupsForever(t *testing.T) {
	s := createTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	obs := testObservation("p", "decision", "use sqlite")

	id, err := s.InsertObservation(obs)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	// Even a year later the same knowledge item is blocked.
	s.now = func() time.Time { return base.Add(365 * 24 * time.Hour) }
	id, err = s.InsertObservation(obs)
	require.NoError(t, err)
	assert.Equal(t, DuplicateID, id)
}

func TestListObservations_PaginationExhaustive(t *testing.T) {
	s := createTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	const total = 17

	for i := 0; i < total; i++ {
		tick := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return tick }
		id, err := s.InsertObservation(testObservation("p", "note", "entry "+string(rune('a'+i))))
		require.NoError(t, err)
		require.Greater(t, id, int64(0))
	}

	const pageSize = 5
	var all []Observation
	var beforeEpoch, beforeID int64

	for {
		page, err := s.ListObservations(ListOptions{
			Project:     "p",
			Limit:       pageSize,
			BeforeEpoch: beforeEpoch,
			BeforeID:    beforeID,
		})
		require.NoError(t, err)
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
		last := page[len(page)-1]
		beforeEpoch, beforeID = last.CreatedAtEpoch, last.ID
	}

	require.Len(t, all, total)

	// Strictly descending (epoch, id), no duplicates, no gaps.
	seen := make(map[int64]bool)
	for i := range all {
		assert.False(t, seen[all[i].ID])
		seen[all[i].ID] = true
		if i > 0 {
			prev, cur := all[i-1], all[i]
			descending := prev.CreatedAtEpoch > cur.CreatedAtEpoch ||
				(prev.CreatedAtEpoch == cur.CreatedAtEpoch && prev.ID > cur.ID)
			assert.True(t, descending, "rows out of order at index %d", i)
		}
	}
}

func TestMarkAccessedAndStale(t *testing.T) {
	s := createTestStore(t)

	id, err := s.InsertObservation(testObservation("p", "note", "one"))
	require.NoError(t, err)

	require.NoError(t, s.MarkAccessed([]int64{id}))
	obs, err := s.GetObservation(id)
	require.NoError(t, err)
	assert.Greater(t, obs.LastAccessedEpoch, int64(0))

	require.NoError(t, s.MarkStale([]int64{id}))
	obs, err = s.GetObservation(id)
	require.NoError(t, err)
	assert.True(t, obs.IsStale)
}

func TestDeleteObservation_CascadesEmbedding(t *testing.T) {
	s := createTestStore(t)

	id, err := s.InsertObservation(testObservation("p", "note", "one"))
	require.NoError(t, err)

	vec := make([]byte, 4*4)
	require.NoError(t, s.UpsertEmbedding(id, vec, "test-model", 4))

	_, err = s.GetEmbedding(id)
	require.NoError(t, err)

	require.NoError(t, s.DeleteObservation(id))

	_, err = s.GetObservation(id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetEmbedding(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertEmbedding_Idempotent(t *testing.T) {
	s := createTestStore(t)

	id, err := s.InsertObservation(testObservation("p", "note", "one"))
	require.NoError(t, err)

	vec1 := []byte{0, 0, 128, 63, 0, 0, 0, 64} // [1.0, 2.0]
	require.NoError(t, s.UpsertEmbedding(id, vec1, "m", 2))
	require.NoError(t, s.UpsertEmbedding(id, vec1, "m", 2))

	e, err := s.GetEmbedding(id)
	require.NoError(t, err)
	assert.Equal(t, vec1, e.Vector)
	assert.Equal(t, 2, e.Dims)

	// Dimension mismatch is a validation error.
	err = s.UpsertEmbedding(id, []byte{1, 2, 3}, "m", 2)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEmbeddingCandidates_BoundedAndProjectFiltered(t *testing.T) {
	s := createTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var pIDs []int64
	for i := 0; i < 5; i++ {
		tick := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return tick }
		project := "p"
		if i%2 == 1 {
			project = "q"
		}
		id, err := s.InsertObservation(testObservation(project, "note", "entry "+string(rune('a'+i))))
		require.NoError(t, err)
		require.NoError(t, s.UpsertEmbedding(id, []byte{0, 0, 128, 63}, "m", 1))
		if project == "p" {
			pIDs = append(pIDs, id)
		}
	}

	got, err := s.EmbeddingCandidates("p", 10)
	require.NoError(t, err)
	require.Len(t, got, len(pIDs))
	// most recent first
	assert.Equal(t, pIDs[len(pIDs)-1], got[0].ObservationID)

	got, err = s.EmbeddingCandidates("", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMergeGroup_Atomic(t *testing.T) {
	s := createTestStore(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		obs := testObservation("p", "file-write", "dup "+string(rune('a'+i)))
		obs.FilesModified = []string{"x.go"}
		id, err := s.InsertObservation(obs)
		require.NoError(t, err)
		ids = append(ids, id)
		require.NoError(t, s.UpsertEmbedding(id, []byte{0, 0, 128, 63}, "m", 1))
	}

	keeper := ids[2]
	require.NoError(t, s.MergeGroup(keeper, "[consolidated x3] dup c", "merged body", ids[:2]))

	obs, err := s.GetObservation(keeper)
	require.NoError(t, err)
	assert.Equal(t, "[consolidated x3] dup c", obs.Title)
	assert.Equal(t, "merged body", obs.Body)

	for _, id := range ids[:2] {
		_, err := s.GetObservation(id)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetEmbedding(id)
		assert.ErrorIs(t, err, ErrNotFound)
	}

	// A merge with a vanished keeper rolls back entirely.
	id, err := s.InsertObservation(testObservation("p", "note", "survivor"))
	require.NoError(t, err)
	err = s.MergeGroup(99999, "t", "b", []int64{id})
	assert.Error(t, err)
	_, err = s.GetObservation(id)
	assert.NoError(t, err, "failed merge must not remove group members")
}

func TestSessions(t *testing.T) {
	s := createTestStore(t)

	sess, err := s.EnsureSession("content-123", "p")
	require.NoError(t, err)
	assert.Equal(t, SessionActive, sess.Status)
	assert.NotEmpty(t, sess.MemorySessionID)

	// Idempotent: same content session returns the same row.
	again, err := s.EnsureSession("content-123", "p")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, again.ID)
	assert.Equal(t, sess.MemorySessionID, again.MemorySessionID)

	require.NoError(t, s.CompleteSession("content-123"))
	done, err := s.getSession("content-123")
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, done.Status)
	assert.Greater(t, done.CompletedAtEpoch, int64(0))
}

func TestPromptsAndCheckpoints(t *testing.T) {
	s := createTestStore(t)

	_, err := s.InsertPrompt(Prompt{Project: "p", ContentSessionID: "content-1", Number: 1, Text: "add pagination"})
	require.NoError(t, err)
	_, err = s.InsertPrompt(Prompt{Project: "p", Number: 2, Text: "fix the cursor bug"})
	require.NoError(t, err)
	_, err = s.InsertPrompt(Prompt{Project: "other", Number: 1, Text: "unrelated"})
	require.NoError(t, err)

	prompts, err := s.ListPrompts("p", 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	assert.Equal(t, "fix the cursor bug", prompts[0].Text)

	_, err = s.InsertPrompt(Prompt{Project: "p", Text: ""})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.InsertCheckpoint(Checkpoint{Project: "p", Title: "v0.1 shipped", Description: "first cut"})
	require.NoError(t, err)
	checkpoints, err := s.ListCheckpoints("p", 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, "v0.1 shipped", checkpoints[0].Title)

	_, err = s.InsertCheckpoint(Checkpoint{Title: "no project"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListSummaries_Pagination(t *testing.T) {
	s := createTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.InsertSummary(Summary{Project: "p", Title: "summary", Body: "b"})
		require.NoError(t, err)
	}

	// Same epoch is likely here, so the id tiebreak carries the order.
	page, err := s.ListSummaries("p", 3, 0, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)

	last := page[len(page)-1]
	rest, err := s.ListSummaries("p", 3, last.CreatedAtEpoch, last.ID)
	require.NoError(t, err)
	require.Len(t, rest, 2)

	seen := map[int64]bool{}
	for _, sum := range append(page, rest...) {
		assert.False(t, seen[sum.ID])
		seen[sum.ID] = true
	}

	// Empty project spans all projects.
	all, err := s.ListSummaries("", 10, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestImportObservations_SkipsKnownHashes(t *testing.T) {
	s := createTestStore(t)

	id, err := s.InsertObservation(testObservation("p", "note", "existing"))
	require.NoError(t, err)
	existing, err := s.GetObservation(id)
	require.NoError(t, err)

	batch := []Observation{
		*existing, // same hash, skipped
		{
			Project:        "p",
			Type:           "note",
			Title:          "imported",
			Narrative:      "from another machine",
			CreatedAtEpoch: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		},
	}

	inserted, err := s.ImportObservations(batch)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	count, err := s.CountObservations("p")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Re-import is a full skip.
	inserted, err = s.ImportObservations(batch)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}
