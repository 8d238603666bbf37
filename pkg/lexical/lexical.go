// Package lexical ranks observations against free-text queries using
// the FTS5 index, falling back to a substring scan when the query
// sanitizes to nothing or the index is unusable.
package lexical

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

// Sanitization caps.
const (
	maxQueryLen    = 10_000
	maxQueryTokens = 100
)

// DefaultLimit is the result cap when the caller supplies none.
const DefaultLimit = 50

// BM25 field weights, in FTS column order: title, concepts, narrative,
// body. Title matches dominate; free body text barely registers.
const bm25Weights = "10.0, 5.0, 3.0, 1.0"

// Filters narrows a lexical search.
type Filters struct {
	Project     string
	Type        string
	SinceEpoch  int64
	UntilEpoch  int64
	Limit       int
}

// Ranked pairs an observation with its raw relevance rank for
// downstream normalization. Higher is more relevant.
type Ranked struct {
	Observation store.Observation
	Rank        float64
}

// Index searches the store's full-text tables.
type Index struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewIndex creates a lexical index over the shared store.
func NewIndex(s *store.Store, logger zerolog.Logger) *Index {
	return &Index{store: s, logger: logger}
}

// Search returns observations ranked most relevant first.
func (ix *Index) Search(query string, f Filters) ([]store.Observation, error) {
	ranked, err := ix.SearchRanked(query, f)
	if err != nil {
		return nil, err
	}
	out := make([]store.Observation, len(ranked))
	for i, r := range ranked {
		out[i] = r.Observation
	}
	return out, nil
}

// SearchRanked returns observations with their raw numeric ranks.
// FTS failures degrade to the substring fallback rather than failing
// the query.
func (ix *Index) SearchRanked(query string, f Filters) ([]Ranked, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}

	match := SanitizeQuery(query)
	if match == "" {
		return ix.fallbackScan(query, f)
	}

	results, err := ix.ftsSearch(match, f)
	if err != nil {
		ix.logger.Warn().Err(err).Msg("FTS search failed, using substring fallback")
		return ix.fallbackScan(query, f)
	}
	return results, nil
}

// SanitizeQuery normalizes a free-text query into an FTS5 MATCH
// expression: truncate, split on whitespace, cap token count, drop
// quotes, and quote each token as a required phrase term. Returns ""
// when nothing survives.
func SanitizeQuery(query string) string {
	if len(query) > maxQueryLen {
		query = query[:maxQueryLen]
	}

	fields := strings.Fields(query)
	if len(fields) > maxQueryTokens {
		fields = fields[:maxQueryTokens]
	}

	terms := make([]string, 0, len(fields))
	for _, tok := range fields {
		tok = strings.Map(func(r rune) rune {
			if r == '"' || r == '\'' || r == '`' {
				return -1
			}
			return r
		}, tok)
		if tok == "" {
			continue
		}
		terms = append(terms, `"`+tok+`"`)
	}
	return strings.Join(terms, " ")
}

func (ix *Index) ftsSearch(match string, f Filters) ([]Ranked, error) {
	where := []string{"observations_fts MATCH ?"}
	args := []any{match}
	appendFilters(&where, &args, f, "o.")
	args = append(args, f.Limit)

	query := fmt.Sprintf(`
		SELECT o.id, o.project, o.type, o.title, o.subtitle, o.body, o.narrative, o.facts,
		       o.concepts, o.files_read, o.files_modified, o.prompt_number, o.created_at,
		       o.created_at_epoch, o.content_hash, o.discovery_tokens, o.last_accessed_epoch,
		       o.is_stale, o.auto_category,
		       -bm25(observations_fts, %s) AS rank
		FROM observations_fts
		JOIN observations o ON o.id = observations_fts.rowid
		WHERE %s
		ORDER BY rank DESC
		LIMIT ?`, bm25Weights, strings.Join(where, " AND "))

	rows, err := ix.store.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var out []Ranked
	for rows.Next() {
		obs, rank, err := scanRanked(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, Ranked{Observation: *obs, Rank: rank})
	}
	return out, rows.Err()
}

// fallbackScan is the degraded path: a LIKE substring scan across the
// same fields, with LIKE metacharacters escaped literally. All matches
// carry rank 1 (no relevance ordering beyond recency).
func (ix *Index) fallbackScan(query string, f Filters) ([]Ranked, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"

	where := []string{`(o.title LIKE ? ESCAPE '\' OR o.narrative LIKE ? ESCAPE '\' OR o.concepts LIKE ? ESCAPE '\' OR o.body LIKE ? ESCAPE '\')`}
	args := []any{pattern, pattern, pattern, pattern}
	appendFilters(&where, &args, f, "o.")
	args = append(args, f.Limit)

	rows, err := ix.store.DB().Query(`
		SELECT o.id, o.project, o.type, o.title, o.subtitle, o.body, o.narrative, o.facts,
		       o.concepts, o.files_read, o.files_modified, o.prompt_number, o.created_at,
		       o.created_at_epoch, o.content_hash, o.discovery_tokens, o.last_accessed_epoch,
		       o.is_stale, o.auto_category,
		       1.0 AS rank
		FROM observations o
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY o.created_at_epoch DESC, o.id DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("fallback scan: %w", err)
	}
	defer rows.Close()

	var out []Ranked
	for rows.Next() {
		obs, rank, err := scanRanked(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, Ranked{Observation: *obs, Rank: rank})
	}
	return out, rows.Err()
}

func appendFilters(where *[]string, args *[]any, f Filters, prefix string) {
	if f.Project != "" {
		*where = append(*where, prefix+"project = ?")
		*args = append(*args, f.Project)
	}
	if f.Type != "" {
		*where = append(*where, prefix+"type = ?")
		*args = append(*args, f.Type)
	}
	if f.SinceEpoch > 0 {
		*where = append(*where, prefix+"created_at_epoch >= ?")
		*args = append(*args, f.SinceEpoch)
	}
	if f.UntilEpoch > 0 {
		*where = append(*where, prefix+"created_at_epoch <= ?")
		*args = append(*args, f.UntilEpoch)
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
