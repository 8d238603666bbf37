package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/knowledge"
)

// Validation caps applied before any store mutation.
const (
	MaxTitleLen = 500
	MaxTextLen  = 100_000
)

// Observation is an atomic fact captured during a work session.
type Observation struct {
	ID                int64     `json:"id"`
	Project           string    `json:"project"`
	Type              string    `json:"type"`
	Title             string    `json:"title"`
	Subtitle          string    `json:"subtitle,omitempty"`
	Body              string    `json:"body,omitempty"`
	Narrative         string    `json:"narrative,omitempty"`
	Facts             string    `json:"facts,omitempty"`
	Concepts          string    `json:"concepts,omitempty"` // comma-joined tags
	FilesRead         []string  `json:"files_read,omitempty"`
	FilesModified     []string  `json:"files_modified,omitempty"`
	PromptNumber      int       `json:"prompt_number,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	CreatedAtEpoch    int64     `json:"created_at_epoch"`
	ContentHash       string    `json:"content_hash"`
	DiscoveryTokens   int64     `json:"discovery_tokens"`
	LastAccessedEpoch int64     `json:"last_accessed_epoch,omitempty"`
	IsStale           bool      `json:"is_stale"`
	AutoCategory      string    `json:"auto_category,omitempty"`
}

// NewObservation is the caller-supplied input for ingestion.
type NewObservation struct {
	Project         string
	Type            string
	Title           string
	Subtitle        string
	Body            string
	Narrative       string
	Facts           string
	Concepts        []string
	FilesRead       []string
	FilesModified   []string
	PromptNumber    int
	DiscoveryTokens int64
}

func (n *NewObservation) validate() error {
	if n.Project == "" {
		return fmt.Errorf("%w: project is required", ErrValidation)
	}
	if n.Type == "" {
		return fmt.Errorf("%w: type is required", ErrValidation)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(n.Title) > MaxTitleLen {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLen)
	}
	if len(n.Body) > MaxTextLen {
		return fmt.Errorf("%w: body exceeds %d characters", ErrValidation, MaxTextLen)
	}
	if len(n.Narrative) > MaxTextLen {
		return fmt.Errorf("%w: narrative exceeds %d characters", ErrValidation, MaxTextLen)
	}
	if n.Facts != "" && knowledge.IsKnowledgeType(n.Type) {
		if err := knowledge.ValidateFacts(n.Type, n.Facts); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return nil
}

// deriveCategory assigns the derived tag used for grouping in reports.
func deriveCategory(typ string) string {
	if knowledge.IsKnowledgeType(typ) {
		return "knowledge"
	}
	switch typ {
	case "file-read", "research":
		return "discovery"
	case "file-write":
		return "change"
	case "command", "delegation":
		return "action"
	default:
		return "general"
	}
}

// InsertObservation validates and ingests a new observation. When a row
// with the same content hash exists inside the type's dedup window the
// write is discarded and DuplicateID is returned without error. This is
// a best-effort idempotency filter: writers racing inside the window
// may both insert, and consolidation cleans up later.
func (s *Store) InsertObservation(n NewObservation) (int64, error) {
	if err := n.validate(); err != nil {
		return 0, err
	}

	now := s.now()
	hash := ContentHash(n.Project, n.Type, n.Title, n.Narrative)
	window, forever := dedupWindow(n.Type)

	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		var lastEpoch int64
		err := tx.QueryRow(
			"SELECT created_at_epoch FROM observations WHERE content_hash = ? ORDER BY created_at_epoch DESC LIMIT 1",
			hash,
		).Scan(&lastEpoch)
		switch {
		case err == sql.ErrNoRows:
			// first sighting
		case err != nil:
			return fmt.Errorf("failed to check content hash: %w", err)
		case forever:
			id = DuplicateID
			return nil
		case now.UnixMilli()-lastEpoch < window.Milliseconds():
			id = DuplicateID
			return nil
		}

		res, err := tx.Exec(`
			INSERT INTO observations (
				project, type, title, subtitle, body, narrative, facts, concepts,
				files_read, files_modified, prompt_number, created_at, created_at_epoch,
				content_hash, discovery_tokens, auto_category
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.Project, n.Type, n.Title, nullable(n.Subtitle), nullable(n.Body), nullable(n.Narrative),
			nullable(n.Facts), nullable(strings.Join(n.Concepts, ",")),
			jsonList(n.FilesRead), jsonList(n.FilesModified), n.PromptNumber,
			now.UTC().Format(time.RFC3339), now.UnixMilli(), hash, n.DiscoveryTokens,
			deriveCategory(n.Type),
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}

	if id == DuplicateID {
		s.logger.Debug().Str("type", n.Type).Str("hash", hash[:12]).Msg("Duplicate observation discarded")
	}
	return id, nil
}

// GetObservation retrieves one observation by id.
func (s *Store) GetObservation(id int64) (*Observation, error) {
	row := s.db.QueryRow(observationSelect+" WHERE id = ?", id)
	obs, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get observation %d: %w", id, err)
	}
	return obs, nil
}

// ObservationsByIDs fetches observations preserving the input order,
// silently dropping ids that no longer exist.
func (s *Store) ObservationsByIDs(ids []int64) ([]Observation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.Query(observationSelect+" WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observations: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]Observation, len(ids))
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		byID[obs.ID] = *obs
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Observation, 0, len(ids))
	for _, id := range ids {
		if obs, ok := byID[id]; ok {
			out = append(out, obs)
		}
	}
	return out, nil
}

// ListOptions filters a keyset-paginated observation listing. A zero
// BeforeEpoch/BeforeID means "from the top".
type ListOptions struct {
	Project     string
	Type        string
	Limit       int
	BeforeEpoch int64
	BeforeID    int64
}

// ListObservations returns one page in descending (created_at_epoch,
// id) order. The page is the last one when fewer than Limit rows come
// back.
func (s *Store) ListObservations(opts ListOptions) ([]Observation, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	where := []string{"1=1"}
	args := []any{}
	if opts.Project != "" {
		where = append(where, "project = ?")
		args = append(args, opts.Project)
	}
	if opts.Type != "" {
		where = append(where, "type = ?")
		args = append(args, opts.Type)
	}
	if opts.BeforeEpoch > 0 && opts.BeforeID > 0 {
		where = append(where, "(created_at_epoch < ? OR (created_at_epoch = ? AND id < ?))")
		args = append(args, opts.BeforeEpoch, opts.BeforeEpoch, opts.BeforeID)
	}
	args = append(args, opts.Limit)

	rows, err := s.db.Query(
		observationSelect+" WHERE "+strings.Join(where, " AND ")+
			" ORDER BY created_at_epoch DESC, id DESC LIMIT ?",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer rows.Close()

	return collectObservations(rows)
}

// RecentObservations returns the newest observations, optionally
// filtered by project. Used as the candidate window for context mode.
func (s *Store) RecentObservations(project string, limit int) ([]Observation, error) {
	return s.ListObservations(ListOptions{Project: project, Limit: limit})
}

// MarkAccessed stamps the last-accessed epoch on the given
// observations. Retrieval calls this best-effort; failures are the
// caller's to swallow.
func (s *Store) MarkAccessed(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, 0, len(ids)+1)
	args = append(args, s.now().UnixMilli())
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.Exec(
		"UPDATE observations SET last_accessed_epoch = ? WHERE id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to mark accessed: %w", err)
	}
	return nil
}

// MarkStale flags the given observations as stale.
func (s *Store) MarkStale(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.Exec("UPDATE observations SET is_stale = 1 WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("failed to mark stale: %w", err)
	}
	return nil
}

// DeleteObservation removes an observation; its embedding cascades.
func (s *Store) DeleteObservation(id int64) error {
	_, err := s.db.Exec("DELETE FROM observations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete observation %d: %w", id, err)
	}
	return nil
}

// CountObservations returns the number of stored observations,
// optionally scoped to a project.
func (s *Store) CountObservations(project string) (int, error) {
	var count int
	var err error
	if project == "" {
		err = s.db.QueryRow("SELECT COUNT(*) FROM observations").Scan(&count)
	} else {
		err = s.db.QueryRow("SELECT COUNT(*) FROM observations WHERE project = ?", project).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}
	return count, nil
}

// CountsByType returns observation counts grouped by type, optionally
// scoped to a project.
func (s *Store) CountsByType(project string) (map[string]int, error) {
	query := "SELECT type, COUNT(*) FROM observations"
	args := []any{}
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " GROUP BY type"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

// CountStale returns how many observations are flagged stale,
// optionally scoped to a project.
func (s *Store) CountStale(project string) (int, error) {
	query := "SELECT COUNT(*) FROM observations WHERE is_stale = 1"
	args := []any{}
	if project != "" {
		query += " AND project = ?"
		args = append(args, project)
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stale observations: %w", err)
	}
	return count, nil
}

// HashKnown reports whether any observation with the given content hash
// exists, regardless of age. The import boundary uses this to skip
// records already present.
func (s *Store) HashKnown(hash string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM observations WHERE content_hash = ?", hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check hash: %w", err)
	}
	return count > 0, nil
}

const observationSelect = `
	SELECT id, project, type, title, subtitle, body, narrative, facts, concepts,
	       files_read, files_modified, prompt_number, created_at, created_at_epoch,
	       content_hash, discovery_tokens, last_accessed_epoch, is_stale, auto_category
	FROM observations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(row rowScanner) (*Observation, error) {
	var (
		obs                                                    Observation
		subtitle, body, narrative, facts, concepts, autoCat    sql.NullString
		filesRead, filesModified                               sql.NullString
		promptNumber, lastAccessed                             sql.NullInt64
		createdAt                                              string
	)

	err := row.Scan(
		&obs.ID, &obs.Project, &obs.Type, &obs.Title, &subtitle, &body, &narrative,
		&facts, &concepts, &filesRead, &filesModified, &promptNumber,
		&createdAt, &obs.CreatedAtEpoch, &obs.ContentHash, &obs.DiscoveryTokens,
		&lastAccessed, &obs.IsStale, &autoCat,
	)
	if err != nil {
		return nil, err
	}

	obs.Subtitle = subtitle.String
	obs.Body = body.String
	obs.Narrative = narrative.String
	obs.Facts = facts.String
	obs.Concepts = concepts.String
	obs.AutoCategory = autoCat.String
	obs.PromptNumber = int(promptNumber.Int64)
	obs.LastAccessedEpoch = lastAccessed.Int64
	obs.FilesRead = parseList(filesRead.String)
	obs.FilesModified = parseList(filesModified.String)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		obs.CreatedAt = t
	}

	return &obs, nil
}

func collectObservations(rows *sql.Rows) ([]Observation, error) {
	var out []Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *obs)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// jsonList marshals a set of strings in sorted order, so the same set
// always serializes to the same text. Consolidation groups on this
// text, which must not depend on the order the caller supplied.
func jsonList(items []string) any {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]string, len(items))
	copy(sorted, items)
	sort.Strings(sorted)
	b, _ := json.Marshal(sorted)
	return string(b)
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
