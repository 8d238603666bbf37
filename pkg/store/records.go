package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Session statuses.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// Session ties stored records to one external content session.
type Session struct {
	ID               int64  `json:"id"`
	ContentSessionID string `json:"content_session_id"`
	MemorySessionID  string `json:"memory_session_id"`
	Project          string `json:"project"`
	Status           string `json:"status"`
	CreatedAtEpoch   int64  `json:"created_at_epoch"`
	CompletedAtEpoch int64  `json:"completed_at_epoch,omitempty"`
}

// Summary is a condensed account of part of a session.
type Summary struct {
	ID               int64  `json:"id"`
	Project          string `json:"project"`
	ContentSessionID string `json:"content_session_id,omitempty"`
	Title            string `json:"title"`
	Body             string `json:"body,omitempty"`
	CreatedAtEpoch   int64  `json:"created_at_epoch"`
}

// Prompt records one user prompt within a session.
type Prompt struct {
	ID               int64  `json:"id"`
	Project          string `json:"project"`
	ContentSessionID string `json:"content_session_id,omitempty"`
	Number           int    `json:"number"`
	Text             string `json:"text"`
	CreatedAtEpoch   int64  `json:"created_at_epoch"`
}

// Checkpoint marks a named point in a project's history.
type Checkpoint struct {
	ID             int64  `json:"id"`
	Project        string `json:"project"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	CreatedAtEpoch int64  `json:"created_at_epoch"`
}

// EnsureSession upserts the session for an external content-session
// id, generating a memory-session id when the session is new.
func (s *Store) EnsureSession(contentSessionID, project string) (*Session, error) {
	if contentSessionID == "" {
		return nil, fmt.Errorf("%w: content session id is required", ErrValidation)
	}

	existing, err := s.getSession(contentSessionID)
	if err == nil {
		return existing, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	memoryID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate memory session id: %w", err)
	}

	now := s.now()
	res, err := s.db.Exec(`
		INSERT INTO sessions (content_session_id, memory_session_id, project, status, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_session_id) DO NOTHING`,
		contentSessionID, memoryID, project, SessionActive,
		now.UTC().Format(time.RFC3339), now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// lost a race to a concurrent creator; read theirs
		return s.getSession(contentSessionID)
	}
	return s.getSession(contentSessionID)
}

// CompleteSession marks a session completed.
func (s *Store) CompleteSession(contentSessionID string) error {
	_, err := s.db.Exec(
		"UPDATE sessions SET status = ?, completed_at_epoch = ? WHERE content_session_id = ?",
		SessionCompleted, s.now().UnixMilli(), contentSessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	return nil
}

func (s *Store) getSession(contentSessionID string) (*Session, error) {
	var (
		sess        Session
		completedAt sql.NullInt64
		createdAt   string
	)
	err := s.db.QueryRow(`
		SELECT id, content_session_id, memory_session_id, project, status, created_at, created_at_epoch, completed_at_epoch
		FROM sessions WHERE content_session_id = ?`, contentSessionID,
	).Scan(&sess.ID, &sess.ContentSessionID, &sess.MemorySessionID, &sess.Project,
		&sess.Status, &createdAt, &sess.CreatedAtEpoch, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess.CompletedAtEpoch = completedAt.Int64
	return &sess, nil
}

// InsertSummary stores a session summary.
func (s *Store) InsertSummary(sum Summary) (int64, error) {
	if sum.Project == "" || sum.Title == "" {
		return 0, fmt.Errorf("%w: summary needs project and title", ErrValidation)
	}

	now := s.now()
	res, err := s.db.Exec(`
		INSERT INTO summaries (project, content_session_id, title, body, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sum.Project, nullable(sum.ContentSessionID), sum.Title, nullable(sum.Body),
		now.UTC().Format(time.RFC3339), now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert summary: %w", err)
	}
	return res.LastInsertId()
}

// InsertPrompt stores a numbered user prompt.
func (s *Store) InsertPrompt(p Prompt) (int64, error) {
	if p.Project == "" || p.Text == "" {
		return 0, fmt.Errorf("%w: prompt needs project and text", ErrValidation)
	}

	now := s.now()
	res, err := s.db.Exec(`
		INSERT INTO prompts (project, content_session_id, number, text, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.Project, nullable(p.ContentSessionID), p.Number, p.Text,
		now.UTC().Format(time.RFC3339), now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert prompt: %w", err)
	}
	return res.LastInsertId()
}

// InsertCheckpoint stores a named checkpoint.
func (s *Store) InsertCheckpoint(c Checkpoint) (int64, error) {
	if c.Project == "" || c.Title == "" {
		return 0, fmt.Errorf("%w: checkpoint needs project and title", ErrValidation)
	}

	now := s.now()
	res, err := s.db.Exec(`
		INSERT INTO checkpoints (project, title, description, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?)`,
		c.Project, c.Title, nullable(c.Description),
		now.UTC().Format(time.RFC3339), now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	return res.LastInsertId()
}

// ListSummaries returns one keyset page of summaries. An empty
// project means all projects.
func (s *Store) ListSummaries(project string, limit int, beforeEpoch, beforeID int64) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}

	where := []string{"1=1"}
	args := []any{}
	if project != "" {
		where = append(where, "project = ?")
		args = append(args, project)
	}
	if beforeEpoch > 0 && beforeID > 0 {
		where = append(where, "(created_at_epoch < ? OR (created_at_epoch = ? AND id < ?))")
		args = append(args, beforeEpoch, beforeEpoch, beforeID)
	}
	args = append(args, limit)

	rows, err := s.db.Query(`
		SELECT id, project, content_session_id, title, body, created_at_epoch
		FROM summaries WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at_epoch DESC, id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum       Summary
			sessionID sql.NullString
			body      sql.NullString
		)
		if err := rows.Scan(&sum.ID, &sum.Project, &sessionID, &sum.Title, &body, &sum.CreatedAtEpoch); err != nil {
			return nil, err
		}
		sum.ContentSessionID = sessionID.String
		sum.Body = body.String
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ListPrompts returns one keyset page of prompts, newest first.
func (s *Store) ListPrompts(project string, limit int, beforeEpoch, beforeID int64) ([]Prompt, error) {
	if limit <= 0 {
		limit = 20
	}

	where := []string{"1=1"}
	args := []any{}
	if project != "" {
		where = append(where, "project = ?")
		args = append(args, project)
	}
	if beforeEpoch > 0 && beforeID > 0 {
		where = append(where, "(created_at_epoch < ? OR (created_at_epoch = ? AND id < ?))")
		args = append(args, beforeEpoch, beforeEpoch, beforeID)
	}
	args = append(args, limit)

	rows, err := s.db.Query(`
		SELECT id, project, content_session_id, number, text, created_at_epoch
		FROM prompts WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at_epoch DESC, id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	var out []Prompt
	for rows.Next() {
		var (
			p         Prompt
			sessionID sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Project, &sessionID, &p.Number, &p.Text, &p.CreatedAtEpoch); err != nil {
			return nil, err
		}
		p.ContentSessionID = sessionID.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListCheckpoints returns one keyset page of checkpoints, newest first.
func (s *Store) ListCheckpoints(project string, limit int, beforeEpoch, beforeID int64) ([]Checkpoint, error) {
	if limit <= 0 {
		limit = 20
	}

	where := []string{"1=1"}
	args := []any{}
	if project != "" {
		where = append(where, "project = ?")
		args = append(args, project)
	}
	if beforeEpoch > 0 && beforeID > 0 {
		where = append(where, "(created_at_epoch < ? OR (created_at_epoch = ? AND id < ?))")
		args = append(args, beforeEpoch, beforeEpoch, beforeID)
	}
	args = append(args, limit)

	rows, err := s.db.Query(`
		SELECT id, project, title, description, created_at_epoch
		FROM checkpoints WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at_epoch DESC, id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var (
			c    Checkpoint
			desc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Project, &c.Title, &desc, &c.CreatedAtEpoch); err != nil {
			return nil, err
		}
		c.Description = desc.String
		out = append(out, c)
	}
	return out, rows.Err()
}
