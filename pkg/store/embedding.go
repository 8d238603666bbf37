package store

import (
	"database/sql"
	"fmt"
)

// Embedding is the stored vector for one observation. The vector blob
// is a raw little-endian float32 sequence, 4 bytes per dimension.
type Embedding struct {
	ObservationID  int64
	Vector         []byte
	Model          string
	Dims           int
	CreatedAtEpoch int64
}

// UpsertEmbedding stores or replaces the embedding for an observation.
// Idempotent: re-running with the same payload is a no-op in effect.
func (s *Store) UpsertEmbedding(observationID int64, vector []byte, model string, dims int) error {
	if len(vector) != 4*dims {
		return fmt.Errorf("%w: vector is %d bytes, want %d for %d dims", ErrValidation, len(vector), 4*dims, dims)
	}

	_, err := s.db.Exec(`
		INSERT INTO embeddings (observation_id, vector, model, dims, created_at_epoch)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(observation_id) DO UPDATE SET
			vector = excluded.vector,
			model = excluded.model,
			dims = excluded.dims,
			created_at_epoch = excluded.created_at_epoch`,
		observationID, vector, model, dims, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding for %d: %w", observationID, err)
	}
	return nil
}

// GetEmbedding retrieves the embedding for one observation.
func (s *Store) GetEmbedding(observationID int64) (*Embedding, error) {
	var e Embedding
	err := s.db.QueryRow(
		"SELECT observation_id, vector, model, dims, created_at_epoch FROM embeddings WHERE observation_id = ?",
		observationID,
	).Scan(&e.ObservationID, &e.Vector, &e.Model, &e.Dims, &e.CreatedAtEpoch)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding for %d: %w", observationID, err)
	}
	return &e, nil
}

// EmbeddingCandidate pairs an embedding with its observation id for
// in-memory similarity scoring.
type EmbeddingCandidate struct {
	ObservationID int64
	Vector        []byte
}

// EmbeddingCandidates pulls at most max embedding+observation pairs,
// most recent first, optionally filtered by project. This bounds the
// cost of vector search: never a full scan.
func (s *Store) EmbeddingCandidates(project string, max int) ([]EmbeddingCandidate, error) {
	if max <= 0 {
		max = 2000
	}

	query := `
		SELECT e.observation_id, e.vector
		FROM embeddings e
		JOIN observations o ON o.id = e.observation_id`
	args := []any{}
	if project != "" {
		query += " WHERE o.project = ?"
		args = append(args, project)
	}
	query += " ORDER BY o.created_at_epoch DESC, o.id DESC LIMIT ?"
	args = append(args, max)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch embedding candidates: %w", err)
	}
	defer rows.Close()

	var out []EmbeddingCandidate
	for rows.Next() {
		var c EmbeddingCandidate
		if err := rows.Scan(&c.ObservationID, &c.Vector); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountEmbeddings returns how many observations have a stored vector.
func (s *Store) CountEmbeddings() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

// ObservationsWithoutEmbedding returns up to limit observations that
// have no stored vector yet, oldest first so backfill drains in order.
func (s *Store) ObservationsWithoutEmbedding(limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(observationSelect+`
		WHERE id NOT IN (SELECT observation_id FROM embeddings)
		ORDER BY created_at_epoch ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find observations without embedding: %w", err)
	}
	defer rows.Close()

	return collectObservations(rows)
}
