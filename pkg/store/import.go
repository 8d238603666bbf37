package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ImportObservations inserts a batch of previously exported
// observations inside one transaction, preserving their original
// timestamps. Records whose content hash is already present are
// skipped. Returns how many rows were inserted.
func (s *Store) ImportObservations(batch []Observation) (int, error) {
	inserted := 0
	err := s.withTx(func(tx *sql.Tx) error {
		for _, obs := range batch {
			hash := obs.ContentHash
			if hash == "" {
				hash = ContentHash(obs.Project, obs.Type, obs.Title, obs.Narrative)
			}

			var count int
			if err := tx.QueryRow(
				"SELECT COUNT(*) FROM observations WHERE content_hash = ?", hash,
			).Scan(&count); err != nil {
				return fmt.Errorf("failed to check imported hash: %w", err)
			}
			if count > 0 {
				continue
			}

			createdAt := obs.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.UnixMilli(obs.CreatedAtEpoch)
			}
			epoch := obs.CreatedAtEpoch
			if epoch == 0 {
				epoch = createdAt.UnixMilli()
			}

			category := obs.AutoCategory
			if category == "" {
				category = deriveCategory(obs.Type)
			}

			if _, err := tx.Exec(`
				INSERT INTO observations (
					project, type, title, subtitle, body, narrative, facts, concepts,
					files_read, files_modified, prompt_number, created_at, created_at_epoch,
					content_hash, discovery_tokens, is_stale, auto_category
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				obs.Project, obs.Type, obs.Title, nullable(obs.Subtitle), nullable(obs.Body),
				nullable(obs.Narrative), nullable(obs.Facts), nullable(obs.Concepts),
				jsonList(obs.FilesRead), jsonList(obs.FilesModified), obs.PromptNumber,
				createdAt.UTC().Format(time.RFC3339), epoch, hash, obs.DiscoveryTokens,
				obs.IsStale, category,
			); err != nil {
				return fmt.Errorf("failed to import observation: %w", err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// StaleCandidates returns the most recent observations that reference
// modified files and are not yet marked stale, bounded per pass.
func (s *Store) StaleCandidates(project string, limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = 500
	}

	query := observationSelect + `
		WHERE is_stale = 0 AND files_modified IS NOT NULL AND files_modified != '' AND files_modified != '[]'`
	args := []any{}
	if project != "" {
		query += " AND project = ?"
		args = append(args, project)
	}
	query += " ORDER BY created_at_epoch DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale candidates: %w", err)
	}
	defer rows.Close()

	return collectObservations(rows)
}
