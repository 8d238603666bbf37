package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// ConsolidationGroup identifies a set of duplicate observations that
// share project, type and modified-file set.
type ConsolidationGroup struct {
	Project       string
	Type          string
	FilesModified string // raw JSON list, the grouping key
	Count         int
}

// ConsolidationGroups finds candidate duplicate groups with at least
// minSize members. Only observations with a non-empty files_modified
// list participate.
func (s *Store) ConsolidationGroups(project string, minSize int) ([]ConsolidationGroup, error) {
	if minSize <= 0 {
		minSize = 3
	}

	query := `
		SELECT project, type, files_modified, COUNT(*) AS n
		FROM observations
		WHERE files_modified IS NOT NULL AND files_modified != '' AND files_modified != '[]'`
	args := []any{}
	if project != "" {
		query += " AND project = ?"
		args = append(args, project)
	}
	query += " GROUP BY project, type, files_modified HAVING n >= ?"
	args = append(args, minSize)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find consolidation groups: %w", err)
	}
	defer rows.Close()

	var out []ConsolidationGroup
	for rows.Next() {
		var g ConsolidationGroup
		if err := rows.Scan(&g.Project, &g.Type, &g.FilesModified, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GroupMembers re-reads the live membership of a group, most recent
// first. Grouped counts can go stale between passes, so both the dry
// run and the real merge recount through this.
func (s *Store) GroupMembers(g ConsolidationGroup) ([]Observation, error) {
	rows, err := s.db.Query(
		observationSelect+` WHERE project = ? AND type = ? AND files_modified = ?
		ORDER BY created_at_epoch DESC, id DESC`,
		g.Project, g.Type, g.FilesModified,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read group members: %w", err)
	}
	defer rows.Close()

	return collectObservations(rows)
}

// MergeGroup atomically collapses a duplicate group into its keeper:
// the keeper's title and body are rewritten and the superseded rows
// (with their embeddings, via cascade) are removed. The whole merge is
// one transaction; a failed group leaves every row untouched.
func (s *Store) MergeGroup(keeperID int64, newTitle, newBody string, removeIDs []int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			"UPDATE observations SET title = ?, body = ? WHERE id = ?",
			newTitle, newBody, keeperID,
		)
		if err != nil {
			return fmt.Errorf("failed to rewrite keeper %d: %w", keeperID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("keeper %d vanished before merge: %w", keeperID, ErrNotFound)
		}

		if len(removeIDs) == 0 {
			return nil
		}
		placeholders := strings.Repeat("?,", len(removeIDs)-1) + "?"
		args := make([]any, len(removeIDs))
		for i, id := range removeIDs {
			args[i] = id
		}
		if _, err := tx.Exec("DELETE FROM observations WHERE id IN ("+placeholders+")", args...); err != nil {
			return fmt.Errorf("failed to remove superseded rows: %w", err)
		}
		return nil
	})
}
