package lexical

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

func scanRanked(rows *sql.Rows) (*store.Observation, float64, error) {
	var (
		obs                                                 store.Observation
		subtitle, body, narrative, facts, concepts, autoCat sql.NullString
		filesRead, filesModified                            sql.NullString
		promptNumber, lastAccessed                          sql.NullInt64
		createdAt                                           string
		rank                                                float64
	)

	err := rows.Scan(
		&obs.ID, &obs.Project, &obs.Type, &obs.Title, &subtitle, &body, &narrative,
		&facts, &concepts, &filesRead, &filesModified, &promptNumber,
		&createdAt, &obs.CreatedAtEpoch, &obs.ContentHash, &obs.DiscoveryTokens,
		&lastAccessed, &obs.IsStale, &autoCat, &rank,
	)
	if err != nil {
		return nil, 0, err
	}

	obs.Subtitle = subtitle.String
	obs.Body = body.String
	obs.Narrative = narrative.String
	obs.Facts = facts.String
	obs.Concepts = concepts.String
	obs.AutoCategory = autoCat.String
	obs.PromptNumber = int(promptNumber.Int64)
	obs.LastAccessedEpoch = lastAccessed.Int64
	obs.FilesRead = parseJSONList(filesRead.String)
	obs.FilesModified = parseJSONList(filesModified.String)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		obs.CreatedAt = t
	}

	return &obs, rank, nil
}

func parseJSONList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
