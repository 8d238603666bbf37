package port

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

// importBatchSize bounds transaction size while reading a snapshot.
const importBatchSize = 500

// maxLineBytes caps one snapshot line; bodies top out at 100k so this
// leaves generous headroom for encoding overhead.
const maxLineBytes = 1 << 20

// ImportResult reports what a snapshot restore did.
type ImportResult struct {
	SnapshotID string `json:"snapshot_id"`
	Inserted   int    `json:"inserted"`
	Skipped    int    `json:"skipped"`
	Summaries  int    `json:"summaries"`
	Malformed  int    `json:"malformed"`
}

// Import reads a snapshot from r and inserts its records. Observations
// already present, by content hash, are skipped; malformed lines are
// counted and passed over rather than aborting the restore.
func (p *Porter) Import(r io.Reader) (*ImportResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read snapshot: %w", err)
		}
		return nil, fmt.Errorf("snapshot is empty")
	}

	var meta Meta
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot metadata: %w", err)
	}
	if meta.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported snapshot schema version %d", meta.SchemaVersion)
	}

	result := &ImportResult{SnapshotID: meta.SnapshotID}
	batch := make([]store.Observation, 0, importBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		inserted, err := p.store.ImportObservations(batch)
		if err != nil {
			return err
		}
		result.Inserted += inserted
		result.Skipped += len(batch) - inserted
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			result.Malformed++
			continue
		}

		switch {
		case rec.Kind == KindObservation && rec.Observation != nil:
			batch = append(batch, *rec.Observation)
			if len(batch) == importBatchSize {
				if err := flush(); err != nil {
					return result, err
				}
			}
		case rec.Kind == KindSummary && rec.Summary != nil:
			if _, err := p.store.InsertSummary(*rec.Summary); err != nil {
				result.Malformed++
				continue
			}
			result.Summaries++
		default:
			result.Malformed++
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := flush(); err != nil {
		return result, err
	}

	p.logger.Info().
		Str("snapshot", result.SnapshotID).
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Int("malformed", result.Malformed).
		Msg("Import complete")
	return result, nil
}
