// Package port moves memory between stores as JSON Lines: one
// metadata line followed by one kind-tagged record per line. The
// format is append-friendly and survives partial writes, which makes
// it the archival and migration surface.
package port

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

// SchemaVersion identifies the snapshot layout. Readers reject
// versions they do not know.
const SchemaVersion = 1

// record kinds on the wire.
const (
	KindObservation = "observation"
	KindSummary     = "summary"
)

// exportPageSize bounds memory while walking large stores.
const exportPageSize = 500

// Meta is the leading line of a snapshot.
type Meta struct {
	SchemaVersion int    `json:"schema_version"`
	SnapshotID    string `json:"snapshot_id"`
	Project       string `json:"project,omitempty"`
	Observations  int    `json:"observations"`
	Summaries     int    `json:"summaries"`
}

type record struct {
	Kind        string             `json:"kind"`
	Observation *store.Observation `json:"observation,omitempty"`
	Summary     *store.Summary     `json:"summary,omitempty"`
}

// Porter reads and writes snapshots against one store.
type Porter struct {
	store  *store.Store
	logger zerolog.Logger
}

// New creates a porter.
func New(s *store.Store, logger zerolog.Logger) *Porter {
	return &Porter{store: s, logger: logger}
}

// Export writes a snapshot of the store to w, optionally restricted to
// one project. Returns the snapshot metadata that was written.
func (p *Porter) Export(w io.Writer, project string) (*Meta, error) {
	observations, err := p.allObservations(project)
	if err != nil {
		return nil, err
	}
	summaries, err := p.allSummaries(project)
	if err != nil {
		return nil, err
	}

	meta := &Meta{
		SchemaVersion: SchemaVersion,
		SnapshotID:    uuid.New().String(),
		Project:       project,
		Observations:  len(observations),
		Summaries:     len(summaries),
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(meta); err != nil {
		return nil, fmt.Errorf("failed to write snapshot metadata: %w", err)
	}
	for i := range observations {
		if err := enc.Encode(record{Kind: KindObservation, Observation: &observations[i]}); err != nil {
			return nil, fmt.Errorf("failed to write observation: %w", err)
		}
	}
	for i := range summaries {
		if err := enc.Encode(record{Kind: KindSummary, Summary: &summaries[i]}); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	p.logger.Info().
		Str("snapshot", meta.SnapshotID).
		Int("observations", meta.Observations).
		Int("summaries", meta.Summaries).
		Msg("Export complete")
	return meta, nil
}

// allObservations walks every keyset page, oldest pages last.
func (p *Porter) allObservations(project string) ([]store.Observation, error) {
	var out []store.Observation
	opts := store.ListOptions{Project: project, Limit: exportPageSize}
	for {
		page, err := p.store.ListObservations(opts)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < exportPageSize {
			return out, nil
		}
		last := page[len(page)-1]
		opts.BeforeEpoch = last.CreatedAtEpoch
		opts.BeforeID = last.ID
	}
}

func (p *Porter) allSummaries(project string) ([]store.Summary, error) {
	var out []store.Summary
	var beforeEpoch, beforeID int64
	for {
		page, err := p.store.ListSummaries(project, exportPageSize, beforeEpoch, beforeID)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < exportPageSize {
			return out, nil
		}
		last := page[len(page)-1]
		beforeEpoch = last.CreatedAtEpoch
		beforeID = last.ID
	}
}
