// Package decay keeps stored memory honest over time: observations
// whose touched files changed on disk are flagged stale, and runs of
// near-duplicate observations are consolidated into a single survivor.
package decay

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

// maxStaleCandidates bounds a single staleness pass.
const maxStaleCandidates = 500

// Sweeper runs staleness detection and consolidation passes over a
// store.
type Sweeper struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewSweeper creates a sweeper over the given store.
func NewSweeper(s *store.Store, logger zerolog.Logger) *Sweeper {
	return &Sweeper{store: s, logger: logger}
}

// MarkStale flags observations whose modified files have changed on
// disk since the observation was recorded. A missing file is not
// evidence of staleness and is skipped. Returns how many observations
// were flagged.
func (sw *Sweeper) MarkStale(project string) (int, error) {
	candidates, err := sw.store.StaleCandidates(project, maxStaleCandidates)
	if err != nil {
		return 0, err
	}

	var staleIDs []int64
	for _, obs := range candidates {
		if fileChangedSince(obs.FilesModified, obs.CreatedAtEpoch) {
			staleIDs = append(staleIDs, obs.ID)
		}
	}

	if err := sw.store.MarkStale(staleIDs); err != nil {
		return 0, err
	}

	if len(staleIDs) > 0 {
		sw.logger.Info().
			Int("checked", len(candidates)).
			Int("stale", len(staleIDs)).
			Str("project", project).
			Msg("Staleness pass complete")
	}
	return len(staleIDs), nil
}

// fileChangedSince reports whether any of the paths has an mtime
// strictly newer than the given epoch milliseconds.
func fileChangedSince(paths []string, epochMs int64) bool {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().UnixMilli() > epochMs {
			return true
		}
	}
	return false
}
