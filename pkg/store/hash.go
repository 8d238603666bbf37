package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/knowledge"
)

// ContentHash computes the stable identity of an observation over its
// semantic-identity fields. Two observations with the same project,
// type, title and narrative hash identically regardless of everything
// else.
func ContentHash(project, typ, title, narrative string) string {
	h := sha256.Sum256([]byte(strings.Join([]string{project, typ, title, narrative}, "|")))
	return hex.EncodeToString(h[:])
}

// dedupWindows maps observation types to the recency window inside
// which a repeated content hash is discarded.
var dedupWindows = map[string]time.Duration{
	"file-read":  60 * time.Second,
	"file-write": 10 * time.Second,
	"command":    30 * time.Second,
	"research":   120 * time.Second,
	"delegation": 60 * time.Second,
}

const defaultDedupWindow = 30 * time.Second

// dedupWindow returns the type-specific window, and whether the type
// dedups forever. Knowledge items never recur: any prior hash match
// blocks re-insertion regardless of age.
func dedupWindow(typ string) (time.Duration, bool) {
	if knowledge.IsKnowledgeType(typ) {
		return 0, true
	}
	if w, ok := dedupWindows[typ]; ok {
		return w, false
	}
	return defaultDedupWindow, false
}
