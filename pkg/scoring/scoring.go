// Package scoring combines lexical relevance, vector similarity,
// recency decay and project affinity into a single composite score.
// Everything here is pure: no store access, no side effects.
package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/knowledge"
)

// RecencyHalfLifeHours is the age at which the recency signal decays to
// half its value: one week.
const RecencyHalfLifeHours = 168.0

// HybridBonus multiplies the composite when a candidate was found by
// both the lexical and the vector leg.
const HybridBonus = 1.15

// Weights assigns relative importance to each ranking signal.
type Weights struct {
	Semantic     float64
	Lexical      float64
	Recency      float64
	ProjectMatch float64
}

// SearchWeights ranks query-driven retrieval.
var SearchWeights = Weights{Semantic: 0.4, Lexical: 0.3, Recency: 0.2, ProjectMatch: 0.1}

// ContextWeights ranks query-less browsing: pure recency and affinity.
var ContextWeights = Weights{Recency: 0.7, ProjectMatch: 0.3}

// Signals is the normalized signal vector computed for one candidate.
type Signals struct {
	Semantic     float64 // cosine similarity, 0 when absent from vector results
	Lexical      float64 // min-max normalized rank, 0 when absent from lexical results
	Recency      float64 // exp decay over age, 0 for invalid timestamps
	ProjectMatch float64 // 1 when projects match case-insensitively, else 0
	FoundByBoth  bool
}

// Recency maps a creation epoch (milliseconds) to (0,1]. Future or
// zero-age items score 1; a non-positive epoch scores 0.
func Recency(createdAtEpoch int64, now time.Time) float64 {
	if createdAtEpoch <= 0 {
		return 0
	}
	ageHours := float64(now.UnixMilli()-createdAtEpoch) / float64(time.Hour.Milliseconds())
	if ageHours <= 0 {
		return 1
	}
	return math.Exp(-ageHours * math.Ln2 / RecencyHalfLifeHours)
}

// ProjectMatch compares candidate and target projects. Empty on either
// side never matches.
func ProjectMatch(candidate, target string) float64 {
	if candidate == "" || target == "" {
		return 0
	}
	if strings.EqualFold(candidate, target) {
		return 1
	}
	return 0
}

// NormalizeRanks min-max normalizes raw lexical ranks into [0,1]. A set
// with a single ranked candidate, or one where all ranks are equal,
// normalizes to 1 for every present candidate.
func NormalizeRanks(ranks map[int64]float64) map[int64]float64 {
	out := make(map[int64]float64, len(ranks))
	if len(ranks) == 0 {
		return out
	}

	min := math.Inf(1)
	max := math.Inf(-1)
	for _, r := range ranks {
		if r < min {
			min = r
		}
		if r > max {
			max = r
		}
	}

	if max == min {
		for id := range ranks {
			out[id] = 1
		}
		return out
	}

	for id, r := range ranks {
		out[id] = (r - min) / (max - min)
	}
	return out
}

// Score computes the weighted composite for one candidate, applies the
// hybrid bonus and the knowledge-type boost, and clamps to 1.0.
func Score(sig Signals, w Weights, obsType string) float64 {
	composite := sig.Semantic*w.Semantic +
		sig.Lexical*w.Lexical +
		sig.Recency*w.Recency +
		sig.ProjectMatch*w.ProjectMatch

	if sig.FoundByBoth {
		composite *= HybridBonus
	}
	composite *= knowledge.Boost(obsType)

	if composite > 1 {
		composite = 1
	}
	return composite
}
