// Package knowledge defines the structured "knowledge" observation
// categories and the tagged-union facts payload they carry.
//
// Knowledge observations (constraint, decision, heuristic, rejected)
// are deduplicated forever by content hash and boosted during ranking.
package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Knowledge observation types.
const (
	TypeConstraint = "constraint"
	TypeDecision   = "decision"
	TypeHeuristic  = "heuristic"
	TypeRejected   = "rejected"
)

// IsKnowledgeType reports whether typ is one of the reserved knowledge
// categories.
func IsKnowledgeType(typ string) bool {
	switch typ {
	case TypeConstraint, TypeDecision, TypeHeuristic, TypeRejected:
		return true
	}
	return false
}

// Boost returns the ranking multiplier for an observation type.
// Non-knowledge types rank unboosted.
func Boost(typ string) float64 {
	switch typ {
	case TypeConstraint:
		return 1.3
	case TypeDecision:
		return 1.25
	case TypeHeuristic:
		return 1.15
	case TypeRejected:
		return 1.1
	default:
		return 1.0
	}
}

// Facts is the decoded tagged-union payload stored in the observation
// facts column. Only the fields for the discriminating kind are set.
type Facts struct {
	Kind string `json:"kind"`

	// constraint
	Severity string `json:"severity,omitempty"`

	// heuristic
	Context    string  `json:"context,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// decision, rejected
	Alternatives []string `json:"alternatives,omitempty"`

	// constraint, decision, rejected
	Reason string `json:"reason,omitempty"`
}

var factsSchemas = map[string]string{
	TypeConstraint: `{
		"type": "object",
		"properties": {
			"kind":     {"const": "constraint"},
			"severity": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
			"reason":   {"type": "string"}
		},
		"required": ["kind", "severity"],
		"additionalProperties": false
	}`,
	TypeDecision: `{
		"type": "object",
		"properties": {
			"kind":         {"const": "decision"},
			"alternatives": {"type": "array", "items": {"type": "string"}},
			"reason":       {"type": "string"}
		},
		"required": ["kind", "reason"],
		"additionalProperties": false
	}`,
	TypeHeuristic: `{
		"type": "object",
		"properties": {
			"kind":       {"const": "heuristic"},
			"context":    {"type": "string"},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1}
		},
		"required": ["kind"],
		"additionalProperties": false
	}`,
	TypeRejected: `{
		"type": "object",
		"properties": {
			"kind":         {"const": "rejected"},
			"reason":       {"type": "string"},
			"alternatives": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["kind", "reason"],
		"additionalProperties": false
	}`,
}

var compiledSchemas map[string]*gojsonschema.Schema

func init() {
	compiledSchemas = make(map[string]*gojsonschema.Schema, len(factsSchemas))
	for kind, raw := range factsSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("knowledge: bad facts schema for %s: %v", kind, err))
		}
		compiledSchemas[kind] = schema
	}
}

// ValidateFacts checks a raw facts payload for an observation of the
// given knowledge type. The payload's kind discriminant must match the
// observation type and the remaining fields must satisfy that kind's
// schema.
func ValidateFacts(typ, raw string) error {
	if !IsKnowledgeType(typ) {
		return fmt.Errorf("not a knowledge type: %q", typ)
	}

	var discriminant struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal([]byte(raw), &discriminant); err != nil {
		return fmt.Errorf("facts is not a JSON object: %w", err)
	}
	if discriminant.Kind != typ {
		return fmt.Errorf("facts kind %q does not match observation type %q", discriminant.Kind, typ)
	}

	result, err := compiledSchemas[typ].Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("facts validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid %s facts: %s", typ, strings.Join(msgs, "; "))
	}
	return nil
}

// ParseFacts decodes a facts payload, reading the kind discriminant
// first. Returns nil for an empty payload.
func ParseFacts(raw string) (*Facts, error) {
	if raw == "" {
		return nil, nil
	}
	var f Facts
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("parse facts: %w", err)
	}
	return &f, nil
}
