package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKnowledgeType(t *testing.T) {
	assert.True(t, IsKnowledgeType("constraint"))
	assert.True(t, IsKnowledgeType("decision"))
	assert.True(t, IsKnowledgeType("heuristic"))
	assert.True(t, IsKnowledgeType("rejected"))
	assert.False(t, IsKnowledgeType("file-write"))
	assert.False(t, IsKnowledgeType(""))
	assert.False(t, IsKnowledgeType("Constraint"))
}

func TestBoost(t *testing.T) {
	assert.Equal(t, 1.3, Boost("constraint"))
	assert.Equal(t, 1.25, Boost("decision"))
	assert.Equal(t, 1.15, Boost("heuristic"))
	assert.Equal(t, 1.1, Boost("rejected"))
	assert.Equal(t, 1.0, Boost("file-read"))
	assert.Equal(t, 1.0, Boost(""))
}

func TestValidateFacts(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		raw     string
		wantErr bool
	}{
		{
			name: "valid constraint",
			typ:  "constraint",
			raw:  `{"kind":"constraint","severity":"high","reason":"API rate limit"}`,
		},
		{
			name: "valid decision",
			typ:  "decision",
			raw:  `{"kind":"decision","reason":"simpler","alternatives":["redis","memcached"]}`,
		},
		{
			name: "valid heuristic",
			typ:  "heuristic",
			raw:  `{"kind":"heuristic","context":"large repos","confidence":0.8}`,
		},
		{
			name: "valid rejected",
			typ:  "rejected",
			raw:  `{"kind":"rejected","reason":"too slow"}`,
		},
		{
			name:    "kind mismatch",
			typ:     "constraint",
			raw:     `{"kind":"decision","reason":"x"}`,
			wantErr: true,
		},
		{
			name:    "missing required field",
			typ:     "constraint",
			raw:     `{"kind":"constraint"}`,
			wantErr: true,
		},
		{
			name:    "bad severity enum",
			typ:     "constraint",
			raw:     `{"kind":"constraint","severity":"extreme"}`,
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			typ:     "heuristic",
			raw:     `{"kind":"heuristic","confidence":1.5}`,
			wantErr: true,
		},
		{
			name:    "unknown property",
			typ:     "rejected",
			raw:     `{"kind":"rejected","reason":"x","extra":true}`,
			wantErr: true,
		},
		{
			name:    "not json",
			typ:     "decision",
			raw:     `not json`,
			wantErr: true,
		},
		{
			name:    "non-knowledge type",
			typ:     "file-write",
			raw:     `{"kind":"file-write"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFacts(tt.typ, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseFacts(t *testing.T) {
	f, err := ParseFacts(`{"kind":"decision","reason":"fewer moving parts","alternatives":["a","b"]}`)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "decision", f.Kind)
	assert.Equal(t, "fewer moving parts", f.Reason)
	assert.Equal(t, []string{"a", "b"}, f.Alternatives)

	f, err = ParseFacts("")
	require.NoError(t, err)
	assert.Nil(t, f)

	_, err = ParseFacts("{broken")
	assert.Error(t, err)
}
