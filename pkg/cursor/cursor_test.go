package cursor

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		epoch int64
		id    int64
	}{
		{"small values", 1, 1},
		{"typical epoch millis", 1735689600123, 42},
		{"max int64", 1<<63 - 1, 1<<63 - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := Encode(tt.epoch, tt.id)
			epoch, id, err := Decode(token)
			require.NoError(t, err)
			assert.Equal(t, tt.epoch, epoch)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty string", ""},
		{"not base64", "not base64!!"},
		{"missing separator", base64.RawURLEncoding.EncodeToString([]byte("12345"))},
		{"non-numeric epoch", base64.RawURLEncoding.EncodeToString([]byte("abc:1"))},
		{"non-numeric id", base64.RawURLEncoding.EncodeToString([]byte("1:abc"))},
		{"zero epoch", base64.RawURLEncoding.EncodeToString([]byte("0:1"))},
		{"negative id", base64.RawURLEncoding.EncodeToString([]byte("1:-5"))},
		{"empty parts", base64.RawURLEncoding.EncodeToString([]byte(":"))},
		{"float epoch", base64.RawURLEncoding.EncodeToString([]byte("1.5:2"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.token)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, 50, ClampPageSize(0, 50))
	assert.Equal(t, 50, ClampPageSize(-3, 50))
	assert.Equal(t, 1, ClampPageSize(1, 50))
	assert.Equal(t, 200, ClampPageSize(999, 50))
	assert.Equal(t, 25, ClampPageSize(25, 50))
}
