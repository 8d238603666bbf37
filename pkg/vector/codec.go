// Package vector stores one fixed-dimension embedding per observation
// and scores nearest neighbors by cosine similarity over a bounded,
// recency-ordered candidate window.
package vector

import (
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// EncodeVector serializes a float vector into raw little-endian IEEE-754
// float32 bytes, 4 bytes per dimension.
func EncodeVector(v []float32) ([]byte, error) {
	return sqlite_vec.SerializeFloat32(v)
}

// DecodeVector is the exact inverse of EncodeVector.
func DecodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// Cosine computes cosine similarity between two vectors. Defined as 0
// when either vector is empty or has zero norm; never panics on length
// mismatch (extra dimensions are ignored).
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
