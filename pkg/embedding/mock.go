package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync/atomic"
)

// MockProvider is a deterministic in-process provider for tests. The
// same text always embeds to the same unit-norm vector.
type MockProvider struct {
	dimension int
	failInit  bool
	initCalls atomic.Int64
}

// NewMockProvider creates a mock with the given output width.
func NewMockProvider(dimension int) *MockProvider {
	return &MockProvider{dimension: dimension}
}

// NewFailingMockProvider creates a mock whose initialization fails.
func NewFailingMockProvider(dimension int) *MockProvider {
	return &MockProvider{dimension: dimension, failInit: true}
}

func (p *MockProvider) Initialize(ctx context.Context) (bool, error) {
	p.initCalls.Add(1)
	if p.failInit {
		return false, context.Canceled
	}
	return true, nil
}

// InitCalls reports how many times Initialize ran.
func (p *MockProvider) InitCalls() int64 {
	return p.initCalls.Load()
}

func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.vectorFor(text), nil
}

func (p *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vectorFor(t)
	}
	return out, nil
}

func (p *MockProvider) Dimension() int {
	return p.dimension
}

func (p *MockProvider) Name() string {
	return "mock"
}

// vectorFor derives a stable pseudo-random unit vector from the text.
func (p *MockProvider) vectorFor(text string) []float32 {
	if text == "" {
		return nil
	}

	vec := make([]float32, p.dimension)
	seed := sha256.Sum256([]byte(text))
	var norm float64
	for i := range vec {
		var buf [8]byte
		copy(buf[:], seed[:])
		binary.LittleEndian.PutUint32(buf[4:], uint32(i))
		h := sha256.Sum256(buf[:])
		v := float32(binary.LittleEndian.Uint32(h[:4]))/float32(math.MaxUint32) - 0.5
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}
