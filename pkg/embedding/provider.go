// Package embedding defines the external text-to-vector capability.
// The retrieval engine must function with this capability entirely
// absent: every caller tolerates an unavailable provider.
package embedding

import "context"

// Provider generates fixed-length float vectors from text.
//
// Embed returns (nil, nil) when the provider has no vector for the
// input; that is "unavailable", not an error. EmbedBatch returns one
// entry per input, nil for misses.
type Provider interface {
	Initialize(ctx context.Context) (bool, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Name() string
}
