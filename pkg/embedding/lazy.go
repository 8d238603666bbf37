package embedding

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Lazy wraps a Provider with at-most-once initialization. The first
// caller runs Initialize; concurrent callers block on the same
// in-flight attempt and share its outcome rather than re-initializing.
type Lazy struct {
	inner  Provider
	logger zerolog.Logger

	once      sync.Once
	available bool
	initErr   error
}

// NewLazy wraps a provider. A nil inner provider is a permanently
// unavailable capability (lexical-only mode).
func NewLazy(inner Provider, logger zerolog.Logger) *Lazy {
	return &Lazy{inner: inner, logger: logger}
}

// Available initializes the provider if needed and reports whether
// embedding is usable. Initialization failure is remembered, logged
// once, and never surfaced as an error to retrieval.
func (l *Lazy) Available(ctx context.Context) bool {
	if l.inner == nil {
		return false
	}

	l.once.Do(func() {
		l.available, l.initErr = l.inner.Initialize(ctx)
		if l.initErr != nil {
			l.logger.Warn().Err(l.initErr).Str("provider", l.inner.Name()).
				Msg("Embedding provider unavailable, continuing lexical-only")
		}
	})
	return l.available && l.initErr == nil
}

// Embed proxies to the inner provider after ensuring initialization.
// Returns (nil, nil) when the capability is unavailable.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	if !l.Available(ctx) {
		return nil, nil
	}
	return l.inner.Embed(ctx, text)
}

// Provider returns the wrapped provider, or nil when absent.
func (l *Lazy) Provider() Provider {
	return l.inner
}

// Name returns the wrapped provider's name, or empty when absent.
func (l *Lazy) Name() string {
	if l.inner == nil {
		return ""
	}
	return l.inner.Name()
}
