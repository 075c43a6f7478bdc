package operation

import (
	"context"

	"github.com/vk/gridcomp/internal/config"
)

type qualityKey struct{}

// WithQuality returns a context carrying the evaluation quality.
func WithQuality(ctx context.Context, q config.Quality) context.Context {
	return context.WithValue(ctx, qualityKey{}, q)
}

// QualityFromContext returns the quality stored by WithQuality, or
// QualityHigh when none is set.
func QualityFromContext(ctx context.Context) config.Quality {
	if q, ok := ctx.Value(qualityKey{}).(config.Quality); ok {
		return q
	}
	return config.QualityHigh
}
