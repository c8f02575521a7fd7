package storage

import (
	"context"

	apperrors "github.com/lcrostarosa/lastword/internal/errors"
)

// DegradedStore wraps the in-memory fallback used when the configured backend
// could not be opened. It behaves like its inner store but reports Degraded.
type DegradedStore struct {
	Store
	wanted string
	cause  error
}

// NewDegraded wraps inner, remembering which backend was wanted and why it failed
func NewDegraded(inner Store, wanted string, cause error) *DegradedStore {
	return &DegradedStore{Store: inner, wanted: wanted, cause: cause}
}

// Incr increments through the inner store
func (d *DegradedStore) Incr(ctx context.Context, key string) (int64, error) {
	return Incr(ctx, d.Store, key)
}

// Health reports the fallback as healthy but degraded
func (d *DegradedStore) Health(_ context.Context) Health {
	reason := "configured backend " + d.wanted + " unavailable"
	if d.cause != nil {
		reason += ": " + apperrors.SanitizeError(d.cause)
	}
	return Health{
		Backend:  d.Store.Backend(),
		Healthy:  true,
		Degraded: true,
		Reason:   reason,
	}
}
