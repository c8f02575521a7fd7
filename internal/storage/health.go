package storage

import (
	"context"

	apperrors "github.com/lcrostarosa/lastword/internal/errors"
)

// Health describes the store backing the switch. It is served by the status
// endpoint, so Reason never carries raw error text.
type Health struct {
	Backend  string `json:"backend"`
	Healthy  bool   `json:"healthy"`
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

type healthReporter interface {
	Health(ctx context.Context) Health
}

// CheckHealth pings the store when it supports it
func CheckHealth(ctx context.Context, s Store) Health {
	if s == nil {
		return Health{Reason: "no store configured"}
	}
	if hr, ok := s.(healthReporter); ok {
		return hr.Health(ctx)
	}

	h := Health{Backend: s.Backend(), Healthy: true}
	if p, ok := s.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			h.Healthy = false
			h.Reason = apperrors.SanitizeError(err)
		}
	}
	return h
}
