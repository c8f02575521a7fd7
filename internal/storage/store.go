// Package storage persists the two scalars the dead man's switch depends on:
// the last check-in time and the terminal send counter.
//
// Values are stored as decimal strings under fixed keys so any key-value
// backend can hold them. Backends that can increment atomically implement
// Incrementer; the others fall back to read-modify-write.
package storage

import (
	"context"
	"fmt"
	"strconv"

	apperrors "github.com/lcrostarosa/lastword/internal/errors"
)

// Keys of the persisted state
const (
	KeyLastActive     = "last_active_timestamp"
	KeyFinalSentCount = "final_email_sent_count"
)

// Store is a string key-value store. Get reports ok=false for an absent key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Backend() string
	Close() error
}

// Incrementer is implemented by stores with an atomic integer increment
type Incrementer interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// Pinger is implemented by stores that can check their connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// LastActive reads the last check-in time in epoch ms. nil means the switch
// was never activated.
func LastActive(ctx context.Context, s Store) (*int64, error) {
	raw, ok, err := s.Get(ctx, KeyLastActive)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt %s value %q", apperrors.ErrStoreUnavailable, KeyLastActive, raw)
	}
	return &v, nil
}

// SetLastActive records a check-in at the given epoch ms
func SetLastActive(ctx context.Context, s Store, ms int64) error {
	return s.Set(ctx, KeyLastActive, strconv.FormatInt(ms, 10))
}

// FinalCount reads how many terminal sends have happened. Absent reads as 0.
func FinalCount(ctx context.Context, s Store) (int, error) {
	raw, ok, err := s.Get(ctx, KeyFinalSentCount)
	if err != nil {
		return 0, err
	}
	if !ok || raw == "" {
		return 0, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: corrupt %s value %q", apperrors.ErrStoreUnavailable, KeyFinalSentCount, raw)
	}
	return v, nil
}

// IncrFinalCount adds one to the terminal send counter and returns the new value
func IncrFinalCount(ctx context.Context, s Store) (int, error) {
	v, err := Incr(ctx, s, KeyFinalSentCount)
	return int(v), err
}

// Incr increments an integer value, atomically when the store supports it
func Incr(ctx context.Context, s Store, key string) (int64, error) {
	if inc, ok := s.(Incrementer); ok {
		return inc.Incr(ctx, key)
	}

	var current int64
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if ok && raw != "" {
		current, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: corrupt %s value %q", apperrors.ErrStoreUnavailable, key, raw)
		}
	}
	next := current + 1
	if err := s.Set(ctx, key, strconv.FormatInt(next, 10)); err != nil {
		return 0, err
	}
	return next, nil
}

// SetFinalCount overwrites the terminal send counter
func SetFinalCount(ctx context.Context, s Store, n int) error {
	return s.Set(ctx, KeyFinalSentCount, strconv.Itoa(n))
}

// ResetFinalCount sets the terminal send counter back to 0
func ResetFinalCount(ctx context.Context, s Store) error {
	return s.Set(ctx, KeyFinalSentCount, "0")
}

func unavailable(backend, op, key string, err error) error {
	if key == "" {
		return fmt.Errorf("%w: %s %s: %v", apperrors.ErrStoreUnavailable, backend, op, err)
	}
	return fmt.Errorf("%w: %s %s %s: %v", apperrors.ErrStoreUnavailable, backend, op, key, err)
}
