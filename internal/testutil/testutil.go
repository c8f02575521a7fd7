// Package testutil provides shared test fixtures for lastword tests.
// It reduces duplication across test files by providing common patterns for:
// - a fake clock pinned to a fixed epoch
// - configuration directories built with a fluent builder
// - a dispatcher that records every message instead of delivering it
// - seeding the state store a configuration points at
package testutil

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Epoch is the fixed "now" fixtures start from, in epoch milliseconds
const Epoch int64 = 1_700_000_000_000

// Day is one day in milliseconds
const Day int64 = 24 * 60 * 60 * 1000

// NewClock returns a fake clock set to Epoch
func NewClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.UnixMilli(Epoch))
}

// DaysAgo returns the epoch milliseconds n days before Epoch
func DaysAgo(n int) int64 {
	return Epoch - int64(n)*Day
}
