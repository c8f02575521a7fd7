// Package runner provides an interceptor-based command execution framework for CLI commands.
// It mirrors the pattern used by HTTP middleware, providing consistent wrapping
// semantics for CLI command handlers.
package runner

import (
	"fmt"

	apperrors "github.com/lcrostarosa/lastword/internal/errors"
)

// Standard errors returned by interceptors
var (
	// ErrNotInitialized is returned when no configuration was found
	ErrNotInitialized = fmt.Errorf("%w - run 'lastword init' or set KEEPALIVE_SECRET", apperrors.ErrNotInitialized)
)
