// Package errors provides sentinel errors for the lastword application.
package errors

import "errors"

// Configuration errors
var (
	// ErrNotInitialized is returned when no configuration file exists yet.
	ErrNotInitialized = errors.New("lastword not initialized")

	// ErrConfigurationMissing is returned when required configuration is absent.
	// Fatal to the invocation; no state is mutated.
	ErrConfigurationMissing = errors.New("required configuration missing")
)

// Credential errors
var (
	// ErrUnauthorized is returned for a bad or missing invocation or check-in credential.
	ErrUnauthorized = errors.New("unauthorized")
)

// Check-in link errors
var (
	// ErrLinkExpired is returned when a check-in link is used after its expiry.
	ErrLinkExpired = errors.New("check-in link expired")

	// ErrLinkMalformed is returned when a check-in link carries no usable expiry.
	ErrLinkMalformed = errors.New("check-in link malformed")
)

// Collaborator errors
var (
	// ErrStoreUnavailable is returned when the state store cannot be read or written.
	ErrStoreUnavailable = errors.New("state store unavailable")

	// ErrDispatchFailed is returned when a notification could not be delivered.
	ErrDispatchFailed = errors.New("notification dispatch failed")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
