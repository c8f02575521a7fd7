package service

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/lcrostarosa/lastword/internal/emergency"
	apperrors "github.com/lcrostarosa/lastword/internal/errors"
	"github.com/lcrostarosa/lastword/internal/logging"
	"github.com/lcrostarosa/lastword/internal/metrics"
	"github.com/lcrostarosa/lastword/internal/storage"
)

// CheckInOutcome is the result category of a check-in
type CheckInOutcome string

const (
	CheckInSuccess      CheckInOutcome = "success"
	CheckInUnauthorized CheckInOutcome = "unauthorized"
	CheckInExpired      CheckInOutcome = "expired"
	CheckInMalformed    CheckInOutcome = "malformed"
	CheckInError        CheckInOutcome = "error"
)

// CheckInResult describes a check-in attempt. Timestamp is set on success;
// ExpiresAt and CurrentTime are set when the link expired.
type CheckInResult struct {
	Outcome     CheckInOutcome `json:"status"`
	Timestamp   int64          `json:"timestamp,omitempty"`
	ExpiresAt   int64          `json:"expires_at,omitempty"`
	CurrentTime int64          `json:"current_time,omitempty"`
	Message     string         `json:"message"`
}

// Err maps the outcome to a sentinel error, nil on success
func (r CheckInResult) Err() error {
	switch r.Outcome {
	case CheckInSuccess:
		return nil
	case CheckInUnauthorized:
		return apperrors.ErrUnauthorized
	case CheckInExpired:
		return apperrors.ErrLinkExpired
	case CheckInMalformed:
		return apperrors.ErrLinkMalformed
	default:
		return apperrors.ErrStoreUnavailable
	}
}

// CheckInService validates check-in links and records activity
type CheckInService struct {
	secret   string
	store    storage.Store
	clock    clockwork.Clock
	recorder metrics.Recorder
}

// NewCheckInService creates a check-in handler for the configured secret
func NewCheckInService(secret string, store storage.Store, options ...Option) *CheckInService {
	d := applyOptions(options)
	return &CheckInService{secret: secret, store: store, clock: d.clock, recorder: d.recorder}
}

// HandleCheckIn validates the presented link and, when it is valid, marks the
// owner active and clears the terminal send counter. Nothing is written for
// any other outcome, and repeating a valid check-in is harmless.
func (s *CheckInService) HandleCheckIn(ctx context.Context, secret, expiry string) CheckInResult {
	now := s.clock.Now().UnixMilli()

	result := s.handle(ctx, secret, expiry, now)
	s.recorder.IncCheckIn(string(result.Outcome))
	return result
}

func (s *CheckInService) handle(ctx context.Context, secret, expiry string, now int64) CheckInResult {
	switch emergency.ValidateLink(secret, expiry, now, s.secret) {
	case emergency.LinkUnauthorized:
		logging.Warn("Check-in rejected: bad secret")
		return CheckInResult{Outcome: CheckInUnauthorized, Message: "invalid check-in credential"}
	case emergency.LinkMalformed:
		return CheckInResult{Outcome: CheckInMalformed, Message: "check-in link is missing a valid expiry"}
	case emergency.LinkExpired:
		expiresAt, _ := emergency.ParseExpiry(expiry)
		logging.Info("Check-in rejected: link expired", logging.Int64("expires_at", expiresAt))
		return CheckInResult{
			Outcome:     CheckInExpired,
			ExpiresAt:   expiresAt,
			CurrentTime: now,
			Message:     "check-in link has expired, use the link from your latest reminder",
		}
	}

	if err := s.Record(ctx, now); err != nil {
		logging.Error("Check-in could not be recorded", logging.Err(err))
		return CheckInResult{Outcome: CheckInError, Message: apperrors.GenericError("check-in")}
	}

	logging.Info("Check-in recorded", logging.Int64("timestamp", now))
	return CheckInResult{Outcome: CheckInSuccess, Timestamp: now, Message: "check-in recorded"}
}

// Record marks the owner active at now without link validation. Used by the
// heartbeat command where the operator is already trusted.
func (s *CheckInService) Record(ctx context.Context, now int64) error {
	if err := storage.SetLastActive(ctx, s.store, now); err != nil {
		return fmt.Errorf("record last active: %w", err)
	}
	if err := storage.ResetFinalCount(ctx, s.store); err != nil {
		return fmt.Errorf("reset send count: %w", err)
	}
	s.recorder.SetLastActive(now)
	s.recorder.SetFinalSendCount(0)
	return nil
}

// Heartbeat records a check-in at the current time
func (s *CheckInService) Heartbeat(ctx context.Context) (int64, error) {
	now := s.clock.Now().UnixMilli()
	if err := s.Record(ctx, now); err != nil {
		return 0, err
	}
	s.recorder.IncCheckIn(string(CheckInSuccess))
	logging.Info("Heartbeat recorded", logging.Int64("timestamp", now))
	return now, nil
}

// MintLink creates a fresh check-in link for the current time
func (s *CheckInService) MintLink(cfg *emergency.DeadManSwitchConfig) emergency.Link {
	return emergency.MintLink(s.secret, s.clock.Now(), cfg.LinkValidity())
}
