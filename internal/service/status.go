package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lcrostarosa/lastword/internal/emergency"
	apperrors "github.com/lcrostarosa/lastword/internal/errors"
	"github.com/lcrostarosa/lastword/internal/storage"
)

// StatusService reports the current switch state without side effects
type StatusService struct {
	cfg   *emergency.DeadManSwitchConfig
	store storage.Store
	clock clockwork.Clock
}

// NewStatusService creates a status service
func NewStatusService(cfg *emergency.DeadManSwitchConfig, store storage.Store, options ...Option) *StatusService {
	d := applyOptions(options)
	return &StatusService{cfg: cfg, store: store, clock: d.clock}
}

// SwitchStatus is a snapshot of the switch
type SwitchStatus struct {
	Now                time.Time          `json:"now"`
	LastActive         *time.Time         `json:"last_active,omitempty"`
	InactivityDays     int                `json:"inactivity_days"`
	ThresholdSet       bool               `json:"threshold_configured"`
	Decision           emergency.Decision `json:"decision"`
	RemainingFormatted string             `json:"time_remaining_formatted,omitempty"`
	FinalSendCount     int                `json:"final_send_count"`
	FinalSendLimit     int                `json:"final_send_limit"`
	ResetTimerOnSend   bool               `json:"reset_timer_on_final_send"`
	Store              storage.Health     `json:"store"`
	Error              string             `json:"error,omitempty"`
}

// GetStatus reads the store and evaluates the timer. Read errors are
// reported in the snapshot rather than returned.
func (s *StatusService) GetStatus(ctx context.Context) *SwitchStatus {
	now := s.clock.Now()
	status := &SwitchStatus{
		Now:              now.UTC(),
		InactivityDays:   s.cfg.GetInactivityDays(),
		ThresholdSet:     s.cfg.HasThreshold(),
		FinalSendLimit:   s.cfg.Limit(),
		ResetTimerOnSend: s.cfg.ResetsTimer(),
		Store:            storage.CheckHealth(ctx, s.store),
	}

	lastActive, err := storage.LastActive(ctx, s.store)
	if err != nil {
		status.Error = apperrors.SanitizeError(err)
		return status
	}
	if lastActive != nil {
		t := time.UnixMilli(*lastActive).UTC()
		status.LastActive = &t
	}

	status.Decision = emergency.Evaluate(now.UnixMilli(), lastActive, s.cfg.Threshold())
	if status.Decision.IsActive() {
		status.RemainingFormatted = emergency.FormatRemaining(status.Decision.Remaining)
	}

	count, err := storage.FinalCount(ctx, s.store)
	if err != nil {
		status.Error = apperrors.SanitizeError(err)
		return status
	}
	status.FinalSendCount = count
	return status
}
