package emergency

import "time"

// MillisPerDay converts inactivity days to the millisecond threshold.
const MillisPerDay int64 = 86_400_000

// Defaults applied when the corresponding config field is unset.
const (
	DefaultInactivityDays    = 30
	DefaultFinalSendLimit    = 3
	DefaultLinkValidityHours = 24
)

// State is the outcome category of an inactivity evaluation
type State string

const (
	StateNotActivated State = "not_activated" // no check-in ever recorded
	StateActive       State = "active"        // within the threshold
	StateInactive     State = "inactive"      // threshold exceeded
)

// Decision is the result of evaluating the inactivity timer.
// Remaining is set only for StateActive, Overdue only for StateInactive.
type Decision struct {
	State     State `json:"state"`
	Remaining int64 `json:"remaining_ms,omitempty"`
	Overdue   int64 `json:"overdue_ms,omitempty"`
}

// Evaluate decides whether the owner is still active. All arithmetic is in
// integer milliseconds; lastActive == nil means the switch was never armed.
func Evaluate(now int64, lastActive *int64, thresholdMs int64) Decision {
	if lastActive == nil {
		return Decision{State: StateNotActivated}
	}

	elapsed := now - *lastActive
	if elapsed <= thresholdMs {
		return Decision{State: StateActive, Remaining: thresholdMs - elapsed}
	}
	return Decision{State: StateInactive, Overdue: elapsed - thresholdMs}
}

// ThresholdMs converts whole inactivity days to milliseconds.
func ThresholdMs(days int) int64 {
	return int64(days) * MillisPerDay
}

// IsActive returns true for StateActive
func (d Decision) IsActive() bool { return d.State == StateActive }

// IsInactive returns true for StateInactive
func (d Decision) IsInactive() bool { return d.State == StateInactive }

// RemainingDuration returns the time left before the switch fires
func (d Decision) RemainingDuration() time.Duration {
	return time.Duration(d.Remaining) * time.Millisecond
}

// OverdueDuration returns how far past the threshold the owner is
func (d Decision) OverdueDuration() time.Duration {
	return time.Duration(d.Overdue) * time.Millisecond
}

// DeadManSwitchConfig defines the inactivity threshold and terminal-send policy
type DeadManSwitchConfig struct {
	InactivityDays    int `json:"inactivity_days" yaml:"inactivity_days"`
	FinalSendLimit    int `json:"final_send_limit,omitempty" yaml:"final_send_limit,omitempty"`
	LinkValidityHours int `json:"link_validity_hours,omitempty" yaml:"link_validity_hours,omitempty"`

	// ResetTimerOnFinalSend moves last activity to "now" after each successful
	// terminal send, so the next resend needs a full threshold to elapse.
	// nil means true.
	ResetTimerOnFinalSend *bool `json:"reset_timer_on_final_send,omitempty" yaml:"reset_timer_on_final_send,omitempty"`
}

// HasThreshold reports whether an inactivity threshold was configured (nil-safe)
func (d *DeadManSwitchConfig) HasThreshold() bool {
	return d != nil && d.InactivityDays > 0
}

// GetInactivityDays returns the configured days or the default (nil-safe)
func (d *DeadManSwitchConfig) GetInactivityDays() int {
	if d == nil || d.InactivityDays <= 0 {
		return DefaultInactivityDays
	}
	return d.InactivityDays
}

// Threshold returns the inactivity threshold in milliseconds (nil-safe)
func (d *DeadManSwitchConfig) Threshold() int64 {
	return ThresholdMs(d.GetInactivityDays())
}

// Limit returns the terminal-send ceiling (nil-safe)
func (d *DeadManSwitchConfig) Limit() int {
	if d == nil || d.FinalSendLimit <= 0 {
		return DefaultFinalSendLimit
	}
	return d.FinalSendLimit
}

// LinkValidity returns how long a minted check-in link stays valid (nil-safe)
func (d *DeadManSwitchConfig) LinkValidity() time.Duration {
	if d == nil || d.LinkValidityHours <= 0 {
		return DefaultLinkValidityHours * time.Hour
	}
	return time.Duration(d.LinkValidityHours) * time.Hour
}

// ResetsTimer reports whether a terminal send resets the inactivity timer (nil-safe)
func (d *DeadManSwitchConfig) ResetsTimer() bool {
	if d == nil || d.ResetTimerOnFinalSend == nil {
		return true
	}
	return *d.ResetTimerOnFinalSend
}
