package service

import (
	"time"

	"go.uber.org/multierr"

	apperrors "github.com/lcrostarosa/lastword/internal/errors"
	"github.com/lcrostarosa/lastword/internal/storage"
)

// PhaseStatus is the result of one phase of a check
type PhaseStatus string

const (
	StatusSent    PhaseStatus = "sent"
	StatusSkipped PhaseStatus = "skipped"
	StatusError   PhaseStatus = "error"
)

// Skip reasons
const (
	ReasonNotConfigured = "not_configured"
	ReasonOverdue       = "overdue"
	ReasonLimitReached  = "limit_reached"
	ReasonNotActivated  = "not_activated"
	ReasonStillActive   = "still_active"
)

// Outcome summarises a whole run
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// Run kinds
const (
	KindDaily      = "daily"
	KindReminder   = "reminder"
	KindInactivity = "inactivity"
)

// PhaseResult describes what one phase did
type PhaseResult struct {
	Status             PhaseStatus `json:"status"`
	Reason             string      `json:"reason,omitempty"`
	Provider           string      `json:"provider,omitempty"`
	MessageID          string      `json:"message_id,omitempty"`
	RemainingMs        *int64      `json:"time_remaining_ms,omitempty"`
	RemainingFormatted string      `json:"time_remaining_formatted,omitempty"`
	OverdueMs          *int64      `json:"overdue_ms,omitempty"`
	SentCount          *int        `json:"sent_count,omitempty"`
	Error              string      `json:"error,omitempty"`
}

func skipped(reason string) *PhaseResult {
	return &PhaseResult{Status: StatusSkipped, Reason: reason}
}

func failed(err error) *PhaseResult {
	return &PhaseResult{Status: StatusError, Error: err.Error()}
}

func (p *PhaseResult) withRemaining(ms int64, formatted string) *PhaseResult {
	p.RemainingMs = &ms
	p.RemainingFormatted = formatted
	return p
}

func (p *PhaseResult) withCount(n int) *PhaseResult {
	p.SentCount = &n
	return p
}

// Report is the result of a scheduled check
type Report struct {
	RunID     string         `json:"run_id"`
	Kind      string         `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Reminder  *PhaseResult   `json:"reminder,omitempty"`
	Terminal  *PhaseResult   `json:"terminal,omitempty"`
	Errors    []string       `json:"errors"`
	Outcome   Outcome        `json:"outcome"`
	Store     storage.Health `json:"store"`

	errs []error
}

func (r *Report) addError(err error) {
	if err == nil {
		return
	}
	r.errs = append(r.errs, err)
	// the report leaves the process, keep credentials and addresses out of it
	r.Errors = append(r.Errors, apperrors.SanitizeError(err))
}

// Err combines every error collected during the run
func (r *Report) Err() error {
	return multierr.Combine(r.errs...)
}

// finalize classifies the run. It is a failure only when every phase that
// actually ran ended in error.
func (r *Report) finalize() {
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if len(r.errs) == 0 {
		r.Outcome = OutcomeSuccess
		return
	}

	executed, errored := 0, 0
	for _, p := range []*PhaseResult{r.Reminder, r.Terminal} {
		if p == nil || p.Status == StatusSkipped {
			continue
		}
		executed++
		if p.Status == StatusError {
			errored++
		}
	}

	if executed > 0 && errored == executed {
		r.Outcome = OutcomeFailure
		return
	}
	r.Outcome = OutcomePartial
}
