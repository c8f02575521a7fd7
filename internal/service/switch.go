package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/lcrostarosa/lastword/internal/emergency"
	apperrors "github.com/lcrostarosa/lastword/internal/errors"
	"github.com/lcrostarosa/lastword/internal/logging"
	"github.com/lcrostarosa/lastword/internal/metrics"
	"github.com/lcrostarosa/lastword/internal/notify"
	"github.com/lcrostarosa/lastword/internal/storage"
)

// Phase names used in logs and metrics
const (
	PhaseReminder = "reminder"
	PhaseTerminal = "terminal"
)

// SwitchService runs the scheduled checks
type SwitchService struct {
	opts       Options
	store      storage.Store
	dispatcher notify.Dispatcher
	clock      clockwork.Clock
	recorder   metrics.Recorder

	// serialises overlapping runs within this process
	mu sync.Mutex

	// a terminal send whose bookkeeping never reached the store
	unrecorded *unrecordedSend
}

// unrecordedSend is the state a terminal send should have written.
// resetAt is zero when the timer reset was written or not wanted.
type unrecordedSend struct {
	count   int
	resetAt int64
}

// Option customises a service
type Option func(*serviceDeps)

type serviceDeps struct {
	clock    clockwork.Clock
	recorder metrics.Recorder
}

// WithClock injects the time source
func WithClock(c clockwork.Clock) Option {
	return func(d *serviceDeps) { d.clock = c }
}

// WithRecorder injects a metrics recorder
func WithRecorder(r metrics.Recorder) Option {
	return func(d *serviceDeps) { d.recorder = r }
}

func applyOptions(opts []Option) serviceDeps {
	d := serviceDeps{clock: clockwork.NewRealClock(), recorder: metrics.NoopRecorder{}}
	for _, o := range opts {
		o(&d)
	}
	return d
}

// NewSwitchService creates the orchestrator
func NewSwitchService(opts Options, store storage.Store, dispatcher notify.Dispatcher, options ...Option) *SwitchService {
	d := applyOptions(options)
	return &SwitchService{
		opts:       opts,
		store:      store,
		dispatcher: dispatcher,
		clock:      d.clock,
		recorder:   d.recorder,
	}
}

// RunDailyCheck runs the reminder phase and then the terminal phase. A
// failure in one phase never prevents the other.
func (s *SwitchService) RunDailyCheck(ctx context.Context) *Report {
	return s.run(ctx, KindDaily, phases{reminder: true, terminal: true})
}

// RunReminderCheck runs the reminder phase only. It never reads or writes
// the terminal send counter.
func (s *SwitchService) RunReminderCheck(ctx context.Context) *Report {
	return s.run(ctx, KindReminder, phases{reminder: true})
}

// RunInactivityCheck runs the terminal phase only
func (s *SwitchService) RunInactivityCheck(ctx context.Context) *Report {
	return s.run(ctx, KindInactivity, phases{terminal: true})
}

// phases selects what a run does
type phases struct {
	reminder bool
	terminal bool
}

func (s *SwitchService) run(ctx context.Context, kind string, p phases) *Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.clock.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		Kind:      kind,
		Timestamp: start.UTC(),
	}
	log := logging.L().With(logging.String("run_id", report.RunID), logging.String("kind", kind))

	if p.reminder {
		report.Reminder = s.runReminder(ctx, start, report)
		s.recorder.IncPhase(PhaseReminder, phaseLabel(report.Reminder))
	}
	if p.terminal {
		report.Terminal = s.runTerminal(ctx, start, report)
		s.recorder.IncPhase(PhaseTerminal, phaseLabel(report.Terminal))
	}

	report.Store = storage.CheckHealth(ctx, s.store)
	s.recorder.SetStoreDegraded(report.Store.Degraded)

	report.finalize()
	s.recorder.ObserveRun(kind, string(report.Outcome), s.clock.Since(start))

	log.Info("Check complete",
		logging.String("outcome", string(report.Outcome)),
		logging.Int("errors", len(report.Errors)))
	return report
}

func phaseLabel(p *PhaseResult) string {
	if p.Reason != "" {
		return string(p.Status) + ":" + p.Reason
	}
	return string(p.Status)
}

func (s *SwitchService) runReminder(ctx context.Context, now time.Time, report *Report) *PhaseResult {
	if !s.opts.ReminderConfigured() {
		logging.Debug("Reminder not configured, skipping")
		return skipped(ReasonNotConfigured)
	}

	var decision emergency.Decision
	lastActive, err := storage.LastActive(ctx, s.store)
	if err != nil {
		// a reminder is harmless, so send it without the remaining time
		report.addError(fmt.Errorf("reminder: read last active: %w", err))
		logging.Warn("Reminder state unreadable, sending degraded reminder", logging.Err(err))
	} else {
		decision = emergency.Evaluate(now.UnixMilli(), lastActive, s.opts.Switch.Threshold())
		if decision.IsInactive() {
			logging.Info("Owner overdue, skipping reminder",
				logging.Duration("overdue", decision.OverdueDuration()))
			return skipped(ReasonOverdue)
		}
	}

	link := emergency.MintLink(s.opts.CheckInSecret, now, s.opts.Switch.LinkValidity())
	linkURL, err := link.URL(s.opts.PublicBaseURL)
	if err != nil {
		err = fmt.Errorf("reminder: %w: %v", apperrors.ErrConfigurationMissing, err)
		report.addError(err)
		return failed(err)
	}

	remaining := ""
	if decision.IsActive() {
		remaining = emergency.FormatRemaining(decision.Remaining)
	}

	msg, err := notify.ComposeReminder(notify.Reminder{
		From:      s.opts.Sender,
		To:        s.opts.OwnerEmail,
		Subject:   s.opts.ReminderSubject,
		Link:      linkURL,
		ExpiresAt: link.Expiry(),
		Remaining: remaining,
	})
	if err != nil {
		err = fmt.Errorf("reminder: %w", err)
		report.addError(err)
		return failed(err)
	}

	receipt, err := s.dispatcher.Send(ctx, msg)
	if err != nil {
		err = fmt.Errorf("reminder: %w", err)
		report.addError(err)
		logging.Error("Reminder dispatch failed", logging.Err(err))
		return failed(err)
	}

	logging.Info("Reminder sent",
		logging.String("provider", receipt.Provider),
		logging.String("message_id", receipt.MessageID),
		logging.String("state", string(decision.State)))

	result := &PhaseResult{Status: StatusSent, Provider: receipt.Provider, MessageID: receipt.MessageID}
	if decision.IsActive() {
		result.withRemaining(decision.Remaining, remaining)
	}
	return result
}

func (s *SwitchService) runTerminal(ctx context.Context, now time.Time, report *Report) *PhaseResult {
	if !s.opts.TerminalConfigured() {
		logging.Debug("Terminal notification not configured, skipping")
		return skipped(ReasonNotConfigured)
	}

	if err := s.settleUnrecorded(ctx); err != nil {
		err = fmt.Errorf("terminal: earlier send not recorded, refusing to resend: %w", err)
		report.addError(err)
		logging.Error("Terminal phase blocked", logging.Err(err))
		return failed(err)
	}

	// never send on unknown state
	count, err := storage.FinalCount(ctx, s.store)
	if err != nil {
		err = fmt.Errorf("terminal: read send count: %w", err)
		report.addError(err)
		return failed(err)
	}
	s.recorder.SetFinalSendCount(count)

	limit := s.opts.Switch.Limit()
	if count >= limit {
		logging.Info("Terminal send limit reached", logging.Int("count", count), logging.Int("limit", limit))
		return skipped(ReasonLimitReached).withCount(count)
	}

	lastActive, err := storage.LastActive(ctx, s.store)
	if err != nil {
		err = fmt.Errorf("terminal: read last active: %w", err)
		report.addError(err)
		return failed(err)
	}

	decision := emergency.Evaluate(now.UnixMilli(), lastActive, s.opts.Switch.Threshold())
	switch decision.State {
	case emergency.StateNotActivated:
		return skipped(ReasonNotActivated)
	case emergency.StateActive:
		s.recorder.SetLastActive(*lastActive)
		return skipped(ReasonStillActive).withRemaining(decision.Remaining, emergency.FormatRemaining(decision.Remaining))
	}

	if !notify.CanAddress(s.dispatcher) {
		err := fmt.Errorf("terminal: %w: provider %s cannot deliver to beneficiaries",
			apperrors.ErrConfigurationMissing, s.dispatcher.Name())
		report.addError(err)
		logging.Error("Terminal dispatch impossible", logging.Err(err))
		return failed(err)
	}

	logging.Warn("Owner inactive, sending terminal notification",
		logging.Duration("overdue", decision.OverdueDuration()),
		logging.Int("previous_sends", count))

	msg, err := notify.ComposeTerminal(notify.Terminal{
		From:          s.opts.Sender,
		To:            s.opts.recipients(),
		Subject:       s.opts.TerminalSubject,
		FarewellHTML:  s.opts.FarewellHTML,
		ImportantHTML: s.opts.ImportantInfoHTML,
		SentAt:        now,
	})
	if err != nil {
		err = fmt.Errorf("terminal: %w", err)
		report.addError(err)
		return failed(err)
	}

	receipt, err := s.dispatcher.Send(ctx, msg)
	if err != nil {
		err = fmt.Errorf("terminal: %w", err)
		report.addError(err)
		logging.Error("Terminal dispatch failed", logging.Err(err))
		return failed(err)
	}

	result := &PhaseResult{Status: StatusSent, Provider: receipt.Provider, MessageID: receipt.MessageID}
	overdue := decision.Overdue
	result.OverdueMs = &overdue

	// the message is out; state write failures are reported but keep "sent"
	sent, countErr := storage.IncrFinalCount(ctx, s.store)
	if countErr != nil {
		report.addError(fmt.Errorf("terminal: record send count: %w", countErr))
		sent = count + 1
	}
	result.withCount(sent)
	s.recorder.SetFinalSendCount(sent)

	var resetAt int64
	if s.opts.Switch.ResetsTimer() {
		if err := storage.SetLastActive(ctx, s.store, now.UnixMilli()); err != nil {
			report.addError(fmt.Errorf("terminal: reset last active: %w", err))
			resetAt = now.UnixMilli()
		} else {
			s.recorder.SetLastActive(now.UnixMilli())
		}
	}

	// without the count the next run would see the old state and send again
	if countErr != nil {
		s.unrecorded = &unrecordedSend{count: sent, resetAt: resetAt}
		logging.Error("Terminal send not recorded, blocking resends until the store accepts it",
			logging.Int("sent_count", sent))
	}

	logging.Info("Terminal notification sent",
		logging.String("provider", receipt.Provider),
		logging.String("message_id", receipt.MessageID),
		logging.Int("sent_count", sent),
		logging.Int("recipients", len(msg.To)))
	return result
}

// settleUnrecorded writes the state of an earlier send that the store
// rejected. It never lowers the stored count or moves last activity back.
func (s *SwitchService) settleUnrecorded(ctx context.Context) error {
	p := s.unrecorded
	if p == nil {
		return nil
	}

	stored, err := storage.FinalCount(ctx, s.store)
	if err != nil {
		return err
	}
	if stored < p.count {
		if err := storage.SetFinalCount(ctx, s.store, p.count); err != nil {
			return err
		}
	}

	if p.resetAt > 0 {
		last, err := storage.LastActive(ctx, s.store)
		if err != nil {
			return err
		}
		if last == nil || *last < p.resetAt {
			if err := storage.SetLastActive(ctx, s.store, p.resetAt); err != nil {
				return err
			}
		}
	}

	logging.Info("Recorded earlier terminal send", logging.Int("sent_count", p.count))
	s.unrecorded = nil
	return nil
}
