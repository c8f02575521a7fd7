package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcrostarosa/lastword/internal/emergency"
	apperrors "github.com/lcrostarosa/lastword/internal/errors"
	"github.com/lcrostarosa/lastword/internal/notify"
	"github.com/lcrostarosa/lastword/internal/storage"
)

const day = emergency.MillisPerDay

var epoch = time.UnixMilli(1_700_000_000_000)

type faultyStore struct {
	*storage.MemoryStore
	failGet map[string]bool
	failSet map[string]bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		MemoryStore: storage.NewMemoryStore(),
		failGet:     map[string]bool{},
		failSet:     map[string]bool{},
	}
}

func (f *faultyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGet[key] {
		return "", false, fmt.Errorf("%w: get %s: boom", apperrors.ErrStoreUnavailable, key)
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *faultyStore) Set(ctx context.Context, key, value string) error {
	if f.failSet[key] {
		return fmt.Errorf("%w: set %s: boom", apperrors.ErrStoreUnavailable, key)
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *faultyStore) Incr(ctx context.Context, key string) (int64, error) {
	if f.failSet[key] {
		return 0, fmt.Errorf("%w: incr %s: boom", apperrors.ErrStoreUnavailable, key)
	}
	return f.MemoryStore.Incr(ctx, key)
}

type fakeDispatcher struct {
	fail map[notify.Kind]error
	sent []notify.Message
}

func (d *fakeDispatcher) Name() string { return "fake" }

func (d *fakeDispatcher) Send(_ context.Context, msg notify.Message) (notify.Receipt, error) {
	if err := d.fail[msg.Kind]; err != nil {
		return notify.Receipt{}, err
	}
	d.sent = append(d.sent, msg)
	return notify.Receipt{Provider: "fake", MessageID: fmt.Sprintf("msg-%d", len(d.sent))}, nil
}

func (d *fakeDispatcher) count(kind notify.Kind) int {
	n := 0
	for _, m := range d.sent {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

func fullOptions() Options {
	return Options{
		Switch:            &emergency.DeadManSwitchConfig{InactivityDays: 30},
		CheckInSecret:     "check-in-secret",
		PublicBaseURL:     "https://switch.example.com",
		Sender:            "switch@example.com",
		OwnerEmail:        "owner@example.com",
		ReminderSubject:   "Still there?",
		Beneficiaries:     []string{"a@example.com", " b@example.com "},
		TerminalSubject:   "Goodbye",
		FarewellHTML:      "<p>farewell</p>",
		ImportantInfoHTML: "<p>info</p>",
	}
}

type harness struct {
	clock      *clockwork.FakeClock
	store      *faultyStore
	dispatcher *fakeDispatcher
	svc        *SwitchService
	checkIn    *CheckInService
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		clock:      clockwork.NewFakeClockAt(epoch),
		store:      newFaultyStore(),
		dispatcher: &fakeDispatcher{fail: map[notify.Kind]error{}},
	}
	h.svc = NewSwitchService(opts, h.store, h.dispatcher, WithClock(h.clock))
	h.checkIn = NewCheckInService(opts.CheckInSecret, h.store, WithClock(h.clock))
	return h
}

func (h *harness) setLastActive(t *testing.T, ms int64) {
	require.NoError(t, storage.SetLastActive(context.Background(), h.store, ms))
}

func (h *harness) lastActive(t *testing.T) *int64 {
	v, err := storage.LastActive(context.Background(), h.store.MemoryStore)
	require.NoError(t, err)
	return v
}

func (h *harness) count(t *testing.T) int {
	v, err := storage.FinalCount(context.Background(), h.store.MemoryStore)
	require.NoError(t, err)
	return v
}

func TestDailyCheckNotActivated(t *testing.T) {
	h := newHarness(t, fullOptions())

	report := h.svc.RunDailyCheck(context.Background())

	require.NotNil(t, report.Reminder)
	assert.Equal(t, StatusSent, report.Reminder.Status)
	assert.Nil(t, report.Reminder.RemainingMs, "no remaining time before activation")
	assert.Equal(t, "msg-1", report.Reminder.MessageID)

	assert.Equal(t, StatusSkipped, report.Terminal.Status)
	assert.Equal(t, ReasonNotActivated, report.Terminal.Reason)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Empty(t, report.Errors)
	assert.NoError(t, report.Err())

	assert.Nil(t, h.lastActive(t), "running a check never activates the switch")
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, KindDaily, report.Kind)
}

func TestDailyCheckStillActive(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.setLastActive(t, epoch.UnixMilli()-5*day)

	report := h.svc.RunDailyCheck(context.Background())

	assert.Equal(t, StatusSkipped, report.Terminal.Status)
	assert.Equal(t, ReasonStillActive, report.Terminal.Reason)
	require.NotNil(t, report.Terminal.RemainingMs)
	assert.Equal(t, 25*day, *report.Terminal.RemainingMs)
	assert.Equal(t, "25d 0h", report.Terminal.RemainingFormatted)

	assert.Equal(t, StatusSent, report.Reminder.Status)
	require.NotNil(t, report.Reminder.RemainingMs)
	assert.Equal(t, 25*day, *report.Reminder.RemainingMs)

	require.Len(t, h.dispatcher.sent, 1)
	reminder := h.dispatcher.sent[0]
	assert.Equal(t, []string{"owner@example.com"}, reminder.To)
	assert.Contains(t, reminder.Text, "25d 0h")

	secret, expiry, err := emergency.ParseLinkURL(reminder.Link)
	require.NoError(t, err)
	assert.Equal(t, "check-in-secret", secret)
	assert.Equal(t, fmt.Sprint(epoch.UnixMilli()+24*3600*1000), expiry)
}

func TestDailyCheckInactiveSendsTerminal(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.setLastActive(t, epoch.UnixMilli()-31*day)

	report := h.svc.RunDailyCheck(context.Background())

	assert.Equal(t, StatusSkipped, report.Reminder.Status)
	assert.Equal(t, ReasonOverdue, report.Reminder.Reason)

	assert.Equal(t, StatusSent, report.Terminal.Status)
	require.NotNil(t, report.Terminal.SentCount)
	assert.Equal(t, 1, *report.Terminal.SentCount)
	require.NotNil(t, report.Terminal.OverdueMs)
	assert.Equal(t, day, *report.Terminal.OverdueMs)
	assert.Equal(t, OutcomeSuccess, report.Outcome)

	assert.Equal(t, 1, h.count(t))
	require.NotNil(t, h.lastActive(t))
	assert.Equal(t, epoch.UnixMilli(), *h.lastActive(t), "timer reset to now")

	require.Equal(t, 1, h.dispatcher.count(notify.KindTerminal))
	terminal := h.dispatcher.sent[0]
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, terminal.To)
	assert.Equal(t, "Goodbye", terminal.Subject)
}

func TestTerminalCeiling(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.setLastActive(t, epoch.UnixMilli()-60*day)
	require.NoError(t, h.store.Set(context.Background(), storage.KeyFinalSentCount, "3"))

	report := h.svc.RunInactivityCheck(context.Background())

	assert.Equal(t, StatusSkipped, report.Terminal.Status)
	assert.Equal(t, ReasonLimitReached, report.Terminal.Reason)
	assert.Empty(t, h.dispatcher.sent)
	assert.Equal(t, 3, h.count(t))
}

func TestTerminalResendsWithoutReset(t *testing.T) {
	opts := fullOptions()
	off := false
	opts.Switch.ResetTimerOnFinalSend = &off
	h := newHarness(t, opts)
	h.setLastActive(t, epoch.UnixMilli()-31*day)

	for i := 1; i <= 5; i++ {
		report := h.svc.RunInactivityCheck(context.Background())
		if i <= 3 {
			assert.Equal(t, StatusSent, report.Terminal.Status, "run %d", i)
		} else {
			assert.Equal(t, ReasonLimitReached, report.Terminal.Reason, "run %d", i)
		}
		h.clock.Advance(24 * time.Hour)
	}

	assert.Equal(t, 3, h.dispatcher.count(notify.KindTerminal), "never more than the ceiling")
	assert.Equal(t, 3, h.count(t))
	assert.Equal(t, epoch.UnixMilli()-31*day, *h.lastActive(t), "timer untouched")
}

func TestTerminalResetDelaysResend(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.setLastActive(t, epoch.UnixMilli()-31*day)

	first := h.svc.RunInactivityCheck(context.Background())
	assert.Equal(t, StatusSent, first.Terminal.Status)

	h.clock.Advance(24 * time.Hour)
	second := h.svc.RunInactivityCheck(context.Background())
	assert.Equal(t, ReasonStillActive, second.Terminal.Reason)

	h.clock.Advance(30 * 24 * time.Hour)
	third := h.svc.RunInactivityCheck(context.Background())
	assert.Equal(t, StatusSent, third.Terminal.Status)
	assert.Equal(t, 2, *third.Terminal.SentCount)
}

func TestTerminalDispatchFailureLeavesState(t *testing.T) {
	h := newHarness(t, fullOptions())
	start := epoch.UnixMilli() - 31*day
	h.setLastActive(t, start)
	h.dispatcher.fail[notify.KindTerminal] = fmt.Errorf("%w: smtp down", apperrors.ErrDispatchFailed)

	report := h.svc.RunDailyCheck(context.Background())

	assert.Equal(t, StatusError, report.Terminal.Status)
	assert.Equal(t, OutcomeFailure, report.Outcome, "reminder skipped, terminal errored")
	assert.ErrorIs(t, report.Err(), apperrors.ErrDispatchFailed)
	assert.Equal(t, 0, h.count(t))
	assert.Equal(t, start, *h.lastActive(t))
}

func TestPhasesAreIsolated(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.setLastActive(t, epoch.UnixMilli()-5*day)
	h.dispatcher.fail[notify.KindReminder] = errors.New("reminder channel down")

	report := h.svc.RunDailyCheck(context.Background())

	assert.Equal(t, StatusError, report.Reminder.Status)
	assert.Equal(t, ReasonStillActive, report.Terminal.Reason, "terminal phase still ran")
	assert.Equal(t, OutcomeFailure, report.Outcome)
	assert.Len(t, report.Errors, 1)
}

func TestStoreReadFailure(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.setLastActive(t, epoch.UnixMilli()-31*day)
	h.store.failGet[storage.KeyLastActive] = true

	report := h.svc.RunDailyCheck(context.Background())

	assert.Equal(t, StatusSent, report.Reminder.Status, "degraded reminder is still sent")
	assert.Nil(t, report.Reminder.RemainingMs)
	assert.Equal(t, StatusError, report.Terminal.Status, "never send terminal on unknown state")
	assert.Equal(t, 0, h.dispatcher.count(notify.KindTerminal))
	assert.Equal(t, OutcomePartial, report.Outcome)
	assert.Len(t, report.Errors, 2)
	assert.ErrorIs(t, report.Err(), apperrors.ErrStoreUnavailable)
}

func TestCountReadFailure(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.setLastActive(t, epoch.UnixMilli()-31*day)
	h.store.failGet[storage.KeyFinalSentCount] = true

	report := h.svc.RunInactivityCheck(context.Background())

	assert.Equal(t, StatusError, report.Terminal.Status)
	assert.Empty(t, h.dispatcher.sent)
	assert.Equal(t, OutcomeFailure, report.Outcome)
}

func TestStoreWriteFailureAfterSend(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.setLastActive(t, epoch.UnixMilli()-31*day)
	h.store.failSet[storage.KeyFinalSentCount] = true
	h.store.failSet[storage.KeyLastActive] = true

	report := h.svc.RunInactivityCheck(context.Background())

	assert.Equal(t, StatusSent, report.Terminal.Status, "the message went out")
	assert.Equal(t, 1, *report.Terminal.SentCount)
	assert.Len(t, report.Errors, 2)
	assert.Equal(t, OutcomePartial, report.Outcome)
}

func TestUnrecordedSendBlocksResend(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.setLastActive(t, epoch.UnixMilli()-31*day)
	h.store.failSet[storage.KeyFinalSentCount] = true
	h.store.failSet[storage.KeyLastActive] = true

	first := h.svc.RunInactivityCheck(context.Background())
	require.Equal(t, StatusSent, first.Terminal.Status)
	sentAt := h.clock.Now().UnixMilli()

	h.clock.Advance(24 * time.Hour)
	second := h.svc.RunInactivityCheck(context.Background())
	assert.Equal(t, StatusError, second.Terminal.Status)
	assert.ErrorIs(t, second.Err(), apperrors.ErrStoreUnavailable)
	assert.Equal(t, OutcomeFailure, second.Outcome)
	assert.Equal(t, 1, h.dispatcher.count(notify.KindTerminal), "no second message while state is unknown")

	// the store recovers: the earlier send is written before anything else
	delete(h.store.failSet, storage.KeyFinalSentCount)
	delete(h.store.failSet, storage.KeyLastActive)
	h.clock.Advance(24 * time.Hour)
	third := h.svc.RunInactivityCheck(context.Background())

	assert.Equal(t, StatusSkipped, third.Terminal.Status)
	assert.Equal(t, ReasonStillActive, third.Terminal.Reason)
	assert.Equal(t, 1, h.count(t))
	require.NotNil(t, h.lastActive(t))
	assert.Equal(t, sentAt, *h.lastActive(t))
	assert.Equal(t, 1, h.dispatcher.count(notify.KindTerminal))
}

func TestUnrecordedSendKeepsNewerCheckIn(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.setLastActive(t, epoch.UnixMilli()-31*day)
	h.store.failSet[storage.KeyFinalSentCount] = true
	h.store.failSet[storage.KeyLastActive] = true

	h.svc.RunInactivityCheck(context.Background())

	delete(h.store.failSet, storage.KeyFinalSentCount)
	delete(h.store.failSet, storage.KeyLastActive)
	h.clock.Advance(2 * time.Hour)
	checkIn := h.clock.Now().UnixMilli()
	h.setLastActive(t, checkIn)

	report := h.svc.RunInactivityCheck(context.Background())

	assert.Equal(t, ReasonStillActive, report.Terminal.Reason)
	assert.Equal(t, checkIn, *h.lastActive(t))
	assert.Equal(t, 1, h.count(t))
}

func TestNotConfiguredPhasesSkip(t *testing.T) {
	h := newHarness(t, Options{Switch: &emergency.DeadManSwitchConfig{}})
	h.setLastActive(t, epoch.UnixMilli()-90*day)

	report := h.svc.RunDailyCheck(context.Background())

	assert.Equal(t, ReasonNotConfigured, report.Reminder.Reason)
	assert.Equal(t, ReasonNotConfigured, report.Terminal.Reason)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Empty(t, h.dispatcher.sent)
}

func TestTerminalNeedsThreshold(t *testing.T) {
	opts := fullOptions()
	opts.Switch = &emergency.DeadManSwitchConfig{}
	h := newHarness(t, opts)
	h.setLastActive(t, epoch.UnixMilli()-400*day)

	report := h.svc.RunInactivityCheck(context.Background())

	assert.Equal(t, StatusSkipped, report.Terminal.Status)
	assert.Equal(t, ReasonNotConfigured, report.Terminal.Reason)
	assert.Zero(t, h.dispatcher.count(notify.KindTerminal))
	assert.Zero(t, h.count(t))
}

// chatOnly is a dispatcher that ignores the recipient list
type chatOnly struct{ *fakeDispatcher }

func (chatOnly) AddressesRecipients() bool { return false }

func TestTerminalRefusesUnaddressableProvider(t *testing.T) {
	h := newHarness(t, fullOptions())
	chat := chatOnly{h.dispatcher}
	h.svc = NewSwitchService(fullOptions(), h.store, chat, WithClock(h.clock))
	h.setLastActive(t, epoch.UnixMilli()-31*day)

	report := h.svc.RunDailyCheck(context.Background())

	assert.Equal(t, StatusError, report.Terminal.Status)
	assert.ErrorIs(t, report.Err(), apperrors.ErrConfigurationMissing)
	assert.Zero(t, h.dispatcher.count(notify.KindTerminal))
	assert.Zero(t, h.count(t), "nothing was delivered")
	assert.Equal(t, epoch.UnixMilli()-31*day, *h.lastActive(t))

	assert.Equal(t, ReasonOverdue, report.Reminder.Reason)
	assert.Equal(t, OutcomeFailure, report.Outcome)
}

func TestReminderWithoutBaseURL(t *testing.T) {
	opts := fullOptions()
	opts.PublicBaseURL = ""
	h := newHarness(t, opts)

	report := h.svc.RunDailyCheck(context.Background())

	assert.Equal(t, StatusError, report.Reminder.Status)
	assert.ErrorIs(t, report.Err(), apperrors.ErrConfigurationMissing)
	assert.Empty(t, h.dispatcher.sent)
}

func TestInactivityCheckOmitsReminder(t *testing.T) {
	h := newHarness(t, fullOptions())

	report := h.svc.RunInactivityCheck(context.Background())

	assert.Nil(t, report.Reminder)
	assert.Equal(t, KindInactivity, report.Kind)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"reminder"`)
	assert.Contains(t, string(raw), `"errors":[]`)
}

func TestReminderCheckLeavesTerminalStateAlone(t *testing.T) {
	t.Run("active owner gets a reminder", func(t *testing.T) {
		h := newHarness(t, fullOptions())
		h.setLastActive(t, epoch.UnixMilli()-day)
		// any access to the counter would surface as a store error
		h.store.failGet[storage.KeyFinalSentCount] = true
		h.store.failSet[storage.KeyFinalSentCount] = true

		report := h.svc.RunReminderCheck(context.Background())

		assert.Equal(t, KindReminder, report.Kind)
		assert.Equal(t, OutcomeSuccess, report.Outcome)
		assert.Empty(t, report.Errors)
		assert.Equal(t, StatusSent, report.Reminder.Status)
		assert.Nil(t, report.Terminal)
		assert.Equal(t, 1, h.dispatcher.count(notify.KindReminder))

		raw, err := json.Marshal(report)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), `"terminal"`)
	})

	t.Run("overdue owner gets nothing", func(t *testing.T) {
		h := newHarness(t, fullOptions())
		last := epoch.UnixMilli() - 40*day
		h.setLastActive(t, last)

		report := h.svc.RunReminderCheck(context.Background())

		assert.Equal(t, ReasonOverdue, report.Reminder.Reason)
		assert.Nil(t, report.Terminal)
		assert.Empty(t, h.dispatcher.sent)
		assert.Equal(t, 0, h.count(t))
		assert.Equal(t, last, *h.lastActive(t))
	})
}

func TestReportCarriesStoreHealth(t *testing.T) {
	store := storage.NewDegraded(storage.NewMemoryStore(), storage.BackendRedis, errors.New("refused"))
	svc := NewSwitchService(fullOptions(), store, &fakeDispatcher{}, WithClock(clockwork.NewFakeClockAt(epoch)))

	report := svc.RunDailyCheck(context.Background())
	assert.True(t, report.Store.Degraded)
	assert.Equal(t, storage.BackendMemory, report.Store.Backend)
}
