package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lcrostarosa/lastword/internal/errors"
	"github.com/lcrostarosa/lastword/internal/storage"
)

func expiryIn(d time.Duration) string {
	return strconv.FormatInt(epoch.Add(d).UnixMilli(), 10)
}

func TestCheckInSuccess(t *testing.T) {
	h := newHarness(t, fullOptions())
	require.NoError(t, h.store.Set(context.Background(), storage.KeyFinalSentCount, "2"))

	result := h.checkIn.HandleCheckIn(context.Background(), "check-in-secret", expiryIn(time.Hour))

	assert.Equal(t, CheckInSuccess, result.Outcome)
	assert.Equal(t, epoch.UnixMilli(), result.Timestamp)
	assert.NoError(t, result.Err())
	assert.Equal(t, epoch.UnixMilli(), *h.lastActive(t))
	assert.Equal(t, 0, h.count(t))
}

func TestCheckInIdempotent(t *testing.T) {
	h := newHarness(t, fullOptions())
	link := expiryIn(time.Hour)

	first := h.checkIn.HandleCheckIn(context.Background(), "check-in-secret", link)
	second := h.checkIn.HandleCheckIn(context.Background(), "check-in-secret", link)

	assert.Equal(t, first, second)
	assert.Equal(t, epoch.UnixMilli(), *h.lastActive(t))
	assert.Equal(t, 0, h.count(t))
}

func TestCheckInExpiredLeavesState(t *testing.T) {
	h := newHarness(t, fullOptions())
	before := epoch.UnixMilli() - 3*day
	h.setLastActive(t, before)

	result := h.checkIn.HandleCheckIn(context.Background(), "check-in-secret", expiryIn(-time.Millisecond))

	assert.Equal(t, CheckInExpired, result.Outcome)
	assert.Equal(t, epoch.UnixMilli()-1, result.ExpiresAt)
	assert.Equal(t, epoch.UnixMilli(), result.CurrentTime)
	assert.ErrorIs(t, result.Err(), apperrors.ErrLinkExpired)
	assert.Equal(t, before, *h.lastActive(t))
}

func TestCheckInRejections(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		expiry string
		want   CheckInOutcome
		err    error
	}{
		{"wrong secret on valid link", "nope", expiryIn(time.Hour), CheckInUnauthorized, apperrors.ErrUnauthorized},
		{"wrong secret on expired link", "nope", expiryIn(-time.Hour), CheckInUnauthorized, apperrors.ErrUnauthorized},
		{"missing expiry", "check-in-secret", "", CheckInMalformed, apperrors.ErrLinkMalformed},
		{"garbage expiry", "check-in-secret", "soon", CheckInMalformed, apperrors.ErrLinkMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, fullOptions())

			result := h.checkIn.HandleCheckIn(context.Background(), tt.secret, tt.expiry)

			assert.Equal(t, tt.want, result.Outcome)
			assert.ErrorIs(t, result.Err(), tt.err)
			assert.Nil(t, h.lastActive(t), "no mutation")
		})
	}
}

func TestCheckInStoreFailure(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.store.failSet[storage.KeyLastActive] = true

	result := h.checkIn.HandleCheckIn(context.Background(), "check-in-secret", expiryIn(time.Hour))

	assert.Equal(t, CheckInError, result.Outcome)
	assert.ErrorIs(t, result.Err(), apperrors.ErrStoreUnavailable)
}

func TestCheckInThenDailyCheck(t *testing.T) {
	h := newHarness(t, fullOptions())
	h.setLastActive(t, epoch.UnixMilli()-31*day)

	result := h.checkIn.HandleCheckIn(context.Background(), "check-in-secret", expiryIn(time.Hour))
	require.Equal(t, CheckInSuccess, result.Outcome)

	report := h.svc.RunDailyCheck(context.Background())
	assert.Equal(t, ReasonStillActive, report.Terminal.Reason)
	assert.Equal(t, StatusSent, report.Reminder.Status)
}

func TestHeartbeatAndMintLink(t *testing.T) {
	h := newHarness(t, fullOptions())

	ts, err := h.checkIn.Heartbeat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, epoch.UnixMilli(), ts)
	assert.Equal(t, ts, *h.lastActive(t))

	link := h.checkIn.MintLink(nil)
	assert.Equal(t, epoch.Add(24*time.Hour).UnixMilli(), link.ExpiresAt)
	assert.Equal(t, "check-in-secret", link.Secret)
}

func TestStatusService(t *testing.T) {
	h := newHarness(t, fullOptions())
	svc := NewStatusService(fullOptions().Switch, h.store, WithClock(h.clock))

	status := svc.GetStatus(context.Background())
	assert.Nil(t, status.LastActive)
	assert.Equal(t, "not_activated", string(status.Decision.State))
	assert.Equal(t, 3, status.FinalSendLimit)
	assert.True(t, status.Store.Healthy)

	h.setLastActive(t, epoch.UnixMilli()-day)
	status = svc.GetStatus(context.Background())
	require.NotNil(t, status.LastActive)
	assert.Equal(t, 29*day, status.Decision.Remaining)
	assert.Equal(t, "29d 0h", status.RemainingFormatted)

	h.store.failGet[storage.KeyLastActive] = true
	status = svc.GetStatus(context.Background())
	assert.NotEmpty(t, status.Error)
}
