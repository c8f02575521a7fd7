package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"daily", "daily", false},
		{"hourly", "hourly", false},
		{"weekly", "weekly", false},
		{"upper case", "  DAILY ", false},
		{"every 1h", "every 1h", false},
		{"every 30m", "every 30m", false},
		{"cron midnight", "0 0 * * *", false},
		{"cron steps", "*/15 8-18 * * 1-5", false},
		{"cron list", "0 9,21 * * *", false},
		{"invalid minute", "60 2 * * *", true},
		{"invalid step", "*/0 * * * *", true},
		{"inverted range", "0 5-1 * * *", true},
		{"too short", "every 30s", true},
		{"bad interval", "every soon", true},
		{"four columns", "0 0 * *", true},
		{"empty", "", true},
		{"nonsense", "sometimes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchedule(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduleNextRun(t *testing.T) {
	// Monday 2024-01-15 10:30 UTC
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"daily", time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)},
		{"weekly", time.Date(2024, 1, 22, 9, 0, 0, 0, time.UTC)},
		{"hourly", now.Add(time.Hour)},
		{"every 45m", now.Add(45 * time.Minute)},
		{"30 10 * * *", time.Date(2024, 1, 16, 10, 30, 0, 0, time.UTC)},
		{"45 10 * * *", time.Date(2024, 1, 15, 10, 45, 0, 0, time.UTC)},
		{"*/20 * * * *", time.Date(2024, 1, 15, 10, 40, 0, 0, time.UTC)},
		{"0 0 1 * *", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"0 12 29 2 *", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)},
		{"0 8 * * 0", time.Date(2024, 1, 21, 8, 0, 0, 0, time.UTC)},
		{"0 0 1 1 *", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			s, err := ParseSchedule(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.NextRun(now))
		})
	}
}

func TestNextRunIsStrictlyAfter(t *testing.T) {
	s, err := ParseSchedule("0 9 * * *")
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, at.AddDate(0, 0, 1), s.NextRun(at))
}

func TestNextRunUnsatisfiable(t *testing.T) {
	s, err := ParseSchedule("0 0 31 2 *")
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(24*time.Hour), s.NextRun(now))
}

func TestParseCronField(t *testing.T) {
	tests := []struct {
		field string
		want  []int
	}{
		{"5", []int{5}},
		{"1-5", []int{1, 2, 3, 4, 5}},
		{"*/15", []int{0, 15, 30, 45}},
		{"0-30/10", []int{0, 10, 20, 30}},
		{"45,0,15,15", []int{0, 15, 45}},
		{"1-3,10", []int{1, 2, 3, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f, err := ParseCronField(tt.field, 0, 59)
			require.NoError(t, err)
			assert.False(t, f.Any)
			assert.Equal(t, tt.want, f.Values)
		})
	}

	anyField, err := ParseCronField("*", 0, 59)
	require.NoError(t, err)
	assert.True(t, anyField.Any)
	assert.True(t, anyField.Contains(59))
	assert.Equal(t, 7, anyField.Next(7))
}

func TestCronFieldNext(t *testing.T) {
	f, err := ParseCronField("10,20,30", 0, 59)
	require.NoError(t, err)

	assert.Equal(t, 10, f.Next(0))
	assert.Equal(t, 20, f.Next(11))
	assert.Equal(t, 30, f.Next(30))
	assert.Equal(t, -1, f.Next(31))
	assert.Equal(t, 10, f.First(0))
}
