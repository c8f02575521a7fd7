package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// DailyExpression is what "daily" expands to: once a day at 09:00 local time,
// so reminders arrive during the owner's day
const DailyExpression = "0 9 * * *"

// Schedule says when the switch evaluates itself. It is either a fixed
// interval or a five-column cron expression.
type Schedule struct {
	// Expression is the schedule as configured
	Expression string

	interval time.Duration

	minute *CronField // 0-59
	hour   *CronField // 0-23
	dom    *CronField // 1-31
	month  *CronField // 1-12
	dow    *CronField // 0-6, Sunday=0
}

// ParseSchedule parses a schedule expression. Supported forms:
//   - keywords: "hourly", "daily", "weekly"
//   - intervals: "every 4h", "every 30m" (at least one minute)
//   - cron: "minute hour dom month dow" with ranges, steps and lists
func ParseSchedule(expr string) (*Schedule, error) {
	expr = strings.TrimSpace(strings.ToLower(expr))

	switch expr {
	case "":
		return nil, fmt.Errorf("empty schedule")
	case "hourly":
		return &Schedule{Expression: expr, interval: time.Hour}, nil
	case "daily":
		return parseCron(expr, DailyExpression)
	case "weekly":
		return parseCron(expr, "0 9 * * 1")
	}

	if rest, ok := strings.CutPrefix(expr, "every "); ok {
		dur, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("invalid interval: %s", rest)
		}
		if dur < time.Minute {
			return nil, fmt.Errorf("interval must be at least 1 minute")
		}
		return &Schedule{Expression: expr, interval: dur}, nil
	}

	return parseCron(expr, expr)
}

func parseCron(name, expr string) (*Schedule, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("unrecognized schedule format: %s", name)
	}

	s := &Schedule{Expression: name}
	fields := []struct {
		dst      **CronField
		label    string
		min, max int
	}{
		{&s.minute, "minute", 0, 59},
		{&s.hour, "hour", 0, 23},
		{&s.dom, "day of month", 1, 31},
		{&s.month, "month", 1, 12},
		{&s.dow, "day of week", 0, 6},
	}
	for i, f := range fields {
		cf, err := ParseCronField(parts[i], f.min, f.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.label, err)
		}
		*f.dst = cf
	}
	return s, nil
}

// IsInterval returns true if this is an interval-based schedule
func (s *Schedule) IsInterval() bool {
	return s.interval > 0
}

// Interval returns the interval duration (0 if cron-based)
func (s *Schedule) Interval() time.Duration {
	return s.interval
}

// String returns the schedule expression
func (s *Schedule) String() string {
	return s.Expression
}

func (s *Schedule) matches(t time.Time) bool {
	return s.minute.Contains(t.Minute()) &&
		s.hour.Contains(t.Hour()) &&
		s.dom.Contains(t.Day()) &&
		s.month.Contains(int(t.Month())) &&
		s.dow.Contains(int(t.Weekday()))
}

// NextRun returns the first run time strictly after 'after'. Cron schedules
// jump whole months, days and hours instead of scanning minute by minute.
func (s *Schedule) NextRun(after time.Time) time.Time {
	if s.interval > 0 {
		return after.Add(s.interval)
	}

	loc := after.Location()
	t := after.Add(time.Minute).Truncate(time.Minute)
	limit := after.AddDate(5, 0, 0)

	for t.Before(limit) {
		if !s.month.Contains(int(t.Month())) {
			if next := s.month.Next(int(t.Month())); next != -1 {
				t = time.Date(t.Year(), time.Month(next), 1, 0, 0, 0, 0, loc)
			} else {
				t = time.Date(t.Year()+1, time.Month(s.month.First(1)), 1, 0, 0, 0, 0, loc)
			}
			continue
		}

		if !s.dom.Contains(t.Day()) || !s.dow.Contains(int(t.Weekday())) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}

		if !s.hour.Contains(t.Hour()) {
			if next := s.hour.Next(t.Hour()); next != -1 {
				t = time.Date(t.Year(), t.Month(), t.Day(), next, 0, 0, 0, loc)
			} else {
				t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			}
			continue
		}

		if !s.minute.Contains(t.Minute()) {
			if next := s.minute.Next(t.Minute()); next != -1 {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), next, 0, 0, loc)
			} else {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
			}
			continue
		}

		return t
	}

	// unsatisfiable, e.g. "0 0 31 2 *"
	return after.Add(24 * time.Hour)
}
