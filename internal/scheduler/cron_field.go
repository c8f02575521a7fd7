package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CronField is one parsed column of a cron expression. It accepts single
// values ("5"), ranges ("1-5"), steps ("*/15", "1-30/5"), lists ("1,5,10")
// and "*".
type CronField struct {
	// Values contains all allowed values, sorted
	Values []int
	// Any is true for "*"
	Any bool
}

// Contains checks if a value is allowed by this field
func (f *CronField) Contains(val int) bool {
	if f.Any {
		return true
	}
	i := sort.SearchInts(f.Values, val)
	return i < len(f.Values) && f.Values[i] == val
}

// Next returns the smallest allowed value >= val, or -1 when the field wraps
func (f *CronField) Next(val int) int {
	if f.Any {
		return val
	}
	i := sort.SearchInts(f.Values, val)
	if i < len(f.Values) {
		return f.Values[i]
	}
	return -1
}

// First returns the smallest allowed value
func (f *CronField) First(min int) int {
	if f.Any || len(f.Values) == 0 {
		return min
	}
	return f.Values[0]
}

// ParseCronField parses a single cron column bounded by [min, max]
func ParseCronField(field string, min, max int) (*CronField, error) {
	field = strings.TrimSpace(field)
	if field == "*" {
		return &CronField{Any: true}, nil
	}

	seen := make(map[int]struct{})
	for _, part := range strings.Split(field, ",") {
		values, err := parseFieldPart(part, min, max)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			seen[v] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("no valid values in field: %s", field)
	}

	cf := &CronField{Values: make([]int, 0, len(seen))}
	for v := range seen {
		cf.Values = append(cf.Values, v)
	}
	sort.Ints(cf.Values)
	return cf, nil
}

// parseFieldPart expands one comma-free part of a field
func parseFieldPart(part string, min, max int) ([]int, error) {
	part = strings.TrimSpace(part)

	step := 1
	if base, stepStr, ok := strings.Cut(part, "/"); ok {
		n, err := strconv.Atoi(stepStr)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid step: %s", stepStr)
		}
		step = n
		part = base
	}

	start, end := min, max
	switch {
	case part == "*":
	case strings.Contains(part, "-"):
		lo, hi, _ := strings.Cut(part, "-")
		var err error
		if start, err = strconv.Atoi(strings.TrimSpace(lo)); err != nil {
			return nil, fmt.Errorf("invalid range start: %s", lo)
		}
		if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return nil, fmt.Errorf("invalid range end: %s", hi)
		}
	default:
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %s", part)
		}
		start, end = v, v
	}

	if start < min || end > max {
		return nil, fmt.Errorf("value out of range [%d-%d]: %d-%d", min, max, start, end)
	}
	if start > end {
		return nil, fmt.Errorf("invalid range: %d > %d", start, end)
	}

	var values []int
	for v := start; v <= end; v += step {
		values = append(values, v)
	}
	return values, nil
}
