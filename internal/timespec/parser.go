// Package timespec parses the --since/--until flags of deckhand history.
package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayout is accepted alongside RFC3339 for whole-day bounds.
const dateLayout = "2006-01-02"

// Parse turns spec into an absolute time relative to now.
// Accepted forms:
//   - a Go duration meaning "that long ago": "90m", "1h30m"
//   - whole days ago: "7d"
//   - RFC3339: "2026-03-01T09:00:00Z"
//   - a UTC date: "2026-03-01"
func Parse(spec string, now time.Time) (time.Time, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateLayout, spec); err == nil {
		return t, nil
	}
	if days, ok := strings.CutSuffix(spec, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return now.AddDate(0, 0, -n), nil
		}
	}
	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m' or '7d', a date like '2026-03-01', or RFC3339)", spec)
}

// Range is a closed interval in Unix milliseconds. Zero bounds are open.
type Range struct {
	SinceMs int64
	UntilMs int64
}

// ParseRange parses both flags. Either may be empty.
func ParseRange(since, until string, now time.Time) (Range, error) {
	var r Range
	if since != "" {
		t, err := Parse(since, now)
		if err != nil {
			return Range{}, fmt.Errorf("invalid --since: %w", err)
		}
		r.SinceMs = t.UnixMilli()
	}
	if until != "" {
		t, err := Parse(until, now)
		if err != nil {
			return Range{}, fmt.Errorf("invalid --until: %w", err)
		}
		r.UntilMs = t.UnixMilli()
	}
	if r.SinceMs > 0 && r.UntilMs > 0 && r.SinceMs >= r.UntilMs {
		return Range{}, fmt.Errorf("--since must be before --until")
	}
	return r, nil
}

// Contains reports whether ms falls inside the range.
func (r Range) Contains(ms int64) bool {
	if r.SinceMs > 0 && ms < r.SinceMs {
		return false
	}
	if r.UntilMs > 0 && ms > r.UntilMs {
		return false
	}
	return true
}
