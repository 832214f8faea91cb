package streak

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedCalendar = errors.New("malformed submission calendar")

// Calendar maps a day-boundary key (unix seconds at midnight) to the number
// of submissions made that day. Missing keys mean zero submissions.
type Calendar map[int64]int

// ParseCalendar decodes the JSON object LeetCode ships as a string, e.g.
// {"1704067200": 3, "1704153600": 1}.
func ParseCalendar(raw string) (Calendar, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedCalendar)
	}

	var decoded map[string]json.Number
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCalendar, err)
	}
	if decoded == nil {
		return nil, fmt.Errorf("%w: null payload", ErrMalformedCalendar)
	}

	cal := make(Calendar, len(decoded))
	for key, value := range decoded {
		day, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad day key %q", ErrMalformedCalendar, key)
		}
		count, err := strconv.Atoi(value.String())
		if err != nil || count < 0 {
			return nil, fmt.Errorf("%w: bad count %q for day %d", ErrMalformedCalendar, value, day)
		}
		cal[day] = count
	}
	return cal, nil
}

// Active reports whether any submission was made on the day starting at t.
func (c Calendar) Active(t time.Time) bool {
	return c[t.Unix()] > 0
}

// Merge returns a new calendar holding the entries of both. Counts for the
// same day are taken from other.
func (c Calendar) Merge(other Calendar) Calendar {
	out := make(Calendar, len(c)+len(other))
	for day, count := range c {
		out[day] = count
	}
	for day, count := range other {
		out[day] = count
	}
	return out
}

// Midnight truncates t to the start of its day in t's own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey is the calendar key for the day containing t.
func DayKey(t time.Time) int64 {
	return Midnight(t).Unix()
}
