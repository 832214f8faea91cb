package streak

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// activeRun marks n consecutive days ending at end (inclusive) as active.
func activeRun(cal Calendar, end time.Time, n int) Calendar {
	day := Midnight(end)
	for i := 0; i < n; i++ {
		cal[day.Unix()] = 1 + i%3
		day = day.AddDate(0, 0, -1)
	}
	return cal
}

func TestCurrentStreak(t *testing.T) {
	now := time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)
	today := Midnight(now)
	yesterday := today.AddDate(0, 0, -1)

	testCases := []struct {
		name string
		cal  Calendar
		want int
	}{
		{
			name: "empty calendar",
			cal:  Calendar{},
			want: 0,
		},
		{
			name: "nil calendar",
			cal:  nil,
			want: 0,
		},
		{
			name: "today and yesterday missing",
			cal:  activeRun(Calendar{}, today.AddDate(0, 0, -2), 5),
			want: 0,
		},
		{
			name: "today and yesterday explicitly zero",
			cal: activeRun(Calendar{
				today.Unix():     0,
				yesterday.Unix(): 0,
			}, today.AddDate(0, 0, -2), 5),
			want: 0,
		},
		{
			name: "only today",
			cal:  Calendar{today.Unix(): 4},
			want: 1,
		},
		{
			name: "run ending today",
			cal:  activeRun(Calendar{}, today, 7),
			want: 7,
		},
		{
			name: "run ending yesterday while today is empty",
			cal:  activeRun(Calendar{}, yesterday, 3),
			want: 3,
		},
		{
			name: "today zero falls back to yesterday",
			cal:  activeRun(Calendar{today.Unix(): 0}, yesterday, 2),
			want: 2,
		},
		{
			name: "gap stops the walk",
			cal: activeRun(activeRun(Calendar{}, today, 4),
				today.AddDate(0, 0, -5), 10),
			want: 4,
		},
		{
			name: "future days are ignored",
			cal:  activeRun(Calendar{today.AddDate(0, 0, 1).Unix(): 9}, today, 2),
			want: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CurrentStreak(tc.cal, now))
		})
	}
}

func TestCurrentStreak_ExactRunLength(t *testing.T) {
	now := time.Date(2024, time.July, 1, 8, 0, 0, 0, time.UTC)
	for _, k := range []int{1, 2, 30, 100, 364} {
		cal := activeRun(Calendar{}, now, k)
		assert.Equal(t, k, CurrentStreak(cal, now), "run of %d days", k)
	}
}

func TestCurrentStreak_CapsAtMaxWalk(t *testing.T) {
	now := time.Date(2024, time.December, 31, 12, 0, 0, 0, time.UTC)
	cal := activeRun(Calendar{}, now, 900)

	w := Scan(cal, now)
	assert.Equal(t, MaxWalk, w.Count)
	assert.True(t, w.Capped)
	assert.False(t, w.CrossesYear(now))
}

func TestCurrentStreak_LocalMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	// 01:00 local on the 5th is still the 4th in UTC.
	now := time.Date(2024, time.May, 5, 1, 0, 0, 0, loc)

	cal := activeRun(Calendar{}, now, 3)
	assert.Equal(t, 3, CurrentStreak(cal, now))

	utcKeyed := activeRun(Calendar{}, now.UTC(), 3)
	assert.Equal(t, 0, CurrentStreak(utcKeyed, now))
}

func TestCurrentStreak_DSTBoundary(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Spring forward happened on 2024-03-10; that day is 23 hours long.
	now := time.Date(2024, time.March, 12, 9, 0, 0, 0, loc)
	cal := activeRun(Calendar{}, now, 6)
	assert.Equal(t, 6, CurrentStreak(cal, now))
}

func TestWalk_CrossesYear(t *testing.T) {
	now := time.Date(2025, time.January, 3, 10, 0, 0, 0, time.UTC)

	t.Run("run reaching january first", func(t *testing.T) {
		cal := activeRun(Calendar{}, now, 3)
		w := Scan(cal, now)
		assert.Equal(t, 3, w.Count)
		assert.True(t, w.CrossesYear(now))
	})

	t.Run("run stopping inside the year", func(t *testing.T) {
		cal := activeRun(Calendar{}, now, 2)
		assert.False(t, Scan(cal, now).CrossesYear(now))
	})

	t.Run("empty new year day anchors on december", func(t *testing.T) {
		newYear := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)
		w := Scan(Calendar{}, newYear)
		assert.Equal(t, 0, w.Count)
		assert.True(t, w.CrossesYear(newYear))
	})

	t.Run("merged calendars continue the run", func(t *testing.T) {
		current := activeRun(Calendar{}, now, 3)
		previous := activeRun(Calendar{}, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), 4)
		assert.Equal(t, 7, CurrentStreak(current.Merge(previous), now))
	})
}

func TestParseCalendar(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		cal, err := ParseCalendar(`{"1704067200": 3, "1704153600": "1", "1704240000": 0}`)
		require.NoError(t, err)
		assert.Equal(t, Calendar{1704067200: 3, 1704153600: 1, 1704240000: 0}, cal)
	})

	t.Run("empty object", func(t *testing.T) {
		cal, err := ParseCalendar(`{}`)
		require.NoError(t, err)
		assert.Empty(t, cal)
	})

	malformed := map[string]string{
		"empty string":  "",
		"null":          "null",
		"array":         "[1,2,3]",
		"bad key":       `{"monday": 2}`,
		"negative":      `{"1704067200": -1}`,
		"fractional":    `{"1704067200": 1.5}`,
		"truncated":     `{"1704067200": 1`,
		"nested object": `{"1704067200": {"count": 1}}`,
	}
	for name, raw := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCalendar(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedCalendar))
		})
	}
}

func TestDayKey(t *testing.T) {
	at := time.Date(2024, time.January, 1, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, int64(1704067200), DayKey(at))
}
