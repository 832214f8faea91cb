package streak

import "time"

// MaxWalk bounds how many days CurrentStreak inspects. One submission
// calendar covers a year, so a longer walk could never find more data.
const MaxWalk = 365

// Record is the per-user streak summary shown on a leaderboard.
type Record struct {
	Current         int `json:"current_streak"`
	Max             int `json:"max_streak"`
	TotalActiveDays int `json:"total_active_days"`
}

// Walk describes one backward scan over a calendar.
type Walk struct {
	Count   int
	Anchor  time.Time // first day inspected: today, or yesterday when today is empty
	Stopped time.Time // first inactive day, or the day after the cap was hit
	Capped  bool
}

// Scan walks backward from today (or yesterday, if today has no submissions
// yet) counting consecutive active days. Days are stepped with calendar
// arithmetic in now's location so DST shifts do not skip or repeat a day.
func Scan(cal Calendar, now time.Time) Walk {
	day := Midnight(now)
	if !cal.Active(day) {
		day = day.AddDate(0, 0, -1)
	}

	w := Walk{Anchor: day}
	for w.Count < MaxWalk {
		if !cal.Active(day) {
			w.Stopped = day
			return w
		}
		w.Count++
		day = day.AddDate(0, 0, -1)
	}
	w.Stopped = day
	w.Capped = true
	return w
}

// CurrentStreak returns the number of consecutive active days ending today,
// or ending yesterday when today has not seen a submission yet.
func CurrentStreak(cal Calendar, now time.Time) int {
	return Scan(cal, now).Count
}

// CrossesYear reports whether the walk ran off the start of now's calendar
// year, meaning the previous year's calendar may extend the streak.
func (w Walk) CrossesYear(now time.Time) bool {
	return !w.Capped && w.Stopped.Year() < now.Year()
}
