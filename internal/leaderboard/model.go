package leaderboard

import "time"

// Status tells the caller how to render a Board.
type Status string

const (
	StatusOK      Status = "ok"
	StatusNoUsers Status = "no_users" // the chat has nobody registered
	StatusNoData  Status = "no_data"  // users exist but every fetch failed
)

// Entry is one ranked user.
type Entry struct {
	Rank            int    `json:"rank"`
	Username        string `json:"username"`
	CurrentStreak   int    `json:"current_streak"`
	MaxStreak       int    `json:"max_streak"`
	TotalActiveDays int    `json:"total_active_days"`
}

// Board is the result of one leaderboard build.
type Board struct {
	ChatID      int64     `json:"chat_id"`
	Status      Status    `json:"status"`
	Entries     []Entry   `json:"entries"`
	Skipped     []string  `json:"skipped,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}
