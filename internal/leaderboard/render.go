package leaderboard

import (
	"fmt"
	"html"
	"strings"

	"streak-bot/internal/leetcode"
)

const (
	NoUsersText = "No users registered yet. Use /add <username> to add your LeetCode username."
	NoDataText  = "No data available right now. Please try again later."
)

var medals = map[int]string{1: "🥇", 2: "🥈", 3: "🥉"}

// Render formats a board as Telegram HTML.
func Render(board *Board) string {
	switch board.Status {
	case StatusNoUsers:
		return html.EscapeString(NoUsersText)
	case StatusNoData:
		return NoDataText
	}

	var b strings.Builder
	b.WriteString("🏆 <b>LeetCode Streak Leaderboard</b>\n\n")
	for _, e := range board.Entries {
		b.WriteString(RenderEntry(e))
		b.WriteByte('\n')
	}
	if n := len(board.Skipped); n > 0 {
		fmt.Fprintf(&b, "\n<i>%d user(s) could not be loaded.</i>", n)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderEntry formats one ranked line.
func RenderEntry(e Entry) string {
	prefix := fmt.Sprintf("%d.", e.Rank)
	if medal, ok := medals[e.Rank]; ok {
		prefix += " " + medal
	}
	return fmt.Sprintf("%s %s: <b>%d</b> 🔥 (max %d)", prefix, Link(e.Username), e.CurrentStreak, e.MaxStreak)
}

// Link renders a username as a link to its LeetCode profile.
func Link(username string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`,
		html.EscapeString(leetcode.ProfileURL(username)), html.EscapeString(username))
}
