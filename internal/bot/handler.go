package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"streak-bot/internal/leaderboard"
	"streak-bot/internal/leetcode"
	"streak-bot/internal/logger"
	"streak-bot/internal/registry"
	"streak-bot/internal/removal"
	"streak-bot/internal/streak"
)

const (
	WelcomeText = "Welcome to the LeetCode Leaderboard Bot! Use /add <username> to add your LeetCode username."
	AddUsage    = "Usage: /add <LeetCode username>"
	StreakUsage = "Usage: /streak <LeetCode username>"
	ErrorText   = "Something went wrong, please try again later."
)

const helpText = `Commands:
/add <username> [more...] - track LeetCode usernames in this chat
/list - show the tracked usernames
/leaderboard - rank this chat by current streak
/streak <username> - show one user's streak
/remove - stop tracking a username
/help - show this message`

// Reply is what a command produces. Choices become an inline keyboard;
// Dismiss asks the transport to delete the message that carried them.
type Reply struct {
	Text    string
	HTML    bool
	Choices []removal.Choice
	Dismiss bool
}

// Handler has one method per inbound event kind. It never returns an error:
// every failure is turned into a reply and the cause is logged.
type Handler struct {
	registry *registry.Service
	board    *leaderboard.Service
	flow     *removal.Flow
}

func NewHandler(reg *registry.Service, board *leaderboard.Service, flow *removal.Flow) *Handler {
	return &Handler{
		registry: reg,
		board:    board,
		flow:     flow,
	}
}

func (h *Handler) Start(ctx context.Context, chatID int64) Reply {
	return Reply{Text: WelcomeText + "\n\n" + helpText}
}

func (h *Handler) Help(ctx context.Context, chatID int64) Reply {
	return Reply{Text: helpText}
}

// Add registers every whitespace-separated username in args. Each name gets
// its own outcome line; one failure does not stop the others.
func (h *Handler) Add(ctx context.Context, chatID int64, args string) Reply {
	names := strings.Fields(args)
	if len(names) == 0 {
		return Reply{Text: AddUsage}
	}

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, h.addOne(ctx, chatID, name))
	}
	return Reply{Text: strings.Join(lines, "\n"), HTML: true}
}

func (h *Handler) addOne(ctx context.Context, chatID int64, name string) string {
	res, err := h.registry.Add(ctx, chatID, name)
	shown := html.EscapeString(strings.TrimPrefix(name, "@"))
	if res.Username != "" {
		shown = html.EscapeString(res.Username)
	}

	switch {
	case err == nil && res.Checked && !res.Verified:
		return fmt.Sprintf("⚠️ Username <b>%s</b> added, but it could not be verified on LeetCode.", shown)
	case err == nil:
		return fmt.Sprintf("✅ Username <b>%s</b> added!", shown)
	case errors.Is(err, registry.ErrAlreadyTracked):
		return fmt.Sprintf("ℹ️ <b>%s</b> is already on the leaderboard.", shown)
	case errors.Is(err, registry.ErrNotFound):
		return fmt.Sprintf("❌ <b>%s</b> was not found on LeetCode.", shown)
	case errors.Is(err, registry.ErrInvalidUsername):
		return fmt.Sprintf("❌ <b>%s</b> is not a valid username.", shown)
	default:
		logger.Error("[bot] chat %d: add %s: %v", chatID, name, err)
		return ErrorText
	}
}

func (h *Handler) List(ctx context.Context, chatID int64) Reply {
	usernames, err := h.registry.List(ctx, chatID)
	if err != nil {
		logger.Error("[bot] chat %d: list: %v", chatID, err)
		return Reply{Text: ErrorText}
	}
	if len(usernames) == 0 {
		return Reply{Text: leaderboard.NoUsersText}
	}

	var b strings.Builder
	b.WriteString("📋 <b>Tracked users</b>\n")
	for i, name := range usernames {
		fmt.Fprintf(&b, "\n%d. %s", i+1, leaderboard.Link(name))
	}
	return Reply{Text: b.String(), HTML: true}
}

func (h *Handler) Leaderboard(ctx context.Context, chatID int64) Reply {
	board, err := h.board.Build(ctx, chatID)
	if err != nil {
		logger.Error("[bot] chat %d: leaderboard: %v", chatID, err)
		return Reply{Text: ErrorText}
	}
	return Reply{Text: leaderboard.Render(board), HTML: true}
}

// Streak looks up a single user. Unlike the leaderboard, a fetch failure
// here is reported back to the chat.
func (h *Handler) Streak(ctx context.Context, chatID int64, args string) Reply {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return Reply{Text: StreakUsage}
	}
	name, err := registry.Normalize(fields[0])
	if err != nil {
		return Reply{Text: StreakUsage}
	}
	shown := html.EscapeString(name)

	entry, err := h.board.Lookup(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, leetcode.ErrUserNotFound):
		return Reply{Text: fmt.Sprintf("❌ <b>%s</b> was not found on LeetCode.", shown), HTML: true}
	case errors.Is(err, streak.ErrMalformedCalendar):
		logger.Warning("[bot] chat %d: streak %s: %v", chatID, name, err)
		return Reply{Text: fmt.Sprintf("⚠️ LeetCode returned unreadable activity data for <b>%s</b>.", shown), HTML: true}
	case errors.Is(err, leetcode.ErrTransport):
		logger.Warning("[bot] chat %d: streak %s: %v", chatID, name, err)
		return Reply{Text: "⚠️ Could not reach LeetCode right now. Please try again later."}
	default:
		logger.Error("[bot] chat %d: streak %s: %v", chatID, name, err)
		return Reply{Text: ErrorText}
	}

	text := fmt.Sprintf("%s: <b>%d</b> 🔥 current streak\nBest streak: %d\nActive days this year: %d",
		leaderboard.Link(entry.Username), entry.CurrentStreak, entry.MaxStreak, entry.TotalActiveDays)
	return Reply{Text: text, HTML: true}
}

// Remove opens the selection prompt.
func (h *Handler) Remove(ctx context.Context, chatID int64) Reply {
	prompt, err := h.flow.Begin(ctx, chatID)
	if err != nil {
		logger.Error("[bot] chat %d: remove: %v", chatID, err)
		return Reply{Text: ErrorText}
	}
	return Reply{Text: prompt.Text, Choices: prompt.Choices}
}

func (h *Handler) RemovalSelected(ctx context.Context, chatID int64, username string) Reply {
	out, err := h.flow.Resolve(ctx, chatID, username)
	if err != nil {
		logger.Error("[bot] chat %d: remove %s: %v", chatID, username, err)
		return Reply{Text: ErrorText}
	}
	return Reply{Text: out.Text, HTML: true}
}

func (h *Handler) RemovalCancelled(ctx context.Context, chatID int64) Reply {
	out := h.flow.Cancel()
	return Reply{Text: out.Text, Dismiss: true}
}
