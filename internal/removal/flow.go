package removal

import (
	"context"
	"fmt"
	"html"

	"streak-bot/internal/logger"
)

// What the flow needs from the registry.
type Registry interface {
	List(ctx context.Context, chatID int64) ([]string, error)
	Remove(ctx context.Context, chatID int64, username string) (bool, error)
}

// Choice is one selectable button.
type Choice struct {
	Label string
	Data  string
}

// Prompt is what Begin renders: the question plus its choices.
type Prompt struct {
	State   State
	Text    string
	Choices []Choice
}

// Outcome is the result of resolving or cancelling a prompt.
type Outcome struct {
	State    State
	Text     string
	Username string
	Removed  bool
}

type Flow struct {
	registry Registry
}

func NewFlow(registry Registry) *Flow {
	return &Flow{registry: registry}
}

// Begin snapshots the chat's usernames into a set of choices plus a cancel
// choice. An empty registry stays Idle and has no choices.
func (f *Flow) Begin(ctx context.Context, chatID int64) (*Prompt, error) {
	usernames, err := f.registry.List(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(usernames) == 0 {
		return &Prompt{State: Idle, Text: "No users to remove."}, nil
	}

	state, err := Transition(Idle, EventRequest)
	if err != nil {
		return nil, err
	}

	choices := make([]Choice, 0, len(usernames)+1)
	for _, name := range usernames {
		data, err := EncodeSelect(name)
		if err != nil {
			logger.Warning("[removal] chat %d: %v", chatID, err)
			continue
		}
		choices = append(choices, Choice{Label: name, Data: data})
	}
	choices = append(choices, Choice{Label: "❌ Cancel", Data: EncodeCancel()})

	return &Prompt{
		State:   state,
		Text:    "Select a user to remove:",
		Choices: choices,
	}, nil
}

// Resolve removes the selected username. Selecting a name that has since
// left the registry is not an error.
func (f *Flow) Resolve(ctx context.Context, chatID int64, username string) (*Outcome, error) {
	state, err := Transition(Selecting, EventSelect)
	if err != nil {
		return nil, err
	}

	removed, err := f.registry.Remove(ctx, chatID, username)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Removed <b>%s</b> from the leaderboard.", html.EscapeString(username))
	if !removed {
		text = fmt.Sprintf("<b>%s</b> is no longer on the leaderboard.", html.EscapeString(username))
	}
	return &Outcome{State: state, Text: text, Username: username, Removed: removed}, nil
}

// Cancel dismisses the prompt without touching the registry.
func (f *Flow) Cancel() *Outcome {
	return &Outcome{State: Cancelled, Text: "Removal cancelled."}
}
