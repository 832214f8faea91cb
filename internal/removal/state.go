package removal

import (
	"errors"
	"fmt"
	"strings"
)

// State of one removal interaction. Nothing is stored between requests: the
// Selecting state lives entirely in the choice buttons already sent to the
// chat, and a resolved or cancelled interaction is back at Idle.
type State int

const (
	Idle State = iota
	Selecting
	Resolved
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Resolved:
		return "resolved"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type EventKind int

const (
	EventRequest EventKind = iota // user asked to remove someone
	EventSelect                   // user picked a username
	EventCancel                   // user picked the cancel choice
)

// Event is a decoded interaction input.
type Event struct {
	Kind     EventKind
	Username string
}

var (
	ErrInvalidTransition = errors.New("invalid removal transition")
	ErrUnknownCallback   = errors.New("unknown removal callback")
	ErrChoiceTooLong     = errors.New("removal choice exceeds callback limit")
)

// Transition returns the state reached from `from` on event kind ev.
// Resolved and Cancelled behave as Idle for the next interaction.
func Transition(from State, ev EventKind) (State, error) {
	if from == Resolved || from == Cancelled {
		from = Idle
	}
	switch {
	case from == Idle && ev == EventRequest:
		return Selecting, nil
	case from == Selecting && ev == EventSelect:
		return Resolved, nil
	case from == Selecting && ev == EventCancel:
		return Cancelled, nil
	case from == Selecting && ev == EventRequest:
		// A fresh /remove supersedes the pending prompt.
		return Selecting, nil
	}
	return from, fmt.Errorf("%w: %s on event %d", ErrInvalidTransition, from, ev)
}

// ---------------------------------------------
// Callback data codec
// ---------------------------------------------

const (
	// Telegram rejects callback_data longer than 64 bytes.
	MaxCallbackBytes = 64

	callbackPrefix = "rm:"
	selectPrefix   = callbackPrefix + "u:"
	cancelData     = callbackPrefix + "x"
)

// EncodeSelect is the callback data for choosing username.
func EncodeSelect(username string) (string, error) {
	data := selectPrefix + username
	if len(data) > MaxCallbackBytes {
		return "", fmt.Errorf("%w: %q", ErrChoiceTooLong, username)
	}
	return data, nil
}

// EncodeCancel is the callback data for the cancel choice.
func EncodeCancel() string {
	return cancelData
}

// IsCallback reports whether data belongs to a removal interaction.
func IsCallback(data string) bool {
	return strings.HasPrefix(data, callbackPrefix)
}

// Decode turns callback data back into a Select or Cancel event.
func Decode(data string) (Event, error) {
	switch {
	case data == cancelData:
		return Event{Kind: EventCancel}, nil
	case strings.HasPrefix(data, selectPrefix) && len(data) > len(selectPrefix):
		return Event{Kind: EventSelect, Username: strings.TrimPrefix(data, selectPrefix)}, nil
	}
	return Event{}, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
}
