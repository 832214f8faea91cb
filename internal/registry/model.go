package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrAlreadyTracked  = errors.New("username already tracked in this chat")
	ErrNotFound        = errors.New("username not found on leetcode")
	ErrInvalidUsername = errors.New("invalid username")
)

// VerifyPolicy decides what Add does when a username cannot be verified.
type VerifyPolicy string

const (
	PolicyStrict  VerifyPolicy = "strict"  // reject unverified usernames
	PolicyLenient VerifyPolicy = "lenient" // add them but report them as unverified
	PolicyOff     VerifyPolicy = "off"     // skip the lookup entirely
)

func ParseVerifyPolicy(s string) (VerifyPolicy, error) {
	switch p := VerifyPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyStrict, nil
	case PolicyStrict, PolicyLenient, PolicyOff:
		return p, nil
	default:
		return "", fmt.Errorf("unknown verify policy %q", s)
	}
}

// AddResult reports what Add stored. Checked is false when no lookup ran.
type AddResult struct {
	Username string
	Checked  bool
	Verified bool
}

// Event describes a successful registry mutation.
type Event struct {
	ChatID   int64     `json:"chat_id"`
	Action   string    `json:"action"` // "added" or "removed"
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// Normalize trims whitespace and a leading @ from a username.
func Normalize(username string) (string, error) {
	name := strings.TrimPrefix(strings.TrimSpace(username), "@")
	if name == "" || strings.ContainsAny(name, " \t\r\n/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	}
	return name, nil
}

func indexOf(usernames []string, name string) int {
	for i, u := range usernames {
		if strings.EqualFold(u, name) {
			return i
		}
	}
	return -1
}
