package registry

import (
	"context"
	"fmt"
	"time"

	"streak-bot/internal/logger"
)

// Verifier answers whether a username exists upstream. Implementations fail
// closed: an unanswerable lookup reports false.
type Verifier interface {
	Exists(ctx context.Context, username string) bool
}

// Notifier is told about successful mutations. Publishing is best-effort.
type Notifier interface {
	Publish(ctx context.Context, ev Event)
}

// Service applies the registry rules on top of a Store.
//
// Every mutation is a read-modify-write of the whole list with no lock held
// across the two calls. Two writers racing on the same chat can lose one
// update (last writer wins). This is accepted: the window is a single
// command round-trip and only affects near-simultaneous edits of one chat.
type Service struct {
	store    Store
	verifier Verifier
	policy   VerifyPolicy
	notifier Notifier
	now      func() time.Time
}

func NewService(store Store, verifier Verifier, policy VerifyPolicy) *Service {
	if policy == "" {
		policy = PolicyStrict
	}
	return &Service{
		store:    store,
		verifier: verifier,
		policy:   policy,
		now:      time.Now,
	}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Add appends username to the chat's list. It returns ErrAlreadyTracked when
// the name is present (compared case-insensitively) and, under the strict
// policy, ErrNotFound when the verifier cannot confirm the user.
func (s *Service) Add(ctx context.Context, chatID int64, username string) (AddResult, error) {
	name, err := Normalize(username)
	if err != nil {
		return AddResult{}, err
	}

	current, err := s.store.GetUsernames(ctx, chatID)
	if err != nil {
		return AddResult{}, fmt.Errorf("load usernames for chat %d: %w", chatID, err)
	}
	if indexOf(current, name) >= 0 {
		return AddResult{Username: name}, ErrAlreadyTracked
	}

	checked, verified := false, false
	if s.policy != PolicyOff && s.verifier != nil {
		checked = true
		verified = s.verifier.Exists(ctx, name)
		if !verified && s.policy == PolicyStrict {
			return AddResult{Username: name}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
	}

	updated := append(current, name)
	if err := s.store.SetUsernames(ctx, chatID, updated); err != nil {
		return AddResult{}, fmt.Errorf("save usernames for chat %d: %w", chatID, err)
	}

	logger.Info("[registry] chat %d added %s (verified=%t)", chatID, name, verified)
	s.notify(ctx, chatID, ActionAdded, name)
	return AddResult{Username: name, Checked: checked, Verified: verified}, nil
}

// List returns the chat's usernames in the order they were added.
func (s *Service) List(ctx context.Context, chatID int64) ([]string, error) {
	usernames, err := s.store.GetUsernames(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load usernames for chat %d: %w", chatID, err)
	}
	return usernames, nil
}

// Remove drops username from the chat's list. Removing a name that is not
// tracked is a no-op and reports false.
func (s *Service) Remove(ctx context.Context, chatID int64, username string) (bool, error) {
	name, err := Normalize(username)
	if err != nil {
		return false, err
	}

	current, err := s.store.GetUsernames(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("load usernames for chat %d: %w", chatID, err)
	}
	i := indexOf(current, name)
	if i < 0 {
		return false, nil
	}

	removed := current[i]
	updated := append(current[:i:i], current[i+1:]...)
	if err := s.store.SetUsernames(ctx, chatID, updated); err != nil {
		return false, fmt.Errorf("save usernames for chat %d: %w", chatID, err)
	}

	logger.Info("[registry] chat %d removed %s", chatID, removed)
	s.notify(ctx, chatID, ActionRemoved, removed)
	return true, nil
}

func (s *Service) notify(ctx context.Context, chatID int64, action, username string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, Event{
		ChatID:   chatID,
		Action:   action,
		Username: username,
		At:       s.now().UTC(),
	})
}
