package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const usernamesField = "usernames"

// RedisStore keeps each chat as a hash at <prefix><chatID>. Only the
// "usernames" field is read or written, so other fields on the hash survive.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(chatID int64) string {
	return fmt.Sprintf("%s%d", s.prefix, chatID)
}

func (s *RedisStore) GetUsernames(ctx context.Context, chatID int64) ([]string, error) {
	data, err := s.client.HGet(ctx, s.key(chatID), usernamesField).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("registry get error: %w", err)
	}

	var usernames []string
	if err := json.Unmarshal(data, &usernames); err != nil {
		return nil, fmt.Errorf("registry unmarshal error: %w", err)
	}
	if usernames == nil {
		usernames = []string{}
	}
	return usernames, nil
}

func (s *RedisStore) SetUsernames(ctx context.Context, chatID int64, usernames []string) error {
	if usernames == nil {
		usernames = []string{}
	}
	data, err := json.Marshal(usernames)
	if err != nil {
		return fmt.Errorf("registry marshal error: %w", err)
	}
	if err := s.client.HSet(ctx, s.key(chatID), usernamesField, data).Err(); err != nil {
		return fmt.Errorf("registry set error: %w", err)
	}
	return nil
}
