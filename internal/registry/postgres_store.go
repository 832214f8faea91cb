package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore keeps one chat_registry row per chat. See db.AutoMigrate for
// the table definition.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetUsernames(ctx context.Context, chatID int64) ([]string, error) {
	var raw []byte
	query := "SELECT usernames FROM chat_registry WHERE chat_id = $1"

	err := s.db.QueryRowContext(ctx, query, chatID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("registry get error: %w", err)
	}

	var usernames []string
	if err := json.Unmarshal(raw, &usernames); err != nil {
		return nil, fmt.Errorf("registry unmarshal error: %w", err)
	}
	if usernames == nil {
		usernames = []string{}
	}
	return usernames, nil
}

func (s *PostgresStore) SetUsernames(ctx context.Context, chatID int64, usernames []string) error {
	if usernames == nil {
		usernames = []string{}
	}
	data, err := json.Marshal(usernames)
	if err != nil {
		return fmt.Errorf("registry marshal error: %w", err)
	}

	query := `
		INSERT INTO chat_registry (chat_id, usernames, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (chat_id) DO UPDATE
		SET usernames = EXCLUDED.usernames, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, chatID, string(data)); err != nil {
		return fmt.Errorf("registry set error: %w", err)
	}
	return nil
}
