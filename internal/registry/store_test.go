package registry

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streak-bot/internal/db"
)

// exerciseStore runs the behaviour every Store backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	got, err := store.GetUsernames(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)

	require.NoError(t, store.SetUsernames(ctx, -100, []string{"alice", "bob"}))
	got, err = store.GetUsernames(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, got)

	require.NoError(t, store.SetUsernames(ctx, -100, []string{"bob"}))
	got, err = store.GetUsernames(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, got)

	require.NoError(t, store.SetUsernames(ctx, -100, nil))
	got, err = store.GetUsernames(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)

	other, err := store.GetUsernames(ctx, 200)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	in := []string{"alice"}
	require.NoError(t, store.SetUsernames(ctx, 1, in))
	in[0] = "mallory"

	got, _ := store.GetUsernames(ctx, 1)
	got[0] = "eve"

	again, _ := store.GetUsernames(ctx, 1)
	assert.Equal(t, []string{"alice"}, again)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseStore(t, NewRedisStore(client, "registry:"))
}

func TestRedisStore_MergesOnlyUsernamesField(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	mr.HSet("registry:42", "title", "Study group")
	store := NewRedisStore(client, "registry:")
	require.NoError(t, store.SetUsernames(context.Background(), 42, []string{"alice"}))

	assert.Equal(t, "Study group", mr.HGet("registry:42", "title"))
	assert.Equal(t, `["alice"]`, mr.HGet("registry:42", "usernames"))
}

func TestRedisStore_CorruptDocument(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	mr.HSet("registry:1", "usernames", "{not a list")
	_, err := NewRedisStore(client, "registry:").GetUsernames(context.Background(), 1)
	assert.Error(t, err)
}

// TestPostgresStore requires a disposable database in TEST_DB_DSN.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	conn, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer conn.Close()
	if err := conn.Ping(); err != nil {
		t.Skipf("Postgres not available: %v", err)
	}

	database := &db.Database{Conn: conn}
	require.NoError(t, database.AutoMigrate(context.Background()))
	_, err = conn.Exec(`DELETE FROM chat_registry WHERE chat_id IN (-100, 200)`)
	require.NoError(t, err)

	exerciseStore(t, NewPostgresStore(conn))
}
