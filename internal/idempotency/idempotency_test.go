package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) (Manager, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewManager(NewRedisStore(client, testLogger()), testLogger()), mr
}

func TestManager_Execute(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	calls := 0
	op := func(context.Context) (interface{}, error) {
		calls++
		return "done", nil
	}

	first, err := m.Execute(ctx, "k1", time.Hour, op)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, "done", first.Response)

	second, err := m.Execute(ctx, "k1", time.Hour, op)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, "done", second.Response)
	assert.Equal(t, 1, calls)

	assert.True(t, mr.Exists("idempotency:k1"))
	assert.False(t, mr.Exists("idempotency:k1:lock"))
}

func TestManager_FailureIsNotRecorded(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, "k2", time.Hour, func(context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.False(t, mr.Exists("idempotency:k2"))

	_, err = m.Execute(ctx, "k2", time.Hour, func(context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("idempotency:k2"))
}

func TestUpdateKey(t *testing.T) {
	byID := UpdateKey(telebot.Update{ID: 5})
	assert.NotEmpty(t, byID)
	assert.Equal(t, byID, UpdateKey(telebot.Update{ID: 5, Message: &telebot.Message{ID: 9}}))
	assert.NotEqual(t, byID, UpdateKey(telebot.Update{ID: 6}))

	assert.NotEmpty(t, UpdateKey(telebot.Update{Callback: &telebot.Callback{ID: "abc"}}))
	assert.NotEmpty(t, UpdateKey(telebot.Update{Message: &telebot.Message{ID: 3, Chat: &telebot.Chat{ID: 1}}}))
	assert.Empty(t, UpdateKey(telebot.Update{}))
}

func TestGenerateKey_Deterministic(t *testing.T) {
	assert.Equal(t, GenerateKey("a", 1), GenerateKey("a", 1))
	assert.NotEqual(t, GenerateKey("a", 1), GenerateKey("a", 2))
}

func TestCleaner_RemovesKeysWithoutUsableTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "idempotency:orphan", "status", StatusCompleted).Err())
	require.NoError(t, client.Set(ctx, "idempotency:long", "1", 48*time.Hour).Err())
	require.NoError(t, client.Set(ctx, "idempotency:fresh", "1", time.Hour).Err())
	require.NoError(t, client.Set(ctx, "other:key", "1", 0).Err())

	removed := NewCleaner(client, testLogger(), DefaultTTL, time.Minute).Cleanup(ctx)

	assert.Equal(t, 2, removed)
	assert.False(t, mr.Exists("idempotency:orphan"))
	assert.False(t, mr.Exists("idempotency:long"))
	assert.True(t, mr.Exists("idempotency:fresh"))
	assert.True(t, mr.Exists("other:key"))
}
