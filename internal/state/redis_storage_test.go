package state

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage_SetAndGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)

	ctx := context.Background()
	userState := &UserState{
		UserID:       123,
		CurrentState: StatePayoutAmount,
		Context: map[string]interface{}{
			KeyDirection: "sub",
		},
	}

	err := storage.SetState(ctx, userState.UserID, userState)
	assert.NoError(t, err)

	result, err := storage.GetState(ctx, userState.UserID)
	assert.NoError(t, err)
	if assert.NotNil(t, result) {
		assert.Equal(t, userState.UserID, result.UserID)
		assert.Equal(t, userState.CurrentState, result.CurrentState)
		assert.Equal(t, userState.Context, result.Context)
		assert.False(t, result.UpdatedAt.IsZero())
	}
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)

	state, err := storage.GetState(context.Background(), 999)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_ClearState(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)

	ctx := context.Background()
	userState := &UserState{
		UserID:       456,
		CurrentState: StateRankValue,
		Context:      map[string]interface{}{KeyTargetUserID: 10},
	}

	require.NoError(t, storage.SetState(ctx, userState.UserID, userState))
	require.NoError(t, storage.ClearState(ctx, userState.UserID))

	state, err := storage.GetState(ctx, userState.UserID)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_ExpiresAfterTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	storage := NewRedisStorage(client, testLogger(), 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, storage.SetState(ctx, 1, &UserState{UserID: 1, CurrentState: StateBanUser}))
	assert.Equal(t, 30*time.Minute, mr.TTL(stateKey(1)))

	mr.FastForward(31 * time.Minute)

	_, err := storage.GetState(ctx, 1)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_GetAllStates(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, storage.SetState(ctx, id, &UserState{UserID: id, CurrentState: StateProfileName}))
	}
	require.NoError(t, client.Set(ctx, "wizard:state:broken", "{", 0).Err())

	states, err := storage.GetAllStates(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 3)
}
