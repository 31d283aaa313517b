package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stateKeyPattern = "wizard:state:%d"
	stateKeyScan    = "wizard:state:*"
	scanBatch       = 100
)

// DefaultTTL bounds how long an abandoned wizard survives in Redis.
const DefaultTTL = 24 * time.Hour

// RedisStorage persists wizard states as JSON values so they survive
// restarts and are shared between bot replicas. Every write refreshes the TTL.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStorage initializes a Redis-backed Storage implementation.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) Storage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
		now:    time.Now,
	}
}

// GetState returns the stored user state or ErrStateNotFound when absent.
func (s *RedisStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	raw, err := s.client.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		s.log.Error("failed to read wizard state", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	state, err := decodeState(raw)
	if err != nil {
		s.log.Error("failed to decode wizard state", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}
	return state, nil
}

// SetState saves state and stamps UpdatedAt.
func (s *RedisStorage) SetState(ctx context.Context, userID int64, state *UserState) error {
	state.UpdatedAt = s.now().UTC()

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode wizard state: %w", err)
	}

	if err := s.client.Set(ctx, stateKey(userID), raw, s.ttl).Err(); err != nil {
		s.log.Error("failed to save wizard state", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}
	return nil
}

// ClearState removes the stored state for the given user.
func (s *RedisStorage) ClearState(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		s.log.Error("failed to clear wizard state", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}
	return nil
}

// GetAllStates scans every stored state, fetching each batch with MGET.
// Undecodable entries are skipped.
func (s *RedisStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	var (
		cursor uint64
		states []*UserState
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, stateKeyScan, scanBatch).Result()
		if err != nil {
			s.log.Error("failed to scan wizard states", slog.Any("error", err))
			return nil, err
		}

		if len(keys) > 0 {
			values, err := s.client.MGet(ctx, keys...).Result()
			if err != nil {
				s.log.Error("failed to fetch wizard states", slog.Any("error", err))
				return nil, err
			}

			for i, value := range values {
				raw, ok := value.(string)
				if !ok {
					continue
				}
				state, err := decodeState([]byte(raw))
				if err != nil {
					s.log.Warn("skipping undecodable wizard state", slog.String("key", keys[i]), slog.Any("error", err))
					continue
				}
				states = append(states, state)
			}
		}

		if next == 0 {
			return states, nil
		}
		cursor = next
	}
}

func decodeState(raw []byte) (*UserState, error) {
	var state UserState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func stateKey(userID int64) string {
	return fmt.Sprintf(stateKeyPattern, userID)
}
