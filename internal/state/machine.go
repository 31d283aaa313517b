package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPattern = "wizard:lock:%d"
	lockTTL        = 5 * time.Second
)

// releaseLock deletes the lock only while it still carries our token, so a
// slow step never frees a lock that expired and was taken by another update.
var releaseLock = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates that a user state record does not exist.
	ErrStateNotFound = errors.New("user state not found")
	// ErrStateLocked indicates that a concurrent update for the same user holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		recorder = func(string, string) {}
	}
	transitionRecorder = recorder
}

// StateMachine describes the operations supported by the FSM controller.
type StateMachine interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	SetState(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error
	TransitionTo(ctx context.Context, userID int64, newState State, updates map[string]interface{}) error
	ClearState(ctx context.Context, userID int64) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

type machine struct {
	storage Storage
	log     *slog.Logger
	locks   *redis.Client
}

// NewStateMachine creates an FSM over storage. Writes are serialized per user
// through a Redis lock; a nil client disables locking.
func NewStateMachine(storage Storage, log *slog.Logger, redisClient *redis.Client) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage: storage,
		log:     log,
		locks:   redisClient,
	}
}

func (m *machine) GetState(ctx context.Context, userID int64) (*UserState, error) {
	return m.storage.GetState(ctx, userID)
}

func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

// SetState overwrites the user's state without checking the transition table.
func (m *machine) SetState(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error {
	return m.withLock(ctx, userID, func() error {
		return m.save(ctx, userID, state, contextData)
	})
}

// TransitionTo moves the user to newState when the table allows it. Updates
// are merged into the context collected by earlier steps; entering a wizard
// or returning to idle starts from an empty context.
func (m *machine) TransitionTo(ctx context.Context, userID int64, newState State, updates map[string]interface{}) error {
	return m.withLock(ctx, userID, func() error {
		current := StateIdle
		var collected map[string]interface{}

		stored, err := m.storage.GetState(ctx, userID)
		switch {
		case errors.Is(err, ErrStateNotFound):
		case err != nil:
			return err
		case stored != nil:
			current = stored.CurrentState
			collected = stored.Context
		}

		if !IsTransitionAllowed(current, newState) {
			m.log.Warn("invalid state transition",
				slog.Int64("user_id", userID),
				slog.String("from", string(current)),
				slog.String("to", string(newState)),
			)
			return ErrInvalidTransition
		}

		transitionRecorder(string(current), string(newState))

		if IsEntry(newState) || newState == StateIdle {
			collected = nil
		}
		return m.save(ctx, userID, newState, mergeContext(collected, updates))
	})
}

// ClearState ends any wizard for the user.
func (m *machine) ClearState(ctx context.Context, userID int64) error {
	return m.withLock(ctx, userID, func() error {
		return m.storage.ClearState(ctx, userID)
	})
}

func (m *machine) save(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error {
	return m.storage.SetState(ctx, userID, &UserState{
		UserID:       userID,
		CurrentState: state,
		Context:      contextData,
	})
}

func mergeContext(base, updates map[string]interface{}) map[string]interface{} {
	if len(base) == 0 && len(updates) == 0 {
		return nil
	}

	merged := make(map[string]interface{}, len(base)+len(updates))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	return merged
}

func (m *machine) withLock(ctx context.Context, userID int64, fn func() error) error {
	if m.locks == nil {
		return fn()
	}

	key := fmt.Sprintf(lockKeyPattern, userID)
	token := uuid.NewString()

	acquired, err := m.locks.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire user state lock", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}
	if !acquired {
		m.log.Warn("user state lock already held", slog.Int64("user_id", userID))
		return ErrStateLocked
	}

	defer func() {
		if err := releaseLock.Run(context.WithoutCancel(ctx), m.locks, []string{key}, token).Err(); err != nil {
			m.log.Error("failed to release user state lock", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}()

	return fn()
}
