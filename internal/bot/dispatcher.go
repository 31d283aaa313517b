package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Proton-105/payout-bot/internal/bot/handlers"
	"github.com/Proton-105/payout-bot/internal/state"
)

// Dispatcher routes incoming updates to state-specific handlers.
type Dispatcher struct {
	fsm         state.StateMachine
	stateRoutes map[state.State]route
	log         *slog.Logger
	mu          sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry.
func NewDispatcher(fsm state.StateMachine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		fsm:         fsm,
		stateRoutes: make(map[state.State]route),
		log:         log,
	}
}

// RegisterStateHandler registers a handler for the provided state. mws run
// inside the router's global chain.
func (d *Dispatcher) RegisterStateHandler(s state.State, h handlers.Handler, mws ...handlers.Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateRoutes[s] = route{handler: h, middlewares: mws}
}

// Lookup returns the route for the wizard step userID is in. ok is false
// when the user is idle or in a state nothing handles.
func (d *Dispatcher) Lookup(ctx context.Context, userID int64) (route, bool, error) {
	if d == nil || d.fsm == nil || userID == 0 {
		return route{}, false, nil
	}

	userState, err := d.fsm.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, state.ErrStateNotFound) {
			return route{}, false, nil
		}
		return route{}, false, err
	}
	if userState == nil {
		return route{}, false, nil
	}

	d.mu.RLock()
	rt, ok := d.stateRoutes[userState.CurrentState]
	d.mu.RUnlock()

	if !ok && userState.CurrentState != state.StateIdle {
		d.log.Info("no handler registered for state", "state", userState.CurrentState, "user_id", userID)
	}

	return rt, ok, nil
}
