package bot

import (
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/bot/handlers"
	"github.com/Proton-105/payout-bot/internal/bot/keyboard"
)

type route struct {
	handler     handlers.Handler
	middlewares []handlers.Middleware
}

// wrap applies the route's own middlewares, first one outermost.
func (rt route) wrap() handlers.Handler {
	wrapped := rt.handler
	for i := len(rt.middlewares) - 1; i >= 0; i-- {
		wrapped = rt.middlewares[i](wrapped)
	}
	return wrapped
}

// Router dispatches commands, reply buttons, callbacks, and state-aware updates.
type Router struct {
	mu           sync.RWMutex
	commands     map[string]route
	texts        map[string]route
	callbacks    map[string]route
	dispatcher   *Dispatcher
	defaultRoute route
	middlewares  []handlers.Middleware
	log          *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(dispatcher *Dispatcher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:    make(map[string]route),
		texts:       make(map[string]route),
		callbacks:   make(map[string]route),
		dispatcher:  dispatcher,
		middlewares: make([]handlers.Middleware, 0),
		log:         log,
	}
}

// RegisterCommand registers a handler for a bot command such as "/start".
func (r *Router) RegisterCommand(cmd string, h handlers.Handler, mws ...handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd] = route{handler: h, middlewares: mws}
}

// RegisterText registers a handler for an exact message text, used for reply keyboard buttons.
func (r *Router) RegisterText(text string, h handlers.Handler, mws ...handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts[text] = route{handler: h, middlewares: mws}
}

// RegisterCallback registers a handler for the action part of callback data.
func (r *Router) RegisterCallback(unique string, h handlers.CallbackHandler, mws ...handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[unique] = route{handler: h, middlewares: mws}
}

// Use appends a middleware to the global chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// SetDefault sets the fallback handler for unmatched updates.
func (r *Router) SetDefault(h handlers.Handler, mws ...handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultRoute = route{handler: h, middlewares: mws}
}

// Route runs the update through the global middlewares and the matching handler.
// Resolution order is command, reply button, current wizard step, default.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	return r.applyMiddlewares(r.dispatch)(c)
}

func (r *Router) dispatch(c telebot.Context) error {
	rt, ok, err := r.resolve(c)
	if err != nil {
		return err
	}
	if !ok {
		r.log.Info("no handler for update", slog.Int64("update_id", int64(c.Update().ID)))
		return nil
	}

	return rt.wrap()(c)
}

func (r *Router) resolve(c telebot.Context) (route, bool, error) {
	if cb := c.Callback(); cb != nil {
		unique, _, err := keyboard.DecodeCallback(cb.Data)
		if err != nil {
			unique = cb.Data
		}
		if rt, ok := r.lookup(r.callbacks, unique); ok {
			return rt, true, nil
		}
		return r.fallback()
	}

	if c.Message() == nil {
		return route{}, false, nil
	}

	text := strings.TrimSpace(c.Text())
	if cmd := commandName(text); cmd != "" {
		if rt, ok := r.lookup(r.commands, cmd); ok {
			return rt, true, nil
		}
	}

	if rt, ok := r.lookup(r.texts, text); ok {
		return rt, true, nil
	}

	if sender := c.Sender(); sender != nil && r.dispatcher != nil {
		rt, ok, err := r.dispatcher.Lookup(handlers.RequestContext(c), sender.ID)
		if err != nil {
			return route{}, false, err
		}
		if ok {
			return rt, true, nil
		}
	}

	return r.fallback()
}

func (r *Router) lookup(routes map[string]route, key string) (route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := routes[key]
	return rt, ok && rt.handler != nil
}

func (r *Router) fallback() (route, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultRoute, r.defaultRoute.handler != nil, nil
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	middlewares := r.middlewaresSnapshot()
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) middlewaresSnapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}
