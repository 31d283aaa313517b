package bot

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

	"github.com/Proton-105/payout-bot/internal/bot/handlers"
	"github.com/Proton-105/payout-bot/internal/state"
	"github.com/Proton-105/payout-bot/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFSM(t *testing.T) state.StateMachine {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return state.NewStateMachine(state.NewRedisStorage(client, testLogger(), time.Hour), testLogger(), client)
}

func named(name string, calls *[]string) handlers.Handler {
	return func(telebot.Context) error {
		*calls = append(*calls, name)
		return nil
	}
}

func TestRouter_Resolution(t *testing.T) {
	fsm := newTestFSM(t)
	dispatcher := NewDispatcher(fsm, testLogger())
	router := NewRouter(dispatcher, testLogger())

	var calls []string
	router.RegisterCommand(CommandStart, named("start", &calls))
	router.RegisterText("👤 Профиль", named("profile", &calls))
	router.RegisterCallback("admin", named("admin", &calls))
	dispatcher.RegisterStateHandler(state.StateProfileName, named("name-step", &calls))
	router.SetDefault(named("default", &calls))

	require.NoError(t, fsm.TransitionTo(context.Background(), 5, state.StateProfileName, nil))

	tests := []struct {
		name string
		c    telebot.Context
		want string
	}{
		{name: "command", c: testutil.NewMessage(1, "/start"), want: "start"},
		{name: "command with bot name and args", c: testutil.NewMessage(1, "/start@payout_bot ref"), want: "start"},
		{name: "reply button", c: testutil.NewMessage(1, "👤 Профиль"), want: "profile"},
		{name: "callback action", c: testutil.NewCallback(1, "admin:stats"), want: "admin"},
		{name: "wizard step", c: testutil.NewMessage(5, "Ann"), want: "name-step"},
		{name: "command wins over wizard", c: testutil.NewMessage(5, "/start"), want: "start"},
		{name: "unknown command", c: testutil.NewMessage(1, "/nope"), want: "default"},
		{name: "unknown callback", c: testutil.NewCallback(1, "legacy_button"), want: "default"},
		{name: "idle text", c: testutil.NewMessage(1, "hello"), want: "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls = nil
			require.NoError(t, router.Route(tc.c))
			assert.Equal(t, []string{tc.want}, calls)
		})
	}
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	router := NewRouter(nil, testLogger())

	var trace []string
	mw := func(name string) handlers.Middleware {
		return func(next handlers.Handler) handlers.Handler {
			return func(c telebot.Context) error {
				trace = append(trace, name)
				return next(c)
			}
		}
	}

	router.Use(mw("global-1"))
	router.Use(mw("global-2"))
	router.RegisterCommand(CommandAdmin, named("admin", &trace), mw("route-1"), mw("route-2"))

	require.NoError(t, router.Route(testutil.NewMessage(1, "/admin")))
	assert.Equal(t, []string{"global-1", "global-2", "route-1", "route-2", "admin"}, trace)
}

func TestRouter_GlobalMiddlewaresWrapUnmatchedUpdates(t *testing.T) {
	router := NewRouter(nil, testLogger())

	seen := 0
	router.Use(func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			seen++
			return next(c)
		}
	})

	require.NoError(t, router.Route(testutil.NewMessage(1, "anything")))
	assert.Equal(t, 1, seen)
}

func TestRouter_PropagatesHandlerError(t *testing.T) {
	router := NewRouter(nil, testLogger())
	boom := errors.New("boom")
	router.RegisterCommand(CommandStart, func(telebot.Context) error { return boom })

	assert.ErrorIs(t, router.Route(testutil.NewMessage(1, "/start")), boom)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/start", commandName("/start"))
	assert.Equal(t, "/start", commandName("/start@bot"))
	assert.Equal(t, "/apply", commandName("/apply now"))
	assert.Equal(t, "", commandName("start"))
	assert.Equal(t, "", commandName(""))
}
