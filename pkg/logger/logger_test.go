package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskingHandler_MasksSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewTextHandler(&buf, nil)))

	log.Info("connecting",
		slog.String("token", "123:ABC"),
		slog.String("user", "alice"),
		slog.Group("db", slog.String("dsn", "postgres://secret"), slog.Int("pool", 5)),
	)

	out := buf.String()
	assert.NotContains(t, out, "123:ABC")
	assert.NotContains(t, out, "postgres://secret")
	assert.Contains(t, out, "token=***")
	assert.Contains(t, out, "db.dsn=***")
	assert.Contains(t, out, "user=alice")
	assert.Contains(t, out, "db.pool=5")
}

func TestMaskingHandler_ScrubsBotTokens(t *testing.T) {
	var buf bytes.Buffer
	const token = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1"
	log := slog.New(NewMaskingHandler(slog.NewTextHandler(&buf, nil))).
		With(slog.String("bot_token", token), slog.Int64("user_id", 42))

	log.Error("send failed",
		slog.Any("error", errors.New("Post \"https://api.telegram.org/bot"+token+"/sendMessage\": timeout")),
		slog.String("wallet", "TXabc"),
	)

	out := buf.String()
	assert.NotContains(t, out, token)
	assert.NotContains(t, out, "TXabc")
	assert.Contains(t, out, "bot_token=***")
	assert.Contains(t, out, "user_id=42")
	assert.Contains(t, out, "sendMessage")
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	testCases := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{name: "debug", input: "debug", want: slog.LevelDebug},
		{name: "warn alias", input: "WARNING", want: slog.LevelWarn},
		{name: "error", input: "error", want: slog.LevelError},
		{name: "unknown falls back to info", input: "loud", want: slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			SetLevel(tc.input)
			assert.Equal(t, tc.want, level.Level())
		})
	}
}

func TestFanoutHandler_WritesToAll(t *testing.T) {
	var first, second bytes.Buffer
	handler := &fanoutHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&first, nil),
		slog.NewTextHandler(&second, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	log := slog.New(handler).With(slog.String("component", "test"))

	log.Info("info record")
	log.Error("error record")

	assert.Contains(t, first.String(), "info record")
	assert.Contains(t, first.String(), "error record")
	assert.NotContains(t, second.String(), "info record")
	assert.Contains(t, second.String(), "component=test")
}

func TestMiddleware_PropagatesCorrelationID(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", nil)
	req.Header.Set(CorrelationIDHeader, "req-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rec.Header().Get(CorrelationIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NotEmpty(t, seen)
	assert.NotEqual(t, "req-1", seen)
}

func TestCorrelationIDFromContext_Empty(t *testing.T) {
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
	assert.NotEmpty(t, CorrelationIDFromContext(WithCorrelationID(context.Background(), "")))
}
