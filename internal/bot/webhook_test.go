package bot

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/payout-bot/internal/testutil"
)

type fakeFactory struct {
	last *testutil.FakeContext
}

func (f *fakeFactory) NewContext(u telebot.Update) telebot.Context {
	text := ""
	if u.Message != nil {
		text = u.Message.Text
	}
	f.last = testutil.NewMessage(1, text)
	return f.last
}

type routerFunc func(telebot.Context) error

func (f routerFunc) Route(c telebot.Context) error { return f(c) }

const updateBody = `{"update_id":10,"message":{"message_id":1,"from":{"id":1},"chat":{"id":1,"type":"private"},"text":"/start"}}`

func TestWebhookHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		secret     string
		header     string
		body       string
		routeErr   error
		wantStatus int
		wantBody   string
	}{
		{name: "handled", method: http.MethodPost, body: updateBody, wantStatus: http.StatusOK},
		{name: "handler failure", method: http.MethodPost, body: updateBody, routeErr: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantBody: "db down"},
		{name: "bad body", method: http.MethodPost, body: "{", wantStatus: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, wantStatus: http.StatusMethodNotAllowed},
		{name: "wrong secret", method: http.MethodPost, secret: "s3cret", header: "nope", body: updateBody, wantStatus: http.StatusUnauthorized},
		{name: "right secret", method: http.MethodPost, secret: "s3cret", header: "s3cret", body: updateBody, wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			factory := &fakeFactory{}
			var routed telebot.Context
			router := routerFunc(func(c telebot.Context) error {
				routed = c
				return tc.routeErr
			})

			h := NewWebhookHandler(factory, router, tc.secret, testLogger())
			req := httptest.NewRequest(tc.method, "/webhook", strings.NewReader(tc.body))
			if tc.header != "" {
				req.Header.Set(secretTokenHeader, tc.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Empty(t, rec.Body.String())
				require.NotNil(t, routed)
				assert.Equal(t, "/start", routed.Text())
			}
			if tc.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tc.wantBody)
			}
		})
	}
}
