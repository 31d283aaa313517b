// Package testutil holds fakes shared by handler and router tests.
package testutil

import (
	"errors"
	"fmt"
	"sync"

	telebot "gopkg.in/telebot.v3"
)

// Sent is one outgoing message captured by FakeContext.
type Sent struct {
	Text   string
	Markup *telebot.ReplyMarkup
}

// FakeContext is an in-memory telebot.Context. Only the methods the bot
// uses are implemented; calling any other method panics.
type FakeContext struct {
	telebot.Context

	mu        sync.Mutex
	update    telebot.Update
	store     map[string]interface{}
	sent      []Sent
	responses []*telebot.CallbackResponse
	edits     []string

	// SendErr is returned by Send when set.
	SendErr error
}

// NewMessage returns a context for a private text message from userID.
func NewMessage(userID int64, text string) *FakeContext {
	return &FakeContext{
		update: telebot.Update{
			ID: int(userID%1000) + 1,
			Message: &telebot.Message{
				ID:     1,
				Sender: &telebot.User{ID: userID},
				Chat:   &telebot.Chat{ID: userID},
				Text:   text,
			},
		},
		store: make(map[string]interface{}),
	}
}

// NewCallback returns a context for an inline button press by userID.
func NewCallback(userID int64, data string) *FakeContext {
	return &FakeContext{
		update: telebot.Update{
			ID: int(userID%1000) + 1,
			Callback: &telebot.Callback{
				ID:     fmt.Sprintf("cb-%d", userID),
				Sender: &telebot.User{ID: userID},
				Data:   data,
				Message: &telebot.Message{
					ID:   2,
					Chat: &telebot.Chat{ID: userID},
					Text: "card",
				},
			},
		},
		store: make(map[string]interface{}),
	}
}

func (c *FakeContext) Update() telebot.Update { return c.update }

func (c *FakeContext) Callback() *telebot.Callback { return c.update.Callback }

func (c *FakeContext) Message() *telebot.Message {
	if c.update.Callback != nil {
		return c.update.Callback.Message
	}
	return c.update.Message
}

func (c *FakeContext) Sender() *telebot.User {
	if c.update.Callback != nil {
		return c.update.Callback.Sender
	}
	if c.update.Message != nil {
		return c.update.Message.Sender
	}
	return nil
}

func (c *FakeContext) Text() string {
	if m := c.Message(); m != nil {
		return m.Text
	}
	return ""
}

func (c *FakeContext) Send(what interface{}, opts ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SendErr != nil {
		return c.SendErr
	}

	msg := Sent{Text: fmt.Sprint(what)}
	for _, opt := range opts {
		if markup, ok := opt.(*telebot.ReplyMarkup); ok {
			msg.Markup = markup
		}
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *FakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	if c.update.Callback == nil {
		return errors.New("telebot: context has no callback")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(resp) == 0 {
		c.responses = append(c.responses, &telebot.CallbackResponse{})
		return nil
	}
	c.responses = append(c.responses, resp[0])
	return nil
}

func (c *FakeContext) Edit(what interface{}, opts ...interface{}) error {
	if c.update.Callback == nil {
		return errors.New("telebot: context has no callback")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits = append(c.edits, fmt.Sprint(what))
	return nil
}

func (c *FakeContext) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *FakeContext) Set(key string, val interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = val
}

// Sent returns every captured outgoing message.
func (c *FakeContext) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Texts returns the text of every captured outgoing message.
func (c *FakeContext) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	texts := make([]string, 0, len(c.sent))
	for _, m := range c.sent {
		texts = append(texts, m.Text)
	}
	return texts
}

// LastText returns the most recent outgoing message text, or "".
func (c *FakeContext) LastText() string {
	texts := c.Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// Responses returns the captured callback answers.
func (c *FakeContext) Responses() []*telebot.CallbackResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*telebot.CallbackResponse(nil), c.responses...)
}

// Edits returns the captured message edits.
func (c *FakeContext) Edits() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.edits...)
}
