package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	telebot "gopkg.in/telebot.v3"
)

// GenerateKey builds a deterministic key using all provided parts.
func GenerateKey(parts ...interface{}) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// UpdateKey identifies a Telegram update across redeliveries. It prefers the
// update id and falls back to the callback or message identity.
func UpdateKey(u telebot.Update) string {
	switch {
	case u.ID != 0:
		return GenerateKey("update", u.ID)
	case u.Callback != nil && u.Callback.ID != "":
		return GenerateKey("callback", u.Callback.ID)
	case u.Message != nil && u.Message.ID != 0:
		chatID := int64(0)
		if u.Message.Chat != nil {
			chatID = u.Message.Chat.ID
		}
		return GenerateKey("message", chatID, u.Message.ID)
	default:
		return ""
	}
}
