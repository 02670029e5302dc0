package helpers

import tele "gopkg.in/telebot.v4"

// Update kinds used for rate-limit exclusions and metrics labels.
const (
	KindMessage  = "message"
	KindCallback = "callback"
	KindOther    = "other"
)

const (
	messagesKey = "messages"
	keyboardKey = "kb"
)

// UpdateKind classifies the update carried by c.
func UpdateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil:
		return KindMessage
	default:
		return KindOther
	}
}

// InputText returns the message text or the raw callback data of the update.
func InputText(c tele.Context) string {
	if cb := c.Callback(); cb != nil {
		return cb.Data
	}
	if msg := c.Message(); msg != nil {
		return msg.Text
	}
	return ""
}

// ResetCounters clears the per-update send counters.
func ResetCounters(c tele.Context) {
	c.Set(messagesKey, 0)
	c.Set(keyboardKey, false)
}

// CountSend records one reply for the update summary log.
func CountSend(c tele.Context, withKeyboard bool) {
	n, _ := c.Get(messagesKey).(int)
	c.Set(messagesKey, n+1)
	if withKeyboard {
		c.Set(keyboardKey, true)
	}
}

// Counters returns the number of replies and whether any carried a keyboard.
func Counters(c tele.Context) (int, bool) {
	n, _ := c.Get(messagesKey).(int)
	kb, _ := c.Get(keyboardKey).(bool)
	return n, kb
}
