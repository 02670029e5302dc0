// Package keyboard converts conversation menus into Telegram reply markup.
package keyboard

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/currencybot/core/menu"
)

// FromMenu builds an inline keyboard with one button row per menu row.
// Button data is sent raw so callbacks carry the same text a user could type.
// A nil or empty menu yields nil, which sends the message without markup.
func FromMenu(m *menu.Menu) *tele.ReplyMarkup {
	if m == nil || len(m.Rows) == 0 {
		return nil
	}
	inline := make([][]tele.InlineButton, 0, len(m.Rows))
	for _, row := range m.Rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, 0, len(row))
		for _, opt := range row {
			r = append(r, tele.InlineButton{Text: opt.Label, Data: opt.Data})
		}
		inline = append(inline, r)
	}
	if len(inline) == 0 {
		return nil
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// RemoveKeyboard returns a markup that hides a reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}
