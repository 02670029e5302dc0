package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/currencybot/core/telegram"
)

// CallbackRoute sends inline button presses to h. Buttons carry raw command or
// input text, so the label is the command name when the data is a registered
// command and "callback.input" otherwise.
func CallbackRoute(reg *tg.Registry, h tele.HandlerFunc) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		name := "callback.input"
		if reg != nil {
			if cmd, ok := reg.LookupCommand(cb.Data); ok {
				name = "callback." + normalizeHandlerName(cmd.Name)
			}
		}
		return handleWithSummary(c, name, start, func() error {
			return h(c)
		}, slog.String("type", "callback"))
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
