package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/currencybot/core/telegram"
)

// TextRoute sends every text message that no command route claimed to h.
// Registered commands with a bot suffix and free-form input both land here.
func TextRoute(reg *tg.Registry, h tele.HandlerFunc) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		name := "text"
		if reg != nil {
			if cmd, ok := reg.LookupCommand(c.Text()); ok {
				name = normalizeHandlerName(cmd.Name)
			}
		}
		return handleWithSummary(c, name, start, func() error {
			return h(c)
		}, slog.String("type", "message"))
	}
	return tg.Route{Endpoint: tele.OnText, Handler: handler}
}
