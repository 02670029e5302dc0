package router

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/currencybot/core/logger"
	tg "github.com/m3rciful/currencybot/core/telegram"
)

// CommandRoutes binds every registered command to h. Commands not in the
// registry, such as /uk, reach h through TextRoute.
func CommandRoutes(reg *tg.Registry, h tele.HandlerFunc) []tg.Route {
	if reg == nil || h == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for _, cmd := range cmds {
		name := normalizeHandlerName(cmd.Name)
		routes = append(routes, tg.Route{
			Endpoint: cmd.Name,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, name, time.Now(), func() error {
					return h(c)
				}, slog.String("type", "command"))
			},
		})
	}
	return routes
}

// Routes assembles command, text and callback routes for h.
func Routes(reg *tg.Registry, h tele.HandlerFunc) []tg.Route {
	routes := CommandRoutes(reg, h)
	routes = append(routes, TextRoute(reg, h), CallbackRoute(reg, h))
	logger.Event(context.Background(), logger.TWire, slog.LevelInfo, "complete",
		slog.Int("routes", len(routes)),
	)
	return routes
}
