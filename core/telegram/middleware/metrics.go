package middleware

import (
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/currencybot/core/telegram/helpers"
)

// UpdateObserver receives one call per handled update.
type UpdateObserver interface {
	ObserveUpdate(kind, status string)
}

// UpdateMetricsMiddleware resets the per-update reply counters and reports
// the update kind with its final status.
func UpdateMetricsMiddleware(obs UpdateObserver) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			tghelpers.ResetCounters(c)
			err := next(c)
			if obs != nil {
				status := "ok"
				if err != nil {
					status = "fail"
				}
				obs.ObserveUpdate(tghelpers.UpdateKind(c), status)
			}
			return err
		}
	}
}
