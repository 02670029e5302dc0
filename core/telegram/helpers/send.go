package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/currencybot/core/logger"
	"github.com/m3rciful/currencybot/core/telegram/sender"
)

var (
	globalDispatcher atomic.Pointer[sender.Dispatcher]
	globalObserver   atomic.Pointer[sendObserver]
)

type sendObserver struct{ sender.Observer }

// SetDispatcher wires the asynchronous sender used by the send helpers.
// With no dispatcher, sends run inline.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// SetObserver records the status of sends that bypass the dispatcher.
func SetObserver(o sender.Observer) {
	if o == nil {
		globalObserver.Store(nil)
		return
	}
	globalObserver.Store(&sendObserver{o})
}

func runInline(run func() error) error {
	err := run()
	if o := globalObserver.Load(); o != nil {
		status := sender.StatusOK
		if err != nil {
			status = sender.StatusFail
		}
		o.ObserveSend(status)
	}
	return err
}

// fullQueueWait bounds how long a handler waits for its chat's queue.
var fullQueueWait = 3 * time.Second

// sendAsync queues run on the chat's worker. A full queue is waited on so
// replies to one chat keep their order. Only when the wait runs out, or the
// dispatcher is closed, does run execute inline; such a reply may overtake
// replies still queued for the chat.
func sendAsync(c tele.Context, action string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return runInline(run)
	}

	ctx := BuildContext(c)
	err := disp.EnqueueWait(ctx, ChatID(c), action, run, fullQueueWait)
	if err == nil {
		return nil
	}
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return runInline(run)
	}
	return err
}

// SendText sends plain text with an optional reply markup to the current chat.
// Text is sent without a parse mode so rate values and user input are never
// interpreted as markup.
func SendText(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ReplyMarkup: markup}
	if err := sendAsync(c, "send.text", func() error {
		return c.Send(text, opts)
	}); err != nil {
		return err
	}
	CountSend(c, markup != nil)
	return nil
}
