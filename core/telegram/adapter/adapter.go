// Package adapter turns telebot updates into conversation events and sends
// the engine's reply back to the chat.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/currencybot/core/conversation"
	"github.com/m3rciful/currencybot/core/i18n"
	"github.com/m3rciful/currencybot/core/logger"
	"github.com/m3rciful/currencybot/core/session"
	tghelpers "github.com/m3rciful/currencybot/core/telegram/helpers"
	"github.com/m3rciful/currencybot/core/telegram/keyboard"
)

// Engine handles one normalized event.
type Engine interface {
	Handle(ctx context.Context, ev conversation.Event) conversation.Response
}

// SendFunc delivers a reply to the chat of c.
type SendFunc func(c tele.Context, text string, markup *tele.ReplyMarkup) error

// Option customizes an Adapter.
type Option func(*Adapter)

// WithSender replaces helpers.SendText.
func WithSender(send SendFunc) Option {
	return func(a *Adapter) {
		if send != nil {
			a.send = send
		}
	}
}

// WithLocalizer enables the generic processing-error reply when the engine
// panics. Without it the panic is only logged and returned.
func WithLocalizer(loc i18n.Localizer) Option {
	return func(a *Adapter) {
		a.loc = loc
	}
}

// Adapter is the single telebot handler behind every route.
type Adapter struct {
	engine Engine
	locker *session.Locker
	send   SendFunc
	loc    i18n.Localizer
}

// New builds an Adapter. A nil locker gets a fresh one.
func New(engine Engine, locker *session.Locker, opts ...Option) *Adapter {
	if locker == nil {
		locker = session.NewLocker()
	}
	a := &Adapter{engine: engine, locker: locker, send: tghelpers.SendText}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle processes one message or callback. Updates of the same chat are
// handled one at a time, and the reply is queued before the next one starts.
func (a *Adapter) Handle(c tele.Context) error {
	chatID := tghelpers.ChatID(c)
	if chatID == 0 {
		return nil
	}
	if c.Callback() != nil {
		// Stops the button spinner; the reply comes as a new message.
		_ = c.Respond()
	}

	var hint string
	if user := c.Sender(); user != nil {
		hint = user.LanguageCode
	}
	ev := conversation.NewEvent(chatID, tghelpers.InputText(c), hint)
	ctx := tghelpers.BuildContext(c)

	unlock := a.locker.Lock(chatID)
	defer unlock()

	resp, err := a.handle(ctx, ev)
	if err != nil {
		if a.loc == nil {
			return err
		}
		text := a.loc.Resolve(i18n.RequestProcessingError, hint)
		return errors.Join(err, a.send(c, text, nil))
	}
	if resp.Text == "" {
		return nil
	}
	return a.send(c, resp.Text, keyboard.FromMenu(resp.Menu))
}

// handle runs the engine and turns a panic into an error. The session is
// left as it was before the event.
func (a *Adapter) handle(ctx context.Context, ev conversation.Event) (resp conversation.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, logger.CONV, "panic",
				slog.String("status", "fail"),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("adapter: engine panic: %v", r)
		}
	}()
	return a.engine.Handle(ctx, ev), nil
}
