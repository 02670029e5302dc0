package helpers

import (
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"
)

type sentMessage struct {
	what any
	opts []any
}

// fakeContext implements the parts of tele.Context the helpers touch.
type fakeContext struct {
	tele.Context

	mu     sync.Mutex
	update tele.Update
	store  map[string]any
	sent   []sentMessage
	err    error
	delay  time.Duration
}

func newFakeContext(upd tele.Update) *fakeContext {
	return &fakeContext{update: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update      { return f.update }
func (f *fakeContext) Message() *tele.Message   { return f.update.Message }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }

func (f *fakeContext) Chat() *tele.Chat {
	switch {
	case f.update.Message != nil:
		return f.update.Message.Chat
	case f.update.Callback != nil && f.update.Callback.Message != nil:
		return f.update.Callback.Message.Chat
	}
	return nil
}

func (f *fakeContext) Sender() *tele.User {
	switch {
	case f.update.Message != nil:
		return f.update.Message.Sender
	case f.update.Callback != nil:
		return f.update.Callback.Sender
	}
	return nil
}

func (f *fakeContext) Get(key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store[key]
}

func (f *fakeContext) Set(key string, val any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = val
}

func (f *fakeContext) Send(what any, opts ...any) error {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{what: what, opts: opts})
	return nil
}

func (f *fakeContext) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}
