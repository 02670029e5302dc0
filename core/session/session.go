// Package session keeps per-chat conversation state in memory.
package session

import (
	"context"
	"strings"
)

// Phase is the step of the currency/date conversation a chat is in.
type Phase int

const (
	// AwaitingCurrency is the initial phase: the next free text is a currency code.
	AwaitingCurrency Phase = iota
	// AwaitingDate means a currency is selected and the next free text is a date.
	AwaitingDate
)

func (p Phase) String() string {
	switch p {
	case AwaitingCurrency:
		return "awaiting_currency"
	case AwaitingDate:
		return "awaiting_date"
	default:
		return "unknown"
	}
}

// Session is the per-chat conversation record.
//
// Currency is non-empty exactly when Phase is AwaitingDate; use SelectCurrency
// and Reset rather than assigning the fields directly.
type Session struct {
	Phase    Phase
	Currency string
	Language string
}

// SelectCurrency stores code and moves the session to AwaitingDate.
func (s *Session) SelectCurrency(code string) {
	s.Currency = strings.ToUpper(code)
	s.Phase = AwaitingDate
}

// Reset clears the selected currency and returns to AwaitingCurrency.
// The language is kept.
func (s *Session) Reset() {
	s.Currency = ""
	s.Phase = AwaitingCurrency
}

// Store persists sessions by chat id. Get returns a copy; callers must Save
// to publish changes.
type Store interface {
	Get(ctx context.Context, chatID int64) (Session, bool)
	Save(ctx context.Context, chatID int64, s Session)
}
