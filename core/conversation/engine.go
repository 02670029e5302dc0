// Package conversation implements the currency/date dialogue.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/currencybot/core/i18n"
	"github.com/m3rciful/currencybot/core/logger"
	"github.com/m3rciful/currencybot/core/menu"
	"github.com/m3rciful/currencybot/core/rates"
	"github.com/m3rciful/currencybot/core/session"
)

// Commands understood by the engine. Two-letter commands such as /uk switch language.
const (
	CmdStart     = "/start"
	CmdGo        = "/go"
	CmdLanguage  = "/language"
	CmdHelp      = "/help"
	CmdToday     = "/today"
	CmdYesterday = "/yesterday"
)

const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid_input"
	outcomeFail    = "fail"

	maxEchoRunes = 32
)

// RateSource looks up a single currency quote.
type RateSource interface {
	FetchRate(ctx context.Context, currency string, date time.Time) (rates.Entry, error)
}

// MenuBuilder builds localized menus.
type MenuBuilder interface {
	Build(id menu.ID, lang string) *menu.Menu
}

// Observer receives one call per handled event.
type Observer interface {
	ObserveEvent(handler, outcome string)
}

// Options carries the allow-list and clock settings.
type Options struct {
	Currencies []string
	Location   *time.Location
	Now        func() time.Time
	Observer   Observer
}

// Engine computes the reply and next session for each event.
type Engine struct {
	store      session.Store
	rates      RateSource
	loc        i18n.Localizer
	menus      MenuBuilder
	currencies []string
	allowed    map[string]struct{}
	location   *time.Location
	now        func() time.Time
	observer   Observer
}

// New wires an Engine. Currency codes are uppercased; order is kept for prompts.
func New(store session.Store, src RateSource, loc i18n.Localizer, menus MenuBuilder, opts Options) *Engine {
	e := &Engine{
		store:    store,
		rates:    src,
		loc:      loc,
		menus:    menus,
		allowed:  make(map[string]struct{}, len(opts.Currencies)),
		location: opts.Location,
		now:      opts.Now,
		observer: opts.Observer,
	}
	for _, c := range opts.Currencies {
		code := strings.ToUpper(strings.TrimSpace(c))
		if code == "" {
			continue
		}
		if _, dup := e.allowed[code]; dup {
			continue
		}
		e.allowed[code] = struct{}{}
		e.currencies = append(e.currencies, code)
	}
	if e.location == nil {
		e.location = time.Local
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Handle loads the chat session, applies ev and saves the result.
// A language hint seeds the session language on first use.
func (e *Engine) Handle(ctx context.Context, ev Event) Response {
	s, _ := e.store.Get(ctx, ev.ChatID)
	if s.Language == "" && ev.LanguageHint != "" {
		s.Language = ev.LanguageHint
	}
	next, resp := e.Step(ctx, s, ev)
	e.store.Save(ctx, ev.ChatID, next)
	return resp
}

// Step is the pure transition function: it never touches the store.
func (e *Engine) Step(ctx context.Context, s session.Session, ev Event) (session.Session, Response) {
	start := time.Now()
	prev := s.Phase

	var (
		handler, outcome string
		resp             Response
	)
	switch {
	case ev.Command != "":
		handler = commandLabel(ev.Command)
		s, resp, outcome = e.command(ctx, s, ev.Command)
	case s.Phase == session.AwaitingDate:
		handler = "date"
		s, resp, outcome = e.dateInput(ctx, s, ev.Text)
	default:
		handler = "currency"
		s, resp, outcome = e.currencyInput(s, ev.Text)
	}

	if e.observer != nil {
		e.observer.ObserveEvent(handler, outcome)
	}
	if logger.ShouldSampleDebug(logger.CONV) {
		logger.Debug(ctx, logger.CONV, "step",
			slog.String("op", handler),
			slog.String("outcome", outcome),
			slog.String("phase", prev.String()),
			slog.String("next_phase", s.Phase.String()),
			slog.String("lang", s.Language),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return s, resp
}

func (e *Engine) command(ctx context.Context, s session.Session, cmd string) (session.Session, Response, string) {
	lang := s.Language
	switch cmd {
	case CmdStart:
		return s, e.reply(i18n.Welcome, lang, menu.Start), outcomeOK
	case CmdGo:
		return s, e.currencyPrompt(lang), outcomeOK
	case CmdLanguage:
		return s, e.reply(i18n.SelectOption, lang, menu.Language), outcomeOK
	case CmdHelp:
		return s, e.reply(i18n.Help, lang, menu.None), outcomeOK
	case CmdToday, CmdYesterday:
		if s.Phase != session.AwaitingDate {
			return s, e.currencyPrompt(lang), outcomeOK
		}
		date := e.today()
		if cmd == CmdYesterday {
			date = date.AddDate(0, 0, -1)
		}
		return e.lookup(ctx, s, date)
	}

	if languagePattern.MatchString(cmd) {
		s.Language = strings.TrimPrefix(cmd, "/")
		return s, e.reply(i18n.Welcome, s.Language, menu.Start), outcomeOK
	}
	text := e.loc.Resolve(i18n.UnknownCommand, lang) + "\n" + e.loc.Resolve(i18n.Help, lang)
	return s, Response{Text: text}, outcomeInvalid
}

// commandLabel keeps metric and log labels bounded.
func commandLabel(cmd string) string {
	switch cmd {
	case CmdStart, CmdGo, CmdLanguage, CmdHelp, CmdToday, CmdYesterday:
		return strings.TrimPrefix(cmd, "/")
	}
	if languagePattern.MatchString(cmd) {
		return "set_language"
	}
	return "unknown"
}

func (e *Engine) currencyInput(s session.Session, text string) (session.Session, Response, string) {
	code := strings.ToUpper(strings.TrimSpace(text))
	if _, ok := e.allowed[code]; !ok {
		msg := e.loc.Resolve(i18n.InvalidCurrency, s.Language, logger.SanitizeLimit(text, maxEchoRunes), e.currencyList())
		return s, Response{Text: msg, Menu: e.menus.Build(menu.Currency, s.Language)}, outcomeInvalid
	}
	s.SelectCurrency(code)
	return s, e.reply(i18n.DatePrompt, s.Language, menu.Date), outcomeOK
}

func (e *Engine) dateInput(ctx context.Context, s session.Session, text string) (session.Session, Response, string) {
	date, err := time.ParseInLocation(rates.DateLayout, strings.TrimSpace(text), e.location)
	if err != nil {
		return s, e.reply(i18n.InvalidDate, s.Language, menu.Date), outcomeInvalid
	}
	return e.lookup(ctx, s, date)
}

// lookup fetches the quote for the selected currency. The session returns
// to AwaitingCurrency whatever the result.
func (e *Engine) lookup(ctx context.Context, s session.Session, date time.Time) (session.Session, Response, string) {
	currency := s.Currency
	lang := s.Language
	s.Reset()

	entry, err := e.rates.FetchRate(ctx, currency, date)
	if err != nil {
		text, outcome := e.failureText(lang, currency, date, err)
		attrs := []slog.Attr{
			slog.String("outcome", outcome),
			slog.String("currency", currency),
			slog.String("date", date.Format(rates.DateLayout)),
			slog.Any("err", err),
		}
		var coded interface{ Code() string }
		if errors.As(err, &coded) {
			attrs = append(attrs, slog.String("err_code", coded.Code()))
		}
		logger.Warn(ctx, logger.CONV, "rate_failed", attrs...)
		return s, Response{Text: text, Menu: e.menus.Build(menu.Repeat, lang)}, outcome
	}

	text := e.loc.Resolve(i18n.ExchangeCourse, lang,
		date.Format(rates.DateLayout),
		currency,
		e.formatRate(entry.PurchaseRate, lang),
		e.formatRate(entry.SaleRate, lang),
		entry.BaseCurrency,
	)
	return s, Response{Text: text, Menu: e.menus.Build(menu.Repeat, lang)}, outcomeOK
}

// failureText maps every rates.Kind to its own message; anything else gets the
// generic one. Error text is never shown to the user.
func (e *Engine) failureText(lang, currency string, date time.Time, err error) (string, string) {
	var rerr *rates.Error
	if !errors.As(err, &rerr) {
		return e.loc.Resolve(i18n.RequestProcessingError, lang), outcomeFail
	}
	day := date.Format(rates.DateLayout)
	switch rerr.Kind {
	case rates.KindSourceUnavailable:
		return e.loc.Resolve(i18n.SourceUnavailable, lang), rerr.Kind.String()
	case rates.KindDataCorrupt:
		return e.loc.Resolve(i18n.DataCorrupt, lang), rerr.Kind.String()
	case rates.KindRatesNotFound:
		return e.loc.Resolve(i18n.RatesNotFound, lang, day), rerr.Kind.String()
	case rates.KindRateNotFound:
		return e.loc.Resolve(i18n.RateNotFound, lang, day, currency), rerr.Kind.String()
	default:
		return e.loc.Resolve(i18n.RequestProcessingError, lang), outcomeFail
	}
}

// formatRate rounds half away from zero to two places and drops trailing zeros.
func (e *Engine) formatRate(v decimal.NullDecimal, lang string) string {
	if !v.Valid {
		return e.loc.Resolve(i18n.NoData, lang)
	}
	return v.Decimal.Round(2).String()
}

func (e *Engine) currencyPrompt(lang string) Response {
	return Response{
		Text: e.loc.Resolve(i18n.CurrencyPrompt, lang, e.currencyList()),
		Menu: e.menus.Build(menu.Currency, lang),
	}
}

func (e *Engine) reply(key, lang string, id menu.ID) Response {
	return Response{Text: e.loc.Resolve(key, lang), Menu: e.menus.Build(id, lang)}
}

func (e *Engine) currencyList() string {
	return strings.Join(e.currencies, ", ")
}

func (e *Engine) today() time.Time {
	y, m, d := e.now().In(e.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.location)
}
