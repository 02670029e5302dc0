package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/currencybot/core/i18n"
	"github.com/m3rciful/currencybot/core/menu"
	"github.com/m3rciful/currencybot/core/rates"
	"github.com/m3rciful/currencybot/core/session"
)

type mockRates struct {
	mock.Mock
}

func (m *mockRates) FetchRate(ctx context.Context, currency string, date time.Time) (rates.Entry, error) {
	args := m.Called(ctx, currency, date)
	return args.Get(0).(rates.Entry), args.Error(1)
}

type fakeLocalizer struct{}

func (fakeLocalizer) Resolve(key, lang string, args ...any) string {
	parts := []string{lang + ":" + key}
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, "|")
}

func (fakeLocalizer) Languages() []string { return []string{"en"} }

type recordingObserver struct {
	events []string
}

func (o *recordingObserver) ObserveEvent(handler, outcome string) {
	o.events = append(o.events, handler+":"+outcome)
}

var (
	may15 = time.Date(2021, time.May, 15, 0, 0, 0, 0, time.UTC)
	now   = time.Date(2021, time.May, 16, 23, 30, 0, 0, time.UTC)
)

func onDate(want time.Time) any {
	return mock.MatchedBy(func(d time.Time) bool { return d.Equal(want) })
}

func entry(purchase, sale string) rates.Entry {
	e := rates.Entry{BaseCurrency: "UAH", Currency: "USD"}
	if purchase != "" {
		e.PurchaseRate = decimal.NewNullDecimal(decimal.RequireFromString(purchase))
	}
	if sale != "" {
		e.SaleRate = decimal.NewNullDecimal(decimal.RequireFromString(sale))
	}
	return e
}

type fixture struct {
	engine *Engine
	store  *session.MemoryStore
	rates  *mockRates
	obs    *recordingObserver
}

func newFixture(t *testing.T, loc i18n.Localizer) *fixture {
	t.Helper()
	if loc == nil {
		cat, err := i18n.NewCatalog("en")
		require.NoError(t, err)
		loc = cat
	}
	f := &fixture{store: session.NewMemoryStore(), rates: &mockRates{}, obs: &recordingObserver{}}
	f.engine = New(f.store, f.rates, loc, menu.NewBuilder(loc, []string{"USD", "EUR"}), Options{
		Currencies: []string{"usd", "EUR"},
		Location:   time.UTC,
		Now:        func() time.Time { return now },
		Observer:   f.obs,
	})
	t.Cleanup(func() { f.rates.AssertExpectations(t) })
	return f
}

func awaitingDate(currency, lang string) session.Session {
	s := session.Session{Language: lang}
	s.SelectCurrency(currency)
	return s
}

func TestStartOnNewChat(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resp := f.engine.Handle(ctx, NewEvent(10, "/start", ""))
	assert.Equal(t, "Hello, the bot allows you to get currency rates to UAH from PrivatBank.", resp.Text)
	require.NotNil(t, resp.Menu)
	assert.Equal(t, menu.Start, resp.Menu.ID)

	s, ok := f.store.Get(ctx, 10)
	require.True(t, ok)
	assert.Equal(t, session.AwaitingCurrency, s.Phase)
	assert.Empty(t, s.Currency)
}

func TestStartUsesLanguageHint(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resp := f.engine.Handle(ctx, NewEvent(11, "/start", "uk"))
	assert.Equal(t, "Привіт! Бот дозволяє отримувати курси валют до гривні від ПриватБанку.", resp.Text)
	assert.Equal(t, "Почати", resp.Menu.Rows[0][0].Label)

	s, _ := f.store.Get(ctx, 11)
	assert.Equal(t, "uk", s.Language)

	resp = f.engine.Handle(ctx, NewEvent(11, "/start", "ru"))
	assert.Contains(t, resp.Text, "Привіт!")
}

func TestGoNeverChangesSession(t *testing.T) {
	f := newFixture(t, nil)
	want := "Select the currency on the on-screen keyboard or send the currency code to the chat.\nList of available currencies: USD, EUR"

	for _, s := range []session.Session{{}, awaitingDate("USD", "en")} {
		next, resp := f.engine.Step(context.Background(), s, NewEvent(1, "/go", ""))
		assert.Equal(t, s, next)
		assert.Equal(t, want, resp.Text)
		require.NotNil(t, resp.Menu)
		assert.Equal(t, menu.Currency, resp.Menu.ID)
	}
}

func TestCurrencyAccepted(t *testing.T) {
	f := newFixture(t, nil)

	next, resp := f.engine.Step(context.Background(), session.Session{}, NewEvent(1, "USD", ""))
	assert.Equal(t, "USD", next.Currency)
	assert.Equal(t, session.AwaitingDate, next.Phase)
	assert.Equal(t, "Select a date on the on-screen keyboard or send a date in the format dd.MM.yyyy to the chat. Example 15.05.2021", resp.Text)
	assert.Equal(t, menu.Date, resp.Menu.ID)

	next, _ = f.engine.Step(context.Background(), session.Session{}, NewEvent(1, " eur ", ""))
	assert.Equal(t, "EUR", next.Currency)
}

func TestCurrencyRejected(t *testing.T) {
	f := newFixture(t, nil)
	start := session.Session{Language: "en"}

	next, resp := f.engine.Step(context.Background(), start, NewEvent(1, "USDT", ""))
	assert.Equal(t, start, next)
	assert.Equal(t, "Currency USDT is not available. Please try again.\nList of available currencies: USD, EUR", resp.Text)
	assert.Equal(t, menu.Currency, resp.Menu.ID)
}

func TestDateLookupSuccess(t *testing.T) {
	f := newFixture(t, nil)
	f.rates.On("FetchRate", mock.Anything, "USD", onDate(may15)).Return(entry("26.5", "27.0"), nil).Once()

	next, resp := f.engine.Step(context.Background(), awaitingDate("USD", ""), NewEvent(1, "15.05.2021", ""))
	assert.Equal(t, "Date: 15.05.2021\nCurrency: USD\nBuy rate: 26.5 UAH\nSell rate: 27 UAH", resp.Text)
	assert.Empty(t, next.Currency)
	assert.Equal(t, session.AwaitingCurrency, next.Phase)
	require.NotNil(t, resp.Menu)
	assert.Equal(t, menu.Repeat, resp.Menu.ID)

	pos := -1
	for _, part := range []string{"15.05.2021", "USD", "26.5", "27", "UAH"} {
		idx := strings.Index(resp.Text[pos+1:], part)
		require.GreaterOrEqual(t, idx, 0, "%q not found after position %d", part, pos)
		pos += idx + 1
	}
}

func TestDateMalformed(t *testing.T) {
	f := newFixture(t, nil)
	start := awaitingDate("USD", "")

	for _, input := range []string{"15.05.20211", "2021-05-15", "1.5.2021", "31.02.2021", "tomorrow"} {
		next, resp := f.engine.Step(context.Background(), start, NewEvent(1, input, ""))
		assert.Equal(t, start, next, input)
		assert.Equal(t, "Incorrect date format. Please use the format dd.MM.yyyy", resp.Text, input)
		assert.Equal(t, menu.Date, resp.Menu.ID, input)
	}
	f.rates.AssertNotCalled(t, "FetchRate", mock.Anything, mock.Anything, mock.Anything)
}

func TestMissingCommercialRatesRenderNoData(t *testing.T) {
	f := newFixture(t, nil)
	f.rates.On("FetchRate", mock.Anything, "USD", onDate(may15)).Return(entry("", "28.1"), nil).Once()

	_, resp := f.engine.Step(context.Background(), awaitingDate("USD", "ru"), NewEvent(1, "15.05.2021", ""))
	assert.Equal(t, "Дата: 15.05.2021\nВалюта: USD\nКурс покупки: нет данных UAH\nКурс продажи: 28.1 UAH", resp.Text)
}

func TestRateRounding(t *testing.T) {
	tests := []struct{ in, want string }{
		{"26.555", "26.56"},
		{"26.545", "26.55"},
		{"26.544", "26.54"},
		{"27.004", "27"},
		{"27.10", "27.1"},
		{"0.005", "0.01"},
	}
	f := newFixture(t, fakeLocalizer{})
	for _, tt := range tests {
		got := f.engine.formatRate(decimal.NewNullDecimal(decimal.RequireFromString(tt.in)), "en")
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "en:no_data", f.engine.formatRate(decimal.NullDecimal{}, "en"))
}

func TestRateFailuresMapToMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    string
		outcome string
	}{
		{"unavailable", &rates.Error{Kind: rates.KindSourceUnavailable}, "en:source_unavailable", "unavailable"},
		{"corrupt", &rates.Error{Kind: rates.KindDataCorrupt}, "en:data_corrupt", "corrupt"},
		{"no table", &rates.Error{Kind: rates.KindRatesNotFound}, "en:rates_not_found|15.05.2021", "rates_not_found"},
		{"no currency", &rates.Error{Kind: rates.KindRateNotFound, Currency: "EUR"}, "en:rate_not_found|15.05.2021|EUR", "rate_not_found"},
		{"wrapped", fmt.Errorf("lookup: %w", &rates.Error{Kind: rates.KindDataCorrupt}), "en:data_corrupt", "corrupt"},
		{"unknown kind", &rates.Error{Kind: rates.Kind(99)}, "en:request_processing_error", "fail"},
		{"unclassified", errors.New("%s internal detail"), "en:request_processing_error", "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fakeLocalizer{})
			f.rates.On("FetchRate", mock.Anything, "EUR", onDate(may15)).Return(rates.Entry{}, tt.err).Once()

			next, resp := f.engine.Step(context.Background(), awaitingDate("EUR", "en"), NewEvent(1, "15.05.2021", ""))
			assert.Equal(t, tt.want, resp.Text)
			assert.NotContains(t, resp.Text, "internal detail")
			assert.Equal(t, session.AwaitingCurrency, next.Phase)
			assert.Empty(t, next.Currency)
			assert.Equal(t, "en", next.Language)
			assert.Equal(t, menu.Repeat, resp.Menu.ID)
			assert.Equal(t, []string{"date:" + tt.outcome}, f.obs.events)
		})
	}
}

func TestTodayAndYesterday(t *testing.T) {
	f := newFixture(t, nil)
	may16 := time.Date(2021, time.May, 16, 0, 0, 0, 0, time.UTC)
	f.rates.On("FetchRate", mock.Anything, "USD", onDate(may16)).Return(entry("26.9", "27.3"), nil).Once()
	f.rates.On("FetchRate", mock.Anything, "USD", onDate(may15)).Return(entry("26.5", "27"), nil).Once()

	next, resp := f.engine.Step(context.Background(), awaitingDate("USD", ""), NewEvent(1, "/today", ""))
	assert.True(t, strings.HasPrefix(resp.Text, "Date: 16.05.2021\n"), resp.Text)
	assert.Equal(t, session.AwaitingCurrency, next.Phase)

	_, resp = f.engine.Step(context.Background(), awaitingDate("USD", ""), NewEvent(1, "/yesterday", ""))
	assert.True(t, strings.HasPrefix(resp.Text, "Date: 15.05.2021\n"), resp.Text)
}

func TestTodayUsesConfiguredLocation(t *testing.T) {
	kyiv := time.FixedZone("EEST", 3*60*60)
	f := newFixture(t, nil)
	f.engine.location = kyiv
	may17 := time.Date(2021, time.May, 17, 0, 0, 0, 0, kyiv)
	f.rates.On("FetchRate", mock.Anything, "USD", onDate(may17)).Return(entry("1", "2"), nil).Once()

	_, resp := f.engine.Step(context.Background(), awaitingDate("USD", ""), NewEvent(1, "/today", ""))
	assert.True(t, strings.HasPrefix(resp.Text, "Date: 17.05.2021\n"), resp.Text)
}

func TestTodayWithoutCurrencyPromptsForCurrency(t *testing.T) {
	f := newFixture(t, nil)
	for _, cmd := range []string{"/today", "/yesterday"} {
		next, resp := f.engine.Step(context.Background(), session.Session{}, NewEvent(1, cmd, ""))
		assert.Equal(t, session.Session{}, next)
		assert.Equal(t, menu.Currency, resp.Menu.ID)
		assert.Contains(t, resp.Text, "List of available currencies: USD, EUR")
	}
	f.rates.AssertNotCalled(t, "FetchRate", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatelessCommands(t *testing.T) {
	f := newFixture(t, fakeLocalizer{})
	start := awaitingDate("EUR", "ru")

	tests := []struct {
		cmd  string
		text string
		menu menu.ID
	}{
		{"/help", "ru:help", menu.None},
		{"/language", "ru:select_option", menu.Language},
		{"/start", "ru:welcome", menu.Start},
		{"/nope", "ru:unknown_command\nru:help", menu.None},
		{"/HELP@CurrencyBot", "ru:help", menu.None},
		{"/привет", "ru:unknown_command\nru:help", menu.None},
	}
	for _, tt := range tests {
		next, resp := f.engine.Step(context.Background(), start, NewEvent(1, tt.cmd, ""))
		assert.Equal(t, start, next, tt.cmd)
		assert.Equal(t, tt.text, resp.Text, tt.cmd)
		if tt.menu == menu.None {
			assert.Nil(t, resp.Menu, tt.cmd)
		} else {
			require.NotNil(t, resp.Menu, tt.cmd)
			assert.Equal(t, tt.menu, resp.Menu.ID, tt.cmd)
		}
	}
}

func TestLanguageSwitchPersists(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.store.Save(ctx, 5, awaitingDate("USD", "en"))

	resp := f.engine.Handle(ctx, NewEvent(5, "/ru", "en"))
	assert.Equal(t, "Привет! Бот позволяет получить курсы валют к гривне от ПриватБанка.", resp.Text)
	assert.Equal(t, menu.Start, resp.Menu.ID)
	assert.Equal(t, "Начать", resp.Menu.Rows[0][0].Label)

	s, _ := f.store.Get(ctx, 5)
	assert.Equal(t, "ru", s.Language)
	assert.Equal(t, "USD", s.Currency)
	assert.Equal(t, session.AwaitingDate, s.Phase)
}

func TestUnsupportedLanguageFallsBack(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.engine.Handle(context.Background(), NewEvent(6, "/de", ""))
	assert.Equal(t, "Hello, the bot allows you to get currency rates to UAH from PrivatBank.", resp.Text)
}

func TestConversationThroughStore(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.rates.On("FetchRate", mock.Anything, "EUR", onDate(may15)).Return(entry("32.1", "32.9"), nil).Once()

	f.engine.Handle(ctx, NewEvent(9, "/go", ""))
	f.engine.Handle(ctx, NewEvent(9, "eur", ""))
	resp := f.engine.Handle(ctx, NewEvent(9, "15.05.2021", ""))
	assert.Equal(t, "Date: 15.05.2021\nCurrency: EUR\nBuy rate: 32.1 UAH\nSell rate: 32.9 UAH", resp.Text)

	s, _ := f.store.Get(ctx, 9)
	assert.Equal(t, session.AwaitingCurrency, s.Phase)
	assert.Equal(t, []string{"go:ok", "currency:ok", "date:ok"}, f.obs.events)
}

func TestObserverLabelsAreBounded(t *testing.T) {
	f := newFixture(t, fakeLocalizer{})
	for _, text := range []string{"/whatever", "/uk", "/start"} {
		f.engine.Step(context.Background(), session.Session{}, NewEvent(1, text, ""))
	}
	assert.Equal(t, []string{"unknown:invalid_input", "set_language:ok", "start:ok"}, f.obs.events)
}

func TestNewEvent(t *testing.T) {
	tests := []struct {
		raw, hint string
		want      Event
	}{
		{"/start", "EN", Event{ChatID: 1, Command: "/start", Text: "/start", LanguageHint: "en"}},
		{"/start@CurrencyBot", "", Event{ChatID: 1, Command: "/start", Text: "/start@CurrencyBot"}},
		{" /GO now ", "", Event{ChatID: 1, Command: "/go", Text: "/GO now"}},
		{"USD", "uk", Event{ChatID: 1, Text: "USD", LanguageHint: "uk"}},
		{"15.05.2021", "", Event{ChatID: 1, Text: "15.05.2021"}},
		{"/ ", "", Event{ChatID: 1, Text: "/"}},
		{"/Привіт", "", Event{ChatID: 1, Command: "/привіт", Text: "/Привіт"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewEvent(1, tt.raw, tt.hint), tt.raw)
	}
}
