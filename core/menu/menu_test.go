package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/currencybot/core/i18n"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	cat, err := i18n.NewCatalog("en")
	require.NoError(t, err)
	return NewBuilder(cat, []string{"USD", "EUR"})
}

func TestStartMenu(t *testing.T) {
	m := newBuilder(t).Build(Start, "en")
	require.NotNil(t, m)
	assert.Equal(t, Start, m.ID)
	assert.Equal(t, [][]Option{
		{{Label: "Go", Data: "/go"}},
		{{Label: "Language", Data: "/language"}, {Label: "Help", Data: "/help"}},
	}, m.Rows)
}

func TestStartMenuLocalized(t *testing.T) {
	b := newBuilder(t)
	labels := func(lang string) []string {
		var out []string
		for _, o := range b.Build(Start, lang).Options() {
			out = append(out, o.Label)
		}
		return out
	}
	assert.Equal(t, []string{"Начать", "Язык", "Помощь"}, labels("ru"))
	assert.Equal(t, []string{"Почати", "Мова", "Допомога"}, labels("uk"))
	assert.Equal(t, []string{"Go", "Language", "Help"}, labels("xx"))
}

func TestCurrencyMenuFollowsAllowList(t *testing.T) {
	m := newBuilder(t).Build(Currency, "uk")
	assert.Equal(t, []Option{{Label: "USD", Data: "usd"}, {Label: "EUR", Data: "eur"}}, m.Options())
}

func TestDateMenu(t *testing.T) {
	b := newBuilder(t)
	assert.Equal(t, []Option{{Label: "Yesterday", Data: "/yesterday"}, {Label: "Today", Data: "/today"}}, b.Build(Date, "en").Options())
	assert.Equal(t, []Option{{Label: "Вчера", Data: "/yesterday"}, {Label: "Сегодня", Data: "/today"}}, b.Build(Date, "ru").Options())
}

func TestRepeatMenu(t *testing.T) {
	assert.Equal(t, []Option{{Label: "Повторити", Data: "/go"}}, newBuilder(t).Build(Repeat, "uk").Options())
}

func TestLanguageMenuUsesNativeNames(t *testing.T) {
	m := newBuilder(t).Build(Language, "ru")
	assert.Equal(t, []Option{
		{Label: "English", Data: "/en"},
		{Label: "Русский", Data: "/ru"},
		{Label: "Українська", Data: "/uk"},
	}, m.Options())
}

func TestNoneMenu(t *testing.T) {
	b := newBuilder(t)
	assert.Nil(t, b.Build(None, "en"))
	assert.Nil(t, b.Build(ID("bogus"), "en"))
	var m *Menu
	assert.Nil(t, m.Options())
}
