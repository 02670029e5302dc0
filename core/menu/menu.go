// Package menu describes the selectable options attached to bot replies.
package menu

import (
	"strings"

	"github.com/m3rciful/currencybot/core/i18n"
)

// ID names a menu.
type ID string

const (
	None     ID = ""
	Start    ID = "start"
	Language ID = "language"
	Currency ID = "currency"
	Date     ID = "date"
	Repeat   ID = "repeat"
)

// Callback tokens sent back when an option is selected.
const (
	DataGo        = "/go"
	DataLanguage  = "/language"
	DataHelp      = "/help"
	DataYesterday = "/yesterday"
	DataToday     = "/today"
)

// Option is one selectable button.
type Option struct {
	Label string
	Data  string
}

// Menu is an ordered set of option rows.
type Menu struct {
	ID   ID
	Rows [][]Option
}

// Builder maps a menu ID and language to a Menu.
type Builder struct {
	loc        i18n.Localizer
	currencies []string
}

// NewBuilder returns a Builder for the given allow-list of currency codes.
func NewBuilder(loc i18n.Localizer, currencies []string) *Builder {
	return &Builder{loc: loc, currencies: append([]string(nil), currencies...)}
}

// Build returns nil for None and for unknown ids.
func (b *Builder) Build(id ID, lang string) *Menu {
	label := func(key string) string { return b.loc.Resolve(key, lang) }

	var rows [][]Option
	switch id {
	case Start:
		rows = [][]Option{
			{{Label: label(i18n.ButtonGo), Data: DataGo}},
			{{Label: label(i18n.ButtonLanguage), Data: DataLanguage}, {Label: label(i18n.ButtonHelp), Data: DataHelp}},
		}
	case Language:
		row := make([]Option, 0, len(b.loc.Languages()))
		for _, code := range b.loc.Languages() {
			row = append(row, Option{Label: b.loc.Resolve(i18n.LanguageName, code), Data: "/" + code})
		}
		rows = [][]Option{row}
	case Currency:
		row := make([]Option, 0, len(b.currencies))
		for _, code := range b.currencies {
			row = append(row, Option{Label: code, Data: strings.ToLower(code)})
		}
		rows = [][]Option{row}
	case Date:
		rows = [][]Option{{
			{Label: label(i18n.ButtonYesterday), Data: DataYesterday},
			{Label: label(i18n.ButtonToday), Data: DataToday},
		}}
	case Repeat:
		rows = [][]Option{{{Label: label(i18n.ButtonRepeat), Data: DataGo}}}
	default:
		return nil
	}
	return &Menu{ID: id, Rows: rows}
}

// Options flattens the rows.
func (m *Menu) Options() []Option {
	if m == nil {
		return nil
	}
	var out []Option
	for _, row := range m.Rows {
		out = append(out, row...)
	}
	return out
}
