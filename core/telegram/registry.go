package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/currencybot/core/i18n"
	"github.com/m3rciful/currencybot/core/logger"
	"github.com/m3rciful/currencybot/core/telegram/commands"
)

// Registry holds the bot commands in registration order.
type Registry struct {
	commands []commands.Command
	index    map[string]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// RegisterCommand adds cmd. Names must start with a slash and be unique.
func (r *Registry) RegisterCommand(cmd commands.Command) error {
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	switch {
	case name == "" || cmd.Description == "":
		return fmt.Errorf("telegram: invalid command %q", cmd.Name)
	case name[0] != '/':
		return fmt.Errorf("telegram: command %q has no slash prefix", cmd.Name)
	}
	if _, exists := r.index[name]; exists {
		logger.Event(context.Background(), logger.TWire, slog.LevelWarn, "register.command.duplicate", slog.String("name", name))
		return fmt.Errorf("telegram: command already registered: %s", name)
	}
	cmd.Name = name
	r.index[name] = len(r.commands)
	r.commands = append(r.commands, cmd)
	return nil
}

// LookupCommand resolves the leading word of text, ignoring any @bot suffix.
func (r *Registry) LookupCommand(text string) (commands.Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return commands.Command{}, false
	}
	name := strings.ToLower(fields[0])
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	i, ok := r.index[name]
	if !ok {
		return commands.Command{}, false
	}
	return r.commands[i], true
}

// Commands returns the registered commands in registration order.
func (r *Registry) Commands() []commands.Command {
	return append([]commands.Command(nil), r.commands...)
}

// BotCommands returns the visible commands with descriptions in lang.
func (r *Registry) BotCommands(loc i18n.Localizer, lang string) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		if cmd.Hidden {
			continue
		}
		list = append(list, tele.Command{
			Text:        strings.TrimPrefix(cmd.Name, "/"),
			Description: loc.Resolve(cmd.Description, lang),
		})
	}
	return list
}

// CommandSetter is the subset of *tele.Bot used to publish commands.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// PublishCommands sets the command menu: the first language becomes the
// fallback list, every other language gets its own localized list.
func PublishCommands(bot CommandSetter, reg *Registry, loc i18n.Localizer) error {
	if bot == nil || reg == nil || loc == nil {
		return nil
	}
	langs := loc.Languages()
	if len(langs) == 0 {
		return nil
	}
	if err := bot.SetCommands(reg.BotCommands(loc, langs[0])); err != nil {
		return fmt.Errorf("telegram: set commands: %w", err)
	}
	for _, lang := range langs[1:] {
		if err := bot.SetCommands(reg.BotCommands(loc, lang), lang); err != nil {
			return fmt.Errorf("telegram: set commands for %s: %w", lang, err)
		}
	}
	logger.Event(context.Background(), logger.TWire, slog.LevelInfo, "register.commands",
		slog.String("status", "ok"),
		slog.Int("commands", len(reg.commands)),
		slog.Int("languages", len(langs)),
	)
	return nil
}
