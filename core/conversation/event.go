package conversation

import (
	"regexp"
	"strings"

	"github.com/m3rciful/currencybot/core/menu"
)

var (
	// Letters and digits of any script, so "/привет" is a command too.
	commandPattern  = regexp.MustCompile(`^/[\p{L}\p{N}_]+`)
	languagePattern = regexp.MustCompile(`^/[a-z]{2}$`)
)

// Event is one user action normalized by the transport.
type Event struct {
	ChatID int64
	// Command is the lowercased leading /word without any @bot suffix;
	// empty when Text is not a command.
	Command      string
	Text         string
	LanguageHint string
}

// NewEvent normalizes raw text from a message or a callback button.
func NewEvent(chatID int64, raw, languageHint string) Event {
	text := strings.TrimSpace(raw)
	ev := Event{
		ChatID:       chatID,
		Text:         text,
		LanguageHint: strings.ToLower(strings.TrimSpace(languageHint)),
	}
	if commandPattern.MatchString(text) {
		cmd := strings.Fields(text)[0]
		if at := strings.IndexByte(cmd, '@'); at > 0 {
			cmd = cmd[:at]
		}
		ev.Command = strings.ToLower(cmd)
	}
	return ev
}

// Response is the text and optional menu to send back to the chat.
type Response struct {
	Text string
	Menu *menu.Menu
}
