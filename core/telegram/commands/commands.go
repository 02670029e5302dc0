// Package commands describes the slash commands advertised to Telegram.
package commands

// Command is one entry of the bot command menu. Description is a message
// key resolved per language when the menu is published.
type Command struct {
	Name        string
	Description string
	Hidden      bool
}
