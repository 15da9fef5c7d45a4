// Where: internal/infra/ui/ui.go
// What: UserInterface used by the pack and publish workflows.
// Why: Workflows report progress without knowing about the terminal.
package ui

import "io"

// KeyValue is a row rendered inside a block.
type KeyValue struct {
	Key   string
	Value any
}

type UserInterface interface {
	Info(msg string)
	Warn(msg string)
	Success(msg string)
	List(items []string)
	Block(emoji, title string, rows []KeyValue)
}

// NewConsoleUI returns a UserInterface backed by Console.
func NewConsoleUI(out io.Writer, emojiEnabled bool) UserInterface {
	return consoleUI{console: NewWithEmoji(out, emojiEnabled)}
}

// Discard drops all output.
func Discard() UserInterface {
	return NewConsoleUI(io.Discard, false)
}

type consoleUI struct {
	console *Console
}

func (c consoleUI) Info(msg string) {
	c.console.Info(msg)
}

func (c consoleUI) Warn(msg string) {
	c.console.Warn(msg)
}

func (c consoleUI) Success(msg string) {
	c.console.Success(msg)
}

func (c consoleUI) List(items []string) {
	for _, item := range items {
		c.console.Bullet(item)
	}
}

func (c consoleUI) Block(emoji, title string, rows []KeyValue) {
	c.console.BlockStart(emoji, title)
	for _, kv := range rows {
		c.console.Item(kv.Key, kv.Value)
	}
	c.console.BlockEnd()
}
