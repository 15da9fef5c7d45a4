// Where: internal/infra/ui/console.go
// What: Console output helpers for consistent CLI UX.
// Why: Standardize emojis, indentation and block layout across commands.
package ui

import (
	"fmt"
	"io"
	"strings"
)

// Console writes formatted lines to Out.
type Console struct {
	Out          io.Writer
	EmojiEnabled bool
}

// New creates a Console with emoji enabled.
func New(out io.Writer) *Console {
	return &Console{Out: out, EmojiEnabled: true}
}

// NewWithEmoji creates a Console with explicit emoji settings.
func NewWithEmoji(out io.Writer, enabled bool) *Console {
	return &Console{Out: out, EmojiEnabled: enabled}
}

// Header prints a section title, e.g. "📦 Package hello".
func (c *Console) Header(emoji, title string) {
	fmt.Fprintf(c.Out, "%s%s\n", c.emojiPrefix(emoji), title)
}

// BlockStart separates a block from previous output and prints its header.
func (c *Console) BlockStart(emoji, title string) {
	fmt.Fprintln(c.Out)
	c.Header(emoji, title)
}

func (c *Console) BlockEnd() {
	fmt.Fprintln(c.Out)
}

// Item prints an indented key/value row.
func (c *Console) Item(key string, value any) {
	fmt.Fprintf(c.Out, "   %-12s %v\n", key+":", value)
}

// Bullet prints an indented list entry.
func (c *Console) Bullet(msg string) {
	fmt.Fprintf(c.Out, "   - %s\n", msg)
}

func (c *Console) Success(msg string) {
	prefix := c.emojiPrefix("✅")
	if prefix == "" {
		prefix = "[ok] "
	}
	fmt.Fprintf(c.Out, "%s%s\n", prefix, msg)
}

func (c *Console) Info(msg string) {
	fmt.Fprintf(c.Out, "%s\n", msg)
}

func (c *Console) Warn(msg string) {
	prefix := c.emojiPrefix("⚠️")
	if prefix == "" {
		prefix = "[warn] "
	}
	fmt.Fprintf(c.Out, "%s%s\n", prefix, msg)
}

func (c *Console) Error(msg string) {
	prefix := c.emojiPrefix("❌")
	if prefix == "" {
		prefix = "[error] "
	}
	fmt.Fprintf(c.Out, "%s%s\n", prefix, msg)
}

func (c *Console) emojiPrefix(emoji string) string {
	if !c.EmojiEnabled || strings.TrimSpace(emoji) == "" {
		return ""
	}
	return emoji + " "
}
