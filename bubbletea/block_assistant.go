package bubbletea

import (
	"strings"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/goldmark"
)

var _ MessageBlock = (*AssistantBlock)(nil)

// AssistantBlock renders an assistant reply as markdown, tagged with the
// intent that produced it. Renders are cached per width.
type AssistantBlock struct {
	text    string
	intent  secretary.Intent
	theme   secretary.Theme
	styles  Styles
	byWidth map[int]string
}

// NewAssistantBlock creates an AssistantBlock.
func NewAssistantBlock(text string, intent secretary.Intent, theme secretary.Theme, styles Styles) *AssistantBlock {
	return &AssistantBlock{
		text:    text,
		intent:  intent,
		theme:   theme,
		styles:  styles,
		byWidth: make(map[int]string),
	}
}

func (b *AssistantBlock) View(width int) string {
	if cached, ok := b.byWidth[width]; ok {
		return cached
	}
	var out strings.Builder
	if b.intent != "" {
		out.WriteString(b.styles.Intent.Render("[" + string(b.intent) + "]"))
		out.WriteString("\n")
	}
	out.WriteString(goldmark.Render(b.text, width, b.theme))
	b.byWidth[width] = out.String()
	return b.byWidth[width]
}
