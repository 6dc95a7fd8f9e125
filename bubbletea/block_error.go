package bubbletea

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	_ MessageBlock = (*ErrorBlock)(nil)
	_ MessageBlock = (*NoticeBlock)(nil)
)

// ErrorBlock renders a failed operation.
type ErrorBlock struct {
	err    error
	styles Styles
}

// NewErrorBlock creates an ErrorBlock.
func NewErrorBlock(err error, styles Styles) *ErrorBlock {
	return &ErrorBlock{err: err, styles: styles}
}

func (b *ErrorBlock) View(width int) string {
	content := b.styles.Error.Render(fmt.Sprintf("Ошибка: %v", b.err))
	return lipgloss.NewStyle().Width(width).Render(content)
}

// NoticeBlock renders a muted informational line.
type NoticeBlock struct {
	text   string
	styles Styles
}

// NewNoticeBlock creates a NoticeBlock.
func NewNoticeBlock(text string, styles Styles) *NoticeBlock {
	return &NoticeBlock{text: text, styles: styles}
}

func (b *NoticeBlock) View(width int) string {
	return lipgloss.NewStyle().Width(width).Render(b.styles.Muted.Render(b.text))
}
