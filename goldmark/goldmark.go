// Package goldmark renders assistant replies, which are markdown, as
// ANSI-styled terminal text. Parsing is goldmark with the GFM extensions;
// styling is lipgloss.
package goldmark

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/secretary"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// DefaultWidth is used when Render gets a non-positive width.
const DefaultWidth = 80

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Render returns source as styled terminal text wrapped to width.
// Paragraphs, list items and quotes are reflowed; code blocks and tables
// are not.
func Render(source string, width int, theme secretary.Theme) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))
	r := &renderer{styles: newStyles(theme), src: src}
	var buf bytes.Buffer
	r.blocks(doc, width, &buf)
	return strings.TrimRight(buf.String(), "\n")
}

type styles struct {
	bold    lipgloss.Style
	italic  lipgloss.Style
	strike  lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	link    lipgloss.Style
	code    lipgloss.Style
	done    lipgloss.Style
}

func newStyles(t secretary.Theme) styles {
	return styles{
		bold:    lipgloss.NewStyle().Bold(true),
		italic:  lipgloss.NewStyle().Italic(true),
		strike:  lipgloss.NewStyle().Strikethrough(true),
		heading: lipgloss.NewStyle().Foreground(color(t.Accent)).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(color(t.Muted)).Faint(true),
		link:    lipgloss.NewStyle().Underline(true),
		code:    lipgloss.NewStyle().Foreground(color(t.Intent)),
		done:    lipgloss.NewStyle().Foreground(color(t.Success)),
	}
}

func color(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}
