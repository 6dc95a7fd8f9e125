// Package gomarkdown renders conversation exports as standalone HTML pages.
package gomarkdown

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"strings"
	"time"

	"github.com/fwojciec/secretary"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Filename returns the download name of the HTML rendition of e.
func Filename(e secretary.Export) string {
	return strings.TrimSuffix(e.Filename(), ".json") + ".html"
}

// Markdown builds the markdown document for e.
func Markdown(e secretary.Export) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Разговор %s\n\n", e.ConversationID)
	fmt.Fprintf(&b, "Экспортировано %s, сообщений: %d\n\n", e.ExportDate.Format("2006-01-02 15:04"), e.MessageCount)
	for _, m := range e.Messages {
		fmt.Fprintf(&b, "---\n\n**%s** · %s", author(m.Role), m.CreatedAt.Format(time.DateTime))
		if m.Intent != "" {
			fmt.Fprintf(&b, " · `%s`", m.Intent)
		}
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteString("\n\n")
	}
	return b.String()
}

// RenderHTML renders e as a complete HTML document. Raw HTML inside
// message content is dropped.
func RenderHTML(e secretary.Export) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML,
	})
	body := markdown.ToHTML([]byte(Markdown(e)), p, r)

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"ru\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>Разговор %s</title>\n", stdhtml.EscapeString(e.ConversationID))
	buf.WriteString("</head>\n<body>\n")
	buf.Write(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes()
}

func author(r secretary.Role) string {
	switch r {
	case secretary.RoleUser:
		return "Пользователь"
	case secretary.RoleAssistant:
		return "Ассистент"
	default:
		return "Система"
	}
}
