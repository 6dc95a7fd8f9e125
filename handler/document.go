package handler

import (
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/charmbracelet/x/ansi"
)

// Document budget sent to the backend.
const (
	DefaultMaxDocumentLines = 400
	DefaultMaxDocumentBytes = 16 * 1024
)

const truncatedNotice = "\n\n[документ сокращён]"

var htmlTag = regexp.MustCompile(`(?i)<(html|body|div|p|br|table|h[1-6]|ul|ol|li|span|a)\b[^>]*>`)

// normalizeDocument strips terminal noise, converts HTML to markdown and
// applies the document budget.
func (cfg *config) normalizeDocument(text string) string {
	doc := sanitizeDocument(text)
	if htmlTag.MatchString(doc) {
		md, err := htmltomarkdown.ConvertString(doc)
		if err != nil {
			cfg.log.WithError(err).Debug("html conversion failed, using raw text")
		} else {
			doc = md
		}
	}
	res := TruncateHead(doc, DefaultMaxDocumentLines, DefaultMaxDocumentBytes)
	if res.Truncated {
		cfg.log.WithField("total_bytes", res.TotalBytes).Debug("document truncated")
		return res.Content + truncatedNotice
	}
	return res.Content
}

// sanitizeDocument removes ANSI escape sequences and control characters from
// text pasted out of a terminal. Tabs survive; CRLF and lone CR become LF.
func sanitizeDocument(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\r':
			return '\n'
		case r == '\t' || r == '\n' || r > 0x1F && r != 0x7F:
			return r
		default:
			return -1
		}
	}, s)
}

// TruncateResult describes the outcome of head truncation.
type TruncateResult struct {
	Content     string
	Truncated   bool
	TruncatedBy string // "lines" or "bytes"
	TotalLines  int
	TotalBytes  int
	OutputLines int
	OutputBytes int
}

// TruncateHead keeps the first maxLines lines or maxBytes bytes of s,
// whichever limit is hit first. Whole lines are kept where possible. A first
// line longer than maxBytes is cut at a rune boundary.
func TruncateHead(s string, maxLines, maxBytes int) TruncateResult {
	if s == "" {
		return TruncateResult{}
	}
	lines := splitLines(s)
	total := TruncateResult{TotalLines: len(lines), TotalBytes: len(s)}

	if len(lines) <= maxLines && len(s) <= maxBytes {
		total.Content = s
		total.OutputLines = len(lines)
		total.OutputBytes = len(s)
		return total
	}

	var kept []string
	used := 0
	by := "lines"
	for _, line := range lines {
		if len(kept) == maxLines {
			break
		}
		n := len(line)
		if len(kept) > 0 {
			n++ // separator
		}
		if used+n > maxBytes {
			by = "bytes"
			if len(kept) == 0 {
				kept = append(kept, cutRunes(line, maxBytes))
			}
			break
		}
		kept = append(kept, line)
		used += n
	}

	content := strings.Join(kept, "\n")
	total.Content = content
	total.Truncated = true
	total.TruncatedBy = by
	total.OutputLines = len(kept)
	total.OutputBytes = len(content)
	return total
}

// cutRunes returns the longest prefix of s that fits in n bytes without
// splitting a rune.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
