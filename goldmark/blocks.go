package goldmark

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

const minItemWidth = 10

type renderer struct {
	styles styles
	src    []byte
}

func (r *renderer) blocks(parent ast.Node, width int, buf *bytes.Buffer) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		r.block(n, width, buf)
		if n.NextSibling() != nil {
			buf.WriteString("\n")
		}
	}
}

func (r *renderer) block(node ast.Node, width int, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		buf.WriteString(wrap(r.inlines(n), width))
		buf.WriteString("\n")
	case *ast.Heading:
		buf.WriteString(wrap(r.styles.heading.Render(r.inlines(n)), width))
		buf.WriteString("\n")
	case *ast.FencedCodeBlock:
		if lang := string(n.Language(r.src)); lang != "" {
			buf.WriteString(r.styles.muted.Render(lang))
			buf.WriteString("\n")
		}
		r.code(n, buf)
	case *ast.CodeBlock:
		r.code(n, buf)
	case *ast.Blockquote:
		r.quote(n, width, buf)
	case *ast.List:
		r.list(n, width, buf, 0)
	case *extast.Table:
		r.table(n, width, buf)
	case *ast.ThematicBreak:
		buf.WriteString(r.styles.muted.Render(strings.Repeat("─", min(width, 3))))
		buf.WriteString("\n")
	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(r.src))
		}
	default:
		r.blocks(node, width, buf)
	}
}

func (r *renderer) code(n ast.Node, buf *bytes.Buffer) {
	gutter := r.styles.muted.Render("│") + " "
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.WriteString(gutter)
		buf.WriteString(strings.TrimRight(string(seg.Value(r.src)), "\n"))
		buf.WriteString("\n")
	}
}

func (r *renderer) quote(n *ast.Blockquote, width int, buf *bytes.Buffer) {
	var inner bytes.Buffer
	r.blocks(n, max(width-2, minItemWidth), &inner)
	gutter := r.styles.muted.Render("┃") + " "
	for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
		buf.WriteString(gutter)
		buf.WriteString(line)
		buf.WriteString("\n")
	}
}

func (r *renderer) list(n *ast.List, width int, buf *bytes.Buffer, depth int) {
	indent := strings.Repeat("  ", depth)
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "- "
		if n.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		var content bytes.Buffer
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				if content.Len() > 0 {
					content.WriteString(" ")
				}
				content.WriteString(r.inlines(in))
			case *ast.List:
				if content.Len() > 0 {
					r.item(buf, indent+marker, content.String(), width)
					content.Reset()
				}
				marker = strings.Repeat(" ", len(marker))
				r.list(in, width, buf, depth+1)
			default:
				r.block(ic, width, &content)
			}
		}
		if content.Len() > 0 {
			r.item(buf, indent+marker, content.String(), width)
		}
	}
}

// item writes content after prefix, indenting continuation lines to align
// with the first.
func (r *renderer) item(buf *bytes.Buffer, prefix, content string, width int) {
	lines := strings.Split(wrap(content, max(width-len(prefix), minItemWidth)), "\n")
	pad := strings.Repeat(" ", len(prefix))
	for i, line := range lines {
		if i == 0 {
			buf.WriteString(prefix)
		} else {
			buf.WriteString(pad)
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
}

// table renders cells as plain text in aligned columns. Columns shrink
// evenly, truncating cells, when the table is wider than width.
func (r *renderer) table(n *extast.Table, width int, buf *bytes.Buffer) {
	var rows [][]string
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, r.plain(cell))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}
	cols := 0
	for _, cells := range rows {
		cols = max(cols, len(cells))
	}
	widths := make([]int, cols)
	for _, cells := range rows {
		for i, c := range cells {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}
	fit(widths, width-3*(cols-1))

	sep := r.styles.muted.Render(" │ ")
	for ri, cells := range rows {
		parts := make([]string, cols)
		for i := range parts {
			var c string
			if i < len(cells) {
				c = cells[i]
			}
			c = runewidth.Truncate(c, widths[i], "…")
			if i < cols-1 {
				c = runewidth.FillRight(c, widths[i])
			}
			if ri == 0 {
				c = r.styles.bold.Render(c)
			}
			parts[i] = c
		}
		buf.WriteString(strings.Join(parts, sep))
		buf.WriteString("\n")
		if ri == 0 {
			rules := make([]string, cols)
			for i, w := range widths {
				rules[i] = strings.Repeat("─", w)
			}
			buf.WriteString(r.styles.muted.Render(strings.Join(rules, "─┼─")))
			buf.WriteString("\n")
		}
	}
}

// fit shrinks the widest columns until their sum is at most total.
func fit(widths []int, total int) {
	const minCol = 3
	for {
		sum, widest := 0, 0
		for i, w := range widths {
			sum += w
			if w > widths[widest] {
				widest = i
			}
		}
		if sum <= total || widths[widest] <= minCol {
			return
		}
		widths[widest]--
	}
}
