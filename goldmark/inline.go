package goldmark

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

func (r *renderer) inlines(n ast.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.inline(c, &buf)
	}
	return buf.String()
}

func (r *renderer) inline(node ast.Node, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(r.src))
		switch {
		case n.HardLineBreak():
			buf.WriteByte('\n')
		case n.SoftLineBreak():
			buf.WriteByte(' ')
		}
	case *ast.String:
		buf.Write(n.Value)
	case *ast.Emphasis:
		if n.Level == 1 {
			buf.WriteString(r.styles.italic.Render(r.inlines(n)))
		} else {
			buf.WriteString(r.styles.bold.Render(r.inlines(n)))
		}
	case *extast.Strikethrough:
		buf.WriteString(r.styles.strike.Render(r.inlines(n)))
	case *ast.CodeSpan:
		buf.WriteString(r.styles.code.Render(r.inlines(n)))
	case *ast.Link:
		buf.WriteString(r.styles.link.Render(r.inlines(n)))
		buf.WriteString(" ")
		buf.WriteString(r.styles.muted.Render("(" + string(n.Destination) + ")"))
	case *ast.AutoLink:
		buf.WriteString(r.styles.link.Render(string(n.URL(r.src))))
	case *ast.Image:
		buf.WriteString(r.styles.link.Render(r.inlines(n)))
		buf.WriteString(" ")
		buf.WriteString(r.styles.muted.Render("(" + string(n.Destination) + ")"))
	case *extast.TaskCheckBox:
		if n.IsChecked {
			buf.WriteString(r.styles.done.Render("[x]"))
		} else {
			buf.WriteString(r.styles.muted.Render("[ ]"))
		}
		buf.WriteByte(' ')
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(r.src))
		}
	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.inline(c, buf)
		}
	}
}

// plain collects the unstyled text of n.
func (r *renderer) plain(n ast.Node) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(r.src))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.URL(r.src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
