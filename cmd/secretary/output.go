package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

var (
	accent  = color.New(color.FgCyan)
	muted   = color.New(color.FgHiBlack)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	caution = color.New(color.FgYellow)
)

func warnf(w io.Writer, format string, args ...any) {
	caution.Fprintf(w, format+"\n", args...)
}

// cell fits s into width display columns on one line.
func cell(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// mark renders a check or a cross.
func mark(ok bool) string {
	if ok {
		return success.Sprint("✓")
	}
	return failure.Sprint("✗")
}

func printField(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %s %v\n", muted.Sprint(runewidth.FillRight(label+":", 16)), value)
}
