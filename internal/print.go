package internal

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/treetab/treetab/query"
)

const (
	tabWidth = 8
)

var (
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	okStyle      = color.New(color.FgGreen, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
)

// FormatCheckReport describes a parsed query file: its macros, its queries
// with their field counts, and every warning pointed at its source line.
// source holds the raw lines of the file.
func FormatCheckReport(path string, source []string, set *query.Set) string {
	var b strings.Builder

	status := okStyle.Sprint("ok: ")
	if len(set.Warnings()) > 0 {
		status = warningStyle.Sprint("warning: ")
	}
	b.WriteString(status + fmt.Sprintf("%d queries, %d macros", set.Len(), len(set.Macros())) + "\n")
	b.WriteString(lineStyle.Sprint(" --> ") + fileStyle.Sprint(path) + "\n")

	width := len(fmt.Sprintf("%d", len(source)))
	for _, m := range set.Macros() {
		b.WriteString(formatLine(m.Line, width, m.Text, "macro"))
	}
	for i, q := range set.Queries() {
		b.WriteString(formatLine(q.Line, width, q.Text, fmt.Sprintf("query %d, %d fields", i, q.FieldCount)))
	}

	for _, w := range set.Warnings() {
		b.WriteString(formatWarning(w, width, source))
	}
	b.WriteString("\n")
	return b.String()
}

func formatLine(line, width int, text, note string) string {
	num := fmt.Sprintf("%*d", width, line)
	return lineStyle.Sprintf("%s | ", num) + expandTabs(text) + "  " + noteStyle(note) + "\n"
}

func noteStyle(note string) string {
	return color.New(color.Faint).Sprintf("(%s)", note)
}

func formatWarning(w query.Warning, width int, source []string) string {
	var result strings.Builder
	padding := strings.Repeat(" ", width)

	result.WriteString(lineStyle.Sprintf("%s |\n", padding))
	text := ""
	if w.Line >= 1 && w.Line <= len(source) {
		text = expandTabs(source[w.Line-1])
	}
	result.WriteString(lineStyle.Sprintf("%*d | ", width, w.Line))
	result.WriteString(text + "\n")

	underline := len(strings.TrimRight(text, " "))
	if underline == 0 {
		underline = 1
	}
	result.WriteString(lineStyle.Sprintf("%s | ", padding))
	result.WriteString(messageStyle.Sprintf("%s\n", strings.Repeat("~", underline)))
	result.WriteString(lineStyle.Sprintf("%s | ", padding))
	result.WriteString(messageStyle.Sprintf("%s\n", w.Message))

	return result.String()
}

func expandTabs(line string) string {
	var expanded strings.Builder
	col := 0
	for _, ch := range line {
		if ch == '\t' {
			spaceCount := tabWidth - (col % tabWidth)
			expanded.WriteString(strings.Repeat(" ", spaceCount))
			col += spaceCount
		} else {
			expanded.WriteRune(ch)
			col++
		}
	}
	return expanded.String()
}
