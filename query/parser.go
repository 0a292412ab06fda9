package query

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	CommentMarker = "#"
	MacroStart    = '@'
	MacroEnd      = ';'
	PrintMarker   = "`"
)

// ErrNoQueries is returned when a query source holds no query at all.
// The field count of such a set is undefined, so it is a configuration error.
var ErrNoQueries = errors.New("no queries defined")

// Query is a single pattern to be matched against the corpus.
type Query struct {
	Text       string
	FieldCount int
	// Line is the 1-based line of the query in its file, 0 for ad-hoc queries.
	Line int
}

// Macro is a macro definition line, passed to the engine untouched.
type Macro struct {
	Text string
	Line int
}

// NewQuery builds a query and computes its field count.
func NewQuery(text string) Query {
	return Query{Text: text, FieldCount: CountFields(text)}
}

// CountFields returns the number of print markers in a query, at least 1.
func CountFields(text string) int {
	n := strings.Count(text, PrintMarker)
	if n == 0 {
		return 1
	}
	return n
}

// ParseFile reads and parses a query file.
func ParseFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening query file: %w", err)
	}
	defer f.Close()

	set, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse reads query definitions from r.
func Parse(r io.Reader) (*Set, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading queries: %w", err)
	}
	return ParseLines(lines)
}

// ParseLines classifies each line as a macro or a query, in file order.
func ParseLines(lines []string) (*Set, error) {
	set := &Set{}
	for i, raw := range lines {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		lineNo := i + 1
		if isMacro(line) {
			set.macros = append(set.macros, Macro{Text: line, Line: lineNo})
			continue
		}

		if line[0] == MacroStart {
			set.warnings = append(set.warnings, Warning{
				Line:    lineNo,
				Message: fmt.Sprintf("line starts with %q but does not end with %q; treated as a query", MacroStart, MacroEnd),
			})
		}

		q := NewQuery(line)
		q.Line = lineNo
		set.queries = append(set.queries, q)
	}

	if len(set.queries) == 0 {
		return nil, ErrNoQueries
	}
	set.checkFieldCounts()

	return set, nil
}

func stripComment(line string) string {
	if idx := strings.Index(line, CommentMarker); idx >= 0 {
		return line[:idx]
	}
	return line
}

func isMacro(line string) bool {
	return line[0] == MacroStart && line[len(line)-1] == MacroEnd
}
