package types

import "strings"

// WordOnlyMarker marks an output flag whose invocation prints a single
// value per match, whatever the query's print markers say.
const WordOnlyMarker = "w"

// OutputFlag selects the engine's output format for one invocation.
// The empty flag is valid and means the engine's default tree output.
type OutputFlag string

// WordOnly reports whether the flag collapses every match into one field.
func (f OutputFlag) WordOnly() bool {
	return strings.Contains(string(f), WordOnlyMarker)
}

// FieldCount returns the number of lines the engine prints per match for
// a query with n print markers under this flag.
func (f OutputFlag) FieldCount(n int) int {
	if f.WordOnly() {
		return 1
	}
	return n
}

// ParseFlags splits a comma separated flag list. Empty items are kept, so
// ",t" selects the default output followed by -t.
func ParseFlags(s string) []OutputFlag {
	parts := strings.Split(s, ",")
	flags := make([]OutputFlag, 0, len(parts))
	for _, p := range parts {
		flags = append(flags, OutputFlag(strings.TrimSpace(p)))
	}
	return flags
}

// RawResult is the captured output of one engine invocation.
type RawResult struct {
	Text     string
	ExitCode int
}

// Failed reports whether the engine exited with a non-zero status.
func (r RawResult) Failed() bool {
	return r.ExitCode != 0
}

// Cell is a single table value. A nil Cell is a missing value.
type Cell *string

// Value wraps s into a present cell.
func Value(s string) Cell {
	return &s
}

// CellString returns the cell's text and whether it is present.
func CellString(c Cell) (string, bool) {
	if c == nil {
		return "", false
	}
	return *c, true
}
