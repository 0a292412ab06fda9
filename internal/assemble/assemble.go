// Package assemble turns the ragged line output of the engine into
// rectangular column blocks.
//
// The engine prints one line per field and one cycle of fields per match.
// For a query with n print markers, lines 0..n-1 belong to the first match,
// lines n..2n-1 to the second, and so on. Every requested output flag gets
// a block of the same width so that blocks of one query line up side by
// side, with nil cells where a flag printed fewer fields.
package assemble

import (
	"errors"
	"fmt"
	"strings"

	tt "github.com/treetab/treetab/internal/types"
)

var (
	// ErrRaggedFlags is returned under RejectRagged when two flags of the
	// same query produce a different number of rows.
	ErrRaggedFlags = errors.New("output flags produced different row counts")

	ErrInvalidWidth = errors.New("invalid block width")
)

// RaggedPolicy decides what happens when flags of one query disagree on
// their row count.
type RaggedPolicy int

const (
	// PadRagged pads shorter blocks with nil rows up to the longest block.
	PadRagged RaggedPolicy = iota
	// RejectRagged fails the query with ErrRaggedFlags.
	RejectRagged
)

func (p RaggedPolicy) String() string {
	switch p {
	case PadRagged:
		return "pad"
	case RejectRagged:
		return "reject"
	default:
		return fmt.Sprintf("RaggedPolicy(%d)", int(p))
	}
}

// ParseRaggedPolicy maps "pad" and "reject" to a policy. The empty string
// selects PadRagged.
func ParseRaggedPolicy(s string) (RaggedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pad":
		return PadRagged, nil
	case "reject":
		return RejectRagged, nil
	default:
		return PadRagged, fmt.Errorf("unknown ragged policy %q (want pad or reject)", s)
	}
}

// FlagResult pairs an output flag with the engine output it produced.
type FlagResult struct {
	Flag tt.OutputFlag
	Text string
}

// Fragment is the assembled output of one query. Columns holds one block
// of Width columns per flag, in flag order; every column has Rows cells.
type Fragment struct {
	Columns [][]tt.Cell
	Rows    int
	Width   int
	// Ragged is set when flag blocks had to be padded to a common length.
	Ragged bool
}

// SplitLines strips the line break that ends the engine output and splits
// the rest into lines. Blank lines before it are empty fields and are kept.
// Empty output yields no lines.
func SplitLines(text string) []string {
	if t, ok := strings.CutSuffix(text, "\n"); ok {
		text = strings.TrimSuffix(t, "\r")
	}
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// block is the output of one flag before rows are reconciled.
type block struct {
	flag    tt.OutputFlag
	columns [][]tt.Cell
	rows    int
	hasData bool
}

// Assemble builds the fragment of one query from the output of each flag.
// fieldCount is the query's own field count, width the number of columns
// per flag block, which must be at least fieldCount. A nil fragment and a
// nil error mean that no flag produced any line.
func Assemble(results []FlagResult, fieldCount, width int, policy RaggedPolicy) (*Fragment, error) {
	if fieldCount < 1 || width < fieldCount {
		return nil, fmt.Errorf("%w: field count %d, width %d", ErrInvalidWidth, fieldCount, width)
	}

	blocks := make([]block, len(results))
	anyData := false
	for i, r := range results {
		lines := SplitLines(r.Text)
		blocks[i] = writeBlock(r.Flag, lines, r.Flag.FieldCount(fieldCount), width)
		anyData = anyData || blocks[i].hasData
	}
	if !anyData {
		return nil, nil
	}

	rows, ragged, err := reconcile(blocks, policy)
	if err != nil {
		return nil, err
	}

	frag := &Fragment{
		Columns: make([][]tt.Cell, 0, len(blocks)*width),
		Rows:    rows,
		Width:   width,
		Ragged:  ragged,
	}
	for _, b := range blocks {
		for _, col := range b.columns {
			frag.Columns = append(frag.Columns, padColumn(col, rows))
		}
	}
	return frag, nil
}

// writeBlock lays lines out in chunks of actual lines. Each chunk is one
// row: chunk line j goes to column j and columns len(chunk)..width-1 get a
// nil cell. A short final chunk therefore leaves its missing fields nil.
func writeBlock(flag tt.OutputFlag, lines []string, actual, width int) block {
	b := block{
		flag:    flag,
		columns: make([][]tt.Cell, width),
		hasData: len(lines) > 0,
	}

	for start := 0; start < len(lines); start += actual {
		chunk := lines[start:min(start+actual, len(lines))]
		for j, line := range chunk {
			b.columns[j] = append(b.columns[j], tt.Value(line))
		}
		for j := len(chunk); j < width; j++ {
			b.columns[j] = append(b.columns[j], nil)
		}
		b.rows++
	}
	return b
}

// reconcile picks the fragment row count. Blocks without data never make a
// fragment ragged; they are filled with nil rows.
func reconcile(blocks []block, policy RaggedPolicy) (int, bool, error) {
	rows := 0
	var first *block
	ragged := false
	for i := range blocks {
		b := &blocks[i]
		if !b.hasData {
			continue
		}
		if first == nil {
			first = b
		} else if b.rows != first.rows {
			if policy == RejectRagged {
				return 0, false, fmt.Errorf("%w: flag %q has %d rows, flag %q has %d",
					ErrRaggedFlags, first.flag, first.rows, b.flag, b.rows)
			}
			ragged = true
		}
		rows = max(rows, b.rows)
	}
	return rows, ragged, nil
}

func padColumn(col []tt.Cell, rows int) []tt.Cell {
	if len(col) >= rows {
		return col
	}
	padded := make([]tt.Cell, rows)
	copy(padded, col)
	return padded
}
