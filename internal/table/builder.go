package table

import (
	"fmt"
	"strconv"

	"github.com/treetab/treetab/internal/assemble"
	tt "github.com/treetab/treetab/internal/types"
)

// ColumnNames returns the data column names of a run: one block of width
// columns per flag. Without explicit names, columns are numbered from 0.
func ColumnNames(flags []tt.OutputFlag, width int, names []string) ([]string, error) {
	n := len(flags) * width
	if len(names) == 0 {
		generated := make([]string, n)
		for i := range generated {
			generated[i] = strconv.Itoa(i)
		}
		return generated, nil
	}
	if len(names) != n {
		return nil, fmt.Errorf("%w: got %d names, want %d (%d flags x %d fields)",
			ErrColumnNames, len(names), n, len(flags), width)
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == QueryIndexColumn || seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrColumnNames, name)
		}
		seen[name] = true
	}
	return append([]string(nil), names...), nil
}

// Builder concatenates query fragments into a Table.
type Builder struct {
	width     int
	table     *Table
	lastQuery int
}

// NewBuilder prepares a table for the given flags and block width.
func NewBuilder(flags []tt.OutputFlag, width int, names []string) (*Builder, error) {
	colNames, err := ColumnNames(flags, width, names)
	if err != nil {
		return nil, err
	}
	return &Builder{
		width: width,
		table: &Table{
			names:   colNames,
			columns: make([][]tt.Cell, len(colNames)),
		},
		lastQuery: -1,
	}, nil
}

// Append adds the rows of one query. A nil fragment is a query without
// output and is skipped. Query indices must not decrease.
func (b *Builder) Append(queryIndex int, f *assemble.Fragment) error {
	if f == nil {
		return nil
	}
	if queryIndex < b.lastQuery {
		return fmt.Errorf("query %d appended after query %d", queryIndex, b.lastQuery)
	}
	if f.Width != b.width || len(f.Columns) != len(b.table.columns) {
		return fmt.Errorf("%w: query %d has %d columns of width %d, table has %d of width %d",
			ErrColumnNames, queryIndex, len(f.Columns), f.Width, len(b.table.columns), b.width)
	}
	for i, col := range f.Columns {
		if len(col) != f.Rows {
			return fmt.Errorf("%w: query %d column %d has %d cells, want %d",
				ErrRaggedTable, queryIndex, i, len(col), f.Rows)
		}
	}

	t := b.table
	for i, col := range f.Columns {
		t.columns[i] = append(t.columns[i], col...)
	}
	for range f.Rows {
		t.queryIndex = append(t.queryIndex, queryIndex)
	}
	b.lastQuery = queryIndex
	return nil
}

// Build validates and returns the table.
func (b *Builder) Build() (*Table, error) {
	if err := b.table.Validate(); err != nil {
		return nil, err
	}
	return b.table, nil
}
