// Package table holds the column-oriented result of a query run.
package table

import (
	"errors"
	"fmt"
	"strconv"

	tt "github.com/treetab/treetab/internal/types"
)

// QueryIndexColumn names the column recording which query produced a row.
const QueryIndexColumn = "query_index"

var (
	ErrRaggedTable = errors.New("table columns have different lengths")
	ErrColumnNames = errors.New("column names do not match the column count")
	ErrNoColumn    = errors.New("no such column")
)

// Table maps column names to equal-length columns of cells. Data columns
// keep their insertion order; the query index column comes last.
type Table struct {
	names      []string
	columns    [][]tt.Cell
	queryIndex []int
	// dropIndex hides the query index column, e.g. for single-query runs.
	dropIndex bool
}

// Names returns the column names in output order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.names)+1)
	names = append(names, t.names...)
	if !t.dropIndex {
		names = append(names, QueryIndexColumn)
	}
	return names
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.queryIndex)
}

// NumColumns returns the number of visible columns.
func (t *Table) NumColumns() int {
	if t.dropIndex {
		return len(t.names)
	}
	return len(t.names) + 1
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]tt.Cell, bool) {
	if name == QueryIndexColumn && !t.dropIndex {
		cells := make([]tt.Cell, len(t.queryIndex))
		for i, qi := range t.queryIndex {
			cells[i] = tt.Value(strconv.Itoa(qi))
		}
		return cells, true
	}
	for i, n := range t.names {
		if n == name {
			return t.columns[i], true
		}
	}
	return nil, false
}

// QueryIndex returns the query position of each row.
func (t *Table) QueryIndex() []int {
	return t.queryIndex
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []tt.Cell {
	row := make([]tt.Cell, 0, t.NumColumns())
	for _, col := range t.columns {
		row = append(row, col[i])
	}
	if !t.dropIndex {
		row = append(row, tt.Value(strconv.Itoa(t.queryIndex[i])))
	}
	return row
}

// Rows returns every row. Each call allocates; use Row for large tables.
func (t *Table) Rows() [][]tt.Cell {
	rows := make([][]tt.Cell, t.NumRows())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// DropColumn removes a column. Dropping the query index column keeps the
// index available through QueryIndex.
func (t *Table) DropColumn(name string) error {
	if name == QueryIndexColumn {
		t.dropIndex = true
		return nil
	}
	for i, n := range t.names {
		if n == name {
			t.names = append(t.names[:i:i], t.names[i+1:]...)
			t.columns = append(t.columns[:i:i], t.columns[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoColumn, name)
}

// Validate checks that every column has as many cells as there are rows.
func (t *Table) Validate() error {
	if len(t.names) != len(t.columns) {
		return fmt.Errorf("%w: %d names for %d columns", ErrColumnNames, len(t.names), len(t.columns))
	}
	for i, col := range t.columns {
		if len(col) != len(t.queryIndex) {
			return fmt.Errorf("%w: column %s has %d cells, want %d",
				ErrRaggedTable, t.names[i], len(col), len(t.queryIndex))
		}
	}
	return nil
}
