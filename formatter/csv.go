package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/treetab/treetab/internal/table"
	tt "github.com/treetab/treetab/internal/types"
)

// CSVWriter renders a table as delimited text, one match per line.
type CSVWriter struct {
	// Delimiter overrides Options.Delimiter when set.
	Delimiter rune
}

func (f *CSVWriter) Write(w io.Writer, t *table.Table, opts Options) error {
	cw := csv.NewWriter(w)

	delim, err := f.delimiter(opts)
	if err != nil {
		return err
	}
	cw.Comma = delim

	if opts.Header {
		if err := cw.Write(t.Names()); err != nil {
			return err
		}
	}

	record := make([]string, t.NumColumns())
	for i := range t.NumRows() {
		for j, cell := range t.Row(i) {
			record[j] = cellText(cell, opts.Null)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func (f *CSVWriter) delimiter(opts Options) (rune, error) {
	if f.Delimiter != 0 {
		return f.Delimiter, nil
	}
	if opts.Delimiter == "" {
		return ',', nil
	}
	r, size := utf8.DecodeRuneInString(opts.Delimiter)
	if r == utf8.RuneError || size != len(opts.Delimiter) {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", opts.Delimiter)
	}
	return r, nil
}

func cellText(c tt.Cell, null string) string {
	if s, ok := tt.CellString(c); ok {
		return s
	}
	return null
}
