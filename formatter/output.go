package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/treetab/treetab/internal/table"
)

// output formats
const (
	FormatCSV    = "csv"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// Options controls how a table is rendered.
type Options struct {
	Format string
	// Delimiter separates CSV fields. Only its first rune is used.
	Delimiter string
	Header    bool
	// Null is printed for missing cells in text formats.
	Null string
}

// tableWriter is the interface that wraps the Write method.
// Implementations render a whole table in one output format.
type tableWriter interface {
	Write(w io.Writer, t *table.Table, opts Options) error
}

// getTableWriter returns the writer for the requested format.
func getTableWriter(format string) (tableWriter, error) {
	switch strings.ToLower(format) {
	case "", FormatCSV:
		return &CSVWriter{}, nil
	case "tsv":
		return &CSVWriter{Delimiter: '\t'}, nil
	case FormatJSON:
		return &JSONWriter{}, nil
	case FormatPretty:
		return &PrettyWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Write renders t to w in the format named by opts.
func Write(w io.Writer, t *table.Table, opts Options) error {
	tw, err := getTableWriter(opts.Format)
	if err != nil {
		return err
	}
	return tw.Write(w, t, opts)
}

// PrepareSingleQuery drops the query index column of a table produced by
// a single query, where it carries no information.
func PrepareSingleQuery(t *table.Table) {
	_ = t.DropColumn(table.QueryIndexColumn)
}
