package formatter

import (
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/treetab/treetab/internal/table"
)

const defaultNull = "-"

var (
	nullStyle   = color.New(color.FgHiBlack)
	headerColor = tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor}
)

// PrettyWriter renders an aligned table for reading in a terminal.
type PrettyWriter struct{}

func (f *PrettyWriter) Write(w io.Writer, t *table.Table, opts Options) error {
	null := opts.Null
	if null == "" {
		null = defaultNull
	}

	tw := tablewriter.NewWriter(w)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)

	if opts.Header {
		names := t.Names()
		tw.SetHeader(names)
		if !color.NoColor {
			colors := make([]tablewriter.Colors, len(names))
			for i := range colors {
				colors[i] = headerColor
			}
			tw.SetHeaderColor(colors...)
		}
	}

	for i := range t.NumRows() {
		row := t.Row(i)
		record := make([]string, len(row))
		for j, cell := range row {
			if cell == nil {
				record[j] = nullStyle.Sprint(null)
				continue
			}
			record[j] = *cell
		}
		tw.Append(record)
	}

	tw.Render()
	return nil
}
