package formatter

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/treetab/treetab/internal/table"
)

// JSONWriter renders a table as an array of row objects. Keys keep the
// column order and missing cells are null.
type JSONWriter struct{}

func (f *JSONWriter) Write(w io.Writer, t *table.Table, _ Options) error {
	names := t.Names()
	keys := make([][]byte, len(names))
	for i, name := range names {
		k, err := json.Marshal(name)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := range t.NumRows() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, cell := range t.Row(i) {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[j])
			buf.WriteByte(':')
			val, err := json.Marshal(cell)
			if err != nil {
				return err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteString("]\n")

	_, err := w.Write(buf.Bytes())
	return err
}
