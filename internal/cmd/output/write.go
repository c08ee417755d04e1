package output

import (
	"io"
)

// Write renders raw in format. Table formats render rows, built lazily
// since structured formats never need them.
func Write(w io.Writer, format Format, raw any, rows func(wide bool) any) error {
	if format.IsTable() && rows != nil {
		return NewFormatter(format).Format(w, rows(format == FormatWide))
	}
	return NewFormatter(format).Format(w, raw)
}
