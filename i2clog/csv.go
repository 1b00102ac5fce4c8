package i2clog

import (
	"encoding/csv"
	"io"
)

// WriteCSV writes rows to w with minimal quoting. Rows are written as given,
// without padding. crlf selects \r\n line endings, as written by the
// original Python capture script.
func WriteCSV(w io.Writer, rows [][]string, crlf bool) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = crlf
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
