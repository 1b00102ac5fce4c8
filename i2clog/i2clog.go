// Package i2clog groups a line oriented I2C event log into transactions.
//
// A transaction starts at a "Write" or "Read" marker line and collects the
// address and data values that follow until the next marker. Values are
// treated as opaque text; they are not parsed.
package i2clog

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cd30aux/saf7730"
	"github.com/cd30aux/saf7730/hexcsv"
)

var (
	// ErrUnrecognized is returned in strict mode for lines that are not bus events.
	ErrUnrecognized = errors.New("i2clog: unrecognized line")
	// ErrOrphanField is returned in strict mode for an address or data line
	// seen before any transaction marker.
	ErrOrphanField = errors.New("i2clog: field outside of transaction")
	// ErrEmptyField is returned in strict mode for an address or data line with no value.
	ErrEmptyField = errors.New("i2clog: empty field value")
)

// LineError records the log line that failed conversion.
type LineError struct {
	Line int // 1-based.
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return e.Err.Error() + " at line " + strconv.Itoa(e.Line) + ": " + strconv.Quote(e.Text)
}

func (e *LineError) Unwrap() error { return e.Err }

// Transaction is one bus operation bounded by marker lines.
type Transaction struct {
	Dir Direction
	// Address followed by data values in log order. Fields are only ever appended.
	Fields []string
}

// Record returns the transaction as a CSV row: Type, Address, Data0...
func (t Transaction) Record() []string {
	rec := make([]string, 0, 1+len(t.Fields))
	rec = append(rec, t.Dir.String())
	return append(rec, t.Fields...)
}

// Addr returns the address field, if the log provided one.
func (t Transaction) Addr() (string, bool) {
	if len(t.Fields) == 0 {
		return "", false
	}
	return t.Fields[0], true
}

// Data returns the data fields.
func (t Transaction) Data() []string {
	if len(t.Fields) < 2 {
		return nil
	}
	return t.Fields[1:]
}

// Bytes parses the data fields as hex bytes.
func (t Transaction) Bytes() ([]byte, error) {
	return hexcsv.DecodeString(strings.Join(t.Data(), ","))
}

// Annotate describes transactions with known meaning on the CD30 bus. It
// currently recognizes SAF7730 input multiplexer switches.
func Annotate(t Transaction) (string, bool) {
	addr, ok := t.Addr()
	if !ok || t.Dir != Write {
		return "", false
	}
	a, err := strconv.ParseUint(strings.TrimPrefix(addr, "0x"), 16, 8)
	if err != nil || a != saf7730.Addr {
		return "", false
	}
	data, err := t.Bytes()
	if err != nil {
		return "", false
	}
	src, ok := saf7730.ParseInputMuxCommand(data)
	if !ok {
		return "", false
	}
	return "input-mux=" + src.String(), true
}

// Header returns a header row with n data columns.
func Header(n int) []string {
	h := make([]string, 0, 2+n)
	h = append(h, "Type", "Address")
	for i := 0; i < n; i++ {
		h = append(h, "Data"+strconv.Itoa(i))
	}
	return h
}

// Number of data columns in the placeholder row of legacy mode.
const legacyDataColumns = 20

// Converter folds event log lines into CSV rows.
type Converter struct {
	// Strict makes unrecognized lines, fields outside a transaction and
	// empty field values an error instead of skipping them.
	Strict bool
	// Legacy reproduces the original capture script: the first row is a
	// 22 column header-shaped placeholder that collects any fields seen
	// before the first marker, and the last transaction is never written.
	Legacy bool
	// Header writes a header row sized to the widest transaction.
	// Ignored in legacy mode, whose placeholder row plays that part.
	Header bool
	// Logger receives debug messages about skipped lines. May be nil.
	Logger *slog.Logger
}

// Convert returns the CSV rows for lines.
func (c Converter) Convert(lines []string) ([][]string, error) {
	rows, err := c.fold(lines, c.Legacy)
	if err != nil {
		return nil, err
	}
	if c.Legacy || !c.Header {
		return rows, nil
	}
	width := 0
	for _, row := range rows {
		width = max(width, len(row)-2)
	}
	return append([][]string{Header(width)}, rows...), nil
}

// Transactions returns every transaction in lines, including the last one.
// The Legacy and Header options do not apply.
func (c Converter) Transactions(lines []string) ([]Transaction, error) {
	rows, err := c.fold(lines, false)
	if err != nil {
		return nil, err
	}
	txs := make([]Transaction, len(rows))
	for i, row := range rows {
		txs[i].Dir = Write
		if row[0] == Read.String() {
			txs[i].Dir = Read
		}
		txs[i].Fields = row[1:]
	}
	return txs, nil
}

func (c Converter) fold(lines []string, legacy bool) (rows [][]string, err error) {
	var cur []string // Open transaction, nil if none.
	if legacy {
		cur = Header(legacyDataColumns)
	}
	for i, line := range lines {
		ev, ok := ParseEvent(line)
		if !ok {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if c.Strict {
				return nil, &LineError{Line: i + 1, Text: line, Err: ErrUnrecognized}
			}
			c.debug("i2clog:skip-line", i+1, line)
			continue
		}
		switch ev.Kind {
		case EventStart:
			if cur != nil {
				rows = append(rows, cur)
			}
			cur = []string{ev.Dir.String()}
		case EventAddress, EventData:
			if c.Strict && ev.Value == "" {
				return nil, &LineError{Line: i + 1, Text: line, Err: ErrEmptyField}
			}
			if cur == nil {
				if c.Strict {
					return nil, &LineError{Line: i + 1, Text: line, Err: ErrOrphanField}
				}
				c.debug("i2clog:orphan-field", i+1, line)
				continue
			}
			cur = append(cur, ev.Value)
		}
	}
	if cur != nil && !legacy {
		rows = append(rows, cur)
	}
	return rows, nil
}

func (c Converter) debug(msg string, lineno int, line string) {
	if c.Logger == nil {
		return
	}
	c.Logger.Debug(msg, slog.Int("line", lineno), slog.String("text", line))
}

// ReadLines reads r to the end and splits it into lines without terminators.
// Lines may end in \n, \r\n or a lone \r.
func ReadLines(r io.Reader) ([]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(b), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}
