// Package hexcsv converts textual hex byte dumps of the form
//
//	0A,1F,FF,
//	00,7C,
//
// into raw bytes and back. Tokens are separated by commas and may be spread
// over any number of lines. Empty tokens, such as those left by trailing
// commas or blank lines, contribute no bytes.
package hexcsv

import (
	"errors"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedHex is matched by every *MalformedHexError via errors.Is.
var ErrMalformedHex = errors.New("hexcsv: malformed hex token")

// MalformedHexError is returned when a token is not a hexadecimal value in 0..255.
type MalformedHexError struct {
	Line  int // 1-based line number.
	Index int // Token position within the line, 0-based.
	Token string
	Err   error // Underlying parse error.
}

func (e *MalformedHexError) Error() string {
	return "hexcsv: line " + strconv.Itoa(e.Line) + " token " + strconv.Itoa(e.Index) +
		": malformed hex byte " + strconv.Quote(e.Token) + ": " + e.Err.Error()
}

func (e *MalformedHexError) Unwrap() error { return e.Err }

func (e *MalformedHexError) Is(target error) bool { return target == ErrMalformedHex }

// Decode reads all of r and returns the bytes described by its hex tokens.
// On a malformed token no data is returned.
func Decode(r io.Reader) ([]byte, error) {
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeString(string(text))
}

// DecodeString is like [Decode] but takes the dump text directly.
func DecodeString(text string) ([]byte, error) {
	// Two characters and a comma per byte is the common layout.
	out := make([]byte, 0, len(text)/3+1)
	for i, line := range splitLines(text) {
		for j, tok := range strings.Split(line, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			b, err := parseByte(tok)
			if err != nil {
				return nil, &MalformedHexError{Line: i + 1, Index: j, Token: tok, Err: err}
			}
			out = append(out, b)
		}
	}
	return out, nil
}

func parseByte(tok string) (byte, error) {
	digits := tok
	if len(digits) > 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}
	v, err := strconv.ParseUint(digits, 16, 8)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err // Drop the repeated function name and input.
		}
		return 0, err
	}
	return byte(v), nil
}

// splitLines splits on \n, \r\n and lone \r.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
