package hexcsv

import (
	"bufio"
	"io"
)

// Encoder writes bytes in the comma separated hex dump format read by [Decode].
type Encoder struct {
	// Number of tokens per line. Zero or negative writes all tokens on one line.
	PerLine int
	// Use lower case hex digits.
	Lower bool
}

const (
	upperDigits = "0123456789ABCDEF"
	lowerDigits = "0123456789abcdef"
)

// Encode writes data to w. Every written line, including the last, ends in a
// newline. Nothing is written for empty data.
func (enc Encoder) Encode(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	digits := upperDigits
	if enc.Lower {
		digits = lowerDigits
	}
	perLine := enc.PerLine
	if perLine <= 0 {
		perLine = len(data)
	}
	bw := bufio.NewWriter(w)
	for len(data) > 0 {
		n := min(perLine, len(data))
		for i, b := range data[:n] {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteByte(digits[b>>4])
			bw.WriteByte(digits[b&0xf])
		}
		bw.WriteByte('\n')
		data = data[n:]
	}
	return bw.Flush()
}
