// Package saf7730 holds bus-level knowledge of the NXP SAF7730 car radio DSP
// as found in the Opel CD30 head unit. The subpackages convert captures and
// dumps taken from that board into forms that are easier to study.
package saf7730

// I2C slave address of the SAF7730 (7 bit, unshifted).
const Addr = 0x1C

// Input multiplexer sources selectable over I2C.
const (
	// Internal DAC of the tuner chip.
	InputMuxRadio InputSource = 0x13
	// Internal I2S DAC fed by the CD mechanism.
	InputMuxCD InputSource = 0x2B
	// CD-IN analog inputs, wired as AUX on the CD30.
	InputMuxAux InputSource = 0x19
)

// InputSource is the value written to the input multiplexer register.
type InputSource uint8

func (s InputSource) String() (str string) {
	switch s {
	case InputMuxRadio:
		str = "radio"
	case InputMuxCD:
		str = "cd"
	case InputMuxAux:
		str = "aux"
	default:
		str = "unknown"
	}
	return str
}

// Register write prefix that precedes the source byte in an input mux switch.
var inputMuxPrefix = [5]byte{0x0D, 0x00, 0x6A, 0x00, 0x00}

// ParseInputMuxCommand reports whether payload, the data bytes of a write to
// [Addr], is an input multiplexer switch and returns the selected source.
// Unknown source values are returned as-is with ok set.
func ParseInputMuxCommand(payload []byte) (src InputSource, ok bool) {
	if len(payload) != len(inputMuxPrefix)+1 {
		return 0, false
	}
	if [5]byte(payload[:5]) != inputMuxPrefix {
		return 0, false
	}
	return InputSource(payload[5]), true
}

// InputMuxCommand returns the data bytes that switch the input multiplexer to src.
func InputMuxCommand(src InputSource) []byte {
	return append(inputMuxPrefix[:len(inputMuxPrefix):len(inputMuxPrefix)], byte(src))
}
