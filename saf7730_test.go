package saf7730

import (
	"bytes"
	"testing"
)

func TestInputMuxCommand(t *testing.T) {
	for _, src := range []InputSource{InputMuxRadio, InputMuxCD, InputMuxAux, 0x42} {
		cmd := InputMuxCommand(src)
		if !bytes.Equal(cmd, []byte{0x0D, 0x00, 0x6A, 0x00, 0x00, byte(src)}) {
			t.Fatalf("bad command for %s: %#x", src, cmd)
		}
		got, ok := ParseInputMuxCommand(cmd)
		if !ok || got != src {
			t.Errorf("parse %#x: got %s,%v; want %s", cmd, got, ok, src)
		}
	}
	// Building a command must not alias the shared prefix.
	a := InputMuxCommand(InputMuxAux)
	b := InputMuxCommand(InputMuxCD)
	if a[5] != byte(InputMuxAux) || b[5] != byte(InputMuxCD) {
		t.Error("commands share backing array")
	}
}

func TestParseInputMuxCommandReject(t *testing.T) {
	for _, payload := range [][]byte{
		nil,
		{0x0D, 0x00, 0x6A, 0x00, 0x00},
		{0x0D, 0x00, 0x6B, 0x00, 0x00, 0x19},
		{0x0D, 0x00, 0x6A, 0x00, 0x00, 0x19, 0x00},
	} {
		if _, ok := ParseInputMuxCommand(payload); ok {
			t.Errorf("payload %#x should not parse as input mux command", payload)
		}
	}
}

func TestInputSourceString(t *testing.T) {
	if InputMuxAux.String() != "aux" || InputMuxRadio.String() != "radio" || InputMuxCD.String() != "cd" {
		t.Error("unexpected source names")
	}
	if InputSource(0).String() != "unknown" {
		t.Error("expected unknown")
	}
}
