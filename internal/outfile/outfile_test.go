package outfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	err := Write(path, 0644, func(w io.Writer) error {
		_, err := io.WriteString(w, "Write,1C,01\n")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Write,1C,01\n" {
		t.Errorf("got %q", got)
	}
}

func TestWriteFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fw.bin")
	errConvert := errors.New("conversion failed")
	err := Write(path, 0644, func(w io.Writer) error {
		w.Write([]byte{0xde, 0xad})
		return errConvert
	})
	if !errors.Is(err, errConvert) {
		t.Fatalf("expected conversion error, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("output file should not exist, stat: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty directory, found %d entries", len(entries))
	}
}

func TestWriteFailureKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fw.bin")
	if err := WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	err := Write(path, 0644, func(w io.Writer) error {
		io.WriteString(w, "new partial")
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	got, _ := os.ReadFile(path)
	if string(got) != "old" {
		t.Errorf("existing file modified: %q", got)
	}
}
