package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cd30aux/saf7730/i2clog"
)

const capture = `Start
Write
Address write: 1C
Data write: 0D
Data write: 00
Data write: 6A
Data write: 00
Data write: 00
Data write: 2B
Stop
Read
Address read: 1C
Data read: 3F
Data read: 6D
`

type recorder struct {
	msgs   []string
	err    error
	closed int
}

func (r *recorder) Close() error {
	r.closed++
	return nil
}

func (r *recorder) Publish(payload []byte) error {
	r.msgs = append(r.msgs, string(payload))
	return r.err
}

func setup(t *testing.T, content string) (in, out string) {
	t.Helper()
	dir := t.TempDir()
	in = filepath.Join(dir, "capture.txt")
	if err := os.WriteFile(in, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return in, filepath.Join(dir, "capture.csv")
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRun(t *testing.T) {
	in, out := setup(t, capture)
	a := app{conv: i2clog.Converter{Header: true}, log: discard()}
	if err := a.run(in, out); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	const want = "Type,Address,Data0,Data1,Data2,Data3,Data4,Data5\n" +
		"Write,1C,0D,00,6A,00,00,2B\n" +
		"Read,1C,3F,6D\n"
	if string(got) != want {
		t.Errorf("got %q; want %q", got, want)
	}
	if err := a.run(in, out); err != nil {
		t.Fatal(err)
	}
	again, _ := os.ReadFile(out)
	if !bytes.Equal(got, again) {
		t.Error("output differs between runs")
	}
}

func TestRunLegacy(t *testing.T) {
	in, out := setup(t, capture)
	a := app{conv: i2clog.Converter{Legacy: true}, crlf: true, log: discard()}
	if err := a.run(in, out); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(out)
	lines := strings.Split(strings.TrimSuffix(string(got), "\r\n"), "\r\n")
	if len(lines) != 2 {
		t.Fatalf("expected placeholder and write rows, got %q", got)
	}
	if !strings.HasPrefix(lines[0], "Type,Address,Data0,") || !strings.HasSuffix(lines[0], ",Data19") {
		t.Errorf("bad placeholder %q", lines[0])
	}
	if lines[1] != "Write,1C,0D,00,6A,00,00,2B" {
		t.Errorf("bad row %q", lines[1])
	}
}

func TestRunStrictFailure(t *testing.T) {
	in, out := setup(t, capture)
	a := app{conv: i2clog.Converter{Strict: true}, log: discard()}
	err := a.run(in, out)
	if !errors.Is(err, i2clog.ErrUnrecognized) {
		t.Fatalf("expected unrecognized line error, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output should be written on failure")
	}
}

func TestRunAnnotatePublish(t *testing.T) {
	in, out := setup(t, capture)
	var logbuf bytes.Buffer
	rec := &recorder{}
	a := app{
		annotate: true,
		pub:      rec,
		log:      slog.New(slog.NewTextHandler(&logbuf, nil)),
	}
	if err := a.run(in, out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logbuf.String(), "input-mux=cd") {
		t.Errorf("expected input mux annotation, log: %q", logbuf.String())
	}
	want := []string{"Write,1C,0D,00,6A,00,00,2B", "Read,1C,3F,6D"}
	if strings.Join(rec.msgs, "|") != strings.Join(want, "|") {
		t.Errorf("published %q; want %q", rec.msgs, want)
	}
}

func TestRunPublishFailure(t *testing.T) {
	in, out := setup(t, capture)
	errBroker := errors.New("broker gone")
	a := app{pub: &recorder{err: errBroker}, log: discard()}
	if err := a.run(in, out); !errors.Is(err, errBroker) {
		t.Fatalf("expected publish error, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output should be written on failure")
	}
}

func TestExecClosesPublisher(t *testing.T) {
	in, out := setup(t, capture)
	rec := &recorder{}
	a := app{pub: rec, log: discard()}
	if err := a.exec(in, out); err != nil {
		t.Fatal(err)
	}
	if rec.closed != 1 {
		t.Errorf("publisher closed %d times after success", rec.closed)
	}

	rec = &recorder{}
	a = app{conv: i2clog.Converter{Strict: true}, pub: rec, log: discard()}
	if err := a.exec(in, out); !errors.Is(err, i2clog.ErrUnrecognized) {
		t.Fatalf("expected conversion error, got %v", err)
	}
	if rec.closed != 1 {
		t.Errorf("publisher closed %d times after failure", rec.closed)
	}
}
