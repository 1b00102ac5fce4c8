// Package outfile writes output files atomically so that a failed conversion
// never leaves a partial file behind.
package outfile

import (
	"bufio"
	"io"
	"os"

	"github.com/google/renameio/v2"
)

// Write calls fn with a buffered writer to a temporary file and renames it to
// path once fn and the final flush succeed. On error path is left untouched.
func Write(path string, perm os.FileMode, fn func(w io.Writer) error) error {
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm))
	if err != nil {
		return err
	}
	defer pf.Cleanup()
	bw := bufio.NewWriter(pf)
	if err = fn(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
