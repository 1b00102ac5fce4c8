package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/marcinbor85/gohex"
	flag "github.com/spf13/pflag"

	"github.com/cd30aux/saf7730/hexcsv"
	"github.com/cd30aux/saf7730/internal/outfile"
)

const (
	formatBin  = "bin"
	formatIHex = "ihex"
)

var (
	errFormat    = errors.New("unknown output format")
	errRecordLen = errors.New("ihex record length must be at least 1")
)

type converter struct {
	Format string
	// Load address of the image, ihex output only.
	Base uint32
	// Bytes per Intel HEX data record.
	RecordLen uint8
	log       *slog.Logger
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "csv2bin - Convert a comma separated hex byte dump to a firmware image.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	input := flag.StringP("input", "i", "dsp_firmware.csv", "Input filename: hex byte CSV dump.")
	output := flag.StringP("output", "o", "dsp_firmware.bin", "Output filename.")
	format := flag.String("format", formatBin, "Output format. Accepts 'bin' or 'ihex'.")
	base := flag.Uint32("base", 0, "Load address of the image for ihex output.")
	recordLen := flag.Uint8("record-len", 16, "Bytes per ihex data record.")
	verbose := flag.BoolP("verbose", "v", false, "Log debug information.")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	c := converter{
		Format:    *format,
		Base:      *base,
		RecordLen: *recordLen,
		log:       logger,
	}
	start := time.Now()
	if err := c.run(*input, *output); err != nil {
		logger.Error("csv2bin:failed", slog.String("input", *input), slog.Any("reason", err))
		os.Exit(1)
	}
	logger.Info("csv2bin:done", slog.String("output", *output), slog.Duration("elapsed", time.Since(start)))
}

func (c *converter) run(input, output string) error {
	if c.Format != formatBin && c.Format != formatIHex {
		return fmt.Errorf("%w %q", errFormat, c.Format)
	}
	if c.Format == formatIHex && c.RecordLen == 0 {
		return errRecordLen
	}
	fp, err := os.Open(input)
	if err != nil {
		return err
	}
	defer fp.Close()
	data, err := hexcsv.Decode(fp)
	if err != nil {
		return err
	}
	c.log.Debug("csv2bin:decoded", slog.Int("bytes", len(data)))
	if c.Format == formatBin {
		return outfile.WriteFile(output, data, 0666)
	}
	return outfile.Write(output, 0666, func(w io.Writer) error {
		return c.encode(w, data)
	})
}

func (c *converter) encode(w io.Writer, data []byte) error {
	mem := gohex.NewMemory()
	if len(data) > 0 {
		if err := mem.AddBinary(c.Base, data); err != nil {
			return err
		}
	}
	return mem.DumpIntelHex(w, c.RecordLen)
}
