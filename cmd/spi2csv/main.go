package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
	flag "github.com/spf13/pflag"
	"golang.org/x/exp/constraints"

	"github.com/cd30aux/saf7730/hexcsv"
	"github.com/cd30aux/saf7730/internal/outfile"
)

type BusCtl struct {
	// Bus ordering.
	Order binary.ByteOrder
	// Interpret bytes as words.
	WordInterpreter binary.ByteOrder
	// Leading command/address bytes dropped from every transaction.
	Skip uint
	// Trailing bytes dropped from every transaction.
	Trim uint
	// Tokens per output line, 0 keeps one line per transaction.
	PerLine int
	log     *slog.Logger
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "spi2csv - Extract SPI payloads from Saleae binary digital exports as a hex byte CSV dump.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	sdio := flag.String("f-sd", "digital_1.bin", "Input filename: SPI data line.")
	enable := flag.String("f-cs", "digital_0.bin", "Input filename: SPI CS/SS data.")
	clk := flag.String("f-clk", "digital_2.bin", "Input filename: SPI clock data.")
	output := flag.StringP("output", "o", "dsp_firmware.csv", "Output filename of the hex byte dump.")
	const defaultOrdering = "be"
	flagInterpretWords := flag.String("interpret-words", "", "Interpret byte data as uint32 words in this order. Accepts 'be' or 'le'.")
	flagOrder := flag.String("bctl-order", defaultOrdering, "Byte order of words on the bus. Accepts 'be' or 'le'.")
	skip := flag.Uint("skip", 0, "Drop n leading command bytes of every transaction.")
	trim := flag.Uint("trim", 0, "Drop n trailing bytes of every transaction.")
	perLine := flag.Int("per-line", 0, "Bytes per output line. 0 writes one line per transaction.")
	verbose := flag.BoolP("verbose", "v", false, "Log every transaction.")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if *flagInterpretWords == "" {
		*flagInterpretWords = *flagOrder
	}
	getOrder := func(s string) binary.ByteOrder {
		switch s {
		case "be":
			return binary.BigEndian
		case "le":
			return binary.LittleEndian
		}
		logger.Error("spi2csv:invalid-ordering", slog.String("order", s))
		os.Exit(1)
		return nil
	}
	bus := BusCtl{
		Order:           getOrder(*flagOrder),
		WordInterpreter: getOrder(*flagInterpretWords),
		Skip:            *skip,
		Trim:            *trim,
		PerLine:         *perLine,
		log:             logger,
	}
	start := time.Now()
	if err := bus.run(*sdio, *enable, *clk, *output); err != nil {
		logger.Error("spi2csv:failed", slog.Any("reason", err))
		os.Exit(1)
	}
	logger.Info("spi2csv:done", slog.String("output", *output), slog.Duration("elapsed", time.Since(start)))
}

func (bus *BusCtl) run(sdio, enable, clk, output string) error {
	frames, err := bus.processSpiFiles(sdio, clk, enable)
	if err != nil {
		return err
	}
	return outfile.Write(output, 0666, func(w io.Writer) error {
		return bus.writeFrames(w, frames)
	})
}

func (bus *BusCtl) writeFrames(w io.Writer, frames [][]byte) error {
	enc := hexcsv.Encoder{PerLine: bus.PerLine}
	for _, frame := range frames {
		if err := enc.Encode(w, frame); err != nil {
			return err
		}
	}
	return nil
}

func (bus *BusCtl) processSpiFiles(fsdio, fclk, fenable string) ([][]byte, error) {
	sdio, err := opendigital(fsdio)
	if err != nil {
		return nil, err
	}
	clk, err := opendigital(fclk)
	if err != nil {
		return nil, err
	}
	enable, err := opendigital(fenable)
	if err != nil {
		return nil, err
	}
	spi := analyzers.SPI{}
	txs, _ := spi.Scan(clk, enable, sdio, sdio)
	frames := make([][]byte, len(txs))
	for i, tx := range txs {
		bus.log.Debug("spi2csv:tx", slog.Int("n", i), slog.Float64("t", tx.StartTime()), slog.Int("len", len(tx.SDO)))
		frames[i] = tx.SDO
	}
	return bus.process(frames), nil
}

func opendigital(filename string) (*saleae.DigitalFile, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	df, err := saleae.ReadDigitalFile(fp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return df, nil
}

// process strips framing bytes off every transaction and drops the ones left empty.
func (bus *BusCtl) process(frames [][]byte) (out [][]byte) {
	for _, frame := range frames {
		data := frame[min(uint(len(frame)), bus.Skip):]
		data = data[:len(data)-int(min(uint(len(data)), bus.Trim))]
		if len(data) == 0 {
			continue
		}
		data = append([]byte(nil), data...)
		bus.interpretBytes(data)
		out = append(out, data)
	}
	return out
}

var interpretOnce sync.Once

func (bus *BusCtl) interpretBytes(data []byte) {
	if bus.WordInterpreter == bus.Order {
		return // Idempotent transformation.
	}
	interpretOnce.Do(func() {
		if bus.log != nil {
			bus.log.Info("spi2csv:interpreting bytes as words", slog.String("order", bus.WordInterpreter.String()))
		}
	})
	for len(data) >= 4 {
		word := bus.Order.Uint32(data[:4])
		bus.WordInterpreter.PutUint32(data[:4], word)
		data = data[4:]
	}
}

func min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}
