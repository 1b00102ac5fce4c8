package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/cd30aux/saf7730/i2clog"
	"github.com/cd30aux/saf7730/internal/mqttpub"
	"github.com/cd30aux/saf7730/internal/outfile"
)

// publisher is satisfied by *mqttpub.Publisher.
type publisher interface {
	Publish(payload []byte) error
}

type app struct {
	conv     i2clog.Converter
	crlf     bool
	annotate bool
	pub      publisher
	log      *slog.Logger
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "i2c2csv - Group a sigrok I2C annotation log into CSV transaction rows.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	input := flag.StringP("input", "i", "test", "Input filename: sigrok-cli I2C annotation output.")
	output := flag.StringP("output", "o", "test.csv", "Output CSV filename.")
	strict := flag.Bool("strict", false, "Fail on lines that are not I2C events instead of skipping them.")
	legacy := flag.Bool("legacy", false, "Reproduce the original script: placeholder first row and last transaction dropped.")
	header := flag.Bool("header", false, "Write a header row sized to the widest transaction.")
	crlf := flag.Bool("crlf", false, "Terminate CSV lines with \\r\\n.")
	annotate := flag.Bool("annotate", false, "Log known SAF7730 commands found in the capture.")
	broker := flag.String("mqtt-broker", "", "Publish each transaction to this MQTT broker (host:port).")
	topic := flag.String("mqtt-topic", "cd30/i2c", "MQTT topic for published transactions.")
	clientID := flag.String("mqtt-client", "i2c2csv", "MQTT client identifier.")
	verbose := flag.BoolP("verbose", "v", false, "Log debug information, including skipped lines.")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	a := app{
		conv: i2clog.Converter{
			Strict: *strict,
			Legacy: *legacy,
			Header: *header,
			Logger: logger,
		},
		crlf:     *crlf || *legacy,
		annotate: *annotate,
		log:      logger,
	}
	if *broker != "" {
		p, err := mqttpub.Dial(context.Background(), mqttpub.Config{
			Broker:   *broker,
			ClientID: *clientID,
			Topic:    *topic,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("i2c2csv:mqtt-connect-failed", slog.String("broker", *broker), slog.Any("reason", err))
			os.Exit(1)
		}
		a.pub = p
	}
	start := time.Now()
	if err := a.exec(*input, *output); err != nil {
		logger.Error("i2c2csv:failed", slog.String("input", *input), slog.Any("reason", err))
		os.Exit(1)
	}
	logger.Info("i2c2csv:done", slog.String("output", *output), slog.Duration("elapsed", time.Since(start)))
}

// exec runs the conversion and then closes the publisher, if any, so the
// broker sees a disconnect whether or not the conversion succeeded.
func (a *app) exec(input, output string) error {
	err := a.run(input, output)
	if c, ok := a.pub.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil {
			a.log.Warn("i2c2csv:mqtt-close-failed", slog.Any("reason", cerr))
		}
	}
	return err
}

func (a *app) run(input, output string) error {
	fp, err := os.Open(input)
	if err != nil {
		return err
	}
	defer fp.Close()
	lines, err := i2clog.ReadLines(fp)
	if err != nil {
		return err
	}
	rows, err := a.conv.Convert(lines)
	if err != nil {
		return err
	}
	a.log.Debug("i2c2csv:converted", slog.Int("lines", len(lines)), slog.Int("rows", len(rows)))
	if a.annotate || a.pub != nil {
		if err = a.report(lines); err != nil {
			return err
		}
	}
	return outfile.Write(output, 0666, func(w io.Writer) error {
		return i2clog.WriteCSV(w, rows, a.crlf)
	})
}

// report annotates and publishes every transaction of the capture.
func (a *app) report(lines []string) error {
	txs, err := a.conv.Transactions(lines)
	if err != nil {
		return err
	}
	for i, tx := range txs {
		if a.annotate {
			if note, ok := i2clog.Annotate(tx); ok {
				a.log.Info("i2c2csv:annotation", slog.Int("tx", i), slog.String("cmd", note))
			}
		}
		if a.pub != nil {
			if err = a.pub.Publish([]byte(strings.Join(tx.Record(), ","))); err != nil {
				return err
			}
		}
	}
	return nil
}
