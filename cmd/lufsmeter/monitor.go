//nolint:wrapcheck
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/lufsmeter"
	"github.com/farcloser/lufsmeter/internal/capture"
	"github.com/farcloser/lufsmeter/internal/output"
)

func monitorCommand() *cli.Command {
	return &cli.Command{
		Name:      "monitor",
		Usage:     "Live meter: capture the audio input, or replay raw PCM at real-time pace",
		ArgsUsage: "[file | -]",
		Flags: slices.Concat(pcmFlags(), meterFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Capture device name (default input device when empty, needs a portaudio build)",
			},
			&cli.FloatFlag{
				Name:  "speed",
				Usage: "Replay speed multiplier for PCM input",
				Value: 1,
			},
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 1 {
				return fmt.Errorf("%w: got %d", errInvalidArgCount, cmd.NArg())
			}

			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}

			format, err := parsePCMFormat(cmd)
			if err != nil {
				return err
			}

			var (
				src    lufsmeter.Source
				object = "input"
			)

			if cmd.NArg() == 1 {
				object = cmd.Args().First()

				reader, cleanup, openErr := openInput(object)
				if openErr != nil {
					return openErr
				}
				defer cleanup()

				paced := capture.NewPaced(reader, format, opts.BlockSize)
				paced.Speed = cmd.Float("speed")
				src = paced
			} else {
				if cmd.String("input") != "" {
					object = cmd.String("input")
				}

				src = capture.NewPortAudio(float64(format.SampleRate), opts.BlockSize, cmd.String("input"))
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			sink := updatePrinter(os.Stdout, cmd.String("format"))

			result, err := lufsmeter.Monitor(ctx, src, opts, sink)
			if err != nil {
				return fmt.Errorf("monitoring failed: %w", err)
			}

			return outputResult(object, result, cmd.String("format"))
		},
	}
}

// updatePrinter streams polls: JSON lines for json, one text line per poll otherwise.
func updatePrinter(out io.Writer, formatName string) func(lufsmeter.Update) {
	if formatName == "json" {
		enc := json.NewEncoder(out)

		return func(update lufsmeter.Update) {
			_ = enc.Encode(output.UpdateToMap(update))
		}
	}

	return func(update lufsmeter.Update) {
		_, _ = fmt.Fprintf(out, "%9.3fs  %-10s  M %6s  S %6s\n",
			update.At.Seconds(),
			update.Measurement,
			output.FormatLoudness(update.Reading.Momentary),
			output.FormatLoudness(update.Reading.ShortTerm),
		)
	}
}
