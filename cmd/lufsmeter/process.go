//nolint:wrapcheck
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/lufsmeter"
	"github.com/farcloser/lufsmeter/internal/media"
)

var errProcessArgs = errors.New("expected exactly one argument: file path")

func processCommand() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Decode an audio file with ffmpeg and measure its loudness",
		ArgsUsage: "<file>",
		Flags: slices.Concat([]cli.Flag{
			&cli.IntFlag{
				Name:  "stream",
				Usage: "Audio stream index (0-based)",
				Value: 0,
			},
		}, meterFlags()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errProcessArgs, cmd.NArg())
			}

			filePath := cmd.Args().First()
			streamIndex := cmd.Int("stream")

			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}

			_, format, err := media.Probe(ctx, filePath, streamIndex)
			if err != nil {
				return err
			}

			pcmData, err := media.Extract(ctx, filePath, streamIndex, format)
			if err != nil {
				return err
			}

			result, err := lufsmeter.Measure(bytes.NewReader(pcmData), format, opts)
			if err != nil {
				return fmt.Errorf("measurement failed: %w", err)
			}

			return outputResult(filePath, result, cmd.String("format"))
		},
	}
}
