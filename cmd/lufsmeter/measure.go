//nolint:wrapcheck
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/lufsmeter"
)

func measureCommand() *cli.Command {
	return &cli.Command{
		Name:      "measure",
		Usage:     "Measure momentary and short-term loudness of raw PCM audio",
		ArgsUsage: "<file | ->",
		Flags:     slices.Concat(pcmFlags(), meterFlags()),
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errInvalidArgCount, cmd.NArg())
			}

			format, err := parsePCMFormat(cmd)
			if err != nil {
				return err
			}

			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}

			inputPath := cmd.Args().First()

			reader, cleanup, err := openInput(inputPath)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := lufsmeter.Measure(reader, format, opts)
			if err != nil {
				return fmt.Errorf("measurement failed: %w", err)
			}

			return outputResult(inputPath, result, cmd.String("format"))
		},
	}
}

// openInput returns stdin for "-", the opened file otherwise.
func openInput(source string) (io.Reader, func(), error) {
	if source == "-" {
		return os.Stdin, func() {}, nil
	}

	file, err := os.Open(source) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return nil, func() {}, fmt.Errorf("cannot access %s: %w", source, err)
	}

	return file, func() { _ = file.Close() }, nil
}
