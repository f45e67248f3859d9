//nolint:wrapcheck
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/farcloser/primordium/format"
	"github.com/urfave/cli/v3"

	"github.com/farcloser/lufsmeter/internal/engine"
	"github.com/farcloser/lufsmeter/internal/output"
	"github.com/farcloser/lufsmeter/internal/types"
	"github.com/farcloser/lufsmeter/internal/weighting"
)

const defaultFrequencies = "20,40,100,500,1000,1650,3000,5000,10000,15000"

func responseCommand() *cli.Command {
	return &cli.Command{
		Name:  "response",
		Usage: "Print the magnitude response of the weighting filter, channel gain included",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "channel",
				Usage: "Channel whose filter to measure: left, right",
				Value: "right",
			},
			&cli.StringFlag{
				Name:  "frequencies",
				Usage: "Comma-separated frequencies in Hz",
				Value: defaultFrequencies,
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "Impulse length (FFT size)",
				Value: 16384,
			},
			&cli.IntFlag{
				Name:    "sample-rate",
				Aliases: []string{"s"},
				Usage:   "Sample rate in Hz (overrides the configuration)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Print every FFT bin instead of the chosen frequencies",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}

			if rate := cmd.Int("sample-rate"); rate > 0 {
				opts.Engine.SampleRate = float64(rate)
			}

			channel, err := types.ParseChannel(cmd.String("channel"))
			if err != nil {
				return err
			}

			freqs, err := parseFrequencies(cmd.String("frequencies"))
			if err != nil {
				return err
			}

			size := cmd.Int("size")
			if size < 2 {
				return fmt.Errorf("--size: invalid value %d", size)
			}

			eng, err := engine.New(opts.Engine)
			if err != nil {
				return err
			}

			points := eng.Response(channel, size)

			meta := map[string]any{
				"channel":     channel.String(),
				"sample_rate": eng.Config().SampleRate,
			}

			if cmd.Bool("all") {
				meta["response"] = output.ResponseToList(points)
			} else {
				chosen := make([]weighting.Point, 0, len(freqs))
				for _, freq := range freqs {
					chosen = append(chosen, weighting.GainAt(points, freq))
				}

				meta["response"] = output.ResponseToList(chosen)
			}

			formatter, err := format.GetFormatter(cmd.String("format"))
			if err != nil {
				return err
			}

			return formatter.PrintAll([]*format.Data{{Object: "weighting", Meta: meta}}, os.Stdout)
		},
	}
}

func parseFrequencies(raw string) ([]float64, error) {
	var freqs []float64

	for field := range strings.SplitSeq(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		freq, err := strconv.ParseFloat(field, 64)
		if err != nil || freq < 0 {
			return nil, fmt.Errorf("invalid frequency %q", field)
		}

		freqs = append(freqs, freq)
	}

	return freqs, nil
}
