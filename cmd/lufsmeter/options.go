//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/lufsmeter"
	"github.com/farcloser/lufsmeter/internal/engine"
	"github.com/farcloser/lufsmeter/internal/types"
)

var errInvalidArgCount = errors.New("expected exactly one argument: file path or \"-\" for stdin")

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "YAML engine configuration (sample_rate, momentary_seconds, short_term_seconds, topology, gains, weighting)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: console, json, markdown",
			Value:   "console",
		},
		&cli.StringFlag{
			Name:  "topology",
			Usage: "What the windows accumulate: parallel (raw samples) or inline (weighted samples)",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"D"},
			Usage:   "Enable debug logging",
		},
	}
}

func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	return ctx, nil
}

func pcmFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "sample-rate",
			Aliases: []string{"s"},
			Usage:   "Sample rate in Hz (e.g., 44100, 48000, 96000)",
			Value:   44100,
		},
		&cli.IntFlag{
			Name:    "bit-depth",
			Aliases: []string{"b"},
			Usage:   "Bit depth (16, 24, or 32)",
			Value:   32,
		},
		&cli.IntFlag{
			Name:    "channels",
			Aliases: []string{"c"},
			Usage:   "Number of channels (1 = mono, 2 = stereo, extra channels are ignored)",
			Value:   2,
		},
	}
}

func meterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "block-size",
			Usage: "Frames per ingested block",
			Value: lufsmeter.DefaultBlockSize,
		},
		&cli.BoolFlag{
			Name:    "timeline",
			Aliases: []string{"t"},
			Usage:   "Include every poll in the output",
		},
	}
}

var errInvalidChannels = errors.New("must be at least 1")

func parsePCMFormat(cmd *cli.Command) (types.PCMFormat, error) {
	sampleRate := cmd.Int("sample-rate")
	if sampleRate <= 0 {
		return types.PCMFormat{}, fmt.Errorf("--sample-rate: invalid value %d", sampleRate)
	}

	bitDepth, err := types.ParseBitDepth(cmd.Int("bit-depth"))
	if err != nil {
		return types.PCMFormat{}, fmt.Errorf("--bit-depth: %w", err)
	}

	channels := cmd.Int("channels")
	if channels < 1 {
		return types.PCMFormat{}, fmt.Errorf("--channels: %w", errInvalidChannels)
	}

	return types.PCMFormat{
		SampleRate: sampleRate,
		BitDepth:   bitDepth,
		Channels:   uint(channels), //nolint:gosec // validated positive value
	}, nil
}

// loadOptions assembles meter options from --config, --topology and the per-command flags.
func loadOptions(cmd *cli.Command) (lufsmeter.Options, error) {
	opts := lufsmeter.DefaultOptions()

	if path := cmd.String("config"); path != "" {
		cfg, err := engine.LoadConfig(path)
		if err != nil {
			return opts, err
		}

		opts.Engine = cfg
	}

	if raw := cmd.String("topology"); raw != "" {
		topology, err := engine.ParseTopology(raw)
		if err != nil {
			return opts, fmt.Errorf("--topology: %w", err)
		}

		opts.Engine.Topology = topology
	}

	if cmd.IsSet("block-size") {
		opts.BlockSize = cmd.Int("block-size")
	}

	opts.Timeline = cmd.Bool("timeline")

	return opts, nil
}
