package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/lufsmeter/version"
)

func main() {
	ctx := context.Background()

	appl := &cli.Command{
		Name:    version.Name(),
		Usage:   "Approximate momentary and short-term loudness meter",
		Version: version.Version() + " " + version.Commit(),
		Flags:   globalFlags(),
		Before:  setupLogging,
		Commands: []*cli.Command{
			measureCommand(),
			processCommand(),
			monitorCommand(),
			responseCommand(),
		},
	}

	if err := appl.Run(ctx, os.Args); err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}
