//nolint:wrapcheck
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/farcloser/lufsmeter"
	"github.com/farcloser/lufsmeter/internal/engine"
	"github.com/farcloser/lufsmeter/internal/media"
	"github.com/farcloser/lufsmeter/internal/output"
)

const outputFile = "lufsmeter-report.jsonl"

var (
	errNotDirectory = errors.New("not a directory")
	errNoAudioFiles = errors.New("no audio files found")
)

//nolint:gochecknoglobals // configuration data, effectively const
var audioExtensions = []string{".flac", ".m4a", ".mp3", ".ogg", ".opus", ".wav", ".aiff"}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Measure every audio file of a folder and write a JSONL report",
		ArgsUsage: "<folder>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "redact-path",
				Usage: "Strip file paths from the report",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML engine configuration",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Report file path",
				Value: outputFile,
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Number of concurrent workers",
				Value:   runtime.NumCPU(),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("expected exactly one argument: folder path")
			}

			opts := lufsmeter.DefaultOptions()

			if path := cmd.String("config"); path != "" {
				cfg, err := engine.LoadConfig(path)
				if err != nil {
					return err
				}

				opts.Engine = cfg
			}

			workers := max(cmd.Int("workers"), 1)

			return runReport(ctx, cmd.Args().First(), cmd.String("output"), cmd.Bool("redact-path"), workers, opts)
		},
	}
}

func runReport(ctx context.Context, folder, reportPath string, redact bool, workers int, opts lufsmeter.Options) error {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q: %w", folder, errNotDirectory)
	}

	files, err := collectAudioFiles(folder)
	if err != nil {
		return fmt.Errorf("scanning folder: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("%q: %w", folder, errNoAudioFiles)
	}

	fmt.Fprintf(os.Stderr, "Found %d files to measure (%d workers)\n", len(files), workers)

	startTime := time.Now()
	results := make([]Record, len(files))

	var progress atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for idx, filePath := range files {
		group.Go(func() error {
			results[idx] = processFile(groupCtx, filePath, opts)

			done := progress.Add(1)
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", done, len(files), filePath)

			return nil
		})
	}

	// Per-file failures are recorded, never returned.
	_ = group.Wait()

	out, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	failed := 0

	var totalProbe, totalDecode, totalMeasure time.Duration

	for idx := range results {
		record := &results[idx]

		if record.Error != "" {
			failed++
		}

		if record.Timing != nil {
			totalProbe += millisToDuration(record.Timing.ProbeMs)
			totalDecode += millisToDuration(record.Timing.DecodeMs)
			totalMeasure += millisToDuration(record.Timing.MeasureMs)
		}

		if redact {
			record.File = ""
			record.Probe = redactProbe(record.Probe)
		}

		if err := enc.Encode(record); err != nil {
			slog.Error("writing record", "file", files[idx], "error", err)
		}
	}

	out.Close()

	if err := compressFile(reportPath); err != nil {
		slog.Error("compressing report", "error", err)
	}

	elapsed := time.Since(startTime)

	fmt.Fprintf(os.Stderr, "\nDone: %d files in %s (%d failed)\n", len(files), elapsed.Truncate(time.Second), failed)
	fmt.Fprintf(os.Stderr, "Report written to %s (and %s.gz)\n", reportPath, reportPath)

	measured := len(files) - failed
	fmt.Fprintf(os.Stderr, "\n--- Timing ---\n")
	fmt.Fprintf(os.Stderr, "  Wall clock:  %s\n", elapsed.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  ffprobe:     %s (cumulative)\n", totalProbe.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  ffmpeg:      %s (cumulative)\n", totalDecode.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  metering:    %s (cumulative)\n", totalMeasure.Truncate(time.Millisecond))

	if measured > 0 {
		fmt.Fprintf(os.Stderr, "  avg/file:    %s\n", (totalProbe+totalDecode+totalMeasure)/time.Duration(measured))
	}

	fmt.Fprintln(os.Stderr)

	return runDigest(reportPath, 0, defaultBucketWidth)
}

func processFile(ctx context.Context, filePath string, opts lufsmeter.Options) Record {
	fileStart := time.Now()
	timing := &RecordTiming{}

	probeStart := time.Now()

	probeResult, format, err := media.Probe(ctx, filePath, 0)

	timing.ProbeMs = durationMs(time.Since(probeStart))

	if err != nil {
		return Record{File: filePath, Error: fmt.Sprintf("probe failed: %v", err), Timing: timing}
	}

	decodeStart := time.Now()

	pcmData, err := media.Extract(ctx, filePath, 0, format)

	timing.DecodeMs = durationMs(time.Since(decodeStart))

	if err != nil {
		return Record{File: filePath, Error: fmt.Sprintf("extraction failed: %v", err), Timing: timing}
	}

	measureStart := time.Now()

	result, err := lufsmeter.Measure(bytes.NewReader(pcmData), format, opts)

	timing.MeasureMs = durationMs(time.Since(measureStart))
	timing.TotalMs = durationMs(time.Since(fileStart))

	if err != nil {
		return Record{File: filePath, Error: fmt.Sprintf("measurement failed: %v", err), Timing: timing}
	}

	record := Record{
		File:        filePath,
		Measurement: output.ResultToMap(result),
		Timing:      timing,
	}

	probeJSON, err := json.Marshal(probeResult)
	if err == nil {
		record.Probe = probeJSON
	} else {
		record.ProbeError = "probe serialization failed"
	}

	return record
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func collectAudioFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if slices.Contains(audioExtensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)

	return files, nil
}

func compressFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // reading our own output file
	if err != nil {
		return err
	}

	gzFile, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer gzFile.Close()

	gzWriter := gzip.NewWriter(gzFile)

	if _, err := gzWriter.Write(data); err != nil {
		return err
	}

	return gzWriter.Close()
}

func redactProbe(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}

	var probe map[string]any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return raw
	}

	if format, ok := probe["format"].(map[string]any); ok {
		delete(format, "filename")
	}

	redacted, err := json.Marshal(probe)
	if err != nil {
		return raw
	}

	return redacted
}
