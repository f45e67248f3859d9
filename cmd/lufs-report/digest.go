package main

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/stat"
)

const defaultBucketWidth = 3.0

func digestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "Summarize the loudness distribution of a JSONL report",
		ArgsUsage: "<report.jsonl[.gz]>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "loudest",
				Usage: "List the N tracks with the highest short-term maximum",
			},
			&cli.FloatFlag{
				Name:  "bucket",
				Usage: "Histogram bucket width in LU",
				Value: defaultBucketWidth,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("expected exactly one argument: path to report.jsonl")
			}

			width := cmd.Float("bucket")
			if width <= 0 {
				return fmt.Errorf("--bucket: invalid width %v", width)
			}

			return runDigest(cmd.Args().First(), cmd.Int("loudest"), width)
		},
	}
}

func runDigest(reportPath string, loudest int, width float64) error {
	records, err := readRecords(reportPath)
	if err != nil {
		return err
	}

	summary := summarize(records, width)
	printDigest(os.Stdout, summary)

	if loudest > 0 {
		printLoudest(os.Stdout, records, loudest)
	}

	return nil
}

func readRecords(path string) ([]digestRecord, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified report files
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file

	if strings.HasSuffix(path, ".gz") {
		gzReader, gzErr := gzip.NewReader(file)
		if gzErr != nil {
			return nil, fmt.Errorf("opening report: %w", gzErr)
		}
		defer gzReader.Close()

		reader = gzReader
	}

	return decodeRecords(reader)
}

func decodeRecords(reader io.Reader) ([]digestRecord, error) {
	var records []digestRecord

	scanner := bufio.NewScanner(reader)

	const maxLineSize = 16 * 1024 * 1024 // timelines make long lines
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)

	for scanner.Scan() {
		var rec digestRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			records = append(records, digestRecord{Error: "parse error"})

			continue
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	return records, nil
}

// summary is the aggregate view printed by the digest.
type summary struct {
	Total    int
	Failed   int
	Silent   int
	Duration float64

	// Statistics over the finite short-term maxima.
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	P10    float64
	Median float64
	P90    float64

	Buckets []bucket
	Width   float64
}

func summarize(records []digestRecord, width float64) summary {
	sum := summary{Total: len(records), Width: width}

	var values []float64

	for _, rec := range records {
		if rec.Error != "" || rec.Measurement == nil {
			sum.Failed++

			continue
		}

		sum.Duration += rec.Measurement.Duration

		value := loudnessValue(rec.Measurement.Max.ShortTerm)
		if math.IsInf(value, 0) || math.IsNaN(value) {
			sum.Silent++

			continue
		}

		values = append(values, value)
	}

	if len(values) == 0 {
		return sum
	}

	slices.Sort(values)

	sum.Mean, sum.StdDev = stat.MeanStdDev(values, nil)
	sum.Min = values[0]
	sum.Max = values[len(values)-1]
	sum.P10 = stat.Quantile(0.1, stat.Empirical, values, nil)
	sum.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	sum.P90 = stat.Quantile(0.9, stat.Empirical, values, nil)

	if len(values) == 1 {
		sum.StdDev = 0
	}

	for _, value := range values {
		low := math.Floor(value/width) * width

		if n := len(sum.Buckets); n > 0 && sum.Buckets[n-1].Low == low {
			sum.Buckets[n-1].Count++

			continue
		}

		sum.Buckets = append(sum.Buckets, bucket{Low: low, Count: 1})
	}

	return sum
}

func printDigest(out io.Writer, sum summary) {
	measured := sum.Total - sum.Failed

	fmt.Fprintln(out, "=== Loudness Report Digest ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total tracks:  %d\n", sum.Total)
	fmt.Fprintf(out, "Failed:        %d\n", sum.Failed)
	fmt.Fprintf(out, "Measured:      %d\n", measured)
	fmt.Fprintf(out, "Silent:        %d\n", sum.Silent)
	fmt.Fprintf(out, "Audio:         %.1f hours\n", sum.Duration/3600)
	fmt.Fprintln(out)

	if len(sum.Buckets) == 0 {
		return
	}

	fmt.Fprintln(out, "--- Short-Term Maximum ---")
	fmt.Fprintf(out, "  mean:    %6.1f LU (stddev %.1f)\n", sum.Mean, sum.StdDev)
	fmt.Fprintf(out, "  min:     %6.1f LU\n", sum.Min)
	fmt.Fprintf(out, "  p10:     %6.1f LU\n", sum.P10)
	fmt.Fprintf(out, "  median:  %6.1f LU\n", sum.Median)
	fmt.Fprintf(out, "  p90:     %6.1f LU\n", sum.P90)
	fmt.Fprintf(out, "  max:     %6.1f LU\n", sum.Max)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "--- Distribution ---")

	peak := 0
	for _, b := range sum.Buckets {
		peak = max(peak, b.Count)
	}

	const barWidth = 40

	for _, b := range sum.Buckets {
		bar := strings.Repeat("#", max(1, b.Count*barWidth/peak))
		fmt.Fprintf(out, "  [%6.1f, %6.1f)  %5d  %s\n", b.Low, b.Low+sum.Width, b.Count, bar)
	}
}

func printLoudest(out io.Writer, records []digestRecord, limit int) {
	measured := slices.DeleteFunc(slices.Clone(records), func(rec digestRecord) bool {
		return rec.Error != "" || rec.Measurement == nil
	})

	slices.SortFunc(measured, func(a, b digestRecord) int {
		la := loudnessValue(a.Measurement.Max.ShortTerm)
		lb := loudnessValue(b.Measurement.Max.ShortTerm)

		switch {
		case la > lb:
			return -1
		case la < lb:
			return 1
		default:
			return strings.Compare(a.File, b.File)
		}
	})

	fmt.Fprintln(out)
	fmt.Fprintf(out, "=== Loudest %d tracks ===\n\n", min(limit, len(measured)))

	for _, rec := range measured[:min(limit, len(measured))] {
		file := rec.File
		if file == "" {
			file = "(redacted)"
		}

		fmt.Fprintf(out, "  %6.1f LU  %s\n", loudnessValue(rec.Measurement.Max.ShortTerm), file)
	}
}
