//nolint:wrapcheck
package main

import (
	"fmt"
	"os"

	"github.com/farcloser/primordium/format"

	"github.com/farcloser/lufsmeter"
	"github.com/farcloser/lufsmeter/internal/output"
)

func outputResult(object string, result *lufsmeter.Result, formatName string) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	var meta map[string]any
	if formatName == "console" {
		meta = buildFriendlyOutput(result)
	} else {
		meta = output.ResultToMap(result)
	}

	data := &format.Data{
		Object: object,
		Meta:   meta,
	}

	return formatter.PrintAll([]*format.Data{data}, os.Stdout)
}

// buildFriendlyOutput creates a readable summary of a measurement.
func buildFriendlyOutput(result *lufsmeter.Result) map[string]any {
	meta := map[string]any{
		"momentary":     output.FormatLoudness(result.Final.Momentary) + " LU",
		"short_term":    output.FormatLoudness(result.Final.ShortTerm) + " LU",
		"max_momentary": output.FormatLoudness(result.MaxMomentary) + " LU",
		"max_short":     output.FormatLoudness(result.MaxShortTerm) + " LU",
		"duration":      fmt.Sprintf("%.2fs (%d frames at %.0f Hz)", result.Duration.Seconds(), result.Frames, result.SampleRate),
		"polls":         fmt.Sprintf("%d momentary, %d short-term", result.MomentaryPolls, result.ShortTermPolls),
		"topology":      result.Topology.String(),
	}

	if len(result.Timeline) > 0 {
		lines := make([]any, 0, len(result.Timeline))
		for _, update := range result.Timeline {
			lines = append(lines, fmt.Sprintf("%8.3fs %-10s M %6s S %6s",
				update.At.Seconds(),
				update.Measurement,
				output.FormatLoudness(update.Reading.Momentary),
				output.FormatLoudness(update.Reading.ShortTerm),
			))
		}

		meta["timeline"] = lines
	}

	return meta
}
