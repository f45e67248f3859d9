// Package output provides shared result serialization for lufsmeter JSON output.
package output

import (
	"math"
	"strconv"

	"github.com/farcloser/lufsmeter"
	"github.com/farcloser/lufsmeter/internal/types"
	"github.com/farcloser/lufsmeter/internal/weighting"
)

// NegInf is how a reading of silence is rendered.
const NegInf = "-inf"

// Loudness renders a loudness value for JSON: a float when finite, "-inf" otherwise.
// encoding/json cannot marshal infinities.
func Loudness(value float64) any {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return NegInf
	}

	return value
}

// FormatLoudness renders a loudness value for display with one decimal.
func FormatLoudness(value float64) string {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return NegInf
	}

	return strconv.FormatFloat(value, 'f', 1, 64)
}

// ReadingToMap converts a pair of readings to a map.
func ReadingToMap(reading types.Reading) map[string]any {
	return map[string]any{
		"momentary":  Loudness(reading.Momentary),
		"short_term": Loudness(reading.ShortTerm),
	}
}

// ResultToMap converts a measurement result into the canonical map structure
// used for JSON and JSONL serialization.
func ResultToMap(result *lufsmeter.Result) map[string]any {
	meta := map[string]any{
		"sample_rate": result.SampleRate,
		"topology":    result.Topology.String(),
		"frames":      result.Frames,
		"duration":    result.Duration.Seconds(),
		"final":       ReadingToMap(result.Final),
		"max": map[string]any{
			"momentary":  Loudness(result.MaxMomentary),
			"short_term": Loudness(result.MaxShortTerm),
		},
		"polls": map[string]any{
			"momentary":  result.MomentaryPolls,
			"short_term": result.ShortTermPolls,
		},
	}

	if len(result.Timeline) > 0 {
		meta["timeline"] = TimelineToList(result.Timeline)
	}

	return meta
}

// UpdateToMap converts a single poll to a map.
func UpdateToMap(update lufsmeter.Update) map[string]any {
	return map[string]any{
		"at":          update.At.Seconds(),
		"measurement": update.Measurement.String(),
		"momentary":   Loudness(update.Reading.Momentary),
		"short_term":  Loudness(update.Reading.ShortTerm),
	}
}

// TimelineToList converts polls to a list of maps.
func TimelineToList(updates []lufsmeter.Update) []any {
	list := make([]any, 0, len(updates))
	for _, update := range updates {
		list = append(list, UpdateToMap(update))
	}

	return list
}

// ResponseToList converts response points to a list of maps.
func ResponseToList(points []weighting.Point) []any {
	list := make([]any, 0, len(points))
	for _, point := range points {
		list = append(list, map[string]any{
			"frequency": point.Frequency,
			"gain_db":   Loudness(point.GainDB),
		})
	}

	return list
}
