//nolint:tagliatelle
package main

import (
	"encoding/json"
	"math"
)

// Record is a single line in the JSONL report file.
type Record struct {
	File        string          `json:"file,omitempty"`
	Measurement map[string]any  `json:"measurement,omitempty"`
	Probe       json.RawMessage `json:"probe,omitempty"`
	ProbeError  string          `json:"probe_error,omitempty"`
	Error       string          `json:"error,omitempty"`
	Timing      *RecordTiming   `json:"timing,omitempty"`
}

// RecordTiming captures per-file processing durations in milliseconds.
type RecordTiming struct {
	ProbeMs   float64 `json:"probe_ms"`
	DecodeMs  float64 `json:"decode_ms"`
	MeasureMs float64 `json:"measure_ms"`
	TotalMs   float64 `json:"total_ms"`
}

// digestRecord holds the typed fields needed by the digest command.
type digestRecord struct {
	File        string             `json:"file,omitempty"`
	Measurement *digestMeasurement `json:"measurement,omitempty"`
	Error       string             `json:"error,omitempty"`
}

type digestMeasurement struct {
	Duration float64       `json:"duration"`
	Final    digestReading `json:"final"`
	Max      digestReading `json:"max"`
}

// digestReading keeps raw values: loudness is a number, or "-inf" for silence.
type digestReading struct {
	Momentary any `json:"momentary"`
	ShortTerm any `json:"short_term"`
}

// loudnessValue converts a raw JSON loudness to a float, negative infinity for anything
// that is not a number.
func loudnessValue(raw any) float64 {
	if value, ok := raw.(float64); ok {
		return value
	}

	return math.Inf(-1)
}

// bucket counts tracks whose loudness falls in [Low, Low+width).
type bucket struct {
	Low   float64
	Count int
}
