package lufsmeter

import (
	"context"
	"fmt"
	"time"

	"github.com/farcloser/lufsmeter/internal/engine"
	"github.com/farcloser/lufsmeter/internal/types"
)

const (
	// DefaultBlockSize is the number of frames handed to the engine per ingest.
	DefaultBlockSize = 2048
	// DefaultMomentaryInterval is the momentary polling period.
	DefaultMomentaryInterval = 50 * time.Millisecond
	// DefaultShortTermInterval is the short-term polling period.
	DefaultShortTermInterval = 100 * time.Millisecond
)

// Options configures Measure and Monitor.
type Options struct {
	Engine engine.Config

	BlockSize         int           // frames per ingest (default 2048)
	MomentaryInterval time.Duration // default 50ms
	ShortTermInterval time.Duration // default 100ms

	// Timeline keeps every poll in Result.Timeline.
	Timeline bool
}

// DefaultOptions returns the stock meter configuration.
func DefaultOptions() Options {
	return Options{
		Engine:            engine.DefaultConfig(),
		BlockSize:         DefaultBlockSize,
		MomentaryInterval: DefaultMomentaryInterval,
		ShortTermInterval: DefaultShortTermInterval,
	}
}

func applyDefaults(opts *Options) {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}

	if opts.MomentaryInterval <= 0 {
		opts.MomentaryInterval = DefaultMomentaryInterval
	}

	if opts.ShortTermInterval <= 0 {
		opts.ShortTermInterval = DefaultShortTermInterval
	}
}

// Measurement names one of the two running readings.
type Measurement int

const (
	Momentary Measurement = iota
	ShortTerm
)

func (m Measurement) String() string {
	switch m {
	case Momentary:
		return "momentary"
	case ShortTerm:
		return "short-term"
	}

	return "unknown"
}

// ParseMeasurement converts a string to a Measurement value.
func ParseMeasurement(s string) (Measurement, error) {
	switch s {
	case "momentary", "m":
		return Momentary, nil
	case "short-term", "shortterm", "s":
		return ShortTerm, nil
	default:
		return 0, fmt.Errorf("unknown measurement %q (valid: momentary, short-term)", s)
	}
}

// Update is one poll of the engine.
type Update struct {
	At          time.Duration // audio time for Measure, wall time since start for Monitor
	Measurement Measurement   // which reading was refreshed
	Reading     types.Reading // both readings right after the poll, the other one possibly stale
}

// Result summarizes a measurement run.
// Max values only consider finite readings and stay at negative infinity otherwise.
type Result struct {
	SampleRate float64
	Topology   engine.Topology
	Frames     uint64
	Duration   time.Duration

	Final        types.Reading
	MaxMomentary float64
	MaxShortTerm float64

	MomentaryPolls int
	ShortTermPolls int

	Timeline []Update
}

// Source delivers stereo blocks on its own timeline.
type Source interface {
	// SampleRate returns the rate of the delivered samples.
	SampleRate() float64
	// Stream calls deliver for every block until the input ends, deliver fails, or ctx is done.
	// It returns nil when the input ends.
	Stream(ctx context.Context, deliver func(left, right []float64) error) error
}
