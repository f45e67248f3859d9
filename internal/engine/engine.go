// Package engine ties the weighting filters and the momentary and short-term window pairs
// into a loudness meter for one stereo source.
//
// Ingest runs on the audio timeline. MomentaryLoudness and ShortTermLoudness may be called
// from any number of polling goroutines at the same time, and never block Ingest.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/farcloser/lufsmeter/internal/types"
	"github.com/farcloser/lufsmeter/internal/weighting"
	"github.com/farcloser/lufsmeter/internal/window"
)

// loudnessOffset is the constant term of the mean-square to loudness conversion.
const loudnessOffset = -0.691

// ErrMalformedBlock is returned by Ingest when the channel blocks differ in length.
var ErrMalformedBlock = errors.New("malformed stereo block")

// WeightedSink receives the weighted output of every ingested block. The slices are only
// valid for the duration of the call.
type WeightedSink func(left, right []float64)

// Loudness converts a mean-square energy to a loudness value: -0.691 + 10*log10(ms).
// Zero energy yields negative infinity.
func Loudness(meanSquare float64) float64 {
	return loudnessOffset + 10*math.Log10(meanSquare)
}

// Engine is a stereo loudness meter. A new engine is stopped: Start it before ingesting.
type Engine struct {
	cfg Config

	// writer serializes Ingest, SetCoefficients and SetWeightedSink.
	writer   sync.Mutex
	filters  [2]*weighting.Filter
	weighted [2][]float64
	sink     WeightedSink

	momentary *window.Pair
	shortTerm *window.Pair

	playing atomic.Bool
	frames  atomic.Uint64
	dropped atomic.Uint64

	lastMomentary atomic.Uint64
	lastShortTerm atomic.Uint64
}

// New validates cfg, filling zero fields with defaults, and builds an engine.
func New(cfg Config) (*Engine, error) {
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eng := &Engine{cfg: cfg}

	for _, ch := range []types.Channel{types.Left, types.Right} {
		filter, err := weighting.New(cfg.Weighting, cfg.SampleRate, cfg.Gains.For(ch))
		if err != nil {
			return nil, fmt.Errorf("%w: %s weighting: %w", ErrInvalidConfig, ch, err)
		}

		eng.filters[ch] = filter
	}

	var err error

	if eng.momentary, err = window.NewPair(cfg.MomentaryCapacity()); err != nil {
		return nil, fmt.Errorf("%w: momentary window: %w", ErrInvalidConfig, err)
	}

	if eng.shortTerm, err = window.NewPair(cfg.ShortTermCapacity()); err != nil {
		return nil, fmt.Errorf("%w: short-term window: %w", ErrInvalidConfig, err)
	}

	negInf := math.Float64bits(math.Inf(-1))
	eng.lastMomentary.Store(negInf)
	eng.lastShortTerm.Store(negInf)

	slog.Debug("engine.New",
		"sample rate", cfg.SampleRate,
		"topology", cfg.Topology,
		"momentary capacity", eng.momentary.Capacity(),
		"short-term capacity", eng.shortTerm.Capacity(),
	)

	return eng, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Start opens the ingest gate.
func (e *Engine) Start() {
	if !e.playing.Swap(true) {
		slog.Debug("engine.Start", "frames", e.frames.Load())
	}
}

// Stop closes the ingest gate. Blocks arriving afterwards are dropped.
func (e *Engine) Stop() {
	if e.playing.Swap(false) {
		slog.Debug("engine.Stop", "frames", e.frames.Load(), "dropped", e.dropped.Load())
	}
}

// Playing reports whether Ingest currently has effect.
func (e *Engine) Playing() bool {
	return e.playing.Load()
}

// SetWeightedSink installs the receiver of the weighted output. Nil removes it.
func (e *Engine) SetWeightedSink(sink WeightedSink) {
	e.writer.Lock()
	defer e.writer.Unlock()

	e.sink = sink
}

// Ingest feeds one stereo block. Both channels must have the same length, otherwise
// ErrMalformedBlock is returned and nothing is touched. A block ingested while the
// engine is stopped is dropped.
func (e *Engine) Ingest(left, right []float64) error {
	if len(left) != len(right) {
		return fmt.Errorf("%w: left has %d samples, right has %d", ErrMalformedBlock, len(left), len(right))
	}

	if !e.playing.Load() {
		e.dropped.Add(uint64(len(left)))

		return nil
	}

	e.writer.Lock()
	defer e.writer.Unlock()

	size := len(left)
	for ch, in := range [][]float64{left, right} {
		if cap(e.weighted[ch]) < size {
			e.weighted[ch] = make([]float64, size)
		}

		e.weighted[ch] = e.weighted[ch][:size]
		e.filters[ch].ProcessBlock(in, e.weighted[ch])
	}

	srcLeft, srcRight := left, right
	if e.cfg.Topology == TopologyInline {
		srcLeft, srcRight = e.weighted[types.Left], e.weighted[types.Right]
	}

	for i := range size {
		e.momentary.Push(srcLeft[i], srcRight[i])
		e.shortTerm.Push(srcLeft[i], srcRight[i])
	}

	if e.sink != nil {
		e.sink(e.weighted[types.Left], e.weighted[types.Right])
	}

	e.frames.Add(uint64(size))

	return nil
}

// MomentaryLoudness scans the momentary windows.
func (e *Engine) MomentaryLoudness() float64 {
	value := Loudness(e.momentary.MeanSquare())
	e.lastMomentary.Store(math.Float64bits(value))

	return value
}

// ShortTermLoudness scans the short-term windows.
func (e *Engine) ShortTermLoudness() float64 {
	value := Loudness(e.shortTerm.MeanSquare())
	e.lastShortTerm.Store(math.Float64bits(value))

	return value
}

// Reading scans both window pairs.
func (e *Engine) Reading() types.Reading {
	return types.Reading{
		Momentary: e.MomentaryLoudness(),
		ShortTerm: e.ShortTermLoudness(),
	}
}

// LastReading returns the values computed by the most recent queries without scanning.
// Both are negative infinity until first queried.
func (e *Engine) LastReading() types.Reading {
	return types.Reading{
		Momentary: math.Float64frombits(e.lastMomentary.Load()),
		ShortTerm: math.Float64frombits(e.lastShortTerm.Load()),
	}
}

// SetCoefficients replaces the coefficients of one stage of one channel's weighting filter.
// The memory of that stage is reset.
func (e *Engine) SetCoefficients(ch types.Channel, stage weighting.Stage, coef []float64) error {
	if ch != types.Left && ch != types.Right {
		return fmt.Errorf("unknown channel %d", ch)
	}

	e.writer.Lock()
	defer e.writer.Unlock()

	return e.filters[ch].SetCoefficients(stage, coef)
}

// Coefficients returns the flat coefficients of one stage of one channel.
func (e *Engine) Coefficients(ch types.Channel, stage weighting.Stage) []float64 {
	e.writer.Lock()
	defer e.writer.Unlock()

	return e.filters[ch].Coefficients(stage)
}

// Response measures the weighting magnitude response of one channel, gain included.
func (e *Engine) Response(ch types.Channel, size int) []weighting.Point {
	e.writer.Lock()
	defer e.writer.Unlock()

	return e.filters[ch].Response(size)
}

// MomentaryCapacity returns the per-channel slot count of the momentary windows.
func (e *Engine) MomentaryCapacity() int {
	return e.momentary.Capacity()
}

// ShortTermCapacity returns the per-channel slot count of the short-term windows.
func (e *Engine) ShortTermCapacity() int {
	return e.shortTerm.Capacity()
}

// Frames returns how many frames were ingested while playing.
func (e *Engine) Frames() uint64 {
	return e.frames.Load()
}

// Dropped returns how many frames arrived while stopped.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// Reset clears the filters and the windows. The engine keeps its playing state.
func (e *Engine) Reset() {
	e.writer.Lock()
	defer e.writer.Unlock()

	for _, filter := range e.filters {
		filter.Reset()
	}

	e.momentary.Reset()
	e.shortTerm.Reset()
	e.frames.Store(0)
}
