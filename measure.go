package lufsmeter

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/farcloser/lufsmeter/internal/engine"
	"github.com/farcloser/lufsmeter/internal/pcm"
	"github.com/farcloser/lufsmeter/internal/types"
)

/*
Usage:

opts := lufsmeter.DefaultOptions()
result, err := lufsmeter.Measure(reader, types.PCMFormat{SampleRate: 44100, BitDepth: types.Depth16, Channels: 2}, opts)
fmt.Printf("short-term max: %.1f\n", result.MaxShortTerm)

// Live
src := capture.NewPaced(reader, format, opts.BlockSize)
result, err := lufsmeter.Monitor(ctx, src, opts, func(u lufsmeter.Update) {
    fmt.Printf("%s %.1f\n", u.Measurement, u.Reading.Momentary)
})
*/

// tracker folds polls into a Result.
type tracker struct {
	result   *Result
	timeline bool
}

func newTracker(eng *engine.Engine, timeline bool) *tracker {
	cfg := eng.Config()

	return &tracker{
		result: &Result{
			SampleRate:   cfg.SampleRate,
			Topology:     cfg.Topology,
			MaxMomentary: math.Inf(-1),
			MaxShortTerm: math.Inf(-1),
			Final:        eng.LastReading(),
		},
		timeline: timeline,
	}
}

func (t *tracker) poll(eng *engine.Engine, at time.Duration, which Measurement) Update {
	switch which {
	case Momentary:
		value := eng.MomentaryLoudness()
		t.result.MomentaryPolls++

		if finite(value) && value > t.result.MaxMomentary {
			t.result.MaxMomentary = value
		}
	case ShortTerm:
		value := eng.ShortTermLoudness()
		t.result.ShortTermPolls++

		if finite(value) && value > t.result.MaxShortTerm {
			t.result.MaxShortTerm = value
		}
	}

	update := Update{At: at, Measurement: which, Reading: eng.LastReading()}
	t.result.Final = update.Reading

	if t.timeline {
		t.result.Timeline = append(t.result.Timeline, update)
	}

	return update
}

func (t *tracker) finish(eng *engine.Engine) *Result {
	t.result.Frames = eng.Frames()
	t.result.Duration = framesToDuration(t.result.Frames, t.result.SampleRate)

	return t.result
}

// Measure meters PCM read from r. Polls follow audio time: after each block, every
// momentary and short-term interval that elapsed in the block triggers one query.
// The final reading is queried once more after the last block.
func Measure(r io.Reader, format types.PCMFormat, opts Options) (*Result, error) {
	applyDefaults(&opts)

	if format.SampleRate > 0 {
		opts.Engine.SampleRate = float64(format.SampleRate)
	}

	eng, err := engine.New(opts.Engine)
	if err != nil {
		return nil, err
	}

	dec, err := pcm.NewDecoder(r, format, opts.BlockSize)
	if err != nil {
		return nil, err
	}

	eng.Start()
	defer eng.Stop()

	track := newTracker(eng, opts.Timeline)
	rate := eng.Config().SampleRate

	left := make([]float64, opts.BlockSize)
	right := make([]float64, opts.BlockSize)

	var (
		frames        uint64
		nextMomentary = opts.MomentaryInterval
		nextShortTerm = opts.ShortTermInterval
	)

	for {
		n, readErr := dec.Read(left, right)
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, readErr
		}

		if err = eng.Ingest(left[:n], right[:n]); err != nil {
			return nil, fmt.Errorf("ingesting block: %w", err)
		}

		frames += uint64(n) //nolint:gosec // non-negative
		now := framesToDuration(frames, rate)

		for ; nextMomentary <= now; nextMomentary += opts.MomentaryInterval {
			track.poll(eng, nextMomentary, Momentary)
		}

		for ; nextShortTerm <= now; nextShortTerm += opts.ShortTermInterval {
			track.poll(eng, nextShortTerm, ShortTerm)
		}
	}

	end := framesToDuration(frames, rate)
	track.poll(eng, end, Momentary)
	track.poll(eng, end, ShortTerm)

	return track.finish(eng), nil
}

func framesToDuration(frames uint64, sampleRate float64) time.Duration {
	return time.Duration(float64(frames) / sampleRate * float64(time.Second))
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
