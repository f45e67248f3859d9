package engine

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/farcloser/lufsmeter/internal/biquad"
	"github.com/farcloser/lufsmeter/internal/types"
	"github.com/farcloser/lufsmeter/internal/weighting"
	"github.com/farcloser/lufsmeter/internal/window"
)

const blockSize = 2048

func newStarted(t *testing.T, cfg Config) *Engine {
	t.Helper()

	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	eng.Start()

	return eng
}

func constantBlock(value float64) []float64 {
	block := make([]float64, blockSize)
	for i := range block {
		block[i] = value
	}

	return block
}

// feed ingests whole blocks until at least frames frames went in.
func feed(t *testing.T, eng *Engine, frames int, left, right []float64) {
	t.Helper()

	for done := 0; done < frames; done += len(left) {
		if err := eng.Ingest(left, right); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}
}

func TestCapacitiesAt44100(t *testing.T) {
	eng, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if eng.MomentaryCapacity() != 17640 {
		t.Errorf("momentary capacity: got %d, want 17640", eng.MomentaryCapacity())
	}

	if eng.ShortTermCapacity() != 132300 {
		t.Errorf("short-term capacity: got %d, want 132300", eng.ShortTermCapacity())
	}
}

func TestCapacitiesFollowSampleRate(t *testing.T) {
	eng, err := New(Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if eng.MomentaryCapacity() != 19200 || eng.ShortTermCapacity() != 144000 {
		t.Errorf("got %d/%d, want 19200/144000", eng.MomentaryCapacity(), eng.ShortTermCapacity())
	}
}

func TestSilenceIsNegativeInfinity(t *testing.T) {
	eng := newStarted(t, DefaultConfig())

	if got := eng.MomentaryLoudness(); !math.IsInf(got, -1) {
		t.Errorf("momentary before any input: got %v, want -Inf", got)
	}

	zeros := make([]float64, blockSize)
	feed(t, eng, 140000, zeros, zeros)

	reading := eng.Reading()
	if !math.IsInf(reading.Momentary, -1) || !math.IsInf(reading.ShortTerm, -1) {
		t.Errorf("after silence: got %+v, want -Inf for both", reading)
	}
}

func TestConstantSignal(t *testing.T) {
	for _, c := range []float64{1, 0.5, -0.25} {
		eng := newStarted(t, DefaultConfig())

		block := constantBlock(c)
		feed(t, eng, eng.ShortTermCapacity(), block, block)

		want := -0.691 + 10*math.Log10(c*c)

		if got := eng.MomentaryLoudness(); math.Abs(got-want) > 1e-9 {
			t.Errorf("c=%v momentary: got %v, want %v", c, got, want)
		}

		if got := eng.ShortTermLoudness(); math.Abs(got-want) > 1e-9 {
			t.Errorf("c=%v short-term: got %v, want %v", c, got, want)
		}
	}
}

func TestPartialWindowCountsZeros(t *testing.T) {
	eng := newStarted(t, DefaultConfig())

	// Half a momentary window of full-scale DC.
	block := make([]float64, eng.MomentaryCapacity()/2)
	for i := range block {
		block[i] = 1
	}

	if err := eng.Ingest(block, block); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	want := -0.691 + 10*math.Log10(0.5)
	if got := eng.MomentaryLoudness(); math.Abs(got-want) > 1e-9 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMonotonicInAmplitude(t *testing.T) {
	previous := math.Inf(-1)

	for _, amp := range []float64{0.01, 0.1, 0.3, 0.9} {
		eng := newStarted(t, DefaultConfig())

		block := make([]float64, blockSize)
		for i := range block {
			block[i] = amp * math.Sin(2*math.Pi*1000*float64(i)/DefaultSampleRate)
		}

		feed(t, eng, eng.MomentaryCapacity(), block, block)

		got := eng.MomentaryLoudness()
		if got <= previous {
			t.Errorf("amplitude %v: loudness %v not above %v", amp, got, previous)
		}

		previous = got
	}
}

func TestMalformedBlockLeavesStateUntouched(t *testing.T) {
	eng := newStarted(t, DefaultConfig())

	block := make([]float64, blockSize)
	for i := range block {
		block[i] = math.Sin(2 * math.Pi * 997 * float64(i) / DefaultSampleRate)
	}

	if err := eng.Ingest(block, block); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	type state struct {
		windows [4][]float64
		memory  [2][2][]biquad.Memory
		frames  uint64
	}

	capture := func() state {
		var st state

		for i, win := range []*window.Window{
			eng.momentary.Left, eng.momentary.Right, eng.shortTerm.Left, eng.shortTerm.Right,
		} {
			st.windows[i] = win.Snapshot(nil)
		}

		for ch := range eng.filters {
			for _, stage := range []weighting.Stage{weighting.StageShelf, weighting.StageHighPass} {
				st.memory[ch][stage] = eng.filters[ch].Memory(stage)
			}
		}

		st.frames = eng.Frames()

		return st
	}

	before := capture()

	err := eng.Ingest(constantBlock(1), constantBlock(1)[:100])
	if !errors.Is(err, ErrMalformedBlock) {
		t.Fatalf("got %v, want ErrMalformedBlock", err)
	}

	after := capture()

	if after.frames != before.frames || before.frames != blockSize {
		t.Errorf("frames: got %d, want %d", after.frames, before.frames)
	}

	for i := range before.windows {
		if !slices.Equal(before.windows[i], after.windows[i]) {
			t.Errorf("window %d changed", i)
		}
	}

	for ch := range before.memory {
		for stage := range before.memory[ch] {
			if !slices.Equal(before.memory[ch][stage], after.memory[ch][stage]) {
				t.Errorf("channel %d stage %d memory changed", ch, stage)
			}
		}
	}

	// A malformed block on a fresh engine leaves it silent.
	fresh := newStarted(t, DefaultConfig())
	if err = fresh.Ingest(constantBlock(1), constantBlock(1)[:100]); !errors.Is(err, ErrMalformedBlock) {
		t.Fatalf("got %v, want ErrMalformedBlock", err)
	}

	if got := fresh.MomentaryLoudness(); !math.IsInf(got, -1) || fresh.Frames() != 0 {
		t.Errorf("fresh engine: momentary %v frames %d", got, fresh.Frames())
	}
}

func TestZeroConfigMatchesDefaults(t *testing.T) {
	zero, err := New(Config{})
	if err != nil {
		t.Fatalf("New(Config{}): %v", err)
	}

	stock, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New(DefaultConfig()): %v", err)
	}

	if zero.Config().Weighting != weighting.DefaultDesign() {
		t.Errorf("zero config design: got %+v", zero.Config().Weighting)
	}

	for _, ch := range []types.Channel{types.Left, types.Right} {
		got := weighting.GainAt(zero.Response(ch, 8192), 15000).GainDB
		want := weighting.GainAt(stock.Response(ch, 8192), 15000).GainDB

		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s at 15 kHz: got %.2f dB, want %.2f dB", ch, got, want)
		}

		if !slices.Equal(zero.Coefficients(ch, weighting.StageShelf), stock.Coefficients(ch, weighting.StageShelf)) {
			t.Errorf("%s shelf coefficients differ", ch)
		}
	}

	// A partial design keeps its explicit flat shelf.
	flat, err := New(Config{SampleRate: 48000, Weighting: weighting.Design{ShelfFrequency: 1650}})
	if err != nil {
		t.Fatalf("New(flat shelf): %v", err)
	}

	design := flat.Config().Weighting
	if design.ShelfGainDB != 0 || design.HighPassFrequency != weighting.DefaultHighPassFrequency {
		t.Errorf("partial design: got %+v", design)
	}
}

func TestStoppedEngineDropsBlocks(t *testing.T) {
	eng, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if eng.Playing() {
		t.Fatal("new engine should be stopped")
	}

	block := constantBlock(1)
	if err = eng.Ingest(block, block); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if eng.Frames() != 0 || eng.Dropped() != blockSize {
		t.Errorf("frames %d dropped %d, want 0 and %d", eng.Frames(), eng.Dropped(), blockSize)
	}

	eng.Start()
	_ = eng.Ingest(block, block)
	eng.Stop()
	_ = eng.Ingest(block, block)

	if eng.Frames() != blockSize || eng.Dropped() != 2*blockSize {
		t.Errorf("frames %d dropped %d, want %d and %d", eng.Frames(), eng.Dropped(), blockSize, 2*blockSize)
	}
}

func TestInlineTopologyMeasuresWeightedSignal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Topology = TopologyInline

	inline := newStarted(t, cfg)
	parallel := newStarted(t, DefaultConfig())

	// DC is removed by the high-pass stage, so only the inline meter goes quiet.
	block := constantBlock(0.5)
	feed(t, inline, inline.MomentaryCapacity()*2, block, block)
	feed(t, parallel, parallel.MomentaryCapacity()*2, block, block)

	in := inline.MomentaryLoudness()
	par := parallel.MomentaryLoudness()

	if in > par-40 {
		t.Errorf("inline %v should be far below parallel %v for DC input", in, par)
	}
}

func TestWeightedSinkReceivesFilterOutput(t *testing.T) {
	eng := newStarted(t, DefaultConfig())

	reference, err := weighting.New(weighting.DefaultDesign(), DefaultSampleRate, 0.3)
	if err != nil {
		t.Fatalf("weighting.New: %v", err)
	}

	block := make([]float64, blockSize)
	for i := range block {
		block[i] = math.Sin(2 * math.Pi * 440 * float64(i) / DefaultSampleRate)
	}

	var calls int

	eng.SetWeightedSink(func(left, right []float64) {
		calls++

		for i, x := range block {
			if want := reference.Process(x); left[i] != want {
				t.Fatalf("sample %d: got %v, want %v", i, left[i], want)
			}
		}

		if len(right) != len(block) {
			t.Fatalf("right length: got %d", len(right))
		}
	})

	if err = eng.Ingest(block, block); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if calls != 1 {
		t.Errorf("sink calls: got %d, want 1", calls)
	}
}

func TestSetCoefficients(t *testing.T) {
	eng := newStarted(t, DefaultConfig())

	if err := eng.SetCoefficients(types.Right, weighting.StageShelf, biquad.Identity()); err != nil {
		t.Fatalf("SetCoefficients: %v", err)
	}

	if got := eng.Coefficients(types.Right, weighting.StageShelf); len(got) != 5 || got[0] != 1 {
		t.Errorf("coefficients: got %v", got)
	}

	if err := eng.SetCoefficients(types.Left, weighting.StageHighPass, nil); !errors.Is(err, biquad.ErrInvalidCoefficients) {
		t.Errorf("nil coefficients: got %v", err)
	}

	if err := eng.SetCoefficients(types.Left, weighting.StageHighPass, []float64{1, 2, 3}); !errors.Is(err, biquad.ErrInvalidCoefficients) {
		t.Errorf("short coefficients: got %v", err)
	}
}

func TestLastReading(t *testing.T) {
	eng := newStarted(t, DefaultConfig())

	if last := eng.LastReading(); !math.IsInf(last.Momentary, -1) || !math.IsInf(last.ShortTerm, -1) {
		t.Errorf("initial last reading: got %+v", last)
	}

	block := constantBlock(1)
	feed(t, eng, eng.ShortTermCapacity(), block, block)

	current := eng.Reading()
	if last := eng.LastReading(); last != current {
		t.Errorf("last reading: got %+v, want %+v", last, current)
	}
}

func TestConcurrentIngestAndPoll(t *testing.T) {
	eng := newStarted(t, DefaultConfig())

	block := constantBlock(0.5)
	done := make(chan struct{})

	var wg sync.WaitGroup

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-done:
					return
				default:
				}

				reading := eng.Reading()
				if math.IsNaN(reading.Momentary) || math.IsNaN(reading.ShortTerm) {
					t.Errorf("NaN reading: %+v", reading)

					return
				}
			}
		}()
	}

	for range 100 {
		if err := eng.Ingest(block, block); err != nil {
			t.Errorf("Ingest: %v", err)
		}
	}

	close(done)
	wg.Wait()

	want := -0.691 + 10*math.Log10(0.25)
	if got := eng.MomentaryLoudness(); math.Abs(got-want) > 1e-9 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []Config{
		{SampleRate: -1},
		{SampleRate: math.Inf(1)},
		{MomentarySeconds: -0.4},
		{Topology: Topology(9)},
		{SampleRate: 1000},
	}

	for _, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v): expected error", cfg)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lufsmeter.yaml")

	data := []byte("sample_rate: 48000\ntopology: inline\ngains:\n  left: 1\n  right: 1\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.SampleRate != 48000 || cfg.Topology != TopologyInline || cfg.Gains.Left != 1 {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if cfg.MomentarySeconds != DefaultMomentarySeconds || cfg.Weighting != weighting.DefaultDesign() {
		t.Errorf("defaults not kept: %+v", cfg)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err = os.WriteFile(bad, []byte("topology: sideways\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err = LoadConfig(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad topology: got %v, want ErrInvalidConfig", err)
	}
}
