package lufsmeter

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/farcloser/lufsmeter/internal/capture"
	"github.com/farcloser/lufsmeter/internal/types"
)

// sine16 renders an interleaved 16-bit stereo sine.
func sine16(freq, amplitude float64, sampleRate, frames int) []byte {
	var buf bytes.Buffer

	for i := range frames {
		v := int16(amplitude * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		_ = binary.Write(&buf, binary.LittleEndian, v)
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}

	return buf.Bytes()
}

var stereo44k = types.PCMFormat{SampleRate: 44100, BitDepth: types.Depth16, Channels: 2}

func TestMeasureSilence(t *testing.T) {
	data := make([]byte, 44100*4)

	result, err := Measure(bytes.NewReader(data), stereo44k, DefaultOptions())
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}

	if !math.IsInf(result.Final.Momentary, -1) || !math.IsInf(result.MaxMomentary, -1) {
		t.Errorf("silence: got final %+v max %v", result.Final, result.MaxMomentary)
	}

	if result.Frames != 44100 || result.Duration != time.Second {
		t.Errorf("frames %d duration %v, want 44100 and 1s", result.Frames, result.Duration)
	}
}

func TestMeasurePollSchedule(t *testing.T) {
	data := sine16(1000, 0.5, 44100, 44100)

	result, err := Measure(bytes.NewReader(data), stereo44k, DefaultOptions())
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}

	// 20 momentary and 10 short-term ticks in one second, plus the closing query of each.
	if result.MomentaryPolls != 21 || result.ShortTermPolls != 11 {
		t.Errorf("polls: got %d/%d, want 21/11", result.MomentaryPolls, result.ShortTermPolls)
	}

	// Raw sine of amplitude 0.5: mean square 0.125 once the momentary window is full.
	want := -0.691 + 10*math.Log10(0.125)
	if math.Abs(result.Final.Momentary-want) > 0.05 {
		t.Errorf("momentary: got %v, want about %v", result.Final.Momentary, want)
	}

	// Short-term window is only a third full after one second.
	if result.Final.ShortTerm >= result.Final.Momentary {
		t.Errorf("short-term %v should trail momentary %v", result.Final.ShortTerm, result.Final.Momentary)
	}

	if result.MaxMomentary < result.Final.Momentary-1e-9 {
		t.Errorf("max momentary %v below final %v", result.MaxMomentary, result.Final.Momentary)
	}
}

func TestMeasureTimeline(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeline = true

	result, err := Measure(bytes.NewReader(sine16(440, 0.25, 44100, 22050)), stereo44k, opts)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}

	if len(result.Timeline) != result.MomentaryPolls+result.ShortTermPolls {
		t.Fatalf("timeline has %d entries, want %d", len(result.Timeline), result.MomentaryPolls+result.ShortTermPolls)
	}

	for i := 1; i < len(result.Timeline); i++ {
		if result.Timeline[i].At < result.Timeline[i-1].At {
			t.Fatalf("timeline not ordered at %d", i)
		}
	}
}

func TestMeasureUsesFormatSampleRate(t *testing.T) {
	format := types.PCMFormat{SampleRate: 48000, BitDepth: types.Depth16, Channels: 2}

	result, err := Measure(bytes.NewReader(sine16(1000, 0.5, 48000, 4800)), format, DefaultOptions())
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}

	if result.SampleRate != 48000 || result.Duration != 100*time.Millisecond {
		t.Errorf("rate %v duration %v", result.SampleRate, result.Duration)
	}
}

func TestMonitorPacedSource(t *testing.T) {
	src := capture.NewPaced(bytes.NewReader(sine16(1000, 0.5, 44100, 44100)), stereo44k, DefaultBlockSize)
	src.Speed = 4

	var updates int

	result, err := Monitor(context.Background(), src, DefaultOptions(), func(Update) {
		updates++
	})
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}

	if result.Frames != 44100 {
		t.Errorf("frames: got %d, want 44100", result.Frames)
	}

	if updates != result.MomentaryPolls+result.ShortTermPolls || updates < 2 {
		t.Errorf("updates %d, polls %d+%d", updates, result.MomentaryPolls, result.ShortTermPolls)
	}

	want := -0.691 + 10*math.Log10(0.125)
	if math.Abs(result.Final.Momentary-want) > 0.05 {
		t.Errorf("momentary: got %v, want about %v", result.Final.Momentary, want)
	}
}

func TestMonitorCancel(t *testing.T) {
	src := capture.NewPaced(bytes.NewReader(make([]byte, 44100*4*60)), stereo44k, DefaultBlockSize)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	result, err := Monitor(ctx, src, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}

	if result.Frames == 0 || result.Frames >= 44100*60 {
		t.Errorf("frames: got %d", result.Frames)
	}
}
