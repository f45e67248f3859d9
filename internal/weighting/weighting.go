// Package weighting approximates perceptual loudness weighting with a fixed two-stage
// biquad cascade (high shelf, then high pass) followed by a per-channel scalar gain.
package weighting

import (
	"fmt"

	"github.com/farcloser/lufsmeter/internal/biquad"
	"github.com/farcloser/lufsmeter/internal/types"
)

// Stage selects one of the two cascaded sections.
type Stage int

const (
	StageShelf Stage = iota
	StageHighPass
)

func (s Stage) String() string {
	switch s {
	case StageShelf:
		return "shelf"
	case StageHighPass:
		return "highpass"
	}

	return "unknown"
}

// ParseStage converts a string to a Stage value.
func ParseStage(s string) (Stage, error) {
	switch s {
	case "shelf", "a":
		return StageShelf, nil
	case "highpass", "b":
		return StageHighPass, nil
	default:
		return 0, fmt.Errorf("unknown stage %q (valid: shelf, highpass)", s)
	}
}

// ChannelGains is the scalar applied after the cascade, per channel.
// The stock table attenuates the left channel only.
type ChannelGains struct {
	Left  float64 `json:"left"  yaml:"left"`
	Right float64 `json:"right" yaml:"right"`
}

// DefaultChannelGains returns {Left: 0.3, Right: 1.0}.
func DefaultChannelGains() ChannelGains {
	return ChannelGains{Left: 0.3, Right: 1.0}
}

// For returns the gain for a channel.
func (g ChannelGains) For(ch types.Channel) float64 {
	if ch == types.Left {
		return g.Left
	}

	return g.Right
}

// Filter runs samples through the shelf stage, the high-pass stage, then the gain.
// It is not safe for concurrent use.
type Filter struct {
	stages     [2]*biquad.Filter
	gain       float64
	sampleRate float64
}

// New designs both stages for sampleRate.
func New(design Design, sampleRate, gain float64) (*Filter, error) {
	shelf, err := HighShelf(design.ShelfFrequency, design.ShelfGainDB, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("shelf stage: %w", err)
	}

	highPass, err := HighPass(design.HighPassFrequency, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("highpass stage: %w", err)
	}

	filter := &Filter{gain: gain, sampleRate: sampleRate}

	for stage, coef := range [][]float64{shelf, highPass} {
		if filter.stages[stage], err = biquad.New(coef); err != nil {
			return nil, err
		}
	}

	return filter, nil
}

// Process weights one sample.
func (f *Filter) Process(x float64) float64 {
	return f.stages[StageHighPass].Process(f.stages[StageShelf].Process(x)) * f.gain
}

// ProcessBlock weights in into out. The slices may alias.
func (f *Filter) ProcessBlock(in, out []float64) {
	for i, x := range in {
		out[i] = f.Process(x)
	}
}

// SetCoefficients replaces one stage's flat coefficient list and resets that stage.
func (f *Filter) SetCoefficients(stage Stage, coef []float64) error {
	if stage != StageShelf && stage != StageHighPass {
		return fmt.Errorf("unknown stage %d", stage)
	}

	return f.stages[stage].SetCoefficients(coef)
}

// Coefficients returns a stage's flat coefficient list.
func (f *Filter) Coefficients(stage Stage) []float64 {
	return f.stages[stage].Coefficients()
}

// Memory returns a copy of one stage's section memories.
func (f *Filter) Memory(stage Stage) []biquad.Memory {
	return f.stages[stage].Memory()
}

// Gain returns the channel scalar.
func (f *Filter) Gain() float64 {
	return f.gain
}

// SampleRate returns the rate the stages were designed for.
func (f *Filter) SampleRate() float64 {
	return f.sampleRate
}

// Reset zeroes the memory of both stages.
func (f *Filter) Reset() {
	for _, stage := range f.stages {
		stage.Reset()
	}
}
