package weighting

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultShelfFrequency is the stage A center frequency in Hz.
	DefaultShelfFrequency = 1650.0
	// DefaultShelfGainDB is the stage A boost.
	DefaultShelfGainDB = 4.0
	// DefaultHighPassFrequency is the stage B cutoff in Hz.
	DefaultHighPassFrequency = 40.0

	// Q of 1 dB, expressed linearly.
	highPassQ = 1.1220184543019633
)

// ErrInvalidDesign is returned when a stage cannot be designed at the requested rate.
var ErrInvalidDesign = errors.New("invalid filter design")

// Design parameterizes the two weighting stages.
type Design struct {
	ShelfFrequency    float64 `json:"shelf_frequency"    yaml:"shelf_frequency"`
	ShelfGainDB       float64 `json:"shelf_gain_db"      yaml:"shelf_gain_db"`
	HighPassFrequency float64 `json:"highpass_frequency" yaml:"highpass_frequency"`
}

// DefaultDesign returns the stock shelf and high-pass parameters.
func DefaultDesign() Design {
	return Design{
		ShelfFrequency:    DefaultShelfFrequency,
		ShelfGainDB:       DefaultShelfGainDB,
		HighPassFrequency: DefaultHighPassFrequency,
	}
}

// HighShelf returns flat single-section coefficients for a shelf of slope 1.
func HighShelf(freq, gainDB, sampleRate float64) ([]float64, error) {
	w0, err := angularFrequency(freq, sampleRate)
	if err != nil {
		return nil, err
	}

	amp := math.Pow(10, gainDB/40)
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / 2 * math.Sqrt2
	beta := 2 * math.Sqrt(amp) * alpha

	b0 := amp * ((amp + 1) + (amp-1)*cw + beta)
	b1 := -2 * amp * ((amp - 1) + (amp+1)*cw)
	b2 := amp * ((amp + 1) + (amp-1)*cw - beta)
	a0 := (amp + 1) - (amp-1)*cw + beta
	a1 := 2 * ((amp - 1) - (amp+1)*cw)
	a2 := (amp + 1) - (amp-1)*cw - beta

	return flatten(b0, b1, b2, a0, a1, a2), nil
}

// HighPass returns flat single-section coefficients for a second-order high pass.
func HighPass(freq, sampleRate float64) ([]float64, error) {
	w0, err := angularFrequency(freq, sampleRate)
	if err != nil {
		return nil, err
	}

	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * highPassQ)

	b0 := (1 + cw) / 2
	b1 := -(1 + cw)
	b2 := (1 + cw) / 2
	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	return flatten(b0, b1, b2, a0, a1, a2), nil
}

func angularFrequency(freq, sampleRate float64) (float64, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return 0, fmt.Errorf("%w: sample rate %v", ErrInvalidDesign, sampleRate)
	}

	if freq <= 0 || freq >= sampleRate/2 || math.IsNaN(freq) {
		return 0, fmt.Errorf("%w: frequency %v outside (0, %v)", ErrInvalidDesign, freq, sampleRate/2)
	}

	return 2 * math.Pi * freq / sampleRate, nil
}

// flatten folds b0 into the output gain so the section numerator starts at 1.
func flatten(b0, b1, b2, a0, a1, a2 float64) []float64 {
	return []float64{b0 / a0, b1 / b0, b2 / b0, a1 / a0, a2 / a0}
}
