package weighting

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/farcloser/lufsmeter/internal/biquad"
)

// Point is one bin of a magnitude response.
type Point struct {
	Frequency float64 `json:"frequency"`
	GainDB    float64 `json:"gain_db"`
}

// Response measures the magnitude response of the filter, gain included, from an impulse
// of size samples. The live filter state is left untouched.
func (f *Filter) Response(size int) []Point {
	var stages [2]*biquad.Filter

	for i, stage := range f.stages {
		// Coefficients were already validated once, so this cannot fail.
		stages[i], _ = biquad.New(stage.Coefficients())
	}

	impulse := make([]float64, size)
	impulse[0] = 1

	for i, x := range impulse {
		impulse[i] = stages[StageHighPass].Process(stages[StageShelf].Process(x)) * f.gain
	}

	fft := fourier.NewFFT(size)
	coeffs := fft.Coefficients(nil, impulse)

	points := make([]Point, len(coeffs))
	for i, c := range coeffs {
		mag := math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
		points[i] = Point{
			Frequency: fft.Freq(i) * f.sampleRate,
			GainDB:    20 * math.Log10(mag),
		}
	}

	return points
}

// GainAt returns the response point closest to freq.
func GainAt(points []Point, freq float64) Point {
	best := points[0]

	for _, p := range points[1:] {
		if math.Abs(p.Frequency-freq) < math.Abs(best.Frequency-freq) {
			best = p
		}
	}

	return best
}
