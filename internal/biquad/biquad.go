// Package biquad implements a cascade of second-order IIR sections driven by a flat
// coefficient list: gain, then b1, b2, a1, a2 for each section.
//
// Every section uses the normalized difference equation
//
//	y[n] = x[n] + b1*x[n-1] + b2*x[n-2] - a1*y[n-1] - a2*y[n-2]
//
// where x is the filter input for section 0 and the previous section's output otherwise.
// The gain multiplies the output of the last section.
package biquad

import (
	"errors"
	"fmt"
)

// coefficientsPerSection is the number of flat values each section contributes.
const coefficientsPerSection = 4

// ErrInvalidCoefficients is returned when a coefficient list is empty or malformed.
var ErrInvalidCoefficients = errors.New("invalid biquad coefficients")

type section struct {
	b1, b2 float64
	a1, a2 float64
}

// Memory is the recursive state of one section.
// X1 and X2 are only meaningful for section 0, later sections read their input history
// from the previous section's Y1 and Y2.
type Memory struct {
	X1, X2 float64
	Y1, Y2 float64
}

// Filter is a biquad cascade. It is not safe for concurrent use.
type Filter struct {
	gain     float64
	sections []section
	memories []Memory
	// per-sample section outputs, kept to avoid allocating in Process
	outputs []float64
}

// New returns a filter configured with coef.
func New(coef []float64) (*Filter, error) {
	filter := &Filter{}
	if err := filter.SetCoefficients(coef); err != nil {
		return nil, err
	}

	return filter, nil
}

// Identity returns coefficients for a single pass-through section.
func Identity() []float64 {
	return []float64{1, 0, 0, 0, 0}
}

// SetCoefficients replaces the whole coefficient set and zeroes every memory.
func (f *Filter) SetCoefficients(coef []float64) error {
	if len(coef) == 0 {
		return fmt.Errorf("%w: no coefficients", ErrInvalidCoefficients)
	}

	if (len(coef)-1)%coefficientsPerSection != 0 {
		return fmt.Errorf("%w: expected 1+4*N values, got %d", ErrInvalidCoefficients, len(coef))
	}

	count := (len(coef) - 1) / coefficientsPerSection

	sections := make([]section, count)
	for i := range sections {
		base := 1 + i*coefficientsPerSection
		sections[i] = section{
			b1: coef[base],
			b2: coef[base+1],
			a1: coef[base+2],
			a2: coef[base+3],
		}
	}

	f.gain = coef[0]
	f.sections = sections
	f.memories = make([]Memory, count)
	f.outputs = make([]float64, count)

	return nil
}

// Reset zeroes the memory of every section.
func (f *Filter) Reset() {
	clear(f.memories)
}

// Sections returns the cascade depth.
func (f *Filter) Sections() int {
	return len(f.sections)
}

// Gain returns the scalar applied to the cascade output.
func (f *Filter) Gain() float64 {
	return f.gain
}

// Memory returns a copy of the per-section state.
func (f *Filter) Memory() []Memory {
	out := make([]Memory, len(f.memories))
	copy(out, f.memories)

	return out
}

// Coefficients returns the flat coefficient list currently in use.
func (f *Filter) Coefficients() []float64 {
	coef := make([]float64, 0, 1+len(f.sections)*coefficientsPerSection)
	coef = append(coef, f.gain)

	for _, s := range f.sections {
		coef = append(coef, s.b1, s.b2, s.a1, s.a2)
	}

	return coef
}

// Process filters one sample. A cascade without sections is a plain gain.
func (f *Filter) Process(x float64) float64 {
	if len(f.sections) == 0 {
		return x * f.gain
	}

	first := &f.sections[0]
	mem := &f.memories[0]
	f.outputs[0] = x + first.b1*mem.X1 + first.b2*mem.X2 - first.a1*mem.Y1 - first.a2*mem.Y2

	for e := 1; e < len(f.sections); e++ {
		sec := &f.sections[e]
		prev := &f.memories[e-1]
		cur := &f.memories[e]
		f.outputs[e] = f.outputs[e-1] + sec.b1*prev.Y1 + sec.b2*prev.Y2 - sec.a1*cur.Y1 - sec.a2*cur.Y2
	}

	out := f.outputs[len(f.sections)-1] * f.gain

	mem.X2 = mem.X1
	mem.X1 = x

	for p := range f.memories {
		f.memories[p].Y2 = f.memories[p].Y1
		f.memories[p].Y1 = f.outputs[p]
	}

	return out
}

// ProcessBlock filters in into out. The slices may alias; out must be at least as long as in.
func (f *Filter) ProcessBlock(in, out []float64) {
	for i, x := range in {
		out[i] = f.Process(x)
	}
}
