package window

import (
	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
)

// Pair holds the left and right windows of one duration.
type Pair struct {
	Left  *Window
	Right *Window
}

// NewPair returns two zero-filled windows of capacity samples.
func NewPair(capacity int) (*Pair, error) {
	left, err := New(capacity)
	if err != nil {
		return nil, err
	}

	right, err := New(capacity)
	if err != nil {
		return nil, err
	}

	return &Pair{Left: left, Right: right}, nil
}

// Capacity returns the per-channel slot count.
func (p *Pair) Capacity() int {
	return p.Left.Capacity()
}

// Push writes one frame.
func (p *Pair) Push(left, right float64) {
	p.Left.Push(left)
	p.Right.Push(right)
}

// MeanSquare averages the energy of both channels over their full capacity:
// (sum(L*L) + sum(R*R)) / (2 * capacity).
func (p *Pair) MeanSquare() float64 {
	size := p.Capacity()

	left := getScratch(size)
	defer putScratch(left)

	right := getScratch(size)
	defer putScratch(right)

	power := getScratch(size)
	defer putScratch(power)

	l := p.Left.Snapshot(left.data)
	r := p.Right.Snapshot(right.data)

	// power[i] = l[i]^2 + r[i]^2
	vecmath.Power(power.data, l, r)

	return floats.Sum(power.data) / float64(2*size)
}

// Reset clears both windows.
func (p *Pair) Reset() {
	p.Left.Reset()
	p.Right.Reset()
}
