// Package window provides fixed-capacity circular sample windows with a full-capacity
// mean-square scan.
//
// Concurrency: a Window has a single writer and any number of readers. Each slot holds
// the bits of a float64 in an atomic word, so a reader scanning while the writer pushes
// sees every slot either before or after its update, never a torn value. The cursor and
// cycle counter are atomic too. Readers never block the writer.
package window

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidCapacity is returned for windows that cannot hold at least one sample.
var ErrInvalidCapacity = errors.New("window capacity must be positive")

// scratch holds pooled snapshot memory so mean-square scans do not allocate per query.
type scratch struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratch{} },
}

func getScratch(n int) *scratch {
	buf, _ := scratchPool.Get().(*scratch)
	if cap(buf.data) < n {
		buf.data = make([]float64, n)
	}

	buf.data = buf.data[:n]

	return buf
}

func putScratch(buf *scratch) {
	scratchPool.Put(buf)
}

// Window is a circular buffer of samples. The write cursor counts down from
// capacity-1 to 0, then wraps back to capacity-1 and bumps the cycle counter.
type Window struct {
	slots  []atomic.Uint64
	cursor atomic.Int64
	cycles atomic.Uint64
}

// New returns a zero-filled window of capacity samples.
func New(capacity int) (*Window, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	win := &Window{slots: make([]atomic.Uint64, capacity)}
	win.cursor.Store(int64(capacity - 1))

	return win, nil
}

// Push writes v at the cursor and moves the cursor. Only one goroutine may push.
func (w *Window) Push(v float64) {
	idx := w.cursor.Load()
	w.slots[idx].Store(math.Float64bits(v))

	if idx == 0 {
		w.cursor.Store(int64(len(w.slots) - 1))
		w.cycles.Add(1)

		return
	}

	w.cursor.Store(idx - 1)
}

// PushBlock pushes every value of vs in order.
func (w *Window) PushBlock(vs []float64) {
	for _, v := range vs {
		w.Push(v)
	}
}

// Capacity returns the number of slots.
func (w *Window) Capacity() int {
	return len(w.slots)
}

// Cursor returns the slot the next Push will write.
func (w *Window) Cursor() int {
	return int(w.cursor.Load())
}

// Cycles returns how many times the cursor wrapped.
func (w *Window) Cycles() uint64 {
	return w.cycles.Load()
}

// Filled reports whether every slot has been written at least once.
func (w *Window) Filled() bool {
	return w.Cycles() > 0
}

// Snapshot copies the slots into dst, growing it when needed, and returns it.
// Slot i of the result is slot i of the window, not the i-th pushed value.
func (w *Window) Snapshot(dst []float64) []float64 {
	if cap(dst) < len(w.slots) {
		dst = make([]float64, len(w.slots))
	}

	dst = dst[:len(w.slots)]

	for i := range w.slots {
		dst[i] = math.Float64frombits(w.slots[i].Load())
	}

	return dst
}

// SumOfSquares returns the sum of v*v over every slot.
func (w *Window) SumOfSquares() float64 {
	buf := getScratch(len(w.slots))
	defer putScratch(buf)

	snap := w.Snapshot(buf.data)

	return floats.Dot(snap, snap)
}

// MeanSquare returns the sum of squares over all slots divided by the capacity.
// Slots never written still count as zeros.
func (w *Window) MeanSquare() float64 {
	return w.SumOfSquares() / float64(len(w.slots))
}

// Reset zeroes every slot, rewinds the cursor and clears the cycle counter.
// It must not race with Push.
func (w *Window) Reset() {
	for i := range w.slots {
		w.slots[i].Store(0)
	}

	w.cursor.Store(int64(len(w.slots) - 1))
	w.cycles.Store(0)
}
