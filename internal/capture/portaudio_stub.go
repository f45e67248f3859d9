//go:build !portaudio

package capture

import (
	"context"
	"fmt"
)

// Available reports whether live input is compiled in.
const Available = false

// PortAudio is unavailable in this build. Rebuild with -tags portaudio.
type PortAudio struct {
	sampleRate float64
}

// NewPortAudio returns a source whose Stream always fails.
func NewPortAudio(sampleRate float64, _ int, _ string) *PortAudio {
	return &PortAudio{sampleRate: sampleRate}
}

// SampleRate returns the requested capture rate.
func (p *PortAudio) SampleRate() float64 {
	return p.sampleRate
}

// Stream fails immediately.
func (*PortAudio) Stream(context.Context, func(left, right []float64) error) error {
	return fmt.Errorf("%w: built without portaudio support", ErrCapture)
}
