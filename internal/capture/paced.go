// Package capture provides live block sources: PCM replayed at real-time pace, and the
// default audio input when built with the portaudio tag.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/farcloser/lufsmeter/internal/pcm"
	"github.com/farcloser/lufsmeter/internal/types"
)

// ErrCapture wraps audio device and replay failures.
var ErrCapture = errors.New("audio capture failed")

// Paced replays PCM from a reader, delivering each block no faster than its duration
// divided by Speed.
type Paced struct {
	reader    io.Reader
	format    types.PCMFormat
	blockSize int

	// Speed multiplies the pace. Zero or less means 1.
	Speed float64
}

// NewPaced returns a real-time source over r.
func NewPaced(r io.Reader, format types.PCMFormat, blockSize int) *Paced {
	return &Paced{reader: r, format: format, blockSize: blockSize, Speed: 1}
}

// SampleRate returns the rate of the PCM input.
func (p *Paced) SampleRate() float64 {
	return float64(p.format.SampleRate)
}

// Stream decodes and delivers blocks until the reader is exhausted.
func (p *Paced) Stream(ctx context.Context, deliver func(left, right []float64) error) error {
	dec, err := pcm.NewDecoder(p.reader, p.format, p.blockSize)
	if err != nil {
		return err
	}

	if p.format.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrCapture, p.format.SampleRate)
	}

	speed := p.Speed
	if speed <= 0 {
		speed = 1
	}

	period := time.Duration(float64(p.blockSize) / float64(p.format.SampleRate) / speed * float64(time.Second))

	slog.Debug("capture.Paced", "stage", "start", "period", period)

	// Below a nanosecond per block there is nothing left to pace.
	var tick <-chan time.Time

	if period > 0 {
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		tick = ticker.C
	}

	left := make([]float64, p.blockSize)
	right := make([]float64, p.blockSize)

	for {
		n, readErr := dec.Read(left, right)
		if errors.Is(readErr, io.EOF) {
			slog.Debug("capture.Paced", "stage", "end", "frames", dec.Frames())

			return nil
		}

		if readErr != nil {
			return readErr
		}

		if err = deliver(left[:n], right[:n]); err != nil {
			return err
		}

		if tick == nil {
			if err = ctx.Err(); err != nil {
				return err
			}

			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}
