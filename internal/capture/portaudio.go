//go:build portaudio

package capture

import (
	"context"
	"fmt"
	"log/slog"

	pa "github.com/gordonklaus/portaudio"
)

// Available reports whether live input is compiled in.
const Available = true

// PortAudio captures the default input device, or a named one, in callback mode.
type PortAudio struct {
	sampleRate      float64
	framesPerBuffer int
	device          string
}

// NewPortAudio returns a source reading two channels at sampleRate. An empty device
// selects the default input.
func NewPortAudio(sampleRate float64, framesPerBuffer int, device string) *PortAudio {
	return &PortAudio{sampleRate: sampleRate, framesPerBuffer: framesPerBuffer, device: device}
}

// SampleRate returns the requested capture rate.
func (p *PortAudio) SampleRate() float64 {
	return p.sampleRate
}

// Stream runs the device until ctx is done or deliver fails.
func (p *PortAudio) Stream(ctx context.Context, deliver func(left, right []float64) error) error {
	if err := pa.Initialize(); err != nil {
		return fmt.Errorf("%w: %w", ErrCapture, err)
	}

	defer func() {
		if err := pa.Terminate(); err != nil {
			slog.Debug("capture.PortAudio", "stage", "terminate", "error", err)
		}
	}()

	dev, err := p.inputDevice()
	if err != nil {
		return err
	}

	channels := min(2, dev.MaxInputChannels)
	if channels < 1 {
		return fmt.Errorf("%w: %s has no input channels", ErrCapture, dev.Name)
	}

	params := pa.LowLatencyParameters(dev, nil)
	params.Input.Channels = channels
	params.SampleRate = p.sampleRate
	params.FramesPerBuffer = p.framesPerBuffer

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	left := make([]float64, p.framesPerBuffer)
	right := make([]float64, p.framesPerBuffer)

	// Holds the first delivery failure. The callback never blocks on it.
	failed := make(chan error, 1)

	callback := func(in [][]float32) {
		size := min(len(in[0]), len(left))

		for i := range size {
			left[i] = float64(in[0][i])
			right[i] = left[i]

			if len(in) > 1 {
				right[i] = float64(in[1][i])
			}
		}

		if err := deliver(left[:size], right[:size]); err != nil {
			select {
			case failed <- err:
				cancel()
			default:
			}
		}
	}

	stream, err := pa.OpenStream(params, callback)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrCapture, dev.Name, err)
	}
	defer stream.Close()

	if err = stream.Start(); err != nil {
		return fmt.Errorf("%w: starting %s: %w", ErrCapture, dev.Name, err)
	}

	slog.Debug("capture.PortAudio", "stage", "start", "device", dev.Name, "channels", channels, "sample rate", p.sampleRate)

	<-ctx.Done()

	if err = stream.Stop(); err != nil {
		slog.Debug("capture.PortAudio", "stage", "stop", "error", err)
	}

	select {
	case err = <-failed:
		return err
	default:
		return ctx.Err()
	}
}

func (p *PortAudio) inputDevice() (*pa.DeviceInfo, error) {
	if p.device == "" {
		dev, err := pa.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCapture, err)
		}

		return dev, nil
	}

	devices, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapture, err)
	}

	for _, dev := range devices {
		if dev.Name == p.device && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}

	return nil, fmt.Errorf("%w: no input device named %q", ErrCapture, p.device)
}
