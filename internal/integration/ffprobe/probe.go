//nolint:tagliatelle
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/lufsmeter/internal/integration/binary"
)

// Result contains the marshalled output of ffprobe.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream holds the per-stream properties the meter cares about.
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`                // flac
	CodecType     string `json:"codec_type"`                // audio
	SampleRate    string `json:"sample_rate,omitempty"`     // 44100
	Channels      int    `json:"channels,omitempty"`        // 2
	ChannelLayout string `json:"channel_layout,omitempty"`  // stereo
	Duration      string `json:"duration,omitempty"`        // 310.666667
	BitRate       string `json:"bit_rate,omitempty"`        // 956821
	SampleFmt     string `json:"sample_fmt,omitempty"`      // s16
	BitsPerSample int    `json:"bits_per_sample,omitempty"` // 0 for most compressed codecs

	// Lossless codecs report their depth here, containers like WAV in BitsPerSample.
	BitsPerRawSample string `json:"bits_per_raw_sample,omitempty"`
}

// Format holds container-level information.
type Format struct {
	Filename   string `json:"filename"`
	NbStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"`        // flac, or "mov,mp4,m4a,3gp,3g2,mj2"
	Duration   string `json:"duration,omitempty"` // seconds as a float string
	BitRate    string `json:"bit_rate,omitempty"`
	Size       string `json:"size,omitempty"`
}

// AudioStream returns the index-th audio stream (0-based, counting audio streams only).
func (r *Result) AudioStream(index int) (*Stream, error) {
	audioCount := 0

	for i := range r.Streams {
		if r.Streams[i].CodecType != "audio" {
			continue
		}

		if audioCount == index {
			return &r.Streams[i], nil
		}

		audioCount++
	}

	return nil, fmt.Errorf("%w: index %d (file has %d audio streams)", ErrNoAudioStream, index, audioCount)
}

// SampleRateHz parses the stream sample rate.
func (s *Stream) SampleRateHz() (int, error) {
	rate, err := strconv.Atoi(s.SampleRate)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("%w: sample rate %q", ErrInvalidStream, s.SampleRate)
	}

	return rate, nil
}

// DurationSeconds parses the stream duration, falling back to zero when absent.
func (s *Stream) DurationSeconds() float64 {
	seconds, err := strconv.ParseFloat(s.Duration, 64)
	if err != nil {
		return 0
	}

	return seconds
}

// Parse decodes raw ffprobe JSON.
func Parse(data []byte) (*Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrInvalidJSON, err)
	}

	return &result, nil
}

// Probe runs ffprobe on the given file path and returns parsed metadata.
// It requires ffprobe to be available in the system PATH.
func Probe(ctx context.Context, filePath string) (*Result, error) {
	slog.Debug("ffprobe.Probe", "file path", filePath)

	ffprobePath, err := binary.Locate(name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // filePath is intentionally user-provided input for probing media files
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		return nil, fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	return Parse(output)
}
