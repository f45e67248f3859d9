// Package media turns container files into stereo PCM the meter can read, by way of
// ffprobe and ffmpeg.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/farcloser/lufsmeter/internal/integration/ffmpeg"
	"github.com/farcloser/lufsmeter/internal/integration/ffprobe"
	"github.com/farcloser/lufsmeter/internal/types"
)

// Probe inspects filePath and returns the PCM format Extract will produce for the
// streamIndex-th audio stream: native sample rate, 32-bit, stereo.
func Probe(ctx context.Context, filePath string, streamIndex int) (*ffprobe.Result, types.PCMFormat, error) {
	probeResult, err := ffprobe.Probe(ctx, filePath)
	if err != nil {
		return nil, types.PCMFormat{}, fmt.Errorf("probing file: %w", err)
	}

	stream, err := probeResult.AudioStream(streamIndex)
	if err != nil {
		return probeResult, types.PCMFormat{}, err
	}

	format, err := BuildPCMFormat(stream)

	return probeResult, format, err
}

// BuildPCMFormat derives the extraction format from a probed stream.
func BuildPCMFormat(stream *ffprobe.Stream) (types.PCMFormat, error) {
	sampleRate, err := stream.SampleRateHz()
	if err != nil {
		return types.PCMFormat{}, err
	}

	if stream.Channels <= 0 {
		return types.PCMFormat{}, fmt.Errorf("%w: channel count %d", ffprobe.ErrInvalidStream, stream.Channels)
	}

	return types.PCMFormat{
		SampleRate: sampleRate,
		BitDepth:   types.Depth32,
		Channels:   2,
	}, nil
}

// Extract decodes the streamIndex-th audio stream of filePath to PCM in format.
func Extract(ctx context.Context, filePath string, streamIndex int, format types.PCMFormat) ([]byte, error) {
	file, err := os.Open(filePath) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	var pcmBuf bytes.Buffer

	// Channels only, the native rate is kept.
	extractFormat := &types.PCMFormat{BitDepth: format.BitDepth, Channels: format.Channels}

	if err = ffmpeg.ExtractStream(ctx, file, &pcmBuf, streamIndex, extractFormat); err != nil {
		return nil, fmt.Errorf("extracting PCM: %w", err)
	}

	return pcmBuf.Bytes(), nil
}
