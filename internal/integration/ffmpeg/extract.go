package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/lufsmeter/internal/integration/binary"
	"github.com/farcloser/lufsmeter/internal/types"
)

// ExtractStream decodes one audio stream of a container to raw PCM.
// The bit depth of format selects the sample encoding. Non-zero Channels and SampleRate
// ask ffmpeg to remix and resample.
func ExtractStream(
	ctx context.Context,
	input io.Reader,
	output io.Writer,
	streamIndex int,
	format *types.PCMFormat,
) error {
	slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "start")

	ffmpegPath, err := binary.Locate(name)
	if err != nil {
		return err
	}

	muxer, codec, err := pcmFormat(format.BitDepth)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-i", "-",
		"-map", "0:a:" + strconv.Itoa(streamIndex),
		"-f", muxer,
		"-acodec", codec,
	}

	if format.Channels > 0 {
		args = append(args, "-ac", strconv.FormatUint(uint64(format.Channels), 10))
	}

	if format.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(format.SampleRate))
	}

	args = append(args, "-v", "quiet", "-")

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	cmd.Stdout = output
	cmd.Stdin = input

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err = cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "timeout")

			return fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "error")

		return fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "done")

	return nil
}
