// Package pcm decodes interleaved little-endian signed PCM into stereo float blocks.
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/lufsmeter/internal/types"
)

const (
	maxValue16 = 32768.0      // 2^15
	maxValue24 = 8388608.0    // 2^23
	maxValue32 = 2147483648.0 // 2^31
)

// ErrUnsupportedFormat is returned for formats the decoder cannot read.
var ErrUnsupportedFormat = errors.New("unsupported PCM format")

// Decoder reads frames from an io.Reader and splits them into left and right blocks.
// Mono input is copied to both channels. Channels beyond the second are ignored.
// A trailing partial frame is dropped.
type Decoder struct {
	reader    io.Reader
	format    types.PCMFormat
	frameSize int
	maxVal    float64
	buf       []byte
	pending   int
	frames    uint64
}

// NewDecoder returns a decoder yielding at most blockSize frames per call.
func NewDecoder(r io.Reader, format types.PCMFormat, blockSize int) (*Decoder, error) {
	var maxVal float64

	switch format.BitDepth {
	case types.Depth16:
		maxVal = maxValue16
	case types.Depth24:
		maxVal = maxValue24
	case types.Depth32:
		maxVal = maxValue32
	default:
		return nil, fmt.Errorf("%w: bit depth %d", ErrUnsupportedFormat, format.BitDepth)
	}

	if format.Channels == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrUnsupportedFormat)
	}

	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size %d", ErrUnsupportedFormat, blockSize)
	}

	frameSize := format.FrameSize()

	return &Decoder{
		reader:    r,
		format:    format,
		frameSize: frameSize,
		maxVal:    maxVal,
		buf:       make([]byte, frameSize*blockSize),
	}, nil
}

// Format returns the input format.
func (d *Decoder) Format() types.PCMFormat {
	return d.format
}

// Frames returns the number of frames decoded so far.
func (d *Decoder) Frames() uint64 {
	return d.frames
}

// Read fills left and right with the next frames and returns how many were written.
// Both slices must hold at least the block size. At the end of input it returns 0, io.EOF.
func (d *Decoder) Read(left, right []float64) (int, error) {
	for d.pending < len(d.buf) {
		n, err := d.reader.Read(d.buf[d.pending:])
		d.pending += n

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return 0, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
		}

		// Hand out whole frames as soon as a short read delivers any.
		if d.pending >= d.frameSize {
			break
		}
	}

	frames := d.pending / d.frameSize
	if frames == 0 {
		d.pending = 0

		return 0, io.EOF
	}

	frames = min(frames, len(left), len(right))
	data := d.buf[:frames*d.frameSize]

	for i := range frames {
		frame := data[i*d.frameSize:]
		left[i] = d.sample(frame, 0)

		if d.format.Channels == 1 {
			right[i] = left[i]
		} else {
			right[i] = d.sample(frame, 1)
		}
	}

	consumed := frames * d.frameSize
	d.pending = copy(d.buf, d.buf[consumed:d.pending])
	d.frames += uint64(frames) //nolint:gosec // non-negative

	return frames, nil
}

func (d *Decoder) sample(frame []byte, ch int) float64 {
	switch d.format.BitDepth {
	case types.Depth16:
		return float64(int16(binary.LittleEndian.Uint16(frame[ch*2:]))) / d.maxVal //nolint:gosec // two's complement
	case types.Depth24:
		offset := ch * 3

		raw := int32(frame[offset]) | int32(frame[offset+1])<<8 | int32(frame[offset+2])<<16
		if raw&0x800000 != 0 {
			raw |= ^0xFFFFFF
		}

		return float64(raw) / d.maxVal
	default:
		return float64(int32(binary.LittleEndian.Uint32(frame[ch*4:]))) / d.maxVal //nolint:gosec // two's complement
	}
}
