package types

import "fmt"

type BitDepth uint

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// ParseBitDepth converts a bit count to a BitDepth value.
func ParseBitDepth(bits int) (BitDepth, error) {
	switch bits {
	case 16:
		return Depth16, nil
	case 24:
		return Depth24, nil
	case 32:
		return Depth32, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bits)
	}
}

// BytesPerSample returns the width of one sample of one channel.
func (b BitDepth) BytesPerSample() int {
	return int(b / 8) //nolint:gosec // audio format values are small constants
}

// PCMFormat describes interleaved little-endian signed integer PCM.
type PCMFormat struct {
	SampleRate int
	BitDepth   BitDepth
	Channels   uint
}

// FrameSize returns the width of one interleaved frame in bytes.
func (f PCMFormat) FrameSize() int {
	return f.BitDepth.BytesPerSample() * int(f.Channels) //nolint:gosec // validated channel count
}
