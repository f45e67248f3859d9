package ffmpeg

import (
	"fmt"

	"github.com/farcloser/lufsmeter/internal/types"
)

// pcmFormat maps a bit depth to the raw little-endian muxer and its matching codec,
// e.g. 24 gives s24le and pcm_s24le.
func pcmFormat(depth types.BitDepth) (muxer, codec string, err error) {
	switch depth {
	case types.Depth16, types.Depth24, types.Depth32:
	default:
		return "", "", fmt.Errorf("%w: %d", ErrUnsupportedDepth, depth)
	}

	muxer = fmt.Sprintf("s%dle", depth)

	return muxer, "pcm_" + muxer, nil
}
