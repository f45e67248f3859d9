package ffmpeg

import (
	"errors"
	"time"
)

const (
	name = "ffmpeg"
	// Whole-file decodes of long recordings over slow storage need headroom.
	timeout = 10 * time.Minute
)

// ErrUnsupportedDepth is returned for bit depths ffmpeg is not asked to produce.
var ErrUnsupportedDepth = errors.New("unsupported PCM bit depth")
