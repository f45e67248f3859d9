package ffprobe

import (
	"errors"
	"time"
)

const (
	name = "ffprobe"
	// Slow hard-drives spinning up or network retrieved resources may cause timeouts if too aggressive.
	timeout = 60 * time.Second
)

var (
	// ErrNoAudioStream is returned when the requested audio stream does not exist.
	ErrNoAudioStream = errors.New("audio stream not found")
	// ErrInvalidStream is returned when a stream lacks usable rate or channel information.
	ErrInvalidStream = errors.New("invalid audio stream properties")
)
