package types

import "fmt"

// Channel identifies one side of a stereo pair.
type Channel int

const (
	Left Channel = iota
	Right
)

func (c Channel) String() string {
	switch c {
	case Left:
		return "left"
	case Right:
		return "right"
	}

	return "unknown"
}

// ParseChannel converts a string to a Channel value.
func ParseChannel(s string) (Channel, error) {
	switch s {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	default:
		return 0, fmt.Errorf("unknown channel %q (valid: left, right)", s)
	}
}

// Reading holds the two running loudness values, in LU-like units.
// Silence since start yields negative infinity.
type Reading struct {
	Momentary float64 `json:"momentary"`
	ShortTerm float64 `json:"short_term"`
}
