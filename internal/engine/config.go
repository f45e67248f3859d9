package engine

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/farcloser/primordium/fault"
	"gopkg.in/yaml.v3"

	"github.com/farcloser/lufsmeter/internal/weighting"
)

const (
	DefaultSampleRate       = 44100.0
	DefaultMomentarySeconds = 0.4
	DefaultShortTermSeconds = 3.0
)

// ErrInvalidConfig is returned by Validate and New.
var ErrInvalidConfig = errors.New("invalid engine configuration")

// Topology decides what the sliding windows accumulate.
type Topology int

const (
	// TopologyParallel feeds the windows the raw input samples. The weighted output only
	// goes to the WeightedSink, if any.
	TopologyParallel Topology = iota
	// TopologyInline feeds the windows the weighted samples.
	TopologyInline
)

func (t Topology) String() string {
	switch t {
	case TopologyParallel:
		return "parallel"
	case TopologyInline:
		return "inline"
	}

	return "unknown"
}

// ParseTopology converts a string to a Topology value.
func ParseTopology(s string) (Topology, error) {
	switch s {
	case "parallel", "":
		return TopologyParallel, nil
	case "inline":
		return TopologyInline, nil
	default:
		return 0, fmt.Errorf("unknown topology %q (valid: parallel, inline)", s)
	}
}

// MarshalYAML writes the topology by name.
func (t Topology) MarshalYAML() (any, error) {
	return t.String(), nil
}

// UnmarshalYAML reads the topology by name.
func (t *Topology) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}

	parsed, err := ParseTopology(name)
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// Config configures an Engine. Zero fields take their default, except that Gains and
// Weighting are only defaulted as a whole when entirely zero, so a muted channel or a
// flat shelf can be asked for explicitly.
type Config struct {
	SampleRate       float64                `json:"sample_rate"        yaml:"sample_rate"`
	MomentarySeconds float64                `json:"momentary_seconds"  yaml:"momentary_seconds"`
	ShortTermSeconds float64                `json:"short_term_seconds" yaml:"short_term_seconds"`
	Topology         Topology               `json:"topology"           yaml:"topology"`
	Gains            weighting.ChannelGains `json:"gains"              yaml:"gains"`
	Weighting        weighting.Design       `json:"weighting"          yaml:"weighting"`
}

// DefaultConfig returns the stock 44.1 kHz configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:       DefaultSampleRate,
		MomentarySeconds: DefaultMomentarySeconds,
		ShortTermSeconds: DefaultShortTermSeconds,
		Topology:         TopologyParallel,
		Gains:            weighting.DefaultChannelGains(),
		Weighting:        weighting.DefaultDesign(),
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-provided configuration path
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	applyDefaults(&cfg)

	return cfg, cfg.Validate()
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}

	if cfg.MomentarySeconds == 0 {
		cfg.MomentarySeconds = def.MomentarySeconds
	}

	if cfg.ShortTermSeconds == 0 {
		cfg.ShortTermSeconds = def.ShortTermSeconds
	}

	// A fully zeroed table means "not set". A single zero gain is a legitimate mute.
	if cfg.Gains == (weighting.ChannelGains{}) {
		cfg.Gains = def.Gains
	}

	// Same rule for the design: 0 dB is a valid shelf once anything else is set.
	if cfg.Weighting == (weighting.Design{}) {
		cfg.Weighting = def.Weighting
	}

	if cfg.Weighting.ShelfFrequency == 0 {
		cfg.Weighting.ShelfFrequency = def.Weighting.ShelfFrequency
	}

	if cfg.Weighting.HighPassFrequency == 0 {
		cfg.Weighting.HighPassFrequency = def.Weighting.HighPassFrequency
	}
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	if !positive(c.SampleRate) {
		return fmt.Errorf("%w: sample rate %v", ErrInvalidConfig, c.SampleRate)
	}

	if !positive(c.MomentarySeconds) || !positive(c.ShortTermSeconds) {
		return fmt.Errorf("%w: window durations %v/%v", ErrInvalidConfig, c.MomentarySeconds, c.ShortTermSeconds)
	}

	if c.MomentaryCapacity() < 1 || c.ShortTermCapacity() < 1 {
		return fmt.Errorf("%w: window shorter than one sample at %v Hz", ErrInvalidConfig, c.SampleRate)
	}

	if c.Topology != TopologyParallel && c.Topology != TopologyInline {
		return fmt.Errorf("%w: topology %d", ErrInvalidConfig, c.Topology)
	}

	if math.IsNaN(c.Gains.Left) || math.IsNaN(c.Gains.Right) {
		return fmt.Errorf("%w: channel gains %+v", ErrInvalidConfig, c.Gains)
	}

	return nil
}

// MomentaryCapacity is round(MomentarySeconds * SampleRate).
func (c Config) MomentaryCapacity() int {
	return int(math.Round(c.MomentarySeconds * c.SampleRate))
}

// ShortTermCapacity is round(ShortTermSeconds * SampleRate).
func (c Config) ShortTermCapacity() int {
	return int(math.Round(c.ShortTermSeconds * c.SampleRate))
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
