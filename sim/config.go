package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/kernel-sim/kernel-sim/sim/trace"
	"gopkg.in/yaml.v3"
)

// Aging defaults: a thread that has waited AgingThreshold ticks in a ready
// queue gains AgingIncrement priority at the next scheduling decision.
const (
	AgingThreshold = 1500
	AgingIncrement = 10
)

// KernelConfig groups the tunables of a kernel run.
// Zero-valued fields in a YAML overlay leave the defaults in place.
type KernelConfig struct {
	AgingThreshold int64  `yaml:"aging_threshold"` // ticks in a ready queue before a boost
	AgingIncrement int    `yaml:"aging_increment"` // priority added per boost
	TimerTicks     int64  `yaml:"timer_ticks"`     // default time slice
	RandomSlice    bool   `yaml:"random_slice"`    // randomize timer interrupts
	Seed           int64  `yaml:"seed"`            // master RNG seed
	Horizon        int64  `yaml:"horizon"`         // halt once the clock passes this tick
	TraceLevel     string `yaml:"trace_level"`     // "none" or "decisions"
}

// DefaultKernelConfig returns the configuration the kernel uses when nothing is overridden.
func DefaultKernelConfig() KernelConfig {
	return KernelConfig{
		AgingThreshold: AgingThreshold,
		AgingIncrement: AgingIncrement,
		TimerTicks:     TimerTicks,
		Seed:           42,
		Horizon:        math.MaxInt64,
		TraceLevel:     string(trace.TraceLevelDecisions),
	}
}

// Validate checks parameter ranges.
func (c KernelConfig) Validate() error {
	if c.AgingThreshold <= 0 {
		return fmt.Errorf("aging_threshold must be positive, got %d", c.AgingThreshold)
	}
	if c.AgingIncrement < 0 {
		return fmt.Errorf("aging_increment must be non-negative, got %d", c.AgingIncrement)
	}
	if c.TimerTicks <= 0 {
		return fmt.Errorf("timer_ticks must be positive, got %d", c.TimerTicks)
	}
	if c.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", c.Horizon)
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q", c.TraceLevel)
	}
	return nil
}

// kernelConfigFile mirrors KernelConfig with pointer fields so that an
// explicit zero in YAML can be told apart from an absent key.
type kernelConfigFile struct {
	AgingThreshold *int64  `yaml:"aging_threshold"`
	AgingIncrement *int    `yaml:"aging_increment"`
	TimerTicks     *int64  `yaml:"timer_ticks"`
	RandomSlice    *bool   `yaml:"random_slice"`
	Seed           *int64  `yaml:"seed"`
	Horizon        *int64  `yaml:"horizon"`
	TraceLevel     *string `yaml:"trace_level"`
}

// LoadKernelConfig reads a YAML overlay and applies it on top of base.
// Unknown keys are rejected so typos surface as errors.
func LoadKernelConfig(path string, base KernelConfig) (KernelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading kernel config: %w", err)
	}
	var f kernelConfigFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return base, fmt.Errorf("parsing kernel config: %w", err)
	}

	cfg := base
	if f.AgingThreshold != nil {
		cfg.AgingThreshold = *f.AgingThreshold
	}
	if f.AgingIncrement != nil {
		cfg.AgingIncrement = *f.AgingIncrement
	}
	if f.TimerTicks != nil {
		cfg.TimerTicks = *f.TimerTicks
	}
	if f.RandomSlice != nil {
		cfg.RandomSlice = *f.RandomSlice
	}
	if f.Seed != nil {
		cfg.Seed = *f.Seed
	}
	if f.Horizon != nil {
		cfg.Horizon = *f.Horizon
	}
	if f.TraceLevel != nil {
		cfg.TraceLevel = *f.TraceLevel
	}
	if err := cfg.Validate(); err != nil {
		return base, fmt.Errorf("invalid kernel config %s: %w", path, err)
	}
	return cfg, nil
}
