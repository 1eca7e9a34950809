package workload

import (
	"fmt"
	"math"
	"math/rand"
)

// Sampler draws non-negative integers: priorities, compute ticks, block ticks.
type Sampler interface {
	Sample(rng *rand.Rand) int64
}

// GaussianSampler produces clamped Gaussian values.
type GaussianSampler struct {
	mean, stdDev float64
	min, max     int64
}

func (s *GaussianSampler) Sample(rng *rand.Rand) int64 {
	if s.min == s.max {
		return s.min
	}
	val := rng.NormFloat64()*s.stdDev + s.mean
	clamped := math.Min(float64(s.max), math.Max(float64(s.min), val))
	return int64(math.Round(clamped))
}

// ExponentialSampler produces exponentially-distributed values, at least 1.
type ExponentialSampler struct {
	mean float64
}

func (s *ExponentialSampler) Sample(rng *rand.Rand) int64 {
	v := int64(math.Round(rng.ExpFloat64() * s.mean))
	if v < 1 {
		return 1
	}
	return v
}

// UniformSampler draws uniformly from [min, max].
type UniformSampler struct {
	min, max int64
}

func (s *UniformSampler) Sample(rng *rand.Rand) int64 {
	return s.min + rng.Int63n(s.max-s.min+1)
}

// ConstantSampler always returns the same value.
type ConstantSampler struct {
	value int64
}

func (s *ConstantSampler) Sample(_ *rand.Rand) int64 {
	return s.value
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("distribution requires parameter %q", k)
		}
	}
	return nil
}

// NewSampler creates a Sampler from a DistSpec.
func NewSampler(spec DistSpec) (Sampler, error) {
	p := spec.Params
	switch spec.Type {
	case "gaussian":
		if err := requireParam(p, "mean", "std_dev", "min", "max"); err != nil {
			return nil, err
		}
		if p["min"] < 0 || p["min"] > p["max"] {
			return nil, fmt.Errorf("gaussian needs 0 <= min <= max, got min=%v max=%v", p["min"], p["max"])
		}
		return &GaussianSampler{
			mean:   p["mean"],
			stdDev: p["std_dev"],
			min:    int64(p["min"]),
			max:    int64(p["max"]),
		}, nil

	case "exponential":
		if err := requireParam(p, "mean"); err != nil {
			return nil, err
		}
		if p["mean"] <= 0 {
			return nil, fmt.Errorf("exponential mean must be positive, got %v", p["mean"])
		}
		return &ExponentialSampler{mean: p["mean"]}, nil

	case "uniform":
		if err := requireParam(p, "min", "max"); err != nil {
			return nil, err
		}
		if p["min"] < 0 || p["min"] > p["max"] {
			return nil, fmt.Errorf("uniform needs 0 <= min <= max, got min=%v max=%v", p["min"], p["max"])
		}
		return &UniformSampler{min: int64(p["min"]), max: int64(p["max"])}, nil

	case "constant":
		if err := requireParam(p, "value"); err != nil {
			return nil, err
		}
		if p["value"] < 0 {
			return nil, fmt.Errorf("constant value must be non-negative, got %v", p["value"])
		}
		return &ConstantSampler{value: int64(p["value"])}, nil

	default:
		return nil, fmt.Errorf("unknown distribution type %q", spec.Type)
	}
}
