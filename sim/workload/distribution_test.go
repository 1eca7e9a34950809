package workload

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussianSampler_ClampsToRange(t *testing.T) {
	s, err := NewSampler(DistSpec{Type: "gaussian", Params: map[string]float64{
		"mean": 50, "std_dev": 100, "min": 10, "max": 90,
	}})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 2000; i++ {
		v := s.Sample(rng)
		assert.GreaterOrEqual(t, v, int64(10))
		assert.LessOrEqual(t, v, int64(90))
	}
}

func TestUniformSampler_CoversBothEnds(t *testing.T) {
	s, err := NewSampler(DistSpec{Type: "uniform", Params: map[string]float64{"min": 60, "max": 62}})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	seen := map[int64]bool{}
	for i := 0; i < 500; i++ {
		seen[s.Sample(rng)] = true
	}
	assert.Equal(t, map[int64]bool{60: true, 61: true, 62: true}, seen)
}

func TestExponentialSampler_MeanAndFloor(t *testing.T) {
	s, err := NewSampler(DistSpec{Type: "exponential", Params: map[string]float64{"mean": 40}})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(11))
	n, sum := 20000, int64(0)
	for i := 0; i < n; i++ {
		v := s.Sample(rng)
		require.GreaterOrEqual(t, v, int64(1))
		sum += v
	}
	assert.InDelta(t, 40.0, float64(sum)/float64(n), 2.0)
}

func TestConstantSampler_ReturnsValue(t *testing.T) {
	s, err := NewSampler(DistSpec{Type: "constant", Params: map[string]float64{"value": 110}})
	require.NoError(t, err)
	assert.Equal(t, int64(110), s.Sample(nil))
}

func TestNewSampler_Errors(t *testing.T) {
	tests := []DistSpec{
		{Type: "gaussian", Params: map[string]float64{"mean": 1}},
		{Type: "gaussian", Params: map[string]float64{"mean": 1, "std_dev": 1, "min": 5, "max": 1}},
		{Type: "exponential", Params: map[string]float64{"mean": 0}},
		{Type: "uniform", Params: map[string]float64{"min": -1, "max": 3}},
		{Type: "constant", Params: map[string]float64{"value": -4}},
		{Type: "lognormal"},
	}
	for _, spec := range tests {
		_, err := NewSampler(spec)
		assert.Error(t, err, "%+v", spec)
	}
}
