package workload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kernel-sim/kernel-sim/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpec = `
version: "1"
seed: 7
threads:
  - name: editor
    priority: 20
    program:
      - {op: compute, arg: 40}
      - {op: block, arg: 100}
      - {op: compute, arg: 10}
  - name: batch
    priority: 120
    arrival: 50
    user: true
    program:
      - {op: compute, arg: 500}
classes:
  - name: interactive
    count: 3
    rounds: 2
    priority: {type: uniform, params: {min: 60, max: 99}}
    arrival: {process: constant, rate: 0.01}
    compute: {type: constant, params: {value: 15}}
    block: {type: constant, params: {value: 30}}
`

func writeSpec(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadWorkloadSpec_ParsesThreadsAndClasses(t *testing.T) {
	spec, err := LoadWorkloadSpec(writeSpec(t, sampleSpec))
	require.NoError(t, err)

	assert.Equal(t, int64(7), spec.Seed)
	require.Len(t, spec.Threads, 2)
	assert.Equal(t, "editor", spec.Threads[0].Name)
	assert.Equal(t, []InstructionSpec{{Op: "compute", Arg: 40}, {Op: "block", Arg: 100}, {Op: "compute", Arg: 10}},
		spec.Threads[0].Program)
	assert.True(t, spec.Threads[1].User)
	require.Len(t, spec.Classes, 1)
	assert.Equal(t, "uniform", spec.Classes[0].Priority.Type)
	require.NotNil(t, spec.Classes[0].Block)
	assert.NoError(t, spec.Validate())
}

func TestLoadWorkloadSpec_UnknownKey_Errors(t *testing.T) {
	_, err := LoadWorkloadSpec(writeSpec(t, "version: \"1\"\nthreds: []\n"))
	assert.Error(t, err)
}

func TestLoadWorkloadSpec_MissingVersion_DefaultsToOne(t *testing.T) {
	spec, err := LoadWorkloadSpec(writeSpec(t, "threads:\n  - name: a\n    program: [{op: exit}]\n"))
	require.NoError(t, err)
	assert.Equal(t, "1", spec.Version)
}

func TestWorkloadSpec_Validate_Rejects(t *testing.T) {
	valid := func() *WorkloadSpec {
		return &WorkloadSpec{
			Version: "1",
			Classes: []ClassSpec{{
				Name:     "c",
				Count:    2,
				Rounds:   1,
				Priority: DistSpec{Type: "constant", Params: map[string]float64{"value": 10}},
				Arrival:  ArrivalSpec{Process: "poisson", Rate: 0.1},
				Compute:  DistSpec{Type: "exponential", Params: map[string]float64{"mean": 20}},
			}},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*WorkloadSpec)
	}{
		{"no threads", func(s *WorkloadSpec) { s.Classes = nil }},
		{"bad version", func(s *WorkloadSpec) { s.Version = "9" }},
		{"zero count", func(s *WorkloadSpec) { s.Classes[0].Count = 0 }},
		{"zero rounds", func(s *WorkloadSpec) { s.Classes[0].Rounds = 0 }},
		{"bad process", func(s *WorkloadSpec) { s.Classes[0].Arrival.Process = "weibull" }},
		{"zero rate", func(s *WorkloadSpec) { s.Classes[0].Arrival.Rate = 0 }},
		{"missing param", func(s *WorkloadSpec) { s.Classes[0].Compute.Params = nil }},
		{"bad dist", func(s *WorkloadSpec) { s.Classes[0].Priority.Type = "zipf" }},
		{"negative priority", func(s *WorkloadSpec) {
			s.Threads = []ThreadSpec{{Name: "t", Priority: -1}}
		}},
		{"unknown op", func(s *WorkloadSpec) {
			s.Threads = []ThreadSpec{{Name: "t", Program: []InstructionSpec{{Op: "fork"}}}}
		}},
		{"zero block", func(s *WorkloadSpec) {
			s.Threads = []ThreadSpec{{Name: "t", Program: []InstructionSpec{{Op: "block"}}}}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestToProgram_MapsOpNames(t *testing.T) {
	prog, err := toProgram([]InstructionSpec{{Op: "compute", Arg: 5}, {Op: "set_priority", Arg: 70}, {Op: "yield"}})
	require.NoError(t, err)
	assert.Equal(t, sim.Program{sim.Compute(5), sim.SetPriority(70), sim.Yield()}, prog)
}

func TestValidate_DuplicateClassName_Errors(t *testing.T) {
	spec, err := LoadWorkloadSpec(writeSpec(t, sampleSpec))
	require.NoError(t, err)
	spec.Classes = append(spec.Classes, spec.Classes[0])

	err = spec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate class name")
}
