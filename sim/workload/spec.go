package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/kernel-sim/kernel-sim/sim"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// WorkloadSpec is the top-level workload configuration.
// Loaded from YAML via LoadWorkloadSpec(path).
type WorkloadSpec struct {
	Version string       `yaml:"version"`
	Seed    int64        `yaml:"seed"`
	Threads []ThreadSpec `yaml:"threads,omitempty"`
	Classes []ClassSpec  `yaml:"classes,omitempty"`
}

// ThreadSpec is one explicitly scripted thread.
type ThreadSpec struct {
	Name     string            `yaml:"name"`
	Priority int               `yaml:"priority"`
	Quantum  int64             `yaml:"quantum,omitempty"`
	User     bool              `yaml:"user,omitempty"`
	Arrival  int64             `yaml:"arrival,omitempty"` // tick the thread is forked
	Program  []InstructionSpec `yaml:"program"`
}

// InstructionSpec is the YAML form of sim.Instruction, e.g. {op: compute, arg: 40}.
type InstructionSpec struct {
	Op  string `yaml:"op"`
	Arg int64  `yaml:"arg,omitempty"`
}

// ClassSpec generates Count threads whose arrivals, priorities and CPU/IO
// pattern are drawn from distributions.
type ClassSpec struct {
	Name     string      `yaml:"name"`
	Count    int         `yaml:"count"`
	Priority DistSpec    `yaml:"priority"`
	Arrival  ArrivalSpec `yaml:"arrival"`
	Rounds   int         `yaml:"rounds"` // compute bursts per thread, separated by blocks
	Compute  DistSpec    `yaml:"compute"`
	Block    *DistSpec   `yaml:"block,omitempty"` // nil: bursts run back to back
	Quantum  int64       `yaml:"quantum,omitempty"`
	User     bool        `yaml:"user,omitempty"`
}

// ArrivalSpec configures the inter-arrival process of a class.
type ArrivalSpec struct {
	Process string   `yaml:"process"`
	Rate    float64  `yaml:"rate"` // threads per tick
	CV      *float64 `yaml:"cv,omitempty"`
	Start   int64    `yaml:"start,omitempty"`
}

// DistSpec parameterizes a distribution of non-negative integers.
type DistSpec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// Valid value registries.
var (
	validArrivalProcesses = map[string]bool{
		"poisson": true, "gamma": true, "constant": true,
	}
	validDistTypes = map[string]bool{
		"gaussian": true, "exponential": true, "uniform": true, "constant": true,
	}
	validVersions = map[string]bool{
		"": true, "1": true,
	}
)

// LoadWorkloadSpec reads and parses a YAML workload specification file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadWorkloadSpec(path string) (*WorkloadSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	var spec WorkloadSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	if spec.Version == "" {
		logrus.Warnf("workload spec %s has no version; assuming \"1\"", path)
		spec.Version = "1"
	}
	return &spec, nil
}

// Validate checks every thread and class of the workload.
func (s *WorkloadSpec) Validate() error {
	if !validVersions[s.Version] {
		return fmt.Errorf("unsupported workload version %q", s.Version)
	}
	if len(s.Threads) == 0 && len(s.Classes) == 0 {
		return fmt.Errorf("at least one thread or class required")
	}
	for i := range s.Threads {
		if err := validateThread(&s.Threads[i], i); err != nil {
			return err
		}
	}
	names := make(map[string]bool, len(s.Classes))
	for i := range s.Classes {
		if err := validateClass(&s.Classes[i], i); err != nil {
			return err
		}
		name := s.Classes[i].displayName()
		if names[name] {
			return fmt.Errorf("class[%d]: duplicate class name %q", i, name)
		}
		names[name] = true
	}
	return nil
}

// displayName is the class name used for thread names and its random stream.
func (c *ClassSpec) displayName() string {
	if c.Name == "" {
		return "class"
	}
	return c.Name
}

func validateThread(t *ThreadSpec, idx int) error {
	prefix := fmt.Sprintf("thread[%d]", idx)
	if t.Priority < 0 {
		return fmt.Errorf("%s: priority must be non-negative, got %d", prefix, t.Priority)
	}
	if t.Quantum < 0 {
		return fmt.Errorf("%s: quantum must be non-negative, got %d", prefix, t.Quantum)
	}
	if t.Arrival < 0 {
		return fmt.Errorf("%s: arrival must be non-negative, got %d", prefix, t.Arrival)
	}
	prog, err := toProgram(t.Program)
	if err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if err := prog.Validate(); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}

func validateClass(c *ClassSpec, idx int) error {
	prefix := fmt.Sprintf("class[%d]", idx)
	if c.Count <= 0 {
		return fmt.Errorf("%s: count must be positive, got %d", prefix, c.Count)
	}
	if c.Rounds <= 0 {
		return fmt.Errorf("%s: rounds must be positive, got %d", prefix, c.Rounds)
	}
	if c.Quantum < 0 {
		return fmt.Errorf("%s: quantum must be non-negative, got %d", prefix, c.Quantum)
	}
	if !validArrivalProcesses[c.Arrival.Process] {
		return fmt.Errorf("%s: unknown arrival process %q; valid: poisson, gamma, constant", prefix, c.Arrival.Process)
	}
	if err := validateFinitePositive(prefix+".arrival.rate", c.Arrival.Rate); err != nil {
		return err
	}
	if c.Arrival.CV != nil {
		if err := validateFinitePositive(prefix+".arrival.cv", *c.Arrival.CV); err != nil {
			return err
		}
	}
	if c.Arrival.Start < 0 {
		return fmt.Errorf("%s: arrival.start must be non-negative, got %d", prefix, c.Arrival.Start)
	}
	if err := validateDistSpec(prefix+".priority", &c.Priority); err != nil {
		return err
	}
	if err := validateDistSpec(prefix+".compute", &c.Compute); err != nil {
		return err
	}
	if c.Block != nil {
		if err := validateDistSpec(prefix+".block", c.Block); err != nil {
			return err
		}
	}
	return nil
}

func validateDistSpec(prefix string, d *DistSpec) error {
	if !validDistTypes[d.Type] {
		return fmt.Errorf("%s: unknown distribution type %q; valid: gaussian, exponential, uniform, constant", prefix, d.Type)
	}
	for name, val := range d.Params {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("%s.params.%s must be a finite number, got %f", prefix, name, val)
		}
	}
	if _, err := NewSampler(*d); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}

// toProgram converts YAML instructions into a sim.Program.
func toProgram(specs []InstructionSpec) (sim.Program, error) {
	prog := make(sim.Program, 0, len(specs))
	for i, in := range specs {
		op, err := sim.ParseOpCode(in.Op)
		if err != nil {
			return nil, fmt.Errorf("program[%d]: %w", i, err)
		}
		prog = append(prog, sim.Instruction{Op: op, Arg: in.Arg})
	}
	return prog, nil
}
