package workload

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/kernel-sim/kernel-sim/sim"
	"github.com/sirupsen/logrus"
)

// ThreadPlan is a resolved thread: what to fork and when.
type ThreadPlan struct {
	Arrival int64
	Options sim.ThreadOptions
}

// GenerateThreads resolves a WorkloadSpec into thread plans.
// Deterministic given the same spec and seed.
// Returns plans sorted by Arrival; scripted threads precede generated ones on ties.
func GenerateThreads(spec *WorkloadSpec) ([]ThreadPlan, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload spec: %w", err)
	}

	var plans []ThreadPlan
	for i := range spec.Threads {
		ts := &spec.Threads[i]
		prog, err := toProgram(ts.Program)
		if err != nil {
			return nil, fmt.Errorf("thread %q: %w", ts.Name, err)
		}
		plans = append(plans, ThreadPlan{
			Arrival: ts.Arrival,
			Options: sim.ThreadOptions{
				Name:     ts.Name,
				Priority: ts.Priority,
				Quantum:  ts.Quantum,
				User:     ts.User,
				Program:  prog,
			},
		})
	}

	streams := sim.NewRandStreams(spec.Seed)
	for i := range spec.Classes {
		class := &spec.Classes[i]
		// Keyed by name: reordering or adding classes leaves this one's threads unchanged.
		generated, err := generateClass(class, streams.Stream(sim.ClassStream(class.displayName())))
		if err != nil {
			return nil, fmt.Errorf("class %q: %w", class.Name, err)
		}
		plans = append(plans, generated...)
	}

	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Arrival < plans[j].Arrival
	})
	return plans, nil
}

func generateClass(class *ClassSpec, rng *rand.Rand) ([]ThreadPlan, error) {
	arrivals := NewArrivalSampler(class.Arrival)
	priority, err := NewSampler(class.Priority)
	if err != nil {
		return nil, fmt.Errorf("priority: %w", err)
	}
	compute, err := NewSampler(class.Compute)
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}
	var block Sampler
	if class.Block != nil {
		if block, err = NewSampler(*class.Block); err != nil {
			return nil, fmt.Errorf("block: %w", err)
		}
	}

	name := class.displayName()
	plans := make([]ThreadPlan, 0, class.Count)
	now := class.Arrival.Start
	for n := 0; n < class.Count; n++ {
		if n > 0 {
			now += arrivals.SampleIAT(rng)
		}
		prog := make(sim.Program, 0, 2*class.Rounds)
		for r := 0; r < class.Rounds; r++ {
			if r > 0 && block != nil {
				if ticks := block.Sample(rng); ticks > 0 {
					prog = append(prog, sim.Block(ticks))
				}
			}
			prog = append(prog, sim.Compute(compute.Sample(rng)))
		}
		plans = append(plans, ThreadPlan{
			Arrival: now,
			Options: sim.ThreadOptions{
				Name:     fmt.Sprintf("%s-%d", name, n),
				Priority: int(priority.Sample(rng)),
				Quantum:  class.Quantum,
				User:     class.User,
				Program:  prog,
			},
		})
	}
	return plans, nil
}

// Install forks every planned thread into k, at its arrival tick.
// Must be called before k.Run. Returns the number of threads planned.
func Install(k *sim.Kernel, spec *WorkloadSpec) (int, error) {
	plans, err := GenerateThreads(spec)
	if err != nil {
		return 0, err
	}
	for _, p := range plans {
		k.ForkAt(p.Options, p.Arrival)
	}
	logrus.Infof("[tick %07d] Installed %d threads from workload (seed %d)", k.Now(), len(plans), spec.Seed)
	return len(plans), nil
}
