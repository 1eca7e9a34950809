package sim

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func propKernel() *Kernel {
	k, err := NewKernel(DefaultKernelConfig())
	if err != nil {
		panic(err)
	}
	k.switcher = &recordingSwitcher{kernel: k}
	return k
}

func classRank(c QueueClass) int {
	switch c {
	case SJFClass:
		return 0
	case RoundRobinClass:
		return 1
	default:
		return 2
	}
}

func Test_ReadyThreadsLandInTheirBand(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("every ready thread is in exactly the queue its priority selects", prop.ForAll(
		func(priorities []int) bool {
			k := propKernel()
			threads := make([]*Thread, 0, len(priorities))
			for _, p := range priorities {
				threads = append(threads, addReady(k, "t", p, 0))
			}
			for _, th := range threads {
				found := 0
				for _, q := range k.Scheduler.queues() {
					if q.Contains(th.ID) {
						found++
						if q.Class() != ClassForPriority(th.Priority) {
							return false
						}
					}
				}
				if found != 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 200)),
	))

	properties.TestingRun(t)
}

func Test_DrainOrderFollowsQueuePrecedence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("SJF before RR before priority, each queue in its own order", prop.ForAll(
		func(priorities []int, bursts []int) bool {
			k := propKernel()
			for i, p := range priorities {
				burst := 0.0
				if i < len(bursts) {
					burst = float64(bursts[i])
				}
				addReady(k, "t", p, burst)
			}

			var prev *Thread
			for _, id := range drain(k) {
				th := k.Threads.MustGet(id)
				if prev != nil {
					pc, tc := ClassForPriority(prev.Priority), ClassForPriority(th.Priority)
					if classRank(pc) > classRank(tc) {
						return false
					}
					if pc == tc {
						switch tc {
						case SJFClass:
							if prev.BurstTime > th.BurstTime || (prev.BurstTime == th.BurstTime && prev.ID > th.ID) {
								return false
							}
						case RoundRobinClass:
							if prev.ID > th.ID {
								return false
							}
						case PriorityClass:
							if prev.Priority < th.Priority || (prev.Priority == th.Priority && prev.ID > th.ID) {
								return false
							}
						}
					}
				}
				prev = th
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 200)),
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}

func Test_AgingBoostsEachStaleThreadOnce(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("one pass adds exactly one increment to every thread past the threshold", prop.ForAll(
		func(priorities []int, elapsed int64) bool {
			k := propKernel()
			before := make(map[ThreadID]int)
			for _, p := range priorities {
				th := addReady(k, "t", p, 0)
				before[th.ID] = p
			}
			k.Stats.TotalTicks = elapsed
			k.Scheduler.age()

			for id, p := range before {
				th := k.Threads.MustGet(id)
				want := p
				if elapsed >= AgingThreshold {
					want = p + AgingIncrement
				}
				if th.Priority != want {
					return false
				}
				if class, ok := k.Scheduler.QueueOf(id); !ok || class != ClassForPriority(th.Priority) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 150)),
		gen.Int64Range(0, 3*AgingThreshold),
	))

	properties.TestingRun(t)
}
