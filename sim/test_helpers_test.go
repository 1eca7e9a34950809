package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingSwitcher stands in for goroutine switching in unit tests: Switch
// returns at once, as if old had been resumed immediately.
type recordingSwitcher struct {
	kernel   *Kernel
	switches [][2]ThreadID
	// pending is the thread awaiting destruction at each switch.
	pending []*Thread
}

func (r *recordingSwitcher) Switch(old, next *Thread) {
	r.switches = append(r.switches, [2]ThreadID{old.ID, next.ID})
	r.pending = append(r.pending, r.kernel.Scheduler.PendingDestruction())
}

// newTestKernel builds a kernel whose context switches are recorded rather
// than performed. Interrupts are off, as after boot.
func newTestKernel(t *testing.T, mutate ...func(*KernelConfig)) (*Kernel, *recordingSwitcher) {
	t.Helper()
	cfg := DefaultKernelConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	k, err := NewKernel(cfg)
	require.NoError(t, err)
	sw := &recordingSwitcher{kernel: k}
	k.switcher = sw
	return k, sw
}

// newIdleThread registers a thread with no goroutine behind it.
func newIdleThread(k *Kernel, name string, priority int) *Thread {
	t := k.Threads.allocate(name, priority)
	t.createdAt = k.Now()
	return t
}

// addReady registers a thread with the given burst estimate and readies it.
func addReady(k *Kernel, name string, priority int, burst float64) *Thread {
	t := newIdleThread(k, name, priority)
	t.BurstTime = burst
	k.Scheduler.ReadyToRun(t)
	return t
}

// drain removes every ready thread in dispatch order.
func drain(k *Kernel) []ThreadID {
	var ids []ThreadID
	for next := k.Scheduler.FindNextToRun(); next != nil; next = k.Scheduler.FindNextToRun() {
		ids = append(ids, next.ID)
	}
	return ids
}

// newRealKernel builds a kernel that switches goroutines for real.
func newRealKernel(t *testing.T, mutate ...func(*KernelConfig)) *Kernel {
	t.Helper()
	cfg := DefaultKernelConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	k, err := NewKernel(cfg)
	require.NoError(t, err)
	return k
}
