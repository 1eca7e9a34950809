// Emulates the hardware timer that requests a reschedule once per time slice.

package sim

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// Timer raises a TimerInt every quantum of the running thread, or after a
// random delay in [1, 2*slice] when randomized.
type Timer struct {
	kernel    *Kernel
	randomize bool
	rng       *rand.Rand
	disabled  bool
	fired     int
}

func newTimer(k *Kernel, randomize bool) *Timer {
	return &Timer{
		kernel:    k,
		randomize: randomize,
		rng:       k.RNG.Stream(StreamTimer),
	}
}

// Start schedules the first timer interrupt.
func (t *Timer) Start() {
	t.setInterrupt()
}

// Disable stops future timer interrupts once the current one is handled.
func (t *Timer) Disable() {
	t.disabled = true
}

// Disabled reports whether the timer has been turned off.
func (t *Timer) Disabled() bool {
	return t.disabled
}

// Fired returns the number of timer interrupts delivered so far.
func (t *Timer) Fired() int {
	return t.fired
}

// OnEvent handles the timer interrupt, then arms the next one. The handler
// runs first so it can disable the timer.
func (t *Timer) OnEvent() {
	t.fired++
	t.alarm()
	t.setInterrupt()
}

// alarm preempts the running thread. An idle machine has nothing to preempt;
// if nothing else is pending and nothing is ready it never will, so the timer
// stops to let the kernel halt.
func (t *Timer) alarm() {
	intr := t.kernel.Interrupt
	if intr.Status() == IdleMode {
		if !intr.AnyFutureInterruptsPending() && !t.kernel.Scheduler.HasReady() {
			logrus.Debugf("[tick %07d] Timer disabled: machine idle with nothing pending", t.kernel.Stats.TotalTicks)
			t.Disable()
		}
		return
	}
	intr.YieldOnReturn()
}

// Delay returns the ticks until the next timer interrupt.
func (t *Timer) Delay() int64 {
	slice := t.kernel.Config.TimerTicks
	if slice <= 0 {
		slice = TimerTicks
	}
	if t.randomize {
		return 1 + t.rng.Int63n(slice*2)
	}
	if cur := t.kernel.currentThread; cur != nil && cur.Quantum > 0 {
		return cur.Quantum
	}
	return slice
}

func (t *Timer) setInterrupt() {
	if t.disabled {
		return
	}
	t.kernel.Interrupt.Schedule(t, t.Delay(), TimerInt)
}
