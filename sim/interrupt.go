// Emulates the interrupt hardware: the enable/disable level, the simulated
// clock, and the queue of device interrupts due at future ticks.

package sim

import (
	"container/heap"
	"fmt"

	"github.com/sirupsen/logrus"
)

// IntStatus is the interrupt enable level.
type IntStatus int

const (
	IntOff IntStatus = iota
	IntOn
)

func (s IntStatus) String() string {
	if s == IntOn {
		return "on"
	}
	return "off"
}

// MachineStatus tells what the CPU is doing, for tick accounting.
type MachineStatus int

const (
	IdleMode MachineStatus = iota
	SystemMode
	UserMode
)

// IntType names the device that raised an interrupt.
type IntType int

const (
	TimerInt IntType = iota
	DeviceInt
	ArrivalInt
)

func (t IntType) String() string {
	switch t {
	case TimerInt:
		return "timer"
	case DeviceInt:
		return "device"
	case ArrivalInt:
		return "arrival"
	default:
		return "unknown"
	}
}

// Simulated time costs.
const (
	UserTick   = 1   // one user instruction
	SystemTick = 10  // re-enabling interrupts
	TimerTicks = 100 // default time slice
)

// Callback is the single capability an interrupt source exposes.
// OnEvent runs with interrupts disabled and must not block.
type Callback interface {
	OnEvent()
}

// PendingInterrupt is a device interrupt due at a future tick.
type PendingInterrupt struct {
	callback Callback
	when     int64
	kind     IntType
	seq      uint64
}

// pendingQueue implements heap.Interface and orders interrupts by due tick,
// then by scheduling order.
type pendingQueue []*PendingInterrupt

func (pq pendingQueue) Len() int { return len(pq) }
func (pq pendingQueue) Less(i, j int) bool {
	if pq[i].when != pq[j].when {
		return pq[i].when < pq[j].when
	}
	return pq[i].seq < pq[j].seq
}
func (pq pendingQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *pendingQueue) Push(x any) {
	*pq = append(*pq, x.(*PendingInterrupt))
}

func (pq *pendingQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

// Interrupt holds the interrupt level and the pending interrupt queue.
type Interrupt struct {
	kernel        *Kernel
	level         IntStatus
	status        MachineStatus
	pending       pendingQueue
	seq           uint64
	inHandler     bool
	yieldOnReturn bool
}

func newInterrupt(k *Kernel) *Interrupt {
	return &Interrupt{
		kernel:  k,
		level:   IntOff,
		status:  SystemMode,
		pending: make(pendingQueue, 0),
	}
}

// Level returns the current interrupt level.
func (i *Interrupt) Level() IntStatus {
	return i.level
}

// SetLevel changes the interrupt level and returns the previous one.
// Turning interrupts back on advances the clock by one tick, which may
// deliver pending interrupts.
func (i *Interrupt) SetLevel(now IntStatus) IntStatus {
	if now == IntOn && i.inHandler {
		panic("Interrupt.SetLevel: interrupt handlers must not re-enable interrupts")
	}
	old := i.level
	i.level = now
	if now == IntOn && old == IntOff {
		i.OneTick()
	}
	return old
}

// Enable turns interrupts on.
func (i *Interrupt) Enable() {
	i.SetLevel(IntOn)
}

// Status returns the machine status.
func (i *Interrupt) Status() MachineStatus {
	return i.status
}

// SetStatus changes the machine status.
func (i *Interrupt) SetStatus(s MachineStatus) {
	i.status = s
}

// YieldOnReturn asks for a context switch once the current handler returns.
// Only valid from inside a handler.
func (i *Interrupt) YieldOnReturn() {
	if !i.inHandler {
		panic("Interrupt.YieldOnReturn: called outside an interrupt handler")
	}
	i.yieldOnReturn = true
}

// Schedule arranges for cb to run fromNow ticks in the future.
func (i *Interrupt) Schedule(cb Callback, fromNow int64, kind IntType) {
	if fromNow <= 0 {
		panic(fmt.Sprintf("Interrupt.Schedule: delay must be positive, got %d", fromNow))
	}
	when := i.kernel.Stats.TotalTicks + fromNow
	logrus.Debugf("[tick %07d] Scheduling %s interrupt at %d", i.kernel.Stats.TotalTicks, kind, when)
	heap.Push(&i.pending, &PendingInterrupt{callback: cb, when: when, kind: kind, seq: i.seq})
	i.seq++
}

// AnyFutureInterruptsPending reports whether any interrupt is queued.
func (i *Interrupt) AnyFutureInterruptsPending() bool {
	return len(i.pending) > 0
}

// PendingCount returns the number of queued interrupts.
func (i *Interrupt) PendingCount() int {
	return len(i.pending)
}

// OneTick advances the clock by one tick of the current mode, delivers every
// interrupt now due, and performs a requested yield.
func (i *Interrupt) OneTick() {
	k := i.kernel
	oldStatus := i.status

	if i.status == SystemMode {
		k.Stats.TotalTicks += SystemTick
		k.Stats.SystemTicks += SystemTick
	} else {
		k.Stats.TotalTicks += UserTick
		k.Stats.UserTicks += UserTick
	}

	i.level = IntOff
	for i.checkIfDue(false) {
	}
	i.level = IntOn

	if k.pastHorizon() {
		k.Halt()
		return
	}

	if i.yieldOnReturn {
		i.yieldOnReturn = false
		i.status = SystemMode
		k.Yield()
		i.status = oldStatus
	}
}

// Idle advances the clock to the next pending interrupt and delivers
// everything due at that tick. Returns false if nothing is pending: the
// machine has no way to make progress and should halt.
func (i *Interrupt) Idle() bool {
	i.status = IdleMode
	if i.checkIfDue(true) {
		for i.checkIfDue(false) {
		}
		i.yieldOnReturn = false
		i.status = SystemMode
		return true
	}
	i.status = SystemMode
	return false
}

// checkIfDue delivers the earliest pending interrupt if it is due. With
// advanceClock set, an idle machine jumps straight to that interrupt.
func (i *Interrupt) checkIfDue(advanceClock bool) bool {
	if len(i.pending) == 0 {
		return false
	}
	if i.level != IntOff {
		panic("Interrupt.checkIfDue: interrupts must be off while delivering")
	}
	k := i.kernel
	next := i.pending[0]
	if next.when > k.Stats.TotalTicks {
		if !advanceClock {
			return false
		}
		k.Stats.IdleTicks += next.when - k.Stats.TotalTicks
		k.Stats.TotalTicks = next.when
	}
	heap.Pop(&i.pending)

	logrus.Debugf("[tick %07d] Invoking %s interrupt", k.Stats.TotalTicks, next.kind)
	i.inHandler = true
	next.callback.OnEvent()
	i.inHandler = false
	return true
}
