// Wires the scheduler to the simulated machine: thread creation, the idle
// loop, and the Yield/Sleep/Finish/Halt entry points threads call into.

package sim

import (
	"fmt"
	"strings"

	"github.com/kernel-sim/kernel-sim/sim/trace"
	"github.com/sirupsen/logrus"
)

// DefaultUserPages is the address-space size given to user threads.
const DefaultUserPages = 8

// Kernel owns all scheduler-visible state for one simulated machine.
//
// The goroutine that calls Run is the kernel's idle thread. Each forked thread
// runs on its own goroutine, but only one goroutine is ever unparked, so none
// of this state needs locking.
type Kernel struct {
	Config    KernelConfig
	Stats     *Stats
	Interrupt *Interrupt
	Machine   *Machine
	Scheduler *Scheduler
	Threads   *ThreadTable
	Timer     *Timer
	Metrics   *Metrics
	Trace     *trace.SimulationTrace
	RNG       *RandStreams

	currentThread *Thread
	idle          *Thread
	switcher      Switcher

	halted  bool
	started bool

	readyAtHalt string
}

// NewKernel boots a kernel with interrupts disabled. The calling context
// becomes the idle thread (ID 0), which is running but never queued.
func NewKernel(cfg KernelConfig) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kernel config: %w", err)
	}
	level := trace.TraceLevel(cfg.TraceLevel)
	if level == "" {
		level = trace.TraceLevelNone
	}
	k := &Kernel{
		Config:   cfg,
		Stats:    &Stats{},
		Machine:  &Machine{},
		Threads:  NewThreadTable(),
		Metrics:  NewMetrics(),
		Trace:    trace.NewSimulationTrace(trace.TraceConfig{Level: level}),
		RNG:      NewRandStreams(cfg.Seed),
		switcher: goroutineSwitcher{},
	}
	k.Interrupt = newInterrupt(k)
	k.Scheduler = newScheduler(k)
	k.Timer = newTimer(k, cfg.RandomSlice)

	k.idle = k.Threads.allocate("main", DefaultPriority)
	k.idle.stack = nil
	k.idle.setStatus(Running)
	k.currentThread = k.idle
	return k, nil
}

// CurrentThread returns the thread holding the CPU.
func (k *Kernel) CurrentThread() *Thread {
	return k.currentThread
}

// IdleThread returns the bootstrap thread that runs when nothing is ready.
func (k *Kernel) IdleThread() *Thread {
	return k.idle
}

// Now returns the simulated clock.
func (k *Kernel) Now() int64 {
	return k.Stats.TotalTicks
}

// Halted reports whether the machine has stopped.
func (k *Kernel) Halted() bool {
	return k.halted
}

// ReadyListAtHalt returns the priority queue as Scheduler.Print wrote it
// when the machine halted, before Shutdown emptied the queues. Empty until
// Run returns.
func (k *Kernel) ReadyListAtHalt() string {
	return k.readyAtHalt
}

// ThreadOptions describes a thread to fork.
type ThreadOptions struct {
	Name     string
	Priority int
	Quantum  int64 // 0 uses the configured time slice
	User     bool  // give the thread an address space and user registers
	Program  Program
}

// Fork creates a thread and puts it on the ready queue its priority selects.
// The thread starts executing its program the first time it is dispatched.
func (k *Kernel) Fork(opts ThreadOptions) *Thread {
	if opts.Priority < 0 {
		panic(fmt.Sprintf("Kernel.Fork: negative priority %d for %q", opts.Priority, opts.Name))
	}
	t := k.Threads.allocate(opts.Name, opts.Priority)
	if t.Name == "" {
		t.Name = fmt.Sprintf("thread-%d", t.ID)
	}
	t.Quantum = opts.Quantum
	t.program = opts.Program
	t.createdAt = k.Now()
	if opts.User {
		t.Space = NewPagedSpace(k.Machine, DefaultUserPages, int(t.ID)*DefaultUserPages)
		t.userRegisters[StackReg] = DefaultUserPages*128 - 16
	}
	logrus.Debugf("[tick %07d] Forking thread %d (%s) priority %d", k.Now(), t.ID, t.Name, t.Priority)

	go k.threadRoot(t)

	old := k.Interrupt.SetLevel(IntOff)
	k.Scheduler.ReadyToRun(t)
	k.Interrupt.SetLevel(old)
	return t
}

// ForkAt forks a thread when the clock reaches tick. A tick at or before now
// forks immediately.
func (k *Kernel) ForkAt(opts ThreadOptions, tick int64) {
	if tick <= k.Now() {
		k.Fork(opts)
		return
	}
	old := k.Interrupt.SetLevel(IntOff)
	k.Interrupt.Schedule(&arrival{kernel: k, opts: opts}, tick-k.Now(), ArrivalInt)
	k.Interrupt.SetLevel(old)
}

// arrival forks a thread from an interrupt handler.
type arrival struct {
	kernel *Kernel
	opts   ThreadOptions
}

func (a *arrival) OnEvent() {
	a.kernel.Fork(a.opts)
}

// threadRoot is the body of every forked thread's goroutine.
func (k *Kernel) threadRoot(t *Thread) {
	t.park()
	k.threadBegin(t)
	for t.pc < len(t.program) {
		in := t.program[t.pc]
		t.pc++
		k.exceptionHandler(t, in)
	}
	k.Finish()
}

// threadBegin runs on a thread's first dispatch. It finishes what Run does
// for a resuming thread: reclaim any finished predecessor and load user
// state. Then it enables interrupts.
func (k *Kernel) threadBegin(t *Thread) {
	if t != k.currentThread {
		panic(fmt.Sprintf("threadBegin: thread %d started while %d holds the CPU", t.ID, k.currentThread.ID))
	}
	k.Scheduler.CheckToBeDestroyed()
	if t.Space != nil {
		t.RestoreUserState(k.Machine)
		t.Space.RestoreState()
	}
	k.Interrupt.Enable()
}

// Run starts the timer and runs the idle loop until the machine halts, runs
// out of work, or passes the horizon. Every thread left is then destroyed.
func (k *Kernel) Run() Stats {
	if k.started {
		panic("Kernel.Run: already started")
	}
	if k.currentThread != k.idle {
		panic("Kernel.Run: must be called from the idle thread")
	}
	k.started = true
	k.Interrupt.SetLevel(IntOff)
	k.Timer.Start()

	k.idleLoop()

	logrus.Infof("[tick %07d] Machine halting!", k.Now())
	var sb strings.Builder
	k.Scheduler.Print(&sb)
	k.readyAtHalt = sb.String()
	logrus.Infof("[tick %07d] Ready queues at halt: %s", k.Now(), k.Scheduler.Dump())
	k.Shutdown()
	return *k.Stats
}

// idleLoop dispatches ready threads and, when none is ready, advances the
// clock to the next pending interrupt.
func (k *Kernel) idleLoop() {
	for !k.halted {
		if k.pastHorizon() {
			k.halted = true
			break
		}
		if next := k.Scheduler.FindNextToRun(); next != nil {
			k.idle.setStatus(Blocked)
			k.Scheduler.Run(next, false)
			continue
		}
		if !k.Interrupt.Idle() {
			logrus.Debugf("[tick %07d] No threads ready or runnable, and no pending interrupts", k.Now())
			k.halted = true
		}
	}
}

// Yield gives up the CPU if another thread is ready. The current thread is
// queued first, so aging and queue precedence may pick it again.
func (k *Kernel) Yield() {
	old := k.Interrupt.SetLevel(IntOff)
	cur := k.currentThread
	if cur != k.idle {
		logrus.Debugf("[tick %07d] Yielding thread: %s", k.Now(), cur.Name)
		k.Scheduler.ReadyToRun(cur)
		next := k.Scheduler.FindNextToRun()
		k.Scheduler.Run(next, false)
	}
	k.Interrupt.SetLevel(old)
}

// Sleep relinquishes the CPU because the current thread has blocked or
// finished. With nothing ready the CPU goes to the idle thread, which
// waits for an interrupt. Interrupts must be off.
func (k *Kernel) Sleep(finishing bool) {
	if k.Interrupt.Level() != IntOff {
		panic("Kernel.Sleep: called with interrupts enabled")
	}
	cur := k.currentThread
	if cur == k.idle {
		panic("Kernel.Sleep: the idle thread cannot sleep")
	}
	logrus.Debugf("[tick %07d] Sleeping thread: %s", k.Now(), cur.Name)
	if !finishing {
		cur.setStatus(Blocked)
	}
	next := k.Scheduler.FindNextToRun()
	if next == nil {
		next = k.idle
	}
	k.Scheduler.Run(next, finishing)
}

// Finish ends the current thread. It does not return; the thread is
// destroyed by whichever thread runs next.
func (k *Kernel) Finish() {
	k.Interrupt.SetLevel(IntOff)
	cur := k.currentThread
	logrus.Debugf("[tick %07d] Finishing thread: %s", k.Now(), cur.Name)
	cur.setStatus(Finished)
	k.Sleep(true)
}

// Halt stops the machine. Called from a thread, it hands the CPU straight to
// the idle thread, which then shuts the kernel down.
func (k *Kernel) Halt() {
	k.Interrupt.SetLevel(IntOff)
	k.halted = true
	cur := k.currentThread
	if cur == k.idle {
		return
	}
	logrus.Debugf("[tick %07d] Halt requested by thread: %s", k.Now(), cur.Name)
	cur.setStatus(Blocked)
	k.Scheduler.Run(k.idle, false)
}

func (k *Kernel) pastHorizon() bool {
	return k.Stats.TotalTicks > k.Config.Horizon
}

// Shutdown destroys every remaining thread except the idle thread.
func (k *Kernel) Shutdown() {
	k.Interrupt.SetLevel(IntOff)
	k.Scheduler.CheckToBeDestroyed()
	for _, id := range k.Threads.IDs() {
		t := k.Threads.Get(id)
		if t == k.idle || t == k.currentThread {
			continue
		}
		k.Scheduler.remove(id)
		k.destroyThread(t, "shutdown")
	}
}

// destroyThread reclaims t. A parked goroutine is released and exits.
func (k *Kernel) destroyThread(t *Thread, reason string) {
	if t == k.currentThread {
		panic(fmt.Sprintf("destroyThread: thread %d is still running", t.ID))
	}
	if t == k.idle {
		panic("destroyThread: the idle thread is never destroyed")
	}
	if t.destroyed {
		panic(fmt.Sprintf("destroyThread: thread %d destroyed twice", t.ID))
	}
	now := k.Now()
	logrus.Infof("[tick %07d] Thread %d\tProcessTerminated (%s)", now, t.ID, reason)

	t.destroyed = true
	t.stack = nil
	k.Metrics.recordThread(t, now)
	k.Trace.RecordDestroy(trace.DestroyRecord{Tick: now, ThreadID: int(t.ID), Reason: reason})
	k.Threads.Remove(t.ID)
	close(t.exit)
}
