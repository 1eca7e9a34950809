// Defines the Thread struct that models one schedulable unit of execution.
// Tracks the scheduling metadata consumed by the ready queues, the aging engine
// and the dispatcher, plus the per-thread machine state saved across switches.

package sim

import (
	"fmt"
	"runtime"
)

// ThreadID identifies a thread for its whole lifetime. IDs are never reused.
type ThreadID int

// ThreadStatus represents the lifecycle state of a thread.
type ThreadStatus int

const (
	JustCreated ThreadStatus = iota
	Running
	Ready
	Blocked
	Finished
)

func (s ThreadStatus) String() string {
	switch s {
	case JustCreated:
		return "JUST_CREATED"
	case Running:
		return "RUNNING"
	case Ready:
		return "READY"
	case Blocked:
		return "BLOCKED"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

const (
	// StackSize is the number of words in a simulated thread stack.
	StackSize = 1024
	// StackFencepost is written at the low end of every stack; losing it means overflow.
	StackFencepost uint64 = 0xdedbeef
	// DefaultPriority is used by ThreadOptions with no explicit priority.
	DefaultPriority = 0
)

// Thread models a single thread's scheduling state.
type Thread struct {
	ID   ThreadID
	Name string

	Priority       int     // queue band selector; raised by aging
	ReadyTime      int64   // tick of the most recent enqueue (or aging boost)
	BurstTime      float64 // exponentially smoothed CPU burst estimate
	StartBurstTime int64   // tick the current burst began
	Quantum        int64   // timer quantum while this thread runs (0 = TimerTicks)

	// Space is the user address space; nil for kernel-only threads.
	Space AddressSpace

	status        ThreadStatus
	userRegisters [NumTotalRegs]int
	stack         []uint64 // nil for the bootstrap thread, which runs on the host stack

	program Program
	pc      int // next instruction in program

	createdAt  int64
	readySince int64 // tick of the last ReadyToRun; unlike ReadyTime, aging leaves it alone
	waited     int64 // total ticks spent in ready queues
	destroyed  bool

	resume chan struct{}
	exit   chan struct{}
}

func newThread(id ThreadID, name string, priority int) *Thread {
	t := &Thread{
		ID:       id,
		Name:     name,
		Priority: priority,
		status:   JustCreated,
		stack:    make([]uint64, StackSize),
		resume:   make(chan struct{}, 1),
		exit:     make(chan struct{}),
	}
	t.stack[0] = StackFencepost
	t.userRegisters[NextPCReg] = 4
	return t
}

// Status returns the current lifecycle state.
func (t *Thread) Status() ThreadStatus {
	return t.status
}

func (t *Thread) setStatus(s ThreadStatus) {
	t.status = s
}

// Destroyed reports whether the scheduler has reclaimed this thread.
func (t *Thread) Destroyed() bool {
	return t.destroyed
}

// WaitingTicks returns the total number of ticks this thread spent in ready queues.
func (t *Thread) WaitingTicks() int64 {
	return t.waited
}

// UserRegister returns the saved copy of user register n.
func (t *Thread) UserRegister(n int) int {
	return t.userRegisters[n]
}

// SaveUserState copies the machine's user registers into the thread.
func (t *Thread) SaveUserState(m *Machine) {
	t.userRegisters = m.Registers
}

// RestoreUserState loads the thread's user registers back into the machine.
func (t *Thread) RestoreUserState(m *Machine) {
	m.Registers = t.userRegisters
}

// CheckOverflow panics if the stack fencepost has been overwritten.
func (t *Thread) CheckOverflow() {
	if t.stack == nil {
		return
	}
	if t.stack[0] != StackFencepost {
		panic(fmt.Sprintf("CheckOverflow: thread %d (%s) overflowed its stack", t.ID, t.Name))
	}
}

// park blocks the thread's goroutine until it is switched to again.
// A thread destroyed while parked never resumes: its goroutine exits here.
func (t *Thread) park() {
	select {
	case <-t.resume:
	case <-t.exit:
		runtime.Goexit()
	}
}

func (t *Thread) String() string {
	return fmt.Sprintf("Thread: (ID: %d, Name: %s, Status: %s, Priority: %d, BurstTime: %.2f)",
		t.ID, t.Name, t.status, t.Priority, t.BurstTime)
}
