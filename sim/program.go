// Defines the instruction set threads execute and the kernel's handler for it.

package sim

import (
	"fmt"
	"strings"
)

// OpCode is a simulated system call or compute step.
type OpCode int

const (
	OpCompute     OpCode = iota // burn Arg ticks of CPU
	OpBlock                     // sleep for Arg ticks, then become ready
	OpYield                     // give up the CPU voluntarily
	OpSetPriority               // set own priority to Arg
	OpHalt                      // stop the machine
	OpExit                      // finish the thread
)

var opNames = map[OpCode]string{
	OpCompute:     "compute",
	OpBlock:       "block",
	OpYield:       "yield",
	OpSetPriority: "set_priority",
	OpHalt:        "halt",
	OpExit:        "exit",
}

func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// ParseOpCode maps a name such as "compute" to its OpCode. Case-insensitive.
func ParseOpCode(name string) (OpCode, error) {
	lower := strings.ToLower(name)
	for op, n := range opNames {
		if n == lower {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown op %q", name)
}

// Instruction is one step of a Program.
type Instruction struct {
	Op  OpCode
	Arg int64
}

func (in Instruction) String() string {
	return fmt.Sprintf("%s(%d)", in.Op, in.Arg)
}

// Program is the instruction list a thread runs. A thread that runs off the
// end of its program finishes as if it had executed Exit.
type Program []Instruction

func Compute(ticks int64) Instruction { return Instruction{Op: OpCompute, Arg: ticks} }
func Block(ticks int64) Instruction { return Instruction{Op: OpBlock, Arg: ticks} }
func Yield() Instruction { return Instruction{Op: OpYield} }
func SetPriority(p int) Instruction { return Instruction{Op: OpSetPriority, Arg: int64(p)} }
func Halt() Instruction { return Instruction{Op: OpHalt} }
func Exit() Instruction { return Instruction{Op: OpExit} }

// Validate rejects arguments the handler cannot execute.
func (p Program) Validate() error {
	for i, in := range p {
		switch in.Op {
		case OpCompute:
			if in.Arg < 0 {
				return fmt.Errorf("instruction %d: compute ticks must be non-negative, got %d", i, in.Arg)
			}
		case OpBlock:
			if in.Arg <= 0 {
				return fmt.Errorf("instruction %d: block ticks must be positive, got %d", i, in.Arg)
			}
		case OpSetPriority:
			if in.Arg < 0 {
				return fmt.Errorf("instruction %d: priority must be non-negative, got %d", i, in.Arg)
			}
		case OpYield, OpHalt, OpExit:
		default:
			return fmt.Errorf("instruction %d: unknown op %d", i, int(in.Op))
		}
	}
	return nil
}

// resultReg accumulates the user ticks a user thread has computed.
const resultReg = 2

// exceptionHandler executes one instruction on behalf of the current thread.
// It is entered with interrupts on.
func (k *Kernel) exceptionHandler(t *Thread, in Instruction) {
	switch in.Op {
	case OpCompute:
		k.compute(t, in.Arg)
	case OpBlock:
		old := k.Interrupt.SetLevel(IntOff)
		k.Interrupt.Schedule(&wakeup{kernel: k, thread: t}, in.Arg, DeviceInt)
		k.Sleep(false)
		k.Interrupt.SetLevel(old)
	case OpYield:
		k.Yield()
	case OpSetPriority:
		old := k.Interrupt.SetLevel(IntOff)
		t.Priority = int(in.Arg)
		k.Interrupt.SetLevel(old)
	case OpHalt:
		k.Halt()
	case OpExit:
		k.Finish()
	default:
		panic(fmt.Sprintf("exceptionHandler: thread %d executed unknown op %d", t.ID, int(in.Op)))
	}
}

// compute advances the clock one user tick at a time so the timer can preempt
// mid-burst. Threads with an address space also retire one instruction per tick.
func (k *Kernel) compute(t *Thread, ticks int64) {
	user := t.Space != nil
	k.Interrupt.SetStatus(UserMode)
	for n := int64(0); n < ticks; n++ {
		if user {
			k.Machine.advancePC()
			k.Machine.WriteRegister(resultReg, k.Machine.ReadRegister(resultReg)+1)
		}
		k.Interrupt.OneTick()
	}
	k.Interrupt.SetStatus(SystemMode)
}

// wakeup readies a blocked thread when its device interrupt fires.
type wakeup struct {
	kernel *Kernel
	thread *Thread
}

func (w *wakeup) OnEvent() {
	if w.thread.destroyed {
		return
	}
	w.kernel.Scheduler.ReadyToRun(w.thread)
}
