package sim

import (
	"fmt"
	"io"
	"strings"

	"github.com/kernel-sim/kernel-sim/sim/trace"
	"github.com/sirupsen/logrus"
)

// Scheduler chooses the next thread to run and dispatches the CPU to it.
//
// Every method assumes interrupts are already disabled. On a single simulated
// CPU that is what gives mutual exclusion: no lock is taken here, since
// waiting for a lock would itself need a scheduling decision.
//
// Ready threads live in three queues. FindNextToRun serves them in the order
// SJF, then round-robin, then priority, even though the priority band holds
// the numerically lowest priorities.
type Scheduler struct {
	kernel *Kernel

	readyList    *ReadyQueue // priority class, [0, 60)
	readyRRList  *ReadyQueue // round-robin class, [60, 100)
	readySJFList *ReadyQueue // SJF class, [100, ∞)

	// toBeDestroyed is a finished thread whose stack may still be in use.
	// It is reclaimed by the next thread to resume from a switch.
	toBeDestroyed *Thread

	agingThreshold int64
	agingIncrement int
}

func newScheduler(k *Kernel) *Scheduler {
	return &Scheduler{
		kernel:         k,
		readyList:      NewReadyQueue(PriorityClass),
		readyRRList:    NewReadyQueue(RoundRobinClass),
		readySJFList:   NewReadyQueue(SJFClass),
		agingThreshold: k.Config.AgingThreshold,
		agingIncrement: k.Config.AgingIncrement,
	}
}

// Queue returns the ready queue for class.
func (s *Scheduler) Queue(class QueueClass) *ReadyQueue {
	switch class {
	case PriorityClass:
		return s.readyList
	case RoundRobinClass:
		return s.readyRRList
	case SJFClass:
		return s.readySJFList
	default:
		panic(fmt.Sprintf("Scheduler.Queue: unknown queue class %d", class))
	}
}

// queues returns the ready queues in the order aging scans them.
func (s *Scheduler) queues() []*ReadyQueue {
	return []*ReadyQueue{s.readyList, s.readyRRList, s.readySJFList}
}

// QueueOf returns the class of the queue holding id, if any.
func (s *Scheduler) QueueOf(id ThreadID) (QueueClass, bool) {
	for _, q := range s.queues() {
		if q.Contains(id) {
			return q.Class(), true
		}
	}
	return 0, false
}

// PendingDestruction returns the finished thread awaiting reclamation, or nil.
func (s *Scheduler) PendingDestruction() *Thread {
	return s.toBeDestroyed
}

func (s *Scheduler) assertInterruptsOff(op string) {
	if s.kernel.Interrupt.Level() != IntOff {
		panic(fmt.Sprintf("Scheduler.%s: called with interrupts enabled", op))
	}
}

func (s *Scheduler) now() int64 {
	return s.kernel.Stats.TotalTicks
}

// ReadyToRun marks t ready and puts it on the queue its priority selects.
func (s *Scheduler) ReadyToRun(t *Thread) {
	s.assertInterruptsOff("ReadyToRun")
	if t == s.kernel.idle {
		panic("Scheduler.ReadyToRun: the idle thread is never queued")
	}
	if t.destroyed || t.status == Finished {
		panic(fmt.Sprintf("Scheduler.ReadyToRun: thread %d has finished", t.ID))
	}
	now := s.now()
	logrus.Debugf("[tick %07d] Putting thread on ready list: %s", now, t.Name)

	t.setStatus(Ready)
	t.ReadyTime = now
	t.readySince = now
	logrus.Infof("[tick %07d] Thread %d\tProcessReady", now, t.ID)

	class := s.classifyAndInsert(t)
	s.kernel.Trace.RecordReady(trace.ReadyRecord{
		Tick:     now,
		ThreadID: int(t.ID),
		Queue:    class.String(),
		Priority: t.Priority,
	})
}

// FindNextToRun ages every ready thread, then removes and returns the head of
// the first non-empty queue in SJF, RR, priority order. Returns nil when no
// thread is ready.
func (s *Scheduler) FindNextToRun() *Thread {
	s.assertInterruptsOff("FindNextToRun")
	s.age()
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.Debugf("[tick %07d] Ready queues: %s", s.now(), s.Dump())
	}

	for _, q := range []*ReadyQueue{s.readySJFList, s.readyRRList, s.readyList} {
		if id, ok := q.RemoveFront(); ok {
			return s.kernel.Threads.MustGet(id)
		}
	}
	return nil
}

// Run dispatches the CPU to next. It saves the state of the old thread and
// switches to next's goroutine; the call returns only when some later Run
// switches back to the old thread.
//
// The caller must already have moved the old thread out of RUNNING (to ready
// or blocked). With finishing set, the old thread is reclaimed once we are no
// longer running on its stack, i.e. after the next thread resumes.
func (s *Scheduler) Run(next *Thread, finishing bool) {
	k := s.kernel
	old := k.currentThread

	s.assertInterruptsOff("Run")
	if next == nil {
		panic("Scheduler.Run: next thread must not be nil")
	}

	if finishing {
		if s.toBeDestroyed != nil {
			panic(fmt.Sprintf("Scheduler.Run: thread %d finishing while thread %d awaits destruction",
				old.ID, s.toBeDestroyed.ID))
		}
		s.toBeDestroyed = old
	}

	if old.Space != nil {
		old.SaveUserState(k.Machine)
		old.Space.SaveState()
	}

	old.CheckOverflow()

	now := s.now()
	if old != k.idle {
		old.BurstTime = (float64(now-old.StartBurstTime) + old.BurstTime) / 2
		k.Metrics.BurstEstimates.Update(int64(old.BurstTime))
	}
	next.StartBurstTime = now
	if next.status == Ready {
		waited := now - next.readySince
		next.waited += waited
		k.Metrics.WaitingTicks.Update(waited)
	}

	k.currentThread = next
	next.setStatus(Running)
	logrus.Infof("[tick %07d] Thread %d\tProcessRunning", now, next.ID)
	logrus.Debugf("[tick %07d] Switching from: %s to: %s", now, old.Name, next.Name)

	k.Metrics.Dispatches.Inc(1)
	if old != next {
		k.Metrics.ContextSwitches.Inc(1)
	}
	k.Trace.RecordDispatch(trace.DispatchRecord{
		Tick:      now,
		From:      int(old.ID),
		To:        int(next.ID),
		Finishing: finishing,
		FromBurst: old.BurstTime,
	})

	k.switcher.Switch(old, next)

	// Back on old's goroutine; interrupts are still off.
	s.assertInterruptsOff("Run")
	logrus.Debugf("[tick %07d] Now in thread: %s", s.now(), old.Name)

	s.CheckToBeDestroyed()

	if old.Space != nil {
		old.RestoreUserState(k.Machine)
		old.Space.RestoreState()
	}
}

// CheckToBeDestroyed reclaims the thread that finished before the current
// one resumed. It cannot be done earlier: until the switch, the finished
// thread was still running on its own stack.
func (s *Scheduler) CheckToBeDestroyed() {
	if s.toBeDestroyed == nil {
		return
	}
	t := s.toBeDestroyed
	s.toBeDestroyed = nil
	s.kernel.destroyThread(t, "finished")
}

// HasReady reports whether any thread is waiting in a ready queue.
func (s *Scheduler) HasReady() bool {
	return !s.readyList.IsEmpty() || !s.readyRRList.IsEmpty() || !s.readySJFList.IsEmpty()
}

// remove takes id out of whichever ready queue holds it.
func (s *Scheduler) remove(id ThreadID) bool {
	for _, q := range s.queues() {
		if q.Remove(id) {
			return true
		}
	}
	return false
}

// Print writes the contents of the priority queue, head first.
func (s *Scheduler) Print(w io.Writer) {
	fmt.Fprintln(w, "Ready list contents:")
	for _, id := range s.readyList.IDs() {
		fmt.Fprintf(w, "%s, ", s.kernel.Threads.MustGet(id).Name)
	}
	fmt.Fprintln(w)
}

// Dump describes all three queues on one line, for logging.
func (s *Scheduler) Dump() string {
	parts := make([]string, 0, 3)
	for _, q := range []*ReadyQueue{s.readySJFList, s.readyRRList, s.readyList} {
		parts = append(parts, q.String())
	}
	return strings.Join(parts, " ")
}
