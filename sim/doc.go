// Package sim provides the CPU-scheduling core of a small teaching kernel
// running on a simulated single-CPU machine.
//
// # Reading Guide
//
// Start with these files to understand the scheduler:
//   - thread.go: Thread control block (status, priority, burst estimate, user registers)
//   - queue.go: the three ready queues and the priority bands that select them
//   - scheduler.go: ReadyToRun, FindNextToRun and the Run dispatcher
//   - aging.go, migration.go: starvation boosts and queue reclassification
//
// # Machine
//
// interrupt.go keeps the simulated clock and the pending-interrupt queue. The
// clock advances only when interrupts are re-enabled, when user code executes
// an instruction, or when the machine idles to the next pending interrupt.
// timer.go delivers preemption interrupts, machine.go holds user registers and
// paged address spaces.
//
// # Threads and the dispatcher
//
// Every forked thread runs on its own goroutine, but only one goroutine is
// ever live: Switcher hands the CPU from the old thread to the next one and
// parks the old one until it is dispatched again. The goroutine that calls
// Kernel.Run is the idle thread. All scheduler operations assume interrupts
// are disabled and panic otherwise.
//
// # Ready queues
//
//   - Priority [0, 60): descending priority, FIFO among equals
//   - RR [60, 100): FIFO, preempted by the timer
//   - SJF [100, ...): ascending burst estimate, FIFO among equals
//
// FindNextToRun first applies aging, then looks at SJF, RR and Priority in
// that order.
//
// Sub-packages:
//   - sim/trace/: decision trace recording
//   - sim/workload/: workload specs and thread generation
package sim
