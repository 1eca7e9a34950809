// Package trace provides decision-trace recording for scheduler analysis.
// This package has no dependencies on sim/; it stores pure data types.
// Queue classes are carried as their display names ("Priority", "RR", "SJF").
package trace

// ReadyRecord captures a thread entering a ready queue through ReadyToRun.
type ReadyRecord struct {
	Seq      int
	Tick     int64
	ThreadID int
	Queue    string
	Priority int
}

// AgingRecord captures a single aging boost.
type AgingRecord struct {
	Seq         int
	Tick        int64
	ThreadID    int
	OldPriority int
	NewPriority int
	Waited      int64 // ticks since the previous ReadyTime
}

// MigrationRecord captures a thread moving between queue classes after a boost.
type MigrationRecord struct {
	Seq      int
	Tick     int64
	ThreadID int
	From     string
	To       string
}

// DispatchRecord captures one call to the dispatcher.
type DispatchRecord struct {
	Seq       int
	Tick      int64
	From      int
	To        int
	Finishing bool
	FromBurst float64 // burst estimate of From after the update
}

// DestroyRecord captures the deferred destruction of a finished thread.
type DestroyRecord struct {
	Seq      int
	Tick     int64
	ThreadID int
	Reason   string
}
