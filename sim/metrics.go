// Tracks kernel-wide tick accounting and per-thread scheduling metrics such as
// waiting time, turnaround and the burst estimates fed to the SJF queue.

package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	gometrics "github.com/rcrowley/go-metrics"
)

// Stats is the simulated clock and its breakdown by machine mode.
type Stats struct {
	TotalTicks  int64 // ticks since boot
	IdleTicks   int64 // ticks skipped while the machine idled
	SystemTicks int64 // ticks spent in kernel code
	UserTicks   int64 // ticks spent executing user instructions
}

func (s Stats) String() string {
	return fmt.Sprintf("Ticks: total %d, idle %d, system %d, user %d",
		s.TotalTicks, s.IdleTicks, s.SystemTicks, s.UserTicks)
}

// ThreadMetrics is the end-of-life summary of one thread.
type ThreadMetrics struct {
	ID           ThreadID `json:"id"`
	Name         string   `json:"name"`
	Priority     int      `json:"final_priority"`
	BurstTime    float64  `json:"burst_estimate"`
	CreatedAt    int64    `json:"created_at"`
	DestroyedAt  int64    `json:"destroyed_at"`
	WaitingTicks int64    `json:"waiting_ticks"`
	Finished     bool     `json:"finished"`
}

// Turnaround returns the ticks from creation to destruction.
func (tm ThreadMetrics) Turnaround() int64 {
	return tm.DestroyedAt - tm.CreatedAt
}

// Metrics aggregates scheduler counters in a go-metrics registry plus
// per-thread summaries for final reporting.
type Metrics struct {
	registry gometrics.Registry

	ContextSwitches gometrics.Counter
	Dispatches      gometrics.Counter
	AgingBoosts     gometrics.Counter
	Migrations      gometrics.Counter
	Destroyed       gometrics.Counter
	BurstEstimates  gometrics.Histogram
	WaitingTicks    gometrics.Histogram

	Threads map[ThreadID]ThreadMetrics
}

// NewMetrics creates a Metrics with its own registry.
func NewMetrics() *Metrics {
	r := gometrics.NewRegistry()
	return &Metrics{
		registry:        r,
		ContextSwitches: gometrics.NewRegisteredCounter("sched.context_switches", r),
		Dispatches:      gometrics.NewRegisteredCounter("sched.dispatches", r),
		AgingBoosts:     gometrics.NewRegisteredCounter("sched.aging_boosts", r),
		Migrations:      gometrics.NewRegisteredCounter("sched.migrations", r),
		Destroyed:       gometrics.NewRegisteredCounter("sched.threads_destroyed", r),
		BurstEstimates:  gometrics.NewRegisteredHistogram("sched.burst_estimate", r, gometrics.NewUniformSample(1028)),
		WaitingTicks:    gometrics.NewRegisteredHistogram("sched.waiting_ticks", r, gometrics.NewUniformSample(1028)),
		Threads:         make(map[ThreadID]ThreadMetrics),
	}
}

// Registry exposes the underlying go-metrics registry.
func (m *Metrics) Registry() gometrics.Registry {
	return m.registry
}

func (m *Metrics) recordThread(t *Thread, now int64) {
	m.Destroyed.Inc(1)
	m.Threads[t.ID] = ThreadMetrics{
		ID:           t.ID,
		Name:         t.Name,
		Priority:     t.Priority,
		BurstTime:    t.BurstTime,
		CreatedAt:    t.createdAt,
		DestroyedAt:  now,
		WaitingTicks: t.waited,
		Finished:     t.status == Finished,
	}
}

// MetricsOutput is the JSON form of a run's results.
type MetricsOutput struct {
	TotalTicks      int64           `json:"total_ticks"`
	IdleTicks       int64           `json:"idle_ticks"`
	SystemTicks     int64           `json:"system_ticks"`
	UserTicks       int64           `json:"user_ticks"`
	ContextSwitches int64           `json:"context_switches"`
	Dispatches      int64           `json:"dispatches"`
	AgingBoosts     int64           `json:"aging_boosts"`
	Migrations      int64           `json:"migrations"`
	ThreadsFinished int             `json:"threads_finished"`
	MeanWaiting     float64         `json:"mean_waiting_ticks"`
	MeanTurnaround  float64         `json:"mean_turnaround_ticks"`
	Threads         []ThreadMetrics `json:"threads"`
}

// Output builds the JSON-ready summary.
func (m *Metrics) Output(stats Stats) MetricsOutput {
	out := MetricsOutput{
		TotalTicks:      stats.TotalTicks,
		IdleTicks:       stats.IdleTicks,
		SystemTicks:     stats.SystemTicks,
		UserTicks:       stats.UserTicks,
		ContextSwitches: m.ContextSwitches.Count(),
		Dispatches:      m.Dispatches.Count(),
		AgingBoosts:     m.AgingBoosts.Count(),
		Migrations:      m.Migrations.Count(),
		Threads:         make([]ThreadMetrics, 0, len(m.Threads)),
	}
	var waitSum, turnSum int64
	for _, tm := range m.Threads {
		out.Threads = append(out.Threads, tm)
		if !tm.Finished {
			continue
		}
		out.ThreadsFinished++
		waitSum += tm.WaitingTicks
		turnSum += tm.Turnaround()
	}
	sort.Slice(out.Threads, func(i, j int) bool { return out.Threads[i].ID < out.Threads[j].ID })
	if out.ThreadsFinished > 0 {
		out.MeanWaiting = float64(waitSum) / float64(out.ThreadsFinished)
		out.MeanTurnaround = float64(turnSum) / float64(out.ThreadsFinished)
	}
	return out
}

// Print writes the end-of-run report.
func (m *Metrics) Print(w io.Writer, stats Stats) {
	out := m.Output(stats)
	fmt.Fprintln(w, "=== Kernel Statistics ===")
	fmt.Fprintf(w, "%s\n", stats)
	fmt.Fprintf(w, "Threads finished     : %d\n", out.ThreadsFinished)
	fmt.Fprintf(w, "Dispatches           : %d\n", out.Dispatches)
	fmt.Fprintf(w, "Context switches     : %d\n", out.ContextSwitches)
	fmt.Fprintf(w, "Aging boosts         : %d\n", out.AgingBoosts)
	fmt.Fprintf(w, "Queue migrations     : %d\n", out.Migrations)
	if out.ThreadsFinished > 0 {
		fmt.Fprintf(w, "Average waiting      : %.2f ticks\n", out.MeanWaiting)
		fmt.Fprintf(w, "Average turnaround   : %.2f ticks\n", out.MeanTurnaround)
	}
	if m.BurstEstimates.Count() > 0 {
		fmt.Fprintf(w, "Burst estimate p50/p95: %.2f / %.2f ticks\n",
			m.BurstEstimates.Percentile(0.5), m.BurstEstimates.Percentile(0.95))
	}
	for _, tm := range out.Threads {
		fmt.Fprintf(w, "  Thread %d (%s): priority=%d burst=%.2f waiting=%d turnaround=%d\n",
			tm.ID, tm.Name, tm.Priority, tm.BurstTime, tm.WaitingTicks, tm.Turnaround())
	}
}

// SaveResults writes the JSON summary to outputPath.
func (m *Metrics) SaveResults(stats Stats, outputPath string) error {
	data, err := json.MarshalIndent(m.Output(stats), "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling metrics: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", outputPath, err)
	}
	return nil
}
