package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalReadies      int
	TotalAgings       int
	TotalMigrations   int
	TotalDispatches   int
	TotalDestroys     int
	MaxAgingWait      int64
	ReadiesPerQueue   map[string]int // queue class → enqueues
	MigrationsToQueue map[string]int // queue class → arrivals by migration
	DispatchesPerTID  map[int]int    // thread ID → times dispatched
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ReadiesPerQueue:   make(map[string]int),
		MigrationsToQueue: make(map[string]int),
		DispatchesPerTID:  make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalReadies = len(st.Readies)
	for _, r := range st.Readies {
		summary.ReadiesPerQueue[r.Queue]++
	}

	summary.TotalAgings = len(st.Agings)
	for _, a := range st.Agings {
		if a.Waited > summary.MaxAgingWait {
			summary.MaxAgingWait = a.Waited
		}
	}

	summary.TotalMigrations = len(st.Migrations)
	for _, m := range st.Migrations {
		summary.MigrationsToQueue[m.To]++
	}

	summary.TotalDispatches = len(st.Dispatches)
	for _, d := range st.Dispatches {
		summary.DispatchesPerTID[d.To]++
	}

	summary.TotalDestroys = len(st.Destroys)
	return summary
}
