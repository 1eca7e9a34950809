package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every enqueue, aging, migration, dispatch and destroy decision.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects scheduling decision records during a kernel run.
// Every record gets a sequence number from a single counter shared by all record
// kinds, so the relative order of, say, a dispatch and the destroy that follows it
// can be recovered across slices.
type SimulationTrace struct {
	Config     TraceConfig
	Readies    []ReadyRecord
	Agings     []AgingRecord
	Migrations []MigrationRecord
	Dispatches []DispatchRecord
	Destroys   []DestroyRecord

	seq int
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		Readies:    make([]ReadyRecord, 0),
		Agings:     make([]AgingRecord, 0),
		Migrations: make([]MigrationRecord, 0),
		Dispatches: make([]DispatchRecord, 0),
		Destroys:   make([]DestroyRecord, 0),
	}
}

// Enabled reports whether records are being kept. Safe on a nil trace.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

func (st *SimulationTrace) next() int {
	st.seq++
	return st.seq
}

// RecordReady appends an enqueue record.
func (st *SimulationTrace) RecordReady(record ReadyRecord) {
	if !st.Enabled() {
		return
	}
	record.Seq = st.next()
	st.Readies = append(st.Readies, record)
}

// RecordAging appends an aging boost record.
func (st *SimulationTrace) RecordAging(record AgingRecord) {
	if !st.Enabled() {
		return
	}
	record.Seq = st.next()
	st.Agings = append(st.Agings, record)
}

// RecordMigration appends a queue migration record.
func (st *SimulationTrace) RecordMigration(record MigrationRecord) {
	if !st.Enabled() {
		return
	}
	record.Seq = st.next()
	st.Migrations = append(st.Migrations, record)
}

// RecordDispatch appends a dispatch record.
func (st *SimulationTrace) RecordDispatch(record DispatchRecord) {
	if !st.Enabled() {
		return
	}
	record.Seq = st.next()
	st.Dispatches = append(st.Dispatches, record)
}

// RecordDestroy appends a destroy record.
func (st *SimulationTrace) RecordDestroy(record DestroyRecord) {
	if !st.Enabled() {
		return
	}
	record.Seq = st.next()
	st.Destroys = append(st.Destroys, record)
}
