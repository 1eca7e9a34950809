package trace

import "testing"

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalDispatches != 0 || summary.TotalReadies != 0 {
		t.Errorf("expected zero summary, got %+v", summary)
	}
	if summary.ReadiesPerQueue == nil || summary.DispatchesPerTID == nil {
		t.Error("maps must be initialized")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with a mix of records
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordReady(ReadyRecord{ThreadID: 1, Queue: "Priority"})
	st.RecordReady(ReadyRecord{ThreadID: 2, Queue: "Priority"})
	st.RecordReady(ReadyRecord{ThreadID: 3, Queue: "SJF"})
	st.RecordAging(AgingRecord{ThreadID: 1, Waited: 1500})
	st.RecordAging(AgingRecord{ThreadID: 2, Waited: 1720})
	st.RecordMigration(MigrationRecord{ThreadID: 2, From: "Priority", To: "RR"})
	st.RecordDispatch(DispatchRecord{From: 0, To: 3})
	st.RecordDispatch(DispatchRecord{From: 3, To: 2})
	st.RecordDispatch(DispatchRecord{From: 2, To: 3})
	st.RecordDestroy(DestroyRecord{ThreadID: 2})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalReadies != 3 || summary.ReadiesPerQueue["Priority"] != 2 || summary.ReadiesPerQueue["SJF"] != 1 {
		t.Errorf("ready counts wrong: %+v", summary)
	}
	if summary.TotalAgings != 2 || summary.MaxAgingWait != 1720 {
		t.Errorf("aging stats wrong: total=%d max=%d", summary.TotalAgings, summary.MaxAgingWait)
	}
	if summary.MigrationsToQueue["RR"] != 1 {
		t.Errorf("expected 1 migration to RR, got %d", summary.MigrationsToQueue["RR"])
	}
	if summary.DispatchesPerTID[3] != 2 || summary.DispatchesPerTID[2] != 1 {
		t.Errorf("dispatch distribution wrong: %v", summary.DispatchesPerTID)
	}
	if summary.TotalDestroys != 1 {
		t.Errorf("expected 1 destroy, got %d", summary.TotalDestroys)
	}
}
