package sim

import (
	"github.com/kernel-sim/kernel-sim/sim/trace"
	"github.com/sirupsen/logrus"
)

// age boosts every ready thread that has waited at least agingThreshold ticks
// since its ReadyTime, and moves it to the queue its new priority selects.
//
// Each queue is scanned over a snapshot of its IDs. A boosted thread may be
// re-inserted into a later queue (or later in the same one) during the scan;
// its ReadyTime is reset to now, so no scan in this pass can boost it again.
func (s *Scheduler) age() {
	now := s.now()
	for _, q := range s.queues() {
		for _, id := range q.IDs() {
			if !q.Contains(id) {
				continue
			}
			t := s.kernel.Threads.MustGet(id)
			waited := now - t.ReadyTime
			if waited < s.agingThreshold {
				continue
			}

			q.Remove(id)
			t.ReadyTime = now
			oldPriority := t.Priority
			t.Priority += s.agingIncrement
			to := s.classifyAndInsert(t)

			s.kernel.Metrics.AgingBoosts.Inc(1)
			s.kernel.Trace.RecordAging(trace.AgingRecord{
				Tick:        now,
				ThreadID:    int(id),
				OldPriority: oldPriority,
				NewPriority: t.Priority,
				Waited:      waited,
			})
			logrus.Debugf("[tick %07d] Thread %d aged: priority %d -> %d", now, id, oldPriority, t.Priority)

			if to != q.Class() {
				s.kernel.Metrics.Migrations.Inc(1)
				s.kernel.Trace.RecordMigration(trace.MigrationRecord{
					Tick:     now,
					ThreadID: int(id),
					From:     q.Class().String(),
					To:       to.String(),
				})
			}
		}
	}
}
