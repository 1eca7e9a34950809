package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// classifyAndInsert places t on the queue matching its current priority band
// and returns that queue's class. It never removes t from anywhere: a caller
// moving a thread must take it out of its old queue first.
func (s *Scheduler) classifyAndInsert(t *Thread) QueueClass {
	if class, queued := s.QueueOf(t.ID); queued {
		panic(fmt.Sprintf("Scheduler.classifyAndInsert: thread %d already in %s queue", t.ID, class))
	}
	class := ClassForPriority(t.Priority)
	s.Queue(class).Insert(t)
	logrus.Debugf("[tick %07d] Thread %d move to %s queue", s.now(), t.ID, class)
	return class
}
