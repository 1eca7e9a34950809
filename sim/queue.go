// Implements the ReadyQueue, which holds threads that are eligible to run.
// There is one queue per scheduling class; the class fixes the ordering.

package sim

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// QueueClass selects a ready queue and its ordering.
type QueueClass int

const (
	PriorityClass   QueueClass = iota // [0, 60): descending priority
	RoundRobinClass                   // [60, 100): FIFO
	SJFClass                          // [100, ∞): ascending burst estimate
)

// Band boundaries. A priority below RoundRobinMinPriority belongs to the
// priority queue, one at or above SJFMinPriority to the SJF queue.
const (
	RoundRobinMinPriority = 60
	SJFMinPriority        = 100
)

func (c QueueClass) String() string {
	switch c {
	case PriorityClass:
		return "Priority"
	case RoundRobinClass:
		return "RR"
	case SJFClass:
		return "SJF"
	default:
		return "Unknown"
	}
}

// ClassForPriority returns the queue class whose band contains priority.
func ClassForPriority(priority int) QueueClass {
	switch {
	case priority >= SJFMinPriority:
		return SJFClass
	case priority >= RoundRobinMinPriority:
		return RoundRobinClass
	default:
		return PriorityClass
	}
}

// queueKey orders entries inside the tree. order is class-specific and seq
// breaks ties by insertion, so every class is stable.
type queueKey struct {
	order float64
	seq   uint64
}

func compareQueueKeys(a, b any) int {
	ka, kb := a.(queueKey), b.(queueKey)
	switch {
	case ka.order < kb.order:
		return -1
	case ka.order > kb.order:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// ReadyQueue is an ordered set of thread IDs.
// Insertion and removal are O(log n); membership is O(1).
// A ReadyQueue does not know about the other queues: keeping a thread in at
// most one of them is the Scheduler's job.
type ReadyQueue struct {
	class QueueClass
	tree  *redblacktree.Tree
	keys  map[ThreadID]queueKey
	seq   uint64
}

// NewReadyQueue creates an empty queue for the given class.
func NewReadyQueue(class QueueClass) *ReadyQueue {
	return &ReadyQueue{
		class: class,
		tree:  redblacktree.NewWith(compareQueueKeys),
		keys:  make(map[ThreadID]queueKey),
	}
}

// Class returns the queue's scheduling class.
func (q *ReadyQueue) Class() QueueClass {
	return q.class
}

func (q *ReadyQueue) orderOf(t *Thread) float64 {
	switch q.class {
	case PriorityClass:
		return -float64(t.Priority)
	case SJFClass:
		return t.BurstTime
	default:
		return 0
	}
}

// Insert places t according to the class ordering. The ordering key is taken
// from t at insertion time; later changes to t do not reorder the queue.
// Panics if t is already queued here.
func (q *ReadyQueue) Insert(t *Thread) {
	if t == nil {
		panic("ReadyQueue.Insert: thread must not be nil")
	}
	if _, dup := q.keys[t.ID]; dup {
		panic(fmt.Sprintf("ReadyQueue.Insert: thread %d already in %s queue", t.ID, q.class))
	}
	key := queueKey{order: q.orderOf(t), seq: q.seq}
	q.seq++
	q.tree.Put(key, t.ID)
	q.keys[t.ID] = key
}

// RemoveFront removes and returns the head of the queue.
// Returns false if the queue is empty.
func (q *ReadyQueue) RemoveFront() (ThreadID, bool) {
	node := q.tree.Left()
	if node == nil {
		return 0, false
	}
	id := node.Value.(ThreadID)
	q.tree.Remove(node.Key)
	delete(q.keys, id)
	return id, true
}

// Front returns the head of the queue without removing it.
func (q *ReadyQueue) Front() (ThreadID, bool) {
	node := q.tree.Left()
	if node == nil {
		return 0, false
	}
	return node.Value.(ThreadID), true
}

// Remove takes id out of the queue wherever it is.
// Returns false if id was not queued here.
func (q *ReadyQueue) Remove(id ThreadID) bool {
	key, ok := q.keys[id]
	if !ok {
		return false
	}
	q.tree.Remove(key)
	delete(q.keys, id)
	return true
}

// Contains reports whether id is queued here.
func (q *ReadyQueue) Contains(id ThreadID) bool {
	_, ok := q.keys[id]
	return ok
}

// IsEmpty reports whether the queue holds no threads.
func (q *ReadyQueue) IsEmpty() bool {
	return len(q.keys) == 0
}

// Len returns the number of queued threads.
func (q *ReadyQueue) Len() int {
	return len(q.keys)
}

// IDs returns the queued IDs from head to tail. The slice is a snapshot:
// callers may mutate the queue while ranging over it.
func (q *ReadyQueue) IDs() []ThreadID {
	ids := make([]ThreadID, 0, len(q.keys))
	it := q.tree.Iterator()
	for it.Next() {
		ids = append(ids, it.Value().(ThreadID))
	}
	return ids
}

func (q *ReadyQueue) String() string {
	var sb strings.Builder
	sb.WriteString(q.class.String())
	sb.WriteString("[")
	for i, id := range q.IDs() {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprint(int(id)))
	}
	sb.WriteString("]")
	return sb.String()
}
