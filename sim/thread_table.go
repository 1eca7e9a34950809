package sim

import (
	"fmt"
	"sort"
)

// ThreadTable owns every live Thread, addressed by ID.
// Ready queues store IDs and resolve them here.
type ThreadTable struct {
	threads map[ThreadID]*Thread
	nextID  ThreadID
}

// NewThreadTable creates an empty table. The first allocated ID is 0.
func NewThreadTable() *ThreadTable {
	return &ThreadTable{threads: make(map[ThreadID]*Thread)}
}

// allocate creates and registers a thread with a fresh ID.
func (tt *ThreadTable) allocate(name string, priority int) *Thread {
	t := newThread(tt.nextID, name, priority)
	tt.nextID++
	tt.Add(t)
	return t
}

// Add registers a thread. Panics if the ID is already present.
func (tt *ThreadTable) Add(t *Thread) {
	if _, dup := tt.threads[t.ID]; dup {
		panic(fmt.Sprintf("ThreadTable.Add: thread %d already registered", t.ID))
	}
	tt.threads[t.ID] = t
}

// Get returns the thread with the given ID, or nil.
func (tt *ThreadTable) Get(id ThreadID) *Thread {
	return tt.threads[id]
}

// MustGet returns the thread with the given ID and panics if it is unknown.
func (tt *ThreadTable) MustGet(id ThreadID) *Thread {
	t, ok := tt.threads[id]
	if !ok {
		panic(fmt.Sprintf("ThreadTable: unknown thread %d", id))
	}
	return t
}

// Remove drops a thread from the table.
func (tt *ThreadTable) Remove(id ThreadID) {
	delete(tt.threads, id)
}

// Len returns the number of registered threads.
func (tt *ThreadTable) Len() int {
	return len(tt.threads)
}

// IDs returns the registered IDs in ascending order.
func (tt *ThreadTable) IDs() []ThreadID {
	ids := make([]ThreadID, 0, len(tt.threads))
	for id := range tt.threads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
