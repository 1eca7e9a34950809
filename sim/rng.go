// Seeded random streams. Each consumer of randomness (the timer, every
// generated workload class) draws from its own named stream, so adding draws
// to one never shifts another and a run is reproducible from its seed.

package sim

import (
	"hash/fnv"
	"math/rand"
)

// Stream names used by the kernel and the workload generator.
const (
	StreamTimer = "timer" // randomized time slices
)

// ClassStream names the stream a generated workload class draws from. It
// depends only on the class name, not on where the class sits in the spec.
func ClassStream(class string) string {
	return "class/" + class
}

// RandStreams hands out one *rand.Rand per stream name, each seeded from the
// run seed mixed with a hash of the name. Not safe for concurrent use; only
// one simulated thread runs at a time.
type RandStreams struct {
	seed    int64
	streams map[string]*rand.Rand
}

// NewRandStreams creates the streams of a run seeded with seed.
func NewRandStreams(seed int64) *RandStreams {
	return &RandStreams{seed: seed, streams: make(map[string]*rand.Rand)}
}

// Seed returns the run seed.
func (s *RandStreams) Seed() int64 {
	return s.seed
}

// Stream returns the stream for name, creating it on first use. Later calls
// with the same name continue the same sequence.
func (s *RandStreams) Stream(name string) *rand.Rand {
	if r, ok := s.streams[name]; ok {
		return r
	}
	r := rand.New(rand.NewSource(streamSeed(s.seed, name)))
	s.streams[name] = r
	return r
}

func streamSeed(seed int64, name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return seed ^ int64(h.Sum64())
}
