package gossip

import "sync"

/*
Reference: https://github.com/apache/cassandra/blob/trunk/src/java/org/apache/cassandra/gms/HeartBeatState.java
*/

// HeartbeatSnapshot is a copy of HeartbeatState without the mutex.
// This type is safe to copy and hand to other participants.
type HeartbeatSnapshot struct {
	Generation int64 // fixed for the participant's lifetime
	Version    int64 // incremented on each gossip action
}

// HeartbeatState owns the generation/version pair of one participant.
// Only the owner calls NextVersion; anyone may read.
type HeartbeatState struct {
	mu         sync.RWMutex
	generation int64
	version    int64
}

func NewHeartbeatState(generation int64) *HeartbeatState {
	return &HeartbeatState{generation: generation}
}

// NextVersion increments the version and returns the new value.
func (h *HeartbeatState) NextVersion() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version++
	return h.version
}

// Beat bumps the version and returns the resulting snapshot.
func (h *HeartbeatState) Beat() HeartbeatSnapshot {
	return HeartbeatSnapshot{Generation: h.Generation(), Version: h.NextVersion()}
}

// Snapshot returns the current state for reading.
func (h *HeartbeatState) Snapshot() HeartbeatSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HeartbeatSnapshot{Generation: h.generation, Version: h.version}
}

// Version returns the current version in a thread-safe manner.
func (h *HeartbeatState) Version() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// Generation is fixed at construction.
func (h *HeartbeatState) Generation() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.generation
}
