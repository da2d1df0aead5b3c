package gossip

import (
	"errors"
	"sync"
)

/**
Cassandra's GMS (Gossip Membership Service) keeps, on every node, a map of
endpoint -> EndpointState describing what that node believes about the cluster.

My State needs to answer 3 questions:
1. Who are the nodes? (membership list)
2. Which incarnation of each node is current? (generation)
3. What has each node published? (application states + versions)

Discovery: State.endpoints
Incarnation: State.endpoints[addr].Heartbeat.Generation
Published data: State.endpoints[addr].ApplicationStates

ReferenceCode: https://github.com/apache/cassandra/blob/trunk/src/java/org/apache/cassandra/gms/Gossiper.java

Overview:
	Each round the owning participant:
		Updates its local heartbeat (incrementing version)
		Picks a peer to gossip with (a known endpoint, sometimes a seed)
		Executes a 3-step exchange:
			GOSSIP_DIGEST_SYN -> send digest list (endpoint, generation, maxVersion)
			GOSSIP_DIGEST_ACK -> peer responds with "you're outdated on X, here's my newer state"
			GOSSIP_DIGEST_ACK2 -> initiator sends remaining newer states back
		Merges remote EndpointStates into its map using:
			(generation, version) comparison for heartbeats
			per-key version comparison for app states

	The harness reads this map from other goroutines (convergence inspection)
	while the owner and its peers' handlers write to it, so every access goes
	through mu and every read hands back deep copies.

File Organization:
	gossip.go - State struct and accessors
	types.go - Basic type definitions (Address, AppStateKey, VersionedValue)
	heartbeat_state.go - HeartbeatState (the per-node versioner)
	endpoint_state.go - EndpointState struct
	digest.go - Digest creation and comparison logic
	state_management.go - Merging remote state
	messages.go - SYN/ACK/ACK2 payloads and the inbound envelope
	value_factory.go - Initial application state values
*/

var (
	ErrLocalAddressRequired = errors.New("local address is required")
	ErrClusterIDRequired    = errors.New("cluster ID is required")
	ErrNotInitialized       = errors.New("gossip state not initialized: call Initialize first")
)

// State is the endpoint-state map of a single participant.
type State struct {
	local     Address
	clusterID string

	mu        sync.RWMutex
	heartbeat *HeartbeatState
	endpoints map[Address]*EndpointState
}

func NewState(local Address, clusterID string) (*State, error) {
	if !local.IsValid() {
		return nil, ErrLocalAddressRequired
	}
	if clusterID == "" {
		return nil, ErrClusterIDRequired
	}
	return &State{
		local:     local,
		clusterID: clusterID,
		endpoints: make(map[Address]*EndpointState),
	}, nil
}

// Initialize creates the local heartbeat at the given generation and seeds the
// local EndpointState with appStates. Any previous view is discarded.
func (s *State) Initialize(generation int64, appStates map[AppStateKey]VersionedValue) {
	hb := NewHeartbeatState(generation)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeat = hb
	s.endpoints = make(map[Address]*EndpointState)
	// local epstate is part of endpoints - Cassandra style
	s.endpoints[s.local] = NewEndpointState(hb.Snapshot(), appStates)
}

func (s *State) ClusterID() string { return s.clusterID }

// Heartbeat returns the local versioner, or nil before Initialize.
func (s *State) Heartbeat() *HeartbeatState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heartbeat
}

// BeatHeartbeat bumps the local heartbeat and keeps the local EndpointState in
// sync with it.
func (s *State) BeatHeartbeat() (HeartbeatSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heartbeat == nil {
		return HeartbeatSnapshot{}, ErrNotInitialized
	}
	snap := s.heartbeat.Beat()
	if local := s.endpoints[s.local]; local != nil {
		local.Heartbeat = snap
	}
	return snap, nil
}

// EndpointStates returns a deep copy of the whole map.
func (s *State) EndpointStates() map[Address]*EndpointState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Address]*EndpointState, len(s.endpoints))
	for addr, es := range s.endpoints {
		out[addr] = es.Clone()
	}
	return out
}

// RangeEndpoints calls fn for every known endpoint under the read lock until
// fn returns false. fn must not retain or modify the EndpointState, and must
// not call back into s.
func (s *State) RangeEndpoints(fn func(addr Address, es *EndpointState) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for addr, es := range s.endpoints {
		if !fn(addr, es) {
			return
		}
	}
}

// EndpointStateFor returns a copy of what this participant knows about addr.
func (s *State) EndpointStateFor(addr Address) (*EndpointState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	es, ok := s.endpoints[addr]
	if !ok {
		return nil, false
	}
	return es.Clone(), true
}

// KnownPeers returns every known address except the local one, sorted.
func (s *State) KnownPeers() []Address {
	s.mu.RLock()
	peers := make([]Address, 0, len(s.endpoints))
	for addr := range s.endpoints {
		if addr != s.local {
			peers = append(peers, addr)
		}
	}
	s.mu.RUnlock()
	return SortAddresses(peers)
}

// Len returns the number of known endpoints, including the local one.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.endpoints)
}
