package gossip

/**
EndpointState is one participant's belief about one address (itself or a peer).
Fields:
	Heartbeat - generation/version last seen for the endpoint
	ApplicationStates (Map[AppStateKey]VersionedValue)
Used for:
	Digest creation (generation + max version)
	Merging remote state during SYN/ACK/ACK2
	Convergence inspection

EndpointState values handed out of a State are always deep copies; the
originals live behind State's mutex.
*/

type EndpointState struct {
	Heartbeat         HeartbeatSnapshot
	ApplicationStates map[AppStateKey]VersionedValue
}

// NewEndpointState creates a new EndpointState from components
func NewEndpointState(hb HeartbeatSnapshot, appStates map[AppStateKey]VersionedValue) *EndpointState {
	states := make(map[AppStateKey]VersionedValue, len(appStates))
	for k, v := range appStates {
		states[k] = v
	}
	return &EndpointState{Heartbeat: hb, ApplicationStates: states}
}

// Clone returns a deep copy.
func (es *EndpointState) Clone() *EndpointState {
	if es == nil {
		return nil
	}
	return NewEndpointState(es.Heartbeat, es.ApplicationStates)
}

// MaxVersion is the highest version across the heartbeat and app states.
// This matches Cassandra's getMaxEndpointStateVersion() method
func (es *EndpointState) MaxVersion() int64 {
	maxVer := es.Heartbeat.Version
	for _, v := range es.ApplicationStates {
		if v.Version > maxVer {
			maxVer = v.Version
		}
	}
	return maxVer
}
