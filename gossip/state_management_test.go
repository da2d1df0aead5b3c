package gossip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_MergeRules(t *testing.T) {
	s := newTestState(t, addrA, 0, nil)

	// New endpoint is inserted
	n := s.Apply(map[Address]*EndpointState{
		addrB: NewEndpointState(HeartbeatSnapshot{Generation: 2, Version: 4}, map[AppStateKey]VersionedValue{
			AppHostID:     {Value: "b", Version: 1},
			AppRPCAddress: {Value: "127.0.0.2", Version: 2},
		}),
	})
	assert.Equal(t, 1, n)

	// Lower generation is ignored
	n = s.Apply(map[Address]*EndpointState{
		addrB: NewEndpointState(HeartbeatSnapshot{Generation: 1, Version: 50}, nil),
	})
	assert.Equal(t, 0, n)
	es, _ := s.EndpointStateFor(addrB)
	assert.Equal(t, int64(2), es.Heartbeat.Generation)
	assert.Equal(t, int64(4), es.Heartbeat.Version)

	// Same generation: newer heartbeat and per-key newer values win, older keys stay
	n = s.Apply(map[Address]*EndpointState{
		addrB: NewEndpointState(HeartbeatSnapshot{Generation: 2, Version: 6}, map[AppStateKey]VersionedValue{
			AppHostID: {Value: "stale", Version: 0},
			AppStatus: {Value: "NORMAL", Version: 5},
		}),
	})
	assert.Equal(t, 1, n)
	es, _ = s.EndpointStateFor(addrB)
	assert.Equal(t, int64(6), es.Heartbeat.Version)
	assert.Equal(t, "b", es.ApplicationStates[AppHostID].Value)
	assert.Equal(t, "NORMAL", es.ApplicationStates[AppStatus].Value)
	assert.Len(t, es.ApplicationStates, 3)

	// Higher generation replaces everything
	n = s.Apply(map[Address]*EndpointState{
		addrB: NewEndpointState(HeartbeatSnapshot{Generation: 3, Version: 1}, map[AppStateKey]VersionedValue{
			AppHostID: {Value: "b2", Version: 1},
		}),
	})
	assert.Equal(t, 1, n)
	es, _ = s.EndpointStateFor(addrB)
	assert.Equal(t, int64(3), es.Heartbeat.Generation)
	assert.Len(t, es.ApplicationStates, 1)
}

func TestApply_NeverOverwritesLocal(t *testing.T) {
	s := newTestState(t, addrA, 0, map[AppStateKey]VersionedValue{
		AppHostID: {Value: "mine", Version: 1},
	})

	s.Apply(map[Address]*EndpointState{
		addrA: NewEndpointState(HeartbeatSnapshot{Generation: 9, Version: 9}, map[AppStateKey]VersionedValue{
			AppHostID: {Value: "theirs", Version: 9},
		}),
	})

	es, ok := s.EndpointStateFor(addrA)
	require.True(t, ok)
	assert.Equal(t, int64(0), es.Heartbeat.Generation)
	assert.Equal(t, "mine", es.ApplicationStates[AppHostID].Value)
}

func TestApply_StoresCopies(t *testing.T) {
	s := newTestState(t, addrA, 0, nil)
	remote := NewEndpointState(HeartbeatSnapshot{}, map[AppStateKey]VersionedValue{
		AppHostID: {Value: "b", Version: 1},
	})
	s.Apply(map[Address]*EndpointState{addrB: remote})

	remote.ApplicationStates[AppHostID] = VersionedValue{Value: "changed", Version: 2}

	es, _ := s.EndpointStateFor(addrB)
	assert.Equal(t, "b", es.ApplicationStates[AppHostID].Value)
}
