package gossip

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA = netip.MustParseAddr("127.0.0.1")
	addrB = netip.MustParseAddr("127.0.0.2")
	addrC = netip.MustParseAddr("127.0.0.3")
)

func newTestState(t *testing.T, local Address, gen int64, apps map[AppStateKey]VersionedValue) *State {
	t.Helper()
	s, err := NewState(local, "test-cluster")
	require.NoError(t, err)
	s.Initialize(gen, apps)
	return s
}

func TestNewState_Validation(t *testing.T) {
	_, err := NewState(Address{}, "c")
	assert.ErrorIs(t, err, ErrLocalAddressRequired)

	_, err = NewState(addrA, "")
	assert.ErrorIs(t, err, ErrClusterIDRequired)
}

func TestState_BeatBeforeInitialize(t *testing.T) {
	s, err := NewState(addrA, "c")
	require.NoError(t, err)
	_, err = s.BeatHeartbeat()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestDigests_IncludeLocalWithMaxVersion(t *testing.T) {
	s := newTestState(t, addrA, 0, map[AppStateKey]VersionedValue{
		AppHostID: {Value: "h", Version: 9},
	})

	digests := s.Digests()
	require.Len(t, digests, 1)
	assert.Equal(t, Digest{Endpoint: addrA, Generation: 0, MaxVersion: 9}, digests[0])

	for i := 0; i < 12; i++ {
		_, err := s.BeatHeartbeat()
		require.NoError(t, err)
	}
	assert.Equal(t, int64(12), s.Digests()[0].MaxVersion)
}

func TestCompareDigests(t *testing.T) {
	s := newTestState(t, addrA, 0, map[AppStateKey]VersionedValue{
		AppHostID: {Value: "a", Version: 5},
	})
	s.Apply(map[Address]*EndpointState{
		addrB: NewEndpointState(HeartbeatSnapshot{Generation: 1, Version: 3}, nil),
	})

	tests := []struct {
		name         string
		remote       []Digest
		wantDeltas   []Address
		wantRequests []Address
	}{
		{
			name:         "peer knows nothing",
			remote:       nil,
			wantDeltas:   []Address{addrA, addrB},
			wantRequests: nil,
		},
		{
			name: "in sync",
			remote: []Digest{
				{Endpoint: addrA, Generation: 0, MaxVersion: 5},
				{Endpoint: addrB, Generation: 1, MaxVersion: 3},
			},
		},
		{
			name: "peer newer version",
			remote: []Digest{
				{Endpoint: addrA, Generation: 0, MaxVersion: 5},
				{Endpoint: addrB, Generation: 1, MaxVersion: 8},
			},
			wantRequests: []Address{addrB},
		},
		{
			name: "local newer generation",
			remote: []Digest{
				{Endpoint: addrA, Generation: 0, MaxVersion: 5},
				{Endpoint: addrB, Generation: 0, MaxVersion: 100},
			},
			wantDeltas: []Address{addrB},
		},
		{
			name: "unknown endpoint requested",
			remote: []Digest{
				{Endpoint: addrA, Generation: 0, MaxVersion: 5},
				{Endpoint: addrB, Generation: 1, MaxVersion: 3},
				{Endpoint: addrC, Generation: 0, MaxVersion: 1},
			},
			wantRequests: []Address{addrC},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deltas, requests := s.CompareDigests(tt.remote)

			gotDeltas := make([]Address, 0, len(deltas))
			for addr := range deltas {
				gotDeltas = append(gotDeltas, addr)
			}
			gotRequests := make([]Address, 0, len(requests))
			for _, d := range requests {
				gotRequests = append(gotRequests, d.Endpoint)
			}

			assert.ElementsMatch(t, tt.wantDeltas, gotDeltas)
			assert.ElementsMatch(t, tt.wantRequests, gotRequests)
		})
	}
}

func TestStatesFor_ReturnsCopies(t *testing.T) {
	s := newTestState(t, addrA, 0, map[AppStateKey]VersionedValue{
		AppHostID: {Value: "a", Version: 1},
	})

	out := s.StatesFor([]Digest{{Endpoint: addrA}, {Endpoint: addrC}})
	require.Len(t, out, 1)

	out[addrA].ApplicationStates[AppHostID] = VersionedValue{Value: "mutated", Version: 99}
	es, ok := s.EndpointStateFor(addrA)
	require.True(t, ok)
	assert.Equal(t, int64(1), es.ApplicationStates[AppHostID].Version)
}
