package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamgarcia4/goLearning/gossipsim/gossip"
)

// fakeView is a participant frozen at a given map. It counts the copies the
// oracle asks for.
type fakeView struct {
	states map[gossip.Address]*gossip.EndpointState
	copies int
}

func (f *fakeView) RangeEndpoints(fn func(gossip.Address, *gossip.EndpointState) bool) {
	for a, es := range f.states {
		if !fn(a, es) {
			return
		}
	}
}

func (f *fakeView) EndpointStateFor(addr gossip.Address) (*gossip.EndpointState, bool) {
	f.copies++
	es, ok := f.states[addr]
	if !ok {
		return nil, false
	}
	return es.Clone(), true
}

func mustAddr(t *testing.T, i int) gossip.Address {
	t.Helper()
	a, err := AddressFor(i)
	require.NoError(t, err)
	return a
}

func endpoint(gen, hbVersion int64, apps map[gossip.AppStateKey]int64) *gossip.EndpointState {
	values := make(map[gossip.AppStateKey]gossip.VersionedValue, len(apps))
	for k, v := range apps {
		values[k] = gossip.VersionedValue{Value: fmt.Sprintf("%s-%d", k, v), Version: v}
	}
	return gossip.NewEndpointState(gossip.HeartbeatSnapshot{Generation: gen, Version: hbVersion}, values)
}

// convergedCluster returns n views that all agree, each with its own
// heartbeat version so the oracle has to ignore them.
func convergedCluster(t *testing.T, n int) (map[gossip.Address]View, map[gossip.Address]*fakeView) {
	t.Helper()
	addrs := make([]gossip.Address, n)
	truth := make(map[gossip.Address]*gossip.EndpointState, n)
	for i := range addrs {
		addrs[i] = mustAddr(t, i)
		truth[addrs[i]] = endpoint(int64(i), 0, map[gossip.AppStateKey]int64{
			gossip.AppNetVersion: int64(4*i + 1),
			gossip.AppHostID:     int64(4*i + 2),
		})
	}

	views := make(map[gossip.Address]View, n)
	fakes := make(map[gossip.Address]*fakeView, n)
	for i, self := range addrs {
		states := make(map[gossip.Address]*gossip.EndpointState, n)
		for j, peer := range addrs {
			es := truth[peer].Clone()
			es.Heartbeat.Version = int64(100*i + j)
			states[peer] = es
		}
		f := &fakeView{states: states}
		views[self] = f
		fakes[self] = f
	}
	return views, fakes
}

func TestInspect_Converged(t *testing.T) {
	views, _ := convergedCluster(t, 4)
	assert.Nil(t, Inspect(views))
}

func TestInspect_EmptyRegistry(t *testing.T) {
	assert.Nil(t, Inspect(map[gossip.Address]View{}))
}

func TestInspect_IgnoresHeartbeatVersion(t *testing.T) {
	views, fakes := convergedCluster(t, 2)
	a, b := mustAddr(t, 0), mustAddr(t, 1)

	fakes[a].states[b].Heartbeat.Version = 1
	fakes[b].states[b].Heartbeat.Version = 9999

	assert.Nil(t, Inspect(views))
}

func TestInspect_Divergences(t *testing.T) {
	a, b, c := mustAddr(t, 0), mustAddr(t, 1), mustAddr(t, 2)

	tests := []struct {
		name     string
		mutate   func(fakes map[gossip.Address]*fakeView)
		wantKind DivergenceKind
		check    func(t *testing.T, d *Divergence)
	}{
		{
			name: "generation mismatch",
			mutate: func(f map[gossip.Address]*fakeView) {
				f[a].states[b].Heartbeat.Generation = 42
			},
			wantKind: DivergenceGeneration,
			check: func(t *testing.T, d *Divergence) {
				assert.Equal(t, a, d.Observer)
				assert.Equal(t, b, d.Peer)
				assert.Equal(t, int64(42), d.Local)
				assert.Equal(t, int64(1), d.Remote)
			},
		},
		{
			name: "version mismatch",
			mutate: func(f map[gossip.Address]*fakeView) {
				vv := f[b].states[c].ApplicationStates[gossip.AppHostID]
				vv.Version--
				f[b].states[c].ApplicationStates[gossip.AppHostID] = vv
			},
			wantKind: DivergenceVersion,
			check: func(t *testing.T, d *Divergence) {
				assert.Equal(t, b, d.Observer)
				assert.Equal(t, c, d.Peer)
				assert.Equal(t, []gossip.AppStateKey{gossip.AppHostID}, d.Keys)
				assert.Equal(t, d.Remote-1, d.Local)
			},
		},
		{
			name: "observer has a key the peer lacks",
			mutate: func(f map[gossip.Address]*fakeView) {
				f[a].states[c].ApplicationStates[gossip.AppStatus] = gossip.VersionedValue{Value: "NORMAL", Version: 50}
			},
			wantKind: DivergenceExtraAppState,
			check: func(t *testing.T, d *Divergence) {
				assert.Equal(t, []gossip.AppStateKey{gossip.AppStatus}, d.Keys)
			},
		},
		{
			name: "observer is missing keys",
			mutate: func(f map[gossip.Address]*fakeView) {
				delete(f[c].states[a].ApplicationStates, gossip.AppNetVersion)
				delete(f[c].states[a].ApplicationStates, gossip.AppHostID)
			},
			wantKind: DivergenceMissingAppState,
			check: func(t *testing.T, d *Divergence) {
				assert.Equal(t, c, d.Observer)
				assert.Equal(t, a, d.Peer)
				assert.Equal(t, []gossip.AppStateKey{gossip.AppHostID, gossip.AppNetVersion}, d.Keys)
			},
		},
		{
			name: "observer has not heard of a node",
			mutate: func(f map[gossip.Address]*fakeView) {
				delete(f[b].states, c)
			},
			wantKind: DivergenceUnknownNodes,
			check: func(t *testing.T, d *Divergence) {
				assert.Equal(t, b, d.Observer)
				assert.Equal(t, []gossip.Address{c}, d.Unknown)
				assert.Equal(t, 3, d.Total)
			},
		},
		{
			name: "observer holds an unregistered address",
			mutate: func(f map[gossip.Address]*fakeView) {
				f[a].states[mustAddr(t, 77)] = endpoint(0, 0, nil)
			},
			wantKind: DivergenceUnknownPeer,
			check: func(t *testing.T, d *Divergence) {
				assert.Equal(t, mustAddr(t, 77), d.Peer)
			},
		},
		{
			name: "peer has no state for itself",
			mutate: func(f map[gossip.Address]*fakeView) {
				delete(f[c].states, c)
			},
			wantKind: DivergenceNoAuthority,
			check: func(t *testing.T, d *Divergence) {
				assert.Equal(t, c, d.Peer)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, fakes := convergedCluster(t, 3)
			tt.mutate(fakes)

			d := Inspect(views)
			require.NotNil(t, d)
			assert.Equal(t, tt.wantKind, d.Kind, d.String())
			tt.check(t, d)
			assert.NotEmpty(t, d.String())
		})
	}
}

func TestInspect_CopiesEachParticipantOnce(t *testing.T) {
	views, fakes := convergedCluster(t, 30)
	require.Nil(t, Inspect(views))

	for addr, f := range fakes {
		assert.Equal(t, 1, f.copies, "copies of %s", addr)
	}
}

func TestInspect_ReportsLowestDivergentPeer(t *testing.T) {
	views, fakes := convergedCluster(t, 6)
	a := mustAddr(t, 0)

	// Several bad entries in one observer's view: the result must not depend
	// on map iteration order.
	for i := 5; i >= 2; i-- {
		fakes[a].states[mustAddr(t, i)].Heartbeat.Generation = 99
	}
	for i := 0; i < 20; i++ {
		d := Inspect(views)
		require.NotNil(t, d)
		assert.Equal(t, DivergenceGeneration, d.Kind)
		assert.Equal(t, a, d.Observer)
		assert.Equal(t, mustAddr(t, 2), d.Peer)
	}
}

func TestInspect_UnknownNodesFormatting(t *testing.T) {
	views, fakes := convergedCluster(t, 12)
	observer := mustAddr(t, 0)

	for i := 1; i <= 3; i++ {
		delete(fakes[observer].states, mustAddr(t, i))
	}
	d := Inspect(views)
	require.NotNil(t, d)
	require.Equal(t, DivergenceUnknownNodes, d.Kind)
	assert.Len(t, d.Unknown, 3)
	assert.Contains(t, d.String(), "[127.0.0.1, 127.0.0.2, 127.0.0.3]")

	for i := 4; i <= 9; i++ {
		delete(fakes[observer].states, mustAddr(t, i))
	}
	d = Inspect(views)
	require.NotNil(t, d)
	assert.Len(t, d.Unknown, 9)
	assert.Contains(t, d.String(), "doesn't know about 9 nodes (out of 12 total)")
}

func TestInspect_ConvergedImpliesPairwiseAgreement(t *testing.T) {
	views, _ := convergedCluster(t, 5)
	require.Nil(t, Inspect(views))

	for obsAddr, obs := range views {
		for peerAddr, peer := range views {
			local, ok := obs.EndpointStateFor(peerAddr)
			require.True(t, ok)
			remote, ok := peer.EndpointStateFor(peerAddr)
			require.True(t, ok)

			assert.Equal(t, remote.Heartbeat.Generation, local.Heartbeat.Generation, "%s view of %s", obsAddr, peerAddr)
			require.Len(t, local.ApplicationStates, len(remote.ApplicationStates))
			for k, rv := range remote.ApplicationStates {
				assert.Equal(t, rv.Version, local.ApplicationStates[k].Version)
			}
		}
	}
}

func TestAddressFor(t *testing.T) {
	tests := []struct {
		i    int
		want string
	}{
		{0, "127.0.0.0"},
		{1, "127.0.0.1"},
		{254, "127.0.0.254"},
		{255, "127.0.1.0"},
		{1200, "127.0.4.180"},
		{MaxNodes - 1, "127.0.255.254"},
	}
	for _, tt := range tests {
		got, err := AddressFor(tt.i)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String())
	}

	_, err := AddressFor(MaxNodes)
	assert.ErrorIs(t, err, ErrTooManyNodes)
	_, err = AddressFor(-1)
	assert.ErrorIs(t, err, ErrTooManyNodes)
}
