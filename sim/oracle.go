package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/adamgarcia4/goLearning/gossipsim/gossip"
	"github.com/adamgarcia4/goLearning/gossipsim/logger"
)

// View is what the oracle needs from a participant: a read-only walk over its
// map, and its own authoritative entry.
type View interface {
	RangeEndpoints(fn func(addr gossip.Address, es *gossip.EndpointState) bool)
	EndpointStateFor(addr gossip.Address) (*gossip.EndpointState, bool)
}

// DivergenceKind classifies why a cluster has not converged.
type DivergenceKind int

const (
	// Observer holds an entry for an address nobody registered.
	DivergenceUnknownPeer DivergenceKind = iota
	// Peer has no entry for itself (never started).
	DivergenceNoAuthority
	DivergenceGeneration
	// Observer has a key the peer does not.
	DivergenceExtraAppState
	// Peer has keys the observer has not heard about.
	DivergenceMissingAppState
	DivergenceVersion
	// Observer has not heard about some registered participants.
	DivergenceUnknownNodes
)

func (k DivergenceKind) String() string {
	switch k {
	case DivergenceUnknownPeer:
		return "unknown peer"
	case DivergenceNoAuthority:
		return "no authoritative state"
	case DivergenceGeneration:
		return "generation mismatch"
	case DivergenceExtraAppState:
		return "unknown app state"
	case DivergenceMissingAppState:
		return "missing app states"
	case DivergenceVersion:
		return "version mismatch"
	case DivergenceUnknownNodes:
		return "unknown nodes"
	default:
		return fmt.Sprintf("divergence(%d)", int(k))
	}
}

// unknownNodesListLimit: below this many, unknown nodes are listed by address.
const unknownNodesListLimit = 8

// Divergence is the first disagreement the oracle found.
type Divergence struct {
	Kind     DivergenceKind
	Observer gossip.Address
	Peer     gossip.Address

	Keys []gossip.AppStateKey

	// Generation for DivergenceGeneration, version for DivergenceVersion.
	Local, Remote int64

	Unknown []gossip.Address
	Total   int
}

func (d *Divergence) String() string {
	switch d.Kind {
	case DivergenceUnknownPeer:
		return fmt.Sprintf("unknown peer: %s holds state for unregistered %s", d.Observer, d.Peer)
	case DivergenceNoAuthority:
		return fmt.Sprintf("no authoritative state: %s has no entry for itself", d.Peer)
	case DivergenceGeneration:
		return fmt.Sprintf("generations are different: %s sees %s at %d, %s is at %d",
			d.Observer, d.Peer, d.Local, d.Peer, d.Remote)
	case DivergenceExtraAppState:
		return fmt.Sprintf("unknown app state: peer %s does not have %s that %s does",
			d.Peer, d.Keys[0], d.Observer)
	case DivergenceMissingAppState:
		return fmt.Sprintf("unknown app states: %s doesn't know about the following app states from %s: %s",
			d.Observer, d.Peer, joinKeys(d.Keys))
	case DivergenceVersion:
		return fmt.Sprintf("divergent app state: %s has local(%s) version %d and peer(%s) version %d",
			d.Keys[0], d.Observer, d.Local, d.Peer, d.Remote)
	case DivergenceUnknownNodes:
		if len(d.Unknown) < unknownNodesListLimit {
			return fmt.Sprintf("unknown nodes: %s doesn't know about the following nodes: %s",
				d.Observer, joinAddrs(d.Unknown))
		}
		return fmt.Sprintf("unknown nodes: %s doesn't know about %d nodes (out of %d total)",
			d.Observer, len(d.Unknown), d.Total)
	default:
		return d.Kind.String()
	}
}

// Inspect compares every participant's view of every peer against that peer's
// own state and returns the first disagreement, or nil if the cluster has
// converged. Heartbeat versions are not compared: they move every round.
//
// Each participant's own entry is fetched once per call and observers are
// walked in place.
func Inspect(registry map[gossip.Address]View) *Divergence {
	addrs := make([]gossip.Address, 0, len(registry))
	authority := make(map[gossip.Address]*gossip.EndpointState, len(registry))
	for addr, v := range registry {
		addrs = append(addrs, addr)
		es, _ := v.EndpointStateFor(addr)
		authority[addr] = es
	}
	gossip.SortAddresses(addrs)

	for _, observer := range addrs {
		if d := inspectObserver(observer, registry[observer], authority, addrs); d != nil {
			logger.Debugf("convergence check: %s", d)
			return d
		}
	}
	return nil
}

// inspectObserver reports the divergence for the lowest peer address in the
// observer's view, then any registered participants the observer lacks.
func inspectObserver(observer gossip.Address, v View, authority map[gossip.Address]*gossip.EndpointState, all []gossip.Address) *Divergence {
	var first *Divergence
	seen := 0

	v.RangeEndpoints(func(peer gossip.Address, local *gossip.EndpointState) bool {
		if first != nil && !peer.Less(first.Peer) {
			return true
		}
		var d *Divergence
		remote, registered := authority[peer]
		switch {
		case !registered:
			d = &Divergence{Kind: DivergenceUnknownPeer, Observer: observer, Peer: peer}
		case peer == observer:
			seen++
			return true
		case remote == nil:
			d = &Divergence{Kind: DivergenceNoAuthority, Observer: observer, Peer: peer}
		default:
			seen++
			d = compareEndpoint(observer, peer, local, remote)
		}
		if d != nil {
			first = d
		}
		return true
	})
	if first != nil {
		return first
	}
	if seen == len(all) {
		return nil
	}

	known := make(map[gossip.Address]struct{}, seen)
	v.RangeEndpoints(func(addr gossip.Address, _ *gossip.EndpointState) bool {
		known[addr] = struct{}{}
		return true
	})
	var unknown []gossip.Address
	for _, addr := range all {
		if _, ok := known[addr]; !ok {
			unknown = append(unknown, addr)
		}
	}
	return &Divergence{
		Kind:     DivergenceUnknownNodes,
		Observer: observer,
		Unknown:  unknown,
		Total:    len(all),
	}
}

func compareEndpoint(observer, peer gossip.Address, local, remote *gossip.EndpointState) *Divergence {
	if local.Heartbeat.Generation != remote.Heartbeat.Generation {
		return &Divergence{
			Kind:     DivergenceGeneration,
			Observer: observer,
			Peer:     peer,
			Local:    local.Heartbeat.Generation,
			Remote:   remote.Heartbeat.Generation,
		}
	}

	for _, key := range sortedKeys(local.ApplicationStates) {
		lv := local.ApplicationStates[key]
		rv, ok := remote.ApplicationStates[key]
		if !ok {
			return &Divergence{
				Kind:     DivergenceExtraAppState,
				Observer: observer,
				Peer:     peer,
				Keys:     []gossip.AppStateKey{key},
			}
		}
		if lv.Compare(rv) != 0 {
			return &Divergence{
				Kind:     DivergenceVersion,
				Observer: observer,
				Peer:     peer,
				Keys:     []gossip.AppStateKey{key},
				Local:    lv.Version,
				Remote:   rv.Version,
			}
		}
	}

	var missing []gossip.AppStateKey
	for _, key := range sortedKeys(remote.ApplicationStates) {
		if _, ok := local.ApplicationStates[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &Divergence{
			Kind:     DivergenceMissingAppState,
			Observer: observer,
			Peer:     peer,
			Keys:     missing,
		}
	}
	return nil
}

func sortedKeys(m map[gossip.AppStateKey]gossip.VersionedValue) []gossip.AppStateKey {
	keys := make([]gossip.AppStateKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func joinKeys(keys []gossip.AppStateKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func joinAddrs(addrs []gossip.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
